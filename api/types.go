// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blinklabs-io/circles/factory"
	"github.com/blinklabs-io/circles/governor"
	"github.com/blinklabs-io/circles/registry"
)

// RootResponse is returned by GET /
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is the body of every non-2xx response. Code carries the
// ledger error code, such as "NotActive", when one is known
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

type HeadResponse struct {
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"`
}

type EventResponse struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Emitter common.Address  `json:"emitter"`
	Height  uint64          `json:"height"`
	Time    uint64          `json:"time"`
	Data    json.RawMessage `json:"data"`
}

type AccountResponse struct {
	Address common.Address `json:"address"`
	Balance *big.Int       `json:"balance"`
	// Kind is the contract kind, or empty for a plain account
	Kind string `json:"kind,omitempty"`
}

type CircleResponse = registry.Circle

// CreateCircleRequest creates a child circle. From must be the parent
// circle's timelock
type CreateCircleRequest struct {
	From common.Address `json:"from"`
	factory.Params
}

type GovernorResponse struct {
	Address                   common.Address `json:"address"`
	Name                      string         `json:"name"`
	Token                     common.Address `json:"token"`
	Timelock                  common.Address `json:"timelock"`
	VotingDelay               uint64         `json:"votingDelay"`
	VotingPeriod              uint64         `json:"votingPeriod"`
	ProposalThreshold         *big.Int       `json:"proposalThreshold"`
	QuorumNumerator           uint64         `json:"quorumNumerator"`
	QueueGracePeriod          uint64         `json:"queueGracePeriod"`
	AbstainCountsTowardQuorum bool           `json:"abstainCountsTowardQuorum"`
}

type ProposalResponse = governor.Proposal

type ProposeRequest struct {
	From        common.Address   `json:"from"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
	Description string           `json:"description"`
}

type ProposeResponse struct {
	ID common.Hash `json:"id"`
}

type VoteRequest struct {
	From    common.Address `json:"from"`
	Support uint8          `json:"support"`
	Reason  string         `json:"reason,omitempty"`
}

type VoteResponse struct {
	Weight *big.Int `json:"weight"`
}

type HasVotedResponse struct {
	HasVoted bool `json:"hasVoted"`
}

// ProposalActionRequest drives queue, execute and cancel. Value is only
// used by execute
type ProposalActionRequest struct {
	From  common.Address `json:"from"`
	Value *big.Int       `json:"value,omitempty"`
}

type ProposalActionResponse struct {
	ID    common.Hash            `json:"id"`
	State governor.ProposalState `json:"state"`
}

type TokenResponse struct {
	Address     common.Address `json:"address"`
	Name        string         `json:"name"`
	Symbol      string         `json:"symbol"`
	Owner       common.Address `json:"owner"`
	TotalSupply *big.Int       `json:"totalSupply"`
}

type TokenAccountResponse struct {
	Token    common.Address `json:"token"`
	Account  common.Address `json:"account"`
	Balance  *big.Int       `json:"balance"`
	Delegate common.Address `json:"delegate"`
	Votes    *big.Int       `json:"votes"`
}

type PastVotesResponse struct {
	Account common.Address `json:"account"`
	Key     uint64         `json:"key"`
	Votes   *big.Int       `json:"votes"`
}

type DelegateRequest struct {
	From      common.Address `json:"from"`
	Delegatee common.Address `json:"delegatee"`
}

type TransferRequest struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

type AmountRequest struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
}

type TreasuryResponse struct {
	Address           common.Address `json:"address"`
	Owner             common.Address `json:"owner"`
	MaxTransferAmount *big.Int       `json:"maxTransferAmount"`
	Balance           *big.Int       `json:"balance"`
}

type TimelockResponse struct {
	Address     common.Address              `json:"address"`
	MinDelay    uint64                      `json:"minDelay"`
	GracePeriod uint64                      `json:"gracePeriod"`
	Roles       map[string][]common.Address `json:"roles"`
}

type OperationResponse struct {
	ID          common.Hash      `json:"id"`
	State       string           `json:"state"`
	Eta         uint64           `json:"eta"`
	Predecessor common.Hash      `json:"predecessor"`
	Salt        common.Hash      `json:"salt"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Calldatas   []hexutil.Bytes  `json:"calldatas"`
}

// CallRequest submits raw ABI calldata to any address
type CallRequest struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value,omitempty"`
	Data  hexutil.Bytes  `json:"data"`
	// Static runs the call against a read-only snapshot
	Static bool `json:"static,omitempty"`
}

type CallResponse struct {
	Result hexutil.Bytes `json:"result"`
}

type MineRequest struct {
	Blocks uint64 `json:"blocks"`
}

type IncreaseTimeRequest struct {
	Seconds uint64 `json:"seconds"`
}

type FundRequest struct {
	Address common.Address `json:"address"`
	Amount  *big.Int       `json:"amount"`
}
