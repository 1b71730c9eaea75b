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

package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	BlockMinedEventType               EventType = "BlockMined"
	CircleRegisteredEventType         EventType = "CircleRegistered"
	FactorySetEventType               EventType = "FactorySet"
	ProposalCreatedEventType          EventType = "ProposalCreated"
	VoteCastEventType                 EventType = "VoteCast"
	ProposalQueuedEventType           EventType = "ProposalQueued"
	ProposalExecutedEventType         EventType = "ProposalExecuted"
	ProposalCanceledEventType         EventType = "ProposalCanceled"
	GovernorSettingChangedEventType   EventType = "GovernorSettingChanged"
	DelegateChangedEventType          EventType = "DelegateChanged"
	DelegateVotesChangedEventType     EventType = "DelegateVotesChanged"
	TransferEventType                 EventType = "Transfer"
	CallScheduledEventType            EventType = "CallScheduled"
	CallExecutedEventType             EventType = "CallExecuted"
	CancelledEventType                EventType = "Cancelled"
	RoleGrantedEventType              EventType = "RoleGranted"
	RoleRevokedEventType              EventType = "RoleRevoked"
	MinDelayChangeEventType           EventType = "MinDelayChange"
	MaxTransferAmountUpdatedEventType EventType = "MaxTransferAmountUpdated"
	EthTransferredEventType           EventType = "EthTransferred"
	DepositEventType                  EventType = "Deposit"
)

// LedgerEventTypes lists every event type emitted by the ledger
var LedgerEventTypes = []EventType{
	BlockMinedEventType,
	CircleRegisteredEventType,
	FactorySetEventType,
	ProposalCreatedEventType,
	VoteCastEventType,
	ProposalQueuedEventType,
	ProposalExecutedEventType,
	ProposalCanceledEventType,
	GovernorSettingChangedEventType,
	DelegateChangedEventType,
	DelegateVotesChangedEventType,
	TransferEventType,
	CallScheduledEventType,
	CallExecutedEventType,
	CancelledEventType,
	RoleGrantedEventType,
	RoleRevokedEventType,
	MinDelayChangeEventType,
	MaxTransferAmountUpdatedEventType,
	EthTransferredEventType,
	DepositEventType,
}

// LedgerEvent is the envelope of every event emitted by a committed ledger
// transaction. Seq is the position in the persistent event log
type LedgerEvent struct {
	Seq     uint64         `json:"seq"`
	Height  uint64         `json:"height"`
	Emitter common.Address `json:"emitter"`
	Data    any            `json:"data"`
}

type BlockMinedEvent struct {
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"`
}

type CircleRegisteredEvent struct {
	ID       uint64         `json:"id"`
	ParentID uint64         `json:"parentId"`
	Name     string         `json:"name"`
	Governor common.Address `json:"governor"`
	Timelock common.Address `json:"timelock"`
	Treasury common.Address `json:"treasury"`
	Token    common.Address `json:"token"`
}

type FactorySetEvent struct {
	Factory common.Address `json:"factory"`
}

type ProposalCreatedEvent struct {
	ProposalID  common.Hash      `json:"proposalId"`
	Proposer    common.Address   `json:"proposer"`
	Targets     []common.Address `json:"targets"`
	Values      []*big.Int       `json:"values"`
	Calldatas   []string         `json:"calldatas"`
	VoteStart   uint64           `json:"voteStart"`
	VoteEnd     uint64           `json:"voteEnd"`
	Description string           `json:"description"`
}

type VoteCastEvent struct {
	Voter      common.Address `json:"voter"`
	ProposalID common.Hash    `json:"proposalId"`
	Support    uint8          `json:"support"`
	Weight     *big.Int       `json:"weight"`
	Reason     string         `json:"reason"`
}

type ProposalQueuedEvent struct {
	ProposalID common.Hash `json:"proposalId"`
	Eta        uint64      `json:"eta"`
}

type ProposalExecutedEvent struct {
	ProposalID common.Hash `json:"proposalId"`
}

type ProposalCanceledEvent struct {
	ProposalID common.Hash `json:"proposalId"`
}

type GovernorSettingChangedEvent struct {
	Setting  string `json:"setting"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

type DelegateChangedEvent struct {
	Delegator    common.Address `json:"delegator"`
	FromDelegate common.Address `json:"fromDelegate"`
	ToDelegate   common.Address `json:"toDelegate"`
}

type DelegateVotesChangedEvent struct {
	Delegate      common.Address `json:"delegate"`
	PreviousVotes *big.Int       `json:"previousVotes"`
	NewVotes      *big.Int       `json:"newVotes"`
}

type TransferEvent struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

type CallScheduledEvent struct {
	OperationID common.Hash    `json:"id"`
	Index       int            `json:"index"`
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value"`
	Data        string         `json:"data"`
	Predecessor common.Hash    `json:"predecessor"`
	Delay       uint64         `json:"delay"`
}

type CallExecutedEvent struct {
	OperationID common.Hash    `json:"id"`
	Index       int            `json:"index"`
	Target      common.Address `json:"target"`
	Value       *big.Int       `json:"value"`
	Data        string         `json:"data"`
}

type CancelledEvent struct {
	OperationID common.Hash `json:"id"`
}

type RoleGrantedEvent struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

type RoleRevokedEvent struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

type MinDelayChangeEvent struct {
	OldDuration uint64 `json:"oldDuration"`
	NewDuration uint64 `json:"newDuration"`
}

type MaxTransferAmountUpdatedEvent struct {
	OldAmount *big.Int `json:"oldAmount"`
	NewAmount *big.Int `json:"newAmount"`
}

type EthTransferredEvent struct {
	To     common.Address `json:"to"`
	Amount *big.Int       `json:"amount"`
}

type DepositEvent struct {
	From   common.Address `json:"from"`
	Amount *big.Int       `json:"amount"`
}
