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

package factory

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/blinklabs-io/circles/ledger"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"registry","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"createCircle","stateMutability":"nonpayable","inputs":[
		{"name":"parentId","type":"uint64"},
		{"name":"name","type":"string"},
		{"name":"token","type":"address"},
		{"name":"votingDelay","type":"uint64"},
		{"name":"votingPeriod","type":"uint64"},
		{"name":"proposalThreshold","type":"uint256"},
		{"name":"quorumNumerator","type":"uint64"},
		{"name":"timelockDelay","type":"uint64"}
	],"outputs":[
		{"name":"id","type":"uint64"},
		{"name":"governor","type":"address"},
		{"name":"timelock","type":"address"},
		{"name":"treasury","type":"address"}
	]}
]`)

// PackCreateCircle encodes createCircle calldata, as used in proposal
// payloads that spawn child circles
func PackCreateCircle(p Params) ([]byte, error) {
	threshold := p.ProposalThreshold
	if threshold == nil {
		threshold = new(big.Int)
	}
	return ABI.Pack(
		"createCircle",
		p.ParentID,
		p.Name,
		p.Token,
		p.VotingDelay,
		p.VotingPeriod,
		threshold,
		p.QuorumNumerator,
		p.TimelockDelay,
	)
}

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindFactory
}

func (Contract) ABI() *abi.ABI {
	return ABI
}

func (Contract) Invoke(
	call *ledger.CallContext,
	method *abi.Method,
	args []any,
) ([]any, error) {
	a := ledger.Args(args)
	switch method.Name {
	case "registry":
		return ledger.Single(Registry(call.Tx, call.Self))
	case "createCircle":
		res, err := CreateCircle(call, Params{
			ParentID:          a.Uint64(0),
			Name:              a.String(1),
			Token:             a.Address(2),
			VotingDelay:       a.Uint64(3),
			VotingPeriod:      a.Uint64(4),
			ProposalThreshold: a.Big(5),
			QuorumNumerator:   a.Uint64(6),
			TimelockDelay:     a.Uint64(7),
		})
		if err != nil {
			return nil, err
		}
		return []any{res.ID, res.Governor, res.Timelock, res.Treasury}, nil
	}
	return nil, ledger.ErrUnknownSelector
}
