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

package votes

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/blinklabs-io/circles/ledger"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"clock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"delegates","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPastVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"timepoint","type":"uint64"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPastTotalSupply","stateMutability":"view","inputs":[{"name":"timepoint","type":"uint64"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"delegate","stateMutability":"nonpayable","inputs":[{"name":"delegatee","type":"address"}],"outputs":[]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`)

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindToken
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
	tx := call.Tx
	token, err := GetToken(tx, call.Self)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "name":
		return []any{token.Name}, nil
	case "symbol":
		return []any{token.Symbol}, nil
	case "owner":
		return []any{token.Owner}, nil
	case "totalSupply":
		return []any{token.TotalSupply.Big()}, nil
	case "clock":
		return []any{tx.Height()}, nil
	case "balanceOf":
		return ledger.Single(BalanceOf(tx, call.Self, a.Address(0)))
	case "delegates":
		return ledger.Single(Delegates(tx, call.Self, a.Address(0)))
	case "getVotes":
		return ledger.Single(GetVotes(tx, call.Self, a.Address(0)))
	case "getPastVotes":
		return ledger.Single(GetPastVotes(tx, call.Self, a.Address(0), a.Uint64(1)))
	case "getPastTotalSupply":
		return ledger.Single(GetPastTotalSupply(tx, call.Self, a.Uint64(0)))
	case "delegate":
		return nil, Delegate(call, a.Address(0))
	case "transfer":
		if err := Transfer(call, a.Address(0), a.Big(1)); err != nil {
			return nil, err
		}
		return []any{true}, nil
	case "mint":
		return nil, Mint(call, a.Address(0), a.Big(1))
	}
	return nil, ledger.ErrUnknownSelector
}
