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

package timelock

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/blinklabs-io/circles/ledger"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"getMinDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"getTimestamp","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"getOperationState","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"isOperation","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationPending","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationReady","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isOperationDone","stateMutability":"view","inputs":[{"name":"id","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"hasRole","stateMutability":"view","inputs":[{"name":"role","type":"uint8"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"hashOperationBatch","stateMutability":"pure","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"payloads","type":"bytes[]"},
		{"name":"predecessor","type":"bytes32"},
		{"name":"salt","type":"bytes32"}
	],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"scheduleBatch","stateMutability":"nonpayable","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"payloads","type":"bytes[]"},
		{"name":"predecessor","type":"bytes32"},
		{"name":"salt","type":"bytes32"},
		{"name":"delay","type":"uint64"}
	],"outputs":[]},
	{"type":"function","name":"executeBatch","stateMutability":"payable","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"payloads","type":"bytes[]"},
		{"name":"predecessor","type":"bytes32"},
		{"name":"salt","type":"bytes32"}
	],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"id","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"grantRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"uint8"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"revokeRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"uint8"},{"name":"account","type":"address"}],"outputs":[]},
	{"type":"function","name":"renounceRole","stateMutability":"nonpayable","inputs":[{"name":"role","type":"uint8"},{"name":"callerConfirmation","type":"address"}],"outputs":[]},
	{"type":"function","name":"updateDelay","stateMutability":"nonpayable","inputs":[{"name":"newDelay","type":"uint64"}],"outputs":[]},
	{"type":"receive","stateMutability":"payable"}
]`)

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindTimelock
}

func (Contract) ABI() *abi.ABI {
	return ABI
}

func (Contract) Receive(call *ledger.CallContext) error {
	return Receive(call)
}

func batchArgs(a ledger.Args) ledger.Batch {
	return ledger.Batch{
		Targets:   a.Addresses(0),
		Values:    a.Bigs(1),
		Calldatas: a.BytesSlice(2),
	}
}

func (Contract) Invoke(
	call *ledger.CallContext,
	method *abi.Method,
	args []any,
) ([]any, error) {
	a := ledger.Args(args)
	tx := call.Tx
	switch method.Name {
	case "getMinDelay":
		return ledger.Single(MinDelay(tx, call.Self))
	case "getTimestamp":
		return ledger.Single(GetTimestamp(tx, call.Self, a.Hash(0)))
	case "getOperationState":
		state, err := GetOperationState(tx, call.Self, a.Hash(0))
		if err != nil {
			return nil, err
		}
		return []any{uint8(state)}, nil
	case "isOperation", "isOperationPending", "isOperationReady", "isOperationDone":
		state, err := GetOperationState(tx, call.Self, a.Hash(0))
		if err != nil {
			return nil, err
		}
		var ret bool
		switch method.Name {
		case "isOperation":
			ret = state != OperationUnset
		case "isOperationPending":
			ret = state.Pending()
		case "isOperationReady":
			ret = state == OperationReady
		case "isOperationDone":
			ret = state == OperationDone
		}
		return []any{ret}, nil
	case "hasRole":
		return ledger.Single(HasRole(tx, call.Self, Role(a.Uint8(0)), a.Address(1)))
	case "hashOperationBatch":
		id, err := HashOperationBatch(batchArgs(a), a.Hash(3), a.Hash(4))
		if err != nil {
			return nil, err
		}
		return []any{[32]byte(id)}, nil
	case "scheduleBatch":
		_, err := ScheduleBatch(call, batchArgs(a), a.Hash(3), a.Hash(4), a.Uint64(5))
		return nil, err
	case "executeBatch":
		return nil, ExecuteBatch(call, batchArgs(a), a.Hash(3), a.Hash(4))
	case "cancel":
		return nil, Cancel(call, a.Hash(0))
	case "grantRole":
		return nil, GrantRole(call, Role(a.Uint8(0)), a.Address(1))
	case "revokeRole":
		return nil, RevokeRole(call, Role(a.Uint8(0)), a.Address(1))
	case "renounceRole":
		return nil, RenounceRole(call, Role(a.Uint8(0)), a.Address(1))
	case "updateDelay":
		return nil, UpdateDelay(call, a.Uint64(0))
	}
	return nil, ledger.ErrUnknownSelector
}
