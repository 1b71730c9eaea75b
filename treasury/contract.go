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

package treasury

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/blinklabs-io/circles/ledger"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"maxTransferAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setMaxTransferAmount","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"transferETH","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"receive","stateMutability":"payable"}
]`)

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindTreasury
}

func (Contract) ABI() *abi.ABI {
	return ABI
}

func (Contract) Receive(call *ledger.CallContext) error {
	return Deposit(call)
}

func (Contract) Invoke(
	call *ledger.CallContext,
	method *abi.Method,
	args []any,
) ([]any, error) {
	a := ledger.Args(args)
	tx := call.Tx
	switch method.Name {
	case "owner", "maxTransferAmount":
		t, err := Get(tx, call.Self)
		if err != nil {
			return nil, err
		}
		if method.Name == "owner" {
			return []any{t.Owner}, nil
		}
		return []any{t.MaxTransferAmount.Big()}, nil
	case "balance":
		return ledger.Single(tx.Balance(call.Self))
	case "setMaxTransferAmount":
		return nil, SetMaxTransferAmount(call, a.Big(0))
	case "transferETH":
		return nil, TransferETH(call, a.Address(0), a.Big(1))
	case "deposit":
		return nil, Deposit(call)
	}
	return nil, ledger.ErrUnknownSelector
}
