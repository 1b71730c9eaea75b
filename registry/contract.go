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

package registry

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/blinklabs-io/circles/ledger"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"factory","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"totalCircles","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"exists","stateMutability":"view","inputs":[{"name":"id","type":"uint64"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"circles","stateMutability":"view","inputs":[{"name":"id","type":"uint64"}],"outputs":[
		{"name":"id","type":"uint64"},
		{"name":"parentId","type":"uint64"},
		{"name":"governor","type":"address"},
		{"name":"timelock","type":"address"},
		{"name":"treasury","type":"address"},
		{"name":"token","type":"address"},
		{"name":"name","type":"string"}
	]},
	{"type":"function","name":"getChildren","stateMutability":"view","inputs":[{"name":"parentId","type":"uint64"}],"outputs":[{"name":"","type":"uint64[]"}]},
	{"type":"function","name":"setFactory","stateMutability":"nonpayable","inputs":[{"name":"factory","type":"address"}],"outputs":[]},
	{"type":"function","name":"registerCircle","stateMutability":"nonpayable","inputs":[
		{"name":"parentId","type":"uint64"},
		{"name":"name","type":"string"},
		{"name":"governor","type":"address"},
		{"name":"timelock","type":"address"},
		{"name":"treasury","type":"address"},
		{"name":"token","type":"address"}
	],"outputs":[{"name":"","type":"uint64"}]}
]`)

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindRegistry
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
	switch method.Name {
	case "owner":
		return ledger.Single(Owner(tx, call.Self))
	case "factory":
		return ledger.Single(Factory(tx, call.Self))
	case "totalCircles":
		return ledger.Single(TotalCircles(tx, call.Self))
	case "exists":
		return ledger.Single(Exists(tx, call.Self, a.Uint64(0)))
	case "circles":
		c, err := Get(tx, call.Self, a.Uint64(0))
		if err != nil {
			return nil, err
		}
		return []any{
			c.ID,
			c.ParentID,
			c.Governor,
			c.Timelock,
			c.Treasury,
			c.Token,
			c.Name,
		}, nil
	case "getChildren":
		children, err := Children(tx, call.Self, a.Uint64(0))
		if err != nil {
			return nil, err
		}
		ids := make([]uint64, 0, len(children))
		for _, c := range children {
			ids = append(ids, c.ID)
		}
		return []any{ids}, nil
	case "setFactory":
		return nil, SetFactory(call, a.Address(0))
	case "registerCircle":
		return ledger.Single(Register(call, Circle{
			ParentID: a.Uint64(0),
			Name:     a.String(1),
			Governor: a.Address(2),
			Timelock: a.Address(3),
			Treasury: a.Address(4),
			Token:    a.Address(5),
		}))
	}
	return nil, ledger.ErrUnknownSelector
}
