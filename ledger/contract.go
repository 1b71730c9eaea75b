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

package ledger

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/event"
)

// Contract kinds
const (
	KindToken    = "token"
	KindRegistry = "registry"
	KindFactory  = "factory"
	KindTimelock = "timelock"
	KindTreasury = "treasury"
	KindGovernor = "governor"
)

// Contract is the code behind every deployed address of one kind. State
// lives in the database, so a single Contract value serves all instances
type Contract interface {
	Kind() string
	ABI() *abi.ABI
	// Invoke runs a decoded method call and returns its outputs in ABI order
	Invoke(call *CallContext, method *abi.Method, args []any) ([]any, error)
}

// Receiver is implemented by contracts that accept plain value transfers
type Receiver interface {
	Receive(call *CallContext) error
}

// CallContext describes a single call frame
type CallContext struct {
	Tx     *Tx
	Self   common.Address
	Caller common.Address
	Value  *big.Int
}

// Sub returns a frame for a direct call from this contract into another
// one without moving value
func (c *CallContext) Sub(target common.Address) *CallContext {
	return &CallContext{
		Tx:     c.Tx,
		Self:   target,
		Caller: c.Self,
		Value:  new(big.Int),
	}
}

// Emit records an event with this contract as the emitter
func (c *CallContext) Emit(eventType event.EventType, data any) {
	c.Tx.Emit(c.Self, eventType, data)
}

var (
	contracts   = map[string]Contract{}
	contractsMu sync.RWMutex
)

// RegisterContract makes a contract kind available for dispatch. It is
// normally called from init()
func RegisterContract(c Contract) {
	contractsMu.Lock()
	defer contractsMu.Unlock()
	contracts[c.Kind()] = c
}

// GetContract returns the registered contract for a kind
func GetContract(kind string) (Contract, error) {
	contractsMu.RLock()
	defer contractsMu.RUnlock()
	c, ok := contracts[kind]
	if !ok {
		return nil, fmt.Errorf("no contract registered for kind '%s'", kind)
	}
	return c, nil
}

// Single wraps a one-value result as ABI outputs
func Single[T any](v T, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	return []any{v}, nil
}

// Args is a helper for reading decoded ABI arguments by position
type Args []any

func (a Args) Address(i int) common.Address {
	v, _ := a[i].(common.Address)
	return v
}

func (a Args) Addresses(i int) []common.Address {
	v, _ := a[i].([]common.Address)
	return v
}

func (a Args) Uint64(i int) uint64 {
	v, _ := a[i].(uint64)
	return v
}

func (a Args) Uint8(i int) uint8 {
	v, _ := a[i].(uint8)
	return v
}

func (a Args) Big(i int) *big.Int {
	v, _ := a[i].(*big.Int)
	if v == nil {
		return new(big.Int)
	}
	return v
}

func (a Args) Bigs(i int) []*big.Int {
	v, _ := a[i].([]*big.Int)
	return v
}

func (a Args) Bytes(i int) []byte {
	v, _ := a[i].([]byte)
	return v
}

func (a Args) BytesSlice(i int) [][]byte {
	v, _ := a[i].([][]byte)
	return v
}

func (a Args) Hash(i int) common.Hash {
	v, _ := a[i].([32]byte)
	return common.Hash(v)
}

func (a Args) String(i int) string {
	v, _ := a[i].(string)
	return v
}

func (a Args) Bool(i int) bool {
	v, _ := a[i].(bool)
	return v
}
