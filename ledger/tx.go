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
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
)

const maxCallDepth = 64

// Head is the open block that transactions execute in
type Head struct {
	Height uint64
	Time   uint64
}

type pendingEvent struct {
	Emitter common.Address
	Type    event.EventType
	Data    any
}

// Tx is a single ledger transaction. All reads and writes made through it
// share one database transaction
type Tx struct {
	ctx    context.Context
	state  *LedgerState
	txn    *database.Txn
	origin common.Address
	head   Head
	events []pendingEvent
	depth  int
}

func (t *Tx) Context() context.Context {
	return t.ctx
}

func (t *Tx) Txn() *database.Txn {
	return t.txn
}

func (t *Tx) DB() *database.Database {
	return t.state.db
}

// Metadata returns the metadata store together with the handle to pass to it
func (t *Tx) Metadata() (MetadataStore, types.Txn) {
	return t.state.db.Metadata(), t.txn.Metadata()
}

// Origin is the account that submitted the transaction
func (t *Tx) Origin() common.Address {
	return t.origin
}

// Height is the ordering key of the head block
func (t *Tx) Height() uint64 {
	return t.head.Height
}

// Time is the timestamp of the head block in seconds
func (t *Tx) Time() uint64 {
	return t.head.Time
}

func (t *Tx) ReadWrite() bool {
	return t.txn.ReadWrite()
}

// Emit records an event to be persisted and published when the
// transaction commits
func (t *Tx) Emit(emitter common.Address, eventType event.EventType, data any) {
	t.events = append(t.events, pendingEvent{
		Emitter: emitter,
		Type:    eventType,
		Data:    data,
	})
}

// Balance returns the native balance of an address
func (t *Tx) Balance(addr common.Address) (*big.Int, error) {
	acct, err := t.account(addr)
	if err != nil {
		return nil, err
	}
	return acct.Balance.Big(), nil
}

func (t *Tx) account(addr common.Address) (*models.Account, error) {
	ms, txn := t.Metadata()
	acct, err := ms.GetAccount(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return &models.Account{
				Address: addr,
				Balance: types.NewBigInt(nil),
			}, nil
		}
		return nil, err
	}
	return acct, nil
}

func (t *Tx) addBalance(addr common.Address, delta *big.Int) error {
	acct, err := t.account(addr)
	if err != nil {
		return err
	}
	bal := acct.Balance.Big()
	bal.Add(bal, delta)
	if bal.Sign() < 0 {
		return ErrInsufficientNativeBalance
	}
	acct.Balance = types.NewBigInt(bal)
	ms, txn := t.Metadata()
	return ms.SetAccount(acct, txn)
}

// Mint credits native value out of thin air. It backs the dev faucet
func (t *Tx) Mint(addr common.Address, amount *big.Int) error {
	if !t.ReadWrite() {
		return ErrReadOnly
	}
	if amount.Sign() < 0 {
		return ErrInvalidCalldata
	}
	return t.addBalance(addr, amount)
}

// Transfer moves native value between two addresses without running any
// receive hook
func (t *Tx) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if !t.ReadWrite() {
		return ErrReadOnly
	}
	if amount.Sign() < 0 {
		return ErrInvalidCalldata
	}
	if err := t.addBalance(from, new(big.Int).Neg(amount)); err != nil {
		return err
	}
	return t.addBalance(to, amount)
}

// ContractKind returns the kind deployed at an address, or an empty string
// for plain accounts
func (t *Tx) ContractKind(addr common.Address) (string, error) {
	ms, txn := t.Metadata()
	c, err := ms.GetContract(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return c.Kind, nil
}

// Deploy creates a contract of the given kind at the next CREATE address
// of the deployer
func (t *Tx) Deploy(deployer common.Address, kind string) (common.Address, error) {
	if !t.ReadWrite() {
		return common.Address{}, ErrReadOnly
	}
	if _, err := GetContract(kind); err != nil {
		return common.Address{}, err
	}
	acct, err := t.account(deployer)
	if err != nil {
		return common.Address{}, err
	}
	addr := crypto.CreateAddress(deployer, acct.Nonce)
	acct.Nonce++
	ms, txn := t.Metadata()
	if err := ms.SetAccount(acct, txn); err != nil {
		return common.Address{}, err
	}
	if err := ms.AddContract(
		&models.Contract{
			Address:  addr,
			Kind:     kind,
			Deployer: deployer,
			Height:   t.head.Height,
		},
		txn,
	); err != nil {
		return common.Address{}, fmt.Errorf("record contract: %w", err)
	}
	return addr, nil
}

// NewCall moves value into a contract and returns the call frame for a
// typed invocation of one of its operations
func (t *Tx) NewCall(
	from, to common.Address,
	value *big.Int,
) (*CallContext, error) {
	if value == nil {
		value = new(big.Int)
	}
	if err := t.Transfer(from, to, value); err != nil {
		return nil, err
	}
	return &CallContext{Tx: t, Self: to, Caller: from, Value: value}, nil
}

// Call moves value and dispatches ABI calldata to the contract at the
// target address. Calls to plain accounts only move value
func (t *Tx) Call(
	from, to common.Address,
	value *big.Int,
	data []byte,
) ([]byte, error) {
	if t.depth >= maxCallDepth {
		return nil, ErrCallDepthExceeded
	}
	t.depth++
	defer func() { t.depth-- }()
	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	kind, err := t.ContractKind(to)
	if err != nil {
		return nil, err
	}
	if err := t.Transfer(from, to, value); err != nil {
		return nil, err
	}
	if kind == "" {
		return nil, nil
	}
	contract, err := GetContract(kind)
	if err != nil {
		return nil, err
	}
	call := &CallContext{Tx: t, Self: to, Caller: from, Value: value}
	if len(data) == 0 {
		recv, ok := contract.(Receiver)
		if !ok {
			return nil, ErrReceiveRejected
		}
		return nil, recv.Receive(call)
	}
	if len(data) < 4 {
		return nil, ErrUnknownSelector
	}
	method, err := contract.ABI().MethodById(data[:4])
	if err != nil {
		return nil, ErrUnknownSelector
	}
	if value.Sign() > 0 && !method.IsPayable() {
		return nil, ErrNonPayable
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCalldata, err)
	}
	outs, err := contract.Invoke(call, method, args)
	if err != nil {
		return nil, err
	}
	ret, err := method.Outputs.Pack(outs...)
	if err != nil {
		return nil, fmt.Errorf("encode %s outputs: %w", method.Name, err)
	}
	return ret, nil
}

// SendValue moves native value and runs the receive hook when the target
// is a contract
func (t *Tx) SendValue(from, to common.Address, value *big.Int) error {
	_, err := t.Call(from, to, value, nil)
	return err
}
