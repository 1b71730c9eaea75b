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

// Package timelock implements the delayed execution queue of a circle.
// Batches of calls are scheduled by proposers and run by executors once
// their delay has passed
package timelock

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

// DefaultGracePeriod is how long a ready operation stays executable
const DefaultGracePeriod = 14 * 24 * 60 * 60

var (
	ErrMissingRole            = ledger.NewError(ledger.KindAuthorization, "MissingRole")
	ErrUnauthorizedCaller     = ledger.NewError(ledger.KindAuthorization, "UnauthorizedCaller")
	ErrBadConfirmation        = ledger.NewError(ledger.KindInvalid, "BadConfirmation")
	ErrInvalidRole            = ledger.NewError(ledger.KindInvalid, "InvalidRole")
	ErrInvalidOperationLength = ledger.NewError(ledger.KindInvalid, "InvalidOperationLength")
	ErrInsufficientDelay      = ledger.NewError(ledger.KindInvalid, "InsufficientDelay")
	ErrAlreadyScheduled       = ledger.NewError(ledger.KindPrecondition, "AlreadyScheduled")
	ErrNotReady               = ledger.NewError(ledger.KindPrecondition, "NotReady")
	ErrNotPending             = ledger.NewError(ledger.KindPrecondition, "NotPending")
	ErrOperationExpired       = ledger.NewError(ledger.KindPrecondition, "OperationExpired")
	ErrMissingDependency      = ledger.NewError(ledger.KindPrecondition, "MissingDependency")
	ErrTimelockNotFound       = ledger.NewError(ledger.KindLookup, "TimelockNotFound")
)

// OperationState is derived from the stored operation and the head time
type OperationState uint8

const (
	OperationUnset OperationState = iota
	OperationWaiting
	OperationReady
	OperationDone
	OperationCanceled
	OperationExpired
)

func (s OperationState) String() string {
	switch s {
	case OperationUnset:
		return "Unset"
	case OperationWaiting:
		return "Waiting"
	case OperationReady:
		return "Ready"
	case OperationDone:
		return "Done"
	case OperationCanceled:
		return "Canceled"
	case OperationExpired:
		return "Expired"
	default:
		return fmt.Sprintf("OperationState(%d)", uint8(s))
	}
}

// Pending reports whether the operation can still be executed or canceled
func (s OperationState) Pending() bool {
	return s == OperationWaiting || s == OperationReady
}

// Config describes a new timelock
type Config struct {
	MinDelay    uint64
	GracePeriod uint64
	// Admin administers roles. The zero address makes the timelock
	// administer itself
	Admin      common.Address
	Proposers  []common.Address
	Executors  []common.Address
	Cancellers []common.Address
}

// Deploy creates a timelock and assigns its initial roles
func Deploy(
	tx *ledger.Tx,
	deployer common.Address,
	cfg Config,
) (common.Address, error) {
	addr, err := tx.Deploy(deployer, ledger.KindTimelock)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetTimelock(
		&models.Timelock{
			Address:     addr,
			MinDelay:    cfg.MinDelay,
			GracePeriod: cfg.GracePeriod,
		},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	admin := cfg.Admin
	if admin == (common.Address{}) {
		admin = addr
	}
	if err := grant(tx, addr, RoleAdmin, admin, deployer); err != nil {
		return common.Address{}, err
	}
	assignments := []struct {
		role    Role
		members []common.Address
	}{
		{RoleProposer, cfg.Proposers},
		{RoleExecutor, cfg.Executors},
		{RoleCanceller, cfg.Cancellers},
	}
	for _, a := range assignments {
		for _, member := range a.members {
			if err := grant(tx, addr, a.role, member, deployer); err != nil {
				return common.Address{}, err
			}
		}
	}
	tx.Emit(
		addr,
		event.MinDelayChangeEventType,
		event.MinDelayChangeEvent{NewDuration: cfg.MinDelay},
	)
	return addr, nil
}

// Get returns the timelock record at an address
func Get(tx *ledger.Tx, addr common.Address) (*models.Timelock, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetTimelock(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrTimelockNotFound
		}
		return nil, err
	}
	return ret, nil
}

func MinDelay(tx *ledger.Tx, addr common.Address) (uint64, error) {
	tl, err := Get(tx, addr)
	if err != nil {
		return 0, err
	}
	return tl.MinDelay, nil
}

// HashOperationBatch returns the id of a batch operation
func HashOperationBatch(
	batch ledger.Batch,
	predecessor common.Hash,
	salt common.Hash,
) (common.Hash, error) {
	return ledger.HashBatch(batch, predecessor, salt)
}

// GetOperation returns a stored operation, or nil when it was never
// scheduled
func GetOperation(
	tx *ledger.Tx,
	timelock common.Address,
	id common.Hash,
) (*models.TimelockOperation, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetTimelockOperation(timelock, id, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ret, nil
}

// GetOperationCalls returns the calls of a stored operation in order
func GetOperationCalls(
	tx *ledger.Tx,
	timelock common.Address,
	id common.Hash,
) (ledger.Batch, error) {
	ms, txn := tx.Metadata()
	rows, err := ms.GetTimelockCalls(timelock, id, txn)
	if err != nil {
		return ledger.Batch{}, err
	}
	ret := ledger.Batch{}
	for _, row := range rows {
		ret.Targets = append(ret.Targets, row.Target)
		ret.Values = append(ret.Values, row.Value.Big())
		ret.Calldatas = append(ret.Calldatas, row.Payload)
	}
	return ret, nil
}

func operationState(
	tx *ledger.Tx,
	tl *models.Timelock,
	op *models.TimelockOperation,
) OperationState {
	switch {
	case op == nil:
		return OperationUnset
	case op.Executed:
		return OperationDone
	case op.Canceled:
		return OperationCanceled
	case tx.Time() < op.Eta:
		return OperationWaiting
	case tl.GracePeriod > 0 && tx.Time() > op.Eta+tl.GracePeriod:
		return OperationExpired
	default:
		return OperationReady
	}
}

// GetOperationState returns the state of an operation at the head time
func GetOperationState(
	tx *ledger.Tx,
	timelock common.Address,
	id common.Hash,
) (OperationState, error) {
	tl, err := Get(tx, timelock)
	if err != nil {
		return OperationUnset, err
	}
	op, err := GetOperation(tx, timelock, id)
	if err != nil {
		return OperationUnset, err
	}
	return operationState(tx, tl, op), nil
}

// GetTimestamp returns the eta of an operation, or zero when unset
func GetTimestamp(
	tx *ledger.Tx,
	timelock common.Address,
	id common.Hash,
) (uint64, error) {
	op, err := GetOperation(tx, timelock, id)
	if err != nil || op == nil {
		return 0, err
	}
	return op.Eta, nil
}

// ScheduleBatch queues a batch that becomes executable after delay seconds
func ScheduleBatch(
	call *ledger.CallContext,
	batch ledger.Batch,
	predecessor common.Hash,
	salt common.Hash,
	delay uint64,
) (common.Hash, error) {
	tx := call.Tx
	if err := checkRole(call, RoleProposer); err != nil {
		return common.Hash{}, err
	}
	if batch.Len() < 0 {
		return common.Hash{}, ErrInvalidOperationLength
	}
	tl, err := Get(tx, call.Self)
	if err != nil {
		return common.Hash{}, err
	}
	if delay < tl.MinDelay {
		return common.Hash{}, ErrInsufficientDelay
	}
	id, err := HashOperationBatch(batch, predecessor, salt)
	if err != nil {
		return common.Hash{}, err
	}
	existing, err := GetOperation(tx, call.Self, id)
	if err != nil {
		return common.Hash{}, err
	}
	if existing != nil && !existing.Canceled {
		return common.Hash{}, ErrAlreadyScheduled
	}
	op := &models.TimelockOperation{
		Timelock:    call.Self,
		OperationID: id,
		Predecessor: predecessor,
		Salt:        salt,
		Eta:         tx.Time() + delay,
		Height:      tx.Height(),
	}
	calls := make([]models.TimelockCall, 0, len(batch.Targets))
	for i := range batch.Targets {
		value := batch.Values[i]
		if value == nil {
			value = new(big.Int)
		}
		calls = append(calls, models.TimelockCall{
			Timelock:    call.Self,
			OperationID: id,
			Idx:         uint32(i), //nolint:gosec
			Target:      batch.Targets[i],
			Value:       types.NewBigInt(value),
			Payload:     batch.Calldatas[i],
		})
		call.Emit(
			event.CallScheduledEventType,
			event.CallScheduledEvent{
				OperationID: id,
				Index:       i,
				Target:      batch.Targets[i],
				Value:       value,
				Data:        hexutil.Encode(batch.Calldatas[i]),
				Predecessor: predecessor,
				Delay:       delay,
			},
		)
	}
	ms, txn := tx.Metadata()
	if err := ms.SetTimelockOperation(op, calls, txn); err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// ExecuteBatch runs a ready batch. Calls run in order as the timelock and
// any failure fails the whole batch
func ExecuteBatch(
	call *ledger.CallContext,
	batch ledger.Batch,
	predecessor common.Hash,
	salt common.Hash,
) error {
	tx := call.Tx
	if err := checkRole(call, RoleExecutor); err != nil {
		return err
	}
	if batch.Len() < 0 {
		return ErrInvalidOperationLength
	}
	id, err := HashOperationBatch(batch, predecessor, salt)
	if err != nil {
		return err
	}
	if err := checkReady(tx, call.Self, id); err != nil {
		return err
	}
	if predecessor != (common.Hash{}) {
		state, err := GetOperationState(tx, call.Self, predecessor)
		if err != nil {
			return err
		}
		if state != OperationDone {
			return ErrMissingDependency
		}
	}
	for i, target := range batch.Targets {
		value := batch.Values[i]
		if value == nil {
			value = new(big.Int)
		}
		if _, err := tx.Call(
			call.Self,
			target,
			value,
			batch.Calldatas[i],
		); err != nil {
			return fmt.Errorf("call %d to %s: %w", i, target.Hex(), err)
		}
		call.Emit(
			event.CallExecutedEventType,
			event.CallExecutedEvent{
				OperationID: id,
				Index:       i,
				Target:      target,
				Value:       value,
				Data:        hexutil.Encode(batch.Calldatas[i]),
			},
		)
	}
	// A call may have executed or canceled this operation
	if err := checkReady(tx, call.Self, id); err != nil {
		return err
	}
	op, err := GetOperation(tx, call.Self, id)
	if err != nil {
		return err
	}
	op.Executed = true
	ms, txn := tx.Metadata()
	return ms.SetTimelockOperation(op, nil, txn)
}

func checkReady(tx *ledger.Tx, timelock common.Address, id common.Hash) error {
	state, err := GetOperationState(tx, timelock, id)
	if err != nil {
		return err
	}
	switch state {
	case OperationReady:
		return nil
	case OperationExpired:
		return ErrOperationExpired
	default:
		return fmt.Errorf("%w: operation is %s", ErrNotReady, state)
	}
}

// Cancel stops a pending operation. It can be scheduled again afterwards
func Cancel(call *ledger.CallContext, id common.Hash) error {
	tx := call.Tx
	if err := checkRole(call, RoleCanceller); err != nil {
		return err
	}
	tl, err := Get(tx, call.Self)
	if err != nil {
		return err
	}
	op, err := GetOperation(tx, call.Self, id)
	if err != nil {
		return err
	}
	if !operationState(tx, tl, op).Pending() {
		return ErrNotPending
	}
	op.Canceled = true
	ms, txn := tx.Metadata()
	if err := ms.SetTimelockOperation(op, nil, txn); err != nil {
		return err
	}
	call.Emit(event.CancelledEventType, event.CancelledEvent{OperationID: id})
	return nil
}

// UpdateDelay changes the minimum delay. Only the timelock itself may call
// it, so changes go through a scheduled operation
func UpdateDelay(call *ledger.CallContext, newDelay uint64) error {
	if call.Caller != call.Self {
		return ErrUnauthorizedCaller
	}
	tl, err := Get(call.Tx, call.Self)
	if err != nil {
		return err
	}
	prev := tl.MinDelay
	tl.MinDelay = newDelay
	ms, txn := call.Tx.Metadata()
	if err := ms.SetTimelock(tl, txn); err != nil {
		return err
	}
	call.Emit(
		event.MinDelayChangeEventType,
		event.MinDelayChangeEvent{OldDuration: prev, NewDuration: newDelay},
	)
	return nil
}

// Receive accepts native value unconditionally
func Receive(call *ledger.CallContext) error {
	_, err := Get(call.Tx, call.Self)
	return err
}
