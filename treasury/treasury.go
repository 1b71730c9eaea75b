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

// Package treasury holds the funds of a circle. Only its owner, the
// circle's timelock, can move them, and never more than the transfer cap
// at once
package treasury

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

var (
	ErrUnauthorized      = ledger.NewError(ledger.KindAuthorization, "Unauthorized")
	ErrEthTransferLimit  = ledger.NewError(ledger.KindResource, "EthTransferLimit")
	ErrInsufficientFunds = ledger.NewError(ledger.KindResource, "InsufficientFunds")
	ErrTreasuryNotFound  = ledger.NewError(ledger.KindLookup, "TreasuryNotFound")
	ErrInvalidRecipient  = ledger.NewError(ledger.KindInvalid, "InvalidRecipient")
)

// Deploy creates a treasury owned by owner. A zero cap means unlimited
func Deploy(
	tx *ledger.Tx,
	deployer common.Address,
	owner common.Address,
	maxTransferAmount *big.Int,
) (common.Address, error) {
	addr, err := tx.Deploy(deployer, ledger.KindTreasury)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetTreasury(
		&models.Treasury{
			Address:           addr,
			Owner:             owner,
			MaxTransferAmount: types.NewBigInt(maxTransferAmount),
		},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Get returns the treasury record at an address
func Get(tx *ledger.Tx, addr common.Address) (*models.Treasury, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetTreasury(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrTreasuryNotFound
		}
		return nil, err
	}
	return ret, nil
}

// SetMaxTransferAmount updates the per-transfer cap. Zero means unlimited
func SetMaxTransferAmount(call *ledger.CallContext, amount *big.Int) error {
	t, err := Get(call.Tx, call.Self)
	if err != nil {
		return err
	}
	if call.Caller != t.Owner {
		return ErrUnauthorized
	}
	prev := t.MaxTransferAmount.Big()
	t.MaxTransferAmount = types.NewBigInt(amount)
	ms, txn := call.Tx.Metadata()
	if err := ms.SetTreasury(t, txn); err != nil {
		return err
	}
	call.Emit(
		event.MaxTransferAmountUpdatedEventType,
		event.MaxTransferAmountUpdatedEvent{OldAmount: prev, NewAmount: amount},
	)
	return nil
}

// TransferETH sends native funds to a recipient
func TransferETH(
	call *ledger.CallContext,
	to common.Address,
	amount *big.Int,
) error {
	tx := call.Tx
	t, err := Get(tx, call.Self)
	if err != nil {
		return err
	}
	if call.Caller != t.Owner {
		return ErrUnauthorized
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	limit := t.MaxTransferAmount.Big()
	if limit.Sign() != 0 && amount.Cmp(limit) > 0 {
		return ErrEthTransferLimit
	}
	bal, err := tx.Balance(call.Self)
	if err != nil {
		return err
	}
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if err := tx.SendValue(call.Self, to, amount); err != nil {
		return err
	}
	call.Emit(
		event.EthTransferredEventType,
		event.EthTransferredEvent{To: to, Amount: amount},
	)
	return nil
}

// Deposit records incoming funds. Deposits are never capped
func Deposit(call *ledger.CallContext) error {
	if _, err := Get(call.Tx, call.Self); err != nil {
		return err
	}
	if call.Value.Sign() == 0 {
		return nil
	}
	call.Emit(
		event.DepositEventType,
		event.DepositEvent{From: call.Caller, Amount: call.Value},
	)
	return nil
}
