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

// Package votes implements the voting power ledger: a token whose holders
// delegate voting weight, with a checkpointed history per delegate that
// answers point-in-time queries
package votes

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

var (
	ErrInsufficientBalance = ledger.NewError(ledger.KindResource, "InsufficientBalance")
	ErrFutureLookup        = ledger.NewError(ledger.KindLookup, "FutureLookup")
	ErrInvalidReceiver     = ledger.NewError(ledger.KindInvalid, "InvalidReceiver")
	ErrUnauthorized        = ledger.NewError(ledger.KindAuthorization, "Unauthorized")
	ErrTokenNotFound       = ledger.NewError(ledger.KindLookup, "TokenNotFound")
)

// Deploy creates a token owned by the deployer and mints the initial supply
// to holder
func Deploy(
	tx *ledger.Tx,
	deployer common.Address,
	name string,
	symbol string,
	holder common.Address,
	supply *big.Int,
) (common.Address, error) {
	addr, err := tx.Deploy(deployer, ledger.KindToken)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetToken(
		&models.Token{
			Address:     addr,
			Owner:       deployer,
			Name:        name,
			Symbol:      symbol,
			TotalSupply: types.NewBigInt(nil),
		},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	if supply != nil && supply.Sign() > 0 {
		call := &ledger.CallContext{
			Tx:     tx,
			Self:   addr,
			Caller: deployer,
			Value:  new(big.Int),
		}
		if err := Mint(call, holder, supply); err != nil {
			return common.Address{}, err
		}
	}
	return addr, nil
}

// GetToken returns the token record at an address
func GetToken(tx *ledger.Tx, token common.Address) (*models.Token, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetToken(token, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return ret, nil
}

func getAccount(
	tx *ledger.Tx,
	token common.Address,
	holder common.Address,
) (*models.TokenAccount, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetTokenAccount(token, holder, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return &models.TokenAccount{
				Token:   token,
				Holder:  holder,
				Balance: types.NewBigInt(nil),
			}, nil
		}
		return nil, err
	}
	return ret, nil
}

func setAccount(tx *ledger.Tx, acct *models.TokenAccount) error {
	ms, txn := tx.Metadata()
	return ms.SetTokenAccount(acct, txn)
}

// BalanceOf returns the token balance of a holder
func BalanceOf(
	tx *ledger.Tx,
	token common.Address,
	holder common.Address,
) (*big.Int, error) {
	acct, err := getAccount(tx, token, holder)
	if err != nil {
		return nil, err
	}
	return acct.Balance.Big(), nil
}

// Delegates returns the current delegatee of a holder
func Delegates(
	tx *ledger.Tx,
	token common.Address,
	holder common.Address,
) (common.Address, error) {
	acct, err := getAccount(tx, token, holder)
	if err != nil {
		return common.Address{}, err
	}
	return acct.Delegatee, nil
}

func TotalSupply(tx *ledger.Tx, token common.Address) (*big.Int, error) {
	t, err := GetToken(tx, token)
	if err != nil {
		return nil, err
	}
	return t.TotalSupply.Big(), nil
}

// GetVotes returns the voting power currently delegated to an account
func GetVotes(
	tx *ledger.Tx,
	token common.Address,
	account common.Address,
) (*big.Int, error) {
	return tx.DB().CheckpointLatest(
		database.VotesCheckpointSeq(token, account),
		tx.Txn(),
	)
}

// GetPastVotes returns the voting power delegated to an account at the end
// of block key. The key must be in the past
func GetPastVotes(
	tx *ledger.Tx,
	token common.Address,
	account common.Address,
	key uint64,
) (*big.Int, error) {
	if key >= tx.Height() {
		return nil, ErrFutureLookup
	}
	return tx.DB().CheckpointLookup(
		database.VotesCheckpointSeq(token, account),
		key,
		tx.Txn(),
	)
}

// GetPastTotalSupply returns the total supply at the end of block key. The
// key must be in the past
func GetPastTotalSupply(
	tx *ledger.Tx,
	token common.Address,
	key uint64,
) (*big.Int, error) {
	if key >= tx.Height() {
		return nil, ErrFutureLookup
	}
	return tx.DB().CheckpointLookup(
		database.SupplyCheckpointSeq(token),
		key,
		tx.Txn(),
	)
}

// Delegate moves the caller's voting weight to delegatee
func Delegate(call *ledger.CallContext, delegatee common.Address) error {
	tx := call.Tx
	if _, err := GetToken(tx, call.Self); err != nil {
		return err
	}
	acct, err := getAccount(tx, call.Self, call.Caller)
	if err != nil {
		return err
	}
	prev := acct.Delegatee
	acct.Delegatee = delegatee
	if err := setAccount(tx, acct); err != nil {
		return err
	}
	call.Emit(
		event.DelegateChangedEventType,
		event.DelegateChangedEvent{
			Delegator:    call.Caller,
			FromDelegate: prev,
			ToDelegate:   delegatee,
		},
	)
	return moveVotingPower(call, prev, delegatee, acct.Balance.Big())
}

// Transfer moves tokens from the caller to another holder together with
// the delegated voting weight
func Transfer(
	call *ledger.CallContext,
	to common.Address,
	amount *big.Int,
) error {
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if amount.Sign() < 0 {
		return ErrInsufficientBalance
	}
	tx := call.Tx
	if _, err := GetToken(tx, call.Self); err != nil {
		return err
	}
	from, err := getAccount(tx, call.Self, call.Caller)
	if err != nil {
		return err
	}
	fromBal := from.Balance.Big()
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	from.Balance = types.NewBigInt(fromBal.Sub(fromBal, amount))
	if err := setAccount(tx, from); err != nil {
		return err
	}
	// Re-read so that a self transfer sees the debit
	dest, err := getAccount(tx, call.Self, to)
	if err != nil {
		return err
	}
	destBal := dest.Balance.Big()
	dest.Balance = types.NewBigInt(destBal.Add(destBal, amount))
	if err := setAccount(tx, dest); err != nil {
		return err
	}
	call.Emit(
		event.TransferEventType,
		event.TransferEvent{From: call.Caller, To: to, Value: amount},
	)
	return moveVotingPower(call, from.Delegatee, dest.Delegatee, amount)
}

// Mint creates new tokens. Only the token owner may mint
func Mint(call *ledger.CallContext, to common.Address, amount *big.Int) error {
	tx := call.Tx
	token, err := GetToken(tx, call.Self)
	if err != nil {
		return err
	}
	if call.Caller != token.Owner {
		return ErrUnauthorized
	}
	if to == (common.Address{}) {
		return ErrInvalidReceiver
	}
	if amount.Sign() <= 0 {
		return fmt.Errorf("%w: mint amount must be positive", ledger.ErrInvalidCalldata)
	}
	supply := token.TotalSupply.Big()
	supply.Add(supply, amount)
	token.TotalSupply = types.NewBigInt(supply)
	ms, txn := tx.Metadata()
	if err := ms.SetToken(token, txn); err != nil {
		return err
	}
	if err := tx.DB().CheckpointPush(
		database.SupplyCheckpointSeq(call.Self),
		tx.Height(),
		supply,
		tx.Txn(),
	); err != nil {
		return err
	}
	dest, err := getAccount(tx, call.Self, to)
	if err != nil {
		return err
	}
	destBal := dest.Balance.Big()
	dest.Balance = types.NewBigInt(destBal.Add(destBal, amount))
	if err := setAccount(tx, dest); err != nil {
		return err
	}
	call.Emit(
		event.TransferEventType,
		event.TransferEvent{To: to, Value: amount},
	)
	return moveVotingPower(call, common.Address{}, dest.Delegatee, amount)
}

// moveVotingPower appends a checkpoint at the current height to each
// affected delegate. The zero address has no checkpoints
func moveVotingPower(
	call *ledger.CallContext,
	from common.Address,
	to common.Address,
	amount *big.Int,
) error {
	if from == to || amount.Sign() == 0 {
		return nil
	}
	if from != (common.Address{}) {
		if err := writeCheckpoint(call, from, new(big.Int).Neg(amount)); err != nil {
			return err
		}
	}
	if to != (common.Address{}) {
		if err := writeCheckpoint(call, to, amount); err != nil {
			return err
		}
	}
	return nil
}

func writeCheckpoint(
	call *ledger.CallContext,
	delegate common.Address,
	delta *big.Int,
) error {
	tx := call.Tx
	seq := database.VotesCheckpointSeq(call.Self, delegate)
	prev, err := tx.DB().CheckpointLatest(seq, tx.Txn())
	if err != nil {
		return err
	}
	next := new(big.Int).Add(prev, delta)
	if next.Sign() < 0 {
		return fmt.Errorf("voting power of %s would become negative", delegate.Hex())
	}
	if err := tx.DB().CheckpointPush(seq, tx.Height(), next, tx.Txn()); err != nil {
		return err
	}
	call.Emit(
		event.DelegateVotesChangedEventType,
		event.DelegateVotesChangedEvent{
			Delegate:      delegate,
			PreviousVotes: prev,
			NewVotes:      next,
		},
	)
	return nil
}
