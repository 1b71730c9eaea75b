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

package votes_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/internal/test/testutil"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/votes"
)

var (
	owner = testutil.Address(1)
	alice = testutil.Address(2)
	bob   = testutil.Address(3)
	carol = testutil.Address(4)
)

func deployToken(t *testing.T, ls *ledger.LedgerState, supply int64) common.Address {
	t.Helper()
	var token common.Address
	testutil.Submit(t, ls, owner, func(tx *ledger.Tx) error {
		var err error
		token, err = votes.Deploy(tx, owner, "Circle Vote", "CV", alice, big.NewInt(supply))
		return err
	})
	return token
}

func call(
	t *testing.T,
	ls *ledger.LedgerState,
	from common.Address,
	token common.Address,
	fn func(*ledger.CallContext) error,
) error {
	t.Helper()
	return ls.Submit(context.Background(), from, func(tx *ledger.Tx) error {
		c, err := tx.NewCall(from, token, nil)
		if err != nil {
			return err
		}
		return fn(c)
	})
}

func pastVotes(t *testing.T, ls *ledger.LedgerState, token, acct common.Address, key uint64) int64 {
	t.Helper()
	var ret *big.Int
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		var err error
		ret, err = votes.GetPastVotes(tx, token, acct, key)
		return err
	})
	return ret.Int64()
}

func TestVotingPowerRequiresDelegation(t *testing.T) {
	ls := testutil.NewLedger(t)
	token := deployToken(t, ls, 100)
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		bal, err := votes.BalanceOf(tx, token, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), bal.Int64())
		v, err := votes.GetVotes(tx, token, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v.Int64())
		return nil
	})

	require.NoError(t, call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Delegate(c, alice)
	}))
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		v, err := votes.GetVotes(tx, token, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), v.Int64())
		d, err := votes.Delegates(tx, token, alice)
		require.NoError(t, err)
		assert.Equal(t, alice, d)
		return nil
	})
}

func TestPastVotesIgnoreLaterChanges(t *testing.T) {
	ls := testutil.NewLedger(t)
	// Minted in block 1
	token := deployToken(t, ls, 100)
	// Block 2
	require.NoError(t, call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Delegate(c, alice)
	}))
	// Block 3
	require.NoError(t, call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Transfer(c, bob, big.NewInt(30))
	}))
	// Block 4
	require.NoError(t, call(t, ls, bob, token, func(c *ledger.CallContext) error {
		return votes.Delegate(c, carol)
	}))
	require.Equal(t, uint64(5), ls.Head().Height)

	assert.Equal(t, int64(0), pastVotes(t, ls, token, alice, 1))
	assert.Equal(t, int64(100), pastVotes(t, ls, token, alice, 2))
	assert.Equal(t, int64(70), pastVotes(t, ls, token, alice, 3))
	assert.Equal(t, int64(70), pastVotes(t, ls, token, alice, 4))
	assert.Equal(t, int64(0), pastVotes(t, ls, token, carol, 3))
	assert.Equal(t, int64(30), pastVotes(t, ls, token, carol, 4))
	// Bob never delegated to himself
	assert.Equal(t, int64(0), pastVotes(t, ls, token, bob, 4))

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		_, err := votes.GetPastVotes(tx, token, alice, 5)
		require.ErrorIs(t, err, votes.ErrFutureLookup)
		assert.Equal(t, ledger.KindLookup, ledger.KindOf(err))
		_, err = votes.GetPastVotes(tx, token, alice, 100)
		require.ErrorIs(t, err, votes.ErrFutureLookup)
		_, err = votes.GetPastTotalSupply(tx, token, 5)
		require.ErrorIs(t, err, votes.ErrFutureLookup)
		return nil
	})
}

func TestMultipleChangesInOneBlock(t *testing.T) {
	ls := testutil.NewLedger(t)
	token := deployToken(t, ls, 100)
	require.NoError(t, call(t, ls, alice, token, func(c *ledger.CallContext) error {
		if err := votes.Delegate(c, alice); err != nil {
			return err
		}
		if err := votes.Transfer(c, bob, big.NewInt(10)); err != nil {
			return err
		}
		return votes.Transfer(c, bob, big.NewInt(15))
	}))
	testutil.Mine(t, ls, 1)
	assert.Equal(t, int64(0), pastVotes(t, ls, token, alice, 1))
	assert.Equal(t, int64(75), pastVotes(t, ls, token, alice, 2))
}

func TestTransferErrors(t *testing.T) {
	ls := testutil.NewLedger(t)
	token := deployToken(t, ls, 100)

	err := call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Transfer(c, bob, big.NewInt(101))
	})
	require.ErrorIs(t, err, votes.ErrInsufficientBalance)
	assert.Equal(t, ledger.KindResource, ledger.KindOf(err))

	err = call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Transfer(c, common.Address{}, big.NewInt(1))
	})
	require.ErrorIs(t, err, votes.ErrInvalidReceiver)

	// Self transfers keep the balance
	require.NoError(t, call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Transfer(c, alice, big.NewInt(40))
	}))
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		bal, err := votes.BalanceOf(tx, token, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), bal.Int64())
		return nil
	})
}

func TestMintOwnerOnly(t *testing.T) {
	ls := testutil.NewLedger(t)
	// Supply checkpoint at block 1
	token := deployToken(t, ls, 100)

	err := call(t, ls, alice, token, func(c *ledger.CallContext) error {
		return votes.Mint(c, alice, big.NewInt(5))
	})
	require.ErrorIs(t, err, votes.ErrUnauthorized)
	assert.Equal(t, ledger.KindAuthorization, ledger.KindOf(err))

	// Block 2
	require.NoError(t, call(t, ls, owner, token, func(c *ledger.CallContext) error {
		return votes.Mint(c, bob, big.NewInt(50))
	}))
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		supply, err := votes.TotalSupply(tx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(150), supply.Int64())
		past, err := votes.GetPastTotalSupply(tx, token, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(100), past.Int64())
		past, err = votes.GetPastTotalSupply(tx, token, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(150), past.Int64())
		return nil
	})
}

func TestContractCalldata(t *testing.T) {
	ls := testutil.NewLedger(t)
	ctx := context.Background()
	token := deployToken(t, ls, 100)
	_, delegateCh := ls.EventBus().Subscribe(event.DelegateChangedEventType)

	data, err := votes.ABI.Pack("delegate", alice)
	require.NoError(t, err)
	_, err = ls.Send(ctx, alice, token, nil, data)
	require.NoError(t, err)

	data, err = votes.ABI.Pack("transfer", bob, big.NewInt(25))
	require.NoError(t, err)
	ret, err := ls.Send(ctx, alice, token, nil, data)
	require.NoError(t, err)
	out, err := votes.ABI.Unpack("transfer", ret)
	require.NoError(t, err)
	assert.Equal(t, true, out[0])

	data, err = votes.ABI.Pack("getVotes", alice)
	require.NoError(t, err)
	ret, err = ls.StaticCall(ctx, alice, token, data)
	require.NoError(t, err)
	out, err = votes.ABI.Unpack("getVotes", ret)
	require.NoError(t, err)
	assert.Equal(t, int64(75), out[0].(*big.Int).Int64())

	data, err = votes.ABI.Pack("symbol")
	require.NoError(t, err)
	ret, err = ls.StaticCall(ctx, alice, token, data)
	require.NoError(t, err)
	out, err = votes.ABI.Unpack("symbol", ret)
	require.NoError(t, err)
	assert.Equal(t, "CV", out[0])

	evt := <-delegateCh
	le := evt.Data.(event.LedgerEvent)
	dc := le.Data.(event.DelegateChangedEvent)
	assert.Equal(t, alice, dc.Delegator)
	assert.Equal(t, alice, dc.ToDelegate)
	assert.Equal(t, token, le.Emitter)
}

func TestWritesRequireToken(t *testing.T) {
	ls := testutil.NewLedger(t)
	notToken := testutil.Address(50)

	err := call(t, ls, alice, notToken, func(c *ledger.CallContext) error {
		return votes.Delegate(c, alice)
	})
	require.ErrorIs(t, err, votes.ErrTokenNotFound)
	err = call(t, ls, alice, notToken, func(c *ledger.CallContext) error {
		return votes.Transfer(c, bob, big.NewInt(0))
	})
	require.ErrorIs(t, err, votes.ErrTokenNotFound)

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		power, err := votes.GetVotes(tx, notToken, alice)
		require.NoError(t, err)
		assert.Equal(t, "0", power.String())
		return nil
	})
}
