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

package treasury_test

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
	"github.com/blinklabs-io/circles/treasury"
)

var (
	deployer  = testutil.Address(1)
	timelock  = testutil.Address(2)
	recipient = testutil.Address(3)
)

func setup(t *testing.T) (*ledger.LedgerState, common.Address) {
	t.Helper()
	ls := testutil.NewLedger(t)
	var addr common.Address
	testutil.Submit(t, ls, deployer, func(tx *ledger.Tx) error {
		var err error
		addr, err = treasury.Deploy(tx, deployer, timelock, nil)
		return err
	})
	require.NoError(t, ls.Fund(context.Background(), deployer, testutil.Ether(t, "10")))
	_, err := ls.Send(context.Background(), deployer, addr, testutil.Ether(t, "5"), nil)
	require.NoError(t, err)
	return ls, addr
}

func send(
	ls *ledger.LedgerState,
	from common.Address,
	addr common.Address,
	method string,
	args ...any,
) error {
	data, err := treasury.ABI.Pack(method, args...)
	if err != nil {
		return err
	}
	_, err = ls.Send(context.Background(), from, addr, nil, data)
	return err
}

func balance(t *testing.T, ls *ledger.LedgerState, addr common.Address) *big.Int {
	t.Helper()
	var ret *big.Int
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		var err error
		ret, err = tx.Balance(addr)
		return err
	})
	return ret
}

func TestTransferCap(t *testing.T) {
	ls, addr := setup(t)
	require.NoError(t, send(ls, timelock, addr, "setMaxTransferAmount", testutil.Ether(t, "1")))

	err := send(ls, timelock, addr, "transferETH", recipient, testutil.Ether(t, "2"))
	require.ErrorIs(t, err, treasury.ErrEthTransferLimit)
	assert.Equal(t, ledger.KindResource, ledger.KindOf(err))

	before := balance(t, ls, recipient)
	require.NoError(t, send(ls, timelock, addr, "transferETH", recipient, testutil.Ether(t, "0.5")))
	after := balance(t, ls, recipient)
	assert.Equal(t, testutil.Ether(t, "0.5").String(), new(big.Int).Sub(after, before).String())
	assert.Equal(t, testutil.Ether(t, "4.5").String(), balance(t, ls, addr).String())

	// The cap is inclusive
	require.NoError(t, send(ls, timelock, addr, "transferETH", recipient, testutil.Ether(t, "1")))
}

func TestUnlimitedCapStillNeedsFunds(t *testing.T) {
	ls, addr := setup(t)
	err := send(ls, timelock, addr, "transferETH", recipient, testutil.Ether(t, "6"))
	require.ErrorIs(t, err, treasury.ErrInsufficientFunds)
	require.NoError(t, send(ls, timelock, addr, "transferETH", recipient, testutil.Ether(t, "5")))
	assert.Equal(t, 0, balance(t, ls, addr).Sign())
}

func TestOwnerOnly(t *testing.T) {
	ls, addr := setup(t)
	err := send(ls, recipient, addr, "setMaxTransferAmount", big.NewInt(1))
	require.ErrorIs(t, err, treasury.ErrUnauthorized)
	assert.Equal(t, ledger.KindAuthorization, ledger.KindOf(err))
	err = send(ls, recipient, addr, "transferETH", recipient, big.NewInt(1))
	require.ErrorIs(t, err, treasury.ErrUnauthorized)
}

func TestDepositsAreUncapped(t *testing.T) {
	ls, addr := setup(t)
	require.NoError(t, send(ls, timelock, addr, "setMaxTransferAmount", testutil.Ether(t, "1")))
	_, err := ls.Send(context.Background(), deployer, addr, testutil.Ether(t, "3"), nil)
	require.NoError(t, err)
	data, err := treasury.ABI.Pack("deposit")
	require.NoError(t, err)
	_, err = ls.Send(context.Background(), deployer, addr, testutil.Ether(t, "1"), data)
	require.NoError(t, err)
	assert.Equal(t, testutil.Ether(t, "9").String(), balance(t, ls, addr).String())

	evts, err := ls.Events(context.Background(), 0, 0)
	require.NoError(t, err)
	deposits := 0
	for _, rec := range evts {
		if rec.Type == string(event.DepositEventType) {
			deposits++
		}
	}
	assert.Equal(t, 3, deposits)
}
