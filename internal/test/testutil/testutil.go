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

// Package testutil holds ledger fixtures and synchronization helpers shared
// by tests
package testutil

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

// GenesisTime is the genesis timestamp used by test ledgers
const GenesisTime = 1_700_000_000

// NewLedger returns an automining ledger on in-memory stores. Options may
// adjust the config before the ledger is created
func NewLedger(
	t *testing.T,
	opts ...func(*ledger.LedgerStateConfig),
) *ledger.LedgerState {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	cfg := ledger.LedgerStateConfig{
		Database:      db,
		EventBus:      bus,
		BlockInterval: ledger.DefaultBlockInterval,
		GenesisTime:   GenesisTime,
		Automine:      true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	ls, err := ledger.NewLedgerState(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ls.Close()
		bus.Stop()
		_ = db.Close()
	})
	return ls
}

// Address returns a deterministic test address
func Address(n uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(0x1000 + n))
}

// Submit runs fn in a ledger transaction and fails the test on error
func Submit(
	t *testing.T,
	ls *ledger.LedgerState,
	origin common.Address,
	fn func(*ledger.Tx) error,
) {
	t.Helper()
	require.NoError(t, ls.Submit(context.Background(), origin, fn))
}

// View runs fn against a read-only snapshot and fails the test on error
func View(t *testing.T, ls *ledger.LedgerState, fn func(*ledger.Tx) error) {
	t.Helper()
	require.NoError(t, ls.View(context.Background(), fn))
}

// Mine advances the ledger by count blocks
func Mine(t *testing.T, ls *ledger.LedgerState, count uint64) {
	t.Helper()
	require.NoError(t, ls.Mine(context.Background(), count))
}

// WaitForCondition polls condition until it returns true or the timeout expires
func WaitForCondition(
	t *testing.T,
	condition func() bool,
	timeout time.Duration,
	msg string,
) {
	t.Helper()
	require.Eventually(t, condition, timeout, 10*time.Millisecond, msg)
}

// RequireReceive waits for a value on the channel or fails the test
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
		var zero T
		return zero
	}
}

// Ether returns the wei value of a (possibly fractional) ether amount given
// as a decimal string
func Ether(t *testing.T, amount string) *big.Int {
	t.Helper()
	r, ok := new(big.Rat).SetString(amount)
	require.True(t, ok, "invalid ether amount %q", amount)
	r.Mul(r, new(big.Rat).SetInt(big.NewInt(1_000_000_000_000_000_000)))
	require.True(t, r.IsInt(), "ether amount %q has more than 18 decimals", amount)
	return new(big.Int).Set(r.Num())
}
