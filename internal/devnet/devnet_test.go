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

package devnet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/internal/devnet"
	"github.com/blinklabs-io/circles/internal/test/testutil"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
	"github.com/blinklabs-io/circles/timelock"
	"github.com/blinklabs-io/circles/treasury"
	"github.com/blinklabs-io/circles/votes"
)

func TestBootstrapDefault(t *testing.T) {
	ls := testutil.NewLedger(t)
	cfg := devnet.DefaultConfig()
	dep, err := devnet.Bootstrap(context.Background(), ls, cfg)
	require.NoError(t, err)
	require.NotNil(t, dep.Root)
	assert.Equal(t, uint64(1), dep.Root.ID)

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		total, err := registry.TotalCircles(tx, dep.Registry)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), total)
		root, err := registry.Get(tx, dep.Registry, 1)
		require.NoError(t, err)
		assert.Equal(t, "Root Circle", root.Name)
		assert.Equal(t, dep.Token, root.Token)

		power, err := votes.GetVotes(tx, dep.Token, devnet.DefaultDeployer)
		require.NoError(t, err)
		assert.Equal(t, cfg.Token.Supply.String(), power.String())

		// Root timelocks administer themselves
		ok, err := timelock.HasRole(tx, root.Timelock, timelock.RoleAdmin, root.Timelock)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = timelock.HasRole(tx, root.Timelock, timelock.RoleAdmin, dep.Factory)
		require.NoError(t, err)
		assert.False(t, ok)

		tr, err := treasury.Get(tx, root.Treasury)
		require.NoError(t, err)
		assert.Equal(t, root.Timelock, tr.Owner)
		return nil
	})
}

func TestLoadDevNetConfig(t *testing.T) {
	holder := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	path := filepath.Join(t.TempDir(), "devnet.yaml")
	data := []byte(`
token:
  name: Test
  symbol: TST
  supply: "5000"
  holder: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
root:
  name: Test Root
  votingDelay: 2
  votingPeriod: 20
  quorumNumerator: 10
  timelockDelay: 60
fund:
  - address: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
    amount: "123"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	cfg, err := devnet.LoadDevNetConfig(path)
	require.NoError(t, err)
	assert.Equal(t, devnet.DefaultDeployer, cfg.Deployer)
	assert.Equal(t, "TST", cfg.Token.Symbol)
	assert.Equal(t, "5000", cfg.Token.Supply.String())
	assert.Equal(t, holder, cfg.Token.Holder)
	assert.Equal(t, uint64(20), cfg.Root.VotingPeriod)
	require.Len(t, cfg.Fund, 1)
	assert.Equal(t, "123", cfg.Fund[0].Amount.String())

	ls := testutil.NewLedger(t)
	dep, err := devnet.Bootstrap(context.Background(), ls, cfg)
	require.NoError(t, err)
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		bal, err := votes.BalanceOf(tx, dep.Token, holder)
		require.NoError(t, err)
		assert.Equal(t, "5000", bal.String())
		native, err := tx.Balance(holder)
		require.NoError(t, err)
		assert.Equal(t, "123", native.String())
		tl, err := timelock.MinDelay(tx, dep.Root.Timelock)
		require.NoError(t, err)
		assert.Equal(t, uint64(60), tl)
		return nil
	})
}

func TestLoadDevNetConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus: 1\n"), 0o600))
	_, err := devnet.LoadDevNetConfig(path)
	require.Error(t, err)
}
