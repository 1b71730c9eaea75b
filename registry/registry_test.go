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

package registry_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/internal/test/testutil"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
)

var (
	owner   = testutil.Address(1)
	factory = testutil.Address(2)
	other   = testutil.Address(3)
)

func setup(t *testing.T) (*ledger.LedgerState, common.Address) {
	t.Helper()
	ls := testutil.NewLedger(t)
	var reg common.Address
	testutil.Submit(t, ls, owner, func(tx *ledger.Tx) error {
		var err error
		reg, err = registry.Deploy(tx, owner)
		if err != nil {
			return err
		}
		call, err := tx.NewCall(owner, reg, nil)
		if err != nil {
			return err
		}
		return registry.SetFactory(call, factory)
	})
	return ls, reg
}

func register(
	ls *ledger.LedgerState,
	reg common.Address,
	from common.Address,
	c registry.Circle,
) (uint64, error) {
	var id uint64
	err := ls.Submit(context.Background(), from, func(tx *ledger.Tx) error {
		call, err := tx.NewCall(from, reg, nil)
		if err != nil {
			return err
		}
		id, err = registry.Register(call, c)
		return err
	})
	return id, err
}

func TestSetFactoryOnce(t *testing.T) {
	ls, reg := setup(t)
	err := ls.Submit(context.Background(), owner, func(tx *ledger.Tx) error {
		call, err := tx.NewCall(owner, reg, nil)
		if err != nil {
			return err
		}
		return registry.SetFactory(call, other)
	})
	require.ErrorIs(t, err, registry.ErrFactoryAlreadySet)
	assert.Equal(t, ledger.KindPrecondition, ledger.KindOf(err))

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		f, err := registry.Factory(tx, reg)
		require.NoError(t, err)
		assert.Equal(t, factory, f)
		return nil
	})
}

func TestSetFactoryOwnerOnly(t *testing.T) {
	ls := testutil.NewLedger(t)
	var reg common.Address
	testutil.Submit(t, ls, owner, func(tx *ledger.Tx) error {
		var err error
		reg, err = registry.Deploy(tx, owner)
		return err
	})
	data, err := registry.ABI.Pack("setFactory", factory)
	require.NoError(t, err)
	_, err = ls.Send(context.Background(), other, reg, nil, data)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestRegisterAssignsSequentialIds(t *testing.T) {
	ls, reg := setup(t)
	id, err := register(ls, reg, factory, registry.Circle{Name: "root"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
	id, err = register(ls, reg, factory, registry.Circle{ParentID: 1, Name: "child"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	id, err = register(ls, reg, factory, registry.Circle{ParentID: 2, Name: "grandchild"})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)
	_, err = register(ls, reg, factory, registry.Circle{ParentID: 1, Name: "sibling"})
	require.NoError(t, err)

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		total, err := registry.TotalCircles(tx, reg)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), total)

		children, err := registry.Children(tx, reg, 1)
		require.NoError(t, err)
		require.Len(t, children, 2)
		assert.Equal(t, "child", children[0].Name)
		assert.Equal(t, "sibling", children[1].Name)

		roots, err := registry.Children(tx, reg, 0)
		require.NoError(t, err)
		require.Len(t, roots, 1)

		ancestors, err := registry.Ancestors(tx, reg, 3)
		require.NoError(t, err)
		require.Len(t, ancestors, 2)
		assert.Equal(t, uint64(2), ancestors[0].ID)
		assert.Equal(t, uint64(1), ancestors[1].ID)

		ok, err := registry.Exists(tx, reg, 4)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = registry.Exists(tx, reg, 5)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = registry.Get(tx, reg, 5)
		require.ErrorIs(t, err, registry.ErrCircleNotFound)
		return nil
	})
}

func TestRegisterRejectsUnknownParent(t *testing.T) {
	ls, reg := setup(t)
	_, err := register(ls, reg, factory, registry.Circle{ParentID: 1, Name: "orphan"})
	require.ErrorIs(t, err, registry.ErrParentNotFound)
	assert.Equal(t, ledger.KindLookup, ledger.KindOf(err))

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		total, err := registry.TotalCircles(tx, reg)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), total)
		return nil
	})
}

func TestRegisterFactoryOnly(t *testing.T) {
	ls, reg := setup(t)
	_, err := register(ls, reg, other, registry.Circle{Name: "root"})
	require.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.Equal(t, ledger.KindAuthorization, ledger.KindOf(err))
}

func TestCircleRegisteredEvent(t *testing.T) {
	ls, reg := setup(t)
	gov := testutil.Address(10)
	_, err := register(ls, reg, factory, registry.Circle{Name: "root", Governor: gov})
	require.NoError(t, err)

	evts, err := ls.Events(context.Background(), 0, 0)
	require.NoError(t, err)
	var found bool
	for _, rec := range evts {
		if rec.Type != string(event.CircleRegisteredEventType) {
			continue
		}
		found = true
		var payload event.CircleRegisteredEvent
		require.NoError(t, json.Unmarshal(rec.Payload, &payload))
		assert.Equal(t, uint64(1), payload.ID)
		assert.Equal(t, gov, payload.Governor)
		assert.Equal(t, reg, rec.Emitter)
	}
	assert.True(t, found)
}

func TestGetCircleCalldata(t *testing.T) {
	ls, reg := setup(t)
	_, err := register(ls, reg, factory, registry.Circle{Name: "root"})
	require.NoError(t, err)
	_, err = register(ls, reg, factory, registry.Circle{ParentID: 1, Name: "child"})
	require.NoError(t, err)

	data, err := registry.ABI.Pack("circles", uint64(2))
	require.NoError(t, err)
	ret, err := ls.StaticCall(context.Background(), other, reg, data)
	require.NoError(t, err)
	out, err := registry.ABI.Unpack("circles", ret)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), out[0])
	assert.Equal(t, uint64(1), out[1])
	assert.Equal(t, "child", out[6])

	data, err = registry.ABI.Pack("getChildren", uint64(1))
	require.NoError(t, err)
	ret, err = ls.StaticCall(context.Background(), other, reg, data)
	require.NoError(t, err)
	out, err = registry.ABI.Unpack("getChildren", ret)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, out[0])
}
