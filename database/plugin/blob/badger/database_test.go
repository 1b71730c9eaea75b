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

package badger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/database/plugin/blob/badger"
	"github.com/blinklabs-io/circles/database/types"
)

func TestBadgerInMemoryRoundTrip(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, store.Set(txn, []byte("k2"), []byte("v2")))
	require.NoError(t, txn.Commit())

	rTxn := store.NewTransaction(false)
	val, err := store.Get(rTxn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = store.Get(rTxn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)

	iter := store.NewIterator(rTxn, types.BlobIteratorOptions{Prefix: []byte("k")})
	var keys []string
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Item().Key()))
	}
	iter.Close()
	assert.Equal(t, []string{"k1", "k2"}, keys)
	require.NoError(t, rTxn.Rollback())

	require.NoError(t, store.Close())
}

func TestBadgerRollbackDiscardsWrites(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close()

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())

	rTxn := store.NewTransaction(false)
	defer rTxn.Rollback() //nolint:errcheck
	_, err = store.Get(rTxn, []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestBadgerFinishedTxnRejected(t *testing.T) {
	store, err := badger.New()
	require.NoError(t, err)
	defer store.Close()

	txn := store.NewTransaction(true)
	require.NoError(t, txn.Commit())
	require.Error(t, store.Set(txn, []byte("k"), []byte("v")))
	require.ErrorIs(t, store.Set(nil, []byte("k"), nil), types.ErrNilTxn)
}

func TestBadgerCommitTimestamp(t *testing.T) {
	store, err := badger.New(badger.WithDataDir(t.TempDir()), badger.WithGc(false))
	require.NoError(t, err)
	defer store.Close()

	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1700000000123, txn))
	require.NoError(t, txn.Commit())

	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123), ts)
}
