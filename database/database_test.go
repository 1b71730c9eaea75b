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

package database_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
)

var (
	testToken   = common.HexToAddress("0x2000000000000000000000000000000000000001")
	testAccount = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func newTestDb(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTxnDoRollsBackBothStores(t *testing.T) {
	db := newTestDb(t)
	testErr := errors.New("fail")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.Metadata().SetTip(&models.Tip{Height: 5}, txn.Metadata()); err != nil {
			return err
		}
		if err := db.CheckpointPush(database.SupplyCheckpointSeq(testToken), 1, big.NewInt(7), txn); err != nil {
			return err
		}
		return testErr
	})
	require.ErrorIs(t, err, testErr)

	txn := db.Transaction(false)
	defer txn.Release()
	_, err = db.Metadata().GetTip(txn.Metadata())
	require.ErrorIs(t, err, types.ErrRecordNotFound)
	count, err := db.CheckpointCount(database.SupplyCheckpointSeq(testToken), txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestTxnCommitsOnce(t *testing.T) {
	db := newTestDb(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		return db.Metadata().SetTip(&models.Tip{Height: 3}, txn.Metadata())
	}))
	require.ErrorIs(t, txn.Commit(), database.ErrTxnFinished)
	txn.Release()

	snap := db.Transaction(false)
	assert.False(t, snap.ReadWrite())
	tip, err := db.Metadata().GetTip(snap.Metadata())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tip.Height)
	require.NoError(t, snap.Commit())
	require.ErrorIs(t, snap.Commit(), database.ErrTxnFinished)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return db.Metadata().SetTip(&models.Tip{Height: 2}, txn.Metadata())
	}))
	// Simulate a crash after the blob commit
	metaTxn := db.Metadata().Transaction()
	require.NoError(t, db.Metadata().SetCommitTimestamp(1, metaTxn))
	require.NoError(t, metaTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.MetadataTimestamp)
	require.NoError(t, db.Close())
}

func TestCheckpointLookup(t *testing.T) {
	db := newTestDb(t)
	seq := database.VotesCheckpointSeq(testToken, testAccount)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		for _, cp := range []struct {
			key   uint64
			votes int64
		}{
			{2, 10},
			{5, 30},
			{5, 35},
			{9, 0},
			{12, 50},
		} {
			if err := db.CheckpointPush(seq, cp.key, big.NewInt(cp.votes), txn); err != nil {
				return err
			}
		}
		// Keys never move backwards
		require.Error(t, db.CheckpointPush(seq, 3, big.NewInt(1), txn))
		return nil
	}))

	txn := db.Transaction(false)
	defer txn.Release()
	count, err := db.CheckpointCount(seq, txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
	for _, tc := range []struct {
		key      uint64
		expected int64
	}{
		{0, 0},
		{1, 0},
		{2, 10},
		{4, 10},
		{5, 35},
		{8, 35},
		{9, 0},
		{11, 0},
		{12, 50},
		{100, 50},
	} {
		votes, err := db.CheckpointLookup(seq, tc.key, txn)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, votes.Int64(), "key %d", tc.key)
	}
	latest, err := db.CheckpointLatest(seq, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(50), latest.Int64())
}

func TestCheckpointSameKeyKeepsHistory(t *testing.T) {
	db := newTestDb(t)
	seq := database.VotesCheckpointSeq(testToken, testAccount)
	// Separate commits at one key, as with several transactions in a block
	for _, votes := range []int64{10, 25, 40} {
		require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
			return db.CheckpointPush(seq, 7, big.NewInt(votes), txn)
		}))
	}

	txn := db.Transaction(false)
	defer txn.Release()
	count, err := db.CheckpointCount(seq, txn)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
	for idx, expected := range []int64{10, 25, 40} {
		cp, err := db.CheckpointAt(seq, uint64(idx), txn) //nolint:gosec
		require.NoError(t, err)
		assert.Equal(t, uint64(7), cp.Key)
		assert.Equal(t, expected, cp.Votes.Int64())
	}
	votes, err := db.CheckpointLookup(seq, 7, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(40), votes.Int64())
	votes, err = db.CheckpointLookup(seq, 6, txn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), votes.Int64())
}

func TestEventLog(t *testing.T) {
	db := newTestDb(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		for i := range 5 {
			rec := &database.EventRecord{
				Type:    "test",
				Emitter: testToken,
				Height:  uint64(i + 1),
				Payload: []byte(`{}`),
			}
			if err := db.AppendEvent(rec, txn); err != nil {
				return err
			}
			assert.Equal(t, uint64(i+1), rec.Seq)
		}
		return nil
	}))
	txn := db.Transaction(false)
	defer txn.Release()
	events, err := db.GetEvents(2, 0, txn)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[0].Seq)
	assert.Equal(t, testToken, events[0].Emitter)
	events, err = db.GetEvents(0, 2, txn)
	require.NoError(t, err)
	require.Len(t, events, 2)
	last, err := db.LastEventSeq(txn)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), last)
}
