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

package database

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"

	"github.com/blinklabs-io/circles/database/types"
)

const (
	checkpointKeyPrefix      = "cp"
	checkpointCountKeyPrefix = "cn"
)

// Checkpoint is a (key, votes) pair in a checkpoint sequence
type Checkpoint struct {
	_     struct{} `cbor:",toarray"`
	Key   uint64
	Votes *big.Int
}

// VotesCheckpointSeq identifies the delegated votes history of an account
func VotesCheckpointSeq(token common.Address, account common.Address) []byte {
	ret := make([]byte, 0, 41)
	ret = append(ret, 'v')
	ret = append(ret, token.Bytes()...)
	return append(ret, account.Bytes()...)
}

// SupplyCheckpointSeq identifies the total supply history of a token
func SupplyCheckpointSeq(token common.Address) []byte {
	ret := make([]byte, 0, 21)
	ret = append(ret, 's')
	return append(ret, token.Bytes()...)
}

func checkpointKey(seq []byte, idx uint64) []byte {
	ret := make([]byte, 0, len(checkpointKeyPrefix)+len(seq)+8)
	ret = append(ret, checkpointKeyPrefix...)
	ret = append(ret, seq...)
	return binary.BigEndian.AppendUint64(ret, idx)
}

func checkpointCountKey(seq []byte) []byte {
	ret := make([]byte, 0, len(checkpointCountKeyPrefix)+len(seq))
	ret = append(ret, checkpointCountKeyPrefix...)
	return append(ret, seq...)
}

// CheckpointCount returns the number of checkpoints in a sequence
func (d *Database) CheckpointCount(seq []byte, txn *Txn) (uint64, error) {
	val, err := d.Blob().Get(txn.Blob(), checkpointCountKey(seq))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid checkpoint count length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// CheckpointAt returns the checkpoint at a position in a sequence
func (d *Database) CheckpointAt(seq []byte, idx uint64, txn *Txn) (*Checkpoint, error) {
	val, err := d.Blob().Get(txn.Blob(), checkpointKey(seq, idx))
	if err != nil {
		return nil, err
	}
	ret := &Checkpoint{}
	if err := cbor.Unmarshal(val, ret); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return ret, nil
}

// CheckpointLatest returns the most recent value of a sequence, or zero
func (d *Database) CheckpointLatest(seq []byte, txn *Txn) (*big.Int, error) {
	count, err := d.CheckpointCount(seq, txn)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return new(big.Int), nil
	}
	cp, err := d.CheckpointAt(seq, count-1, txn)
	if err != nil {
		return nil, err
	}
	return cp.Votes, nil
}

// CheckpointLookup binary searches a sequence for the value of the latest
// checkpoint with a key at or before the given key. It returns zero when no
// such checkpoint exists
func (d *Database) CheckpointLookup(
	seq []byte,
	key uint64,
	txn *Txn,
) (*big.Int, error) {
	count, err := d.CheckpointCount(seq, txn)
	if err != nil {
		return nil, err
	}
	var searchErr error
	// Index of the first checkpoint with a key after the lookup key
	pos := sort.Search(int(count), func(i int) bool { //nolint:gosec
		if searchErr != nil {
			return true
		}
		cp, err := d.CheckpointAt(seq, uint64(i), txn) //nolint:gosec
		if err != nil {
			searchErr = err
			return true
		}
		return cp.Key > key
	})
	if searchErr != nil {
		return nil, searchErr
	}
	if pos == 0 {
		return new(big.Int), nil
	}
	cp, err := d.CheckpointAt(seq, uint64(pos-1), txn) //nolint:gosec
	if err != nil {
		return nil, err
	}
	return cp.Votes, nil
}

// CheckpointPush appends a new value for a sequence at the given key. Keys
// must not decrease. Entries sharing a key are kept in write order and
// lookups resolve to the last of them
func (d *Database) CheckpointPush(
	seq []byte,
	key uint64,
	votes *big.Int,
	txn *Txn,
) error {
	count, err := d.CheckpointCount(seq, txn)
	if err != nil {
		return err
	}
	if count > 0 {
		last, err := d.CheckpointAt(seq, count-1, txn)
		if err != nil {
			return err
		}
		if key < last.Key {
			return fmt.Errorf(
				"checkpoint key %d is before latest key %d",
				key,
				last.Key,
			)
		}
	}
	val, err := cbor.Marshal(&Checkpoint{Key: key, Votes: votes})
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := d.Blob().Set(txn.Blob(), checkpointKey(seq, count), val); err != nil {
		return err
	}
	return d.Blob().Set(
		txn.Blob(),
		checkpointCountKey(seq),
		binary.BigEndian.AppendUint64(nil, count+1),
	)
}
