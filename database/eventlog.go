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

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"

	"github.com/blinklabs-io/circles/database/types"
)

const (
	eventKeyPrefix   = "ev"
	eventSeqCountKey = "eseq"
)

// EventRecord is one entry of the append-only event log
type EventRecord struct {
	_       struct{} `cbor:",toarray"`
	Seq     uint64
	Type    string
	Emitter common.Address
	Height  uint64
	Time    uint64
	// Payload is the JSON encoding of the event data
	Payload []byte
}

func eventKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(eventKeyPrefix), seq)
}

// LastEventSeq returns the sequence number of the latest event, or zero
func (d *Database) LastEventSeq(txn *Txn) (uint64, error) {
	val, err := d.Blob().Get(txn.Blob(), []byte(eventSeqCountKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid event sequence length %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// AppendEvent assigns the next sequence number to the record and stores it
func (d *Database) AppendEvent(rec *EventRecord, txn *Txn) error {
	last, err := d.LastEventSeq(txn)
	if err != nil {
		return err
	}
	rec.Seq = last + 1
	val, err := cbor.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := d.Blob().Set(txn.Blob(), eventKey(rec.Seq), val); err != nil {
		return err
	}
	return d.Blob().Set(
		txn.Blob(),
		[]byte(eventSeqCountKey),
		binary.BigEndian.AppendUint64(nil, rec.Seq),
	)
}

// GetEvents returns up to limit events with a sequence number after since
func (d *Database) GetEvents(since uint64, limit int, txn *Txn) ([]EventRecord, error) {
	prefix := []byte(eventKeyPrefix)
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	ret := []EventRecord{}
	for iter.Seek(eventKey(since + 1)); iter.ValidForPrefix(prefix); iter.Next() {
		if limit > 0 && len(ret) >= limit {
			break
		}
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		var rec EventRecord
		if err := cbor.Unmarshal(val, &rec); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		ret = append(ret, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}
