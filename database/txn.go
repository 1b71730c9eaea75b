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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/circles/database/types"
)

// ErrTxnFinished is returned when a committed or discarded transaction is
// committed again
var ErrTxnFinished = errors.New("transaction already finished")

// Txn spans the blob and metadata stores for one ledger transaction. The
// ledger has a single writer, so a Txn belongs to the goroutine that opened
// it and is not safe for concurrent use. Read-only transactions are
// snapshots and are always discarded
type Txn struct {
	db        *Database
	blob      types.Txn
	metadata  types.Txn
	readWrite bool
	finished  bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	return &Txn{
		db:        db,
		blob:      db.Blob().NewTransaction(readWrite),
		metadata:  db.Metadata().Transaction(),
		readWrite: readWrite,
	}
}

// Metadata returns the metadata store handle
func (t *Txn) Metadata() types.Txn {
	return t.metadata
}

// Blob returns the blob store handle
func (t *Txn) Blob() types.Txn {
	return t.blob
}

func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// Do runs fn and commits, or discards both stores if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if discardErr := t.discard(); discardErr != nil {
			return fmt.Errorf("discard after %w: %w", err, discardErr)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Commit stamps both stores with a shared commit time and commits blob
// before metadata. A blob failure leaves metadata untouched. A metadata
// failure after the blob commit is caught by the timestamp check on the
// next open
func (t *Txn) Commit() error {
	if t.finished {
		return ErrTxnFinished
	}
	if !t.readWrite {
		return t.discard()
	}
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		_ = t.discard()
		return fmt.Errorf("commit timestamp: %w", err)
	}
	t.finished = true
	if err := t.blob.Commit(); err != nil {
		_ = t.metadata.Rollback()
		return fmt.Errorf("blob commit: %w", err)
	}
	if err := t.metadata.Commit(); err != nil {
		t.db.logger.Error(
			"metadata commit failed after blob commit",
			"component", "database",
			"error", err,
		)
		_ = t.metadata.Rollback()
		return fmt.Errorf("metadata commit after blob commit: %w", err)
	}
	return nil
}

// Release discards the transaction if it is still open. It is safe to
// defer after Do or Commit
func (t *Txn) Release() {
	if err := t.discard(); err != nil {
		t.db.logger.Debug(
			"transaction discard failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}

func (t *Txn) discard() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return errors.Join(
		wrapErr("blob discard", t.blob.Rollback()),
		wrapErr("metadata discard", t.metadata.Rollback()),
	)
}

func wrapErr(msg string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
