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

package badger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/circles/database/types"
)

const gcInterval = 5 * time.Minute

// badgerTxn wraps a badger transaction and implements types.Txn
type badgerTxn struct {
	store    *BlobStoreBadger
	tx       *badger.Txn
	finished bool
}

func (t *badgerTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	return t.tx.Commit()
}

func (t *badgerTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.tx.Discard()
	t.finished = true
	return nil
}

type badgerIterator struct {
	iter *badger.Iterator
}

func (it *badgerIterator) Rewind()         { it.iter.Rewind() }
func (it *badgerIterator) Seek(key []byte) { it.iter.Seek(key) }
func (it *badgerIterator) Valid() bool     { return it.iter.Valid() }
func (it *badgerIterator) Next()           { it.iter.Next() }
func (it *badgerIterator) Close()          { it.iter.Close() }
func (it *badgerIterator) Err() error      { return nil }
func (it *badgerIterator) Item() types.BlobItem {
	return &badgerItem{item: it.iter.Item()}
}

func (it *badgerIterator) ValidForPrefix(p []byte) bool {
	return it.iter.ValidForPrefix(p)
}

// badgerItem copies keys so they remain valid after the iterator moves
type badgerItem struct {
	item *badger.Item
}

func (i *badgerItem) Key() []byte {
	return i.item.KeyCopy(nil)
}

func (i *badgerItem) ValueCopy(dst []byte) ([]byte, error) {
	return i.item.ValueCopy(dst)
}

// errorIterator is returned when an iterator cannot be created
type errorIterator struct {
	err error
}

func (it *errorIterator) Rewind()                    {}
func (it *errorIterator) Seek([]byte)                {}
func (it *errorIterator) Valid() bool                { return false }
func (it *errorIterator) ValidForPrefix([]byte) bool { return false }
func (it *errorIterator) Next()                      {}
func (it *errorIterator) Item() types.BlobItem       { return nil }
func (it *errorIterator) Close()                     {}
func (it *errorIterator) Err() error                 { return it.err }

// BlobStoreBadger stores checkpoint histories and the event log in badger.
// With no data directory the store lives in memory only
type BlobStoreBadger struct {
	promRegistry prometheus.Registerer
	db           *badger.DB
	logger       *slog.Logger
	gcStopCh     chan struct{}
	dataDir      string
	gcWg         sync.WaitGroup
	gcEnabled    bool
}

// New creates a new badger blob store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	d := &BlobStoreBadger{
		gcEnabled: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if d.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		// Value log GC is not supported in memory
		d.gcEnabled = false
	} else {
		if _, err := os.Stat(d.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(d.dataDir, "blob")).
			WithCompression(options.Snappy)
	}
	badgerOpts = badgerOpts.
		WithLogger(NewBadgerLogger(d.logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	d.db = db
	if d.promRegistry != nil {
		d.registerBlobMetrics()
	}
	if d.gcEnabled {
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.blobGc()
	}
	return d, nil
}

func (d *BlobStoreBadger) blobGc() {
	defer d.gcWg.Done()
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for {
				// Keep going while GC reports that it rewrote a file
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						"blob DB: GC failure",
						"component", "database",
						"error", err,
					)
				}
				break
			}
		case <-d.gcStopCh:
			return
		}
	}
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreBadger) Start() error {
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreBadger) Stop() error {
	return d.Close()
}

// Close stops background GC and closes the badger database
func (d *BlobStoreBadger) Close() error {
	if d.gcStopCh != nil {
		close(d.gcStopCh)
		d.gcWg.Wait()
		d.gcStopCh = nil
	}
	return d.db.Close()
}

// DB returns the database handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction creates a new badger transaction
func (d *BlobStoreBadger) NewTransaction(readWrite bool) types.Txn {
	return &badgerTxn{store: d, tx: d.db.NewTransaction(readWrite)}
}

func (d *BlobStoreBadger) validateTxn(txn types.Txn) (*badgerTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	bTxn, ok := txn.(*badgerTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if bTxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if bTxn.finished {
		return nil, errors.New("transaction already finished")
	}
	return bTxn, nil
}

// Get retrieves a value within a transaction
func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	item, err := bTxn.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// Set stores a key-value pair within a transaction
func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return bTxn.tx.Set(key, val)
}

// Delete removes a key within a transaction
func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return err
	}
	return bTxn.tx.Delete(key)
}

// NewIterator creates an iterator within a transaction. Only one iterator
// may be open at a time on a read-write transaction
func (d *BlobStoreBadger) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	bTxn, err := d.validateTxn(txn)
	if err != nil {
		return &errorIterator{err: err}
	}
	return &badgerIterator{
		iter: bTxn.tx.NewIterator(badger.IteratorOptions{
			Prefix:         opts.Prefix,
			Reverse:        opts.Reverse,
			PrefetchValues: true,
			PrefetchSize:   100,
		}),
	}
}
