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
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/circles/database/plugin"
	"github.com/blinklabs-io/circles/database/plugin/blob"
	"github.com/blinklabs-io/circles/database/plugin/metadata"

	// Register storage plugins
	_ "github.com/blinklabs-io/circles/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/circles/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/circles/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/circles/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config holds the configuration for opening a Database
type Config struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	BlobPlugin     string
	MetadataPlugin string
	// DataDir selects on-disk storage. Leave empty for in-memory stores
	DataDir string
	// MetadataDsn is the connection string for network metadata plugins
	MetadataDsn string
}

// Database pairs the blob store, which holds checkpoint histories and the
// event log, with the metadata store, which holds relational ledger state
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

// New opens both stores using the configured plugins
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	blobPlugin := cfg.BlobPlugin
	if blobPlugin == "" {
		blobPlugin = DefaultBlobPlugin
	}
	metadataPlugin := cfg.MetadataPlugin
	if metadataPlugin == "" {
		metadataPlugin = DefaultMetadataPlugin
	}
	opts := plugin.Options{
		Logger:       logger,
		PromRegistry: cfg.PromRegistry,
		DataDir:      cfg.DataDir,
		DSN:          cfg.MetadataDsn,
	}
	metadataDb, err := metadata.New(metadataPlugin, opts)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(blobPlugin, opts)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.checkCommitTimestamp(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
