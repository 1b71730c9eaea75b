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

package postgres

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blinklabs-io/circles/database/plugin/metadata/internal/gormstore"
)

var ErrMissingDsn = errors.New("postgres metadata store requires a DSN")

// MetadataStorePostgres stores metadata in Postgres
type MetadataStorePostgres struct {
	*gormstore.Store
	logger *slog.Logger
	dsn    string
}

// NewWithOptions creates a Postgres metadata store. The connection is
// opened by Start()
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	d := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if strings.TrimSpace(d.dsn) == "" {
		return nil, ErrMissingDsn
	}
	return d, nil
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	metadataDb, err := gorm.Open(
		postgres.Open(strings.TrimSpace(d.dsn)),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return err
	}
	store, err := gormstore.New(metadataDb, d.logger)
	if err != nil {
		return err
	}
	d.Store = store
	d.logger.Info(
		"connected to postgres metadata store",
		"component", "database",
	)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	if d.Store == nil {
		return nil
	}
	return d.Close()
}
