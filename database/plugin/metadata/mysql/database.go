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

package mysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blinklabs-io/circles/database/plugin/metadata/internal/gormstore"
)

var ErrMissingDsn = errors.New("mysql metadata store requires a DSN")

// MetadataStoreMysql stores metadata in MySQL
type MetadataStoreMysql struct {
	*gormstore.Store
	logger *slog.Logger
	dsn    string
}

// NewWithOptions creates a MySQL metadata store. The DSN is validated here
// and the connection is opened by Start()
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	d := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	dsn, err := normalizeDsn(d.dsn)
	if err != nil {
		return nil, err
	}
	d.dsn = dsn
	return d, nil
}

// normalizeDsn parses the DSN and enables the options the store relies on
func normalizeDsn(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", ErrMissingDsn
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	return cfg.FormatDSN(), nil
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	metadataDb, err := gorm.Open(
		gormmysql.Open(d.dsn),
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
		"connected to mysql metadata store",
		"component", "database",
	)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	if d.Store == nil {
		return nil
	}
	return d.Close()
}
