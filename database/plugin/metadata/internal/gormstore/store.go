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

// Package gormstore implements the metadata store on top of gorm. The
// sqlite, postgres and mysql plugins differ only in how they open the
// connection
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
)

const commitTimestampRowId = 1

// CommitTimestamp represents the table used to track the current commit timestamp
type CommitTimestamp struct {
	ID        uint `gorm:"primarykey"`
	Timestamp int64
}

func (CommitTimestamp) TableName() string {
	return "commit_timestamp"
}

// gormTxn wraps a gorm transaction and implements types.Txn
type gormTxn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func (t *gormTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Commit().Error
}

func (t *gormTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	return t.db.Rollback().Error
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New wraps an open gorm connection, enables tracing and migrates the schema
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{
		db:     db,
		logger: logger,
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return nil, err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := db.AutoMigrate(model); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// DB returns the underlying gorm handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDb, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}

// Transaction begins a new transaction
func (s *Store) Transaction() types.Txn {
	tx := s.db.Begin()
	if tx.Error != nil {
		return &gormTxn{beginErr: tx.Error}
	}
	return &gormTxn{db: tx}
}

// resolveDB returns the gorm handle for a transaction, or the base handle
// when no transaction is given
func (s *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return s.db, nil
	}
	gTxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.beginErr != nil {
		return nil, gTxn.beginErr
	}
	if gTxn.finished {
		return nil, errors.New("transaction already finished")
	}
	return gTxn.db, nil
}

func (s *Store) GetCommitTimestamp() (int64, error) {
	var tmp CommitTimestamp
	result := s.db.First(&tmp)
	if result.Error != nil {
		// It's not an error if there's no records found
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return tmp.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmp := CommitTimestamp{
		ID:        commitTimestampRowId,
		Timestamp: timestamp,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&tmp).Error
}

// first loads a single record, mapping a missing row to types.ErrRecordNotFound
func first(db *gorm.DB, dest any, query any, args ...any) error {
	result := db.Where(query, args...).First(dest)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return types.ErrRecordNotFound
		}
		return result.Error
	}
	return nil
}

// upsert inserts a record or updates every non-key column
func upsert(db *gorm.DB, record any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error
}
