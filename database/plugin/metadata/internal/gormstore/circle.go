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

package gormstore

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
)

func (s *Store) GetRegistry(
	addr common.Address,
	txn types.Txn,
) (*models.Registry, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Registry{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetRegistry(registry *models.Registry, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, registry)
}

// AddCircle inserts a circle record. Existing records are never updated
func (s *Store) AddCircle(circle *models.Circle, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(circle).Error
}

func (s *Store) GetCircle(
	registry common.Address,
	id uint64,
	txn types.Txn,
) (*models.Circle, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Circle{}
	if err := first(db, ret, "registry = ? AND id = ?", registry, id); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetCircles returns all circles of a registry ordered by id
func (s *Store) GetCircles(
	registry common.Address,
	txn types.Txn,
) ([]models.Circle, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Circle
	result := db.Where("registry = ?", registry).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetCircleChildren returns the direct children of a circle ordered by id
func (s *Store) GetCircleChildren(
	registry common.Address,
	parentID uint64,
	txn types.Txn,
) ([]models.Circle, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Circle
	result := db.Where("registry = ? AND parent_id = ?", registry, parentID).
		Order("id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) GetFactory(
	addr common.Address,
	txn types.Txn,
) (*models.Factory, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Factory{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetFactory(factory *models.Factory, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, factory)
}
