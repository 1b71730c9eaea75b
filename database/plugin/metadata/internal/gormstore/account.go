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

// GetAccount returns the native account for an address
func (s *Store) GetAccount(
	addr common.Address,
	txn types.Txn,
) (*models.Account, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Account{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetAccount(account *models.Account, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, account)
}

func (s *Store) GetContract(
	addr common.Address,
	txn types.Txn,
) (*models.Contract, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Contract{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) AddContract(contract *models.Contract, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(contract).Error
}

// GetContracts returns all contracts of a kind in deployment order
func (s *Store) GetContracts(
	kind string,
	txn types.Txn,
) ([]models.Contract, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Contract
	result := db.Where("kind = ?", kind).Order("height, address").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
