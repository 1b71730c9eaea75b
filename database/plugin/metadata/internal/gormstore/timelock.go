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
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
)

func (s *Store) GetTimelock(
	addr common.Address,
	txn types.Txn,
) (*models.Timelock, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Timelock{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetTimelock(timelock *models.Timelock, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, timelock)
}

// AddTimelockRole grants a role. It returns false if the role was already held
func (s *Store) AddTimelockRole(role *models.TimelockRole, txn types.Txn) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(role)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteTimelockRole revokes a role. It returns false if the role was not held
func (s *Store) DeleteTimelockRole(role *models.TimelockRole, txn types.Txn) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Where(
		"timelock = ? AND role = ? AND account = ?",
		role.Timelock,
		role.Role,
		role.Account,
	).Delete(&models.TimelockRole{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *Store) HasTimelockRole(
	timelock common.Address,
	role uint8,
	account common.Address,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.Model(&models.TimelockRole{}).
		Where("timelock = ? AND role = ? AND account = ?", timelock, role, account).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *Store) GetTimelockRoles(
	timelock common.Address,
	txn types.Txn,
) ([]models.TimelockRole, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TimelockRole
	result := db.Where("timelock = ?", timelock).Order("role").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetTimelockOperation stores an operation. When calls are given they replace
// any previously stored calls for the operation
func (s *Store) SetTimelockOperation(
	op *models.TimelockOperation,
	calls []models.TimelockCall,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if err := upsert(db, op); err != nil {
		return err
	}
	if calls == nil {
		return nil
	}
	if err := db.Where(
		"timelock = ? AND operation_id = ?",
		op.Timelock,
		op.OperationID,
	).Delete(&models.TimelockCall{}).Error; err != nil {
		return err
	}
	if len(calls) == 0 {
		return nil
	}
	return db.Create(&calls).Error
}

func (s *Store) GetTimelockOperation(
	timelock common.Address,
	operationID common.Hash,
	txn types.Txn,
) (*models.TimelockOperation, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.TimelockOperation{}
	if err := first(
		db,
		ret,
		"timelock = ? AND operation_id = ?",
		timelock,
		operationID,
	); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) GetTimelockCalls(
	timelock common.Address,
	operationID common.Hash,
	txn types.Txn,
) ([]models.TimelockCall, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TimelockCall
	result := db.Where("timelock = ? AND operation_id = ?", timelock, operationID).
		Order("idx").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
