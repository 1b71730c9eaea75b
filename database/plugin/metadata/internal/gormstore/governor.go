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

func (s *Store) GetGovernor(
	addr common.Address,
	txn types.Txn,
) (*models.Governor, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Governor{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetGovernor(governor *models.Governor, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, governor)
}

// SetGovernorCanceller adds or removes a designated canceller
func (s *Store) SetGovernorCanceller(
	governor common.Address,
	account common.Address,
	enabled bool,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tmp := models.GovernorCanceller{Governor: governor, Account: account}
	if !enabled {
		return db.Where("governor = ? AND account = ?", governor, account).
			Delete(&models.GovernorCanceller{}).Error
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tmp).Error
}

func (s *Store) IsGovernorCanceller(
	governor common.Address,
	account common.Address,
	txn types.Txn,
) (bool, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return false, err
	}
	var count int64
	result := db.Model(&models.GovernorCanceller{}).
		Where("governor = ? AND account = ?", governor, account).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// AddProposal inserts a proposal together with its actions
func (s *Store) AddProposal(
	proposal *models.Proposal,
	actions []models.ProposalAction,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if err := db.Create(proposal).Error; err != nil {
		return err
	}
	if len(actions) == 0 {
		return nil
	}
	return db.Create(&actions).Error
}

func (s *Store) GetProposal(
	governor common.Address,
	proposalID common.Hash,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Proposal{}
	if err := first(db, ret, "governor = ? AND proposal_id = ?", governor, proposalID); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) GetProposalActions(
	governor common.Address,
	proposalID common.Hash,
	txn types.Txn,
) ([]models.ProposalAction, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.ProposalAction
	result := db.Where("governor = ? AND proposal_id = ?", governor, proposalID).
		Order("idx").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposal updates the mutable fields of an existing proposal
func (s *Store) SetProposal(proposal *models.Proposal, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, proposal)
}

// GetProposals returns all proposals of a governor in creation order
func (s *Store) GetProposals(
	governor common.Address,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	result := db.Where("governor = ?", governor).
		Order("height, proposal_id").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) AddProposalVote(vote *models.ProposalVote, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Create(vote).Error
}

func (s *Store) GetProposalVote(
	governor common.Address,
	proposalID common.Hash,
	voter common.Address,
	txn types.Txn,
) (*models.ProposalVote, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.ProposalVote{}
	if err := first(
		db,
		ret,
		"governor = ? AND proposal_id = ? AND voter = ?",
		governor,
		proposalID,
		voter,
	); err != nil {
		return nil, err
	}
	return ret, nil
}
