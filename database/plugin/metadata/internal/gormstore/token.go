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

func (s *Store) GetToken(
	addr common.Address,
	txn types.Txn,
) (*models.Token, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Token{}
	if err := first(db, ret, "address = ?", addr); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetToken(token *models.Token, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, token)
}

func (s *Store) GetTokenAccount(
	token common.Address,
	holder common.Address,
	txn types.Txn,
) (*models.TokenAccount, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.TokenAccount{}
	if err := first(db, ret, "token = ? AND holder = ?", token, holder); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetTokenAccount(
	account *models.TokenAccount,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return upsert(db, account)
}
