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
	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
)

// GetTip returns the stored head block, or types.ErrRecordNotFound on a
// fresh database
func (s *Store) GetTip(txn types.Txn) (*models.Tip, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Tip{}
	if err := first(db, ret, "id = ?", models.TipRowID); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Store) SetTip(tip *models.Tip, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	tip.ID = models.TipRowID
	return upsert(db, tip)
}
