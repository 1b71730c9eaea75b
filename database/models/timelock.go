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

package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/types"
)

type Timelock struct {
	Address     common.Address `gorm:"primaryKey;size:20"`
	MinDelay    uint64         `gorm:"not null"`
	GracePeriod uint64         `gorm:"not null"`
}

func (Timelock) TableName() string {
	return "timelock"
}

// TimelockRole is one membership entry of a timelock role table
type TimelockRole struct {
	Timelock common.Address `gorm:"primaryKey;size:20"`
	Role     uint8          `gorm:"primaryKey;autoIncrement:false"`
	Account  common.Address `gorm:"primaryKey;size:20"`
}

func (TimelockRole) TableName() string {
	return "timelock_role"
}

type TimelockOperation struct {
	Timelock    common.Address `gorm:"primaryKey;size:20"`
	OperationID common.Hash    `gorm:"primaryKey;size:32"`
	Predecessor common.Hash    `gorm:"size:32;not null"`
	Salt        common.Hash    `gorm:"size:32;not null"`
	Eta         uint64         `gorm:"not null"`
	Executed    bool           `gorm:"not null"`
	Canceled    bool           `gorm:"not null"`
	Height      uint64         `gorm:"not null"`
}

func (TimelockOperation) TableName() string {
	return "timelock_operation"
}

type TimelockCall struct {
	Timelock    common.Address `gorm:"primaryKey;size:20"`
	OperationID common.Hash    `gorm:"primaryKey;size:32"`
	Idx         uint32         `gorm:"primaryKey;autoIncrement:false"`
	Target      common.Address `gorm:"size:20;not null"`
	Value       types.BigInt   `gorm:"not null"`
	Payload     []byte
}

func (TimelockCall) TableName() string {
	return "timelock_call"
}
