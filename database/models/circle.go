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
)

type Registry struct {
	Address      common.Address `gorm:"primaryKey;size:20"`
	Owner        common.Address `gorm:"size:20;not null"`
	Factory      common.Address `gorm:"size:20;not null"`
	TotalCircles uint64         `gorm:"not null"`
}

func (Registry) TableName() string {
	return "registry"
}

// Circle is an insert-only registry record. Children are found through the
// (registry, parent_id) index
type Circle struct {
	Registry common.Address `gorm:"primaryKey;size:20;index:idx_circle_parent,priority:1"`
	ID       uint64         `gorm:"primaryKey;autoIncrement:false"`
	ParentID uint64         `gorm:"index:idx_circle_parent,priority:2;not null"`
	Name     string         `gorm:"size:128;not null"`
	Governor common.Address `gorm:"size:20;not null"`
	Timelock common.Address `gorm:"size:20;index;not null"`
	Treasury common.Address `gorm:"size:20;not null"`
	Token    common.Address `gorm:"size:20;not null"`
	Height   uint64         `gorm:"not null"`
}

func (Circle) TableName() string {
	return "circle"
}

// Factory binds a circle factory to the registry it provisions into
type Factory struct {
	Address  common.Address `gorm:"primaryKey;size:20"`
	Registry common.Address `gorm:"size:20;not null"`
}

func (Factory) TableName() string {
	return "factory"
}
