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

// Package registry keeps the append-only tree of circles. Each circle
// stores only its parent id; children are found through the parent index
package registry

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

var (
	ErrUnauthorized      = ledger.NewError(ledger.KindAuthorization, "Unauthorized")
	ErrParentNotFound    = ledger.NewError(ledger.KindLookup, "ParentNotFound")
	ErrCircleNotFound    = ledger.NewError(ledger.KindLookup, "CircleNotFound")
	ErrRegistryNotFound  = ledger.NewError(ledger.KindLookup, "RegistryNotFound")
	ErrFactoryAlreadySet = ledger.NewError(ledger.KindPrecondition, "FactoryAlreadySet")
	ErrInvalidFactory    = ledger.NewError(ledger.KindInvalid, "InvalidFactory")
	ErrInvalidCircleName = ledger.NewError(ledger.KindInvalid, "InvalidCircleName")
)

const maxCircleNameBytes = 128

// Circle is one governed unit. ParentID zero marks a root circle
type Circle struct {
	ID       uint64         `json:"id"`
	ParentID uint64         `json:"parentId"`
	Name     string         `json:"name"`
	Governor common.Address `json:"governor"`
	Timelock common.Address `json:"timelock"`
	Treasury common.Address `json:"treasury"`
	Token    common.Address `json:"token"`
	Height   uint64         `json:"height"`
}

func circleFromModel(m *models.Circle) Circle {
	return Circle{
		ID:       m.ID,
		ParentID: m.ParentID,
		Name:     m.Name,
		Governor: m.Governor,
		Timelock: m.Timelock,
		Treasury: m.Treasury,
		Token:    m.Token,
		Height:   m.Height,
	}
}

// Deploy creates a registry owned by the deployer
func Deploy(tx *ledger.Tx, deployer common.Address) (common.Address, error) {
	addr, err := tx.Deploy(deployer, ledger.KindRegistry)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetRegistry(
		&models.Registry{Address: addr, Owner: deployer},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func getRegistry(tx *ledger.Tx, addr common.Address) (*models.Registry, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetRegistry(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrRegistryNotFound
		}
		return nil, err
	}
	return ret, nil
}

// SetFactory binds the only address allowed to register circles. It can be
// called once, by the owner
func SetFactory(call *ledger.CallContext, factory common.Address) error {
	reg, err := getRegistry(call.Tx, call.Self)
	if err != nil {
		return err
	}
	if call.Caller != reg.Owner {
		return ErrUnauthorized
	}
	if reg.Factory != (common.Address{}) {
		return ErrFactoryAlreadySet
	}
	if factory == (common.Address{}) {
		return ErrInvalidFactory
	}
	reg.Factory = factory
	ms, txn := call.Tx.Metadata()
	if err := ms.SetRegistry(reg, txn); err != nil {
		return err
	}
	call.Emit(event.FactorySetEventType, event.FactorySetEvent{Factory: factory})
	return nil
}

// Register appends a circle and returns its id. Only the factory may call it
func Register(call *ledger.CallContext, c Circle) (uint64, error) {
	tx := call.Tx
	reg, err := getRegistry(tx, call.Self)
	if err != nil {
		return 0, err
	}
	if reg.Factory == (common.Address{}) || call.Caller != reg.Factory {
		return 0, ErrUnauthorized
	}
	if c.Name == "" || len(c.Name) > maxCircleNameBytes {
		return 0, ErrInvalidCircleName
	}
	if c.ParentID != 0 {
		ok, err := Exists(tx, call.Self, c.ParentID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrParentNotFound
		}
	}
	reg.TotalCircles++
	c.ID = reg.TotalCircles
	c.Height = tx.Height()
	ms, txn := tx.Metadata()
	if err := ms.AddCircle(
		&models.Circle{
			Registry: call.Self,
			ID:       c.ID,
			ParentID: c.ParentID,
			Name:     c.Name,
			Governor: c.Governor,
			Timelock: c.Timelock,
			Treasury: c.Treasury,
			Token:    c.Token,
			Height:   c.Height,
		},
		txn,
	); err != nil {
		return 0, err
	}
	if err := ms.SetRegistry(reg, txn); err != nil {
		return 0, err
	}
	call.Emit(
		event.CircleRegisteredEventType,
		event.CircleRegisteredEvent{
			ID:       c.ID,
			ParentID: c.ParentID,
			Name:     c.Name,
			Governor: c.Governor,
			Timelock: c.Timelock,
			Treasury: c.Treasury,
			Token:    c.Token,
		},
	)
	return c.ID, nil
}

// Get returns a circle by id
func Get(tx *ledger.Tx, registry common.Address, id uint64) (*Circle, error) {
	ms, txn := tx.Metadata()
	m, err := ms.GetCircle(registry, id, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrCircleNotFound
		}
		return nil, err
	}
	ret := circleFromModel(m)
	return &ret, nil
}

func Exists(tx *ledger.Tx, registry common.Address, id uint64) (bool, error) {
	if _, err := Get(tx, registry, id); err != nil {
		if errors.Is(err, ErrCircleNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func TotalCircles(tx *ledger.Tx, registry common.Address) (uint64, error) {
	reg, err := getRegistry(tx, registry)
	if err != nil {
		return 0, err
	}
	return reg.TotalCircles, nil
}

// Factory returns the bound factory, or the zero address
func Factory(tx *ledger.Tx, registry common.Address) (common.Address, error) {
	reg, err := getRegistry(tx, registry)
	if err != nil {
		return common.Address{}, err
	}
	return reg.Factory, nil
}

func Owner(tx *ledger.Tx, registry common.Address) (common.Address, error) {
	reg, err := getRegistry(tx, registry)
	if err != nil {
		return common.Address{}, err
	}
	return reg.Owner, nil
}

// List returns every circle ordered by id
func List(tx *ledger.Tx, registry common.Address) ([]Circle, error) {
	ms, txn := tx.Metadata()
	rows, err := ms.GetCircles(registry, txn)
	if err != nil {
		return nil, err
	}
	return circlesFromModels(rows), nil
}

// Children returns the direct children of a circle. Parent id zero lists
// the roots
func Children(
	tx *ledger.Tx,
	registry common.Address,
	parentID uint64,
) ([]Circle, error) {
	ms, txn := tx.Metadata()
	rows, err := ms.GetCircleChildren(registry, parentID, txn)
	if err != nil {
		return nil, err
	}
	return circlesFromModels(rows), nil
}

// Ancestors returns the authority chain above a circle, nearest first
func Ancestors(
	tx *ledger.Tx,
	registry common.Address,
	id uint64,
) ([]Circle, error) {
	c, err := Get(tx, registry, id)
	if err != nil {
		return nil, err
	}
	ret := []Circle{}
	// Parents always have lower ids, so the walk terminates
	for c.ParentID != 0 {
		c, err = Get(tx, registry, c.ParentID)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *c)
	}
	return ret, nil
}

// FindByTimelock returns the circle whose timelock is at the given address
func FindByTimelock(
	tx *ledger.Tx,
	registry common.Address,
	timelock common.Address,
) (*Circle, error) {
	all, err := List(tx, registry)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Timelock == timelock {
			return &all[i], nil
		}
	}
	return nil, ErrCircleNotFound
}

func circlesFromModels(rows []models.Circle) []Circle {
	ret := make([]Circle, 0, len(rows))
	for i := range rows {
		ret = append(ret, circleFromModel(&rows[i]))
	}
	return ret
}
