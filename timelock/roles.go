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

package timelock

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

// Role is a closed set of timelock permissions
type Role uint8

const (
	RoleAdmin Role = iota
	RoleProposer
	RoleExecutor
	RoleCanceller
)

var roleNames = map[Role]string{
	RoleAdmin:     "admin",
	RoleProposer:  "proposer",
	RoleExecutor:  "executor",
	RoleCanceller: "canceller",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// ParseRole accepts a role name such as "proposer"
func ParseRole(name string) (Role, error) {
	for r, n := range roleNames {
		if strings.EqualFold(n, name) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrInvalidRole, name)
}

// HasRole reports whether account holds role. A role held by the zero
// address is open to everyone
func HasRole(
	tx *ledger.Tx,
	timelock common.Address,
	role Role,
	account common.Address,
) (bool, error) {
	ms, txn := tx.Metadata()
	ok, err := ms.HasTimelockRole(timelock, uint8(role), account, txn)
	if err != nil || ok {
		return ok, err
	}
	if account == (common.Address{}) {
		return false, nil
	}
	return ms.HasTimelockRole(timelock, uint8(role), common.Address{}, txn)
}

func checkRole(call *ledger.CallContext, role Role) error {
	ok, err := HasRole(call.Tx, call.Self, role, call.Caller)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks %s", ErrMissingRole, call.Caller.Hex(), role)
	}
	return nil
}

// Members lists the holders of each role
func Members(
	tx *ledger.Tx,
	timelock common.Address,
) (map[Role][]common.Address, error) {
	ms, txn := tx.Metadata()
	rows, err := ms.GetTimelockRoles(timelock, txn)
	if err != nil {
		return nil, err
	}
	ret := map[Role][]common.Address{}
	for _, row := range rows {
		ret[Role(row.Role)] = append(ret[Role(row.Role)], row.Account)
	}
	return ret, nil
}

func grant(
	tx *ledger.Tx,
	timelock common.Address,
	role Role,
	account common.Address,
	sender common.Address,
) error {
	ms, txn := tx.Metadata()
	added, err := ms.AddTimelockRole(
		&models.TimelockRole{
			Timelock: timelock,
			Role:     uint8(role),
			Account:  account,
		},
		txn,
	)
	if err != nil {
		return err
	}
	if added {
		tx.Emit(
			timelock,
			event.RoleGrantedEventType,
			event.RoleGrantedEvent{
				Role:    role.String(),
				Account: account,
				Sender:  sender,
			},
		)
	}
	return nil
}

func revoke(
	tx *ledger.Tx,
	timelock common.Address,
	role Role,
	account common.Address,
	sender common.Address,
) error {
	ms, txn := tx.Metadata()
	removed, err := ms.DeleteTimelockRole(
		&models.TimelockRole{
			Timelock: timelock,
			Role:     uint8(role),
			Account:  account,
		},
		txn,
	)
	if err != nil {
		return err
	}
	if removed {
		tx.Emit(
			timelock,
			event.RoleRevokedEventType,
			event.RoleRevokedEvent{
				Role:    role.String(),
				Account: account,
				Sender:  sender,
			},
		)
	}
	return nil
}

// GrantRole adds a role member. The caller must hold the admin role
func GrantRole(call *ledger.CallContext, role Role, account common.Address) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := checkRole(call, RoleAdmin); err != nil {
		return err
	}
	return grant(call.Tx, call.Self, role, account, call.Caller)
}

// RevokeRole removes a role member. The caller must hold the admin role
func RevokeRole(call *ledger.CallContext, role Role, account common.Address) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := checkRole(call, RoleAdmin); err != nil {
		return err
	}
	return revoke(call.Tx, call.Self, role, account, call.Caller)
}

// RenounceRole lets an account give up one of its own roles
func RenounceRole(call *ledger.CallContext, role Role, account common.Address) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if account != call.Caller {
		return ErrBadConfirmation
	}
	return revoke(call.Tx, call.Self, role, account, call.Caller)
}
