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

// Package factory provisions circles. A circle is a timelock, a treasury
// owned by it and a governor that proposes to it, registered under its
// parent in the circle registry
package factory

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/governor"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
	"github.com/blinklabs-io/circles/timelock"
	"github.com/blinklabs-io/circles/treasury"
)

var (
	ErrUnauthorizedCreator = ledger.NewError(ledger.KindAuthorization, "UnauthorizedCreator")
	ErrInvalidToken        = ledger.NewError(ledger.KindInvalid, "InvalidToken")
	ErrInvalidParameters   = ledger.NewError(ledger.KindInvalid, "InvalidParameters")
	ErrFactoryNotFound     = ledger.NewError(ledger.KindLookup, "FactoryNotFound")
)

// Params describes a circle to create
type Params struct {
	ParentID          uint64         `json:"parentId"`
	Name              string         `json:"name"`
	Token             common.Address `json:"token"`
	VotingDelay       uint64         `json:"votingDelay"`
	VotingPeriod      uint64         `json:"votingPeriod"`
	ProposalThreshold *big.Int       `json:"proposalThreshold"`
	QuorumNumerator   uint64         `json:"quorumNumerator"`
	TimelockDelay     uint64         `json:"timelockDelay"`
	// QueueGracePeriod is the number of blocks after the vote end during
	// which a succeeded proposal can be queued. Zero selects
	// governor.DefaultQueueGracePeriod
	QueueGracePeriod uint64 `json:"queueGracePeriod,omitempty"`
}

// Result holds the id and component addresses of a new circle
type Result struct {
	ID       uint64         `json:"id"`
	Governor common.Address `json:"governor"`
	Timelock common.Address `json:"timelock"`
	Treasury common.Address `json:"treasury"`
}

// Deploy creates a factory bound to a registry. The registry owner must
// still point the registry at the factory
func Deploy(
	tx *ledger.Tx,
	deployer common.Address,
	reg common.Address,
) (common.Address, error) {
	if kind, err := tx.ContractKind(reg); err != nil {
		return common.Address{}, err
	} else if kind != ledger.KindRegistry {
		return common.Address{}, registry.ErrRegistryNotFound
	}
	addr, err := tx.Deploy(deployer, ledger.KindFactory)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetFactory(
		&models.Factory{Address: addr, Registry: reg},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Registry returns the registry a factory provisions into
func Registry(tx *ledger.Tx, factory common.Address) (common.Address, error) {
	ms, txn := tx.Metadata()
	f, err := ms.GetFactory(factory, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return common.Address{}, ErrFactoryNotFound
		}
		return common.Address{}, err
	}
	return f.Registry, nil
}

func (p Params) validate(tx *ledger.Tx) error {
	kind, err := tx.ContractKind(p.Token)
	if err != nil {
		return err
	}
	if kind != ledger.KindToken {
		return fmt.Errorf("%w: %s", ErrInvalidToken, p.Token.Hex())
	}
	if p.VotingPeriod == 0 {
		return fmt.Errorf("%w: voting period must be positive", ErrInvalidParameters)
	}
	if p.QuorumNumerator > 100 {
		return fmt.Errorf("%w: quorum numerator above 100", ErrInvalidParameters)
	}
	return nil
}

// CreateCircle provisions and registers a circle. Root circles can be
// created by anyone. A child circle can only be created by the timelock
// of its parent, which means by an executed proposal of the parent
func CreateCircle(call *ledger.CallContext, params Params) (*Result, error) {
	tx := call.Tx
	reg, err := Registry(tx, call.Self)
	if err != nil {
		return nil, err
	}
	if err := params.validate(tx); err != nil {
		return nil, err
	}
	var parentTimelock common.Address
	if params.ParentID != 0 {
		parent, err := registry.Get(tx, reg, params.ParentID)
		if err != nil {
			if errors.Is(err, registry.ErrCircleNotFound) {
				return nil, registry.ErrParentNotFound
			}
			return nil, err
		}
		if call.Caller != parent.Timelock {
			return nil, ErrUnauthorizedCreator
		}
		parentTimelock = parent.Timelock
	}
	// The factory administers the new timelock only until the final roles
	// are in place
	tl, err := timelock.Deploy(tx, call.Self, timelock.Config{
		MinDelay:    params.TimelockDelay,
		GracePeriod: timelock.DefaultGracePeriod,
		Admin:       call.Self,
		Executors:   []common.Address{{}},
	})
	if err != nil {
		return nil, fmt.Errorf("deploy timelock: %w", err)
	}
	queueGrace := params.QueueGracePeriod
	if queueGrace == 0 {
		queueGrace = governor.DefaultQueueGracePeriod
	}
	gov, err := governor.Deploy(tx, call.Self, governor.Config{
		Name:                      params.Name,
		Token:                     params.Token,
		Timelock:                  tl,
		VotingDelay:               params.VotingDelay,
		VotingPeriod:              params.VotingPeriod,
		ProposalThreshold:         params.ProposalThreshold,
		QuorumNumerator:           params.QuorumNumerator,
		QueueGracePeriod:          queueGrace,
		AbstainCountsTowardQuorum: true,
	})
	if err != nil {
		return nil, fmt.Errorf("deploy governor: %w", err)
	}
	admin := parentTimelock
	if admin == (common.Address{}) {
		admin = tl
	}
	tlCall := call.Sub(tl)
	grants := []struct {
		role    timelock.Role
		account common.Address
	}{
		{timelock.RoleProposer, gov},
		{timelock.RoleCanceller, gov},
		{timelock.RoleAdmin, admin},
	}
	for _, g := range grants {
		if err := timelock.GrantRole(tlCall, g.role, g.account); err != nil {
			return nil, fmt.Errorf("grant %s role: %w", g.role, err)
		}
	}
	if err := timelock.RenounceRole(tlCall, timelock.RoleAdmin, call.Self); err != nil {
		return nil, fmt.Errorf("renounce admin role: %w", err)
	}
	tr, err := treasury.Deploy(tx, call.Self, tl, nil)
	if err != nil {
		return nil, fmt.Errorf("deploy treasury: %w", err)
	}
	id, err := registry.Register(call.Sub(reg), registry.Circle{
		ParentID: params.ParentID,
		Name:     params.Name,
		Governor: gov,
		Timelock: tl,
		Treasury: tr,
		Token:    params.Token,
	})
	if err != nil {
		return nil, err
	}
	return &Result{ID: id, Governor: gov, Timelock: tl, Treasury: tr}, nil
}
