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

package metadata

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/plugin"
	"github.com/blinklabs-io/circles/database/types"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Accounts and contracts
	GetAccount(common.Address, types.Txn) (*models.Account, error)
	SetAccount(*models.Account, types.Txn) error
	GetContract(common.Address, types.Txn) (*models.Contract, error)
	AddContract(*models.Contract, types.Txn) error
	GetContracts(string, types.Txn) ([]models.Contract, error)

	// Voting power
	GetToken(common.Address, types.Txn) (*models.Token, error)
	SetToken(*models.Token, types.Txn) error
	GetTokenAccount(
		common.Address, // token
		common.Address, // holder
		types.Txn,
	) (*models.TokenAccount, error)
	SetTokenAccount(*models.TokenAccount, types.Txn) error

	// Registry
	GetRegistry(common.Address, types.Txn) (*models.Registry, error)
	SetRegistry(*models.Registry, types.Txn) error
	AddCircle(*models.Circle, types.Txn) error
	GetCircle(common.Address, uint64, types.Txn) (*models.Circle, error)
	GetCircles(common.Address, types.Txn) ([]models.Circle, error)
	GetCircleChildren(
		common.Address, // registry
		uint64, // parent ID
		types.Txn,
	) ([]models.Circle, error)
	GetFactory(common.Address, types.Txn) (*models.Factory, error)
	SetFactory(*models.Factory, types.Txn) error

	// Governor
	GetGovernor(common.Address, types.Txn) (*models.Governor, error)
	SetGovernor(*models.Governor, types.Txn) error
	SetGovernorCanceller(
		common.Address, // governor
		common.Address, // account
		bool, // enabled
		types.Txn,
	) error
	IsGovernorCanceller(common.Address, common.Address, types.Txn) (bool, error)
	AddProposal(*models.Proposal, []models.ProposalAction, types.Txn) error
	GetProposal(common.Address, common.Hash, types.Txn) (*models.Proposal, error)
	GetProposalActions(
		common.Address,
		common.Hash,
		types.Txn,
	) ([]models.ProposalAction, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetProposals(common.Address, types.Txn) ([]models.Proposal, error)
	AddProposalVote(*models.ProposalVote, types.Txn) error
	GetProposalVote(
		common.Address, // governor
		common.Hash, // proposal ID
		common.Address, // voter
		types.Txn,
	) (*models.ProposalVote, error)

	// Timelock
	GetTimelock(common.Address, types.Txn) (*models.Timelock, error)
	SetTimelock(*models.Timelock, types.Txn) error
	AddTimelockRole(*models.TimelockRole, types.Txn) (bool, error)
	DeleteTimelockRole(*models.TimelockRole, types.Txn) (bool, error)
	HasTimelockRole(
		common.Address, // timelock
		uint8, // role
		common.Address, // account
		types.Txn,
	) (bool, error)
	GetTimelockRoles(common.Address, types.Txn) ([]models.TimelockRole, error)
	SetTimelockOperation(
		*models.TimelockOperation,
		[]models.TimelockCall,
		types.Txn,
	) error
	GetTimelockOperation(
		common.Address,
		common.Hash,
		types.Txn,
	) (*models.TimelockOperation, error)
	GetTimelockCalls(
		common.Address,
		common.Hash,
		types.Txn,
	) ([]models.TimelockCall, error)

	// Treasury
	GetTreasury(common.Address, types.Txn) (*models.Treasury, error)
	SetTreasury(*models.Treasury, types.Txn) error

	// Chain head
	GetTip(types.Txn) (*models.Tip, error)
	SetTip(*models.Tip, types.Txn) error
}

// New starts the named metadata plugin and returns it as a MetadataStore
func New(pluginName string, opts plugin.Options) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName, opts)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
