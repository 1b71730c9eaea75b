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

package devnet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/factory"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
	"github.com/blinklabs-io/circles/votes"
)

// Deployment holds the addresses created by Bootstrap
type Deployment struct {
	Deployer common.Address  `json:"deployer"`
	Token    common.Address  `json:"token"`
	Registry common.Address  `json:"registry"`
	Factory  common.Address  `json:"factory"`
	Root     *factory.Result `json:"root"`
}

// Bootstrap funds the configured accounts and deploys the governance
// contracts in a single ledger transaction
func Bootstrap(
	ctx context.Context,
	ls *ledger.LedgerState,
	cfg *DevNetConfig,
) (*Deployment, error) {
	deployer := cfg.Deployer
	if deployer == (common.Address{}) {
		deployer = DefaultDeployer
	}
	holder := cfg.Token.Holder
	if holder == (common.Address{}) {
		holder = deployer
	}
	ret := &Deployment{Deployer: deployer}
	err := ls.Submit(ctx, deployer, func(tx *ledger.Tx) error {
		for _, alloc := range cfg.Fund {
			if err := tx.Mint(alloc.Address, alloc.Amount.Big()); err != nil {
				return fmt.Errorf("fund %s: %w", alloc.Address.Hex(), err)
			}
		}
		var err error
		ret.Token, err = votes.Deploy(
			tx,
			deployer,
			cfg.Token.Name,
			cfg.Token.Symbol,
			holder,
			cfg.Token.Supply.Big(),
		)
		if err != nil {
			return fmt.Errorf("deploy token: %w", err)
		}
		// Voting power only counts once delegated
		call, err := tx.NewCall(holder, ret.Token, nil)
		if err != nil {
			return err
		}
		if err := votes.Delegate(call, holder); err != nil {
			return err
		}
		ret.Registry, err = registry.Deploy(tx, deployer)
		if err != nil {
			return fmt.Errorf("deploy registry: %w", err)
		}
		ret.Factory, err = factory.Deploy(tx, deployer, ret.Registry)
		if err != nil {
			return fmt.Errorf("deploy factory: %w", err)
		}
		if call, err = tx.NewCall(deployer, ret.Registry, nil); err != nil {
			return err
		}
		if err := registry.SetFactory(call, ret.Factory); err != nil {
			return err
		}
		if call, err = tx.NewCall(deployer, ret.Factory, nil); err != nil {
			return err
		}
		ret.Root, err = factory.CreateCircle(call, factory.Params{
			Name:              cfg.Root.Name,
			Token:             ret.Token,
			VotingDelay:       cfg.Root.VotingDelay,
			VotingPeriod:      cfg.Root.VotingPeriod,
			ProposalThreshold: cfg.Root.ProposalThreshold.Big(),
			QuorumNumerator:   cfg.Root.QuorumNumerator,
			TimelockDelay:     cfg.Root.TimelockDelay,
			QueueGracePeriod:  cfg.Root.QueueGracePeriod,
		})
		if err != nil {
			return fmt.Errorf("create root circle: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}
