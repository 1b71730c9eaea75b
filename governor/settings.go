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

package governor

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
)

// Names of the governance settings reported in GovernorSettingChanged
const (
	SettingVotingDelay       = "votingDelay"
	SettingVotingPeriod      = "votingPeriod"
	SettingProposalThreshold = "proposalThreshold"
	SettingQuorumNumerator   = "quorumNumerator"
	SettingQueueGracePeriod  = "queueGracePeriod"
	SettingAbstainQuorum     = "abstainCountsTowardQuorum"
	SettingCanceller         = "canceller"
)

// onlyGovernance loads the governor and checks that the caller is its
// timelock, so settings only change through executed proposals
func onlyGovernance(call *ledger.CallContext) (*models.Governor, error) {
	g, err := Get(call.Tx, call.Self)
	if err != nil {
		return nil, err
	}
	if call.Caller != g.Timelock {
		return nil, ErrOnlyGovernance
	}
	return g, nil
}

func updateSetting(
	call *ledger.CallContext,
	g *models.Governor,
	setting string,
	oldValue string,
	newValue string,
) error {
	ms, txn := call.Tx.Metadata()
	if err := ms.SetGovernor(g, txn); err != nil {
		return err
	}
	call.Emit(
		event.GovernorSettingChangedEventType,
		event.GovernorSettingChangedEvent{
			Setting:  setting,
			OldValue: oldValue,
			NewValue: newValue,
		},
	)
	return nil
}

func SetVotingDelay(call *ledger.CallContext, delay uint64) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	old := g.VotingDelay
	g.VotingDelay = delay
	return updateSetting(
		call,
		g,
		SettingVotingDelay,
		strconv.FormatUint(old, 10),
		strconv.FormatUint(delay, 10),
	)
}

func SetVotingPeriod(call *ledger.CallContext, period uint64) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	if period == 0 {
		return ErrInvalidVotingPeriod
	}
	old := g.VotingPeriod
	g.VotingPeriod = period
	return updateSetting(
		call,
		g,
		SettingVotingPeriod,
		strconv.FormatUint(old, 10),
		strconv.FormatUint(period, 10),
	)
}

func SetProposalThreshold(call *ledger.CallContext, threshold *big.Int) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	old := g.ProposalThreshold.Big()
	g.ProposalThreshold = types.NewBigInt(threshold)
	return updateSetting(
		call,
		g,
		SettingProposalThreshold,
		old.String(),
		g.ProposalThreshold.String(),
	)
}

// UpdateQuorumNumerator changes the quorum for new proposals. Existing
// proposals keep the numerator they were created with
func UpdateQuorumNumerator(call *ledger.CallContext, numerator uint64) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	if numerator > quorumDenominator {
		return ErrInvalidQuorumFraction
	}
	old := g.QuorumNumerator
	g.QuorumNumerator = numerator
	return updateSetting(
		call,
		g,
		SettingQuorumNumerator,
		strconv.FormatUint(old, 10),
		strconv.FormatUint(numerator, 10),
	)
}

func SetQueueGracePeriod(call *ledger.CallContext, blocks uint64) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	old := g.QueueGracePeriod
	g.QueueGracePeriod = blocks
	return updateSetting(
		call,
		g,
		SettingQueueGracePeriod,
		strconv.FormatUint(old, 10),
		strconv.FormatUint(blocks, 10),
	)
}

func SetAbstainCountsTowardQuorum(call *ledger.CallContext, enabled bool) error {
	g, err := onlyGovernance(call)
	if err != nil {
		return err
	}
	old := g.AbstainCountsTowardQuorum
	g.AbstainCountsTowardQuorum = enabled
	return updateSetting(
		call,
		g,
		SettingAbstainQuorum,
		strconv.FormatBool(old),
		strconv.FormatBool(enabled),
	)
}

// SetProposalCanceller allows or disallows an account to cancel any
// proposal of this governor
func SetProposalCanceller(
	call *ledger.CallContext,
	account common.Address,
	enabled bool,
) error {
	if _, err := onlyGovernance(call); err != nil {
		return err
	}
	ms, txn := call.Tx.Metadata()
	if err := ms.SetGovernorCanceller(call.Self, account, enabled, txn); err != nil {
		return err
	}
	call.Emit(
		event.GovernorSettingChangedEventType,
		event.GovernorSettingChangedEvent{
			Setting:  SettingCanceller,
			OldValue: account.Hex(),
			NewValue: strconv.FormatBool(enabled),
		},
	)
	return nil
}

// IsProposalCanceller reports whether an account is a designated canceller
func IsProposalCanceller(
	tx *ledger.Tx,
	governor common.Address,
	account common.Address,
) (bool, error) {
	ms, txn := tx.Metadata()
	return ms.IsGovernorCanceller(governor, account, txn)
}
