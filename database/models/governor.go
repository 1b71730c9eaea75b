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

type Governor struct {
	Address           common.Address `gorm:"primaryKey;size:20"`
	Name              string         `gorm:"size:128;not null"`
	Token             common.Address `gorm:"size:20;not null"`
	Timelock          common.Address `gorm:"size:20;not null"`
	VotingDelay       uint64         `gorm:"not null"`
	VotingPeriod      uint64         `gorm:"not null"`
	ProposalThreshold types.BigInt   `gorm:"not null"`
	QuorumNumerator   uint64         `gorm:"not null"`
	// Blocks after the vote end during which a succeeded proposal can be
	// queued. Zero disables expiry
	QueueGracePeriod          uint64 `gorm:"not null"`
	AbstainCountsTowardQuorum bool   `gorm:"not null"`
}

func (Governor) TableName() string {
	return "governor"
}

// GovernorCanceller is an account allowed to cancel any proposal
type GovernorCanceller struct {
	Governor common.Address `gorm:"primaryKey;size:20"`
	Account  common.Address `gorm:"primaryKey;size:20"`
}

func (GovernorCanceller) TableName() string {
	return "governor_canceller"
}

type Proposal struct {
	Governor        common.Address `gorm:"primaryKey;size:20"`
	ProposalID      common.Hash    `gorm:"primaryKey;size:32"`
	Proposer        common.Address `gorm:"size:20;index;not null"`
	Description     string         `gorm:"not null"`
	DescriptionHash common.Hash    `gorm:"size:32;not null"`
	VoteStart       uint64         `gorm:"not null"`
	VoteEnd         uint64         `gorm:"not null"`
	QuorumNumerator uint64         `gorm:"not null"`
	ForVotes        types.BigInt   `gorm:"not null"`
	AgainstVotes    types.BigInt   `gorm:"not null"`
	AbstainVotes    types.BigInt   `gorm:"not null"`
	// Timelock operation scheduled by queue
	OperationID common.Hash `gorm:"size:32"`
	Eta         uint64      `gorm:"not null"`
	Queued      bool        `gorm:"not null"`
	Executed    bool        `gorm:"not null"`
	Canceled    bool        `gorm:"not null"`
	Height      uint64      `gorm:"index;not null"`
}

func (Proposal) TableName() string {
	return "proposal"
}

type ProposalAction struct {
	Governor   common.Address `gorm:"primaryKey;size:20"`
	ProposalID common.Hash    `gorm:"primaryKey;size:32"`
	Idx        uint32         `gorm:"primaryKey;autoIncrement:false"`
	Target     common.Address `gorm:"size:20;not null"`
	Value      types.BigInt   `gorm:"not null"`
	Calldata   []byte
}

func (ProposalAction) TableName() string {
	return "proposal_action"
}

type ProposalVote struct {
	Governor   common.Address `gorm:"primaryKey;size:20"`
	ProposalID common.Hash    `gorm:"primaryKey;size:32"`
	Voter      common.Address `gorm:"primaryKey;size:20"`
	Support    uint8          `gorm:"not null"`
	Weight     types.BigInt   `gorm:"not null"`
	Reason     string
	Height     uint64 `gorm:"not null"`
}

func (ProposalVote) TableName() string {
	return "proposal_vote"
}
