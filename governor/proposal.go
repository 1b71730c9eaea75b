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
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/ledger"
)

// Proposal is the read view of a stored proposal with its derived state
type Proposal struct {
	ID              common.Hash      `json:"id"`
	Governor        common.Address   `json:"governor"`
	Proposer        common.Address   `json:"proposer"`
	Description     string           `json:"description"`
	DescriptionHash common.Hash      `json:"descriptionHash"`
	Targets         []common.Address `json:"targets"`
	Values          []*big.Int       `json:"values"`
	Calldatas       []hexutil.Bytes  `json:"calldatas"`
	VoteStart       uint64           `json:"voteStart"`
	VoteEnd         uint64           `json:"voteEnd"`
	QuorumNumerator uint64           `json:"quorumNumerator"`
	ForVotes        *big.Int         `json:"forVotes"`
	AgainstVotes    *big.Int         `json:"againstVotes"`
	AbstainVotes    *big.Int         `json:"abstainVotes"`
	Eta             uint64           `json:"eta,omitempty"`
	State           ProposalState    `json:"state"`
	Height          uint64           `json:"height"`
}

// Batch returns the calls of the proposal
func (p *Proposal) Batch() ledger.Batch {
	ret := ledger.Batch{
		Targets: p.Targets,
		Values:  p.Values,
	}
	for _, data := range p.Calldatas {
		ret.Calldatas = append(ret.Calldatas, data)
	}
	return ret
}

func loadProposal(
	tx *ledger.Tx,
	g *models.Governor,
	p *models.Proposal,
) (*Proposal, error) {
	state, err := proposalState(tx, g, p)
	if err != nil {
		return nil, err
	}
	ms, txn := tx.Metadata()
	actions, err := ms.GetProposalActions(p.Governor, p.ProposalID, txn)
	if err != nil {
		return nil, err
	}
	ret := &Proposal{
		ID:              p.ProposalID,
		Governor:        p.Governor,
		Proposer:        p.Proposer,
		Description:     p.Description,
		DescriptionHash: p.DescriptionHash,
		VoteStart:       p.VoteStart,
		VoteEnd:         p.VoteEnd,
		QuorumNumerator: p.QuorumNumerator,
		ForVotes:        p.ForVotes.Big(),
		AgainstVotes:    p.AgainstVotes.Big(),
		AbstainVotes:    p.AbstainVotes.Big(),
		Eta:             p.Eta,
		State:           state,
		Height:          p.Height,
	}
	for _, action := range actions {
		ret.Targets = append(ret.Targets, action.Target)
		ret.Values = append(ret.Values, action.Value.Big())
		ret.Calldatas = append(ret.Calldatas, action.Calldata)
	}
	return ret, nil
}

// GetProposal returns a proposal with its calls and current state
func GetProposal(
	tx *ledger.Tx,
	governor common.Address,
	id common.Hash,
) (*Proposal, error) {
	g, err := Get(tx, governor)
	if err != nil {
		return nil, err
	}
	p, err := getProposal(tx, governor, id)
	if err != nil {
		return nil, err
	}
	return loadProposal(tx, g, p)
}

// Proposals lists the proposals of a governor in creation order
func Proposals(tx *ledger.Tx, governor common.Address) ([]*Proposal, error) {
	g, err := Get(tx, governor)
	if err != nil {
		return nil, err
	}
	ms, txn := tx.Metadata()
	rows, err := ms.GetProposals(governor, txn)
	if err != nil {
		return nil, err
	}
	ret := make([]*Proposal, 0, len(rows))
	for i := range rows {
		p, err := loadProposal(tx, g, &rows[i])
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

// ProposalVotes returns the against, for and abstain tallies
func ProposalVotes(
	tx *ledger.Tx,
	governor common.Address,
	id common.Hash,
) (againstVotes, forVotes, abstainVotes *big.Int, err error) {
	p, err := getProposal(tx, governor, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return p.AgainstVotes.Big(), p.ForVotes.Big(), p.AbstainVotes.Big(), nil
}

// HasVoted reports whether an account voted on a proposal
func HasVoted(
	tx *ledger.Tx,
	governor common.Address,
	id common.Hash,
	account common.Address,
) (bool, error) {
	if _, err := getProposal(tx, governor, id); err != nil {
		return false, err
	}
	ms, txn := tx.Metadata()
	_, err := ms.GetProposalVote(governor, id, account, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
