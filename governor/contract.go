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

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/votes"
)

var ABI = ledger.MustParseABI(`[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"timelock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"clock","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"votingDelay","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"votingPeriod","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"proposalThreshold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"quorumNumerator","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"quorumDenominator","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"quorum","stateMutability":"view","inputs":[{"name":"timepoint","type":"uint64"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"timepoint","type":"uint64"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hashProposal","stateMutability":"pure","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"calldatas","type":"bytes[]"},
		{"name":"descriptionHash","type":"bytes32"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"state","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"proposalSnapshot","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"proposalDeadline","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"proposalProposer","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"proposalEta","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"proposalVotes","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[
		{"name":"againstVotes","type":"uint256"},
		{"name":"forVotes","type":"uint256"},
		{"name":"abstainVotes","type":"uint256"}
	]},
	{"type":"function","name":"hasVoted","stateMutability":"view","inputs":[{"name":"proposalId","type":"uint256"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"propose","stateMutability":"nonpayable","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"calldatas","type":"bytes[]"},
		{"name":"description","type":"string"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"castVote","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"uint8"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"castVoteWithReason","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"},{"name":"support","type":"uint8"},{"name":"reason","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"queue","stateMutability":"nonpayable","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"calldatas","type":"bytes[]"},
		{"name":"descriptionHash","type":"bytes32"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"execute","stateMutability":"payable","inputs":[
		{"name":"targets","type":"address[]"},
		{"name":"values","type":"uint256[]"},
		{"name":"calldatas","type":"bytes[]"},
		{"name":"descriptionHash","type":"bytes32"}
	],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"proposalId","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setVotingDelay","stateMutability":"nonpayable","inputs":[{"name":"newVotingDelay","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setVotingPeriod","stateMutability":"nonpayable","inputs":[{"name":"newVotingPeriod","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setProposalThreshold","stateMutability":"nonpayable","inputs":[{"name":"newProposalThreshold","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"updateQuorumNumerator","stateMutability":"nonpayable","inputs":[{"name":"newQuorumNumerator","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setQueueGracePeriod","stateMutability":"nonpayable","inputs":[{"name":"blocks","type":"uint64"}],"outputs":[]},
	{"type":"function","name":"setAbstainCountsTowardQuorum","stateMutability":"nonpayable","inputs":[{"name":"enabled","type":"bool"}],"outputs":[]},
	{"type":"function","name":"setProposalCanceller","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"enabled","type":"bool"}],"outputs":[]}
]`)

// ProposalIDToBig converts a proposal id to its uint256 ABI form
func ProposalIDToBig(id common.Hash) *big.Int {
	return new(big.Int).SetBytes(id[:])
}

type Contract struct{}

func init() {
	ledger.RegisterContract(Contract{})
}

func (Contract) Kind() string {
	return ledger.KindGovernor
}

func (Contract) ABI() *abi.ABI {
	return ABI
}

func batchArgs(a ledger.Args) ledger.Batch {
	return ledger.Batch{
		Targets:   a.Addresses(0),
		Values:    a.Bigs(1),
		Calldatas: a.BytesSlice(2),
	}
}

func idResult(id common.Hash, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	return []any{ProposalIDToBig(id)}, nil
}

func (Contract) Invoke(
	call *ledger.CallContext,
	method *abi.Method,
	args []any,
) ([]any, error) {
	a := ledger.Args(args)
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return nil, err
	}
	proposalID := func(i int) common.Hash {
		return common.BigToHash(a.Big(i))
	}
	switch method.Name {
	case "name":
		return []any{g.Name}, nil
	case "token":
		return []any{g.Token}, nil
	case "timelock":
		return []any{g.Timelock}, nil
	case "clock":
		return []any{tx.Height()}, nil
	case "votingDelay":
		return []any{g.VotingDelay}, nil
	case "votingPeriod":
		return []any{g.VotingPeriod}, nil
	case "proposalThreshold":
		return []any{g.ProposalThreshold.Big()}, nil
	case "quorumNumerator":
		return []any{g.QuorumNumerator}, nil
	case "quorumDenominator":
		return []any{uint64(quorumDenominator)}, nil
	case "quorum":
		return ledger.Single(Quorum(tx, call.Self, a.Uint64(0)))
	case "getVotes":
		return ledger.Single(votes.GetPastVotes(tx, g.Token, a.Address(0), a.Uint64(1)))
	case "hashProposal":
		return idResult(HashProposal(batchArgs(a), a.Hash(3)))
	case "state":
		state, err := State(tx, call.Self, proposalID(0))
		if err != nil {
			return nil, err
		}
		return []any{uint8(state)}, nil
	case "proposalSnapshot", "proposalDeadline", "proposalProposer", "proposalEta":
		p, err := getProposal(tx, call.Self, proposalID(0))
		if err != nil {
			return nil, err
		}
		switch method.Name {
		case "proposalSnapshot":
			return []any{p.VoteStart}, nil
		case "proposalDeadline":
			return []any{p.VoteEnd}, nil
		case "proposalProposer":
			return []any{p.Proposer}, nil
		default:
			return []any{p.Eta}, nil
		}
	case "proposalVotes":
		againstVotes, forVotes, abstainVotes, err := ProposalVotes(tx, call.Self, proposalID(0))
		if err != nil {
			return nil, err
		}
		return []any{againstVotes, forVotes, abstainVotes}, nil
	case "hasVoted":
		return ledger.Single(HasVoted(tx, call.Self, proposalID(0), a.Address(1)))
	case "propose":
		return idResult(Propose(call, batchArgs(a), a.String(3)))
	case "castVote":
		return ledger.Single(CastVote(call, proposalID(0), VoteType(a.Uint8(1)), ""))
	case "castVoteWithReason":
		return ledger.Single(CastVote(call, proposalID(0), VoteType(a.Uint8(1)), a.String(2)))
	case "queue":
		return idResult(Queue(call, batchArgs(a), a.Hash(3)))
	case "execute":
		return idResult(Execute(call, batchArgs(a), a.Hash(3)))
	case "cancel":
		return nil, Cancel(call, proposalID(0))
	case "setVotingDelay":
		return nil, SetVotingDelay(call, a.Uint64(0))
	case "setVotingPeriod":
		return nil, SetVotingPeriod(call, a.Uint64(0))
	case "setProposalThreshold":
		return nil, SetProposalThreshold(call, a.Big(0))
	case "updateQuorumNumerator":
		return nil, UpdateQuorumNumerator(call, a.Uint64(0))
	case "setQueueGracePeriod":
		return nil, SetQueueGracePeriod(call, a.Uint64(0))
	case "setAbstainCountsTowardQuorum":
		return nil, SetAbstainCountsTowardQuorum(call, a.Bool(0))
	case "setProposalCanceller":
		return nil, SetProposalCanceller(call, a.Address(0), a.Bool(1))
	}
	return nil, ledger.ErrUnknownSelector
}
