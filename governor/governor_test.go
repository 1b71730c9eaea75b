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

package governor_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/governor"
	"github.com/blinklabs-io/circles/internal/test/testutil"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/timelock"
	"github.com/blinklabs-io/circles/votes"
)

const (
	votingDelay   = 1
	votingPeriod  = 5
	timelockDelay = 100
)

var (
	deployer  = testutil.Address(1)
	alice     = testutil.Address(2) // 60 votes
	bob       = testutil.Address(3) // 30 votes
	carol     = testutil.Address(4) // 10 votes
	dave      = testutil.Address(5) // no votes
	recipient = testutil.Address(6)
)

type fixture struct {
	ls       *ledger.LedgerState
	token    common.Address
	timelock common.Address
	governor common.Address
	batch    ledger.Batch
	desc     string
}

func setup(t *testing.T, modify func(*governor.Config)) *fixture {
	t.Helper()
	f := &fixture{
		ls:   testutil.NewLedger(t),
		desc: "Pay the recipient",
	}
	f.batch = ledger.Batch{
		Targets:   []common.Address{recipient},
		Values:    []*big.Int{big.NewInt(1)},
		Calldatas: [][]byte{nil},
	}
	testutil.Submit(t, f.ls, deployer, func(tx *ledger.Tx) error {
		var err error
		f.token, err = votes.Deploy(tx, deployer, "Gov", "GOV", alice, big.NewInt(100))
		if err != nil {
			return err
		}
		for _, move := range []struct {
			to     common.Address
			amount int64
		}{{bob, 30}, {carol, 10}} {
			call, err := tx.NewCall(alice, f.token, nil)
			if err != nil {
				return err
			}
			if err := votes.Transfer(call, move.to, big.NewInt(move.amount)); err != nil {
				return err
			}
		}
		for _, holder := range []common.Address{alice, bob, carol} {
			call, err := tx.NewCall(holder, f.token, nil)
			if err != nil {
				return err
			}
			if err := votes.Delegate(call, holder); err != nil {
				return err
			}
		}
		f.timelock, err = timelock.Deploy(tx, deployer, timelock.Config{
			MinDelay:    timelockDelay,
			GracePeriod: timelock.DefaultGracePeriod,
			Admin:       deployer,
			Executors:   []common.Address{{}},
		})
		if err != nil {
			return err
		}
		cfg := governor.Config{
			Name:                      "Test",
			Token:                     f.token,
			Timelock:                  f.timelock,
			VotingDelay:               votingDelay,
			VotingPeriod:              votingPeriod,
			QuorumNumerator:           4,
			AbstainCountsTowardQuorum: true,
		}
		if modify != nil {
			modify(&cfg)
		}
		f.governor, err = governor.Deploy(tx, deployer, cfg)
		if err != nil {
			return err
		}
		call, err := tx.NewCall(deployer, f.timelock, nil)
		if err != nil {
			return err
		}
		for _, role := range []timelock.Role{timelock.RoleProposer, timelock.RoleCanceller} {
			if err := timelock.GrantRole(call, role, f.governor); err != nil {
				return err
			}
		}
		return tx.Mint(f.timelock, big.NewInt(1000))
	})
	return f
}

func (f *fixture) call(
	from common.Address,
	fn func(*ledger.CallContext) error,
) error {
	return f.ls.Submit(context.Background(), from, func(tx *ledger.Tx) error {
		call, err := tx.NewCall(from, f.governor, nil)
		if err != nil {
			return err
		}
		return fn(call)
	})
}

func (f *fixture) propose(from common.Address, batch ledger.Batch, desc string) (common.Hash, error) {
	var id common.Hash
	err := f.call(from, func(call *ledger.CallContext) error {
		var err error
		id, err = governor.Propose(call, batch, desc)
		return err
	})
	return id, err
}

func (f *fixture) vote(from common.Address, id common.Hash, support governor.VoteType) error {
	return f.call(from, func(call *ledger.CallContext) error {
		_, err := governor.CastVote(call, id, support, "")
		return err
	})
}

func (f *fixture) queue(batch ledger.Batch, desc string) error {
	return f.call(dave, func(call *ledger.CallContext) error {
		_, err := governor.Queue(call, batch, governor.DescriptionHash(desc))
		return err
	})
}

func (f *fixture) execute(batch ledger.Batch, desc string) error {
	return f.call(dave, func(call *ledger.CallContext) error {
		_, err := governor.Execute(call, batch, governor.DescriptionHash(desc))
		return err
	})
}

func (f *fixture) cancel(from common.Address, id common.Hash) error {
	return f.call(from, func(call *ledger.CallContext) error {
		return governor.Cancel(call, id)
	})
}

func (f *fixture) state(t *testing.T, id common.Hash) governor.ProposalState {
	t.Helper()
	var ret governor.ProposalState
	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		var err error
		ret, err = governor.State(tx, f.governor, id)
		return err
	})
	return ret
}

// passVote proposes the fixture batch, votes it through and ends the
// voting period
func (f *fixture) passVote(t *testing.T, batch ledger.Batch, desc string) common.Hash {
	t.Helper()
	id, err := f.propose(alice, batch, desc)
	require.NoError(t, err)
	testutil.Mine(t, f.ls, votingDelay)
	require.NoError(t, f.vote(alice, id, governor.VoteFor))
	testutil.Mine(t, f.ls, votingPeriod)
	require.Equal(t, governor.ProposalSucceeded, f.state(t, id))
	return id
}

func TestProposalLifecycle(t *testing.T) {
	f := setup(t, nil)
	id, err := f.propose(alice, f.batch, f.desc)
	require.NoError(t, err)
	expected, err := governor.HashProposal(f.batch, governor.DescriptionHash(f.desc))
	require.NoError(t, err)
	assert.Equal(t, expected, id)
	assert.Equal(t, governor.ProposalPending, f.state(t, id))

	err = f.vote(alice, id, governor.VoteFor)
	require.ErrorIs(t, err, governor.ErrNotActive)

	testutil.Mine(t, f.ls, votingDelay)
	assert.Equal(t, governor.ProposalActive, f.state(t, id))
	require.NoError(t, f.vote(alice, id, governor.VoteFor))
	require.NoError(t, f.vote(bob, id, governor.VoteAgainst))
	require.NoError(t, f.vote(carol, id, governor.VoteAbstain))
	err = f.vote(alice, id, governor.VoteAgainst)
	require.ErrorIs(t, err, governor.ErrAlreadyVoted)
	err = f.vote(dave, id, governor.VoteType(3))
	require.ErrorIs(t, err, governor.ErrInvalidVoteType)

	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		against, forVotes, abstain, err := governor.ProposalVotes(tx, f.governor, id)
		require.NoError(t, err)
		assert.Equal(t, "30", against.String())
		assert.Equal(t, "60", forVotes.String())
		assert.Equal(t, "10", abstain.String())
		voted, err := governor.HasVoted(tx, f.governor, id, bob)
		require.NoError(t, err)
		assert.True(t, voted)
		voted, err = governor.HasVoted(tx, f.governor, id, dave)
		require.NoError(t, err)
		assert.False(t, voted)
		return nil
	})

	err = f.queue(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrNotSucceeded)

	testutil.Mine(t, f.ls, votingPeriod)
	assert.Equal(t, governor.ProposalSucceeded, f.state(t, id))
	err = f.execute(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrNotQueued)

	require.NoError(t, f.queue(f.batch, f.desc))
	assert.Equal(t, governor.ProposalQueued, f.state(t, id))
	err = f.execute(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrTooEarly)

	require.NoError(t, f.ls.IncreaseTime(context.Background(), timelockDelay))
	require.NoError(t, f.execute(f.batch, f.desc))
	assert.Equal(t, governor.ProposalExecuted, f.state(t, id))

	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		bal, err := tx.Balance(recipient)
		require.NoError(t, err)
		assert.Equal(t, "1", bal.String())
		p, err := governor.GetProposal(tx, f.governor, id)
		require.NoError(t, err)
		assert.Equal(t, alice, p.Proposer)
		assert.Equal(t, f.desc, p.Description)
		assert.Equal(t, f.batch.Targets, p.Targets)
		assert.NotZero(t, p.Eta)
		assert.Equal(t, governor.ProposalExecuted, p.State)
		return nil
	})
}

func TestProposeErrors(t *testing.T) {
	f := setup(t, func(cfg *governor.Config) {
		cfg.ProposalThreshold = big.NewInt(20)
	})
	_, err := f.propose(carol, f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrInsufficientProposerVotes)
	assert.Equal(t, ledger.KindResource, ledger.KindOf(err))

	_, err = f.propose(alice, ledger.Batch{}, f.desc)
	require.ErrorIs(t, err, governor.ErrInvalidProposalLength)
	_, err = f.propose(alice, ledger.Batch{
		Targets:   []common.Address{recipient},
		Values:    []*big.Int{},
		Calldatas: [][]byte{nil},
	}, f.desc)
	require.ErrorIs(t, err, governor.ErrInvalidProposalLength)

	_, err = f.propose(bob, f.batch, f.desc)
	require.NoError(t, err)
	// Identical content collides with the existing proposal
	_, err = f.propose(alice, f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrAlreadyProposed)
	_, err = f.propose(alice, f.batch, f.desc+" again")
	require.NoError(t, err)

	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		_, err := governor.State(tx, f.governor, common.HexToHash("0x1234"))
		require.ErrorIs(t, err, governor.ErrNonexistentProposal)
		assert.Equal(t, ledger.KindLookup, ledger.KindOf(err))
		list, err := governor.Proposals(tx, f.governor)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, bob, list[0].Proposer)
		assert.Equal(t, alice, list[1].Proposer)
		return nil
	})
}

func TestVoteWeightIsFixedAtSnapshot(t *testing.T) {
	f := setup(t, nil)
	id, err := f.propose(alice, f.batch, f.desc)
	require.NoError(t, err)
	testutil.Mine(t, f.ls, votingDelay)

	// Tokens moved after the snapshot do not carry their votes
	testutil.Submit(t, f.ls, carol, func(tx *ledger.Tx) error {
		call, err := tx.NewCall(carol, f.token, nil)
		if err != nil {
			return err
		}
		return votes.Transfer(call, dave, big.NewInt(10))
	})
	testutil.Submit(t, f.ls, dave, func(tx *ledger.Tx) error {
		call, err := tx.NewCall(dave, f.token, nil)
		if err != nil {
			return err
		}
		return votes.Delegate(call, dave)
	})
	require.NoError(t, f.vote(carol, id, governor.VoteFor))
	require.NoError(t, f.vote(dave, id, governor.VoteFor))
	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		_, forVotes, _, err := governor.ProposalVotes(tx, f.governor, id)
		require.NoError(t, err)
		assert.Equal(t, "10", forVotes.String())
		return nil
	})
}

func TestDefeated(t *testing.T) {
	t.Run("against wins", func(t *testing.T) {
		f := setup(t, nil)
		id, err := f.propose(alice, f.batch, f.desc)
		require.NoError(t, err)
		testutil.Mine(t, f.ls, votingDelay)
		require.NoError(t, f.vote(bob, id, governor.VoteFor))
		require.NoError(t, f.vote(alice, id, governor.VoteAgainst))
		testutil.Mine(t, f.ls, votingPeriod)
		assert.Equal(t, governor.ProposalDefeated, f.state(t, id))
	})
	t.Run("quorum not reached", func(t *testing.T) {
		f := setup(t, func(cfg *governor.Config) { cfg.QuorumNumerator = 50 })
		id, err := f.propose(alice, f.batch, f.desc)
		require.NoError(t, err)
		testutil.Mine(t, f.ls, votingDelay)
		require.NoError(t, f.vote(bob, id, governor.VoteFor))
		testutil.Mine(t, f.ls, votingPeriod)
		assert.Equal(t, governor.ProposalDefeated, f.state(t, id))
	})
}

func TestAbstainQuorumPolicy(t *testing.T) {
	for _, counts := range []bool{true, false} {
		f := setup(t, func(cfg *governor.Config) {
			cfg.QuorumNumerator = 65
			cfg.AbstainCountsTowardQuorum = counts
		})
		id, err := f.propose(alice, f.batch, f.desc)
		require.NoError(t, err)
		testutil.Mine(t, f.ls, votingDelay)
		require.NoError(t, f.vote(alice, id, governor.VoteFor))
		require.NoError(t, f.vote(carol, id, governor.VoteAbstain))
		testutil.Mine(t, f.ls, votingPeriod)
		testutil.View(t, f.ls, func(tx *ledger.Tx) error {
			q, err := governor.Quorum(tx, f.governor, tx.Height()-1)
			require.NoError(t, err)
			assert.Equal(t, "65", q.String())
			return nil
		})
		if counts {
			assert.Equal(t, governor.ProposalSucceeded, f.state(t, id))
		} else {
			assert.Equal(t, governor.ProposalDefeated, f.state(t, id))
		}
	}
}

func TestQueueGracePeriod(t *testing.T) {
	f := setup(t, func(cfg *governor.Config) { cfg.QueueGracePeriod = 2 })
	id := f.passVote(t, f.batch, f.desc)
	testutil.Mine(t, f.ls, 2)
	assert.Equal(t, governor.ProposalExpired, f.state(t, id))
	err := f.queue(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrNotSucceeded)
}

func TestQueuedProposalExpiresAfterTimelockGrace(t *testing.T) {
	f := setup(t, nil)
	id := f.passVote(t, f.batch, f.desc)
	require.NoError(t, f.queue(f.batch, f.desc))
	assert.Equal(t, governor.ProposalQueued, f.state(t, id))

	require.NoError(t, f.ls.IncreaseTime(
		context.Background(),
		timelockDelay+timelock.DefaultGracePeriod+1,
	))
	assert.Equal(t, governor.ProposalExpired, f.state(t, id))
	err := f.execute(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrNotQueued)
	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		bal, err := tx.Balance(recipient)
		require.NoError(t, err)
		assert.Equal(t, "0", bal.String())
		return nil
	})
}

func TestCancel(t *testing.T) {
	f := setup(t, nil)
	id, err := f.propose(alice, f.batch, f.desc)
	require.NoError(t, err)

	err = f.cancel(bob, id)
	require.ErrorIs(t, err, governor.ErrUnauthorizedCanceller)
	require.NoError(t, f.cancel(alice, id))
	assert.Equal(t, governor.ProposalCanceled, f.state(t, id))
	testutil.Mine(t, f.ls, votingDelay)
	err = f.vote(alice, id, governor.VoteFor)
	require.ErrorIs(t, err, governor.ErrNotActive)
	err = f.cancel(alice, id)
	require.ErrorIs(t, err, governor.ErrNotCancelable)
}

func TestCancelQueued(t *testing.T) {
	f := setup(t, nil)
	id := f.passVote(t, f.batch, f.desc)
	require.NoError(t, f.queue(f.batch, f.desc))
	require.NoError(t, f.cancel(alice, id))
	assert.Equal(t, governor.ProposalCanceled, f.state(t, id))

	require.NoError(t, f.ls.IncreaseTime(context.Background(), timelockDelay))
	err := f.execute(f.batch, f.desc)
	require.ErrorIs(t, err, governor.ErrNotQueued)
	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		p, err := governor.GetProposal(tx, f.governor, id)
		require.NoError(t, err)
		salt := governor.DescriptionHash(f.desc)
		for i := range f.governor {
			salt[i] ^= f.governor[i]
		}
		opID, err := timelock.HashOperationBatch(p.Batch(), common.Hash{}, salt)
		require.NoError(t, err)
		state, err := timelock.GetOperationState(tx, f.timelock, opID)
		require.NoError(t, err)
		assert.Equal(t, timelock.OperationCanceled, state)
		return nil
	})
}

func TestGovernanceSettings(t *testing.T) {
	f := setup(t, nil)
	err := f.call(alice, func(call *ledger.CallContext) error {
		return governor.UpdateQuorumNumerator(call, 10)
	})
	require.ErrorIs(t, err, governor.ErrOnlyGovernance)

	quorum, err := governor.ABI.Pack("updateQuorumNumerator", uint64(10))
	require.NoError(t, err)
	canceller, err := governor.ABI.Pack("setProposalCanceller", dave, true)
	require.NoError(t, err)
	period, err := governor.ABI.Pack("setVotingPeriod", uint64(0))
	require.NoError(t, err)

	batch := ledger.Batch{
		Targets:   []common.Address{f.governor, f.governor},
		Values:    []*big.Int{nil, nil},
		Calldatas: [][]byte{quorum, canceller},
	}
	f.passVote(t, batch, "settings")
	require.NoError(t, f.queue(batch, "settings"))
	require.NoError(t, f.ls.IncreaseTime(context.Background(), timelockDelay))
	require.NoError(t, f.execute(batch, "settings"))

	testutil.View(t, f.ls, func(tx *ledger.Tx) error {
		g, err := governor.Get(tx, f.governor)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), g.QuorumNumerator)
		ok, err := governor.IsProposalCanceller(tx, f.governor, dave)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})

	// The designated canceller may cancel proposals of others
	id, err := f.propose(bob, f.batch, f.desc)
	require.NoError(t, err)
	require.NoError(t, f.cancel(dave, id))

	// Invalid settings fail the whole execution
	bad := ledger.Batch{
		Targets:   []common.Address{f.governor},
		Values:    []*big.Int{nil},
		Calldatas: [][]byte{period},
	}
	f.passVote(t, bad, "bad settings")
	require.NoError(t, f.queue(bad, "bad settings"))
	require.NoError(t, f.ls.IncreaseTime(context.Background(), timelockDelay))
	err = f.execute(bad, "bad settings")
	require.ErrorIs(t, err, governor.ErrInvalidVotingPeriod)
}

func TestContractDispatch(t *testing.T) {
	f := setup(t, nil)
	id, err := f.propose(alice, f.batch, f.desc)
	require.NoError(t, err)
	read := func(method string, args ...any) []any {
		data, err := governor.ABI.Pack(method, args...)
		require.NoError(t, err)
		ret, err := f.ls.StaticCall(context.Background(), dave, f.governor, data)
		require.NoError(t, err)
		out, err := governor.ABI.Unpack(method, ret)
		require.NoError(t, err)
		return out
	}
	pid := governor.ProposalIDToBig(id)
	assert.Equal(t, alice, read("proposalProposer", pid)[0])
	snapshot := read("proposalSnapshot", pid)[0].(uint64)
	deadline := read("proposalDeadline", pid)[0].(uint64)
	assert.Equal(t, uint64(votingPeriod), deadline-snapshot)
	assert.Equal(t, uint8(governor.ProposalPending), read("state", pid)[0])
	assert.Equal(t, f.timelock, read("timelock")[0])
	assert.Equal(t, uint64(4), read("quorumNumerator")[0])
	hashed := read(
		"hashProposal",
		f.batch.Targets,
		f.batch.Values,
		f.batch.Calldatas,
		[32]byte(governor.DescriptionHash(f.desc)),
	)[0].(*big.Int)
	assert.Equal(t, pid.String(), hashed.String())
}
