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

// Package governor implements the proposal state machine of a circle.
// Proposals are voted on with a voting power token and executed through
// the circle's timelock
package governor

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/timelock"
	"github.com/blinklabs-io/circles/votes"
)

const quorumDenominator = 100

// DefaultQueueGracePeriod is two weeks of 12 second blocks
const DefaultQueueGracePeriod = 14 * 24 * 60 * 60 / 12

var (
	ErrOnlyGovernance            = ledger.NewError(ledger.KindAuthorization, "OnlyGovernance")
	ErrUnauthorizedCanceller     = ledger.NewError(ledger.KindAuthorization, "UnauthorizedCanceller")
	ErrInsufficientProposerVotes = ledger.NewError(ledger.KindResource, "InsufficientProposerVotes")
	ErrAlreadyProposed           = ledger.NewError(ledger.KindPrecondition, "AlreadyProposed")
	ErrNotActive                 = ledger.NewError(ledger.KindPrecondition, "NotActive")
	ErrNotSucceeded              = ledger.NewError(ledger.KindPrecondition, "NotSucceeded")
	ErrNotQueued                 = ledger.NewError(ledger.KindPrecondition, "NotQueued")
	ErrTooEarly                  = ledger.NewError(ledger.KindPrecondition, "TooEarly")
	ErrAlreadyVoted              = ledger.NewError(ledger.KindPrecondition, "AlreadyVoted")
	ErrNotCancelable             = ledger.NewError(ledger.KindPrecondition, "NotCancelable")
	ErrInvalidVoteType           = ledger.NewError(ledger.KindInvalid, "InvalidVoteType")
	ErrInvalidProposalLength     = ledger.NewError(ledger.KindInvalid, "InvalidProposalLength")
	ErrInvalidVotingPeriod       = ledger.NewError(ledger.KindInvalid, "InvalidVotingPeriod")
	ErrInvalidQuorumFraction     = ledger.NewError(ledger.KindInvalid, "InvalidQuorumFraction")
	ErrNonexistentProposal       = ledger.NewError(ledger.KindLookup, "NonexistentProposal")
	ErrGovernorNotFound          = ledger.NewError(ledger.KindLookup, "GovernorNotFound")
)

// VoteType is the support value of a vote
type VoteType uint8

const (
	VoteAgainst VoteType = iota
	VoteFor
	VoteAbstain
)

// ProposalState is derived on every read from the head position and the
// proposal flags
type ProposalState uint8

const (
	ProposalPending ProposalState = iota
	ProposalActive
	ProposalCanceled
	ProposalDefeated
	ProposalSucceeded
	ProposalQueued
	ProposalExpired
	ProposalExecuted
)

var proposalStateNames = []string{
	"Pending",
	"Active",
	"Canceled",
	"Defeated",
	"Succeeded",
	"Queued",
	"Expired",
	"Executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return fmt.Sprintf("ProposalState(%d)", uint8(s))
}

func (s ProposalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config describes a new governor
type Config struct {
	Name              string
	Token             common.Address
	Timelock          common.Address
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold *big.Int
	QuorumNumerator   uint64
	// QueueGracePeriod is the number of blocks after the vote end during
	// which a succeeded proposal can be queued. Zero never expires
	QueueGracePeriod          uint64
	AbstainCountsTowardQuorum bool
}

// Validate checks the voting parameters
func (c Config) Validate() error {
	if c.VotingPeriod == 0 {
		return ErrInvalidVotingPeriod
	}
	if c.QuorumNumerator > quorumDenominator {
		return ErrInvalidQuorumFraction
	}
	return nil
}

// Deploy creates a governor bound to a token and a timelock
func Deploy(
	tx *ledger.Tx,
	deployer common.Address,
	cfg Config,
) (common.Address, error) {
	if err := cfg.Validate(); err != nil {
		return common.Address{}, err
	}
	addr, err := tx.Deploy(deployer, ledger.KindGovernor)
	if err != nil {
		return common.Address{}, err
	}
	ms, txn := tx.Metadata()
	if err := ms.SetGovernor(
		&models.Governor{
			Address:                   addr,
			Name:                      cfg.Name,
			Token:                     cfg.Token,
			Timelock:                  cfg.Timelock,
			VotingDelay:               cfg.VotingDelay,
			VotingPeriod:              cfg.VotingPeriod,
			ProposalThreshold:         types.NewBigInt(cfg.ProposalThreshold),
			QuorumNumerator:           cfg.QuorumNumerator,
			QueueGracePeriod:          cfg.QueueGracePeriod,
			AbstainCountsTowardQuorum: cfg.AbstainCountsTowardQuorum,
		},
		txn,
	); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// Get returns the governor record at an address
func Get(tx *ledger.Tx, addr common.Address) (*models.Governor, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetGovernor(addr, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, ErrGovernorNotFound
		}
		return nil, err
	}
	return ret, nil
}

// HashProposal returns the content-addressed id of a proposal
func HashProposal(batch ledger.Batch, descriptionHash common.Hash) (common.Hash, error) {
	return ledger.HashBatch(batch, descriptionHash)
}

// DescriptionHash returns the keccak256 hash of a proposal description
func DescriptionHash(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// timelockSalt places the governor address over the leading bytes of the
// description hash so that governors sharing a timelock do not collide
func timelockSalt(governor common.Address, descriptionHash common.Hash) common.Hash {
	ret := descriptionHash
	for i := range governor {
		ret[i] ^= governor[i]
	}
	return ret
}

func getProposal(
	tx *ledger.Tx,
	governor common.Address,
	id common.Hash,
) (*models.Proposal, error) {
	ms, txn := tx.Metadata()
	ret, err := ms.GetProposal(governor, id, txn)
	if err != nil {
		if errors.Is(err, types.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNonexistentProposal, id.Hex())
		}
		return nil, err
	}
	return ret, nil
}

func setProposal(tx *ledger.Tx, p *models.Proposal) error {
	ms, txn := tx.Metadata()
	return ms.SetProposal(p, txn)
}

// Quorum returns the number of votes required at a past block for the
// current quorum numerator
func Quorum(tx *ledger.Tx, governor common.Address, key uint64) (*big.Int, error) {
	g, err := Get(tx, governor)
	if err != nil {
		return nil, err
	}
	return quorum(tx, g, g.QuorumNumerator, key)
}

func quorum(
	tx *ledger.Tx,
	g *models.Governor,
	numerator uint64,
	key uint64,
) (*big.Int, error) {
	supply, err := votes.GetPastTotalSupply(tx, g.Token, key)
	if err != nil {
		return nil, err
	}
	ret := new(big.Int).Mul(supply, new(big.Int).SetUint64(numerator))
	return ret.Quo(ret, big.NewInt(quorumDenominator)), nil
}

func proposalState(
	tx *ledger.Tx,
	g *models.Governor,
	p *models.Proposal,
) (ProposalState, error) {
	if p.Executed {
		return ProposalExecuted, nil
	}
	if p.Canceled {
		return ProposalCanceled, nil
	}
	height := tx.Height()
	if height <= p.VoteStart {
		return ProposalPending, nil
	}
	if height <= p.VoteEnd {
		return ProposalActive, nil
	}
	if p.Queued {
		opState, err := timelock.GetOperationState(tx, g.Timelock, p.OperationID)
		if err != nil {
			return 0, err
		}
		switch opState {
		case timelock.OperationDone:
			return ProposalExecuted, nil
		case timelock.OperationCanceled:
			return ProposalCanceled, nil
		case timelock.OperationExpired:
			return ProposalExpired, nil
		default:
			return ProposalQueued, nil
		}
	}
	ok, err := succeeded(tx, g, p)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ProposalDefeated, nil
	}
	if g.QueueGracePeriod > 0 && height > p.VoteEnd+g.QueueGracePeriod {
		return ProposalExpired, nil
	}
	return ProposalSucceeded, nil
}

func succeeded(tx *ledger.Tx, g *models.Governor, p *models.Proposal) (bool, error) {
	forVotes := p.ForVotes.Big()
	if forVotes.Cmp(p.AgainstVotes.Big()) <= 0 {
		return false, nil
	}
	q, err := quorum(tx, g, p.QuorumNumerator, p.VoteStart)
	if err != nil {
		return false, err
	}
	counted := forVotes
	if g.AbstainCountsTowardQuorum {
		counted.Add(counted, p.AbstainVotes.Big())
	}
	return counted.Cmp(q) >= 0, nil
}

// State returns the current state of a proposal
func State(
	tx *ledger.Tx,
	governor common.Address,
	id common.Hash,
) (ProposalState, error) {
	g, err := Get(tx, governor)
	if err != nil {
		return 0, err
	}
	p, err := getProposal(tx, governor, id)
	if err != nil {
		return 0, err
	}
	return proposalState(tx, g, p)
}

// Propose creates a proposal. Voting opens after the voting delay
func Propose(
	call *ledger.CallContext,
	batch ledger.Batch,
	description string,
) (common.Hash, error) {
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return common.Hash{}, err
	}
	if batch.Len() <= 0 {
		return common.Hash{}, ErrInvalidProposalLength
	}
	proposer := call.Caller
	// Power at the previous block cannot be changed within this one
	power, err := votes.GetPastVotes(tx, g.Token, proposer, tx.Height()-1)
	if err != nil {
		return common.Hash{}, err
	}
	if threshold := g.ProposalThreshold.Big(); power.Cmp(threshold) < 0 {
		return common.Hash{}, fmt.Errorf(
			"%w: %s has %s, needs %s",
			ErrInsufficientProposerVotes,
			proposer.Hex(),
			power,
			threshold,
		)
	}
	descHash := DescriptionHash(description)
	id, err := HashProposal(batch, descHash)
	if err != nil {
		return common.Hash{}, err
	}
	ms, txn := tx.Metadata()
	if _, err := ms.GetProposal(call.Self, id, txn); err == nil {
		return common.Hash{}, ErrAlreadyProposed
	} else if !errors.Is(err, types.ErrRecordNotFound) {
		return common.Hash{}, err
	}
	voteStart := tx.Height() + g.VotingDelay
	p := &models.Proposal{
		Governor:        call.Self,
		ProposalID:      id,
		Proposer:        proposer,
		Description:     description,
		DescriptionHash: descHash,
		VoteStart:       voteStart,
		VoteEnd:         voteStart + g.VotingPeriod,
		QuorumNumerator: g.QuorumNumerator,
		ForVotes:        types.NewBigInt(nil),
		AgainstVotes:    types.NewBigInt(nil),
		AbstainVotes:    types.NewBigInt(nil),
		Height:          tx.Height(),
	}
	actions := make([]models.ProposalAction, 0, len(batch.Targets))
	values := make([]*big.Int, 0, len(batch.Targets))
	calldatas := make([]string, 0, len(batch.Targets))
	for i, target := range batch.Targets {
		value := batch.Values[i]
		if value == nil {
			value = new(big.Int)
		}
		actions = append(actions, models.ProposalAction{
			Governor:   call.Self,
			ProposalID: id,
			Idx:        uint32(i), //nolint:gosec
			Target:     target,
			Value:      types.NewBigInt(value),
			Calldata:   batch.Calldatas[i],
		})
		values = append(values, value)
		calldatas = append(calldatas, hexutil.Encode(batch.Calldatas[i]))
	}
	if err := ms.AddProposal(p, actions, txn); err != nil {
		return common.Hash{}, err
	}
	call.Emit(
		event.ProposalCreatedEventType,
		event.ProposalCreatedEvent{
			ProposalID:  id,
			Proposer:    proposer,
			Targets:     batch.Targets,
			Values:      values,
			Calldatas:   calldatas,
			VoteStart:   p.VoteStart,
			VoteEnd:     p.VoteEnd,
			Description: description,
		},
	)
	return id, nil
}

// CastVote records the caller's vote with their voting power at the
// proposal snapshot and returns that weight
func CastVote(
	call *ledger.CallContext,
	id common.Hash,
	support VoteType,
	reason string,
) (*big.Int, error) {
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return nil, err
	}
	p, err := getProposal(tx, call.Self, id)
	if err != nil {
		return nil, err
	}
	state, err := proposalState(tx, g, p)
	if err != nil {
		return nil, err
	}
	if state != ProposalActive {
		return nil, fmt.Errorf("%w: proposal is %s", ErrNotActive, state)
	}
	voter := call.Caller
	ms, txn := tx.Metadata()
	if _, err := ms.GetProposalVote(call.Self, id, voter, txn); err == nil {
		return nil, ErrAlreadyVoted
	} else if !errors.Is(err, types.ErrRecordNotFound) {
		return nil, err
	}
	weight, err := votes.GetPastVotes(tx, g.Token, voter, p.VoteStart)
	if err != nil {
		return nil, err
	}
	var tally *types.BigInt
	switch support {
	case VoteAgainst:
		tally = &p.AgainstVotes
	case VoteFor:
		tally = &p.ForVotes
	case VoteAbstain:
		tally = &p.AbstainVotes
	default:
		return nil, ErrInvalidVoteType
	}
	*tally = types.NewBigInt(new(big.Int).Add(tally.Big(), weight))
	if err := ms.AddProposalVote(
		&models.ProposalVote{
			Governor:   call.Self,
			ProposalID: id,
			Voter:      voter,
			Support:    uint8(support),
			Weight:     types.NewBigInt(weight),
			Reason:     reason,
			Height:     tx.Height(),
		},
		txn,
	); err != nil {
		return nil, err
	}
	if err := setProposal(tx, p); err != nil {
		return nil, err
	}
	call.Emit(
		event.VoteCastEventType,
		event.VoteCastEvent{
			Voter:      voter,
			ProposalID: id,
			Support:    uint8(support),
			Weight:     weight,
			Reason:     reason,
		},
	)
	return weight, nil
}

// Queue schedules a succeeded proposal in the timelock with its minimum
// delay
func Queue(
	call *ledger.CallContext,
	batch ledger.Batch,
	descriptionHash common.Hash,
) (common.Hash, error) {
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return common.Hash{}, err
	}
	id, err := HashProposal(batch, descriptionHash)
	if err != nil {
		return common.Hash{}, err
	}
	p, err := getProposal(tx, call.Self, id)
	if err != nil {
		return common.Hash{}, err
	}
	state, err := proposalState(tx, g, p)
	if err != nil {
		return common.Hash{}, err
	}
	if state != ProposalSucceeded {
		return common.Hash{}, fmt.Errorf("%w: proposal is %s", ErrNotSucceeded, state)
	}
	delay, err := timelock.MinDelay(tx, g.Timelock)
	if err != nil {
		return common.Hash{}, err
	}
	opID, err := timelock.ScheduleBatch(
		call.Sub(g.Timelock),
		batch,
		common.Hash{},
		timelockSalt(call.Self, descriptionHash),
		delay,
	)
	if err != nil {
		return common.Hash{}, err
	}
	eta, err := timelock.GetTimestamp(tx, g.Timelock, opID)
	if err != nil {
		return common.Hash{}, err
	}
	p.Queued = true
	p.OperationID = opID
	p.Eta = eta
	if err := setProposal(tx, p); err != nil {
		return common.Hash{}, err
	}
	call.Emit(
		event.ProposalQueuedEventType,
		event.ProposalQueuedEvent{ProposalID: id, Eta: eta},
	)
	return id, nil
}

// Execute runs a queued proposal through the timelock. Value sent with the
// call is forwarded to the timelock
func Execute(
	call *ledger.CallContext,
	batch ledger.Batch,
	descriptionHash common.Hash,
) (common.Hash, error) {
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return common.Hash{}, err
	}
	id, err := HashProposal(batch, descriptionHash)
	if err != nil {
		return common.Hash{}, err
	}
	p, err := getProposal(tx, call.Self, id)
	if err != nil {
		return common.Hash{}, err
	}
	state, err := proposalState(tx, g, p)
	if err != nil {
		return common.Hash{}, err
	}
	if state != ProposalQueued {
		return common.Hash{}, fmt.Errorf("%w: proposal is %s", ErrNotQueued, state)
	}
	if tx.Time() < p.Eta {
		return common.Hash{}, fmt.Errorf(
			"%w: eta %d, now %d",
			ErrTooEarly,
			p.Eta,
			tx.Time(),
		)
	}
	p.Executed = true
	if err := setProposal(tx, p); err != nil {
		return common.Hash{}, err
	}
	sub, err := tx.NewCall(call.Self, g.Timelock, call.Value)
	if err != nil {
		return common.Hash{}, err
	}
	if err := timelock.ExecuteBatch(
		sub,
		batch,
		common.Hash{},
		timelockSalt(call.Self, descriptionHash),
	); err != nil {
		return common.Hash{}, err
	}
	call.Emit(
		event.ProposalExecutedEventType,
		event.ProposalExecutedEvent{ProposalID: id},
	)
	return id, nil
}

// Cancel stops a proposal that has not reached a final state. The
// proposer and designated cancellers may cancel
func Cancel(call *ledger.CallContext, id common.Hash) error {
	tx := call.Tx
	g, err := Get(tx, call.Self)
	if err != nil {
		return err
	}
	p, err := getProposal(tx, call.Self, id)
	if err != nil {
		return err
	}
	if call.Caller != p.Proposer {
		ms, txn := tx.Metadata()
		ok, err := ms.IsGovernorCanceller(call.Self, call.Caller, txn)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnauthorizedCanceller
		}
	}
	state, err := proposalState(tx, g, p)
	if err != nil {
		return err
	}
	switch state {
	case ProposalPending, ProposalActive, ProposalSucceeded:
	case ProposalQueued:
		if err := timelock.Cancel(call.Sub(g.Timelock), p.OperationID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: proposal is %s", ErrNotCancelable, state)
	}
	p.Canceled = true
	if err := setProposal(tx, p); err != nil {
		return err
	}
	call.Emit(
		event.ProposalCanceledEventType,
		event.ProposalCanceledEvent{ProposalID: id},
	)
	return nil
}
