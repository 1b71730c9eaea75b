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

package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/circles/factory"
	"github.com/blinklabs-io/circles/governor"
	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
)

// handleCircles handles GET /api/v1/circles with pagination
func (a *API) handleCircles(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		a.writeLedgerError(w, badRequest("%v", err))
		return
	}
	var page []registry.Circle
	err = a.ledger.View(r.Context(), func(tx *ledger.Tx) error {
		reg, err := a.registryAddress(tx)
		if err != nil {
			return err
		}
		all, err := registry.List(tx, reg)
		if err != nil {
			return err
		}
		SetPaginationHeaders(w, len(all), params)
		page = Paginate(all, params)
		return nil
	})
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleCreateCircle handles POST /api/v1/circles. The sender must be the
// parent circle's timelock
func (a *API) handleCreateCircle(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req CreateCircleRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusCreated, func(tx *ledger.Tx) (any, error) {
		reg, err := a.registryAddress(tx)
		if err != nil {
			return nil, err
		}
		fac, err := registry.Factory(tx, reg)
		if err != nil {
			return nil, err
		}
		if fac == (common.Address{}) {
			return nil, factory.ErrFactoryNotFound
		}
		call, err := tx.NewCall(req.From, fac, nil)
		if err != nil {
			return nil, err
		}
		return factory.CreateCircle(call, req.Params)
	})
}

func (a *API) handleCircle(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		reg, err := a.registryAddress(tx)
		if err != nil {
			return nil, err
		}
		return registry.Get(tx, reg, id)
	})
}

func (a *API) handleCircleChildren(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		reg, err := a.registryAddress(tx)
		if err != nil {
			return nil, err
		}
		if _, err := registry.Get(tx, reg, id); err != nil {
			return nil, err
		}
		return registry.Children(tx, reg, id)
	})
}

// handleCircleAncestors returns the authority chain above a circle,
// nearest first
func (a *API) handleCircleAncestors(
	w http.ResponseWriter,
	r *http.Request,
) {
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		reg, err := a.registryAddress(tx)
		if err != nil {
			return nil, err
		}
		return registry.Ancestors(tx, reg, id)
	})
}

func (a *API) handleGovernor(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		g, err := governor.Get(tx, addr)
		if err != nil {
			return nil, err
		}
		return GovernorResponse{
			Address:                   g.Address,
			Name:                      g.Name,
			Token:                     g.Token,
			Timelock:                  g.Timelock,
			VotingDelay:               g.VotingDelay,
			VotingPeriod:              g.VotingPeriod,
			ProposalThreshold:         g.ProposalThreshold.Big(),
			QuorumNumerator:           g.QuorumNumerator,
			QueueGracePeriod:          g.QueueGracePeriod,
			AbstainCountsTowardQuorum: g.AbstainCountsTowardQuorum,
		}, nil
	})
}

// handleProposals handles GET /api/v1/governors/{address}/proposals with
// pagination in creation order
func (a *API) handleProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	params, err := ParsePagination(r)
	if err != nil {
		a.writeLedgerError(w, badRequest("%v", err))
		return
	}
	var page []*governor.Proposal
	err = a.ledger.View(r.Context(), func(tx *ledger.Tx) error {
		if _, err := governor.Get(tx, addr); err != nil {
			return err
		}
		all, err := governor.Proposals(tx, addr)
		if err != nil {
			return err
		}
		SetPaginationHeaders(w, len(all), params)
		page = Paginate(all, params)
		return nil
	})
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handlePropose(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req ProposeRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	for _, v := range req.Values {
		if v != nil && v.Sign() < 0 {
			a.writeLedgerError(w, badRequest("values must not be negative"))
			return
		}
	}
	batch := ledger.Batch{Targets: req.Targets, Values: req.Values}
	for _, data := range req.Calldatas {
		batch.Calldatas = append(batch.Calldatas, data)
	}
	a.submit(w, r, req.From, http.StatusCreated, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		id, err := governor.Propose(call, batch, req.Description)
		if err != nil {
			return nil, err
		}
		return ProposeResponse{ID: id}, nil
	})
}

func (a *API) handleProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	id, err := pathHash(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		return governor.GetProposal(tx, addr, id)
	})
}

func (a *API) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	id, err := pathHash(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		weight, err := governor.CastVote(
			call,
			id,
			governor.VoteType(req.Support),
			req.Reason,
		)
		if err != nil {
			return nil, err
		}
		return VoteResponse{Weight: weight}, nil
	})
}

func (a *API) handleHasVoted(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	id, err := pathHash(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	account, err := pathAddress(r, "account")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		voted, err := governor.HasVoted(tx, addr, id, account)
		if err != nil {
			return nil, err
		}
		return HasVotedResponse{HasVoted: voted}, nil
	})
}

type proposalAction func(
	call *ledger.CallContext,
	p *governor.Proposal,
) error

// handleProposalAction runs a state transition on a stored proposal. The
// proposal's own calls and description hash are used, so clients only
// name the id
func (a *API) handleProposalAction(
	w http.ResponseWriter,
	r *http.Request,
	payable bool,
	action proposalAction,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	id, err := pathHash(r, "id")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req ProposalActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if req.Value != nil {
		if req.Value.Sign() < 0 {
			a.writeLedgerError(w, badRequest("value must not be negative"))
			return
		}
		if !payable && req.Value.Sign() != 0 {
			a.writeLedgerError(w, badRequest("only execute accepts value"))
			return
		}
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		p, err := governor.GetProposal(tx, addr, id)
		if err != nil {
			return nil, err
		}
		call, err := tx.NewCall(req.From, addr, req.Value)
		if err != nil {
			return nil, err
		}
		if err := action(call, p); err != nil {
			return nil, err
		}
		state, err := governor.State(tx, addr, id)
		if err != nil {
			return nil, err
		}
		return ProposalActionResponse{ID: id, State: state}, nil
	})
}

func (a *API) handleQueue(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.handleProposalAction(w, r, false, func(call *ledger.CallContext, p *governor.Proposal) error {
		_, err := governor.Queue(call, p.Batch(), p.DescriptionHash)
		return err
	})
}

func (a *API) handleExecute(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.handleProposalAction(w, r, true, func(call *ledger.CallContext, p *governor.Proposal) error {
		_, err := governor.Execute(call, p.Batch(), p.DescriptionHash)
		return err
	})
}

func (a *API) handleCancel(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.handleProposalAction(w, r, false, func(call *ledger.CallContext, p *governor.Proposal) error {
		return governor.Cancel(call, p.ID)
	})
}
