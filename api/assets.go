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
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/timelock"
	"github.com/blinklabs-io/circles/treasury"
	"github.com/blinklabs-io/circles/votes"
)

var errOperationNotFound = ledger.NewError(ledger.KindLookup, "OperationNotFound")

func (a *API) handleToken(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		t, err := votes.GetToken(tx, addr)
		if err != nil {
			return nil, err
		}
		return TokenResponse{
			Address:     t.Address,
			Name:        t.Name,
			Symbol:      t.Symbol,
			Owner:       t.Owner,
			TotalSupply: t.TotalSupply.Big(),
		}, nil
	})
}

// handleTokenAccount returns a holder's balance, delegate and current
// voting weight
func (a *API) handleTokenAccount(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
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
		return a.tokenAccount(tx, addr, account)
	})
}

// handlePastVotes handles GET .../accounts/{account}/votes?key=N. The key
// must be a closed block
func (a *API) handlePastVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	account, err := pathAddress(r, "account")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if r.URL.Query().Get("key") == "" {
		a.writeLedgerError(w, badRequest("key is required"))
		return
	}
	key, err := queryUint(r, "key", 0)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		weight, err := votes.GetPastVotes(tx, addr, account, key)
		if err != nil {
			return nil, err
		}
		return PastVotesResponse{Account: account, Key: key, Votes: weight}, nil
	})
}

func (a *API) handleDelegate(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req DelegateRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		if err := votes.Delegate(call, req.Delegatee); err != nil {
			return nil, err
		}
		return a.tokenAccount(tx, addr, req.From)
	})
}

func (a *API) handleTokenTransfer(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req TransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := requireAmount(req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		if err := votes.Transfer(call, req.To, req.Amount); err != nil {
			return nil, err
		}
		return a.tokenAccount(tx, addr, req.From)
	})
}

func (a *API) tokenAccount(
	tx *ledger.Tx,
	token common.Address,
	account common.Address,
) (*TokenAccountResponse, error) {
	bal, err := votes.BalanceOf(tx, token, account)
	if err != nil {
		return nil, err
	}
	delegate, err := votes.Delegates(tx, token, account)
	if err != nil {
		return nil, err
	}
	weight, err := votes.GetVotes(tx, token, account)
	if err != nil {
		return nil, err
	}
	return &TokenAccountResponse{
		Token:    token,
		Account:  account,
		Balance:  bal,
		Delegate: delegate,
		Votes:    weight,
	}, nil
}

func (a *API) treasuryResponse(
	tx *ledger.Tx,
	addr common.Address,
) (*TreasuryResponse, error) {
	t, err := treasury.Get(tx, addr)
	if err != nil {
		return nil, err
	}
	bal, err := tx.Balance(addr)
	if err != nil {
		return nil, err
	}
	return &TreasuryResponse{
		Address:           t.Address,
		Owner:             t.Owner,
		MaxTransferAmount: t.MaxTransferAmount.Big(),
		Balance:           bal,
	}, nil
}

func (a *API) handleTreasury(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		return a.treasuryResponse(tx, addr)
	})
}

// handleTreasuryTransfer sends treasury funds. Only the owning timelock
// may do so
func (a *API) handleTreasuryTransfer(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req TransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := requireAmount(req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		if err := treasury.TransferETH(call, req.To, req.Amount); err != nil {
			return nil, err
		}
		return a.treasuryResponse(tx, addr)
	})
}

func (a *API) handleSetMaxTransferAmount(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req AmountRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := requireAmount(req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, nil)
		if err != nil {
			return nil, err
		}
		if err := treasury.SetMaxTransferAmount(call, req.Amount); err != nil {
			return nil, err
		}
		return a.treasuryResponse(tx, addr)
	})
}

func (a *API) handleDeposit(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	var req AmountRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := requireAmount(req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, func(tx *ledger.Tx) (any, error) {
		call, err := tx.NewCall(req.From, addr, req.Amount)
		if err != nil {
			return nil, err
		}
		if err := treasury.Deposit(call); err != nil {
			return nil, err
		}
		return a.treasuryResponse(tx, addr)
	})
}

func (a *API) handleTimelock(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		tl, err := timelock.Get(tx, addr)
		if err != nil {
			return nil, err
		}
		members, err := timelock.Members(tx, addr)
		if err != nil {
			return nil, err
		}
		roles := map[string][]common.Address{}
		for role, accounts := range members {
			roles[role.String()] = accounts
		}
		return TimelockResponse{
			Address:     tl.Address,
			MinDelay:    tl.MinDelay,
			GracePeriod: tl.GracePeriod,
			Roles:       roles,
		}, nil
	})
}

func (a *API) handleOperation(
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
		state, err := timelock.GetOperationState(tx, addr, id)
		if err != nil {
			return nil, err
		}
		op, err := timelock.GetOperation(tx, addr, id)
		if err != nil {
			return nil, err
		}
		if op == nil {
			return nil, errOperationNotFound
		}
		batch, err := timelock.GetOperationCalls(tx, addr, id)
		if err != nil {
			return nil, err
		}
		ret := OperationResponse{
			ID:          id,
			State:       state.String(),
			Eta:         op.Eta,
			Predecessor: op.Predecessor,
			Salt:        op.Salt,
			Targets:     batch.Targets,
			Values:      batch.Values,
		}
		for _, data := range batch.Calldatas {
			ret.Calldatas = append(ret.Calldatas, hexutil.Bytes(data))
		}
		return ret, nil
	})
}
