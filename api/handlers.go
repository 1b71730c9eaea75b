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
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/blinklabs-io/circles/ledger"
	"github.com/blinklabs-io/circles/registry"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// requestError is a malformed request detected before the ledger is
// touched
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	code string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Code:       code,
		Message:    message,
	})
}

// statusForError maps the ledger error taxonomy onto HTTP statuses
func statusForError(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest
	}
	switch ledger.KindOf(err) {
	case ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindPrecondition:
		return http.StatusConflict
	case ledger.KindResource:
		return http.StatusUnprocessableEntity
	case ledger.KindLookup:
		return http.StatusNotFound
	case ledger.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeLedgerError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}
	writeError(w, status, ledger.CodeOf(err), err.Error())
}

// view runs fn against a read-only snapshot and writes its result
func (a *API) view(
	w http.ResponseWriter,
	r *http.Request,
	fn func(*ledger.Tx) (any, error),
) {
	var ret any
	err := a.ledger.View(r.Context(), func(tx *ledger.Tx) error {
		var err error
		ret, err = fn(tx)
		return err
	})
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

// submit runs fn as one ledger transaction sent by from and writes its
// result
func (a *API) submit(
	w http.ResponseWriter,
	r *http.Request,
	from common.Address,
	status int,
	fn func(*ledger.Tx) (any, error),
) {
	if from == (common.Address{}) {
		a.writeLedgerError(w, badRequest("from is required"))
		return
	}
	var ret any
	err := a.ledger.Submit(r.Context(), from, func(tx *ledger.Tx) error {
		var err error
		ret, err = fn(tx)
		return err
	})
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, status, ret)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func pathAddress(r *http.Request, name string) (common.Address, error) {
	val := r.PathValue(name)
	if !common.IsHexAddress(val) {
		return common.Address{}, badRequest("invalid address %q", val)
	}
	return common.HexToAddress(val), nil
}

func pathUint(r *http.Request, name string) (uint64, error) {
	val := r.PathValue(name)
	ret, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, val)
	}
	return ret, nil
}

// parseHash accepts a 0x-prefixed 32 byte hex string or a decimal
// uint256, which is how proposal ids appear in ABI results
func parseHash(val string) (common.Hash, error) {
	if strings.HasPrefix(val, "0x") || strings.HasPrefix(val, "0X") {
		b, err := hexutil.Decode(val)
		if err != nil || len(b) != common.HashLength {
			return common.Hash{}, badRequest("invalid hash %q", val)
		}
		return common.BytesToHash(b), nil
	}
	n, ok := new(big.Int).SetString(val, 10)
	if !ok || n.Sign() < 0 || n.BitLen() > 256 {
		return common.Hash{}, badRequest("invalid hash %q", val)
	}
	return common.BigToHash(n), nil
}

func pathHash(r *http.Request, name string) (common.Hash, error) {
	return parseHash(r.PathValue(name))
}

func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return def, nil
	}
	ret, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, val)
	}
	return ret, nil
}

func requireAmount(amount *big.Int) error {
	if amount == nil {
		return badRequest("amount is required")
	}
	if amount.Sign() < 0 {
		return badRequest("amount must not be negative")
	}
	return nil
}

// registryAddress returns the configured registry, falling back to the
// first one deployed
func (a *API) registryAddress(tx *ledger.Tx) (common.Address, error) {
	if a.config.Registry != (common.Address{}) {
		return a.config.Registry, nil
	}
	ms, txn := tx.Metadata()
	rows, err := ms.GetContracts(ledger.KindRegistry, txn)
	if err != nil {
		return common.Address{}, err
	}
	if len(rows) == 0 {
		return common.Address{}, registry.ErrRegistryNotFound
	}
	return rows[0].Address, nil
}

// handleRoot handles GET / and returns API metadata.
func (a *API) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:    "circles",
		Version: apiVersion,
	})
}

// handleHealth handles GET /health.
func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

func (a *API) headResponse() HeadResponse {
	head := a.ledger.Head()
	return HeadResponse{Height: head.Height, Time: head.Time}
}

// handleHead handles GET /api/v1/head and returns the open block
func (a *API) handleHead(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, a.headResponse())
}

// handleEvents handles GET /api/v1/events?since=N&limit=M. Indexers
// resume from the last sequence number they processed
func (a *API) handleEvents(
	w http.ResponseWriter,
	r *http.Request,
) {
	since, err := queryUint(r, "since", 0)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	limit, err := queryUint(r, "limit", defaultEventLimit)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	limit = min(max(limit, 1), maxEventLimit)
	recs, err := a.ledger.Events(r.Context(), since, int(limit)) //nolint:gosec
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	ret := make([]EventResponse, 0, len(recs))
	for _, rec := range recs {
		ret = append(ret, EventResponse{
			Seq:     rec.Seq,
			Type:    rec.Type,
			Emitter: rec.Emitter,
			Height:  rec.Height,
			Time:    rec.Time,
			Data:    rec.Payload,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleAccount handles GET /api/v1/accounts/{address}
func (a *API) handleAccount(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	a.view(w, r, func(tx *ledger.Tx) (any, error) {
		bal, err := tx.Balance(addr)
		if err != nil {
			return nil, err
		}
		kind, err := tx.ContractKind(addr)
		if err != nil {
			return nil, err
		}
		return AccountResponse{Address: addr, Balance: bal, Kind: kind}, nil
	})
}

// handleCall handles POST /api/v1/call, which dispatches raw ABI calldata
func (a *API) handleCall(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req CallRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if req.Value != nil && req.Value.Sign() < 0 {
		a.writeLedgerError(w, badRequest("value must not be negative"))
		return
	}
	fn := func(tx *ledger.Tx) (any, error) {
		ret, err := tx.Call(req.From, req.To, req.Value, req.Data)
		if err != nil {
			return nil, err
		}
		return CallResponse{Result: ret}, nil
	}
	if req.Static {
		if req.Value != nil && req.Value.Sign() != 0 {
			a.writeLedgerError(w, badRequest("static calls cannot carry value"))
			return
		}
		a.view(w, r, fn)
		return
	}
	a.submit(w, r, req.From, http.StatusOK, fn)
}

func (a *API) handleMine(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req MineRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if req.Blocks == 0 {
		req.Blocks = 1
	}
	if err := a.ledger.Mine(r.Context(), req.Blocks); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.headResponse())
}

func (a *API) handleIncreaseTime(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req IncreaseTimeRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := a.ledger.IncreaseTime(r.Context(), req.Seconds); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.headResponse())
}

func (a *API) handleFund(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req FundRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := requireAmount(req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if err := a.ledger.Fund(r.Context(), req.Address, req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.headResponse())
}
