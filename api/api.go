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

// Package api serves the ledger over a JSON REST interface. Every
// operation of the governance contracts is reachable here. Write requests
// name their sender in a "from" field and run as one ledger transaction
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

const (
	apiVersion      = "1.0.0"
	requestIDHeader = "X-Request-Id"
	maxRequestBytes = 1 << 20
)

// Config holds the API server settings
type Config struct {
	ListenAddress string
	// Registry pins the circle registry. When unset the first registry
	// deployed on the ledger is used
	Registry common.Address
	// DevMode enables the /api/v1/dev endpoints that mine blocks, move
	// time and fund accounts
	DevMode bool
}

// API is the REST server
type API struct {
	config     Config
	logger     *slog.Logger
	ledger     Ledger
	httpServer *http.Server
	mu         sync.Mutex
}

// New creates a new API server instance.
func New(
	cfg Config,
	ledger Ledger,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8545"
	}
	return &API{
		config: cfg,
		logger: logger,
		ledger: ledger,
	}
}

// Handler returns the routed handler without starting a listener
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleRoot)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /api/v1/head", a.handleHead)
	mux.HandleFunc("GET /api/v1/events", a.handleEvents)
	mux.HandleFunc("GET /api/v1/accounts/{address}", a.handleAccount)
	mux.HandleFunc("POST /api/v1/call", a.handleCall)

	mux.HandleFunc("GET /api/v1/circles", a.handleCircles)
	mux.HandleFunc("POST /api/v1/circles", a.handleCreateCircle)
	mux.HandleFunc("GET /api/v1/circles/{id}", a.handleCircle)
	mux.HandleFunc("GET /api/v1/circles/{id}/children", a.handleCircleChildren)
	mux.HandleFunc("GET /api/v1/circles/{id}/ancestors", a.handleCircleAncestors)

	mux.HandleFunc("GET /api/v1/governors/{address}", a.handleGovernor)
	mux.HandleFunc("GET /api/v1/governors/{address}/proposals", a.handleProposals)
	mux.HandleFunc("POST /api/v1/governors/{address}/proposals", a.handlePropose)
	mux.HandleFunc("GET /api/v1/governors/{address}/proposals/{id}", a.handleProposal)
	mux.HandleFunc("POST /api/v1/governors/{address}/proposals/{id}/votes", a.handleCastVote)
	mux.HandleFunc("GET /api/v1/governors/{address}/proposals/{id}/votes/{account}", a.handleHasVoted)
	mux.HandleFunc("POST /api/v1/governors/{address}/proposals/{id}/queue", a.handleQueue)
	mux.HandleFunc("POST /api/v1/governors/{address}/proposals/{id}/execute", a.handleExecute)
	mux.HandleFunc("POST /api/v1/governors/{address}/proposals/{id}/cancel", a.handleCancel)

	mux.HandleFunc("GET /api/v1/tokens/{address}", a.handleToken)
	mux.HandleFunc("GET /api/v1/tokens/{address}/accounts/{account}", a.handleTokenAccount)
	mux.HandleFunc("GET /api/v1/tokens/{address}/accounts/{account}/votes", a.handlePastVotes)
	mux.HandleFunc("POST /api/v1/tokens/{address}/delegate", a.handleDelegate)
	mux.HandleFunc("POST /api/v1/tokens/{address}/transfer", a.handleTokenTransfer)

	mux.HandleFunc("GET /api/v1/treasuries/{address}", a.handleTreasury)
	mux.HandleFunc("POST /api/v1/treasuries/{address}/transfer", a.handleTreasuryTransfer)
	mux.HandleFunc("POST /api/v1/treasuries/{address}/max-transfer-amount", a.handleSetMaxTransferAmount)
	mux.HandleFunc("POST /api/v1/treasuries/{address}/deposit", a.handleDeposit)

	mux.HandleFunc("GET /api/v1/timelocks/{address}", a.handleTimelock)
	mux.HandleFunc("GET /api/v1/timelocks/{address}/operations/{id}", a.handleOperation)

	if a.config.DevMode {
		mux.HandleFunc("POST /api/v1/dev/mine", a.handleMine)
		mux.HandleFunc("POST /api/v1/dev/time", a.handleIncreaseTime)
		mux.HandleFunc("POST /api/v1/dev/fund", a.handleFund)
	}
	return a.withRequestID(mux)
}

// withRequestID tags every request with an id that is echoed in the
// response headers and request logs
func (a *API) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debug(
			"handled request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// Start starts the HTTP server in a background goroutine.
func (a *API) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.config.ListenAddress,
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		a.mu.Lock()
		srv := a.httpServer
		a.httpServer = nil
		a.mu.Unlock()

		if srv != nil {
			a.logger.Debug(
				"context cancelled, shutting down API server",
			)
			//nolint:contextcheck
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				30*time.Second,
			)
			defer cancel()
			//nolint:contextcheck
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(
					"failed to shutdown API server on context cancellation",
					"error", err,
				)
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug("shutting down API server")
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// reported by Start, then serves in a background goroutine.
func (a *API) startServer(
	server *http.Server,
) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}
