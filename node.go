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

package circles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"

	"github.com/blinklabs-io/circles/api"
	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/event/natsbridge"
	"github.com/blinklabs-io/circles/internal/devnet"
	"github.com/blinklabs-io/circles/ledger"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	ledgerState   *ledger.LedgerState
	api           *api.API
	natsConn      *nats.Conn
	metrics       *governanceMetrics
	deployment    *devnet.Deployment
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Run starts the node and blocks until ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return errors.Join(err, n.Stop())
	}
	select {
	case <-ctx.Done():
		return n.Stop()
	case <-n.done:
		return nil
	}
}

// Start opens the database and launches the configured services. It
// returns once they are running
func (n *Node) Start(ctx context.Context) error {
	err := errors.New("node already started")
	n.startOnce.Do(func() {
		err = n.start(ctx)
	})
	return err
}

func (n *Node) start(ctx context.Context) error {
	logger := n.config.logger
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	n.eventBus = event.NewEventBus(n.config.promRegistry, logger)
	if n.config.promRegistry != nil {
		n.metrics = newGovernanceMetrics(n.config.promRegistry)
		n.metrics.attach(n.eventBus)
	}
	// Load database
	db, err := database.New(&database.Config{
		Logger:         logger,
		PromRegistry:   n.config.promRegistry,
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		DataDir:        n.config.dataDir,
		MetadataDsn:    n.config.metadataDsn,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		var tsErr database.CommitTimestampError
		if errors.As(err, &tsErr) {
			return fmt.Errorf(
				"blob and metadata stores are out of sync, restore both from the same backup: %w",
				err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Load ledger state
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Database:       n.db,
		EventBus:       n.eventBus,
		Logger:         logger,
		PromRegistry:   n.config.promRegistry,
		BlockInterval:  n.config.blockInterval,
		GenesisTime:    n.config.genesisTime,
		Automine:       n.config.automine || n.config.isDevMode(),
		MiningInterval: n.config.miningInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}
	n.ledgerState = ls
	// Forward events to NATS before anything is deployed so that
	// subscribers see the bootstrap
	if n.config.natsUrl != "" {
		if err := n.startNats(); err != nil {
			return err
		}
	}
	if n.config.isDevMode() {
		if err := n.bootstrapDevNet(ctx); err != nil {
			return err
		}
	}
	n.ledgerState.Start(ctx)
	// Configure API
	if n.config.apiListenAddress != "" {
		registry := n.config.registry
		if registry == (common.Address{}) && n.deployment != nil {
			registry = n.deployment.Registry
		}
		n.api = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
				Registry:      registry,
				DevMode:       n.config.isDevMode(),
			},
			n.ledgerState,
			logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	head := n.ledgerState.Head()
	logger.Info(
		"node started",
		"component", "node",
		"height", head.Height,
		"mode", n.config.runMode,
	)
	return nil
}

func (n *Node) startNats() error {
	conn, err := natsbridge.Connect(n.config.natsUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	n.natsConn = conn
	bridge := natsbridge.New(
		conn,
		n.config.natsSubjectPrefix,
		n.config.logger,
	)
	bridge.Attach(n.eventBus, event.LedgerEventTypes...)
	n.config.logger.Info(
		"publishing events to NATS",
		"component", "node",
		"url", n.config.natsUrl,
	)
	return nil
}

// bootstrapDevNet deploys the development circle into an empty ledger.
// A ledger that already holds a registry is left alone
func (n *Node) bootstrapDevNet(ctx context.Context) error {
	var deployed bool
	err := n.ledgerState.View(ctx, func(tx *ledger.Tx) error {
		ms, txn := tx.Metadata()
		rows, err := ms.GetContracts(ledger.KindRegistry, txn)
		deployed = len(rows) > 0
		return err
	})
	if err != nil {
		return err
	}
	if deployed {
		return nil
	}
	cfg := n.config.devNetConfig
	if cfg == nil {
		cfg = devnet.DefaultConfig()
	}
	dep, err := devnet.Bootstrap(ctx, n.ledgerState, cfg)
	if err != nil {
		return fmt.Errorf("failed to bootstrap dev network: %w", err)
	}
	n.deployment = dep
	n.config.logger.Info(
		"bootstrapped dev network",
		"component", "node",
		"deployer", dep.Deployer.Hex(),
		"token", dep.Token.Hex(),
		"registry", dep.Registry.Hex(),
		"factory", dep.Factory.Hex(),
		"root_governor", dep.Root.Governor.Hex(),
		"root_timelock", dep.Root.Timelock.Hex(),
		"root_treasury", dep.Root.Treasury.Hex(),
	)
	return nil
}

func (n *Node) LedgerState() *ledger.LedgerState {
	return n.ledgerState
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Deployment returns the dev network bootstrapped by this node, if any
func (n *Node) Deployment() *devnet.Deployment {
	return n.deployment
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush state and close database
	n.config.logger.Debug("shutdown phase 2: flushing state")

	if n.ledgerState != nil {
		if closeErr := n.ledgerState.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("ledger state close: %w", closeErr),
			)
		}
	}
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 3: Cleanup resources
	n.config.logger.Debug("shutdown phase 3: cleanup resources")

	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if n.natsConn != nil {
		if drainErr := n.natsConn.Drain(); drainErr != nil {
			n.natsConn.Close()
		}
	}
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
