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

package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BlockProducerConfig holds configuration for the BlockProducer
type BlockProducerConfig struct {
	Logger *slog.Logger
	// Interval is the wall-clock time between mined blocks
	Interval time.Duration
}

// BlockProducer mines a block at a fixed wall-clock interval
type BlockProducer struct {
	state   *LedgerState
	config  BlockProducerConfig
	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func NewBlockProducer(
	state *LedgerState,
	config BlockProducerConfig,
) *BlockProducer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &BlockProducer{
		state:  state,
		config: config,
	}
}

// Start begins mining in a goroutine. It returns immediately
func (bp *BlockProducer) Start(ctx context.Context) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.running || bp.config.Interval <= 0 {
		return
	}
	bp.running = true
	ctx, bp.cancel = context.WithCancel(ctx)
	bp.wg.Add(1)
	go bp.run(ctx)
}

// Stop halts mining and waits for the loop to exit
func (bp *BlockProducer) Stop() {
	bp.mu.Lock()
	if !bp.running {
		bp.mu.Unlock()
		return
	}
	bp.running = false
	bp.cancel()
	bp.mu.Unlock()
	bp.wg.Wait()
}

func (bp *BlockProducer) run(ctx context.Context) {
	defer bp.wg.Done()
	ticker := time.NewTicker(bp.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := bp.state.Mine(ctx, 1); err != nil {
				if ctx.Err() != nil {
					return
				}
				bp.config.Logger.Error(
					"failed to mine block",
					"component", "ledger",
					"error", err,
				)
			}
		}
	}
}
