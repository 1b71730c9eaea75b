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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/database/models"
	"github.com/blinklabs-io/circles/database/plugin/metadata"
	"github.com/blinklabs-io/circles/database/types"
	"github.com/blinklabs-io/circles/event"
)

const (
	DefaultBlockInterval = 12

	// Genesis is the height of the first head block
	GenesisHeight = 1

	tracerName = "github.com/blinklabs-io/circles/ledger"
)

type MetadataStore = metadata.MetadataStore

type LedgerStateConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// BlockInterval is the number of seconds between consecutive blocks
	BlockInterval uint64
	// GenesisTime is the timestamp of the genesis head. Zero uses the
	// current time
	GenesisTime uint64
	// Automine mines a block after every committed transaction
	Automine bool
	// MiningInterval enables a wall-clock block producer
	MiningInterval time.Duration
}

type LedgerState struct {
	sync.RWMutex
	config   LedgerStateConfig
	db       *database.Database
	head     Head
	metrics  stateMetrics
	tracer   trace.Tracer
	producer *BlockProducer
	// publishMu is taken before the write lock is released so that events
	// reach the bus in commit order
	publishMu sync.Mutex
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, errors.New("a database is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.EventBus == nil {
		cfg.EventBus = event.NewEventBus(nil, cfg.Logger)
	}
	if cfg.BlockInterval == 0 {
		cfg.BlockInterval = DefaultBlockInterval
	}
	if cfg.GenesisTime == 0 {
		cfg.GenesisTime = uint64(time.Now().Unix()) //nolint:gosec
	}
	ls := &LedgerState{
		config: cfg,
		db:     cfg.Database,
		tracer: otel.Tracer(tracerName),
	}
	if cfg.PromRegistry != nil {
		ls.metrics.init(cfg.PromRegistry)
	}
	if err := ls.loadTip(); err != nil {
		return nil, err
	}
	if cfg.MiningInterval > 0 {
		ls.producer = NewBlockProducer(ls, BlockProducerConfig{
			Logger:   cfg.Logger,
			Interval: cfg.MiningInterval,
		})
	}
	return ls, nil
}

func (ls *LedgerState) loadTip() error {
	txn := ls.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		tip, err := ls.db.Metadata().GetTip(txn.Metadata())
		if err != nil {
			if !errors.Is(err, types.ErrRecordNotFound) {
				return fmt.Errorf("load tip: %w", err)
			}
			tip = &models.Tip{
				Height: GenesisHeight,
				Time:   ls.config.GenesisTime,
			}
			if err := ls.db.Metadata().SetTip(tip, txn.Metadata()); err != nil {
				return fmt.Errorf("write genesis tip: %w", err)
			}
			ls.config.Logger.Info(
				"initialized genesis head",
				"component", "ledger",
				"height", tip.Height,
				"time", tip.Time,
			)
		}
		ls.head = Head{Height: tip.Height, Time: tip.Time}
		ls.metrics.setHead(ls.head)
		return nil
	})
}

// Start launches the block producer when interval mining is configured
func (ls *LedgerState) Start(ctx context.Context) {
	if ls.producer != nil {
		ls.producer.Start(ctx)
	}
}

func (ls *LedgerState) Close() error {
	if ls.producer != nil {
		ls.producer.Stop()
	}
	return nil
}

func (ls *LedgerState) Database() *database.Database {
	return ls.db
}

func (ls *LedgerState) EventBus() *event.EventBus {
	return ls.config.EventBus
}

func (ls *LedgerState) Logger() *slog.Logger {
	return ls.config.Logger
}

// Head returns the open block
func (ls *LedgerState) Head() Head {
	ls.RLock()
	defer ls.RUnlock()
	return ls.head
}

// Submit runs fn as one atomic ledger transaction. Either every change
// made through the Tx is committed together with its events, or nothing is
func (ls *LedgerState) Submit(
	ctx context.Context,
	origin common.Address,
	fn func(*Tx) error,
) error {
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger.submit",
		trace.WithAttributes(attribute.String("origin", origin.Hex())),
	)
	defer span.End()
	ls.Lock()
	evts, err := ls.submit(ctx, origin, fn)
	if err == nil {
		ls.publishMu.Lock()
	}
	ls.Unlock()
	if err != nil {
		ls.metrics.txFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ls.config.Logger.Debug(
			"transaction failed",
			"component", "ledger",
			"origin", origin.Hex(),
			"error", err,
		)
		return err
	}
	ls.metrics.txCommitted()
	ls.publish(evts)
	ls.publishMu.Unlock()
	return nil
}

func (ls *LedgerState) submit(
	ctx context.Context,
	origin common.Address,
	fn func(*Tx) error,
) ([]event.Event, error) {
	var evts []event.Event
	head := ls.head
	txn := ls.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		tx := &Tx{
			ctx:    ctx,
			state:  ls,
			txn:    txn,
			origin: origin,
			head:   head,
		}
		if err := fn(tx); err != nil {
			return err
		}
		var err error
		evts, err = ls.persistEvents(tx)
		if err != nil {
			return err
		}
		if ls.config.Automine {
			mined, err := ls.mine(txn, head, 1, ls.config.BlockInterval)
			if err != nil {
				return err
			}
			head = mined[len(mined)-1]
			evts = append(evts, blockEvents(mined)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ls.head = head
	ls.metrics.setHead(head)
	return evts, nil
}

func (ls *LedgerState) persistEvents(tx *Tx) ([]event.Event, error) {
	ret := make([]event.Event, 0, len(tx.events))
	for _, pe := range tx.events {
		payload, err := json.Marshal(pe.Data)
		if err != nil {
			return nil, fmt.Errorf("encode %s event: %w", pe.Type, err)
		}
		rec := &database.EventRecord{
			Type:    string(pe.Type),
			Emitter: pe.Emitter,
			Height:  tx.head.Height,
			Time:    tx.head.Time,
			Payload: payload,
		}
		if err := ls.db.AppendEvent(rec, tx.txn); err != nil {
			return nil, fmt.Errorf("append event: %w", err)
		}
		ret = append(
			ret,
			event.NewEvent(
				pe.Type,
				event.LedgerEvent{
					Seq:     rec.Seq,
					Height:  rec.Height,
					Emitter: rec.Emitter,
					Data:    pe.Data,
				},
			),
		)
	}
	return ret, nil
}

// publish delivers committed events with publishMu held. Subscribers must
// not submit ledger transactions from Deliver
func (ls *LedgerState) publish(evts []event.Event) {
	for _, evt := range evts {
		ls.config.EventBus.Publish(evt.Type, evt)
	}
}

func blockEvents(heads []Head) []event.Event {
	ret := make([]event.Event, 0, len(heads))
	for _, h := range heads {
		ret = append(
			ret,
			event.NewEvent(
				event.BlockMinedEventType,
				event.BlockMinedEvent{Height: h.Height, Time: h.Time},
			),
		)
	}
	return ret
}

// mine closes count blocks starting from head. The first new block is
// timeStep seconds after head, the rest follow at the block interval.
// It returns the heads of the newly opened blocks
func (ls *LedgerState) mine(
	txn *database.Txn,
	head Head,
	count uint64,
	timeStep uint64,
) ([]Head, error) {
	ret := make([]Head, 0, count)
	for i := range count {
		step := ls.config.BlockInterval
		if i == 0 {
			step = timeStep
		}
		head = Head{Height: head.Height + 1, Time: head.Time + step}
		ret = append(ret, head)
	}
	tip := &models.Tip{Height: head.Height, Time: head.Time}
	if err := ls.db.Metadata().SetTip(tip, txn.Metadata()); err != nil {
		return nil, fmt.Errorf("update tip: %w", err)
	}
	return ret, nil
}

// Mine closes the head block and opens count new ones
func (ls *LedgerState) Mine(ctx context.Context, count uint64) error {
	return ls.advance(ctx, count, ls.config.BlockInterval)
}

// IncreaseTime mines one block whose timestamp is the given number of
// seconds after the current head
func (ls *LedgerState) IncreaseTime(ctx context.Context, seconds uint64) error {
	return ls.advance(ctx, 1, seconds)
}

func (ls *LedgerState) advance(
	ctx context.Context,
	count uint64,
	timeStep uint64,
) error {
	if count == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ls.Lock()
	var mined []Head
	txn := ls.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		var err error
		mined, err = ls.mine(txn, ls.head, count, timeStep)
		return err
	})
	if err == nil {
		ls.head = mined[len(mined)-1]
		ls.metrics.setHead(ls.head)
		ls.publishMu.Lock()
	}
	ls.Unlock()
	if err != nil {
		return err
	}
	ls.config.Logger.Debug(
		"mined blocks",
		"component", "ledger",
		"count", count,
		"height", mined[len(mined)-1].Height,
	)
	ls.publish(blockEvents(mined))
	ls.publishMu.Unlock()
	return nil
}

// View runs fn against a read-only snapshot of the ledger
func (ls *LedgerState) View(ctx context.Context, fn func(*Tx) error) error {
	ls.RLock()
	defer ls.RUnlock()
	txn := ls.db.Transaction(false)
	defer txn.Release()
	tx := &Tx{
		ctx:   ctx,
		state: ls,
		txn:   txn,
		head:  ls.head,
	}
	return fn(tx)
}

// Fund credits native value to an address
func (ls *LedgerState) Fund(
	ctx context.Context,
	addr common.Address,
	amount *big.Int,
) error {
	return ls.Submit(ctx, addr, func(tx *Tx) error {
		return tx.Mint(addr, amount)
	})
}

// Send submits a call from an account and returns the ABI encoded result
func (ls *LedgerState) Send(
	ctx context.Context,
	from, to common.Address,
	value *big.Int,
	data []byte,
) ([]byte, error) {
	var ret []byte
	err := ls.Submit(ctx, from, func(tx *Tx) error {
		var err error
		ret, err = tx.Call(from, to, value, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// StaticCall runs a call against a read-only snapshot and returns the ABI
// encoded result
func (ls *LedgerState) StaticCall(
	ctx context.Context,
	from, to common.Address,
	data []byte,
) ([]byte, error) {
	var ret []byte
	err := ls.View(ctx, func(tx *Tx) error {
		var err error
		ret, err = tx.Call(from, to, nil, data)
		return err
	})
	return ret, err
}

// Events returns persisted events with a sequence number after since
func (ls *LedgerState) Events(
	ctx context.Context,
	since uint64,
	limit int,
) ([]database.EventRecord, error) {
	var ret []database.EventRecord
	err := ls.View(ctx, func(tx *Tx) error {
		var err error
		ret, err = ls.db.GetEvents(since, limit, tx.txn)
		return err
	})
	return ret, err
}
