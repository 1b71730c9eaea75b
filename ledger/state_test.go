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

package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/circles/database"
	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/internal/test/testutil"
	"github.com/blinklabs-io/circles/ledger"
)

const testKind = "test-echo"

var errEchoFailed = ledger.NewError(ledger.KindPrecondition, "EchoFailed")

var echoABI = ledger.MustParseABI(`[
	{"type":"function","name":"ping","stateMutability":"view","inputs":[{"name":"x","type":"uint64"}],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"fail","stateMutability":"payable","inputs":[],"outputs":[]}
]`)

type echoContract struct{}

func (echoContract) Kind() string  { return testKind }
func (echoContract) ABI() *abi.ABI { return echoABI }

func (echoContract) Invoke(
	call *ledger.CallContext,
	method *abi.Method,
	args []any,
) ([]any, error) {
	a := ledger.Args(args)
	switch method.Name {
	case "ping":
		return []any{a.Uint64(0) + 1}, nil
	case "deposit":
		call.Emit(
			event.DepositEventType,
			event.DepositEvent{From: call.Caller, Amount: call.Value},
		)
		return nil, nil
	case "fail":
		call.Emit(
			event.DepositEventType,
			event.DepositEvent{From: call.Caller, Amount: call.Value},
		)
		return nil, errEchoFailed
	}
	return nil, ledger.ErrUnknownSelector
}

func init() {
	ledger.RegisterContract(echoContract{})
}

func deployEcho(t *testing.T, ls *ledger.LedgerState, deployer common.Address) common.Address {
	t.Helper()
	var addr common.Address
	testutil.Submit(t, ls, deployer, func(tx *ledger.Tx) error {
		var err error
		addr, err = tx.Deploy(deployer, testKind)
		return err
	})
	return addr
}

func TestGenesisAndMining(t *testing.T) {
	ls := testutil.NewLedger(t)
	head := ls.Head()
	assert.Equal(t, uint64(ledger.GenesisHeight), head.Height)
	assert.Equal(t, uint64(testutil.GenesisTime), head.Time)

	testutil.Mine(t, ls, 3)
	head = ls.Head()
	assert.Equal(t, uint64(4), head.Height)
	assert.Equal(t, uint64(testutil.GenesisTime+3*ledger.DefaultBlockInterval), head.Time)

	require.NoError(t, ls.IncreaseTime(context.Background(), 1000))
	head = ls.Head()
	assert.Equal(t, uint64(5), head.Height)
	assert.Equal(t, uint64(testutil.GenesisTime+3*ledger.DefaultBlockInterval+1000), head.Time)
}

func TestAutomineOneBlockPerTransaction(t *testing.T) {
	ls := testutil.NewLedger(t)
	alice := testutil.Address(1)
	require.NoError(t, ls.Fund(context.Background(), alice, big.NewInt(10)))
	assert.Equal(t, uint64(2), ls.Head().Height)

	// Failed transactions do not mine
	err := ls.Submit(context.Background(), alice, func(*ledger.Tx) error {
		return errEchoFailed
	})
	require.ErrorIs(t, err, errEchoFailed)
	assert.Equal(t, uint64(2), ls.Head().Height)
}

func TestHeadSurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	open := func() (*database.Database, *ledger.LedgerState) {
		db, err := database.New(&database.Config{DataDir: dataDir})
		require.NoError(t, err)
		ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
			Database:    db,
			GenesisTime: testutil.GenesisTime,
		})
		require.NoError(t, err)
		return db, ls
	}
	db, ls := open()
	require.NoError(t, ls.Mine(context.Background(), 5))
	require.NoError(t, ls.Close())
	require.NoError(t, db.Close())

	db, ls = open()
	defer db.Close()
	assert.Equal(t, uint64(6), ls.Head().Height)
}

func TestNativeTransfers(t *testing.T) {
	ls := testutil.NewLedger(t)
	ctx := context.Background()
	alice := testutil.Address(1)
	bob := testutil.Address(2)
	require.NoError(t, ls.Fund(ctx, alice, big.NewInt(100)))
	_, err := ls.Send(ctx, alice, bob, big.NewInt(40), nil)
	require.NoError(t, err)

	_, err = ls.Send(ctx, alice, bob, big.NewInt(61), nil)
	require.ErrorIs(t, err, ledger.ErrInsufficientNativeBalance)
	assert.Equal(t, ledger.KindResource, ledger.KindOf(err))

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		bal, err := tx.Balance(alice)
		require.NoError(t, err)
		assert.Equal(t, int64(60), bal.Int64())
		bal, err = tx.Balance(bob)
		require.NoError(t, err)
		assert.Equal(t, int64(40), bal.Int64())
		return nil
	})
}

func TestDeployUsesCreateAddress(t *testing.T) {
	ls := testutil.NewLedger(t)
	deployer := testutil.Address(1)
	first := deployEcho(t, ls, deployer)
	second := deployEcho(t, ls, deployer)
	assert.Equal(t, crypto.CreateAddress(deployer, 0), first)
	assert.Equal(t, crypto.CreateAddress(deployer, 1), second)
	testutil.View(t, ls, func(tx *ledger.Tx) error {
		kind, err := tx.ContractKind(first)
		require.NoError(t, err)
		assert.Equal(t, testKind, kind)
		kind, err = tx.ContractKind(deployer)
		require.NoError(t, err)
		assert.Empty(t, kind)
		return nil
	})
}

func TestCallDispatch(t *testing.T) {
	ls := testutil.NewLedger(t)
	ctx := context.Background()
	alice := testutil.Address(1)
	echo := deployEcho(t, ls, alice)
	require.NoError(t, ls.Fund(ctx, alice, big.NewInt(100)))

	data, err := echoABI.Pack("ping", uint64(41))
	require.NoError(t, err)
	ret, err := ls.StaticCall(ctx, alice, echo, data)
	require.NoError(t, err)
	out, err := echoABI.Unpack("ping", ret)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), out[0])

	_, err = ls.Send(ctx, alice, echo, nil, []byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorIs(t, err, ledger.ErrUnknownSelector)

	_, err = ls.Send(ctx, alice, echo, big.NewInt(1), data)
	require.ErrorIs(t, err, ledger.ErrNonPayable)

	// No receive hook
	_, err = ls.Send(ctx, alice, echo, big.NewInt(1), nil)
	require.ErrorIs(t, err, ledger.ErrReceiveRejected)
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	ls := testutil.NewLedger(t)
	ctx := context.Background()
	alice := testutil.Address(1)
	echo := deployEcho(t, ls, alice)
	require.NoError(t, ls.Fund(ctx, alice, big.NewInt(100)))

	data, err := echoABI.Pack("fail")
	require.NoError(t, err)
	_, err = ls.Send(ctx, alice, echo, big.NewInt(30), data)
	require.ErrorIs(t, err, errEchoFailed)
	assert.Equal(t, ledger.KindPrecondition, ledger.KindOf(err))
	assert.Equal(t, "EchoFailed", ledger.CodeOf(err))

	testutil.View(t, ls, func(tx *ledger.Tx) error {
		bal, err := tx.Balance(echo)
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal.Int64())
		bal, err = tx.Balance(alice)
		require.NoError(t, err)
		assert.Equal(t, int64(100), bal.Int64())
		return nil
	})
	evts, err := ls.Events(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, evts)
}

func TestEventsPersistedAndPublished(t *testing.T) {
	ls := testutil.NewLedger(t)
	ctx := context.Background()
	alice := testutil.Address(1)
	echo := deployEcho(t, ls, alice)
	require.NoError(t, ls.Fund(ctx, alice, big.NewInt(100)))
	_, ch := ls.EventBus().Subscribe(event.DepositEventType)

	data, err := echoABI.Pack("deposit")
	require.NoError(t, err)
	for range 3 {
		_, err = ls.Send(ctx, alice, echo, big.NewInt(5), data)
		require.NoError(t, err)
	}

	evt := testutil.RequireReceive(t, ch, time.Second, "deposit event")
	le, ok := evt.Data.(event.LedgerEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(1), le.Seq)
	assert.Equal(t, echo, le.Emitter)

	evts, err := ls.Events(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, uint64(2), evts[0].Seq)
	assert.Equal(t, string(event.DepositEventType), evts[0].Type)
	assert.Less(t, evts[0].Height, evts[1].Height)

	evts, err = ls.Events(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, evts, 1)
}

type heightRecorder struct {
	mu      sync.Mutex
	heights []uint64
}

func (r *heightRecorder) Deliver(evt event.Event) error {
	mined, ok := evt.Data.(event.BlockMinedEvent)
	if !ok {
		return nil
	}
	r.mu.Lock()
	r.heights = append(r.heights, mined.Height)
	r.mu.Unlock()
	return nil
}

func (r *heightRecorder) Close() {}

func TestEventsDeliveredInCommitOrder(t *testing.T) {
	ls := testutil.NewLedger(t)
	rec := &heightRecorder{}
	ls.EventBus().RegisterSubscriber(event.BlockMinedEventType, rec)
	start := ls.Head().Height

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				if i%4 == 0 {
					assert.NoError(t, ls.Mine(context.Background(), 2))
					continue
				}
				assert.NoError(t, ls.Fund(context.Background(), testutil.Address(uint64(i)), big.NewInt(1)))
			}
		}()
	}
	wg.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.heights, int(ls.Head().Height-start))
	for i, h := range rec.heights {
		require.Equal(t, start+uint64(i)+1, h, "block %d delivered out of order", i)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ledger.KindUnknown, ledger.KindOf(errors.New("plain")))
	assert.Equal(t, "lookup", ledger.KindOf(ledger.ErrContractNotFound).String())
}
