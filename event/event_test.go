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

package event_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/circles/event"
	ctestutil "github.com/blinklabs-io/circles/internal/test/testutil"
)

const testEvtType event.EventType = "test.event"

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := ctestutil.RequireReceive(t, subCh, time.Second, "event")
	assert.Equal(t, 999, evt.Data)
	assert.Equal(t, testEvtType, evt.Type)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "x"))
	assert.Equal(t, "x", ctestutil.RequireReceive(t, sub1Ch, time.Second, "sub1").Data)
	assert.Equal(t, "x", ctestutil.RequireReceive(t, sub2Ch, time.Second, "sub2").Data)
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	_, ok := <-subCh
	assert.False(t, ok, "channel should be closed after unsubscribe")
}

func TestEventBusSubscribeFuncAsync(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var count atomic.Int32
	eb.SubscribeFunc(testEvtType, func(event.Event) { count.Add(1) })
	for range 5 {
		require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, nil)))
	}
	ctestutil.WaitForCondition(
		t,
		func() bool { return count.Load() == 5 },
		2*time.Second,
		"async events delivered",
	)
	eb.Stop()
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, nil)))
}

type failingSubscriber struct {
	closed atomic.Bool
}

func (f *failingSubscriber) Deliver(event.Event) error { return errors.New("down") }
func (f *failingSubscriber) Close()                    { f.closed.Store(true) }

func TestEventBusDropsFailingSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	sub := &failingSubscriber{}
	eb.RegisterSubscriber(testEvtType, sub)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, nil))
	assert.True(t, sub.closed.Load())
	count, err := testutil.GatherAndCount(reg, "event_bus_delivery_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
