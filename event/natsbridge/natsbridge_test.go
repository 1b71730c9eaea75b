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

package natsbridge_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/circles/event"
	"github.com/blinklabs-io/circles/event/natsbridge"
)

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestBridgePublishesJson(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	pub := &fakePublisher{}
	bridge := natsbridge.New(pub, "", nil)
	bridge.Attach(bus, event.CircleRegisteredEventType)

	bus.Publish(
		event.CircleRegisteredEventType,
		event.NewEvent(
			event.CircleRegisteredEventType,
			event.LedgerEvent{
				Seq:  3,
				Data: event.CircleRegisteredEvent{ID: 2, ParentID: 1, Name: "child"},
			},
		),
	)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "circles.events.CircleRegistered", pub.subjects[0])
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Seq  uint64 `json:"seq"`
			Data struct {
				ID       uint64 `json:"id"`
				ParentID uint64 `json:"parentId"`
				Name     string `json:"name"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	assert.Equal(t, "CircleRegistered", msg.Type)
	assert.Equal(t, uint64(3), msg.Data.Seq)
	assert.Equal(t, uint64(2), msg.Data.Data.ID)
	assert.Equal(t, "child", msg.Data.Data.Name)
}

func TestBridgeUnsubscribedWhenConnectionClosed(t *testing.T) {
	defer goleak.VerifyNone(t)
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	pub := &fakePublisher{err: nats.ErrConnectionClosed}
	bridge := natsbridge.New(pub, "custom", nil)
	assert.Equal(t, "custom.Transfer", bridge.Subject(event.TransferEventType))
	bridge.Attach(bus, event.TransferEventType)

	evt := event.NewEvent(event.TransferEventType, event.TransferEvent{})
	bus.Publish(event.TransferEventType, evt)
	// The failed subscriber was removed, so this publish reaches nobody
	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	bus.Publish(event.TransferEventType, evt)
	assert.Empty(t, pub.subjects)
}

func TestBridgeIgnoresTransientErrors(t *testing.T) {
	pub := &fakePublisher{err: nats.ErrTimeout}
	bridge := natsbridge.New(pub, "", nil)
	require.NoError(t, bridge.Deliver(event.NewEvent(event.DepositEventType, nil)))
	bridge.Close()
	require.NoError(t, bridge.Deliver(event.Event{Type: event.DepositEventType, Timestamp: time.Now()}))
}
