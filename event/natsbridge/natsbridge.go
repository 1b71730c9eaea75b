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

// Package natsbridge forwards event bus traffic to NATS subjects so that
// external indexers can follow the ledger without polling
package natsbridge

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/blinklabs-io/circles/event"
)

const DefaultSubjectPrefix = "circles.events"

// Publisher is the part of a NATS connection used by the bridge
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON document published for each event
type Message struct {
	Type      event.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      any             `json:"data"`
}

// Bridge is an event.Subscriber that publishes events as JSON to
// <prefix>.<event type>
type Bridge struct {
	publisher Publisher
	logger    *slog.Logger
	prefix    string
	mu        sync.Mutex
	closed    bool
	subIds    map[event.EventType]event.EventSubscriberId
}

func New(publisher Publisher, prefix string, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Bridge{
		publisher: publisher,
		logger:    logger,
		prefix:    prefix,
		subIds:    make(map[event.EventType]event.EventSubscriberId),
	}
}

// Connect dials a NATS server with reconnect settings suitable for a
// long-running node
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("circles"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// Attach registers the bridge for the given event types
func (b *Bridge) Attach(bus *event.EventBus, eventTypes ...event.EventType) {
	for _, evtType := range eventTypes {
		subId := bus.RegisterSubscriber(evtType, b)
		b.mu.Lock()
		b.subIds[evtType] = subId
		b.mu.Unlock()
	}
}

// Subject returns the subject used for an event type
func (b *Bridge) Subject(eventType event.EventType) string {
	return b.prefix + "." + string(eventType)
}

// Deliver implements event.Subscriber
func (b *Bridge) Deliver(evt event.Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil
	}
	data, err := json.Marshal(Message{
		Type:      evt.Type,
		Timestamp: evt.Timestamp,
		Data:      evt.Data,
	})
	if err != nil {
		// Keep the subscription for events that do encode
		b.logger.Warn(
			"failed to encode event",
			"component", "natsbridge",
			"type", evt.Type,
			"error", err,
		)
		return nil
	}
	if err := b.publisher.Publish(b.Subject(evt.Type), data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return err
		}
		b.logger.Warn(
			"failed to publish event",
			"component", "natsbridge",
			"type", evt.Type,
			"error", err,
		)
	}
	return nil
}

// Close implements event.Subscriber
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
