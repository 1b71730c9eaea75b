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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/blinklabs-io/circles/event"
)

// governanceMetrics counts governance activity seen on the event bus
type governanceMetrics struct {
	circles   prometheus.Counter
	proposals *prometheus.CounterVec
	votes     prometheus.Counter
}

func newGovernanceMetrics(promRegistry prometheus.Registerer) *governanceMetrics {
	promautoFactory := promauto.With(promRegistry)
	return &governanceMetrics{
		circles: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "circles_registered_total",
			Help: "total number of circles registered",
		}),
		proposals: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circles_proposals_total",
				Help: "total number of proposal lifecycle events by type",
			},
			[]string{"event"},
		),
		votes: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "circles_votes_total",
			Help: "total number of votes cast",
		}),
	}
}

func (m *governanceMetrics) attach(bus *event.EventBus) {
	for _, evtType := range []event.EventType{
		event.CircleRegisteredEventType,
		event.ProposalCreatedEventType,
		event.ProposalQueuedEventType,
		event.ProposalExecutedEventType,
		event.ProposalCanceledEventType,
		event.VoteCastEventType,
	} {
		bus.RegisterSubscriber(evtType, m)
	}
}

func (m *governanceMetrics) Deliver(evt event.Event) error {
	switch evt.Type {
	case event.CircleRegisteredEventType:
		m.circles.Inc()
	case event.VoteCastEventType:
		m.votes.Inc()
	case event.ProposalCreatedEventType:
		m.proposals.WithLabelValues("created").Inc()
	case event.ProposalQueuedEventType:
		m.proposals.WithLabelValues("queued").Inc()
	case event.ProposalExecutedEventType:
		m.proposals.WithLabelValues("executed").Inc()
	case event.ProposalCanceledEventType:
		m.proposals.WithLabelValues("canceled").Inc()
	}
	return nil
}

func (m *governanceMetrics) Close() {}
