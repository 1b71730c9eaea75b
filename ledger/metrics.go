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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type stateMetrics struct {
	headHeight   prometheus.Gauge
	headTime     prometheus.Gauge
	transactions *prometheus.CounterVec
}

func (m *stateMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.headHeight = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "circles_ledger_head_height",
		Help: "height of the open head block",
	})
	m.headTime = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "circles_ledger_head_time_seconds",
		Help: "timestamp of the open head block",
	})
	m.transactions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_ledger_transactions_total",
			Help: "ledger transactions by result",
		},
		[]string{"result"},
	)
}

func (m *stateMetrics) setHead(head Head) {
	if m.headHeight == nil {
		return
	}
	m.headHeight.Set(float64(head.Height))
	m.headTime.Set(float64(head.Time))
}

func (m *stateMetrics) txCommitted() {
	if m.transactions != nil {
		m.transactions.WithLabelValues("committed").Inc()
	}
}

func (m *stateMetrics) txFailed() {
	if m.transactions != nil {
		m.transactions.WithLabelValues("failed").Inc()
	}
}
