// Copyright 2025 Open Network Fabric Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataplane

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the dataplane. All fields are populated by NewMetrics;
// a nil Metrics disables instrumentation.
type Metrics struct {
	ProcessedPackets prometheus.Counter
	ProcessedBytes   prometheus.Counter
	SentPackets      prometheus.Counter
	DroppedPackets   *prometheus.CounterVec
}

// NewMetrics creates the dataplane metrics and registers them with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProcessedPackets: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_processed_packets_total",
			Help: "Total number of packets that completed the pipeline",
		}),
		ProcessedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_processed_bytes_total",
			Help: "Total frame bytes that completed the pipeline",
		}),
		SentPackets: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_sent_packets_total",
			Help: "Total number of packets handed to the transmit sink",
		}),
		DroppedPackets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_dropped_packets_total",
			Help: "Total number of packets dropped, by stage and reason",
		}, []string{"stage", "reason"}),
	}
}

func (m *Metrics) countDrop(stage, reason string) {
	if m == nil || m.DroppedPackets == nil {
		return
	}
	if stage == "" {
		stage = "input"
	}
	m.DroppedPackets.WithLabelValues(stage, reason).Inc()
}
