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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NewPromCounter wraps a prometheus counter vector as a counter.
// Returns nil if cv is nil.
func NewPromCounter(cv *prometheus.CounterVec) Counter {
	if cv == nil {
		return nil
	}
	return &promCounter{cv: cv}
}

// NewPromGauge wraps a prometheus gauge vector as a gauge.
// Returns nil if gv is nil.
func NewPromGauge(gv *prometheus.GaugeVec) Gauge {
	if gv == nil {
		return nil
	}
	return &promGauge{gv: gv}
}

type promCounter struct {
	cv  *prometheus.CounterVec
	lvs []string
}

func (c *promCounter) Add(delta float64) {
	c.cv.WithLabelValues(c.lvs...).Add(delta)
}

// With returns a counter bound to the given label values.
func (c *promCounter) With(labelValues ...string) Counter {
	return &promCounter{cv: c.cv, lvs: append(c.lvs[:len(c.lvs):len(c.lvs)], labelValues...)}
}

type promGauge struct {
	gv  *prometheus.GaugeVec
	lvs []string
}

func (g *promGauge) Set(value float64) {
	g.gv.WithLabelValues(g.lvs...).Set(value)
}

func (g *promGauge) Add(delta float64) {
	g.gv.WithLabelValues(g.lvs...).Add(delta)
}

// With returns a gauge bound to the given label values.
func (g *promGauge) With(labelValues ...string) Gauge {
	return &promGauge{gv: g.gv, lvs: append(g.lvs[:len(g.lvs):len(g.lvs)], labelValues...)}
}
