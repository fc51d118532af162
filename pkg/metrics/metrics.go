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

// Package metrics defines thin counter and gauge interfaces, so that
// components can count without depending on prometheus directly. Nil metric
// objects are valid and turn the operations into no-ops.
package metrics

// Counter describes a monotonically increasing metric.
type Counter interface {
	Add(delta float64)
}

// Gauge describes a metric that can go up and down.
type Gauge interface {
	Set(value float64)
	Add(delta float64)
}

// CounterInc increments the counter by one, if the counter is non-nil.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// CounterAdd adds the given delta, if the counter is non-nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// GaugeSet sets the gauge, if the gauge is non-nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}
