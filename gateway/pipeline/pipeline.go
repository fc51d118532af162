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

// Package pipeline composes packet-transforming stages over packet
// iterators. A stage consumes a stream and emits a stream; composition is
// lazy, so a full chain processes one packet end to end before pulling the
// next from the source.
//
// Stages pass dead packets through untouched; the pipeline tail accounts
// and discards them. Within one input stream, stages preserve packet order.
package pipeline

import (
	"iter"

	"github.com/opennetfabric/gateway/pkg/packet"
)

// Stage is one step of the pipeline.
type Stage interface {
	// Name identifies the stage in logs and counters.
	Name() string
	// Process transforms the stream. Implementations must forward dead
	// packets unchanged and preserve input order.
	Process(in iter.Seq[*packet.Packet]) iter.Seq[*packet.Packet]
}

type chain struct {
	stages []Stage
}

// Chain composes stages left to right: the output of the first feeds the
// second. Meant for short, fixed compositions; runtime-assembled pipelines
// use DynPipeline.
func Chain(stages ...Stage) Stage {
	return &chain{stages: stages}
}

func (c *chain) Name() string { return "chain" }

func (c *chain) Process(in iter.Seq[*packet.Packet]) iter.Seq[*packet.Packet] {
	out := in
	for _, s := range c.stages {
		out = s.Process(out)
	}
	return out
}

// DynPipeline is a runtime-assembled sequence of stages.
type DynPipeline struct {
	stages []Stage
}

// NewDynPipeline returns an empty pipeline.
func NewDynPipeline() *DynPipeline {
	return &DynPipeline{}
}

// AddStage appends a stage. Returns the pipeline for chaining.
func (p *DynPipeline) AddStage(s Stage) *DynPipeline {
	p.stages = append(p.stages, s)
	return p
}

// Stages returns the assembled stages in order.
func (p *DynPipeline) Stages() []Stage {
	return p.stages
}

func (p *DynPipeline) Name() string { return "pipeline" }

// Process folds the stream through all stages.
func (p *DynPipeline) Process(in iter.Seq[*packet.Packet]) iter.Seq[*packet.Packet] {
	out := in
	for _, s := range p.stages {
		out = s.Process(out)
	}
	return out
}

// Transform builds a stage applying fn to every live packet in place. Dead
// packets skip fn.
func Transform(name string, fn func(*packet.Packet)) Stage {
	return &transform{name: name, fn: fn}
}

type transform struct {
	name string
	fn   func(*packet.Packet)
}

func (t *transform) Name() string { return t.name }

func (t *transform) Process(in iter.Seq[*packet.Packet]) iter.Seq[*packet.Packet] {
	return func(yield func(*packet.Packet) bool) {
		for p := range in {
			if !p.IsDropped() {
				t.fn(p)
				if p.IsDropped() {
					p.Meta.DropStage = t.name
				}
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Collect drains a stream into a slice. Test and batch helper.
func Collect(in iter.Seq[*packet.Packet]) []*packet.Packet {
	var out []*packet.Packet
	for p := range in {
		out = append(out, p)
	}
	return out
}

// FromSlice turns a batch into a stream.
func FromSlice(pkts []*packet.Packet) iter.Seq[*packet.Packet] {
	return func(yield func(*packet.Packet) bool) {
		for _, p := range pkts {
			if !yield(p) {
				return
			}
		}
	}
}
