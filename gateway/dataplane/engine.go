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

// Package dataplane assembles the packet processing pipeline and runs it
// over a packet source and sink. The stages consume the read side of the
// published tables; the control plane owns the write side.
package dataplane

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/nat/stateful"
	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/gateway/vpcmap"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// Source delivers received packets. Recv returns io.EOF when the source is
// exhausted and the context's error when it is cancelled.
type Source interface {
	Recv(ctx context.Context) (*packet.Packet, error)
}

// Sink transmits packets that completed the pipeline.
type Sink interface {
	Send(p *packet.Packet) error
}

// Tables groups the read sides the production pipeline consumes.
type Tables struct {
	Interfaces *leftright.Reader[iftable.Table]
	Fibs       *leftright.Reader[routing.FibTable]
	Vpcs       *leftright.Reader[vpcmap.Map]
	Nat        *leftright.Reader[stateless.Tables]
}

// PipelineOption adjusts the production stage chain.
type PipelineOption func(*pipelineOpts)

type pipelineOpts struct {
	dump log.Logger
}

// WithDump brackets the chain with packet dump stages: every packet is
// logged before ingress and again after egress.
func WithDump(logger log.Logger) PipelineOption {
	return func(o *pipelineOpts) { o.dump = logger }
}

// NewPipeline assembles the production stage chain: an optional pre-ingress
// dump, ingress checks, a first routing pass, destination VPC lookup, NAT,
// the final routing pass with TTL decrement, stats, egress, an optional
// post-egress dump and the drop sink. The sessions table must be exclusive
// to the pipeline's worker.
func NewPipeline(t Tables, vtep Vtep, sessions *stateful.Table, m *Metrics,
	opts ...PipelineOption) pipeline.Stage {

	var o pipelineOpts
	for _, opt := range opts {
		opt(&o)
	}
	stages := []pipeline.Stage{
		Ingress(t.Interfaces),
		IpForward("ip-forward", t.Fibs),
		DstVniLookup(t.Vpcs),
		StatelessNat(t.Nat),
		StatefulNat(sessions),
		IpForward("ip-forward-post-nat", t.Fibs, WithFinalize(vtep)),
		Stats(m),
		Egress(t.Interfaces),
	}
	if o.dump != nil {
		stages = append([]pipeline.Stage{Dump("pre-ingress-dump", o.dump)}, stages...)
		stages = append(stages, Dump("post-egress-dump", o.dump))
	}
	stages = append(stages, DropSink(m))
	return pipeline.Chain(stages...)
}

// Engine runs per-worker pipelines between a source and a sink.
type Engine struct {
	source  Source
	sink    Sink
	build   func(worker int) pipeline.Stage
	workers int
	metrics *Metrics
	logger  log.Logger
}

// NewEngine creates an engine with the given number of workers. The build
// function is called once per worker so worker-local state, such as the
// stateful NAT table, is never shared.
func NewEngine(source Source, sink Sink, workers int,
	build func(worker int) pipeline.Stage, m *Metrics) *Engine {

	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		source:  source,
		sink:    sink,
		build:   build,
		workers: workers,
		metrics: m,
		logger:  log.New("component", "dataplane"),
	}
}

// Run processes packets until the context is cancelled or the source is
// exhausted.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < e.workers; w++ {
		g.Go(func() error {
			return e.runWorker(ctx, w)
		})
	}
	return g.Wait()
}

func (e *Engine) runWorker(ctx context.Context, id int) error {
	logger := e.logger.New("worker", id)
	stage := e.build(id)

	var recvErr error
	source := func(yield func(*packet.Packet) bool) {
		for {
			p, err := e.source.Recv(ctx)
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					recvErr = err
				}
				return
			}
			if !yield(p) {
				return
			}
		}
	}
	for p := range stage.Process(source) {
		if p.IsDropped() {
			continue
		}
		if err := e.sink.Send(p); err != nil {
			logger.Error("Sending packet", "err", err)
			continue
		}
		if e.metrics != nil {
			e.metrics.SentPackets.Inc()
		}
	}
	if recvErr != nil {
		logger.Error("Packet source failed", "err", recvErr)
	}
	return recvErr
}

// ChanSource adapts a channel to a Source. A closed channel reads as io.EOF.
type ChanSource <-chan *packet.Packet

// Recv implements Source.
func (c ChanSource) Recv(ctx context.Context) (*packet.Packet, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p, ok := <-c:
		if !ok {
			return nil, io.EOF
		}
		return p, nil
	}
}

// ChanSink adapts a channel to a Sink.
type ChanSink chan<- *packet.Packet

// Send implements Sink.
func (c ChanSink) Send(p *packet.Packet) error {
	c <- p
	return nil
}
