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

package adjacency

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"zgo.at/zcache/v2"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/metrics"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

const (
	// DefaultWorkers is the probe worker pool size.
	DefaultWorkers = 3
	// DefaultRefreshAge is how old an adjacency may grow before it is
	// probed again.
	DefaultRefreshAge = 5 * time.Minute
	// DefaultNegativeTTL suppresses repeat probes of a failed neighbor.
	DefaultNegativeTTL = 30 * time.Second

	requestQueueLen = 512
)

// Prober performs one neighbor resolution.
type Prober interface {
	Probe(ctx context.Context, key Key) (nettype.Mac, error)
}

// Metrics exposes the resolver's counters. Nil fields are not reported.
type Metrics struct {
	Resolved     metrics.Counter
	Failed       metrics.Counter
	Dropped      metrics.Counter
	TableEntries metrics.Gauge
}

// Resolver turns resolution requests into published adjacencies. Requests
// come from the FIB projection and from the periodic refresh of aging
// entries. Failed probes are negative-cached so a flood of packets to an
// unresolvable next-hop does not turn into a flood of probes.
type Resolver struct {
	workers     int
	refreshAge  time.Duration
	negativeTTL time.Duration

	prober   Prober
	writer   *leftright.Writer[Table]
	reader   *leftright.Reader[Table]
	requests chan Key
	results  chan Adjacency
	negative *zcache.Cache[Key, struct{}]
	logger   log.Logger
	metrics  Metrics
}

// ResolverOption tweaks a Resolver.
type ResolverOption func(*Resolver)

// WithWorkers sets the probe worker pool size.
func WithWorkers(n int) ResolverOption {
	return func(r *Resolver) { r.workers = n }
}

// WithRefreshAge sets the entry refresh age.
func WithRefreshAge(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.refreshAge = d }
}

// WithNegativeTTL sets the negative-cache TTL.
func WithNegativeTTL(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.negativeTTL = d }
}

// WithMetrics attaches counters.
func WithMetrics(m Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver builds a resolver publishing through writer. The reader must
// belong to the same table; it drives the refresh scan.
func NewResolver(prober Prober, writer *leftright.Writer[Table],
	reader *leftright.Reader[Table], logger log.Logger,
	opts ...ResolverOption) *Resolver {

	r := &Resolver{
		workers:     DefaultWorkers,
		refreshAge:  DefaultRefreshAge,
		negativeTTL: DefaultNegativeTTL,
		prober:      prober,
		writer:      writer,
		reader:      reader,
		requests:    make(chan Key, requestQueueLen),
		results:     make(chan Adjacency, requestQueueLen),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.negative = zcache.New[Key, struct{}](r.negativeTTL, 0)
	return r
}

// Request asks for a neighbor to be resolved. It never blocks; requests are
// shed when the queue is full, and neighbors that recently failed are
// skipped until their negative-cache entry expires.
func (r *Resolver) Request(key Key) {
	if _, bad := r.negative.Get(key); bad {
		return
	}
	select {
	case r.requests <- key:
	default:
		metrics.CounterInc(r.metrics.Dropped)
	}
}

// Run operates the resolver until ctx is cancelled. The probe workers run
// in parallel; a single publisher goroutine owns the table writer.
func (r *Resolver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for range r.workers {
		g.Go(func() error {
			defer log.HandlePanic()
			return r.probeLoop(ctx)
		})
	}
	g.Go(func() error {
		defer log.HandlePanic()
		return r.publishLoop(ctx)
	})
	g.Go(func() error {
		defer log.HandlePanic()
		return r.refreshLoop(ctx)
	})
	return g.Wait()
}

func (r *Resolver) probeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case key := <-r.requests:
			mac, err := r.prober.Probe(ctx, key)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.negative.Set(key, struct{}{})
				metrics.CounterInc(r.metrics.Failed)
				r.logger.Debug("Neighbor probe failed", "key", key, "err", err)
				continue
			}
			metrics.CounterInc(r.metrics.Resolved)
			adj := Adjacency{Key: key, Mac: mac, ResolvedAt: time.Now()}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.results <- adj:
			}
		}
	}
}

func (r *Resolver) publishLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case adj := <-r.results:
			r.writer.Append(Add(adj))
			// Coalesce whatever else has arrived into one publish.
			for {
				select {
				case more := <-r.results:
					r.writer.Append(Add(more))
					continue
				default:
				}
				break
			}
			r.writer.Publish()
			snap := r.writer.Snapshot()
			metrics.GaugeSet(r.metrics.TableEntries, float64(snap.Len()))
			r.logger.Debug("Published adjacency", "key", adj.Key, "mac", adj.Mac)
		}
	}
}

func (r *Resolver) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(r.refreshAge / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-r.refreshAge)
			for adj := range r.reader.Guard().All() {
				if adj.ResolvedAt.Before(cutoff) {
					r.Request(adj.Key)
				}
			}
		}
	}
}
