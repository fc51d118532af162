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

// Package stateful implements per-flow source NAT. Flows are identified by
// their addresses, ports, transport protocol and VRF; the first packet of a
// flow allocates a target address and port from a pool, and every later
// packet of the flow, in either direction, is rewritten from the stored
// session.
//
// A Table is owned by a single dataplane worker and is not safe for
// concurrent use.
package stateful

import (
	"net/netip"
	"time"

	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/lpm"
	"github.com/opennetfabric/gateway/pkg/metrics"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// Tuple identifies a flow within a VRF. Ports are zero for protocols
// without them.
type Tuple struct {
	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	Proto   uint8
	Vrf     nettype.VrfId
}

// Session holds the translation state of one flow.
type Session struct {
	Tuple         Tuple
	TargetSrc     netip.Addr
	TargetDst     netip.Addr
	TargetSrcPort uint16
	TargetDstPort uint16
	LastUsed      time.Time
	ClosedAt      time.Time
	Packets       uint64
	Bytes         uint64
	OriginatorId  uint64

	pool      *Pool
	allocAddr netip.Addr
	allocPort uint16
}

// Timeouts holds the per-protocol idle timeouts after which a session is
// reaped.
type Timeouts struct {
	Tcp   time.Duration
	Udp   time.Duration
	Icmp  time.Duration
	Other time.Duration
}

// DefaultTimeouts returns the idle timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Tcp:   5 * time.Minute,
		Udp:   time.Minute,
		Icmp:  30 * time.Second,
		Other: time.Minute,
	}
}

func (t Timeouts) forProto(proto uint8) time.Duration {
	switch proto {
	case headers.ProtoTCP:
		return t.Tcp
	case headers.ProtoUDP:
		return t.Udp
	case headers.ProtoICMPv4, headers.ProtoICMPv6:
		return t.Icmp
	}
	return t.Other
}

// Metrics reports session manager activity. Nil counters are ignored.
type Metrics struct {
	SessionsCreated metrics.Counter
	SessionsReaped  metrics.Counter
	ActiveSessions  metrics.Gauge
}

// Table is the session manager of one worker. Sessions are indexed by the
// flow tuple of the originating direction; a reverse index maps the reply
// tuple back to the same session for return traffic.
type Table struct {
	sessions map[Tuple]*Session
	reverse  map[Tuple]*Session
	pools    map[nettype.VrfId]*lpm.PrefixTrie[*Pool]
	timeouts Timeouts
	metrics  Metrics
	now      func() time.Time
	nextId   uint64
}

// Option configures a Table.
type Option func(*Table)

// WithTimeouts overrides the idle timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(tbl *Table) { tbl.timeouts = t }
}

// WithMetrics attaches session counters.
func WithMetrics(m Metrics) Option {
	return func(tbl *Table) { tbl.metrics = m }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(tbl *Table) { tbl.now = now }
}

// NewTable returns an empty session manager.
func NewTable(opts ...Option) *Table {
	t := &Table{
		sessions: make(map[Tuple]*Session),
		reverse:  make(map[Tuple]*Session),
		pools:    make(map[nettype.VrfId]*lpm.PrefixTrie[*Pool]),
		timeouts: DefaultTimeouts(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// AddPool registers a pool for flows whose source address falls under one
// of the given prefixes in the given VRF.
func (t *Table) AddPool(vrf nettype.VrfId, sources []netip.Prefix, pool *Pool) {
	trie, ok := t.pools[vrf]
	if !ok {
		trie = lpm.NewPrefixTrie[*Pool]()
		t.pools[vrf] = trie
	}
	for _, p := range sources {
		trie.Insert(p, pool)
	}
}

func (t *Table) poolFor(vrf nettype.VrfId, src netip.Addr) (*Pool, bool) {
	trie, ok := t.pools[vrf]
	if !ok {
		return nil, false
	}
	_, pool, ok := trie.Lookup(src)
	return pool, ok
}

// Lookup returns the session keyed by the originating tuple.
func (t *Table) Lookup(key Tuple) (*Session, bool) {
	s, ok := t.sessions[key]
	return s, ok
}

// LookupReverse returns the session whose reply direction matches the tuple.
func (t *Table) LookupReverse(key Tuple) (*Session, bool) {
	s, ok := t.reverse[key]
	return s, ok
}

// CreateSession allocates a target address and port for the flow and inserts
// the session under both the originating and the reply tuple. The reply
// tuple sees the flow from the far end: source is the original destination,
// destination is the freshly allocated address and port.
func (t *Table) CreateSession(key Tuple) (*Session, error) {
	pool, ok := t.poolFor(key.Vrf, key.Src)
	if !ok {
		return nil, ErrNoPool
	}
	addr, port, ok := pool.alloc()
	if !ok {
		return nil, ErrNoResources
	}
	t.nextId++
	s := &Session{
		Tuple:         key,
		TargetSrc:     addr,
		TargetDst:     key.Dst,
		TargetSrcPort: port,
		LastUsed:      t.now(),
		OriginatorId:  t.nextId,
		pool:          pool,
		allocAddr:     addr,
		allocPort:     port,
	}
	t.sessions[key] = s
	t.reverse[t.replyTuple(s)] = s
	metrics.CounterInc(t.metrics.SessionsCreated)
	metrics.GaugeSet(t.metrics.ActiveSessions, float64(len(t.sessions)))
	return s, nil
}

func (t *Table) replyTuple(s *Session) Tuple {
	return Tuple{
		Src:     s.Tuple.Dst,
		Dst:     s.TargetSrc,
		SrcPort: s.Tuple.DstPort,
		DstPort: s.TargetSrcPort,
		Proto:   s.Tuple.Proto,
		Vrf:     s.Tuple.Vrf,
	}
}

// RemoveSession drops the session from both indexes and returns its port to
// the pool.
func (t *Table) RemoveSession(key Tuple) {
	s, ok := t.sessions[key]
	if !ok {
		return
	}
	delete(t.sessions, key)
	delete(t.reverse, t.replyTuple(s))
	s.pool.release(s.allocAddr, s.allocPort)
	s.ClosedAt = t.now()
	metrics.GaugeSet(t.metrics.ActiveSessions, float64(len(t.sessions)))
}

// Sweep removes sessions idle past their protocol's timeout and returns how
// many were reaped. Run it periodically from the owning worker.
func (t *Table) Sweep() int {
	now := t.now()
	reaped := 0
	for key, s := range t.sessions {
		if now.Sub(s.LastUsed) <= t.timeouts.forProto(key.Proto) {
			continue
		}
		t.RemoveSession(key)
		reaped++
	}
	metrics.CounterAdd(t.metrics.SessionsReaped, float64(reaped))
	return reaped
}

// Len returns the number of live sessions.
func (t *Table) Len() int {
	return len(t.sessions)
}
