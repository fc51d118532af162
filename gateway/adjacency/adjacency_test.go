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

package adjacency_test

import (
	"context"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opennetfabric/gateway/gateway/adjacency"
	"github.com/opennetfabric/gateway/pkg/log/testlog"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTableOps(t *testing.T) {
	w, r := adjacency.New()
	adj := adjacency.Adjacency{
		Key: adjacency.Key{Ifindex: 4, Addr: netip.MustParseAddr("10.0.0.9")},
		Mac: nettype.MustParseMac("02:aa:bb:cc:dd:ee"),
	}
	w.Append(adjacency.Add(adj))
	w.Publish()

	got, ok := r.Guard().Lookup(4, netip.MustParseAddr("10.0.0.9"))
	require.True(t, ok)
	assert.Equal(t, adj.Mac, got.Mac)

	_, ok = r.Guard().Lookup(5, netip.MustParseAddr("10.0.0.9"))
	assert.False(t, ok)

	w.Append(adjacency.Del(adj.Key))
	w.Publish()
	_, ok = r.Guard().Lookup(4, netip.MustParseAddr("10.0.0.9"))
	assert.False(t, ok)

	w.Append(adjacency.Add(adj), adjacency.Clear())
	w.Publish()
	assert.Equal(t, 0, r.Guard().Len())
}

type fakeProber struct {
	mu    sync.Mutex
	macs  map[adjacency.Key]nettype.Mac
	calls map[adjacency.Key]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		macs:  make(map[adjacency.Key]nettype.Mac),
		calls: make(map[adjacency.Key]int),
	}
}

func (p *fakeProber) set(key adjacency.Key, mac nettype.Mac) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.macs[key] = mac
}

func (p *fakeProber) callCount(key adjacency.Key) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func (p *fakeProber) Probe(ctx context.Context, key adjacency.Key) (nettype.Mac, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[key]++
	mac, ok := p.macs[key]
	if !ok {
		return nettype.Mac{}, context.DeadlineExceeded
	}
	return mac, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestResolverPublishesSuccess(t *testing.T) {
	w, r := adjacency.New()
	prober := newFakeProber()
	key := adjacency.Key{Ifindex: 4, Addr: netip.MustParseAddr("10.0.0.9")}
	mac := nettype.MustParseMac("02:aa:bb:cc:dd:ee")
	prober.set(key, mac)

	res := adjacency.NewResolver(prober, w, r, testlog.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- res.Run(ctx) }()

	res.Request(key)
	waitFor(t, func() bool {
		_, ok := r.Guard().Lookup(4, key.Addr)
		return ok
	})
	got, _ := r.Guard().Lookup(4, key.Addr)
	assert.Equal(t, mac, got.Mac)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestResolverNegativeCache(t *testing.T) {
	w, r := adjacency.New()
	prober := newFakeProber()
	key := adjacency.Key{Ifindex: 7, Addr: netip.MustParseAddr("10.0.0.100")}

	res := adjacency.NewResolver(prober, w, r, testlog.NewLogger(t),
		adjacency.WithNegativeTTL(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- res.Run(ctx) }()

	res.Request(key)
	waitFor(t, func() bool { return prober.callCount(key) == 1 })

	// The failure is cached; repeated requests must not reach the prober.
	for range 50 {
		res.Request(key)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, prober.callCount(key))
	assert.Equal(t, 0, r.Guard().Len())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestResolverRefreshesAgingEntries(t *testing.T) {
	w, r := adjacency.New()
	prober := newFakeProber()
	key := adjacency.Key{Ifindex: 2, Addr: netip.MustParseAddr("192.0.2.9")}
	prober.set(key, nettype.MustParseMac("02:00:00:00:00:09"))

	res := adjacency.NewResolver(prober, w, r, testlog.NewLogger(t),
		adjacency.WithRefreshAge(40*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- res.Run(ctx) }()

	res.Request(key)
	waitFor(t, func() bool { return prober.callCount(key) >= 3 })

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
