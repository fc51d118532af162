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

package routing_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/gateway/adjacency"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

func attachedKey(addr string, ifindex uint32) routing.NhopKey {
	return routing.NhopKey{
		Addr:    netip.MustParseAddr(addr),
		Ifindex: ifindex,
	}
}

func gatewayKey(addr string) routing.NhopKey {
	return routing.NhopKey{Addr: netip.MustParseAddr(addr)}
}

func TestNhopInterning(t *testing.T) {
	store := routing.NewNhopStore()
	key := attachedKey("10.0.0.9", 4)

	a := store.Add(key)
	b := store.Add(key)
	assert.Same(t, a, b)
	assert.Equal(t, 2, a.Refs())
	assert.Equal(t, 1, store.Len())

	other := store.Add(attachedKey("10.0.0.9", 5))
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, store.Len())

	store.Release(a)
	_, ok := store.Get(key)
	assert.True(t, ok)
	store.Release(b)
	_, ok = store.Get(key)
	assert.False(t, ok)
}

func TestAddDelRoute(t *testing.T) {
	v := routing.NewVrf("default", 1)
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("10.0.0.0/8"),
		routing.RouteStatic, 1, 0, attachedKey("10.0.0.9", 4)))
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("10.1.0.0/16"),
		routing.RouteBgp, 20, 100, attachedKey("10.1.0.9", 5)))

	route, ok := v.Lookup(netip.MustParseAddr("10.1.2.3"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), route.Prefix)

	require.True(t, v.DelRoute(netip.MustParsePrefix("10.1.0.0/16")))
	route, ok = v.Lookup(netip.MustParseAddr("10.1.2.3"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), route.Prefix)

	// Deleting the route released its next-hops.
	assert.Equal(t, 1, v.Store().Len())

	assert.Error(t, v.AddRoute(netip.MustParsePrefix("10.2.0.0/16"),
		routing.RouteStatic, 1, 0))
	assert.Error(t, v.AddRoute(netip.MustParsePrefix("10.2.0.0/16"),
		routing.RouteStatic, 1, 0, gatewayKey("2001:db8::1")))
}

func TestRecursiveResolution(t *testing.T) {
	v := routing.NewVrf("default", 1)
	// Connected route gives the underlay path.
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("10.0.0.0/24"),
		routing.RouteConnected, 0, 0, attachedKey("10.0.0.9", 4)))
	// BGP route resolves through the connected one.
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("192.0.2.0/24"),
		routing.RouteBgp, 20, 0, gatewayKey("10.0.0.9")))

	route, ok := v.Lookup(netip.MustParseAddr("192.0.2.1"))
	require.True(t, ok)
	require.Len(t, route.Nhops, 1)
	n := route.Nhops[0]
	assert.False(t, n.Unresolvable())
	require.Len(t, n.Resolvers(), 1)
	assert.Equal(t, uint32(4), n.Resolvers()[0].Key.Ifindex)
}

func TestResolutionCycleDrops(t *testing.T) {
	v := routing.NewVrf("default", 1)
	// Two routes resolving through each other.
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("198.51.100.0/24"),
		routing.RouteStatic, 1, 0, gatewayKey("203.0.113.1")))
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("203.0.113.0/24"),
		routing.RouteStatic, 1, 0, gatewayKey("198.51.100.1")))

	route, ok := v.Lookup(netip.MustParseAddr("198.51.100.7"))
	require.True(t, ok)
	assert.True(t, route.Nhops[0].Unresolvable())

	fib := routing.Project(v, adjacency.NewTable())
	group, ok := fib.Lookup(netip.MustParseAddr("198.51.100.7"))
	require.True(t, ok)
	require.Len(t, group.Entries, 1)
	assert.Equal(t, routing.ActionDrop, group.Entries[0].Action)
}

func adjTable(entries ...adjacency.Adjacency) *adjacency.Table {
	w, r := adjacency.New()
	for _, a := range entries {
		w.Append(adjacency.Add(a))
	}
	w.Publish()
	return r.Guard()
}

func TestProjectResolvedRoute(t *testing.T) {
	v := routing.NewVrf("default", 1)
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("192.0.2.10/32"),
		routing.RouteStatic, 1, 0, attachedKey("10.0.0.9", 4)))

	mac := nettype.MustParseMac("02:aa:00:00:00:09")
	fib := routing.Project(v, adjTable(adjacency.Adjacency{
		Key:        adjacency.Key{Ifindex: 4, Addr: netip.MustParseAddr("10.0.0.9")},
		Mac:        mac,
		ResolvedAt: time.Now(),
	}))

	group, ok := fib.Lookup(netip.MustParseAddr("192.0.2.10"))
	require.True(t, ok)
	require.Len(t, group.Entries, 1)
	assert.Equal(t, routing.ActionForward, group.Entries[0].Action)
	assert.Equal(t, uint32(4), group.Entries[0].Ifindex)
	assert.Equal(t, mac, group.Entries[0].Dmac)
}

func TestProjectAdjacencyMissYieldsEmptyGroup(t *testing.T) {
	v := routing.NewVrf("default", 1)
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("192.0.2.10/32"),
		routing.RouteStatic, 1, 0, attachedKey("10.0.0.9", 4)))

	fib := routing.Project(v, adjacency.NewTable())
	group, ok := fib.Lookup(netip.MustParseAddr("192.0.2.10"))
	require.True(t, ok)
	assert.True(t, group.Empty())
}

func TestProjectEncapCarriesDown(t *testing.T) {
	v := routing.NewVrf("vpc-1", 2)
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("10.0.0.0/24"),
		routing.RouteConnected, 0, 0, attachedKey("10.0.0.9", 4)))
	encap := routing.VxlanEncap(nettype.MustVni(3000), netip.MustParseAddr("10.0.0.9"))
	require.NoError(t, v.AddRoute(netip.MustParsePrefix("172.16.0.0/16"),
		routing.RouteBgp, 20, 0,
		routing.NhopKey{Addr: netip.MustParseAddr("10.0.0.9"), Encap: encap}))

	fib := routing.Project(v, adjTable(adjacency.Adjacency{
		Key: adjacency.Key{Ifindex: 4, Addr: netip.MustParseAddr("10.0.0.9")},
		Mac: nettype.MustParseMac("02:aa:00:00:00:09"),
	}))
	group, ok := fib.Lookup(netip.MustParseAddr("172.16.5.5"))
	require.True(t, ok)
	require.Len(t, group.Entries, 1)
	assert.Equal(t, routing.EncapVxlan, group.Entries[0].Encap.Kind)
	assert.Equal(t, nettype.MustVni(3000), group.Entries[0].Encap.Vni)
}

func TestFibGroupInterning(t *testing.T) {
	fib := routing.NewFib(routing.FibIdFromId(1))
	entries := []routing.FibEntry{{
		Action:  routing.ActionForward,
		Ifindex: 4,
		Dmac:    nettype.MustParseMac("02:aa:00:00:00:09"),
	}}
	fib.Insert(netip.MustParsePrefix("10.0.0.0/8"), entries)
	fib.Insert(netip.MustParsePrefix("10.1.0.0/16"), entries)

	a, _ := fib.Lookup(netip.MustParseAddr("10.2.0.1"))
	b, _ := fib.Lookup(netip.MustParseAddr("10.1.0.1"))
	assert.Same(t, a, b)

	// Replacing one prefix with a new group leaves the other untouched;
	// Sweep keeps every group still referenced.
	fib.Insert(netip.MustParsePrefix("10.1.0.0/16"), nil)
	fib.Sweep()
	a, _ = fib.Lookup(netip.MustParseAddr("10.2.0.1"))
	assert.False(t, a.Empty())
	b, _ = fib.Lookup(netip.MustParseAddr("10.1.0.1"))
	assert.True(t, b.Empty())
}

func TestFibTableOps(t *testing.T) {
	w, r := routing.NewTable()
	fib := routing.NewFib(routing.FibIdFromId(1))
	fib.Insert(netip.MustParsePrefix("0.0.0.0/0"), nil)

	vni := nettype.MustVni(3000)
	w.Append(routing.AddFib(fib), routing.RegisterByVni(fib.Id(), vni))
	w.Publish()

	tbl := r.Guard()
	got, ok := tbl.Get(routing.FibIdFromId(1))
	require.True(t, ok)
	assert.Same(t, fib, got)
	got, ok = tbl.GetByVni(vni)
	require.True(t, ok)
	assert.Same(t, fib, got)

	w.Append(routing.DelFib(fib.Id()))
	w.Publish()
	tbl = r.Guard()
	_, ok = tbl.Get(routing.FibIdFromId(1))
	assert.False(t, ok)
	_, ok = tbl.GetByVni(vni)
	assert.False(t, ok)
}
