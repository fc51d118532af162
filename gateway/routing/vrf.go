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

package routing

import (
	"iter"
	"net/netip"

	"github.com/opennetfabric/gateway/pkg/lpm"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// maxResolutionDepth bounds the recursive next-hop resolution. A chain
// deeper than this is treated as a cycle and the outer next-hop dropped.
const maxResolutionDepth = 4

// RouteType says where a route came from.
type RouteType uint8

const (
	RouteConnected RouteType = iota
	RouteStatic
	RouteBgp
	RouteOspf
)

func (t RouteType) String() string {
	switch t {
	case RouteConnected:
		return "connected"
	case RouteStatic:
		return "static"
	case RouteBgp:
		return "bgp"
	case RouteOspf:
		return "ospf"
	}
	return "unknown"
}

// Route is one RIB entry. Nhops hold shared references into the VRF's
// NhopStore.
type Route struct {
	Prefix   netip.Prefix
	Type     RouteType
	Distance uint8
	Metric   uint32
	Nhops    []*Nhop
}

// Vrf is a named routing table: an NhopStore plus one LPM trie per address
// family. It is writer-side state; the dataplane sees only the FIB projected
// from it.
type Vrf struct {
	Name    string
	Id      nettype.VrfId
	TableId uint32
	Vni     nettype.Vni
	VpcId   string

	store  *NhopStore
	routes *lpm.PrefixTrie[*Route]
}

// NewVrf returns an empty VRF.
func NewVrf(name string, id nettype.VrfId) *Vrf {
	return &Vrf{
		Name:   name,
		Id:     id,
		store:  NewNhopStore(),
		routes: lpm.NewPrefixTrie[*Route](),
	}
}

// Store exposes the VRF's next-hop store.
func (v *Vrf) Store() *NhopStore {
	return v.store
}

// AddRoute installs or replaces the route for prefix and re-runs next-hop
// resolution.
func (v *Vrf) AddRoute(prefix netip.Prefix, rtype RouteType, distance uint8,
	metric uint32, keys ...NhopKey) error {

	if len(keys) == 0 {
		return serrors.New("route needs at least one next-hop", "prefix", prefix)
	}
	for _, key := range keys {
		if key.Addr.IsValid() && key.Addr.Is4() != prefix.Addr().Is4() {
			return serrors.New("next-hop family does not match prefix",
				"prefix", prefix, "nhop", key)
		}
	}
	route := &Route{
		Prefix:   prefix,
		Type:     rtype,
		Distance: distance,
		Metric:   metric,
		Nhops:    make([]*Nhop, 0, len(keys)),
	}
	for _, key := range keys {
		route.Nhops = append(route.Nhops, v.store.Add(key))
	}
	if old, ok := v.routes.Insert(prefix, route); ok {
		v.releaseRoute(old)
	}
	v.resolveAll()
	return nil
}

// DelRoute removes the route for exactly prefix.
func (v *Vrf) DelRoute(prefix netip.Prefix) bool {
	route, ok := v.routes.Remove(prefix)
	if !ok {
		return false
	}
	v.releaseRoute(route)
	v.resolveAll()
	return true
}

func (v *Vrf) releaseRoute(r *Route) {
	for _, n := range r.Nhops {
		v.store.Release(n)
	}
}

// Lookup longest-prefix-matches an address against the RIB.
func (v *Vrf) Lookup(addr netip.Addr) (*Route, bool) {
	_, route, ok := v.routes.Lookup(addr)
	return route, ok
}

// Routes iterates over the RIB entries.
func (v *Vrf) Routes() iter.Seq[*Route] {
	return func(yield func(*Route) bool) {
		for _, route := range v.routes.All() {
			if !yield(route) {
				return
			}
		}
	}
}

// resolveAll recomputes the resolver links of every interned next-hop, then
// validates the resulting graph. A next-hop whose chain exceeds
// maxResolutionDepth or loops back on itself is marked unresolvable.
func (v *Vrf) resolveAll() {
	nhops := v.store.all()
	for _, n := range nhops {
		n.resolvers = nil
		n.unresolvable = false
	}
	for _, n := range nhops {
		if n.Key.Action != ActionForward || n.Key.Ifindex != 0 || !n.Key.Addr.IsValid() {
			continue
		}
		route, ok := v.Lookup(n.Key.Addr)
		if !ok {
			continue
		}
		for _, resolver := range route.Nhops {
			if resolver != n {
				n.resolvers = append(n.resolvers, resolver)
			}
		}
	}
	for _, n := range nhops {
		if !v.reachesLeaves(n, maxResolutionDepth, map[*Nhop]bool{}) {
			n.unresolvable = true
		}
	}
}

func (v *Vrf) reachesLeaves(n *Nhop, depth int, seen map[*Nhop]bool) bool {
	if seen[n] || depth < 0 {
		return false
	}
	if len(n.resolvers) == 0 {
		// A leaf either terminates traffic or names an interface.
		return n.Key.Action != ActionForward || n.Key.Ifindex != 0
	}
	seen[n] = true
	defer delete(seen, n)
	for _, resolver := range n.resolvers {
		if !v.reachesLeaves(resolver, depth-1, seen) {
			return false
		}
	}
	return true
}
