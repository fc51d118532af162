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
	"github.com/opennetfabric/gateway/gateway/adjacency"
)

// Project builds the FIB for a VRF against an adjacency snapshot. Each route
// becomes the group of transmit-ready entries reachable through its
// next-hop graph:
//
//   - drop and punt next-hops become terminal entries of that action;
//   - unresolvable next-hops (cycle or depth limit) become drop entries;
//   - an interface-attached next-hop needs an adjacency for its peer IP,
//     unless the encapsulation pins the destination MAC; with neither, the
//     path is left out, so a fully unresolved route yields an empty group
//     and traffic drops until the resolver catches up;
//   - address-only next-hops contribute the entries of everything they
//     resolve through, with the outermost encapsulation carried down.
//
// Entries are de-duplicated and groups interned per FIB.
func Project(v *Vrf, adj *adjacency.Table) *Fib {
	fib := NewFib(FibIdFromId(uint32(v.Id)))
	for route := range v.Routes() {
		var entries []FibEntry
		seen := make(map[FibEntry]bool)
		for _, n := range route.Nhops {
			for _, e := range resolveEntries(n, n.Key.Encap, adj) {
				if !seen[e] {
					seen[e] = true
					entries = append(entries, e)
				}
			}
		}
		fib.Insert(route.Prefix, entries)
	}
	return fib
}

func resolveEntries(n *Nhop, encap Encapsulation, adj *adjacency.Table) []FibEntry {
	if n.Unresolvable() {
		return []FibEntry{{Action: ActionDrop}}
	}
	if n.Key.Action != ActionForward {
		return []FibEntry{{Action: n.Key.Action}}
	}
	if n.Key.Ifindex != 0 {
		entry := FibEntry{
			Action:  ActionForward,
			Ifindex: n.Key.Ifindex,
			Encap:   encap,
		}
		switch {
		case encap.HasDmac:
			entry.Dmac = encap.Dmac
		case n.Key.Addr.IsValid():
			a, ok := adj.Lookup(n.Key.Ifindex, n.Key.Addr)
			if !ok {
				return nil
			}
			entry.Dmac = a.Mac
		default:
			return nil
		}
		return []FibEntry{entry}
	}
	var out []FibEntry
	for _, resolver := range n.Resolvers() {
		inner := encap
		if inner.Kind == EncapNone {
			inner = resolver.Key.Encap
		}
		out = append(out, resolveEntries(resolver, inner, adj)...)
	}
	return out
}
