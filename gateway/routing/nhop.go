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

// Package routing holds the RIB side of the gateway: interned next-hops,
// per-VRF routing tables with recursive next-hop resolution, and the
// projection into the published FIB the dataplane looks up.
package routing

import (
	"fmt"
	"net/netip"

	"github.com/opennetfabric/gateway/pkg/nettype"
)

// Action says what to do with traffic hitting a next-hop.
type Action uint8

const (
	ActionForward Action = iota
	ActionDrop
	ActionPunt
)

func (a Action) String() string {
	switch a {
	case ActionForward:
		return "forward"
	case ActionDrop:
		return "drop"
	case ActionPunt:
		return "punt"
	}
	return "unknown"
}

// EncapKind discriminates Encapsulation.
type EncapKind uint8

const (
	EncapNone EncapKind = iota
	EncapVxlan
	EncapMpls
)

// Encapsulation describes the tunnel a next-hop forwards into. The zero
// value means no encapsulation. It is a plain comparable value so it can sit
// inside an NhopKey.
type Encapsulation struct {
	Kind EncapKind
	// Vni and Remote describe a VXLAN tunnel.
	Vni    nettype.Vni
	Remote netip.Addr
	// Dmac, when set, overrides the adjacency-resolved inner MAC.
	Dmac    nettype.Mac
	HasDmac bool
	// Label is the MPLS label.
	Label uint32
}

// VxlanEncap builds a VXLAN encapsulation.
func VxlanEncap(vni nettype.Vni, remote netip.Addr) Encapsulation {
	return Encapsulation{Kind: EncapVxlan, Vni: vni, Remote: remote}
}

// MplsEncap builds an MPLS encapsulation.
func MplsEncap(label uint32) Encapsulation {
	return Encapsulation{Kind: EncapMpls, Label: label}
}

func (e Encapsulation) String() string {
	switch e.Kind {
	case EncapVxlan:
		return fmt.Sprintf("vxlan(vni=%d, remote=%s)", e.Vni, e.Remote)
	case EncapMpls:
		return fmt.Sprintf("mpls(%d)", e.Label)
	}
	return "none"
}

// NhopKey is the identity of a next-hop. Zero fields mean unset: an Addr-only
// key needs recursive resolution, an Ifindex-bearing key is directly
// attached.
type NhopKey struct {
	Addr    netip.Addr
	Ifindex uint32
	Encap   Encapsulation
	Action  Action
}

func (k NhopKey) String() string {
	return fmt.Sprintf("nhop(addr=%s, if=%d, encap=%s, action=%s)",
		k.Addr, k.Ifindex, k.Encap, k.Action)
}

// Nhop is an interned next-hop. The resolver links form a DAG: an Nhop with
// only an address resolves through the next-hops of the covering route.
type Nhop struct {
	Key NhopKey

	// refs counts the routes (and other holders) sharing this record.
	refs int
	// resolvers is set by the VRF resolution pass.
	resolvers []*Nhop
	// unresolvable marks a next-hop whose resolution hit a cycle or the
	// depth limit; traffic through it is dropped.
	unresolvable bool
}

// Resolvers returns the next-hops this one resolves through. Empty for a
// directly attached next-hop.
func (n *Nhop) Resolvers() []*Nhop {
	return n.resolvers
}

// Unresolvable reports whether resolution was given up on.
func (n *Nhop) Unresolvable() bool {
	return n.unresolvable
}

// NhopStore interns next-hops by key. Two Add calls with the same key return
// the same record.
type NhopStore struct {
	byKey map[NhopKey]*Nhop
}

// NewNhopStore returns an empty store.
func NewNhopStore() *NhopStore {
	return &NhopStore{byKey: make(map[NhopKey]*Nhop)}
}

// Add interns a key and takes a reference on the record.
func (s *NhopStore) Add(key NhopKey) *Nhop {
	n, ok := s.byKey[key]
	if !ok {
		n = &Nhop{Key: key}
		s.byKey[key] = n
	}
	n.refs++
	return n
}

// Release drops a reference. The record is removed once no holder is left.
func (s *NhopStore) Release(n *Nhop) {
	n.refs--
	if n.refs <= 0 {
		delete(s.byKey, n.Key)
	}
}

// Get returns the record for a key without taking a reference.
func (s *NhopStore) Get(key NhopKey) (*Nhop, bool) {
	n, ok := s.byKey[key]
	return n, ok
}

// Refs reports the live reference count of a record.
func (n *Nhop) Refs() int {
	return n.refs
}

// Len reports the number of interned records.
func (s *NhopStore) Len() int {
	return len(s.byKey)
}

// all iterates the interned records.
func (s *NhopStore) all() []*Nhop {
	out := make([]*Nhop, 0, len(s.byKey))
	for _, n := range s.byKey {
		out = append(out, n)
	}
	return out
}
