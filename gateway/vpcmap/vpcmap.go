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

// Package vpcmap publishes the mapping from destination addresses to the
// VPC that owns them. The pipeline uses it between the two forwarding
// passes to stamp the destination VPC discriminant onto each packet.
package vpcmap

import (
	"net/netip"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/lpm"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// Map is a snapshot of the address-to-VPC mapping.
type Map struct {
	prefixes *lpm.PrefixTrie[nettype.VpcDiscriminant]
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{prefixes: lpm.NewPrefixTrie[nettype.VpcDiscriminant]()}
}

func cloneMap(m *Map) *Map {
	c := NewMap()
	for p, v := range m.prefixes.All() {
		c.prefixes.Insert(p, v)
	}
	return c
}

// Lookup returns the VPC owning an address.
func (m *Map) Lookup(addr netip.Addr) (nettype.VpcDiscriminant, bool) {
	_, vpcd, ok := m.prefixes.Lookup(addr)
	return vpcd, ok
}

// Size reports the number of mapped prefixes.
func (m *Map) Size() int {
	return m.prefixes.Size()
}

// New builds the writer/reader pair.
func New() (*leftright.Writer[Map], *leftright.Reader[Map]) {
	return leftright.New(NewMap(), cloneMap)
}

// Set maps a prefix to a VPC.
func Set(prefix netip.Prefix, vpcd nettype.VpcDiscriminant) leftright.Op[Map] {
	return leftright.OpFunc[Map](func(m *Map) {
		m.prefixes.Insert(prefix, vpcd)
	})
}

// Del unmaps a prefix.
func Del(prefix netip.Prefix) leftright.Op[Map] {
	return leftright.OpFunc[Map](func(m *Map) {
		m.prefixes.Remove(prefix)
	})
}
