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

// Package stateless implements prefix-to-prefix address translation. Each
// mapping pairs two equal-size address sets; a packet's address is replaced
// by the address at the same position in the paired set, with excluded
// sub-ranges carved out of the numbering on both sides.
package stateless

import (
	"net/netip"

	"go4.org/netipx"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/lpm"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Mapping is one bi-directional prefix-set pairing, compiled into carved
// range lists ready for offset arithmetic.
type Mapping struct {
	origRanges   []netipx.IPRange
	targetRanges []netipx.IPRange
}

// NewMapping compiles a mapping. The include sets must be of one address
// family, the same on both sides, and of equal pre-exclusion cardinality.
func NewMapping(origPrefixes, origExcludes, targetPrefixes, targetExcludes []netip.Prefix) (*Mapping, error) {
	if len(origPrefixes) == 0 || len(targetPrefixes) == 0 {
		return nil, serrors.New("mapping needs prefixes on both sides")
	}
	is4 := origPrefixes[0].Addr().Is4()
	for _, set := range [][]netip.Prefix{origPrefixes, targetPrefixes} {
		for _, p := range set {
			if p.Addr().Is4() != is4 {
				return nil, serrors.New("mixed address families in mapping",
					"prefix", p)
			}
		}
	}
	if !equalCardinality(origPrefixes, targetPrefixes) {
		return nil, serrors.New("mapping sides differ in size")
	}
	orig, err := carve(origPrefixes, origExcludes)
	if err != nil {
		return nil, serrors.Wrap("carving original side", err)
	}
	target, err := carve(targetPrefixes, targetExcludes)
	if err != nil {
		return nil, serrors.Wrap("carving target side", err)
	}
	return &Mapping{origRanges: orig, targetRanges: target}, nil
}

// equalCardinality compares the address counts of two prefix sets before
// exclusion.
func equalCardinality(a, b []netip.Prefix) bool {
	return prefixCount(a) == prefixCount(b)
}

func prefixCount(prefixes []netip.Prefix) u128 {
	var total u128
	for _, p := range prefixes {
		hostBits := uint(p.Addr().BitLen() - p.Bits())
		var size u128
		switch {
		case hostBits >= 128:
			// Full IPv6 space; saturate.
			return u128{hi: ^uint64(0), lo: ^uint64(0)}
		case hostBits >= 64:
			size = u128{hi: 1 << (hostBits - 64)}
		default:
			size = u128{lo: 1 << hostBits}
		}
		total = total.add(size)
	}
	return total
}

// Translate maps addr from the original side to the target side. Addresses
// inside an excluded sub-range miss and pass through untranslated. An
// address whose position does not exist on the target side is an error; the
// caller drops the packet.
func (m *Mapping) Translate(addr netip.Addr) (netip.Addr, bool, error) {
	off, ok := offsetOf(m.origRanges, addr)
	if !ok {
		return addr, false, nil
	}
	out, ok := addrAt(m.targetRanges, off)
	if !ok {
		return addr, false, serrors.New("no target address at offset",
			"addr", addr)
	}
	return out, true, nil
}

// PerVniTable holds the two direction tries of one VPC: source addresses of
// outbound traffic and destination addresses of inbound traffic.
type PerVniTable struct {
	src *lpm.PrefixTrie[*Mapping]
	dst *lpm.PrefixTrie[*Mapping]
}

// NewPerVniTable returns an empty per-VPC table.
func NewPerVniTable() *PerVniTable {
	return &PerVniTable{
		src: lpm.NewPrefixTrie[*Mapping](),
		dst: lpm.NewPrefixTrie[*Mapping](),
	}
}

// AddSrcMapping indexes a mapping under its original prefixes for
// source-address translation.
func (t *PerVniTable) AddSrcMapping(m *Mapping, under []netip.Prefix) {
	for _, p := range under {
		t.src.Insert(p, m)
	}
}

// AddDstMapping indexes a mapping under its original prefixes for
// destination-address translation.
func (t *PerVniTable) AddDstMapping(m *Mapping, under []netip.Prefix) {
	for _, p := range under {
		t.dst.Insert(p, m)
	}
}

// LookupSrc finds the mapping covering a source address.
func (t *PerVniTable) LookupSrc(addr netip.Addr) (*Mapping, bool) {
	_, m, ok := t.src.Lookup(addr)
	return m, ok
}

// LookupDst finds the mapping covering a destination address.
func (t *PerVniTable) LookupDst(addr netip.Addr) (*Mapping, bool) {
	_, m, ok := t.dst.Lookup(addr)
	return m, ok
}

// Tables is the published NAT state, one PerVniTable per VPC.
type Tables struct {
	byVni map[nettype.Vni]*PerVniTable
}

// NewTables returns an empty state.
func NewTables() *Tables {
	return &Tables{byVni: make(map[nettype.Vni]*PerVniTable)}
}

func cloneTables(t *Tables) *Tables {
	c := &Tables{byVni: make(map[nettype.Vni]*PerVniTable, len(t.byVni))}
	for k, v := range t.byVni {
		c.byVni[k] = v
	}
	return c
}

// Install sets the table for a VNI. Used while assembling a snapshot,
// before it is handed to Update.
func (t *Tables) Install(vni nettype.Vni, tbl *PerVniTable) {
	t.byVni[vni] = tbl
}

// Get returns the table for a VNI.
func (t *Tables) Get(vni nettype.Vni) (*PerVniTable, bool) {
	tbl, ok := t.byVni[vni]
	return tbl, ok
}

// New builds the writer/reader pair for the NAT tables.
func New() (*leftright.Writer[Tables], *leftright.Reader[Tables]) {
	return leftright.New(NewTables(), cloneTables)
}

// Update replaces the whole NAT state. NAT configuration is rebuilt from
// scratch on every config application, so the one operation is a full
// snapshot swap.
func Update(next *Tables) leftright.Op[Tables] {
	return leftright.OpFunc[Tables](func(t *Tables) {
		t.byVni = next.byVni
	})
}
