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
	"fmt"
	"net/netip"
	"strings"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/lpm"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// FibEntry is one transmit-ready path: egress interface, rewritten
// destination MAC and optional encapsulation. Action covers blackhole and
// punt next-hops.
type FibEntry struct {
	Action  Action
	Ifindex uint32
	Dmac    nettype.Mac
	Encap   Encapsulation
}

// FibGroup is the resolved set of paths for one prefix. Groups are interned
// per FIB so identical groups share one record; pointer equality implies
// group equality within a FIB snapshot.
type FibGroup struct {
	Entries []FibEntry
}

// Empty reports whether the group offers no path at all; lookups hitting an
// empty group drop with a route failure.
func (g *FibGroup) Empty() bool {
	return len(g.Entries) == 0
}

func groupKey(entries []FibEntry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%d/%d/%s/%v;", e.Action, e.Ifindex, e.Dmac, e.Encap)
	}
	return b.String()
}

// FibIdKind discriminates FibId.
type FibIdKind uint8

const (
	FibById FibIdKind = iota
	FibByVni
)

// FibId names a FIB either by plain id or by VNI.
type FibId struct {
	Kind FibIdKind
	Id   uint32
	Vni  nettype.Vni
}

// FibIdFromId names a FIB by numeric id.
func FibIdFromId(id uint32) FibId {
	return FibId{Kind: FibById, Id: id}
}

// FibIdFromVni names a FIB by VNI.
func FibIdFromVni(vni nettype.Vni) FibId {
	return FibId{Kind: FibByVni, Vni: vni}
}

func (id FibId) String() string {
	if id.Kind == FibByVni {
		return fmt.Sprintf("fib-vni-%d", id.Vni)
	}
	return fmt.Sprintf("fib-%d", id.Id)
}

// Fib is the dataplane projection of one VRF: prefix to interned FibGroup.
// A Fib is built by the control plane and immutable once published.
type Fib struct {
	id     FibId
	routes *lpm.PrefixTrie[*FibGroup]
	groups map[string]*FibGroup
}

// NewFib returns an empty FIB.
func NewFib(id FibId) *Fib {
	return &Fib{
		id:     id,
		routes: lpm.NewPrefixTrie[*FibGroup](),
		groups: make(map[string]*FibGroup),
	}
}

// Id returns the FIB's identity.
func (f *Fib) Id() FibId {
	return f.id
}

// Insert sets the group for a prefix, interning it first.
func (f *Fib) Insert(prefix netip.Prefix, entries []FibEntry) {
	key := groupKey(entries)
	group, ok := f.groups[key]
	if !ok {
		group = &FibGroup{Entries: entries}
		f.groups[key] = group
	}
	f.routes.Insert(prefix, group)
}

// Lookup longest-prefix-matches an address.
func (f *Fib) Lookup(addr netip.Addr) (*FibGroup, bool) {
	_, group, ok := f.routes.Lookup(addr)
	return group, ok
}

// Size reports the number of prefixes.
func (f *Fib) Size() int {
	return f.routes.Size()
}

// Sweep drops interned groups no longer referenced by any prefix.
func (f *Fib) Sweep() {
	live := make(map[*FibGroup]bool, len(f.groups))
	for _, group := range f.routes.All() {
		live[group] = true
	}
	for key, group := range f.groups {
		if !live[group] {
			delete(f.groups, key)
		}
	}
}

// FibTable is the published set of FIBs, addressable by id and, for
// VXLAN-attached VRFs, by VNI.
type FibTable struct {
	fibs  map[FibId]*Fib
	byVni map[nettype.Vni]FibId
}

// NewFibTable returns an empty table.
func NewFibTable() *FibTable {
	return &FibTable{
		fibs:  make(map[FibId]*Fib),
		byVni: make(map[nettype.Vni]FibId),
	}
}

func cloneFibTable(t *FibTable) *FibTable {
	c := &FibTable{
		fibs:  make(map[FibId]*Fib, len(t.fibs)),
		byVni: make(map[nettype.Vni]FibId, len(t.byVni)),
	}
	for k, v := range t.fibs {
		c.fibs[k] = v
	}
	for k, v := range t.byVni {
		c.byVni[k] = v
	}
	return c
}

// Get returns the FIB for an id.
func (t *FibTable) Get(id FibId) (*Fib, bool) {
	f, ok := t.fibs[id]
	return f, ok
}

// GetByVni returns the FIB registered for a VNI.
func (t *FibTable) GetByVni(vni nettype.Vni) (*Fib, bool) {
	id, ok := t.byVni[vni]
	if !ok {
		return nil, false
	}
	return t.Get(id)
}

// Len reports the number of FIBs.
func (t *FibTable) Len() int {
	return len(t.fibs)
}

// NewTable builds the writer/reader pair for the FIB table.
func NewTable() (*leftright.Writer[FibTable], *leftright.Reader[FibTable]) {
	return leftright.New(NewFibTable(), cloneFibTable)
}

// AddFib installs or replaces a FIB.
func AddFib(fib *Fib) leftright.Op[FibTable] {
	return leftright.OpFunc[FibTable](func(t *FibTable) {
		t.fibs[fib.Id()] = fib
	})
}

// DelFib removes a FIB and any VNI registrations pointing at it.
func DelFib(id FibId) leftright.Op[FibTable] {
	return leftright.OpFunc[FibTable](func(t *FibTable) {
		delete(t.fibs, id)
		for vni, target := range t.byVni {
			if target == id {
				delete(t.byVni, vni)
			}
		}
	})
}

// RegisterByVni makes a FIB addressable by VNI.
func RegisterByVni(id FibId, vni nettype.Vni) leftright.Op[FibTable] {
	return leftright.OpFunc[FibTable](func(t *FibTable) {
		t.byVni[vni] = id
	})
}
