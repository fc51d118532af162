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

// Package adjacency maps (ifindex, next-hop IP) pairs to MAC addresses. The
// table is resolved in the background and published to the dataplane; a miss
// means drop-until-resolved.
package adjacency

import (
	"fmt"
	"iter"
	"net/netip"
	"time"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// Key identifies an adjacency.
type Key struct {
	Ifindex uint32
	Addr    netip.Addr
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d", k.Addr, k.Ifindex)
}

// Adjacency is a resolved neighbor.
type Adjacency struct {
	Key
	Mac nettype.Mac
	// ResolvedAt drives the background refresh.
	ResolvedAt time.Time
}

// Table is a snapshot of all resolved neighbors.
type Table struct {
	entries map[Key]Adjacency
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Key]Adjacency)}
}

func cloneTable(t *Table) *Table {
	c := &Table{entries: make(map[Key]Adjacency, len(t.entries))}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}

// Lookup returns the adjacency for a neighbor.
func (t *Table) Lookup(ifindex uint32, addr netip.Addr) (Adjacency, bool) {
	adj, ok := t.entries[Key{Ifindex: ifindex, Addr: addr}]
	return adj, ok
}

// Len reports the number of resolved neighbors.
func (t *Table) Len() int {
	return len(t.entries)
}

// All iterates over the adjacencies in no particular order.
func (t *Table) All() iter.Seq[Adjacency] {
	return func(yield func(Adjacency) bool) {
		for _, adj := range t.entries {
			if !yield(adj) {
				return
			}
		}
	}
}

// New builds the writer/reader pair for the adjacency table.
func New() (*leftright.Writer[Table], *leftright.Reader[Table]) {
	return leftright.New(NewTable(), cloneTable)
}

// Add inserts or refreshes an adjacency.
func Add(adj Adjacency) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		t.entries[adj.Key] = adj
	})
}

// Del removes an adjacency. Unknown keys are ignored.
func Del(key Key) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		delete(t.entries, key)
	})
}

// Clear empties the table.
func Clear() leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		clear(t.entries)
	})
}
