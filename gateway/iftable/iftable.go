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

// Package iftable holds the gateway's view of its network interfaces,
// published from the reconciliation loop to the dataplane workers.
package iftable

import (
	"iter"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// AdminState is the operator's intent for an interface.
type AdminState uint8

const (
	AdminDown AdminState = iota
	AdminUp
)

func (s AdminState) String() string {
	if s == AdminUp {
		return "up"
	}
	return "down"
}

// OperState is the observed link state.
type OperState uint8

const (
	OperDown OperState = iota
	OperUp
)

func (s OperState) String() string {
	if s == OperUp {
		return "up"
	}
	return "down"
}

// Kind classifies an interface for the dataplane.
type Kind uint8

const (
	// KindEthernet is a plain routed port.
	KindEthernet Kind = iota
	// KindVlan is an 802.1Q subinterface.
	KindVlan
	// KindVtep terminates VXLAN tunnels.
	KindVtep
	// KindBridge is a layer-2 bridge domain port.
	KindBridge
	// KindUnsupported is anything the dataplane refuses to forward on.
	KindUnsupported
)

// Interface is one entry of the table. Vrf zero means detached.
type Interface struct {
	Index uint32
	Name  string
	Mac   nettype.Mac
	Mtu   nettype.Mtu
	Kind  Kind
	Admin AdminState
	Oper  OperState
	Vrf   nettype.VrfId
}

// Forwarding reports whether the dataplane may send and receive on the
// interface.
func (i Interface) Forwarding() bool {
	return i.Admin == AdminUp && i.Oper == OperUp && i.Kind != KindUnsupported
}

// Table is a snapshot of all interfaces, indexed by ifindex and by name.
type Table struct {
	byIndex map[uint32]Interface
	byName  map[string]uint32
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		byIndex: make(map[uint32]Interface),
		byName:  make(map[string]uint32),
	}
}

func cloneTable(t *Table) *Table {
	c := &Table{
		byIndex: make(map[uint32]Interface, len(t.byIndex)),
		byName:  make(map[string]uint32, len(t.byName)),
	}
	for k, v := range t.byIndex {
		c.byIndex[k] = v
	}
	for k, v := range t.byName {
		c.byName[k] = v
	}
	return c
}

// Get looks an interface up by ifindex.
func (t *Table) Get(index uint32) (Interface, bool) {
	ifc, ok := t.byIndex[index]
	return ifc, ok
}

// GetByName looks an interface up by name.
func (t *Table) GetByName(name string) (Interface, bool) {
	index, ok := t.byName[name]
	if !ok {
		return Interface{}, false
	}
	return t.Get(index)
}

// Len reports the number of interfaces.
func (t *Table) Len() int {
	return len(t.byIndex)
}

// All iterates over the interfaces in no particular order.
func (t *Table) All() iter.Seq[Interface] {
	return func(yield func(Interface) bool) {
		for _, ifc := range t.byIndex {
			if !yield(ifc) {
				return
			}
		}
	}
}

// New builds the writer/reader pair for the interface table.
func New() (*leftright.Writer[Table], *leftright.Reader[Table]) {
	return leftright.New(NewTable(), cloneTable)
}

// Add inserts or replaces an interface.
func Add(ifc Interface) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		if old, ok := t.byIndex[ifc.Index]; ok {
			delete(t.byName, old.Name)
		}
		t.byIndex[ifc.Index] = ifc
		t.byName[ifc.Name] = ifc.Index
	})
}

// Del removes an interface. Unknown indexes are ignored.
func Del(index uint32) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		if old, ok := t.byIndex[index]; ok {
			delete(t.byName, old.Name)
			delete(t.byIndex, index)
		}
	})
}

// SetProperties updates the mutable attributes of an interface. Unknown
// indexes are ignored.
func SetProperties(index uint32, admin AdminState, oper OperState, mtu nettype.Mtu) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		ifc, ok := t.byIndex[index]
		if !ok {
			return
		}
		ifc.Admin = admin
		ifc.Oper = oper
		ifc.Mtu = mtu
		t.byIndex[index] = ifc
	})
}

// Attach binds an interface to a VRF. Unknown indexes are ignored.
func Attach(index uint32, vrf nettype.VrfId) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		ifc, ok := t.byIndex[index]
		if !ok {
			return
		}
		ifc.Vrf = vrf
		t.byIndex[index] = ifc
	})
}

// Detach unbinds an interface from its VRF. Unknown indexes are ignored.
func Detach(index uint32) leftright.Op[Table] {
	return leftright.OpFunc[Table](func(t *Table) {
		ifc, ok := t.byIndex[index]
		if !ok {
			return
		}
		ifc.Vrf = 0
		t.byIndex[index] = ifc
	})
}
