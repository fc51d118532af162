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

// Package lpm implements longest-prefix-match tries over netip prefixes.
// A Trie holds prefixes of a single address family; PrefixTrie bundles one
// trie per family and dispatches on the address. Tries are not safe for
// concurrent mutation; the routing code publishes them through snapshots.
package lpm

import (
	"iter"
	"net/netip"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Trie is a binary radix trie mapping prefixes of one address family to
// values.
type Trie[V any] struct {
	root *node[V]
	size int
	v4   bool
}

type node[V any] struct {
	prefix netip.Prefix
	value  V
	hasVal bool
	child  [2]*node[V]
}

// NewV4 returns an empty trie for IPv4 prefixes.
func NewV4[V any]() *Trie[V] {
	return &Trie[V]{
		root: &node[V]{prefix: netip.PrefixFrom(netip.IPv4Unspecified(), 0)},
		v4:   true,
	}
}

// NewV6 returns an empty trie for IPv6 prefixes.
func NewV6[V any]() *Trie[V] {
	return &Trie[V]{
		root: &node[V]{prefix: netip.PrefixFrom(netip.IPv6Unspecified(), 0)},
	}
}

// Size returns the number of prefixes in the trie.
func (t *Trie[V]) Size() int {
	return t.size
}

// wrongFamily reports whether a does not belong in this trie.
func (t *Trie[V]) wrongFamily(a netip.Addr) bool {
	return a.Is4() != t.v4
}

// Insert adds or replaces the value for the given prefix and returns the
// previous value, if any. The prefix must be masked and of the trie's
// family.
func (t *Trie[V]) Insert(p netip.Prefix, v V) (V, bool) {
	var zero V
	if t.wrongFamily(p.Addr()) || p.Addr() != p.Masked().Addr() {
		return zero, false
	}
	return t.insert(t.root, p, v)
}

func (t *Trie[V]) insert(n *node[V], p netip.Prefix, v V) (V, bool) {
	if n.prefix == p {
		old, had := n.value, n.hasVal
		n.value, n.hasVal = v, true
		if !had {
			t.size++
		}
		return old, had
	}
	b := bitAt(p.Addr(), n.prefix.Bits())
	c := n.child[b]
	switch {
	case c == nil:
		var zero V
		n.child[b] = &node[V]{prefix: p, value: v, hasVal: true}
		t.size++
		return zero, false
	case covers(c.prefix, p):
		return t.insert(c, p, v)
	case covers(p, c.prefix):
		nn := &node[V]{prefix: p, value: v, hasVal: true}
		nn.child[bitAt(c.prefix.Addr(), p.Bits())] = c
		n.child[b] = nn
		t.size++
		var zero V
		return zero, false
	default:
		// Split at the longest common prefix of p and c.
		branch := &node[V]{prefix: commonPrefix(p, c.prefix)}
		branch.child[bitAt(c.prefix.Addr(), branch.prefix.Bits())] = c
		branch.child[bitAt(p.Addr(), branch.prefix.Bits())] =
			&node[V]{prefix: p, value: v, hasVal: true}
		n.child[b] = branch
		t.size++
		var zero V
		return zero, false
	}
}

// Get returns the value stored for exactly the given prefix.
func (t *Trie[V]) Get(p netip.Prefix) (V, bool) {
	var zero V
	if t.wrongFamily(p.Addr()) {
		return zero, false
	}
	n := t.root
	for n != nil {
		if n.prefix == p {
			if n.hasVal {
				return n.value, true
			}
			return zero, false
		}
		if !covers(n.prefix, p) {
			return zero, false
		}
		n = n.child[bitAt(p.Addr(), n.prefix.Bits())]
	}
	return zero, false
}

// Lookup returns the longest prefix covering a, along with its value.
func (t *Trie[V]) Lookup(a netip.Addr) (netip.Prefix, V, bool) {
	var (
		bestP netip.Prefix
		bestV V
		found bool
	)
	if t.wrongFamily(a) {
		return bestP, bestV, false
	}
	n := t.root
	for n != nil && n.prefix.Contains(a) {
		if n.hasVal {
			bestP, bestV, found = n.prefix, n.value, true
		}
		if n.prefix.Bits() == n.prefix.Addr().BitLen() {
			break
		}
		n = n.child[bitAt(a, n.prefix.Bits())]
	}
	return bestP, bestV, found
}

// Remove deletes the value for exactly the given prefix and returns it.
// Removing an absent prefix is a no-op.
func (t *Trie[V]) Remove(p netip.Prefix) (V, bool) {
	var zero V
	if t.wrongFamily(p.Addr()) {
		return zero, false
	}
	v, ok := t.remove(nil, 0, t.root, p)
	return v, ok
}

func (t *Trie[V]) remove(parent *node[V], slot int, n *node[V], p netip.Prefix) (V, bool) {
	var zero V
	if n == nil || !covers(n.prefix, p) {
		return zero, false
	}
	if n.prefix != p {
		b := bitAt(p.Addr(), n.prefix.Bits())
		return t.remove(n, b, n.child[b], p)
	}
	if !n.hasVal {
		return zero, false
	}
	old := n.value
	n.value, n.hasVal = zero, false
	t.size--
	t.compact(parent, slot, n)
	return old, true
}

// compact splices out value-less internal nodes with fewer than two
// children. The root is never removed.
func (t *Trie[V]) compact(parent *node[V], slot int, n *node[V]) {
	if parent == nil || n.hasVal {
		return
	}
	switch {
	case n.child[0] == nil && n.child[1] == nil:
		parent.child[slot] = nil
	case n.child[0] == nil:
		parent.child[slot] = n.child[1]
	case n.child[1] == nil:
		parent.child[slot] = n.child[0]
	}
}

// All iterates over every (prefix, value) pair in the trie.
func (t *Trie[V]) All() iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		walk(t.root, yield)
	}
}

func walk[V any](n *node[V], yield func(netip.Prefix, V) bool) bool {
	if n == nil {
		return true
	}
	if n.hasVal && !yield(n.prefix, n.value) {
		return false
	}
	return walk(n.child[0], yield) && walk(n.child[1], yield)
}

// covers reports whether p contains all of q.
func covers(p, q netip.Prefix) bool {
	return p.Bits() <= q.Bits() && p.Contains(q.Addr())
}

// bitAt returns bit i of a, counting from the most significant bit.
func bitAt(a netip.Addr, i int) int {
	if a.Is4() {
		b := a.As4()
		return int(b[i/8]>>(7-i%8)) & 1
	}
	b := a.As16()
	return int(b[i/8]>>(7-i%8)) & 1
}

// commonPrefix returns the longest prefix covering both p and q.
func commonPrefix(p, q netip.Prefix) netip.Prefix {
	max := p.Bits()
	if q.Bits() < max {
		max = q.Bits()
	}
	n := 0
	for n < max && bitAt(p.Addr(), n) == bitAt(q.Addr(), n) {
		n++
	}
	cp, err := p.Addr().Prefix(n)
	if err != nil {
		panic(serrors.Wrap("computing common prefix", err))
	}
	return cp
}
