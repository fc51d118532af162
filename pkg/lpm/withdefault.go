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

package lpm

import (
	"net/netip"
)

// TrieWithDefault is a trie that always carries a value at the root prefix
// (0.0.0.0/0 or ::/0), so that lookups cannot miss. The root entry can be
// replaced but not removed.
type TrieWithDefault[V any] struct {
	t *Trie[V]
}

// NewV4WithDefault returns an IPv4 trie holding def at 0.0.0.0/0.
func NewV4WithDefault[V any](def V) *TrieWithDefault[V] {
	t := NewV4[V]()
	t.Insert(t.root.prefix, def)
	return &TrieWithDefault[V]{t: t}
}

// NewV6WithDefault returns an IPv6 trie holding def at ::/0.
func NewV6WithDefault[V any](def V) *TrieWithDefault[V] {
	t := NewV6[V]()
	t.Insert(t.root.prefix, def)
	return &TrieWithDefault[V]{t: t}
}

// Insert adds or replaces the value for the given prefix.
func (t *TrieWithDefault[V]) Insert(p netip.Prefix, v V) (V, bool) {
	return t.t.Insert(p, v)
}

// Remove deletes the value for the given prefix. Removing the root is a
// no-op: the default entry stays.
func (t *TrieWithDefault[V]) Remove(p netip.Prefix) (V, bool) {
	var zero V
	if p.Bits() == 0 {
		return zero, false
	}
	return t.t.Remove(p)
}

// Lookup returns the longest prefix covering a. It always finds at least the
// root entry for addresses of the trie's family.
func (t *TrieWithDefault[V]) Lookup(a netip.Addr) (netip.Prefix, V) {
	p, v, _ := t.t.Lookup(a)
	return p, v
}

// Size returns the number of entries, including the default.
func (t *TrieWithDefault[V]) Size() int {
	return t.t.Size()
}
