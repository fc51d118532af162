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
	"iter"
	"net/netip"
)

// PrefixTrie bundles an IPv4 and an IPv6 trie and dispatches on the address
// family.
type PrefixTrie[V any] struct {
	v4 *Trie[V]
	v6 *Trie[V]
}

// NewPrefixTrie returns an empty dual-family trie.
func NewPrefixTrie[V any]() *PrefixTrie[V] {
	return &PrefixTrie[V]{v4: NewV4[V](), v6: NewV6[V]()}
}

// Insert adds or replaces the value for the given prefix.
func (t *PrefixTrie[V]) Insert(p netip.Prefix, v V) (V, bool) {
	if p.Addr().Is4() {
		return t.v4.Insert(p, v)
	}
	return t.v6.Insert(p, v)
}

// Remove deletes the value for exactly the given prefix.
func (t *PrefixTrie[V]) Remove(p netip.Prefix) (V, bool) {
	if p.Addr().Is4() {
		return t.v4.Remove(p)
	}
	return t.v6.Remove(p)
}

// Get returns the value stored for exactly the given prefix.
func (t *PrefixTrie[V]) Get(p netip.Prefix) (V, bool) {
	if p.Addr().Is4() {
		return t.v4.Get(p)
	}
	return t.v6.Get(p)
}

// Lookup returns the longest prefix covering a, along with its value.
func (t *PrefixTrie[V]) Lookup(a netip.Addr) (netip.Prefix, V, bool) {
	if a.Is4() {
		return t.v4.Lookup(a)
	}
	return t.v6.Lookup(a)
}

// Size returns the total number of prefixes over both families.
func (t *PrefixTrie[V]) Size() int {
	return t.v4.Size() + t.v6.Size()
}

// All iterates over every (prefix, value) pair, IPv4 first.
func (t *PrefixTrie[V]) All() iter.Seq2[netip.Prefix, V] {
	return func(yield func(netip.Prefix, V) bool) {
		for p, v := range t.v4.All() {
			if !yield(p, v) {
				return
			}
		}
		for p, v := range t.v6.All() {
			if !yield(p, v) {
				return
			}
		}
	}
}
