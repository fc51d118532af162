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

package lpm_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/pkg/lpm"
)

func TestLongestMatch(t *testing.T) {
	tr := lpm.NewV4[string]()
	tr.Insert(netip.MustParsePrefix("10.0.0.0/8"), "A")
	tr.Insert(netip.MustParsePrefix("10.0.0.0/16"), "B")
	tr.Insert(netip.MustParsePrefix("10.1.0.0/16"), "C")

	p, v, ok := tr.Lookup(netip.MustParseAddr("10.0.5.1"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/16"), p)
	assert.Equal(t, "B", v)

	p, v, ok = tr.Lookup(netip.MustParseAddr("10.1.2.3"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), p)
	assert.Equal(t, "C", v)

	p, v, ok = tr.Lookup(netip.MustParseAddr("10.200.0.1"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), p)
	assert.Equal(t, "A", v)

	_, _, ok = tr.Lookup(netip.MustParseAddr("192.0.2.1"))
	assert.False(t, ok)
}

func TestRemoveFallsBack(t *testing.T) {
	tr := lpm.NewV4[string]()
	tr.Insert(netip.MustParsePrefix("10.0.0.0/8"), "A")
	tr.Insert(netip.MustParsePrefix("10.0.0.0/16"), "B")

	old, ok := tr.Remove(netip.MustParsePrefix("10.0.0.0/16"))
	require.True(t, ok)
	assert.Equal(t, "B", old)

	p, v, ok := tr.Lookup(netip.MustParseAddr("10.0.5.1"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), p)
	assert.Equal(t, "A", v)

	_, ok = tr.Remove(netip.MustParsePrefix("10.0.0.0/16"))
	assert.False(t, ok, "double remove must miss")

	old, ok = tr.Remove(netip.MustParsePrefix("10.0.0.0/8"))
	require.True(t, ok)
	assert.Equal(t, "A", old)

	_, _, ok = tr.Lookup(netip.MustParseAddr("10.0.5.1"))
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Size())
}

func TestInsertReplace(t *testing.T) {
	tr := lpm.NewV4[int]()
	_, had := tr.Insert(netip.MustParsePrefix("192.0.2.0/24"), 1)
	assert.False(t, had)
	old, had := tr.Insert(netip.MustParsePrefix("192.0.2.0/24"), 2)
	assert.True(t, had)
	assert.Equal(t, 1, old)
	assert.Equal(t, 1, tr.Size())
}

func TestGetIsExact(t *testing.T) {
	tr := lpm.NewV4[int]()
	tr.Insert(netip.MustParsePrefix("10.0.0.0/8"), 1)
	_, ok := tr.Get(netip.MustParsePrefix("10.0.0.0/16"))
	assert.False(t, ok)
	v, ok := tr.Get(netip.MustParsePrefix("10.0.0.0/8"))
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestAllYieldsEachOnce(t *testing.T) {
	tr := lpm.NewV6[int]()
	want := map[netip.Prefix]int{
		netip.MustParsePrefix("2001:db8::/32"):   1,
		netip.MustParsePrefix("2001:db8::/48"):   2,
		netip.MustParsePrefix("2001:db8:1::/48"): 3,
		netip.MustParsePrefix("::/0"):            4,
	}
	for p, v := range want {
		tr.Insert(p, v)
	}
	got := map[netip.Prefix]int{}
	for p, v := range tr.All() {
		_, seen := got[p]
		require.False(t, seen, "prefix %v yielded twice", p)
		got[p] = v
	}
	assert.Equal(t, want, got)
}

func TestHostRoutes(t *testing.T) {
	tr := lpm.NewV4[int]()
	tr.Insert(netip.MustParsePrefix("192.0.2.10/32"), 7)
	tr.Insert(netip.MustParsePrefix("192.0.2.0/24"), 8)

	_, v, ok := tr.Lookup(netip.MustParseAddr("192.0.2.10"))
	require.True(t, ok)
	assert.Equal(t, 7, v)
	_, v, ok = tr.Lookup(netip.MustParseAddr("192.0.2.11"))
	require.True(t, ok)
	assert.Equal(t, 8, v)
}

func TestWithDefault(t *testing.T) {
	tr := lpm.NewV4WithDefault[string]("drop")
	p, v := tr.Lookup(netip.MustParseAddr("203.0.113.5"))
	assert.Equal(t, netip.MustParsePrefix("0.0.0.0/0"), p)
	assert.Equal(t, "drop", v)

	_, ok := tr.Remove(netip.MustParsePrefix("0.0.0.0/0"))
	assert.False(t, ok, "removing the root must be a no-op")
	_, v = tr.Lookup(netip.MustParseAddr("203.0.113.5"))
	assert.Equal(t, "drop", v)

	tr.Insert(netip.MustParsePrefix("203.0.113.0/24"), "fwd")
	_, v = tr.Lookup(netip.MustParseAddr("203.0.113.5"))
	assert.Equal(t, "fwd", v)
}

func TestPrefixTrieDispatch(t *testing.T) {
	tr := lpm.NewPrefixTrie[string]()
	tr.Insert(netip.MustParsePrefix("10.0.0.0/8"), "v4")
	tr.Insert(netip.MustParsePrefix("2001:db8::/32"), "v6")

	_, v, ok := tr.Lookup(netip.MustParseAddr("10.1.1.1"))
	require.True(t, ok)
	assert.Equal(t, "v4", v)
	_, v, ok = tr.Lookup(netip.MustParseAddr("2001:db8::1"))
	require.True(t, ok)
	assert.Equal(t, "v6", v)
	assert.Equal(t, 2, tr.Size())
}
