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

package stateful

import (
	"net/netip"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

func TestPortBitmapSkipsReserved(t *testing.T) {
	b := newPortBitmap()
	port, ok := b.alloc()
	require.True(t, ok)
	assert.Greater(t, int(port), nettype.ReservedPortMax)
}

func TestPortBitmapReleaseAndExhaust(t *testing.T) {
	b := newPortBitmap()
	seen := make(map[uint16]bool, usablePorts)
	for i := 0; i < usablePorts; i++ {
		port, ok := b.alloc()
		require.True(t, ok)
		require.False(t, seen[port], "port %d allocated twice", port)
		seen[port] = true
	}
	_, ok := b.alloc()
	require.False(t, ok)

	b.release(2000)
	port, ok := b.alloc()
	require.True(t, ok)
	assert.Equal(t, uint16(2000), port)

	// Reserved ports never come back.
	b.release(80)
	_, ok = b.alloc()
	assert.False(t, ok)
}

func TestPoolAttachesAddressesLazily(t *testing.T) {
	pool, err := NewPool([]netip.Prefix{netip.MustParsePrefix("100.64.0.0/31")})
	require.NoError(t, err)

	first, _, ok := pool.alloc()
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("100.64.0.0"), first)
	assert.Len(t, pool.attached, 1)

	for i := 0; i < usablePorts-1; i++ {
		addr, _, ok := pool.alloc()
		require.True(t, ok)
		require.Equal(t, first, addr)
	}
	second, _, ok := pool.alloc()
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("100.64.0.1"), second)
	assert.Len(t, pool.attached, 2)
}

func TestPoolExhaustion(t *testing.T) {
	pool, err := NewPool([]netip.Prefix{netip.MustParsePrefix("100.64.0.1/32")})
	require.NoError(t, err)
	for i := 0; i < usablePorts; i++ {
		_, _, ok := pool.alloc()
		require.True(t, ok)
	}
	_, _, ok := pool.alloc()
	assert.False(t, ok)

	pool.release(netip.MustParseAddr("100.64.0.1"), 4242)
	addr, port, ok := pool.alloc()
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("100.64.0.1"), addr)
	assert.Equal(t, uint16(4242), port)
}

func testTable(t *testing.T, now *time.Time) *Table {
	t.Helper()
	tbl := NewTable(WithClock(func() time.Time { return *now }))
	pool, err := NewPool([]netip.Prefix{netip.MustParsePrefix("100.64.0.1/32")})
	require.NoError(t, err)
	tbl.AddPool(nettype.VrfId(10),
		[]netip.Prefix{netip.MustParsePrefix("10.0.0.0/24")}, pool)
	return tbl
}

func natFrame(t *testing.T, src, dst string, srcPort, dstPort uint16) *packet.Packet {
	t.Helper()
	h := &headers.Headers{
		Eth: &headers.Ethernet{
			DstMAC:       nettype.MustParseMac("02:00:00:00:00:02"),
			SrcMAC:       nettype.MustParseMac("02:00:00:00:00:01"),
			EthernetType: headers.EtherTypeIPv4,
		},
		IPv4: &headers.IPv4{
			TTL:      64,
			Protocol: headers.ProtoUDP,
			SrcIP:    netip.MustParseAddr(src),
			DstIP:    netip.MustParseAddr(dst),
		},
		UDP: &headers.UDP{SrcPort: srcPort, DstPort: dstPort},
	}
	b := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, h.SerializeTo(b, opts))
	p, err := packet.FromFrame(b.Bytes())
	require.NoError(t, err)
	p.Meta.Vrf = nettype.VrfId(10)
	return p
}

func TestTranslateCreatesAndReusesSession(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	p := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(p))

	assert.Equal(t, netip.MustParseAddr("100.64.0.1"), p.Headers.SrcIP())
	natPort := p.Headers.SrcPort()
	assert.Greater(t, int(natPort), nettype.ReservedPortMax)
	assert.Equal(t, 1, tbl.Len())

	// Second packet of the flow reuses the session.
	p2 := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(p2))
	assert.Equal(t, natPort, p2.Headers.SrcPort())
	assert.Equal(t, 1, tbl.Len())

	key := Tuple{
		Src:     netip.MustParseAddr("10.0.0.5"),
		Dst:     netip.MustParseAddr("192.0.2.9"),
		SrcPort: 40000,
		DstPort: 443,
		Proto:   headers.ProtoUDP,
		Vrf:     nettype.VrfId(10),
	}
	s, ok := tbl.Lookup(key)
	require.True(t, ok)
	assert.Equal(t, uint64(2), s.Packets)
	assert.NotZero(t, s.Bytes)
}

func TestTranslateReverseDirection(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	out := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(out))
	natPort := out.Headers.SrcPort()

	back := natFrame(t, "192.0.2.9", "100.64.0.1", 443, natPort)
	require.NoError(t, tbl.Translate(back))
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), back.Headers.DstIP())
	assert.Equal(t, uint16(40000), back.Headers.DstPort())
	assert.Equal(t, 1, tbl.Len())
}

func TestTranslateKeepsFlowsWithDistinctSourcePortsApart(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	a := natFrame(t, "10.0.0.5", "192.0.2.9", 1000, 443)
	require.NoError(t, tbl.Translate(a))
	b := natFrame(t, "10.0.0.5", "192.0.2.9", 2000, 443)
	require.NoError(t, tbl.Translate(b))

	require.Equal(t, 2, tbl.Len())
	aPort := a.Headers.SrcPort()
	bPort := b.Headers.SrcPort()
	assert.NotEqual(t, aPort, bPort)

	// Replies to each translated port land on their own flow, even though
	// both sessions share the pool address.
	backA := natFrame(t, "192.0.2.9", "100.64.0.1", 443, aPort)
	require.NoError(t, tbl.Translate(backA))
	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), backA.Headers.DstIP())
	assert.Equal(t, uint16(1000), backA.Headers.DstPort())

	backB := natFrame(t, "192.0.2.9", "100.64.0.1", 443, bPort)
	require.NoError(t, tbl.Translate(backB))
	assert.Equal(t, uint16(2000), backB.Headers.DstPort())
	assert.Equal(t, 2, tbl.Len())
}

func TestTranslatePassThroughWithoutPool(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	p := natFrame(t, "172.16.0.1", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(p))
	assert.Equal(t, netip.MustParseAddr("172.16.0.1"), p.Headers.SrcIP())
	assert.Equal(t, 0, tbl.Len())
}

func TestTranslateExhaustionErrors(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	pool, _ := tbl.poolFor(nettype.VrfId(10), netip.MustParseAddr("10.0.0.1"))
	for i := 0; i < usablePorts; i++ {
		_, _, ok := pool.alloc()
		require.True(t, ok)
	}

	p := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	err := tbl.Translate(p)
	require.ErrorIs(t, err, ErrNoResources)
}

func TestRemoveSessionReturnsPort(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	p := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(p))
	natPort := p.Headers.SrcPort()

	key := Tuple{
		Src:     netip.MustParseAddr("10.0.0.5"),
		Dst:     netip.MustParseAddr("192.0.2.9"),
		SrcPort: 40000,
		DstPort: 443,
		Proto:   headers.ProtoUDP,
		Vrf:     nettype.VrfId(10),
	}
	tbl.RemoveSession(key)
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.LookupReverse(Tuple{
		Src:     netip.MustParseAddr("192.0.2.9"),
		Dst:     netip.MustParseAddr("100.64.0.1"),
		SrcPort: 443,
		DstPort: natPort,
		Proto:   headers.ProtoUDP,
		Vrf:     nettype.VrfId(10),
	})
	assert.False(t, ok)

	pool, _ := tbl.poolFor(nettype.VrfId(10), netip.MustParseAddr("10.0.0.5"))
	assert.Equal(t, usablePorts, pool.bitmaps[netip.MustParseAddr("100.64.0.1")].free)
}

func TestSweepReapsIdleSessions(t *testing.T) {
	now := time.Unix(1000, 0)
	tbl := testTable(t, &now)

	fresh := natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(fresh))
	stale := natFrame(t, "10.0.0.6", "192.0.2.9", 40000, 443)
	require.NoError(t, tbl.Translate(stale))

	now = now.Add(30 * time.Second)
	require.NoError(t, tbl.Translate(natFrame(t, "10.0.0.5", "192.0.2.9", 40000, 443)))

	// UDP idles out after a minute; only the untouched flow crosses it.
	now = now.Add(45 * time.Second)
	assert.Equal(t, 1, tbl.Sweep())
	assert.Equal(t, 1, tbl.Len())

	_, ok := tbl.Lookup(Tuple{
		Src:     netip.MustParseAddr("10.0.0.5"),
		Dst:     netip.MustParseAddr("192.0.2.9"),
		SrcPort: 40000,
		DstPort: 443,
		Proto:   headers.ProtoUDP,
		Vrf:     nettype.VrfId(10),
	})
	assert.True(t, ok)
}
