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

package stateless_test

import (
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

func prefixes(ss ...string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(ss))
	for _, s := range ss {
		out = append(out, netip.MustParsePrefix(s))
	}
	return out
}

// The expose pairs 10.0.0.0/25 + 10.0.2.128/25 with 100.64.1.0/24, carving
// one excluded address out of each side at the same position.
func exposeMapping(t *testing.T) *stateless.Mapping {
	t.Helper()
	m, err := stateless.NewMapping(
		prefixes("10.0.0.0/25", "10.0.2.128/25"),
		prefixes("10.0.0.13/32", "10.0.2.130/32"),
		prefixes("100.64.1.0/24"),
		prefixes("100.64.1.13/32"),
	)
	require.NoError(t, err)
	return m
}

func TestMappingOffsets(t *testing.T) {
	m := exposeMapping(t)
	testCases := map[string]struct {
		in   string
		want string
	}{
		"first address":        {"10.0.0.0", "100.64.1.0"},
		"after carved hole":    {"10.0.0.127", "100.64.1.127"},
		"second include block": {"10.0.2.128", "100.64.1.128"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			out, hit, err := m.Translate(netip.MustParseAddr(tc.in))
			require.NoError(t, err)
			require.True(t, hit)
			assert.Equal(t, netip.MustParseAddr(tc.want), out)
		})
	}
}

func TestExcludedAddressPassesThrough(t *testing.T) {
	m := exposeMapping(t)
	out, hit, err := m.Translate(netip.MustParseAddr("10.0.0.13"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, netip.MustParseAddr("10.0.0.13"), out)
}

func TestMappingValidation(t *testing.T) {
	_, err := stateless.NewMapping(
		prefixes("10.0.0.0/24"), nil,
		prefixes("2001:db8::/120"), nil)
	assert.Error(t, err, "mixed families")

	_, err = stateless.NewMapping(
		prefixes("10.0.0.0/24"), nil,
		prefixes("100.64.1.0/25"), nil)
	assert.Error(t, err, "unequal cardinality")

	_, err = stateless.NewMapping(nil, nil, nil, nil)
	assert.Error(t, err, "empty sides")
}

func TestOffsetPastTargetEndErrors(t *testing.T) {
	// Same pre-exclusion size, but the target side loses more addresses to
	// excludes, so the last original position has no target.
	m, err := stateless.NewMapping(
		prefixes("10.0.0.0/24"), nil,
		prefixes("100.64.1.0/24"), prefixes("100.64.1.200/32"))
	require.NoError(t, err)

	_, hit, err := m.Translate(netip.MustParseAddr("10.0.0.255"))
	assert.Error(t, err)
	assert.False(t, hit)
}

func natFrame(t *testing.T, src, dst string) *packet.Packet {
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
		UDP: &headers.UDP{SrcPort: 1234, DstPort: 80},
	}
	b := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, h.SerializeTo(b, opts))
	p, err := packet.FromFrame(b.Bytes())
	require.NoError(t, err)
	return p
}

func TestTranslatePacket(t *testing.T) {
	vni := nettype.MustVni(3000)
	m := exposeMapping(t)

	tbl := stateless.NewPerVniTable()
	tbl.AddSrcMapping(m, prefixes("10.0.0.0/25", "10.0.2.128/25"))

	next := stateless.NewTables()
	w, r := stateless.New()
	w.Append(stateless.Update(next))
	w.Publish()

	// No table for the packet's VPC: pass through.
	p := natFrame(t, "10.0.0.20", "192.0.2.1")
	p.Meta.SrcVpcd = nettype.VpcdFromVni(vni)
	require.NoError(t, r.Guard().Translate(p))
	assert.Equal(t, netip.MustParseAddr("10.0.0.20"), p.Headers.SrcIP())

	// With the table installed, the source rewrites.
	withNat := stateless.NewTables()
	withNat.Install(vni, tbl)
	w.Append(stateless.Update(withNat))
	w.Publish()

	require.NoError(t, r.Guard().Translate(p))
	assert.Equal(t, netip.MustParseAddr("100.64.1.20"), p.Headers.SrcIP())
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), p.Headers.DstIP())
}
