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

package packet_test

import (
	"net/netip"
	"testing"

	"github.com/gopacket/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

func udpFrame(t *testing.T, src, dst netip.Addr, srcPort, dstPort uint16, payload []byte) []byte {
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
			SrcIP:    src,
			DstIP:    dst,
		},
		UDP: &headers.UDP{SrcPort: srcPort, DstPort: dstPort},
	}
	b := gopacket.NewSerializeBuffer()
	bytes, err := b.AppendBytes(len(payload))
	require.NoError(t, err)
	copy(bytes, payload)
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, h.SerializeTo(b, opts))
	return b.Bytes()
}

func TestBufferGrowShrink(t *testing.T) {
	buf, err := packet.NewTestBuffer([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())

	require.NoError(t, buf.Prepend(2))
	require.Len(t, buf.Bytes(), 6)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes()[2:])

	require.NoError(t, buf.TrimFromStart(3))
	assert.Equal(t, []byte{2, 3, 4}, buf.Bytes())

	require.NoError(t, buf.Append(1))
	require.Len(t, buf.Bytes(), 4)

	assert.ErrorIs(t, buf.Prepend(1<<20), packet.ErrHeadroom)
	assert.ErrorIs(t, buf.TrimFromStart(1<<20), packet.ErrHeadroom)
	assert.ErrorIs(t, buf.Append(1<<20), packet.ErrHeadroom)
}

func TestSerializeInPlace(t *testing.T) {
	frame := udpFrame(t,
		netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2"),
		1111, 2222, []byte("data"))
	p, err := packet.FromFrame(frame)
	require.NoError(t, err)

	require.NoError(t, p.Headers.SetDstIP(netip.MustParseAddr("198.51.100.7")))
	require.NoError(t, p.Serialize())

	reparsed, _, err := headers.Parse(p.Frame())
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("198.51.100.7"), reparsed.DstIP())
	assert.True(t, reparsed.IPv4.ValidateChecksum())
	assert.True(t, reparsed.UDP.ValidateChecksum())
	assert.Equal(t, []byte("data"), p.Payload())
}

func TestSerializeGrowsForAddedHeaders(t *testing.T) {
	frame := udpFrame(t,
		netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2"),
		1111, 2222, []byte("data"))
	p, err := packet.FromFrame(frame)
	require.NoError(t, err)

	p.Headers.Eth.EthernetType = headers.EtherTypeDot1Q
	p.Headers.Vlans = []*headers.Dot1Q{
		{TagType: headers.EtherTypeDot1Q, VlanID: 42, Type: headers.EtherTypeIPv4},
	}
	require.NoError(t, p.Serialize())
	assert.Len(t, p.Frame(), len(frame)+4)

	reparsed, _, err := headers.Parse(p.Frame())
	require.NoError(t, err)
	require.Len(t, reparsed.Vlans, 1)
	assert.Equal(t, uint16(42), reparsed.Vlans[0].VlanID)
	assert.Equal(t, []byte("data"), p.Payload())
}

func TestSerializeShrinksForRemovedHeaders(t *testing.T) {
	frame := udpFrame(t,
		netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2"),
		1111, 2222, []byte("data"))
	tagged := make([]byte, 0, len(frame)+4)
	tagged = append(tagged, frame[:12]...)
	tagged = append(tagged, 0x81, 0x00, 0x00, 0x2a)
	tagged = append(tagged, frame[12:]...)

	p, err := packet.FromFrame(tagged)
	require.NoError(t, err)
	require.Len(t, p.Headers.Vlans, 1)

	p.Headers.Vlans = nil
	p.Headers.Eth.EthernetType = headers.EtherTypeIPv4
	require.NoError(t, p.Serialize())
	assert.Len(t, p.Frame(), len(frame))

	reparsed, _, err := headers.Parse(p.Frame())
	require.NoError(t, err)
	assert.Empty(t, reparsed.Vlans)
	assert.Equal(t, []byte("data"), p.Payload())
}

func TestDropFirstReasonWins(t *testing.T) {
	p, err := packet.FromFrame(udpFrame(t,
		netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2"),
		1, 2, nil))
	require.NoError(t, err)
	assert.False(t, p.IsDropped())

	p.Drop(packet.DropVrfUnknown)
	p.Drop(packet.DropRouteFailure)
	assert.True(t, p.IsDropped())
	assert.Equal(t, packet.DropVrfUnknown, p.Meta.Drop)
}

func TestHashInRange(t *testing.T) {
	mk := func(srcPort uint16) *packet.Packet {
		p, err := packet.FromFrame(udpFrame(t,
			netip.MustParseAddr("10.0.0.1"), netip.MustParseAddr("10.0.0.2"),
			srcPort, 80, nil))
		require.NoError(t, err)
		return p
	}

	a, b := mk(1000), mk(1000)
	assert.Equal(t, a.HashInRange(0, 7), b.HashInRange(0, 7))

	for port := uint16(1); port < 200; port++ {
		h := mk(port).HashInRange(3, 9)
		assert.GreaterOrEqual(t, h, uint64(3))
		assert.LessOrEqual(t, h, uint64(9))
	}
	assert.Equal(t, uint64(5), a.HashInRange(5, 5))
}
