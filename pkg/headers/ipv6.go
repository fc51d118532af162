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

package headers

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/gopacket/gopacket"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// ipv6Len is the length of the fixed IPv6 header.
const ipv6Len = 40

// IPv6 is the fixed IPv6 header. Extension headers are separate IPExtension
// layers.
type IPv6 struct {
	BaseLayer
	TrafficClass uint8
	FlowLabel    uint32
	Length       uint16
	NextHeader   uint8
	HopLimit     uint8
	SrcIP        netip.Addr
	DstIP        netip.Addr
}

func (ip *IPv6) LayerType() gopacket.LayerType {
	return LayerTypeIPv6
}

func (ip *IPv6) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ipv6Len {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "ipv6",
			"expected", ipv6Len, "actual", len(data))
	}
	if version := data[0] >> 4; version != 6 {
		return serrors.Join(ErrInvalid, nil, "header", "ipv6", "version", version)
	}
	ip.TrafficClass = data[0]<<4 | data[1]>>4
	ip.FlowLabel = binary.BigEndian.Uint32(data[0:4]) & 0x000fffff
	ip.Length = binary.BigEndian.Uint16(data[4:6])
	ip.NextHeader = data[6]
	ip.HopLimit = data[7]
	ip.SrcIP = netip.AddrFrom16([16]byte(data[8:24]))
	ip.DstIP = netip.AddrFrom16([16]byte(data[24:40]))
	ip.BaseLayer = BaseLayer{Contents: data[:ipv6Len], Payload: data[ipv6Len:]}
	return nil
}

func (ip *IPv6) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(ipv6Len)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		ip.Length = uint16(len(b.Bytes()) - ipv6Len)
	}
	binary.BigEndian.PutUint32(bytes[0:4],
		6<<28|uint32(ip.TrafficClass)<<20|ip.FlowLabel&0x000fffff)
	binary.BigEndian.PutUint16(bytes[4:6], ip.Length)
	bytes[6] = ip.NextHeader
	bytes[7] = ip.HopLimit
	src := ip.SrcIP.As16()
	dst := ip.DstIP.As16()
	copy(bytes[8:24], src[:])
	copy(bytes[24:40], dst[:])
	return nil
}

// pseudoHeaderSum implements pseudoHeaderProvider.
func (ip *IPv6) pseudoHeaderSum(proto uint8, length int) uint32 {
	return pseudoHeaderSum(proto, ip.SrcIP, ip.DstIP, length)
}

func (ip *IPv6) String() string {
	return fmt.Sprintf("Src=%s, Dst=%s, Next=%d, HopLimit=%d",
		ip.SrcIP, ip.DstIP, ip.NextHeader, ip.HopLimit)
}

// IPExtension is one IP authentication or extension header, kept as raw
// bytes. The dataplane forwards these unchanged; only their chaining is
// interpreted.
type IPExtension struct {
	BaseLayer
	// Proto is the protocol number identifying this header, as found in the
	// preceding header's next-header field.
	Proto uint8
	// NextHeader chains to the following header.
	NextHeader uint8
}

func (e *IPExtension) LayerType() gopacket.LayerType {
	return LayerTypeIPExtension
}

// decodeIPExtension parses the extension header identified by proto.
func decodeIPExtension(proto uint8, data []byte, df gopacket.DecodeFeedback) (*IPExtension, error) {
	if len(data) < 2 {
		df.SetTruncated()
		return nil, serrors.Join(ErrTruncated, nil, "header", "ip-extension",
			"expected", 2, "actual", len(data))
	}
	var hlen int
	switch proto {
	case ProtoFragment:
		hlen = 8
	case ProtoAH:
		// RFC 4302: payload length in 32-bit words, minus 2.
		hlen = (int(data[1]) + 2) * 4
	default:
		// RFC 8200: header length in 8-octet units, not including the first.
		hlen = (int(data[1]) + 1) * 8
	}
	if len(data) < hlen {
		df.SetTruncated()
		return nil, serrors.Join(ErrTruncated, nil, "header", "ip-extension",
			"expected", hlen, "actual", len(data))
	}
	return &IPExtension{
		Proto:      proto,
		NextHeader: data[0],
		BaseLayer:  BaseLayer{Contents: data[:hlen], Payload: data[hlen:]},
	}, nil
}

func (e *IPExtension) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(len(e.Contents))
	if err != nil {
		return err
	}
	copy(bytes, e.Contents)
	return nil
}
