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

// ipv4MinLen is the length of an IPv4 header without options.
const ipv4MinLen = 20

// IPv4 is an IPv4 header, options included.
type IPv4 struct {
	BaseLayer
	IHL        uint8
	TOS        uint8
	Length     uint16
	Id         uint16
	Flags      uint8
	FragOffset uint16
	TTL        uint8
	Protocol   uint8
	Checksum   uint16
	SrcIP      netip.Addr
	DstIP      netip.Addr
	// Options holds the raw option bytes, padding included.
	Options []byte
}

func (ip *IPv4) LayerType() gopacket.LayerType {
	return LayerTypeIPv4
}

func (ip *IPv4) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ipv4MinLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "ipv4",
			"expected", ipv4MinLen, "actual", len(data))
	}
	if version := data[0] >> 4; version != 4 {
		return serrors.Join(ErrInvalid, nil, "header", "ipv4", "version", version)
	}
	ip.IHL = data[0] & 0x0f
	hlen := int(ip.IHL) * 4
	if hlen < ipv4MinLen {
		return serrors.Join(ErrInvalid, nil, "header", "ipv4", "ihl", ip.IHL)
	}
	if len(data) < hlen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "ipv4",
			"expected", hlen, "actual", len(data))
	}
	ip.TOS = data[1]
	ip.Length = binary.BigEndian.Uint16(data[2:4])
	ip.Id = binary.BigEndian.Uint16(data[4:6])
	flagsFrag := binary.BigEndian.Uint16(data[6:8])
	ip.Flags = uint8(flagsFrag >> 13)
	ip.FragOffset = flagsFrag & 0x1fff
	ip.TTL = data[8]
	ip.Protocol = data[9]
	ip.Checksum = binary.BigEndian.Uint16(data[10:12])
	ip.SrcIP = netip.AddrFrom4([4]byte(data[12:16]))
	ip.DstIP = netip.AddrFrom4([4]byte(data[16:20]))
	ip.Options = data[ipv4MinLen:hlen]
	if int(ip.Length) < hlen {
		return serrors.Join(ErrInvalid, nil, "header", "ipv4",
			"total_length", ip.Length, "ihl_bytes", hlen)
	}
	ip.BaseLayer = BaseLayer{Contents: data[:hlen], Payload: data[hlen:]}
	return nil
}

func (ip *IPv4) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if len(ip.Options)%4 != 0 {
		return serrors.Join(ErrInvalid, nil, "header", "ipv4",
			"options_len", len(ip.Options))
	}
	hlen := ipv4MinLen + len(ip.Options)
	bytes, err := b.PrependBytes(hlen)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		ip.IHL = uint8(hlen / 4)
		ip.Length = uint16(len(b.Bytes()))
	}
	bytes[0] = 4<<4 | ip.IHL&0x0f
	bytes[1] = ip.TOS
	binary.BigEndian.PutUint16(bytes[2:4], ip.Length)
	binary.BigEndian.PutUint16(bytes[4:6], ip.Id)
	binary.BigEndian.PutUint16(bytes[6:8], uint16(ip.Flags)<<13|ip.FragOffset&0x1fff)
	bytes[8] = ip.TTL
	bytes[9] = ip.Protocol
	bytes[10], bytes[11] = 0, 0
	src := ip.SrcIP.As4()
	dst := ip.DstIP.As4()
	copy(bytes[12:16], src[:])
	copy(bytes[16:20], dst[:])
	copy(bytes[ipv4MinLen:], ip.Options)
	if opts.ComputeChecksums {
		ip.Checksum = checksum(bytes[:hlen], 0)
	}
	binary.BigEndian.PutUint16(bytes[10:12], ip.Checksum)
	return nil
}

// ValidateChecksum recomputes the header checksum from the decoded contents
// and compares it to the stored value.
func (ip *IPv4) ValidateChecksum() bool {
	if len(ip.Contents) < ipv4MinLen {
		return false
	}
	hdr := make([]byte, len(ip.Contents))
	copy(hdr, ip.Contents)
	hdr[10], hdr[11] = 0, 0
	return checksum(hdr, 0) == ip.Checksum
}

// pseudoHeaderSum implements pseudoHeaderProvider.
func (ip *IPv4) pseudoHeaderSum(proto uint8, length int) uint32 {
	return pseudoHeaderSum(proto, ip.SrcIP, ip.DstIP, length)
}

func (ip *IPv4) String() string {
	return fmt.Sprintf("Src=%s, Dst=%s, Proto=%d, TTL=%d", ip.SrcIP, ip.DstIP, ip.Protocol, ip.TTL)
}
