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

	"github.com/gopacket/gopacket"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// udpLen is the length of a UDP header.
const udpLen = 8

// UDP is a UDP header.
type UDP struct {
	BaseLayer
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
	net      pseudoHeaderProvider
}

func (u *UDP) LayerType() gopacket.LayerType {
	return LayerTypeUDP
}

// SetNetworkLayerForChecksum wires the network layer whose addresses enter
// the pseudo-header checksum.
func (u *UDP) SetNetworkLayerForChecksum(net pseudoHeaderProvider) {
	u.net = net
}

func (u *UDP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < udpLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "udp",
			"expected", udpLen, "actual", len(data))
	}
	u.SrcPort = binary.BigEndian.Uint16(data[0:2])
	u.DstPort = binary.BigEndian.Uint16(data[2:4])
	u.Length = binary.BigEndian.Uint16(data[4:6])
	u.Checksum = binary.BigEndian.Uint16(data[6:8])
	u.BaseLayer = BaseLayer{Contents: data[:udpLen], Payload: data[udpLen:]}
	return nil
}

func (u *UDP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(udpLen)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		u.Length = uint16(len(b.Bytes()))
	}
	binary.BigEndian.PutUint16(bytes[0:2], u.SrcPort)
	binary.BigEndian.PutUint16(bytes[2:4], u.DstPort)
	binary.BigEndian.PutUint16(bytes[4:6], u.Length)
	if opts.ComputeChecksums {
		if u.net == nil {
			return serrors.New("cannot compute UDP checksum without network layer")
		}
		bytes[6], bytes[7] = 0, 0
		sum := u.net.pseudoHeaderSum(ProtoUDP, len(b.Bytes()))
		u.Checksum = checksum(b.Bytes(), sum)
		if u.Checksum == 0 {
			// RFC 768: zero means "no checksum"; transmit all-ones instead.
			u.Checksum = 0xffff
		}
	}
	binary.BigEndian.PutUint16(bytes[6:8], u.Checksum)
	return nil
}

// ValidateChecksum recomputes the checksum over the decoded header and
// payload. A zero stored checksum (IPv4, checksum disabled) validates.
func (u *UDP) ValidateChecksum() bool {
	if u.Checksum == 0 {
		return true
	}
	if u.net == nil {
		return false
	}
	data := make([]byte, 0, len(u.Contents)+len(u.Payload))
	data = append(data, u.Contents...)
	data = append(data, u.Payload...)
	data[6], data[7] = 0, 0
	sum := u.net.pseudoHeaderSum(ProtoUDP, len(data))
	got := checksum(data, sum)
	if got == 0 {
		got = 0xffff
	}
	return got == u.Checksum
}

func (u *UDP) String() string {
	return fmt.Sprintf("SrcPort=%d, DstPort=%d", u.SrcPort, u.DstPort)
}
