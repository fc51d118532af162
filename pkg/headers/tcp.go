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

// tcpMinLen is the length of a TCP header without options.
const tcpMinLen = 20

// TCP flag bits as laid out in Flags, NS included.
const (
	TCPFlagFin uint16 = 1 << iota
	TCPFlagSyn
	TCPFlagRst
	TCPFlagPsh
	TCPFlagAck
	TCPFlagUrg
	TCPFlagEce
	TCPFlagCwr
	TCPFlagNs
)

// TCP is a TCP header, options included.
type TCP struct {
	BaseLayer
	SrcPort    uint16
	DstPort    uint16
	Seq        uint32
	Ack        uint32
	DataOffset uint8
	// Flags holds the 9 flag bits (NS..FIN).
	Flags    uint16
	Window   uint16
	Checksum uint16
	Urgent   uint16
	// Options holds the raw option bytes, padding included.
	Options []byte
	net     pseudoHeaderProvider
}

func (t *TCP) LayerType() gopacket.LayerType {
	return LayerTypeTCP
}

// SetNetworkLayerForChecksum wires the network layer whose addresses enter
// the pseudo-header checksum.
func (t *TCP) SetNetworkLayerForChecksum(net pseudoHeaderProvider) {
	t.net = net
}

func (t *TCP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < tcpMinLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "tcp",
			"expected", tcpMinLen, "actual", len(data))
	}
	t.SrcPort = binary.BigEndian.Uint16(data[0:2])
	t.DstPort = binary.BigEndian.Uint16(data[2:4])
	t.Seq = binary.BigEndian.Uint32(data[4:8])
	t.Ack = binary.BigEndian.Uint32(data[8:12])
	t.DataOffset = data[12] >> 4
	hlen := int(t.DataOffset) * 4
	if hlen < tcpMinLen {
		return serrors.Join(ErrInvalid, nil, "header", "tcp", "data_offset", t.DataOffset)
	}
	if len(data) < hlen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "tcp",
			"expected", hlen, "actual", len(data))
	}
	t.Flags = uint16(data[12]&0x01)<<8 | uint16(data[13])
	t.Window = binary.BigEndian.Uint16(data[14:16])
	t.Checksum = binary.BigEndian.Uint16(data[16:18])
	t.Urgent = binary.BigEndian.Uint16(data[18:20])
	t.Options = data[tcpMinLen:hlen]
	t.BaseLayer = BaseLayer{Contents: data[:hlen], Payload: data[hlen:]}
	return nil
}

func (t *TCP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if len(t.Options)%4 != 0 {
		return serrors.Join(ErrInvalid, nil, "header", "tcp",
			"options_len", len(t.Options))
	}
	hlen := tcpMinLen + len(t.Options)
	bytes, err := b.PrependBytes(hlen)
	if err != nil {
		return err
	}
	if opts.FixLengths {
		t.DataOffset = uint8(hlen / 4)
	}
	binary.BigEndian.PutUint16(bytes[0:2], t.SrcPort)
	binary.BigEndian.PutUint16(bytes[2:4], t.DstPort)
	binary.BigEndian.PutUint32(bytes[4:8], t.Seq)
	binary.BigEndian.PutUint32(bytes[8:12], t.Ack)
	bytes[12] = t.DataOffset<<4 | uint8(t.Flags>>8)&0x01
	bytes[13] = uint8(t.Flags)
	binary.BigEndian.PutUint16(bytes[14:16], t.Window)
	binary.BigEndian.PutUint16(bytes[18:20], t.Urgent)
	copy(bytes[tcpMinLen:], t.Options)
	if opts.ComputeChecksums {
		if t.net == nil {
			return serrors.New("cannot compute TCP checksum without network layer")
		}
		bytes[16], bytes[17] = 0, 0
		sum := t.net.pseudoHeaderSum(ProtoTCP, len(b.Bytes()))
		t.Checksum = checksum(b.Bytes(), sum)
	}
	binary.BigEndian.PutUint16(bytes[16:18], t.Checksum)
	return nil
}

// ValidateChecksum recomputes the checksum over the decoded header and
// payload.
func (t *TCP) ValidateChecksum() bool {
	if t.net == nil {
		return false
	}
	data := make([]byte, 0, len(t.Contents)+len(t.Payload))
	data = append(data, t.Contents...)
	data = append(data, t.Payload...)
	data[16], data[17] = 0, 0
	sum := t.net.pseudoHeaderSum(ProtoTCP, len(data))
	return checksum(data, sum) == t.Checksum
}

func (t *TCP) String() string {
	return fmt.Sprintf("SrcPort=%d, DstPort=%d, Seq=%d", t.SrcPort, t.DstPort, t.Seq)
}
