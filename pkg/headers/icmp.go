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

// icmpLen is the length of the fixed ICMP header, both versions.
const icmpLen = 8

// ICMPv4 message types relevant to forwarding.
const (
	ICMPv4TypeEchoReply      uint8 = 0
	ICMPv4TypeDstUnreachable uint8 = 3
	ICMPv4TypeRedirect       uint8 = 5
	ICMPv4TypeEcho           uint8 = 8
	ICMPv4TypeTimeExceeded   uint8 = 11
	ICMPv4TypeParamProblem   uint8 = 12
)

// ICMPv6 message types relevant to forwarding.
const (
	ICMPv6TypeDstUnreachable uint8 = 1
	ICMPv6TypePacketTooBig   uint8 = 2
	ICMPv6TypeTimeExceeded   uint8 = 3
	ICMPv6TypeParamProblem   uint8 = 4
	ICMPv6TypeEchoRequest    uint8 = 128
	ICMPv6TypeEchoReply      uint8 = 129
)

// ICMPv4 is an ICMPv4 header: type, code, checksum and the four
// rest-of-header bytes (identifier/sequence for queries, unused or MTU for
// errors).
type ICMPv4 struct {
	BaseLayer
	Type         uint8
	Code         uint8
	Checksum     uint16
	RestOfHeader [4]byte
}

func (i *ICMPv4) LayerType() gopacket.LayerType {
	return LayerTypeICMPv4
}

// IsError reports whether the message quotes an offending packet.
func (i *ICMPv4) IsError() bool {
	switch i.Type {
	case ICMPv4TypeDstUnreachable, ICMPv4TypeRedirect,
		ICMPv4TypeTimeExceeded, ICMPv4TypeParamProblem:
		return true
	}
	return false
}

// Identifier returns the query identifier for echo messages.
func (i *ICMPv4) Identifier() uint16 {
	return binary.BigEndian.Uint16(i.RestOfHeader[0:2])
}

// SetIdentifier stores the query identifier for echo messages.
func (i *ICMPv4) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(i.RestOfHeader[0:2], id)
}

func (i *ICMPv4) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < icmpLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "icmp4",
			"expected", icmpLen, "actual", len(data))
	}
	i.Type = data[0]
	i.Code = data[1]
	i.Checksum = binary.BigEndian.Uint16(data[2:4])
	copy(i.RestOfHeader[:], data[4:8])
	i.BaseLayer = BaseLayer{Contents: data[:icmpLen], Payload: data[icmpLen:]}
	return nil
}

// SerializeTo writes the header. The checksum covers the whole ICMP message,
// so everything after this header must already be in the buffer.
func (i *ICMPv4) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(icmpLen)
	if err != nil {
		return err
	}
	bytes[0] = i.Type
	bytes[1] = i.Code
	copy(bytes[4:8], i.RestOfHeader[:])
	if opts.ComputeChecksums {
		bytes[2], bytes[3] = 0, 0
		i.Checksum = checksum(b.Bytes(), 0)
	}
	binary.BigEndian.PutUint16(bytes[2:4], i.Checksum)
	return nil
}

// ValidateChecksum recomputes the checksum over the decoded message.
func (i *ICMPv4) ValidateChecksum() bool {
	data := make([]byte, 0, len(i.Contents)+len(i.Payload))
	data = append(data, i.Contents...)
	data = append(data, i.Payload...)
	data[2], data[3] = 0, 0
	return checksum(data, 0) == i.Checksum
}

func (i *ICMPv4) String() string {
	return fmt.Sprintf("Type=%d, Code=%d", i.Type, i.Code)
}

// ICMPv6 is an ICMPv6 header. The checksum includes the IPv6 pseudo-header.
type ICMPv6 struct {
	BaseLayer
	Type         uint8
	Code         uint8
	Checksum     uint16
	RestOfHeader [4]byte
	net          pseudoHeaderProvider
}

func (i *ICMPv6) LayerType() gopacket.LayerType {
	return LayerTypeICMPv6
}

// SetNetworkLayerForChecksum wires the IPv6 layer whose addresses enter the
// pseudo-header checksum.
func (i *ICMPv6) SetNetworkLayerForChecksum(net pseudoHeaderProvider) {
	i.net = net
}

// IsError reports whether the message quotes an offending packet.
func (i *ICMPv6) IsError() bool {
	return i.Type < 128
}

// Identifier returns the query identifier for echo messages.
func (i *ICMPv6) Identifier() uint16 {
	return binary.BigEndian.Uint16(i.RestOfHeader[0:2])
}

// SetIdentifier stores the query identifier for echo messages.
func (i *ICMPv6) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(i.RestOfHeader[0:2], id)
}

func (i *ICMPv6) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < icmpLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "icmp6",
			"expected", icmpLen, "actual", len(data))
	}
	i.Type = data[0]
	i.Code = data[1]
	i.Checksum = binary.BigEndian.Uint16(data[2:4])
	copy(i.RestOfHeader[:], data[4:8])
	i.BaseLayer = BaseLayer{Contents: data[:icmpLen], Payload: data[icmpLen:]}
	return nil
}

func (i *ICMPv6) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(icmpLen)
	if err != nil {
		return err
	}
	bytes[0] = i.Type
	bytes[1] = i.Code
	copy(bytes[4:8], i.RestOfHeader[:])
	if opts.ComputeChecksums {
		if i.net == nil {
			return serrors.New("cannot compute ICMPv6 checksum without network layer")
		}
		bytes[2], bytes[3] = 0, 0
		sum := i.net.pseudoHeaderSum(ProtoICMPv6, len(b.Bytes()))
		i.Checksum = checksum(b.Bytes(), sum)
	}
	binary.BigEndian.PutUint16(bytes[2:4], i.Checksum)
	return nil
}

// ValidateChecksum recomputes the checksum over the decoded message.
func (i *ICMPv6) ValidateChecksum() bool {
	if i.net == nil {
		return false
	}
	data := make([]byte, 0, len(i.Contents)+len(i.Payload))
	data = append(data, i.Contents...)
	data = append(data, i.Payload...)
	data[2], data[3] = 0, 0
	sum := i.net.pseudoHeaderSum(ProtoICMPv6, len(data))
	return checksum(data, sum) == i.Checksum
}

func (i *ICMPv6) String() string {
	return fmt.Sprintf("Type=%d, Code=%d", i.Type, i.Code)
}
