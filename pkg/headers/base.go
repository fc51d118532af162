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

// Package headers implements the layered header codec of the gateway
// dataplane: Ethernet, 802.1Q, IPv4/IPv6 (with extension headers), TCP, UDP,
// ICMPv4/v6 and VXLAN. Layers follow the gopacket decoding/serialization
// contract. We implement the layers ourselves instead of using
// gopacket/layers: the stock layers pad Ethernet frames and fold IPv6
// hop-by-hop handling into the IP layer, either of which breaks the
// exact-byte round-trip the dataplane depends on.
package headers

import (
	"errors"
)

// Parse error taxonomy. Errors carry context via serrors; callers match with
// errors.Is.
var (
	// ErrTruncated indicates fewer bytes than the header requires.
	ErrTruncated = errors.New("truncated header")
	// ErrInvalid indicates a malformed header.
	ErrInvalid = errors.New("invalid header")
)

// EtherType values the parser understands.
const (
	EtherTypeIPv4  uint16 = 0x0800
	EtherTypeIPv6  uint16 = 0x86DD
	EtherTypeDot1Q uint16 = 0x8100
	EtherTypeQinQ  uint16 = 0x88A8
)

// IP protocol numbers the parser understands.
const (
	ProtoHopByHop uint8 = 0
	ProtoICMPv4   uint8 = 1
	ProtoTCP      uint8 = 6
	ProtoUDP      uint8 = 17
	ProtoRouting  uint8 = 43
	ProtoFragment uint8 = 44
	ProtoAH       uint8 = 51
	ProtoICMPv6   uint8 = 58
	ProtoDestOpts uint8 = 60
)

// VXLANPort is the IANA-assigned UDP destination port for VXLAN.
const VXLANPort uint16 = 4789

// BaseLayer is the common gopacket layer plumbing: the bytes of the header
// itself and the bytes it carries.
type BaseLayer struct {
	Contents []byte
	Payload  []byte
}

// LayerContents returns the bytes of the header itself.
func (b *BaseLayer) LayerContents() []byte {
	return b.Contents
}

// LayerPayload returns the bytes carried by the header.
func (b *BaseLayer) LayerPayload() []byte {
	return b.Payload
}

// isIPExtension reports whether proto chains another header before the
// transport.
func isIPExtension(proto uint8) bool {
	switch proto {
	case ProtoHopByHop, ProtoRouting, ProtoFragment, ProtoAH, ProtoDestOpts:
		return true
	}
	return false
}
