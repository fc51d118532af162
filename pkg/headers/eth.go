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

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// ethernetLen is the length of an Ethernet II header.
const ethernetLen = 14

// Ethernet is an Ethernet II header.
type Ethernet struct {
	BaseLayer
	DstMAC       nettype.Mac
	SrcMAC       nettype.Mac
	EthernetType uint16
}

func (e *Ethernet) LayerType() gopacket.LayerType {
	return LayerTypeEthernet
}

// DecodeFromBytes implements the gopacket.DecodingLayer interface.
func (e *Ethernet) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ethernetLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "ethernet",
			"expected", ethernetLen, "actual", len(data))
	}
	copy(e.DstMAC[:], data[0:6])
	copy(e.SrcMAC[:], data[6:12])
	e.EthernetType = binary.BigEndian.Uint16(data[12:14])
	e.BaseLayer = BaseLayer{Contents: data[:ethernetLen], Payload: data[ethernetLen:]}
	return nil
}

// SerializeTo implements the gopacket.SerializableLayer interface. No
// padding is added; undersized frames are the link driver's problem.
func (e *Ethernet) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(ethernetLen)
	if err != nil {
		return err
	}
	copy(bytes[0:6], e.DstMAC[:])
	copy(bytes[6:12], e.SrcMAC[:])
	binary.BigEndian.PutUint16(bytes[12:14], e.EthernetType)
	return nil
}

func (e *Ethernet) String() string {
	return fmt.Sprintf("Dst=%s, Src=%s, Type=0x%04x", e.DstMAC, e.SrcMAC, e.EthernetType)
}

// dot1qLen is the length of one 802.1Q tag.
const dot1qLen = 4

// Dot1Q is an 802.1Q or 802.1ad VLAN tag.
type Dot1Q struct {
	BaseLayer
	Priority     uint8
	DropEligible bool
	VlanID       uint16
	// TagType is the EtherType under which this tag was found, 0x8100 or
	// 0x88A8.
	TagType uint16
	// Type is the EtherType of what follows the tag.
	Type uint16
}

func (q *Dot1Q) LayerType() gopacket.LayerType {
	return LayerTypeDot1Q
}

func (q *Dot1Q) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < dot1qLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "dot1q",
			"expected", dot1qLen, "actual", len(data))
	}
	tci := binary.BigEndian.Uint16(data[0:2])
	q.Priority = uint8(tci >> 13)
	q.DropEligible = tci&0x1000 != 0
	q.VlanID = tci & 0x0fff
	q.Type = binary.BigEndian.Uint16(data[2:4])
	q.BaseLayer = BaseLayer{Contents: data[:dot1qLen], Payload: data[dot1qLen:]}
	return nil
}

func (q *Dot1Q) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(dot1qLen)
	if err != nil {
		return err
	}
	tci := uint16(q.Priority)<<13 | q.VlanID&0x0fff
	if q.DropEligible {
		tci |= 0x1000
	}
	binary.BigEndian.PutUint16(bytes[0:2], tci)
	binary.BigEndian.PutUint16(bytes[2:4], q.Type)
	return nil
}

func (q *Dot1Q) String() string {
	return fmt.Sprintf("VID=%d, Prio=%d", q.VlanID, q.Priority)
}
