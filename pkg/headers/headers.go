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
	"errors"
	"net/netip"

	"github.com/gopacket/gopacket"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// ErrTTLExpired is returned when a packet's TTL or hop limit cannot be
// decremented without reaching zero.
var ErrTTLExpired = errors.New("ttl expired")

// maxVlanTags bounds the number of stacked 802.1Q tags Parse accepts.
const maxVlanTags = 2

// maxExtHeaders bounds the IPv6 extension header chain Parse follows.
const maxExtHeaders = 8

// Headers is the parsed header stack of a frame, outermost first. Pointers
// are nil for layers the frame does not carry. For VXLAN frames Inner holds
// the encapsulated stack; for ICMP errors Embedded gives in-place access to
// the quoted packet.
type Headers struct {
	Eth    *Ethernet
	Vlans  []*Dot1Q
	IPv4   *IPv4
	IPv6   *IPv6
	Ext    []*IPExtension
	TCP    *TCP
	UDP    *UDP
	ICMPv4 *ICMPv4
	ICMPv6 *ICMPv6
	Vxlan  *VXLAN
	Inner  *Headers

	Embedded *Embedded
}

// Parse decodes the header stack at the start of data. It returns the parsed
// stack and the number of bytes it consumed; data[consumed:] is the payload.
// Truncated or malformed headers fail the whole parse. Unknown ethertypes and
// transport protocols end the parse cleanly instead.
func Parse(data []byte) (*Headers, int, error) {
	h := &Headers{}
	df := gopacket.NilDecodeFeedback

	eth := &Ethernet{}
	if err := eth.DecodeFromBytes(data, df); err != nil {
		return nil, 0, err
	}
	h.Eth = eth
	off := len(eth.Contents)
	cur := eth.Payload
	etherType := eth.EthernetType

	for etherType == EtherTypeDot1Q || etherType == EtherTypeQinQ {
		if len(h.Vlans) == maxVlanTags {
			return nil, 0, serrors.Join(ErrInvalid, nil, "header", "vlan",
				"reason", "too many tags")
		}
		vlan := &Dot1Q{TagType: etherType}
		if err := vlan.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		h.Vlans = append(h.Vlans, vlan)
		off += len(vlan.Contents)
		cur = vlan.Payload
		etherType = vlan.Type
	}

	var proto uint8
	var net pseudoHeaderProvider
	switch etherType {
	case EtherTypeIPv4:
		ip := &IPv4{}
		if err := ip.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		h.IPv4 = ip
		off += len(ip.Contents)
		cur = ip.Payload
		proto = ip.Protocol
		net = ip
	case EtherTypeIPv6:
		ip := &IPv6{}
		if err := ip.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		h.IPv6 = ip
		off += len(ip.Contents)
		cur = ip.Payload
		proto = ip.NextHeader
		net = ip
	default:
		return h, off, nil
	}

	for isIPExtension(proto) {
		if len(h.Ext) == maxExtHeaders {
			return nil, 0, serrors.Join(ErrInvalid, nil, "header", "ipv6-ext",
				"reason", "extension chain too long")
		}
		ext, err := decodeIPExtension(proto, cur, df)
		if err != nil {
			return nil, 0, err
		}
		h.Ext = append(h.Ext, ext)
		off += len(ext.Contents)
		cur = ext.Payload
		proto = ext.NextHeader
	}

	switch proto {
	case ProtoTCP:
		tcp := &TCP{}
		if err := tcp.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		tcp.SetNetworkLayerForChecksum(net)
		h.TCP = tcp
		off += len(tcp.Contents)
	case ProtoUDP:
		udp := &UDP{}
		if err := udp.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		udp.SetNetworkLayerForChecksum(net)
		h.UDP = udp
		off += len(udp.Contents)
		if udp.DstPort == VXLANPort {
			if n, ok := h.parseVxlan(udp.Payload); ok {
				off += n
			}
		}
	case ProtoICMPv4:
		icmp := &ICMPv4{}
		if err := icmp.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		h.ICMPv4 = icmp
		off += len(icmp.Contents)
		if icmp.IsError() {
			h.Embedded = parseEmbedded(icmp.Payload)
		}
	case ProtoICMPv6:
		icmp := &ICMPv6{}
		if err := icmp.DecodeFromBytes(cur, df); err != nil {
			return nil, 0, err
		}
		icmp.SetNetworkLayerForChecksum(net)
		h.ICMPv6 = icmp
		off += len(icmp.Contents)
		if icmp.IsError() {
			h.Embedded = parseEmbedded(icmp.Payload)
		}
	}
	return h, off, nil
}

// parseVxlan attempts to decode a VXLAN header and the encapsulated stack.
// A frame on the VXLAN port that does not decode is left to the caller as
// plain UDP payload.
func (h *Headers) parseVxlan(data []byte) (int, bool) {
	vxlan := &VXLAN{}
	if err := vxlan.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return 0, false
	}
	inner, n, err := Parse(vxlan.Payload)
	if err != nil {
		return 0, false
	}
	h.Vxlan = vxlan
	h.Inner = inner
	return len(vxlan.Contents) + n, true
}

// SerializeTo writes the full header stack in front of whatever the buffer
// already holds, fixing lengths and checksums per opts. The payload must be
// appended to b before calling.
func (h *Headers) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	if h.Inner != nil {
		if h.Vxlan == nil || h.UDP == nil {
			return serrors.New("inner headers require vxlan encapsulation")
		}
		if err := h.Inner.SerializeTo(b, opts); err != nil {
			return err
		}
		if err := h.Vxlan.SerializeTo(b, opts); err != nil {
			return err
		}
	}

	var net pseudoHeaderProvider
	switch {
	case h.IPv4 != nil:
		net = h.IPv4
	case h.IPv6 != nil:
		net = h.IPv6
	}
	switch {
	case h.TCP != nil:
		h.TCP.SetNetworkLayerForChecksum(net)
		if err := h.TCP.SerializeTo(b, opts); err != nil {
			return err
		}
	case h.UDP != nil:
		h.UDP.SetNetworkLayerForChecksum(net)
		if err := h.UDP.SerializeTo(b, opts); err != nil {
			return err
		}
	case h.ICMPv4 != nil:
		if err := h.ICMPv4.SerializeTo(b, opts); err != nil {
			return err
		}
	case h.ICMPv6 != nil:
		h.ICMPv6.SetNetworkLayerForChecksum(net)
		if err := h.ICMPv6.SerializeTo(b, opts); err != nil {
			return err
		}
	}

	for i := len(h.Ext) - 1; i >= 0; i-- {
		if err := h.Ext[i].SerializeTo(b, opts); err != nil {
			return err
		}
	}
	switch {
	case h.IPv4 != nil:
		if err := h.IPv4.SerializeTo(b, opts); err != nil {
			return err
		}
	case h.IPv6 != nil:
		if err := h.IPv6.SerializeTo(b, opts); err != nil {
			return err
		}
	}
	for i := len(h.Vlans) - 1; i >= 0; i-- {
		if err := h.Vlans[i].SerializeTo(b, opts); err != nil {
			return err
		}
	}
	if h.Eth == nil {
		return serrors.New("missing ethernet header")
	}
	return h.Eth.SerializeTo(b, opts)
}

// IsIP reports whether the stack carries a network layer.
func (h *Headers) IsIP() bool {
	return h.IPv4 != nil || h.IPv6 != nil
}

// SrcIP returns the outer source address, or the zero Addr without one.
func (h *Headers) SrcIP() netip.Addr {
	switch {
	case h.IPv4 != nil:
		return h.IPv4.SrcIP
	case h.IPv6 != nil:
		return h.IPv6.SrcIP
	}
	return netip.Addr{}
}

// DstIP returns the outer destination address, or the zero Addr without one.
func (h *Headers) DstIP() netip.Addr {
	switch {
	case h.IPv4 != nil:
		return h.IPv4.DstIP
	case h.IPv6 != nil:
		return h.IPv6.DstIP
	}
	return netip.Addr{}
}

// SetSrcIP rewrites the outer source address. The family must match the
// network layer present.
func (h *Headers) SetSrcIP(a netip.Addr) error {
	switch {
	case h.IPv4 != nil && a.Is4():
		h.IPv4.SrcIP = a
	case h.IPv6 != nil && a.Is6() && !a.Is4In6():
		h.IPv6.SrcIP = a
	default:
		return serrors.New("address family mismatch", "addr", a)
	}
	return nil
}

// SetDstIP rewrites the outer destination address. The family must match the
// network layer present.
func (h *Headers) SetDstIP(a netip.Addr) error {
	switch {
	case h.IPv4 != nil && a.Is4():
		h.IPv4.DstIP = a
	case h.IPv6 != nil && a.Is6() && !a.Is4In6():
		h.IPv6.DstIP = a
	default:
		return serrors.New("address family mismatch", "addr", a)
	}
	return nil
}

// Protocol returns the transport protocol after any extension headers, or 0
// for a non-IP frame.
func (h *Headers) Protocol() uint8 {
	if n := len(h.Ext); n > 0 {
		return h.Ext[n-1].NextHeader
	}
	switch {
	case h.IPv4 != nil:
		return h.IPv4.Protocol
	case h.IPv6 != nil:
		return h.IPv6.NextHeader
	}
	return 0
}

// TTL returns the IPv4 TTL or IPv6 hop limit.
func (h *Headers) TTL() uint8 {
	switch {
	case h.IPv4 != nil:
		return h.IPv4.TTL
	case h.IPv6 != nil:
		return h.IPv6.HopLimit
	}
	return 0
}

// DecrementTTL decrements the TTL or hop limit. It returns ErrTTLExpired,
// leaving the header unchanged, when the field is already at or below 1.
func (h *Headers) DecrementTTL() error {
	switch {
	case h.IPv4 != nil:
		if h.IPv4.TTL <= 1 {
			return ErrTTLExpired
		}
		h.IPv4.TTL--
	case h.IPv6 != nil:
		if h.IPv6.HopLimit <= 1 {
			return ErrTTLExpired
		}
		h.IPv6.HopLimit--
	default:
		return serrors.New("no network layer")
	}
	return nil
}

// SrcPort returns the transport source port, or 0 without a TCP/UDP layer.
func (h *Headers) SrcPort() uint16 {
	switch {
	case h.TCP != nil:
		return h.TCP.SrcPort
	case h.UDP != nil:
		return h.UDP.SrcPort
	}
	return 0
}

// DstPort returns the transport destination port, or 0 without a TCP/UDP
// layer.
func (h *Headers) DstPort() uint16 {
	switch {
	case h.TCP != nil:
		return h.TCP.DstPort
	case h.UDP != nil:
		return h.UDP.DstPort
	}
	return 0
}

// SetSrcPort rewrites the transport source port.
func (h *Headers) SetSrcPort(p uint16) error {
	switch {
	case h.TCP != nil:
		h.TCP.SrcPort = p
	case h.UDP != nil:
		h.UDP.SrcPort = p
	default:
		return serrors.New("no transport layer")
	}
	return nil
}

// SetDstPort rewrites the transport destination port.
func (h *Headers) SetDstPort(p uint16) error {
	switch {
	case h.TCP != nil:
		h.TCP.DstPort = p
	case h.UDP != nil:
		h.UDP.DstPort = p
	default:
		return serrors.New("no transport layer")
	}
	return nil
}

// Vni returns the VXLAN network identifier of an encapsulated frame.
func (h *Headers) Vni() (nettype.Vni, bool) {
	if h.Vxlan == nil {
		return 0, false
	}
	return h.Vxlan.Vni, true
}

// Embedded is the packet quoted inside an ICMP error message. Its fields
// alias the original frame bytes, so mutations write straight through to the
// buffer the frame was parsed from.
type Embedded struct {
	ipv4      []byte
	ipv6      []byte
	transport []byte
}

// parseEmbedded picks apart the quoted packet of an ICMP error. RFC 792 only
// guarantees the IP header plus 8 bytes, so anything short of that yields nil
// rather than an error.
func parseEmbedded(data []byte) *Embedded {
	if len(data) < 1 {
		return nil
	}
	switch data[0] >> 4 {
	case 4:
		hlen := int(data[0]&0x0f) * 4
		if hlen < ipv4MinLen || len(data) < hlen {
			return nil
		}
		return &Embedded{ipv4: data[:hlen], transport: data[hlen:]}
	case 6:
		if len(data) < ipv6Len {
			return nil
		}
		return &Embedded{ipv6: data[:ipv6Len], transport: data[ipv6Len:]}
	}
	return nil
}

// Protocol returns the quoted packet's transport protocol.
func (e *Embedded) Protocol() uint8 {
	switch {
	case e.ipv4 != nil:
		return e.ipv4[9]
	case e.ipv6 != nil:
		return e.ipv6[6]
	}
	return 0
}

// SrcIP returns the quoted packet's source address.
func (e *Embedded) SrcIP() netip.Addr {
	switch {
	case e.ipv4 != nil:
		return netip.AddrFrom4([4]byte(e.ipv4[12:16]))
	case e.ipv6 != nil:
		return netip.AddrFrom16([16]byte(e.ipv6[8:24]))
	}
	return netip.Addr{}
}

// DstIP returns the quoted packet's destination address.
func (e *Embedded) DstIP() netip.Addr {
	switch {
	case e.ipv4 != nil:
		return netip.AddrFrom4([4]byte(e.ipv4[16:20]))
	case e.ipv6 != nil:
		return netip.AddrFrom16([16]byte(e.ipv6[24:40]))
	}
	return netip.Addr{}
}

// SetSrcIP rewrites the quoted packet's source address in place, updating
// the quoted IPv4 header checksum.
func (e *Embedded) SetSrcIP(a netip.Addr) error {
	switch {
	case e.ipv4 != nil && a.Is4():
		b := a.As4()
		copy(e.ipv4[12:16], b[:])
		e.fixChecksum()
	case e.ipv6 != nil && a.Is6() && !a.Is4In6():
		b := a.As16()
		copy(e.ipv6[8:24], b[:])
	default:
		return serrors.New("address family mismatch", "addr", a)
	}
	return nil
}

// SetDstIP rewrites the quoted packet's destination address in place,
// updating the quoted IPv4 header checksum.
func (e *Embedded) SetDstIP(a netip.Addr) error {
	switch {
	case e.ipv4 != nil && a.Is4():
		b := a.As4()
		copy(e.ipv4[16:20], b[:])
		e.fixChecksum()
	case e.ipv6 != nil && a.Is6() && !a.Is4In6():
		b := a.As16()
		copy(e.ipv6[24:40], b[:])
	default:
		return serrors.New("address family mismatch", "addr", a)
	}
	return nil
}

// SrcPort returns the quoted transport source port when enough of the
// transport header was quoted.
func (e *Embedded) SrcPort() (uint16, bool) {
	if !e.hasPorts() {
		return 0, false
	}
	return binary.BigEndian.Uint16(e.transport[0:2]), true
}

// DstPort returns the quoted transport destination port when enough of the
// transport header was quoted.
func (e *Embedded) DstPort() (uint16, bool) {
	if !e.hasPorts() {
		return 0, false
	}
	return binary.BigEndian.Uint16(e.transport[2:4]), true
}

// SetSrcPort rewrites the quoted transport source port in place.
func (e *Embedded) SetSrcPort(p uint16) error {
	if !e.hasPorts() {
		return serrors.New("quoted transport header too short")
	}
	binary.BigEndian.PutUint16(e.transport[0:2], p)
	return nil
}

// SetDstPort rewrites the quoted transport destination port in place.
func (e *Embedded) SetDstPort(p uint16) error {
	if !e.hasPorts() {
		return serrors.New("quoted transport header too short")
	}
	binary.BigEndian.PutUint16(e.transport[2:4], p)
	return nil
}

func (e *Embedded) hasPorts() bool {
	if len(e.transport) < 4 {
		return false
	}
	switch e.Protocol() {
	case ProtoTCP, ProtoUDP:
		return true
	}
	return false
}

func (e *Embedded) fixChecksum() {
	e.ipv4[10], e.ipv4[11] = 0, 0
	binary.BigEndian.PutUint16(e.ipv4[10:12], checksum(e.ipv4, 0))
}
