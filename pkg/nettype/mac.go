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

// Package nettype defines the typed scalars of the gateway dataplane. Every
// constructor enforces the value invariants, so that a validated object can
// be passed around without re-checking.
package nettype

import (
	"net"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Mac is a 48-bit Ethernet address.
type Mac [6]byte

// Broadcast is the all-ones Ethernet address.
var Broadcast = Mac{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMac parses a textual MAC address.
func ParseMac(s string) (Mac, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return Mac{}, serrors.New("invalid MAC address", "value", s)
	}
	var m Mac
	copy(m[:], hw)
	return m, nil
}

// MustParseMac parses a textual MAC address. It panics on invalid input and
// is intended for tests and static initialization.
func MustParseMac(s string) Mac {
	m, err := ParseMac(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Mac) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsZero reports whether the address is all-zeros.
func (m Mac) IsZero() bool {
	return m == Mac{}
}

// IsMulticast reports whether the group bit is set. The broadcast address is
// multicast too.
func (m Mac) IsMulticast() bool {
	return m[0]&0x01 != 0
}

// IsBroadcast reports whether the address is all-ones.
func (m Mac) IsBroadcast() bool {
	return m == Broadcast
}

// SourceMac is a MAC address valid as the source of a frame: neither
// multicast nor zero.
type SourceMac struct {
	mac Mac
}

// NewSourceMac validates m as a frame source address.
func NewSourceMac(m Mac) (SourceMac, error) {
	if m.IsZero() {
		return SourceMac{}, serrors.New("zero source MAC")
	}
	if m.IsMulticast() {
		return SourceMac{}, serrors.New("multicast source MAC", "mac", m)
	}
	return SourceMac{mac: m}, nil
}

// Mac returns the inner address.
func (s SourceMac) Mac() Mac {
	return s.mac
}

func (s SourceMac) String() string {
	return s.mac.String()
}

// DestinationMac is a MAC address usable as the destination of a frame. Any
// address is allowed, including multicast and broadcast.
type DestinationMac struct {
	mac Mac
}

// NewDestinationMac wraps m as a frame destination address.
func NewDestinationMac(m Mac) DestinationMac {
	return DestinationMac{mac: m}
}

// Mac returns the inner address.
func (d DestinationMac) Mac() Mac {
	return d.mac
}

func (d DestinationMac) String() string {
	return d.mac.String()
}
