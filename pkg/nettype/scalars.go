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

package nettype

import (
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Vid is an 802.1Q VLAN identifier. Values 0 and 4095 are reserved by the
// standard and rejected.
type Vid uint16

// NewVid validates v as a VLAN identifier.
func NewVid(v uint16) (Vid, error) {
	if v == 0 || v > 4094 {
		return 0, serrors.New("VLAN id out of range", "vid", v)
	}
	return Vid(v), nil
}

// MustVid validates v and panics on invalid input. For tests.
func MustVid(v uint16) Vid {
	vid, err := NewVid(v)
	if err != nil {
		panic(err)
	}
	return vid
}

// TcpPort is a non-zero TCP port.
type TcpPort uint16

// NewTcpPort validates p as a TCP port.
func NewTcpPort(p uint16) (TcpPort, error) {
	if p == 0 {
		return 0, serrors.New("zero TCP port")
	}
	return TcpPort(p), nil
}

// UdpPort is a non-zero UDP port.
type UdpPort uint16

// NewUdpPort validates p as a UDP port.
func NewUdpPort(p uint16) (UdpPort, error) {
	if p == 0 {
		return 0, serrors.New("zero UDP port")
	}
	return UdpPort(p), nil
}

// NatPort is a non-zero port reserved through a NAT mapping. Ports at or
// below ReservedPortMax are never handed out by the allocators; see the
// stateful NAT pool.
type NatPort uint16

// ReservedPortMax is the highest port number the NAT allocators refuse to
// hand out.
const ReservedPortMax = 1024

// NewNatPort validates p as an allocatable NAT port.
func NewNatPort(p uint16) (NatPort, error) {
	if p == 0 {
		return 0, serrors.New("zero NAT port")
	}
	return NatPort(p), nil
}

// Mtu is an interface MTU. The lower bound is the IPv6 minimum link MTU.
type Mtu uint16

// NewMtu validates m as an interface MTU.
func NewMtu(m uint16) (Mtu, error) {
	if m < 1280 {
		return 0, serrors.New("MTU out of range", "mtu", m)
	}
	return Mtu(m), nil
}
