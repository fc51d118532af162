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
	"net/netip"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// UnicastAddr is an IP address guaranteed not to be multicast.
type UnicastAddr struct {
	addr netip.Addr
}

// NewUnicastAddr validates a as a unicast address. Both families are
// accepted.
func NewUnicastAddr(a netip.Addr) (UnicastAddr, error) {
	if !a.IsValid() {
		return UnicastAddr{}, serrors.New("invalid IP address")
	}
	if a.IsMulticast() {
		return UnicastAddr{}, serrors.New("multicast IP address", "addr", a)
	}
	return UnicastAddr{addr: a}, nil
}

// ParseUnicastAddr parses and validates a textual unicast address.
func ParseUnicastAddr(s string) (UnicastAddr, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return UnicastAddr{}, serrors.Wrap("parsing IP address", err, "value", s)
	}
	return NewUnicastAddr(a)
}

// Addr returns the inner address.
func (u UnicastAddr) Addr() netip.Addr {
	return u.addr
}

func (u UnicastAddr) String() string {
	return u.addr.String()
}

// ParsePrefix parses "a.b.c.d/nn" or an IPv6 equivalent into a prefix. Host
// bits set to a non-zero value are an error, unlike with netip.ParsePrefix.
func ParsePrefix(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, serrors.Wrap("parsing prefix", err, "value", s)
	}
	if p.Addr() != p.Masked().Addr() {
		return netip.Prefix{}, serrors.New("prefix has host bits set", "value", s)
	}
	return p, nil
}

// MustParsePrefix parses a prefix and panics on invalid input. For tests.
func MustParsePrefix(s string) netip.Prefix {
	p, err := ParsePrefix(s)
	if err != nil {
		panic(err)
	}
	return p
}
