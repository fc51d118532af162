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

package stateless

import (
	"math/bits"
	"net/netip"

	"go4.org/netipx"
)

// u128 is an unsigned 128-bit offset into an address range. IPv6 ranges do
// not fit in 64 bits.
type u128 struct {
	hi, lo uint64
}

func (a u128) less(b u128) bool {
	if a.hi != b.hi {
		return a.hi < b.hi
	}
	return a.lo < b.lo
}

func (a u128) add(b u128) u128 {
	lo, carry := bits.Add64(a.lo, b.lo, 0)
	hi, _ := bits.Add64(a.hi, b.hi, carry)
	return u128{hi: hi, lo: lo}
}

func (a u128) sub(b u128) u128 {
	lo, borrow := bits.Sub64(a.lo, b.lo, 0)
	hi, _ := bits.Sub64(a.hi, b.hi, borrow)
	return u128{hi: hi, lo: lo}
}

func addrValue(a netip.Addr) u128 {
	b := a.As16()
	return u128{
		hi: beUint64(b[0:8]),
		lo: beUint64(b[8:16]),
	}
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// addrPlus returns base advanced by off, keeping base's family.
func addrPlus(base netip.Addr, off u128) netip.Addr {
	v := addrValue(base).add(off)
	var b [16]byte
	for i := 15; i >= 8; i-- {
		b[i] = byte(v.lo)
		v.lo >>= 8
	}
	for i := 7; i >= 0; i-- {
		b[i] = byte(v.hi)
		v.hi >>= 8
	}
	addr := netip.AddrFrom16(b)
	if base.Is4() {
		return addr.Unmap()
	}
	return addr
}

// rangeSpan returns the number of addresses in r minus one.
func rangeSpan(r netipx.IPRange) u128 {
	return addrValue(r.To()).sub(addrValue(r.From()))
}

// one is the u128 unit.
var one = u128{lo: 1}

// offsetOf locates addr within the carved ranges, numbering their addresses
// contiguously from zero.
func offsetOf(ranges []netipx.IPRange, addr netip.Addr) (u128, bool) {
	var off u128
	v := addrValue(addr)
	for _, r := range ranges {
		from, to := addrValue(r.From()), addrValue(r.To())
		if !v.less(from) && !to.less(v) {
			return off.add(v.sub(from)), true
		}
		off = off.add(to.sub(from)).add(one)
	}
	return u128{}, false
}

// addrAt returns the address at the given contiguous offset into the carved
// ranges.
func addrAt(ranges []netipx.IPRange, off u128) (netip.Addr, bool) {
	for _, r := range ranges {
		span := rangeSpan(r)
		if !span.less(off) {
			return addrPlus(r.From(), off), true
		}
		off = off.sub(span).sub(one)
	}
	return netip.Addr{}, false
}

// carve removes the exclude prefixes from the include prefixes, yielding the
// sorted disjoint ranges the offset numbering runs over.
func carve(includes, excludes []netip.Prefix) ([]netipx.IPRange, error) {
	var b netipx.IPSetBuilder
	for _, p := range includes {
		b.AddPrefix(p)
	}
	for _, p := range excludes {
		b.RemovePrefix(p)
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, err
	}
	return set.Ranges(), nil
}
