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

package stateful

import (
	"net/netip"

	"go4.org/netipx"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Pool hands out (address, port) pairs from a set of target prefixes. Port
// bitmaps attach to an address the first time it is drawn on, so a large
// pool costs memory in proportion to the addresses actually in use.
type Pool struct {
	ranges   []netipx.IPRange
	attached []netip.Addr
	bitmaps  map[netip.Addr]*portBitmap
	cursor   int

	freshRange int
	freshNext  netip.Addr
}

// NewPool builds a pool over the given target prefixes.
func NewPool(targets []netip.Prefix) (*Pool, error) {
	if len(targets) == 0 {
		return nil, serrors.New("pool needs at least one prefix")
	}
	var b netipx.IPSetBuilder
	for _, p := range targets {
		b.AddPrefix(p)
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, serrors.Wrap("building pool address set", err)
	}
	ranges := set.Ranges()
	if len(ranges) == 0 {
		return nil, serrors.New("pool prefixes cover no addresses")
	}
	return &Pool{
		ranges:    ranges,
		bitmaps:   make(map[netip.Addr]*portBitmap),
		freshNext: ranges[0].From(),
	}, nil
}

// alloc returns a free (address, port) pair, or false when the pool is
// exhausted. Attached addresses are tried first, from a rotating cursor;
// only when all of them are full does a new address join the pool.
func (p *Pool) alloc() (netip.Addr, uint16, bool) {
	for i := 0; i < len(p.attached); i++ {
		idx := (p.cursor + i) % len(p.attached)
		addr := p.attached[idx]
		if port, ok := p.bitmaps[addr].alloc(); ok {
			p.cursor = idx
			return addr, port, true
		}
	}
	addr, ok := p.attach()
	if !ok {
		return netip.Addr{}, 0, false
	}
	port, ok := p.bitmaps[addr].alloc()
	if !ok {
		return netip.Addr{}, 0, false
	}
	p.cursor = len(p.attached) - 1
	return addr, port, true
}

func (p *Pool) attach() (netip.Addr, bool) {
	for p.freshRange < len(p.ranges) {
		r := p.ranges[p.freshRange]
		if !p.freshNext.IsValid() {
			p.freshNext = r.From()
		}
		if r.Contains(p.freshNext) {
			addr := p.freshNext
			p.freshNext = addr.Next()
			if addr == r.To() {
				p.freshRange++
				p.freshNext = netip.Addr{}
			}
			p.attached = append(p.attached, addr)
			p.bitmaps[addr] = newPortBitmap()
			return addr, true
		}
		p.freshRange++
		p.freshNext = netip.Addr{}
	}
	return netip.Addr{}, false
}

// release returns a port to the bitmap of its address.
func (p *Pool) release(addr netip.Addr, port uint16) {
	if bm, ok := p.bitmaps[addr]; ok {
		bm.release(port)
	}
}
