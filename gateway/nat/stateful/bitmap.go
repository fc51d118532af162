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
	"math/bits"

	"github.com/opennetfabric/gateway/pkg/nettype"
)

const (
	portWords = 1024
	// Ports 0 through nettype.ReservedPortMax are never handed out.
	usablePorts = portWords*64 - (nettype.ReservedPortMax + 1)
)

// portBitmap tracks which ports of one pool address are in use, one bit per
// port. Allocation scans word-wise from a rotating cursor so freed ports are
// not immediately reused.
type portBitmap struct {
	bits [portWords]uint64
	next uint16
	free int
}

func newPortBitmap() *portBitmap {
	b := &portBitmap{free: usablePorts, next: nettype.ReservedPortMax + 1}
	for p := 0; p <= nettype.ReservedPortMax; p++ {
		b.bits[p/64] |= 1 << (p % 64)
	}
	return b
}

// alloc returns the next free port, or false when every port is taken.
func (b *portBitmap) alloc() (uint16, bool) {
	if b.free == 0 {
		return 0, false
	}
	start := int(b.next) / 64
	for i := 0; i < portWords; i++ {
		w := (start + i) % portWords
		avail := ^b.bits[w]
		if avail == 0 {
			continue
		}
		bit := bits.TrailingZeros64(avail)
		port := uint16(w*64 + bit)
		b.bits[w] |= 1 << bit
		b.free--
		b.next = port + 1
		return port, true
	}
	return 0, false
}

func (b *portBitmap) release(port uint16) {
	if port <= nettype.ReservedPortMax {
		return
	}
	mask := uint64(1) << (port % 64)
	if b.bits[port/64]&mask != 0 {
		b.bits[port/64] &^= mask
		b.free++
	}
}
