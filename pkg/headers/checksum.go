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
	"net/netip"
)

// checksumAccumulate sums data as 16-bit big-endian words into the running
// one's complement accumulator.
func checksumAccumulate(data []byte, sum uint32) uint32 {
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if len(data)&1 != 0 {
		sum += uint32(data[len(data)-1]) << 8
	}
	return sum
}

// checksumFold folds the accumulator into the final 16-bit one's complement
// checksum.
func checksumFold(sum uint32) uint16 {
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}

// checksum computes the internet checksum over data with the given initial
// accumulator.
func checksum(data []byte, initial uint32) uint16 {
	return checksumFold(checksumAccumulate(data, initial))
}

// pseudoHeaderSum computes the pseudo-header contribution to a transport
// checksum: source and destination addresses, protocol, and upper layer
// length. Works for both families.
func pseudoHeaderSum(proto uint8, src, dst netip.Addr, length int) uint32 {
	var sum uint32
	srcb := src.AsSlice()
	dstb := dst.AsSlice()
	sum = checksumAccumulate(srcb, sum)
	sum = checksumAccumulate(dstb, sum)
	sum += uint32(proto)
	sum += uint32(length)
	return sum
}

// pseudoHeaderProvider is implemented by the network layers that transport
// checksums are computed against.
type pseudoHeaderProvider interface {
	pseudoHeaderSum(proto uint8, length int) uint32
}
