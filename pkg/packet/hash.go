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

package packet

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashInRange hashes the packet's flow tuple onto the inclusive range
// [first, last]. Used for ECMP member selection; equal tuples land on equal
// members as long as the range is stable.
func (p *Packet) HashInRange(first, last uint64) uint64 {
	if last <= first {
		return first
	}
	h := p.flowHash()
	return first + h%(last-first+1)
}

func (p *Packet) flowHash() uint64 {
	var d xxhash.Digest
	d.Reset()
	if src := p.Headers.SrcIP(); src.IsValid() {
		b := src.As16()
		d.Write(b[:])
	}
	if dst := p.Headers.DstIP(); dst.IsValid() {
		b := dst.As16()
		d.Write(b[:])
	}
	d.Write([]byte{p.Headers.Protocol()})
	var ports [4]byte
	binary.BigEndian.PutUint16(ports[0:2], p.Headers.SrcPort())
	binary.BigEndian.PutUint16(ports[2:4], p.Headers.DstPort())
	d.Write(ports[:])
	return d.Sum64()
}
