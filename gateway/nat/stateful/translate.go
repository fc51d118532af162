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
	"errors"

	"github.com/opennetfabric/gateway/pkg/packet"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

var (
	// ErrNoPool means no NAT pool covers the flow's source in its VRF.
	ErrNoPool = serrors.New("no nat pool for flow")
	// ErrNoResources means every pool address has every port in use.
	ErrNoResources = serrors.New("nat pool exhausted")
)

// Translate rewrites the packet from its flow's session, creating the
// session on the first packet. Packets outside any configured pool, or
// without a VRF or IP header, pass through untouched. ErrNoResources is
// returned when a new flow cannot be allocated a target.
func (t *Table) Translate(p *packet.Packet) error {
	if !p.Meta.Vrf.IsSet() || !p.Headers.IsIP() {
		return nil
	}
	key := Tuple{
		Src:     p.Headers.SrcIP(),
		Dst:     p.Headers.DstIP(),
		SrcPort: p.Headers.SrcPort(),
		DstPort: p.Headers.DstPort(),
		Proto:   p.Headers.Protocol(),
		Vrf:     p.Meta.Vrf,
	}

	if s, ok := t.Lookup(key); ok {
		return t.applyForward(p, s)
	}
	if s, ok := t.LookupReverse(key); ok {
		return t.applyReverse(p, s)
	}

	s, err := t.CreateSession(key)
	if errors.Is(err, ErrNoPool) {
		return nil
	}
	if err != nil {
		return err
	}
	return t.applyForward(p, s)
}

func (t *Table) applyForward(p *packet.Packet, s *Session) error {
	if err := p.Headers.SetSrcIP(s.TargetSrc); err != nil {
		return err
	}
	if s.TargetSrcPort != 0 && p.Headers.SrcPort() != 0 {
		if err := p.Headers.SetSrcPort(s.TargetSrcPort); err != nil {
			return err
		}
	}
	if s.TargetDstPort != 0 && p.Headers.DstPort() != 0 {
		if err := p.Headers.SetDstPort(s.TargetDstPort); err != nil {
			return err
		}
	}
	t.touch(p, s)
	return nil
}

func (t *Table) applyReverse(p *packet.Packet, s *Session) error {
	if err := p.Headers.SetDstIP(s.Tuple.Src); err != nil {
		return err
	}
	if s.Tuple.SrcPort != 0 && p.Headers.DstPort() != 0 {
		if err := p.Headers.SetDstPort(s.Tuple.SrcPort); err != nil {
			return err
		}
	}
	t.touch(p, s)
	return nil
}

func (t *Table) touch(p *packet.Packet, s *Session) {
	s.Packets++
	s.Bytes += uint64(len(p.Frame()))
	s.LastUsed = t.now()
}
