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
	"github.com/opennetfabric/gateway/pkg/packet"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Translate applies the configured mappings to one packet: the source
// address translates under the source VPC's table, the destination address
// under the destination VPC's table. VPCs without NAT configuration pass
// through. The quoted headers of ICMP errors are rewritten alongside, so
// errors travelling back through the NAT keep referring to the flow the
// endpoint knows.
func (t *Tables) Translate(p *packet.Packet) error {
	if !p.Headers.IsIP() {
		return nil
	}
	if vpcd := p.Meta.SrcVpcd; vpcd.IsSet() {
		if tbl, ok := t.Get(vpcd.Vni()); ok {
			if m, ok := tbl.LookupSrc(p.Headers.SrcIP()); ok {
				if err := t.rewriteSrc(p, m); err != nil {
					return err
				}
			}
		}
	}
	if vpcd := p.Meta.DstVpcd; vpcd.IsSet() {
		if tbl, ok := t.Get(vpcd.Vni()); ok {
			if m, ok := tbl.LookupDst(p.Headers.DstIP()); ok {
				if err := t.rewriteDst(p, m); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (t *Tables) rewriteSrc(p *packet.Packet, m *Mapping) error {
	out, hit, err := m.Translate(p.Headers.SrcIP())
	if err != nil || !hit {
		return err
	}
	if err := p.Headers.SetSrcIP(out); err != nil {
		return serrors.Wrap("rewriting source", err)
	}
	// An ICMP error quotes the original packet of the opposite direction:
	// its destination is our source.
	if e := p.Headers.Embedded; e != nil {
		if err := e.SetDstIP(out); err != nil {
			return serrors.Wrap("rewriting quoted destination", err)
		}
	}
	return nil
}

func (t *Tables) rewriteDst(p *packet.Packet, m *Mapping) error {
	out, hit, err := m.Translate(p.Headers.DstIP())
	if err != nil || !hit {
		return err
	}
	if err := p.Headers.SetDstIP(out); err != nil {
		return serrors.Wrap("rewriting destination", err)
	}
	if e := p.Headers.Embedded; e != nil {
		if err := e.SetSrcIP(out); err != nil {
			return serrors.Wrap("rewriting quoted source", err)
		}
	}
	return nil
}
