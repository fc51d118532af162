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

package dataplane

import (
	"errors"
	"net/netip"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/gateway/vpcmap"
	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// Vtep identifies the local VXLAN tunnel endpoint used as the outer source
// of encapsulated frames.
type Vtep struct {
	IP  netip.Addr
	Mac nettype.Mac
}

// IsSet reports whether the endpoint is configured.
func (v Vtep) IsSet() bool {
	return v.IP.IsValid()
}

type forwardCfg struct {
	finalize bool
	vtep     Vtep
}

// ForwardOption configures an IpForward stage.
type ForwardOption func(*forwardCfg)

// WithFinalize makes the stage commit its routing decision to the frame:
// decrement the hop limit, set the egress interface and destination MAC and
// apply the path's encapsulation, tunneling towards the given local
// endpoint. Without it the stage only verifies the destination is routable.
// The pipeline routes twice; only the pass after NAT finalizes, so a packet
// crossing the gateway loses exactly one hop.
func WithFinalize(vtep Vtep) ForwardOption {
	return func(c *forwardCfg) {
		c.finalize = true
		c.vtep = vtep
	}
}

// IpForward routes packets: it picks the FIB for the packet's destination
// VPC, or its VRF when no VPC is known, and longest-prefix-matches the
// destination. Multi-path groups are balanced by flow hash so one flow
// always takes one path.
func IpForward(name string, fibs *leftright.Reader[routing.FibTable], opts ...ForwardOption) pipeline.Stage {
	cfg := forwardCfg{}
	for _, o := range opts {
		o(&cfg)
	}
	return pipeline.Transform(name, func(p *packet.Packet) {
		if !p.Headers.IsIP() {
			p.Drop(packet.DropNotIp)
			return
		}
		fib, ok := fibFor(fibs.Guard(), p)
		if !ok {
			p.Drop(packet.DropVrfUnknown)
			return
		}
		group, ok := fib.Lookup(p.Headers.DstIP())
		if !ok || group.Empty() {
			p.Drop(packet.DropRouteFailure)
			return
		}
		entry := group.Entries[p.HashInRange(0, uint64(len(group.Entries)-1))]
		if entry.Action != routing.ActionForward {
			p.Drop(packet.DropRouteFailure)
			return
		}
		if !cfg.finalize {
			return
		}
		if err := p.Headers.DecrementTTL(); err != nil {
			if errors.Is(err, headers.ErrTTLExpired) {
				p.Drop(packet.DropTtlExpired)
			} else {
				p.Drop(packet.DropInternalFailure)
			}
			return
		}
		p.Meta.Oif = entry.Ifindex
		if p.Headers.Eth != nil {
			p.Headers.Eth.DstMAC = entry.Dmac
		}
		if entry.Encap.Kind == routing.EncapVxlan {
			encapsulate(p, entry, cfg.vtep)
		}
	})
}

func fibFor(tbl *routing.FibTable, p *packet.Packet) (*routing.Fib, bool) {
	if p.Meta.DstVpcd.IsSet() {
		if fib, ok := tbl.GetByVni(p.Meta.DstVpcd.Vni()); ok {
			return fib, true
		}
	}
	if !p.Meta.Vrf.IsSet() {
		return nil, false
	}
	return tbl.Get(routing.FibIdFromId(uint32(p.Meta.Vrf)))
}

// encapsulate wraps the current frame in Ethernet/IP/UDP/VXLAN towards the
// route's remote endpoint. The path's Dmac addresses the underlay next hop;
// the inner destination comes from the encapsulation when it carries one.
func encapsulate(p *packet.Packet, entry routing.FibEntry, vtep Vtep) {
	if !vtep.IsSet() {
		p.Drop(packet.DropInternalFailure)
		return
	}
	inner := p.Headers
	if entry.Encap.HasDmac && inner.Eth != nil {
		inner.Eth.DstMAC = entry.Encap.Dmac
	}
	outer := &headers.Headers{
		Eth: &headers.Ethernet{
			SrcMAC:       vtep.Mac,
			DstMAC:       entry.Dmac,
			EthernetType: headers.EtherTypeIPv4,
		},
		UDP: &headers.UDP{
			SrcPort: uint16(p.HashInRange(49152, 65535)),
			DstPort: headers.VXLANPort,
		},
		Vxlan: &headers.VXLAN{Vni: entry.Encap.Vni},
		Inner: inner,
	}
	remote := entry.Encap.Remote
	switch {
	case remote.Is4():
		outer.IPv4 = &headers.IPv4{
			TTL:      64,
			Protocol: headers.ProtoUDP,
			SrcIP:    vtep.IP,
			DstIP:    remote,
		}
	case remote.Is6():
		outer.Eth.EthernetType = headers.EtherTypeIPv6
		outer.IPv6 = &headers.IPv6{
			HopLimit:   64,
			NextHeader: headers.ProtoUDP,
			SrcIP:      vtep.IP,
			DstIP:      remote,
		}
	default:
		p.Drop(packet.DropInternalFailure)
		return
	}
	p.Headers = outer
}

// DstVniLookup maps the destination address to its VPC, steering the second
// forwarding pass and the NAT stages. Unknown destinations stay local to the
// packet's VRF.
func DstVniLookup(vpcs *leftright.Reader[vpcmap.Map]) pipeline.Stage {
	return pipeline.Transform("dst-vni-lookup", func(p *packet.Packet) {
		if !p.Headers.IsIP() {
			return
		}
		if vpcd, ok := vpcs.Guard().Lookup(p.Headers.DstIP()); ok {
			p.Meta.DstVpcd = vpcd
		}
	})
}
