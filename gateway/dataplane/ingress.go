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
	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// Ingress admits packets into the pipeline. It verifies the receive
// interface is known and forwarding, that the frame is addressed to us, and
// stamps the packet with the interface's VRF. Frames arriving on a VTEP are
// decapsulated, the VXLAN VNI becoming the packet's source VPC.
func Ingress(ifaces *leftright.Reader[iftable.Table]) pipeline.Stage {
	return pipeline.Transform("ingress", func(p *packet.Packet) {
		tbl := ifaces.Guard()
		ifc, ok := tbl.Get(p.Meta.Iif)
		if !ok {
			p.Drop(packet.DropInterfaceUnknown)
			return
		}
		if ifc.Kind == iftable.KindUnsupported {
			p.Drop(packet.DropInterfaceUnsupported)
			return
		}
		if ifc.Admin != iftable.AdminUp {
			p.Drop(packet.DropInterfaceAdmDown)
			return
		}
		if ifc.Oper != iftable.OperUp {
			p.Drop(packet.DropInterfaceOperDown)
			return
		}
		if p.Headers.Eth == nil {
			p.Drop(packet.DropNotEthernet)
			return
		}
		dmac := p.Headers.Eth.DstMAC
		if !dmac.IsBroadcast() && !dmac.IsMulticast() && dmac != ifc.Mac {
			p.Drop(packet.DropMacNotForUs)
			return
		}
		if ifc.Kind == iftable.KindVtep && p.Headers.Vxlan != nil && p.Headers.Inner != nil {
			p.Meta.SrcVpcd = nettype.VpcdFromVni(p.Headers.Vxlan.Vni)
			p.Headers = p.Headers.Inner
		}
		if !p.Headers.IsIP() {
			p.Drop(packet.DropNotIp)
			return
		}
		if !ifc.Vrf.IsSet() {
			p.Drop(packet.DropInterfaceDetached)
			return
		}
		p.Meta.Vrf = ifc.Vrf
	})
}
