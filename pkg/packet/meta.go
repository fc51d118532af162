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
	"github.com/opennetfabric/gateway/pkg/nettype"
)

// DropReason says why a packet was taken out of the pipeline. DropNone means
// the packet is still live.
type DropReason int

const (
	DropNone DropReason = iota
	DropInternalFailure
	DropNotEthernet
	DropNotIp
	DropMacNotForUs
	DropInterfaceDetached
	DropInterfaceAdmDown
	DropInterfaceOperDown
	DropInterfaceUnknown
	DropInterfaceUnsupported
	DropVrfUnknown
	DropNatOutOfResources
	DropRouteFailure
	DropTtlExpired
)

// DropReasons lists every real reason, for counter registration.
var DropReasons = []DropReason{
	DropInternalFailure,
	DropNotEthernet,
	DropNotIp,
	DropMacNotForUs,
	DropInterfaceDetached,
	DropInterfaceAdmDown,
	DropInterfaceOperDown,
	DropInterfaceUnknown,
	DropInterfaceUnsupported,
	DropVrfUnknown,
	DropNatOutOfResources,
	DropRouteFailure,
	DropTtlExpired,
}

func (r DropReason) String() string {
	switch r {
	case DropNone:
		return "none"
	case DropInternalFailure:
		return "internal_failure"
	case DropNotEthernet:
		return "not_ethernet"
	case DropNotIp:
		return "not_ip"
	case DropMacNotForUs:
		return "mac_not_for_us"
	case DropInterfaceDetached:
		return "interface_detached"
	case DropInterfaceAdmDown:
		return "interface_adm_down"
	case DropInterfaceOperDown:
		return "interface_oper_down"
	case DropInterfaceUnknown:
		return "interface_unknown"
	case DropInterfaceUnsupported:
		return "interface_unsupported"
	case DropVrfUnknown:
		return "vrf_unknown"
	case DropNatOutOfResources:
		return "nat_out_of_resources"
	case DropRouteFailure:
		return "route_failure"
	case DropTtlExpired:
		return "ttl_expired"
	}
	return "unknown"
}

// Meta is the per-packet metadata the pipeline stages read and write. Zero
// values mean unset throughout.
type Meta struct {
	// Iif and Oif are the ingress and egress interface indexes.
	Iif uint32
	Oif uint32
	// SrcVpcd and DstVpcd identify the source and destination VPCs once
	// the VNI lookups have run.
	SrcVpcd nettype.VpcDiscriminant
	DstVpcd nettype.VpcDiscriminant
	// Vrf is the routing table the packet is being forwarded in.
	Vrf nettype.VrfId
	// Bridge is the layer-2 domain for bridged traffic.
	Bridge nettype.BridgeDomain
	// Drop, when not DropNone, marks the packet dead. Stages skip dead
	// packets; the pipeline tail accounts and discards them.
	Drop DropReason
	// DropStage names the stage that killed the packet, for accounting.
	DropStage string
	// FlowInfo is an opaque per-flow record attached by stateful stages.
	FlowInfo any
}
