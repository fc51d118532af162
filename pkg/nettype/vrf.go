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

package nettype

import "fmt"

// VrfId identifies a VRF. Zero is reserved to mean "no VRF".
type VrfId uint32

func (v VrfId) IsSet() bool { return v != 0 }

func (v VrfId) String() string { return fmt.Sprintf("vrf-%d", uint32(v)) }

// BridgeDomain identifies a layer-2 bridge domain. Zero is reserved to mean
// "no bridge domain".
type BridgeDomain uint32

func (b BridgeDomain) IsSet() bool { return b != 0 }

// VpcDiscriminant identifies a VPC in packet metadata. On the wire it is the
// VPC's VNI. The zero value means "unknown VPC".
type VpcDiscriminant struct {
	vni Vni
}

// VpcdFromVni builds the discriminant for a VNI.
func VpcdFromVni(vni Vni) VpcDiscriminant {
	return VpcDiscriminant{vni: vni}
}

// Vni returns the underlying VNI.
func (d VpcDiscriminant) Vni() Vni { return d.vni }

// IsSet reports whether the discriminant identifies a VPC.
func (d VpcDiscriminant) IsSet() bool { return d.vni.IsValid() }

func (d VpcDiscriminant) String() string {
	if !d.IsSet() {
		return "vpcd-unset"
	}
	return fmt.Sprintf("vpcd-%d", uint32(d.vni))
}
