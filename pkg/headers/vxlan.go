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
	"fmt"

	"github.com/gopacket/gopacket"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

const (
	// vxlanLen is the length of the VXLAN header.
	vxlanLen = 8
	// vxlanFlagVNI marks the VNI field as valid. RFC 7348 requires it set.
	vxlanFlagVNI = 0x08
)

// VXLAN is a VXLAN header (RFC 7348). Only the I flag may be set; a frame
// with any reserved bit set or the I flag clear is rejected on decode.
type VXLAN struct {
	BaseLayer
	Vni nettype.Vni
}

func (v *VXLAN) LayerType() gopacket.LayerType {
	return LayerTypeVXLAN
}

func (v *VXLAN) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < vxlanLen {
		df.SetTruncated()
		return serrors.Join(ErrTruncated, nil, "header", "vxlan",
			"expected", vxlanLen, "actual", len(data))
	}
	if data[0] != vxlanFlagVNI {
		return serrors.Join(ErrInvalid, nil, "header", "vxlan",
			"reason", "bad flags", "flags", data[0])
	}
	if data[1] != 0 || data[2] != 0 || data[3] != 0 || data[7] != 0 {
		return serrors.Join(ErrInvalid, nil, "header", "vxlan",
			"reason", "reserved bits set")
	}
	raw := uint32(data[4])<<16 | uint32(data[5])<<8 | uint32(data[6])
	vni, err := nettype.NewVni(raw)
	if err != nil {
		return serrors.Join(ErrInvalid, err, "header", "vxlan")
	}
	v.Vni = vni
	v.BaseLayer = BaseLayer{Contents: data[:vxlanLen], Payload: data[vxlanLen:]}
	return nil
}

func (v *VXLAN) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	bytes, err := b.PrependBytes(vxlanLen)
	if err != nil {
		return err
	}
	clear(bytes)
	bytes[0] = vxlanFlagVNI
	raw := uint32(v.Vni)
	bytes[4] = byte(raw >> 16)
	bytes[5] = byte(raw >> 8)
	bytes[6] = byte(raw)
	return nil
}

func (v *VXLAN) String() string {
	return fmt.Sprintf("VNI=%d", v.Vni)
}
