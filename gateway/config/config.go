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

// Package config holds the gateway's internal configuration model: the
// device, the VTEP, VRFs, VPCs and their peerings. External configuration is
// parsed into this tree, validated as a whole, and only then applied to the
// published tables; a failed validation commits nothing.
package config

import (
	"net/netip"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// DeviceConfig is the per-box configuration.
type DeviceConfig struct {
	Hostname string      `yaml:"hostname"`
	Mtu      nettype.Mtu `yaml:"mtu,omitempty"`
	Workers  int         `yaml:"workers,omitempty"`
}

// VtepConfig is the local VXLAN tunnel endpoint.
type VtepConfig struct {
	IP  netip.Addr  `yaml:"ip"`
	Mac nettype.Mac `yaml:"mac"`
}

// StaticRoute is one route of a VRF.
type StaticRoute struct {
	Prefix    netip.Prefix `yaml:"prefix"`
	Via       netip.Addr   `yaml:"via,omitempty"`
	Ifname    string       `yaml:"interface,omitempty"`
	Vni       nettype.Vni  `yaml:"vni,omitempty"`
	Remote    netip.Addr   `yaml:"remote,omitempty"`
	Blackhole bool         `yaml:"blackhole,omitempty"`
}

// VrfConfig describes one routing table.
type VrfConfig struct {
	Name         string         `yaml:"name"`
	Default      bool           `yaml:"default,omitempty"`
	TableId      uint32         `yaml:"tableid,omitempty"`
	Vni          nettype.Vni    `yaml:"vni,omitempty"`
	VpcId        VpcId          `yaml:"vpc_id,omitempty"`
	Subnets      []netip.Prefix `yaml:"subnets,omitempty"`
	StaticRoutes []StaticRoute  `yaml:"static_routes,omitempty"`
	Interfaces   []string       `yaml:"interfaces,omitempty"`
}

// VrfConfigTable indexes VRFs by name, table id, VNI and VPC id, enforcing
// uniqueness of each. The default VRF carries none of the optional indices
// and is unique by itself.
type VrfConfigTable struct {
	vrfs       []VrfConfig
	byName     map[string]int
	byTableId  map[uint32]int
	byVni      map[nettype.Vni]int
	byVpcId    map[VpcId]int
	hasDefault bool
}

// NewVrfConfigTable returns an empty table.
func NewVrfConfigTable() *VrfConfigTable {
	return &VrfConfigTable{
		byName:    make(map[string]int),
		byTableId: make(map[uint32]int),
		byVni:     make(map[nettype.Vni]int),
		byVpcId:   make(map[VpcId]int),
	}
}

// Add validates the VRF against the table's unique indices and inserts it.
func (t *VrfConfigTable) Add(v VrfConfig) error {
	if v.Name == "" {
		return serrors.Join(ErrMissingParameter, nil, "parameter", "vrf name")
	}
	if _, ok := t.byName[v.Name]; ok {
		return serrors.Join(ErrTooManyInstances, nil, "index", "name", "name", v.Name)
	}
	if v.Default {
		if t.hasDefault {
			return serrors.Join(ErrTooManyInstances, nil, "index", "default")
		}
	} else {
		if v.TableId != 0 {
			if _, ok := t.byTableId[v.TableId]; ok {
				return serrors.Join(ErrTooManyInstances, nil,
					"index", "tableid", "tableid", v.TableId)
			}
		}
		if v.Vni != 0 {
			if !v.Vni.IsValid() {
				return serrors.Join(ErrInvalidVpcVni, nil, "vni", uint32(v.Vni))
			}
			if _, ok := t.byVni[v.Vni]; ok {
				return serrors.Join(ErrTooManyInstances, nil, "index", "vni", "vni", v.Vni)
			}
		}
		if v.VpcId != "" {
			if _, ok := t.byVpcId[v.VpcId]; ok {
				return serrors.Join(ErrTooManyInstances, nil,
					"index", "vpc_id", "vpc_id", string(v.VpcId))
			}
		}
	}
	idx := len(t.vrfs)
	t.vrfs = append(t.vrfs, v)
	t.byName[v.Name] = idx
	if v.Default {
		t.hasDefault = true
		return nil
	}
	if v.TableId != 0 {
		t.byTableId[v.TableId] = idx
	}
	if v.Vni != 0 {
		t.byVni[v.Vni] = idx
	}
	if v.VpcId != "" {
		t.byVpcId[v.VpcId] = idx
	}
	return nil
}

// ByName returns the VRF with the given name.
func (t *VrfConfigTable) ByName(name string) (VrfConfig, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return VrfConfig{}, false
	}
	return t.vrfs[idx], true
}

// ByVni returns the VRF attached to the given VNI.
func (t *VrfConfigTable) ByVni(vni nettype.Vni) (VrfConfig, bool) {
	idx, ok := t.byVni[vni]
	if !ok {
		return VrfConfig{}, false
	}
	return t.vrfs[idx], true
}

// All returns the VRFs in insertion order.
func (t *VrfConfigTable) All() []VrfConfig {
	return t.vrfs
}

// Len reports the number of VRFs.
func (t *VrfConfigTable) Len() int {
	return len(t.vrfs)
}

// InternalConfig is the root of the configuration tree.
type InternalConfig struct {
	Device   DeviceConfig
	Vtep     *VtepConfig
	Vrfs     *VrfConfigTable
	Vpcs     []Vpc
	Peerings []VpcPeering
}

// Validate checks the whole tree. VRF uniqueness is enforced while the table
// is built; this adds the VPC, peering and cross-object rules.
func (c *InternalConfig) Validate() error {
	if c.Device.Mtu != 0 {
		if _, err := nettype.NewMtu(uint16(c.Device.Mtu)); err != nil {
			return serrors.Join(ErrBadMtu, err, "mtu", uint16(c.Device.Mtu))
		}
	}
	byName := make(map[string]*Vpc, len(c.Vpcs))
	byId := make(map[VpcId]bool, len(c.Vpcs))
	byVni := make(map[nettype.Vni]bool, len(c.Vpcs))
	for i := range c.Vpcs {
		vpc := &c.Vpcs[i]
		if err := vpc.Validate(); err != nil {
			return err
		}
		if _, ok := byName[vpc.Name]; ok {
			return serrors.Join(ErrDuplicateVpcName, nil, "name", vpc.Name)
		}
		if byId[vpc.Id] {
			return serrors.Join(ErrDuplicateVpcId, nil, "id", string(vpc.Id))
		}
		if byVni[vpc.Vni] {
			return serrors.Join(ErrDuplicateVpcVni, nil, "vni", vpc.Vni)
		}
		byName[vpc.Name] = vpc
		byId[vpc.Id] = true
		byVni[vpc.Vni] = true
	}
	peeringNames := make(map[string]bool, len(c.Peerings))
	for i := range c.Peerings {
		peering := &c.Peerings[i]
		if peeringNames[peering.Name] {
			return serrors.Join(ErrDuplicateVpcPeeringId, nil, "name", peering.Name)
		}
		peeringNames[peering.Name] = true
		if err := peering.Validate(byName); err != nil {
			return err
		}
	}
	if len(c.Vpcs) > 0 && c.Vtep == nil {
		return serrors.Join(ErrMissingParameter, nil, "parameter", "vtep")
	}
	return nil
}
