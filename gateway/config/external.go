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

package config

import (
	"net/netip"

	"gopkg.in/yaml.v2"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// ExternalConfig is the wire shape of the configuration: everything is
// strings so it can come from YAML, flags or an RPC without losing the
// original spelling in error messages.
type ExternalConfig struct {
	Device struct {
		Hostname string `yaml:"hostname"`
		Mtu      uint16 `yaml:"mtu"`
		Workers  int    `yaml:"workers"`
	} `yaml:"device"`
	Vtep *struct {
		IP  string `yaml:"ip"`
		Mac string `yaml:"mac"`
	} `yaml:"vtep,omitempty"`
	Vrfs     []ExternalVrf     `yaml:"vrfs,omitempty"`
	Vpcs     []ExternalVpc     `yaml:"vpcs,omitempty"`
	Peerings []ExternalPeering `yaml:"peerings,omitempty"`
}

// ExternalVrf mirrors VrfConfig with string-typed addresses.
type ExternalVrf struct {
	Name         string   `yaml:"name"`
	Default      bool     `yaml:"default"`
	TableId      uint32   `yaml:"tableid"`
	Vni          uint32   `yaml:"vni"`
	VpcId        string   `yaml:"vpc_id"`
	Subnets      []string `yaml:"subnets"`
	Interfaces   []string `yaml:"interfaces"`
	StaticRoutes []struct {
		Prefix    string `yaml:"prefix"`
		Via       string `yaml:"via"`
		Interface string `yaml:"interface"`
		Vni       uint32 `yaml:"vni"`
		Remote    string `yaml:"remote"`
		Blackhole bool   `yaml:"blackhole"`
	} `yaml:"static_routes"`
}

// ExternalVpc mirrors Vpc.
type ExternalVpc struct {
	Name       string   `yaml:"name"`
	Id         string   `yaml:"id"`
	Vni        uint32   `yaml:"vni"`
	Interfaces []string `yaml:"interfaces"`
}

// ExternalPeering mirrors VpcPeering.
type ExternalPeering struct {
	Name  string           `yaml:"name"`
	Left  ExternalManifest `yaml:"left"`
	Right ExternalManifest `yaml:"right"`
}

// ExternalManifest mirrors VpcManifest.
type ExternalManifest struct {
	Name    string `yaml:"name"`
	Exposes []struct {
		Ips     []string `yaml:"ips"`
		Nots    []string `yaml:"nots"`
		AsRange []string `yaml:"as_range"`
		NotAs   []string `yaml:"not_as"`
	} `yaml:"exposes"`
}

// ParseYAML decodes an external configuration document.
func ParseYAML(data []byte) (*ExternalConfig, error) {
	var e ExternalConfig
	if err := yaml.UnmarshalStrict(data, &e); err != nil {
		return nil, serrors.Wrap("decoding configuration", err)
	}
	return &e, nil
}

// Internal converts the external shape into the internal model and validates
// it. The returned config is ready to apply.
func (e *ExternalConfig) Internal() (*InternalConfig, error) {
	c := &InternalConfig{
		Device: DeviceConfig{
			Hostname: e.Device.Hostname,
			Mtu:      nettype.Mtu(e.Device.Mtu),
			Workers:  e.Device.Workers,
		},
		Vrfs: NewVrfConfigTable(),
	}
	if e.Vtep != nil {
		ip, err := netip.ParseAddr(e.Vtep.IP)
		if err != nil {
			return nil, serrors.Join(ErrMissingParameter, err, "parameter", "vtep ip")
		}
		mac, err := nettype.ParseMac(e.Vtep.Mac)
		if err != nil {
			return nil, serrors.Join(ErrMissingParameter, err, "parameter", "vtep mac")
		}
		c.Vtep = &VtepConfig{IP: ip, Mac: mac}
	}
	for _, ev := range e.Vrfs {
		v, err := ev.internal()
		if err != nil {
			return nil, err
		}
		if err := c.Vrfs.Add(v); err != nil {
			return nil, err
		}
	}
	for _, ev := range e.Vpcs {
		c.Vpcs = append(c.Vpcs, Vpc{
			Name:       ev.Name,
			Id:         VpcId(ev.Id),
			Vni:        nettype.Vni(ev.Vni),
			Interfaces: ev.Interfaces,
		})
	}
	for _, ep := range e.Peerings {
		p, err := ep.internal()
		if err != nil {
			return nil, err
		}
		c.Peerings = append(c.Peerings, p)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (ev *ExternalVrf) internal() (VrfConfig, error) {
	v := VrfConfig{
		Name:       ev.Name,
		Default:    ev.Default,
		TableId:    ev.TableId,
		Vni:        nettype.Vni(ev.Vni),
		VpcId:      VpcId(ev.VpcId),
		Interfaces: ev.Interfaces,
	}
	var err error
	if v.Subnets, err = parsePrefixes(ev.Subnets); err != nil {
		return VrfConfig{}, serrors.Join(err, nil, "vrf", ev.Name)
	}
	for _, er := range ev.StaticRoutes {
		r := StaticRoute{
			Ifname:    er.Interface,
			Vni:       nettype.Vni(er.Vni),
			Blackhole: er.Blackhole,
		}
		if r.Prefix, err = nettype.ParsePrefix(er.Prefix); err != nil {
			return VrfConfig{}, serrors.Join(err, nil, "vrf", ev.Name)
		}
		if er.Via != "" {
			if r.Via, err = netip.ParseAddr(er.Via); err != nil {
				return VrfConfig{}, serrors.Join(err, nil, "vrf", ev.Name)
			}
		}
		if er.Remote != "" {
			if r.Remote, err = netip.ParseAddr(er.Remote); err != nil {
				return VrfConfig{}, serrors.Join(err, nil, "vrf", ev.Name)
			}
		}
		v.StaticRoutes = append(v.StaticRoutes, r)
	}
	return v, nil
}

func (ep *ExternalPeering) internal() (VpcPeering, error) {
	left, err := ep.Left.internal()
	if err != nil {
		return VpcPeering{}, serrors.Join(err, nil, "peering", ep.Name)
	}
	right, err := ep.Right.internal()
	if err != nil {
		return VpcPeering{}, serrors.Join(err, nil, "peering", ep.Name)
	}
	return VpcPeering{Name: ep.Name, Left: left, Right: right}, nil
}

func (em *ExternalManifest) internal() (VpcManifest, error) {
	m := VpcManifest{Name: em.Name}
	for _, ee := range em.Exposes {
		var expose VpcExpose
		var err error
		if expose.Ips, err = parsePrefixes(ee.Ips); err != nil {
			return VpcManifest{}, err
		}
		if expose.Nots, err = parsePrefixes(ee.Nots); err != nil {
			return VpcManifest{}, err
		}
		if expose.AsRange, err = parsePrefixes(ee.AsRange); err != nil {
			return VpcManifest{}, err
		}
		if expose.NotAs, err = parsePrefixes(ee.NotAs); err != nil {
			return VpcManifest{}, err
		}
		m.Exposes = append(m.Exposes, expose)
	}
	return m, nil
}

func parsePrefixes(ss []string) ([]netip.Prefix, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	out := make([]netip.Prefix, 0, len(ss))
	for _, s := range ss {
		p, err := nettype.ParsePrefix(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
