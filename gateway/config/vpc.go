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
	"math/big"
	"net/netip"

	"go4.org/netipx"

	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// VpcId identifies a VPC. Ids generate the names of the derived objects, so
// they are restricted to lowercase alphanumerics and dashes.
type VpcId string

// Valid reports whether the id is usable.
func (id VpcId) Valid() bool {
	if len(id) == 0 || len(id) > 16 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// VrfName is the name of the VRF derived from this VPC.
func (id VpcId) VrfName() string { return string(id) + "-vrf" }

// BridgeName is the name of the bridge derived from this VPC.
func (id VpcId) BridgeName() string { return string(id) + "-bri" }

// VtepName is the name of the VTEP derived from this VPC.
func (id VpcId) VtepName() string { return string(id) + "-vtp" }

// Vpc is one tenant network.
type Vpc struct {
	Name       string      `yaml:"name"`
	Id         VpcId       `yaml:"id"`
	Vni        nettype.Vni `yaml:"vni"`
	Interfaces []string    `yaml:"interfaces,omitempty"`
}

// Validate checks the VPC's own fields; uniqueness across VPCs is checked by
// InternalConfig.Validate.
func (v *Vpc) Validate() error {
	if v.Name == "" {
		return serrors.Join(ErrMissingParameter, nil, "parameter", "vpc name")
	}
	if !v.Id.Valid() {
		return serrors.Join(ErrMissingParameter, nil,
			"parameter", "vpc id", "id", string(v.Id))
	}
	if _, err := nettype.NewVni(uint32(v.Vni)); err != nil {
		return serrors.Join(ErrInvalidVpcVni, err, "vpc", v.Name)
	}
	return nil
}

// VpcExpose pairs a set of private prefixes with the public range they are
// translated to when crossing a peering.
type VpcExpose struct {
	Ips     []netip.Prefix `yaml:"ips"`
	Nots    []netip.Prefix `yaml:"nots,omitempty"`
	AsRange []netip.Prefix `yaml:"as_range,omitempty"`
	NotAs   []netip.Prefix `yaml:"not_as,omitempty"`
}

// Translated reports whether the expose rewrites addresses at all. An
// expose without an as_range publishes its prefixes unchanged.
func (e *VpcExpose) Translated() bool {
	return len(e.AsRange) > 0
}

// Validate enforces the expose invariants: non-overlapping includes, every
// exclude inside an include, something left after exclusion, one address
// family throughout, and matching cardinality between the private and
// public sides.
func (e *VpcExpose) Validate() error {
	if len(e.Ips) == 0 {
		return serrors.Join(ErrMissingParameter, nil, "parameter", "expose ips")
	}
	if err := checkSide(e.Ips, e.Nots); err != nil {
		return err
	}
	if !e.Translated() {
		if len(e.NotAs) > 0 {
			return serrors.Join(ErrMissingParameter, nil, "parameter", "expose as_range")
		}
		return nil
	}
	if err := checkSide(e.AsRange, e.NotAs); err != nil {
		return err
	}
	if family(e.Ips[0]) != family(e.AsRange[0]) {
		return serrors.Join(ErrInconsistentIpVersion, nil,
			"ips", e.Ips[0], "as_range", e.AsRange[0])
	}
	if prefixCount(e.Ips).Cmp(prefixCount(e.AsRange)) != 0 {
		return serrors.Join(ErrMismatchedPrefixSizes, nil,
			"ips", e.Ips, "as_range", e.AsRange)
	}
	return nil
}

func checkSide(includes, excludes []netip.Prefix) error {
	fam := family(includes[0])
	for _, p := range includes {
		if family(p) != fam {
			return serrors.Join(ErrInconsistentIpVersion, nil, "prefix", p)
		}
	}
	for i, p := range includes {
		for _, q := range includes[i+1:] {
			if p.Overlaps(q) {
				return serrors.Join(ErrOverlappingPrefixes, nil, "a", p, "b", q)
			}
		}
	}
	for _, x := range excludes {
		if family(x) != fam {
			return serrors.Join(ErrInconsistentIpVersion, nil, "prefix", x)
		}
		inside := false
		for _, p := range includes {
			if p.Contains(x.Addr()) && p.Bits() <= x.Bits() {
				inside = true
				break
			}
		}
		if !inside {
			return serrors.Join(ErrOutOfRangeExclusionPrefix, nil, "prefix", x)
		}
	}
	var b netipx.IPSetBuilder
	for _, p := range includes {
		b.AddPrefix(p)
	}
	for _, x := range excludes {
		b.RemovePrefix(x)
	}
	set, err := b.IPSet()
	if err != nil {
		return serrors.Join(ErrInternalFailure, err)
	}
	if len(set.Ranges()) == 0 {
		return serrors.Join(ErrExcludedAllPrefixes, nil, "includes", includes)
	}
	return nil
}

func family(p netip.Prefix) int {
	if p.Addr().Is4() {
		return 4
	}
	return 6
}

// prefixCount is the pre-exclusion address count of a prefix list. The
// carved sides may shrink unevenly; equality is defined on the declared
// ranges.
func prefixCount(prefixes []netip.Prefix) *big.Int {
	total := new(big.Int)
	one := big.NewInt(1)
	for _, p := range prefixes {
		span := new(big.Int).Lsh(one, uint(p.Addr().BitLen()-p.Bits()))
		total.Add(total, span)
	}
	return total
}

// VpcManifest is one side of a peering: the VPC it belongs to and what that
// VPC exposes to the other side.
type VpcManifest struct {
	Name    string      `yaml:"name"`
	Exposes []VpcExpose `yaml:"exposes,omitempty"`
}

// Validate checks the manifest refers to a known VPC and all exposes hold.
func (m *VpcManifest) Validate(vpcs map[string]*Vpc) error {
	if _, ok := vpcs[m.Name]; !ok {
		return serrors.Join(ErrNoSuchVpc, nil, "name", m.Name)
	}
	for i := range m.Exposes {
		if err := m.Exposes[i].Validate(); err != nil {
			return serrors.Join(err, nil, "vpc", m.Name)
		}
	}
	return nil
}

// VpcPeering connects two VPCs through their manifests.
type VpcPeering struct {
	Name  string      `yaml:"name"`
	Left  VpcManifest `yaml:"left"`
	Right VpcManifest `yaml:"right"`
}

// Validate checks both manifests.
func (p *VpcPeering) Validate(vpcs map[string]*Vpc) error {
	if p.Name == "" {
		return serrors.Join(ErrMissingParameter, nil, "parameter", "peering name")
	}
	if err := p.Left.Validate(vpcs); err != nil {
		return serrors.Join(err, nil, "peering", p.Name)
	}
	if err := p.Right.Validate(vpcs); err != nil {
		return serrors.Join(err, nil, "peering", p.Name)
	}
	return nil
}
