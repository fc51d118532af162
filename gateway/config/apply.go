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

	"github.com/opennetfabric/gateway/gateway/adjacency"
	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/gateway/vpcmap"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// Writers bundles the write sides of the published tables the configuration
// feeds.
type Writers struct {
	Interfaces *leftright.Writer[iftable.Table]
	Fibs       *leftright.Writer[routing.FibTable]
	Vpcs       *leftright.Writer[vpcmap.Map]
	Nat        *leftright.Writer[stateless.Tables]
}

// Apply builds the dataplane state from a validated configuration and
// publishes it. Everything is constructed before the first operation is
// appended, so a failing configuration changes nothing. The interface
// snapshot resolves interface names; the adjacency snapshot supplies the
// MACs for directly attached next-hops.
func Apply(c *InternalConfig, w Writers,
	ifaces *iftable.Table, adj *adjacency.Table) error {

	if err := c.Validate(); err != nil {
		return err
	}

	vrfs := effectiveVrfs(c)
	vrfIds := make(map[string]nettype.VrfId, len(vrfs))
	for i, v := range vrfs {
		vrfIds[v.Name] = nettype.VrfId(i + 1)
	}

	var fibs []*routing.Fib
	var attachments []struct {
		index uint32
		vrf   nettype.VrfId
	}
	for _, v := range vrfs {
		id := vrfIds[v.Name]
		rib := routing.NewVrf(v.Name, id)
		rib.TableId = v.TableId
		rib.Vni = v.Vni
		rib.VpcId = string(v.VpcId)
		for _, name := range v.Interfaces {
			ifc, ok := ifaces.GetByName(name)
			if !ok {
				return serrors.Join(ErrMissingParameter, nil,
					"parameter", "interface", "name", name, "vrf", v.Name)
			}
			attachments = append(attachments, struct {
				index uint32
				vrf   nettype.VrfId
			}{ifc.Index, id})
		}
		if err := addRoutes(rib, v, ifaces); err != nil {
			return err
		}
		fib := routing.Project(rib, adj)
		fibs = append(fibs, fib)
	}

	var published []vpcEntry
	nat := stateless.NewTables()
	byName := make(map[string]*Vpc, len(c.Vpcs))
	for i := range c.Vpcs {
		byName[c.Vpcs[i].Name] = &c.Vpcs[i]
	}
	for i := range c.Peerings {
		p := &c.Peerings[i]
		var err error
		if published, err = applyManifest(nat, published, byName, &p.Left); err != nil {
			return err
		}
		if published, err = applyManifest(nat, published, byName, &p.Right); err != nil {
			return err
		}
	}

	// Construction succeeded; commit each table in one publish.
	for _, a := range attachments {
		w.Interfaces.Append(iftable.Attach(a.index, a.vrf))
	}
	w.Interfaces.Publish()

	for i, fib := range fibs {
		w.Fibs.Append(routing.AddFib(fib))
		if vni := vrfs[i].Vni; vni.IsValid() {
			w.Fibs.Append(routing.RegisterByVni(fib.Id(), vni))
		}
	}
	w.Fibs.Publish()

	for _, e := range published {
		w.Vpcs.Append(vpcmap.Set(e.prefix, e.vpcd))
	}
	w.Vpcs.Publish()

	w.Nat.Append(stateless.Update(nat))
	w.Nat.Publish()
	return nil
}

// effectiveVrfs is the configured VRFs plus one derived VRF per VPC.
func effectiveVrfs(c *InternalConfig) []VrfConfig {
	out := append([]VrfConfig(nil), c.Vrfs.All()...)
	for _, vpc := range c.Vpcs {
		out = append(out, VrfConfig{
			Name:       vpc.Id.VrfName(),
			Vni:        vpc.Vni,
			VpcId:      vpc.Id,
			Interfaces: vpc.Interfaces,
		})
	}
	return out
}

func addRoutes(rib *routing.Vrf, v VrfConfig, ifaces *iftable.Table) error {
	connectedIf := uint32(0)
	if len(v.Interfaces) > 0 {
		if ifc, ok := ifaces.GetByName(v.Interfaces[0]); ok {
			connectedIf = ifc.Index
		}
	}
	for _, subnet := range v.Subnets {
		if connectedIf == 0 {
			continue
		}
		err := rib.AddRoute(subnet, routing.RouteConnected, 0, 0,
			routing.NhopKey{Ifindex: connectedIf})
		if err != nil {
			return serrors.Join(ErrInternalFailure, err, "vrf", v.Name)
		}
	}
	for _, r := range v.StaticRoutes {
		key, err := nhopKeyFor(r, ifaces)
		if err != nil {
			return serrors.Join(err, nil, "vrf", v.Name)
		}
		if err := rib.AddRoute(r.Prefix, routing.RouteStatic, 1, 0, key); err != nil {
			return serrors.Join(ErrInternalFailure, err, "vrf", v.Name)
		}
	}
	return nil
}

func nhopKeyFor(r StaticRoute, ifaces *iftable.Table) (routing.NhopKey, error) {
	if r.Blackhole {
		return routing.NhopKey{Action: routing.ActionDrop}, nil
	}
	key := routing.NhopKey{Addr: r.Via}
	if r.Vni.IsValid() {
		if !r.Remote.IsValid() {
			return routing.NhopKey{}, serrors.Join(ErrMissingParameter, nil,
				"parameter", "static route remote", "prefix", r.Prefix)
		}
		key.Addr = r.Remote
		key.Encap = routing.VxlanEncap(r.Vni, r.Remote)
		return key, nil
	}
	if r.Ifname != "" {
		ifc, ok := ifaces.GetByName(r.Ifname)
		if !ok {
			return routing.NhopKey{}, serrors.Join(ErrMissingParameter, nil,
				"parameter", "static route interface", "name", r.Ifname)
		}
		key.Ifindex = ifc.Index
	}
	if !key.Addr.IsValid() && key.Ifindex == 0 {
		return routing.NhopKey{}, serrors.Join(ErrMissingParameter, nil,
			"parameter", "static route next hop", "prefix", r.Prefix)
	}
	return key, nil
}

type vpcEntry struct {
	prefix netip.Prefix
	vpcd   nettype.VpcDiscriminant
}

// applyManifest installs what one side of a peering exposes: the published
// prefixes map to the exposing VPC in the VPC map, and translated exposes
// add the forward mapping to the VPC's source NAT trie plus the reverse
// mapping to its destination trie for return traffic.
func applyManifest(nat *stateless.Tables, entries []vpcEntry,
	byName map[string]*Vpc, m *VpcManifest) ([]vpcEntry, error) {

	vpc := byName[m.Name]
	vpcd := nettype.VpcdFromVni(vpc.Vni)
	tbl := stateless.NewPerVniTable()
	translated := false
	for i := range m.Exposes {
		e := &m.Exposes[i]
		published := e.Ips
		if e.Translated() {
			published = e.AsRange
		}
		for _, p := range published {
			entries = append(entries, vpcEntry{prefix: p, vpcd: vpcd})
		}
		if !e.Translated() {
			continue
		}
		fwd, err := stateless.NewMapping(e.Ips, e.Nots, e.AsRange, e.NotAs)
		if err != nil {
			return nil, serrors.Join(ErrInternalFailure, err, "vpc", m.Name)
		}
		rev, err := stateless.NewMapping(e.AsRange, e.NotAs, e.Ips, e.Nots)
		if err != nil {
			return nil, serrors.Join(ErrInternalFailure, err, "vpc", m.Name)
		}
		tbl.AddSrcMapping(fwd, e.Ips)
		tbl.AddDstMapping(rev, e.AsRange)
		translated = true
	}
	if translated {
		nat.Install(vpc.Vni, tbl)
	}
	return entries, nil
}
