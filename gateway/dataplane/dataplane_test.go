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

package dataplane_test

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/opennetfabric/gateway/gateway/dataplane"
	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/nat/stateful"
	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/gateway/vpcmap"
	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	macIn   = nettype.MustParseMac("02:00:00:00:00:0a")
	macOut  = nettype.MustParseMac("02:00:00:00:00:0b")
	macNhop = nettype.MustParseMac("02:00:00:00:00:0c")
)

type fixture struct {
	tables  dataplane.Tables
	ifaces  *leftright.Writer[iftable.Table]
	fibs    *leftright.Writer[routing.FibTable]
	vpcs    *leftright.Writer[vpcmap.Map]
	nat     *leftright.Writer[stateless.Tables]
	metrics *dataplane.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{metrics: dataplane.NewMetrics(prometheus.NewRegistry())}
	f.ifaces, f.tables.Interfaces = iftable.New()
	f.fibs, f.tables.Fibs = routing.NewTable()
	f.vpcs, f.tables.Vpcs = vpcmap.New()
	f.nat, f.tables.Nat = stateless.New()

	f.ifaces.Append(
		iftable.Add(iftable.Interface{
			Index: 1, Name: "eth0", Mac: macIn,
			Admin: iftable.AdminUp, Oper: iftable.OperUp,
			Vrf: nettype.VrfId(10),
		}),
		iftable.Add(iftable.Interface{
			Index: 2, Name: "eth1", Mac: macOut,
			Admin: iftable.AdminUp, Oper: iftable.OperUp,
			Vrf: nettype.VrfId(10),
		}),
	)
	f.ifaces.Publish()
	f.nat.Publish()
	f.vpcs.Publish()
	return f
}

func (f *fixture) installFib(t *testing.T, entries []routing.FibEntry) {
	t.Helper()
	fib := routing.NewFib(routing.FibIdFromId(10))
	fib.Insert(netip.MustParsePrefix("192.0.2.0/24"), entries)
	f.fibs.Append(routing.AddFib(fib))
	f.fibs.Publish()
}

func (f *fixture) run(t *testing.T, vtep dataplane.Vtep, pkts ...*packet.Packet) []*packet.Packet {
	t.Helper()
	pl := dataplane.NewPipeline(f.tables, vtep, stateful.NewTable(), f.metrics)
	return pipeline.Collect(pl.Process(pipeline.FromSlice(pkts)))
}

func inbound(t *testing.T, dst string, ttl uint8) *packet.Packet {
	t.Helper()
	h := &headers.Headers{
		Eth: &headers.Ethernet{
			DstMAC:       macIn,
			SrcMAC:       nettype.MustParseMac("02:00:00:00:00:01"),
			EthernetType: headers.EtherTypeIPv4,
		},
		IPv4: &headers.IPv4{
			TTL:      ttl,
			Protocol: headers.ProtoUDP,
			SrcIP:    netip.MustParseAddr("10.0.0.1"),
			DstIP:    netip.MustParseAddr(dst),
		},
		UDP: &headers.UDP{SrcPort: 2000, DstPort: 3000},
	}
	b := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, h.SerializeTo(b, opts))
	p, err := packet.FromFrame(b.Bytes())
	require.NoError(t, err)
	p.Meta.Iif = 1
	return p
}

func TestForwardPath(t *testing.T) {
	f := newFixture(t)
	f.installFib(t, []routing.FibEntry{
		{Action: routing.ActionForward, Ifindex: 2, Dmac: macNhop},
	})

	out := f.run(t, dataplane.Vtep{}, inbound(t, "192.0.2.9", 64))
	require.Len(t, out, 1)
	p := out[0]

	assert.False(t, p.IsDropped())
	assert.Equal(t, uint8(63), p.Headers.TTL())
	assert.Equal(t, macOut, p.Headers.Eth.SrcMAC)
	assert.Equal(t, macNhop, p.Headers.Eth.DstMAC)
	assert.Equal(t, uint32(2), p.Meta.Oif)

	// The frame in the buffer reflects the rewrite.
	reparsed, _, err := headers.Parse(p.Frame())
	require.NoError(t, err)
	assert.Equal(t, uint8(63), reparsed.TTL())
	assert.Equal(t, macNhop, reparsed.Eth.DstMAC)
}

// captureLogger records the dump points of every Debug call.
type captureLogger struct {
	points []string
}

func (l *captureLogger) New(ctx ...any) log.Logger { return l }

func (l *captureLogger) Debug(msg string, ctx ...any) {
	for i := 0; i+1 < len(ctx); i += 2 {
		if ctx[i] == "point" {
			l.points = append(l.points, ctx[i+1].(string))
		}
	}
}

func (l *captureLogger) Info(msg string, ctx ...any)  {}
func (l *captureLogger) Error(msg string, ctx ...any) {}
func (l *captureLogger) Enabled(log.Level) bool       { return true }

func TestPipelineDumpStages(t *testing.T) {
	f := newFixture(t)
	f.installFib(t, []routing.FibEntry{
		{Action: routing.ActionForward, Ifindex: 2, Dmac: macNhop},
	})

	logger := &captureLogger{}
	pl := dataplane.NewPipeline(f.tables, dataplane.Vtep{}, stateful.NewTable(),
		f.metrics, dataplane.WithDump(logger))

	out := pipeline.Collect(pl.Process(pipeline.FromSlice(
		[]*packet.Packet{inbound(t, "192.0.2.9", 64)})))
	require.Len(t, out, 1)
	assert.Equal(t, uint8(63), out[0].Headers.TTL())
	assert.Equal(t, []string{"pre-ingress-dump", "post-egress-dump"}, logger.points)

	// A packet dropped inside the chain shows up at the first dump only.
	logger.points = nil
	bad := inbound(t, "192.0.2.9", 64)
	bad.Meta.Iif = 99
	out = pipeline.Collect(pl.Process(pipeline.FromSlice([]*packet.Packet{bad})))
	assert.Empty(t, out)
	assert.Equal(t, []string{"pre-ingress-dump"}, logger.points)
}

func TestUnresolvedRouteDropsAndCounts(t *testing.T) {
	f := newFixture(t)
	// A gateway route whose next hop never resolved projects as an empty
	// group.
	f.installFib(t, nil)

	out := f.run(t, dataplane.Vtep{}, inbound(t, "192.0.2.9", 64))
	assert.Empty(t, out)

	got := testutil.ToFloat64(
		f.metrics.DroppedPackets.WithLabelValues("ip-forward", "route_failure"))
	assert.Equal(t, 1.0, got)
}

func TestIngressDrops(t *testing.T) {
	f := newFixture(t)
	f.installFib(t, []routing.FibEntry{
		{Action: routing.ActionForward, Ifindex: 2, Dmac: macNhop},
	})

	testCases := map[string]struct {
		mutate func(p *packet.Packet)
		reason string
	}{
		"unknown interface": {
			mutate: func(p *packet.Packet) { p.Meta.Iif = 99 },
			reason: "interface_unknown",
		},
		"wrong mac": {
			mutate: func(p *packet.Packet) {
				p.Headers.Eth.DstMAC = nettype.MustParseMac("02:99:99:99:99:99")
			},
			reason: "mac_not_for_us",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			p := inbound(t, "192.0.2.9", 64)
			tc.mutate(p)
			out := f.run(t, dataplane.Vtep{}, p)
			assert.Empty(t, out)
			got := testutil.ToFloat64(
				f.metrics.DroppedPackets.WithLabelValues("ingress", tc.reason))
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestIngressDownInterface(t *testing.T) {
	f := newFixture(t)
	f.ifaces.Append(iftable.SetProperties(1, iftable.AdminDown, iftable.OperUp, 1500))
	f.ifaces.Publish()

	out := f.run(t, dataplane.Vtep{}, inbound(t, "192.0.2.9", 64))
	assert.Empty(t, out)
	got := testutil.ToFloat64(
		f.metrics.DroppedPackets.WithLabelValues("ingress", "interface_adm_down"))
	assert.Equal(t, 1.0, got)
}

func TestVxlanEncapsulation(t *testing.T) {
	f := newFixture(t)
	vni := nettype.MustVni(3000)
	f.installFib(t, []routing.FibEntry{{
		Action:  routing.ActionForward,
		Ifindex: 2,
		Dmac:    macNhop,
		Encap:   routing.VxlanEncap(vni, netip.MustParseAddr("198.51.100.7")),
	}})
	vtep := dataplane.Vtep{
		IP:  netip.MustParseAddr("198.51.100.1"),
		Mac: nettype.MustParseMac("02:00:00:00:00:0e"),
	}

	out := f.run(t, vtep, inbound(t, "192.0.2.9", 64))
	require.Len(t, out, 1)
	p := out[0]

	h, _, err := headers.Parse(p.Frame())
	require.NoError(t, err)
	require.NotNil(t, h.Vxlan)
	require.NotNil(t, h.Inner)
	assert.Equal(t, vni, h.Vxlan.Vni)
	assert.Equal(t, netip.MustParseAddr("198.51.100.1"), h.SrcIP())
	assert.Equal(t, netip.MustParseAddr("198.51.100.7"), h.DstIP())
	assert.Equal(t, headers.VXLANPort, h.UDP.DstPort)
	assert.Equal(t, macNhop, h.Eth.DstMAC)
	// The original frame rides inside, one hop older.
	assert.Equal(t, uint8(63), h.Inner.TTL())
	assert.Equal(t, uint16(3000), h.Inner.UDP.DstPort)
}

func TestVtepDecapsulation(t *testing.T) {
	f := newFixture(t)
	macVtep := nettype.MustParseMac("02:00:00:00:00:0f")
	f.ifaces.Append(iftable.Add(iftable.Interface{
		Index: 3, Name: "vtep0", Mac: macVtep, Kind: iftable.KindVtep,
		Admin: iftable.AdminUp, Oper: iftable.OperUp,
		Vrf: nettype.VrfId(10),
	}))
	f.ifaces.Publish()

	inner := inbound(t, "192.0.2.9", 64)
	vni := nettype.MustVni(4000)
	outer := &headers.Headers{
		Eth: &headers.Ethernet{
			DstMAC:       macVtep,
			SrcMAC:       nettype.MustParseMac("02:00:00:00:00:01"),
			EthernetType: headers.EtherTypeIPv4,
		},
		IPv4: &headers.IPv4{
			TTL:      64,
			Protocol: headers.ProtoUDP,
			SrcIP:    netip.MustParseAddr("198.51.100.7"),
			DstIP:    netip.MustParseAddr("198.51.100.1"),
		},
		UDP:   &headers.UDP{SrcPort: 55555, DstPort: headers.VXLANPort},
		Vxlan: &headers.VXLAN{Vni: vni},
		Inner: inner.Headers,
	}
	b := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, outer.SerializeTo(b, opts))
	p, err := packet.FromFrame(b.Bytes())
	require.NoError(t, err)
	p.Meta.Iif = 3

	stage := dataplane.Ingress(f.tables.Interfaces)
	out := pipeline.Collect(stage.Process(pipeline.FromSlice([]*packet.Packet{p})))
	require.Len(t, out, 1)

	assert.False(t, out[0].IsDropped())
	assert.Equal(t, nettype.VpcdFromVni(vni), out[0].Meta.SrcVpcd)
	assert.Nil(t, out[0].Headers.Vxlan, "outer header gone")
	assert.Equal(t, netip.MustParseAddr("192.0.2.9"), out[0].Headers.DstIP())
	assert.Equal(t, nettype.VrfId(10), out[0].Meta.Vrf)
}

func TestEngineDrainsSource(t *testing.T) {
	f := newFixture(t)
	f.installFib(t, []routing.FibEntry{
		{Action: routing.ActionForward, Ifindex: 2, Dmac: macNhop},
	})

	in := make(chan *packet.Packet, 8)
	sinkCh := make(chan *packet.Packet, 8)
	engine := dataplane.NewEngine(
		dataplane.ChanSource(in), dataplane.ChanSink(sinkCh), 2,
		func(int) pipeline.Stage {
			return dataplane.NewPipeline(f.tables, dataplane.Vtep{},
				stateful.NewTable(), f.metrics)
		}, f.metrics)

	for i := 0; i < 4; i++ {
		in <- inbound(t, "192.0.2.9", 64)
	}
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, engine.Run(ctx))

	close(sinkCh)
	got := 0
	for range sinkCh {
		got++
	}
	assert.Equal(t, 4, got)
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.SentPackets))
}
