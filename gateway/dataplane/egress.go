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
	"iter"

	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// Stats accounts live packets that made it past routing and NAT.
func Stats(m *Metrics) pipeline.Stage {
	return pipeline.Transform("stats", func(p *packet.Packet) {
		if m == nil {
			return
		}
		m.ProcessedPackets.Inc()
		m.ProcessedBytes.Add(float64(len(p.Frame())))
	})
}

// Egress validates the transmit interface, stamps the frame's source MAC
// and writes the mutated headers back into the packet buffer.
func Egress(ifaces *leftright.Reader[iftable.Table]) pipeline.Stage {
	return pipeline.Transform("egress", func(p *packet.Packet) {
		ifc, ok := ifaces.Guard().Get(p.Meta.Oif)
		if !ok {
			p.Drop(packet.DropInterfaceUnknown)
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
		if p.Headers.Eth != nil {
			p.Headers.Eth.SrcMAC = ifc.Mac
		}
		// Serialize drops the packet itself on failure.
		_ = p.Serialize()
	})
}

type dropSink struct {
	metrics *Metrics
}

// DropSink terminates the pipeline: dead packets are counted by stage and
// reason and removed from the stream, live packets pass through to the
// transmit side.
func DropSink(m *Metrics) pipeline.Stage {
	return &dropSink{metrics: m}
}

func (d *dropSink) Name() string { return "drop-sink" }

func (d *dropSink) Process(in iter.Seq[*packet.Packet]) iter.Seq[*packet.Packet] {
	return func(yield func(*packet.Packet) bool) {
		for p := range in {
			if p.IsDropped() {
				d.metrics.countDrop(p.Meta.DropStage, p.Meta.Drop.String())
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}
