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
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// Dump logs a one-line summary of every live packet passing the given point
// of the chain. Packets are not modified. The log volume is per-packet, so
// the stage is only wired when packet dumping is enabled.
func Dump(point string, logger log.Logger) pipeline.Stage {
	return pipeline.Transform(point, func(p *packet.Packet) {
		h := p.Headers
		logger.Debug("Packet",
			"point", point,
			"iif", p.Meta.Iif,
			"vrf", p.Meta.Vrf,
			"src", h.SrcIP(),
			"dst", h.DstIP(),
			"proto", h.Protocol(),
			"sport", h.SrcPort(),
			"dport", h.DstPort(),
			"len", len(p.Frame()),
		)
	})
}
