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

package pipeline

import (
	"errors"

	"github.com/opennetfabric/gateway/pkg/headers"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// BroadcastMacs sets the destination MAC of every frame to broadcast. Debug
// stage.
func BroadcastMacs() Stage {
	return Transform("broadcast-macs", func(p *packet.Packet) {
		if p.Headers.Eth != nil {
			p.Headers.Eth.DstMAC = nettype.Broadcast
		}
	})
}

// DecrementTtl drops one off the TTL or hop limit, dropping packets that
// would expire.
func DecrementTtl() Stage {
	return Transform("decrement-ttl", func(p *packet.Packet) {
		if !p.Headers.IsIP() {
			return
		}
		if err := p.Headers.DecrementTTL(); err != nil {
			if errors.Is(err, headers.ErrTTLExpired) {
				p.Drop(packet.DropTtlExpired)
				return
			}
			p.Drop(packet.DropInternalFailure)
		}
	})
}

// InspectHeaders calls fn on every live packet without transforming it.
// Debug stage, also handy as a test hook.
func InspectHeaders(fn func(*headers.Headers)) Stage {
	return Transform("inspect-headers", func(p *packet.Packet) {
		fn(p.Headers)
	})
}
