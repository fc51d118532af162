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
	"errors"

	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/nat/stateful"
	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/pkg/packet"
)

// StatelessNat rewrites addresses from the per-VPC prefix mappings.
func StatelessNat(tables *leftright.Reader[stateless.Tables]) pipeline.Stage {
	return pipeline.Transform("nat-stateless", func(p *packet.Packet) {
		if err := tables.Guard().Translate(p); err != nil {
			p.Drop(packet.DropInternalFailure)
		}
	})
}

// StatefulNat rewrites flows from the worker's session table. The table is
// owned by exactly one worker; build one per pipeline.
func StatefulNat(sessions *stateful.Table) pipeline.Stage {
	return pipeline.Transform("nat-stateful", func(p *packet.Packet) {
		err := sessions.Translate(p)
		switch {
		case err == nil:
		case errors.Is(err, stateful.ErrNoResources):
			p.Drop(packet.DropNatOutOfResources)
		default:
			p.Drop(packet.DropInternalFailure)
		}
	})
}
