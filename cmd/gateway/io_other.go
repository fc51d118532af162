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

//go:build !linux

package main

import (
	"context"

	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/pkg/packet"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// packetIO needs AF_PACKET sockets; only Linux is supported.
type packetIO struct{}

func openPacketIO(ifaces []iftable.Interface) (*packetIO, error) {
	return nil, serrors.New("packet sockets are only supported on linux")
}

func (pio *packetIO) Recv(ctx context.Context) (*packet.Packet, error) {
	return nil, serrors.New("not supported")
}

func (pio *packetIO) Send(p *packet.Packet) error {
	return serrors.New("not supported")
}

func (pio *packetIO) Close() {}
