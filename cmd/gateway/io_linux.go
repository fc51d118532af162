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

//go:build linux

package main

import (
	"context"
	"io"
	"net"
	"sync"

	mdpacket "github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/packet"
	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// recvQueueLen buffers received packets between the socket readers and the
// pipeline workers.
const recvQueueLen = 256

// maxFrameSize bounds one read from a packet socket.
const maxFrameSize = 9216

// packetIO moves frames between AF_PACKET sockets and the dataplane. One
// socket per forwarding interface; reads fan into a single queue the
// pipeline workers consume, sends go out the socket of the packet's egress
// interface.
type packetIO struct {
	conns  map[uint32]*mdpacket.Conn
	recv   chan *packet.Packet
	done   chan struct{}
	logger log.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func openPacketIO(ifaces []iftable.Interface) (*packetIO, error) {
	pio := &packetIO{
		conns:  make(map[uint32]*mdpacket.Conn, len(ifaces)),
		recv:   make(chan *packet.Packet, recvQueueLen),
		done:   make(chan struct{}),
		logger: log.New("component", "packet-io"),
	}
	for _, ifc := range ifaces {
		ifi, err := net.InterfaceByIndex(int(ifc.Index))
		if err != nil {
			pio.Close()
			return nil, serrors.Wrap("looking up interface", err,
				"name", ifc.Name)
		}
		conn, err := mdpacket.Listen(ifi, mdpacket.Raw, unix.ETH_P_ALL, nil)
		if err != nil {
			pio.Close()
			return nil, serrors.Wrap("opening packet socket", err,
				"name", ifc.Name)
		}
		pio.conns[ifc.Index] = conn
		pio.wg.Add(1)
		go func() {
			defer log.HandlePanic()
			defer pio.wg.Done()
			pio.readLoop(ifc.Index, conn)
		}()
	}
	return pio, nil
}

func (pio *packetIO) readLoop(ifindex uint32, conn *mdpacket.Conn) {
	buf := make([]byte, maxFrameSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			pio.logger.Debug("Packet socket closed",
				"ifindex", ifindex, "err", err)
			return
		}
		p, err := packet.New(packet.NewFrameBuffer(buf[:n]))
		if err != nil {
			// Not a frame the codec understands; the kernel keeps it.
			continue
		}
		p.Meta.Iif = ifindex
		select {
		case pio.recv <- p:
		case <-pio.done:
			return
		}
	}
}

// Recv implements dataplane.Source.
func (pio *packetIO) Recv(ctx context.Context) (*packet.Packet, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p, ok := <-pio.recv:
		if !ok {
			return nil, io.EOF
		}
		return p, nil
	}
}

// Send implements dataplane.Sink.
func (pio *packetIO) Send(p *packet.Packet) error {
	conn, ok := pio.conns[p.Meta.Oif]
	if !ok {
		return serrors.New("no socket for egress interface", "oif", p.Meta.Oif)
	}
	frame := p.Frame()
	if len(frame) < 6 {
		return serrors.New("frame too short", "size", len(frame))
	}
	dst := net.HardwareAddr(frame[0:6])
	_, err := conn.WriteTo(frame, &mdpacket.Addr{HardwareAddr: dst})
	return err
}

// Close shuts the sockets down and drains the readers.
func (pio *packetIO) Close() {
	pio.closeOnce.Do(func() {
		close(pio.done)
		for _, conn := range pio.conns {
			conn.Close()
		}
		pio.wg.Wait()
		close(pio.recv)
	})
}
