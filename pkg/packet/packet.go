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

// Package packet ties a frame buffer to its parsed header tree and the
// metadata the pipeline stages act on. The headers are mutated as typed
// records; Serialize writes them back over the buffer, growing or shrinking
// its front to fit.
package packet

import (
	"github.com/gopacket/gopacket"

	"github.com/opennetfabric/gateway/pkg/headers"
)

var serializeOpts = gopacket.SerializeOptions{
	FixLengths:       true,
	ComputeChecksums: true,
}

// Packet owns a buffer for the lifetime of one pass through the pipeline.
type Packet struct {
	buf      Buffer
	consumed int

	Headers *headers.Headers
	Meta    Meta
}

// New parses the frame in buf into a Packet.
func New(buf Buffer) (*Packet, error) {
	hdrs, consumed, err := headers.Parse(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return &Packet{buf: buf, Headers: hdrs, consumed: consumed}, nil
}

// FromFrame parses a raw frame through a TestBuffer. Test helper.
func FromFrame(frame []byte) (*Packet, error) {
	buf, err := NewTestBuffer(frame)
	if err != nil {
		return nil, err
	}
	return New(buf)
}

// Payload returns the frame bytes past the parsed headers.
func (p *Packet) Payload() []byte {
	return p.buf.Bytes()[p.consumed:]
}

// Frame returns the full occupied frame. The headers in it are only current
// after Serialize.
func (p *Packet) Frame() []byte {
	return p.buf.Bytes()
}

// Drop marks the packet dead. The first reason wins; later calls on an
// already dead packet are no-ops.
func (p *Packet) Drop(reason DropReason) {
	if p.Meta.Drop == DropNone {
		p.Meta.Drop = reason
	}
}

// IsDropped reports whether the packet has been marked dead.
func (p *Packet) IsDropped() bool {
	return p.Meta.Drop != DropNone
}

// Serialize deparses the header tree back over the buffer. The buffer front
// is trimmed or grown when header mutation changed the stack size. Length
// and checksum fields are recomputed. On failure the packet is marked
// dropped and the error returned.
func (p *Packet) Serialize() error {
	b := gopacket.NewSerializeBuffer()
	payload := p.Payload()
	bytes, err := b.AppendBytes(len(payload))
	if err != nil {
		p.Drop(DropInternalFailure)
		return err
	}
	copy(bytes, payload)
	if err := p.Headers.SerializeTo(b, serializeOpts); err != nil {
		p.Drop(DropInternalFailure)
		return err
	}
	out := b.Bytes()
	needed := len(out) - len(payload)

	switch {
	case needed < p.consumed:
		err = p.buf.TrimFromStart(p.consumed - needed)
	case needed > p.consumed:
		err = p.buf.Prepend(needed - p.consumed)
	}
	if err != nil {
		p.Drop(DropInternalFailure)
		return err
	}
	copy(p.buf.BytesMut(), out)
	p.consumed = needed
	return nil
}
