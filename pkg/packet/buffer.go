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

package packet

import (
	"errors"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

// ErrHeadroom is returned when a buffer cannot grow at the requested end.
var ErrHeadroom = errors.New("buffer headroom exhausted")

// Buffer is a byte container exposing the currently occupied range and
// supporting O(1) growth on either end, up to pre-reserved capacity. The
// buffer holds no header interpretation. Production buffers wrap an
// mbuf-like object; TestBuffer backs tests.
type Buffer interface {
	// Bytes returns the occupied region for reading.
	Bytes() []byte
	// BytesMut returns the occupied region for mutation.
	BytesMut() []byte
	// Prepend reserves n bytes before the current start.
	Prepend(n int) error
	// TrimFromStart drops n bytes from the current start.
	TrimFromStart(n int) error
	// Append reserves n bytes after the current end.
	Append(n int) error
}

// testHeadroom is the reserved space before the frame in a TestBuffer, large
// enough for any header growth the pipeline stages can cause.
const testHeadroom = 256

// testBufSize bounds the frames a TestBuffer can hold.
const testBufSize = testHeadroom + 9000

// TestBuffer is a Buffer over a fixed array with head and tail cursors.
type TestBuffer struct {
	data [testBufSize]byte
	head int
	tail int
}

// NewTestBuffer returns a buffer holding a copy of frame, with testHeadroom
// bytes of headroom.
func NewTestBuffer(frame []byte) (*TestBuffer, error) {
	if len(frame) > testBufSize-testHeadroom {
		return nil, serrors.New("frame too large for test buffer",
			"size", len(frame), "max", testBufSize-testHeadroom)
	}
	b := &TestBuffer{head: testHeadroom, tail: testHeadroom + len(frame)}
	copy(b.data[b.head:], frame)
	return b, nil
}

func (b *TestBuffer) Bytes() []byte {
	return b.data[b.head:b.tail]
}

func (b *TestBuffer) BytesMut() []byte {
	return b.data[b.head:b.tail]
}

func (b *TestBuffer) Prepend(n int) error {
	if n < 0 || n > b.head {
		return serrors.Join(ErrHeadroom, nil, "requested", n, "headroom", b.head)
	}
	b.head -= n
	return nil
}

func (b *TestBuffer) TrimFromStart(n int) error {
	if n < 0 || b.head+n > b.tail {
		return serrors.Join(ErrHeadroom, nil, "requested", n, "occupied", b.tail-b.head)
	}
	b.head += n
	return nil
}

func (b *TestBuffer) Append(n int) error {
	if n < 0 || b.tail+n > testBufSize {
		return serrors.Join(ErrHeadroom, nil, "requested", n, "tailroom", testBufSize-b.tail)
	}
	b.tail += n
	return nil
}

// frameHeadroom is the space reserved before a received frame in a
// FrameBuffer, enough for the largest encapsulation the pipeline adds.
const frameHeadroom = 128

// frameTailroom bounds growth past the received frame.
const frameTailroom = 64

// FrameBuffer is a heap-allocated Buffer for frames received from an OS
// socket. One allocation covers headroom, frame and tailroom.
type FrameBuffer struct {
	data []byte
	head int
	tail int
}

// NewFrameBuffer returns a buffer holding a copy of frame.
func NewFrameBuffer(frame []byte) *FrameBuffer {
	b := &FrameBuffer{
		data: make([]byte, frameHeadroom+len(frame)+frameTailroom),
		head: frameHeadroom,
		tail: frameHeadroom + len(frame),
	}
	copy(b.data[b.head:], frame)
	return b
}

func (b *FrameBuffer) Bytes() []byte {
	return b.data[b.head:b.tail]
}

func (b *FrameBuffer) BytesMut() []byte {
	return b.data[b.head:b.tail]
}

func (b *FrameBuffer) Prepend(n int) error {
	if n < 0 || n > b.head {
		return serrors.Join(ErrHeadroom, nil, "requested", n, "headroom", b.head)
	}
	b.head -= n
	return nil
}

func (b *FrameBuffer) TrimFromStart(n int) error {
	if n < 0 || b.head+n > b.tail {
		return serrors.Join(ErrHeadroom, nil, "requested", n, "occupied", b.tail-b.head)
	}
	b.head += n
	return nil
}

func (b *FrameBuffer) Append(n int) error {
	if n < 0 || b.tail+n > len(b.data) {
		return serrors.Join(ErrHeadroom, nil, "requested", n,
			"tailroom", len(b.data)-b.tail)
	}
	b.tail += n
	return nil
}
