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

// Package leftright publishes a table from a single writer to any number of
// wait-free readers. The writer queues operations in a log; Publish clones
// the live snapshot, applies the whole log to the clone, and swaps it in
// with one atomic pointer store. Readers load the pointer and get a snapshot
// that never mutates afterwards, so holding it pins a consistent view for as
// long as needed. The garbage collector reclaims superseded snapshots once
// the last reader lets go, which stands in for the guard/epoch tracking a
// manual-reclamation scheme would need.
//
// A snapshot is cloned on every publish, so Clone must be cheap relative to
// the publish rate: shallow-copy the containers and share the interned
// records (see the FIB group interning).
//
// The pointer goes through the gwsync facade, so checker builds can perturb
// the schedule around every load and store.
package leftright

import (
	"github.com/opennetfabric/gateway/private/gwsync"
)

// Op is one operation in the writer's log.
type Op[T any] interface {
	Apply(*T)
}

// OpFunc adapts a function to an Op.
type OpFunc[T any] func(*T)

func (f OpFunc[T]) Apply(t *T) { f(t) }

// Writer is the authoritative side. It is not safe for concurrent use; one
// goroutine owns it.
type Writer[T any] struct {
	log   []Op[T]
	clone func(*T) *T
	ptr   *gwsync.Pointer[T]
}

// Reader hands out snapshots. Safe for concurrent use by any number of
// goroutines.
type Reader[T any] struct {
	ptr *gwsync.Pointer[T]
}

// New builds a writer/reader pair around the initial state. clone must
// return an independent copy: mutating the copy through any Op must leave
// the original untouched.
func New[T any](initial *T, clone func(*T) *T) (*Writer[T], *Reader[T]) {
	ptr := &gwsync.Pointer[T]{}
	ptr.Store(initial)
	w := &Writer[T]{clone: clone, ptr: ptr}
	return w, &Reader[T]{ptr: ptr}
}

// Append queues operations for the next Publish. Nothing becomes visible to
// readers yet.
func (w *Writer[T]) Append(ops ...Op[T]) {
	w.log = append(w.log, ops...)
}

// Pending reports the number of queued operations.
func (w *Writer[T]) Pending() int {
	return len(w.log)
}

// Publish makes all queued operations visible in one atomic step. Readers
// observe either none of the queued operations or all of them; snapshots
// obtained before the publish are not disturbed.
func (w *Writer[T]) Publish() {
	if len(w.log) == 0 {
		return
	}
	next := w.clone(w.ptr.Load())
	for _, op := range w.log {
		op.Apply(next)
	}
	w.ptr.Store(next)
	w.log = w.log[:0]
}

// Snapshot returns what readers currently see: queued but unpublished
// operations are not reflected.
func (w *Writer[T]) Snapshot() *T {
	return w.ptr.Load()
}

// Guard returns the current snapshot. The returned value is immutable;
// callers needing a consistent multi-lookup view hold on to it.
func (r *Reader[T]) Guard() *T {
	return r.ptr.Load()
}
