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

// Package gwsync is the synchronization facade of the gateway. Call sites
// use its mutexes, condition variables and atomics instead of sync and
// sync/atomic directly; the implementation behind the scheduling hook is
// selected at build time:
//
//   - no tag: production, the hook is a no-op;
//   - gwsync_det: a reschedule is forced at every synchronization point, so
//     runs under GOMAXPROCS=1 interleave on a fixed schedule;
//   - gwsync_rand: reschedules happen at random synchronization points,
//     seeded from GWSYNC_SEED for reproduction.
//
// The two checker tags both define the hook, so enabling them together
// fails to compile.
package gwsync

import (
	"sync"
	"sync/atomic"
)

// Mutex is a mutual exclusion lock with scheduling points around the
// acquire and release.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock() {
	schedPoint()
	m.mu.Lock()
}

func (m *Mutex) Unlock() {
	m.mu.Unlock()
	schedPoint()
}

// RWMutex is a reader/writer lock with scheduling points.
type RWMutex struct {
	mu sync.RWMutex
}

func (m *RWMutex) Lock() {
	schedPoint()
	m.mu.Lock()
}

func (m *RWMutex) Unlock() {
	m.mu.Unlock()
	schedPoint()
}

func (m *RWMutex) RLock() {
	schedPoint()
	m.mu.RLock()
}

func (m *RWMutex) RUnlock() {
	m.mu.RUnlock()
	schedPoint()
}

// Cond is a condition variable bound to a Mutex.
type Cond struct {
	c *sync.Cond
}

// NewCond returns a condition variable whose Wait releases m.
func NewCond(m *Mutex) *Cond {
	return &Cond{c: sync.NewCond(&m.mu)}
}

func (c *Cond) Wait() {
	schedPoint()
	c.c.Wait()
}

func (c *Cond) Signal() {
	c.c.Signal()
	schedPoint()
}

func (c *Cond) Broadcast() {
	c.c.Broadcast()
	schedPoint()
}

// Once runs a function exactly once.
type Once struct {
	once sync.Once
}

func (o *Once) Do(f func()) {
	schedPoint()
	o.once.Do(f)
}

// Pointer is an atomic pointer with scheduling points.
type Pointer[T any] struct {
	p atomic.Pointer[T]
}

func (p *Pointer[T]) Load() *T {
	schedPoint()
	return p.p.Load()
}

func (p *Pointer[T]) Store(v *T) {
	p.p.Store(v)
	schedPoint()
}

func (p *Pointer[T]) Swap(v *T) *T {
	schedPoint()
	return p.p.Swap(v)
}

func (p *Pointer[T]) CompareAndSwap(old, new *T) bool {
	schedPoint()
	return p.p.CompareAndSwap(old, new)
}

// Uint64 is an atomic counter with scheduling points.
type Uint64 struct {
	v atomic.Uint64
}

func (u *Uint64) Load() uint64 {
	schedPoint()
	return u.v.Load()
}

func (u *Uint64) Store(v uint64) {
	u.v.Store(v)
	schedPoint()
}

func (u *Uint64) Add(delta uint64) uint64 {
	schedPoint()
	return u.v.Add(delta)
}

func (u *Uint64) CompareAndSwap(old, new uint64) bool {
	schedPoint()
	return u.v.CompareAndSwap(old, new)
}
