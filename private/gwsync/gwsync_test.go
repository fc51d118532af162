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

package gwsync_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opennetfabric/gateway/private/gwsync"
)

func TestMutexExcludes(t *testing.T) {
	var mu gwsync.Mutex
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				mu.Lock()
				counter++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000, counter)
}

func TestPointerSwap(t *testing.T) {
	var p gwsync.Pointer[int]
	assert.Nil(t, p.Load())
	a, b := 1, 2
	p.Store(&a)
	assert.Equal(t, &a, p.Load())
	assert.Equal(t, &a, p.Swap(&b))
	assert.False(t, p.CompareAndSwap(&a, &b))
	assert.True(t, p.CompareAndSwap(&b, &a))
	assert.Equal(t, &a, p.Load())
}

func TestOnceRunsOnce(t *testing.T) {
	var once gwsync.Once
	runs := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			once.Do(func() { runs++ })
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, runs)
}

func TestCondWakesWaiter(t *testing.T) {
	var mu gwsync.Mutex
	cond := gwsync.NewCond(&mu)
	ready := false
	done := make(chan struct{})
	go func() {
		defer close(done)
		mu.Lock()
		for !ready {
			cond.Wait()
		}
		mu.Unlock()
	}()
	mu.Lock()
	ready = true
	mu.Unlock()
	cond.Broadcast()
	<-done
}

func TestUint64Counter(t *testing.T) {
	var u gwsync.Uint64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				u.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8000), u.Load())
}
