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

//go:build gwsync_rand

package gwsync

import (
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"sync"
)

// Mode names the active implementation.
const Mode = "randomized"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(seed()))
)

// seed reads GWSYNC_SEED so a schedule that found a bug can be replayed.
func seed() int64 {
	if s := os.Getenv("GWSYNC_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	return 1
}

// schedPoint hands the processor over at a random quarter of the
// synchronization points, perturbing the interleaving between runs with
// different seeds.
func schedPoint() {
	rngMu.Lock()
	yield := rng.Intn(4) == 0
	rngMu.Unlock()
	if yield {
		runtime.Gosched()
	}
}
