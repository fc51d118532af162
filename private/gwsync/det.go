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

//go:build gwsync_det

package gwsync

import "runtime"

// Mode names the active implementation.
const Mode = "deterministic"

// schedPoint hands the processor over at every synchronization point. With
// GOMAXPROCS=1 this pins the interleaving to the run queue order, so a
// failing schedule replays.
func schedPoint() {
	runtime.Gosched()
}
