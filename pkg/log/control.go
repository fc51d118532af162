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

package log

import (
	"sync"

	"go.uber.org/zap"
)

// control holds the runtime log level state: a default level plus per-target
// overrides. Levels are zap atomic levels, so adjusting them is visible to
// concurrent loggers without locking the log path. The control itself has a
// single writer (whoever calls SetLevel) serialized by a mutex.
type control struct {
	mu      sync.Mutex
	def     zap.AtomicLevel
	targets map[string]zap.AtomicLevel
}

var ctl *control

func setupControl(def Level, targets map[string]string) error {
	c := &control{
		def:     zap.NewAtomicLevelAt(def),
		targets: make(map[string]zap.AtomicLevel, len(targets)),
	}
	for target, lvl := range targets {
		parsed, err := parseLevel(lvl)
		if err != nil {
			return err
		}
		c.targets[target] = zap.NewAtomicLevelAt(parsed)
	}
	ctl = c
	return nil
}

// SetLevel overrides the level for the given target at runtime. An empty
// target adjusts the default level.
func SetLevel(target string, lvl Level) {
	if ctl == nil {
		return
	}
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if target == "" {
		ctl.def.SetLevel(lvl)
		return
	}
	al, ok := ctl.targets[target]
	if !ok {
		al = zap.NewAtomicLevelAt(lvl)
		ctl.targets[target] = al
	}
	al.SetLevel(lvl)
}

// LevelFor returns the effective level for the given target.
func LevelFor(target string) Level {
	if ctl == nil {
		return InfoLevel
	}
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if al, ok := ctl.targets[target]; ok {
		return al.Level()
	}
	return ctl.def.Level()
}
