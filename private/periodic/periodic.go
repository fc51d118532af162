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

// Package periodic runs a task at fixed intervals on a dedicated goroutine.
// The gateway uses it for housekeeping that must stay off the packet path,
// like sweeping expired NAT sessions.
package periodic

import (
	"context"
	"sync"
	"time"

	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/metrics"
)

// Task is a piece of work to run periodically. Run must honor the context;
// it is cancelled when the run exceeds the timeout or the runner is killed.
type Task interface {
	Name() string
	Run(context.Context)
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	TaskName string
	TaskFn   func(context.Context)
}

func (t TaskFunc) Name() string            { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) { t.TaskFn(ctx) }

// Metrics instruments a runner. All fields are optional.
type Metrics struct {
	// Runs counts completed task runs.
	Runs metrics.Counter
	// Triggers counts externally requested runs.
	Triggers metrics.Counter
	// Period is the configured period in seconds.
	Period metrics.Gauge
	// Runtime is the duration of the last run in seconds.
	Runtime metrics.Gauge
	// StartTime is the unix time the runner started.
	StartTime metrics.Gauge
}

// Runner periodically executes a task. Use Start to create one.
type Runner struct {
	task    Task
	period  time.Duration
	timeout time.Duration
	metrics Metrics
	logger  log.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	trigger  chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Start runs task every period. A single run is cancelled after timeout.
func Start(task Task, period, timeout time.Duration) *Runner {
	return StartWithMetrics(task, Metrics{}, period, timeout)
}

// StartWithMetrics is Start with instrumentation.
func StartWithMetrics(task Task, m Metrics, period, timeout time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		task:    task,
		period:  period,
		timeout: timeout,
		metrics: m,
		logger:  log.New("task", task.Name()),
		ctx:     ctx,
		cancel:  cancel,
		trigger: make(chan struct{}),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	metrics.GaugeSet(m.Period, period.Seconds())
	metrics.GaugeSet(m.StartTime, float64(time.Now().UnixNano())/1e9)
	go func() {
		defer log.HandlePanic()
		r.loop()
	}()
	return r
}

// Stop shuts the runner down gracefully: the current run finishes, no
// further runs start. It blocks until the loop has exited.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Kill cancels the current run and stops the runner. It blocks until the
// loop has exited.
func (r *Runner) Kill() {
	r.cancel()
	r.Stop()
}

// TriggerRun requests an immediate run. It blocks until the run has been
// picked up or the runner is stopping.
func (r *Runner) TriggerRun() {
	select {
	case r.trigger <- struct{}{}:
		metrics.CounterInc(r.metrics.Triggers)
	case <-r.stop:
	case <-r.ctx.Done():
	}
}

func (r *Runner) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	r.run()
	for {
		select {
		case <-r.stop:
			return
		case <-r.ctx.Done():
			return
		case <-r.trigger:
			r.run()
		case <-ticker.C:
			r.run()
		}
	}
}

func (r *Runner) run() {
	if r.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()
	start := time.Now()
	r.task.Run(ctx)
	elapsed := time.Since(start)
	metrics.GaugeSet(r.metrics.Runtime, elapsed.Seconds())
	metrics.CounterInc(r.metrics.Runs)
	r.logger.Debug("periodic run finished", "elapsed", elapsed)
}
