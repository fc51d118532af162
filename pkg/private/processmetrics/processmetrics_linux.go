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

// Package processmetrics exports scheduler-level process metrics that the
// stock prometheus process collector does not cover. Only the Linux
// implementation does anything; elsewhere Register is a no-op.
//
// The extra metrics estimate the CPU time the kernel scheduler granted to
// the process versus the time it spent waiting for a core. A worker that is
// runnable but not running is being starved, which shows up as forwarding
// latency long before CPU usage looks saturated. With these counters a
// query such as
//
//	rate(gateway_processed_pkts_total[1m])
//	  / on (instance, job) group_left ()
//	(rate(process_running_seconds_total[1m]))
//
// measures per-core forwarding efficiency independently of contention.
package processmetrics

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"

	"github.com/opennetfabric/gateway/pkg/private/serrors"
)

var (
	runningTime = prometheus.NewDesc(
		"process_running_seconds_total",
		"CPU time the process used (running state) since it started (all threads summed).",
		nil, nil,
	)
	runnableTime = prometheus.NewDesc(
		"process_runnable_seconds_total",
		"CPU time the process was denied (runnable state) since it started (all threads summed).",
		nil, nil,
	)
	goCores = prometheus.NewDesc(
		"go_sched_maxprocs_threads",
		"The current runtime.GOMAXPROCS setting. The number of cores Go code uses simultaneously.",
		nil, nil,
	)
	tasklistUpdates = prometheus.NewDesc(
		"process_metrics_tasklist_updates_total",
		"The number of times the collector recreated its list of tasks.",
		nil, nil,
	)
)

// schedstatCollector sums the per-thread schedstat counters from
// /proc/<pid>/task/*/schedstat on every scrape.
type schedstatCollector struct {
	pid             int
	threads         procfs.Procs
	taskDir         *os.File
	lastTaskCount   uint64
	taskListUpdates int64
	totalRunning    uint64
	totalRunnable   uint64
}

func (c *schedstatCollector) update() error {
	// procfs.AllThreads allocates generously, and the thread line-up rarely
	// changes: the runtime never retires the OS threads it creates. The
	// link count of the task directory tracks the number of threads, so we
	// only re-list when it moves.
	var taskStat syscall.Stat_t
	err := syscall.Fstat(int(c.taskDir.Fd()), &taskStat)
	if err != nil {
		return err
	}
	//nolint:unconvert // required for arm64 support
	newCount := uint64(taskStat.Nlink - 2)
	if newCount != c.lastTaskCount {
		c.taskListUpdates++
		c.threads, err = procfs.AllThreads(c.pid)
		if err != nil {
			return err
		}
		c.lastTaskCount = newCount
	}

	totalRunning := uint64(0)
	totalRunnable := uint64(0)
	for _, p := range c.threads {
		schedStat, oneErr := p.Schedstat()
		if oneErr != nil {
			// The thread disappeared. That does not invalidate the
			// counters of the others, so keep summing.
			err = oneErr
			continue
		}
		totalRunning += schedStat.RunningNanoseconds
		totalRunnable += schedStat.WaitingNanoseconds
	}

	c.totalRunning = totalRunning
	c.totalRunnable = totalRunnable
	return err
}

func (c *schedstatCollector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect refreshes the raw counters and converts them to SI seconds. The
// raw metrics are few and cheap to read, so every scrape gets fresh values.
func (c *schedstatCollector) Collect(ch chan<- prometheus.Metric) {
	_ = c.update()

	ch <- prometheus.MustNewConstMetric(
		runningTime,
		prometheus.CounterValue,
		float64(c.totalRunning)/1e9,
	)
	ch <- prometheus.MustNewConstMetric(
		runnableTime,
		prometheus.CounterValue,
		float64(c.totalRunnable)/1e9,
	)
	ch <- prometheus.MustNewConstMetric(
		goCores,
		prometheus.GaugeValue,
		float64(runtime.GOMAXPROCS(-1)),
	)
	ch <- prometheus.MustNewConstMetric(
		tasklistUpdates,
		prometheus.CounterValue,
		float64(c.taskListUpdates),
	)
}

// Register creates the scheduler statistics collector and registers it with
// reg. Call it once per process. Errors are safe to ignore; prometheus just
// lacks the scheduler metrics then.
func Register(reg prometheus.Registerer) error {
	pid := os.Getpid()
	taskPath := filepath.Join(procfs.DefaultMountPoint, strconv.Itoa(pid), "task")
	taskDir, err := os.Open(taskPath)
	if err != nil {
		return serrors.Wrap("opening /proc/pid/task failed", err, "pid", pid)
	}

	c := &schedstatCollector{
		pid:     pid,
		taskDir: taskDir,
	}
	if err := c.update(); err != nil {
		// A collector that cannot read schedstat is useless. Drop it.
		taskDir.Close()
		return serrors.Wrap("first schedstat update failed", err)
	}
	if err := reg.Register(c); err != nil {
		taskDir.Close()
		return serrors.Wrap("registration failed", err)
	}
	return nil
}
