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

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/opennetfabric/gateway/gateway/adjacency"
	"github.com/opennetfabric/gateway/gateway/config"
	"github.com/opennetfabric/gateway/gateway/dataplane"
	"github.com/opennetfabric/gateway/gateway/iftable"
	"github.com/opennetfabric/gateway/gateway/leftright"
	"github.com/opennetfabric/gateway/gateway/nat/stateful"
	"github.com/opennetfabric/gateway/gateway/nat/stateless"
	"github.com/opennetfabric/gateway/gateway/pipeline"
	"github.com/opennetfabric/gateway/gateway/routing"
	"github.com/opennetfabric/gateway/gateway/vpcmap"
	"github.com/opennetfabric/gateway/pkg/log"
	"github.com/opennetfabric/gateway/pkg/metrics"
	"github.com/opennetfabric/gateway/pkg/nettype"
	"github.com/opennetfabric/gateway/pkg/packet"
	"github.com/opennetfabric/gateway/pkg/private/processmetrics"
	"github.com/opennetfabric/gateway/private/periodic"
)

const (
	// reconcileInterval is how often the configuration is re-projected
	// against the current adjacency snapshot.
	reconcileInterval = 10 * time.Second
	// sweepInterval bounds how long an expired NAT session can linger.
	sweepInterval = time.Minute
)

func newRunCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the gateway dataplane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}
	cmd.Flags().String("config", "", "gateway configuration file (required)")
	cmd.Flags().String("log.level", "info", "log level (debug|info|error)")
	cmd.Flags().String("log.format", "human", "log format (human|json)")
	cmd.Flags().String("metrics", ":30442", "prometheus metrics address")
	cmd.Flags().Bool("dump", false, "log every packet before ingress and after egress")
	cmd.MarkFlagRequired("config")
	v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("gateway")
	v.AutomaticEnv()
	return cmd
}

func run(v *viper.Viper) error {
	if err := log.Setup(log.Config{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}); err != nil {
		return err
	}
	defer log.HandlePanic()
	logger := log.New("component", "gateway")

	c, err := loadConfig(v.GetString("config"))
	if err != nil {
		return err
	}

	ifW, ifR := iftable.New()
	if err := seedInterfaces(ifW); err != nil {
		return err
	}
	adjW, adjR := adjacency.New()
	fibW, fibR := routing.NewTable()
	vpcW, vpcR := vpcmap.New()
	natW, natR := stateless.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := processmetrics.Register(reg); err != nil {
		logger.Info("Scheduler metrics unavailable", "err", err)
	}
	m := dataplane.NewMetrics(reg)

	resolver := adjacency.NewResolver(
		&adjacency.ARPProber{}, adjW, adjR,
		log.New("component", "adjacency"),
		adjacency.WithMetrics(adjacencyMetrics(reg)),
	)

	writers := config.Writers{Interfaces: ifW, Fibs: fibW, Vpcs: vpcW, Nat: natW}
	apply := func() error {
		requestNeighbors(c, ifR.Guard(), resolver)
		return config.Apply(c, writers, ifR.Guard(), adjR.Guard())
	}
	if err := apply(); err != nil {
		return err
	}

	pktIO, err := openPacketIO(forwardingInterfaces(ifR.Guard()))
	if err != nil {
		return err
	}
	defer pktIO.Close()

	var vtep dataplane.Vtep
	if c.Vtep != nil {
		vtep = dataplane.Vtep{IP: c.Vtep.IP, Mac: c.Vtep.Mac}
	}
	tables := dataplane.Tables{Interfaces: ifR, Fibs: fibR, Vpcs: vpcR, Nat: natR}
	sessionMetrics := statefulMetrics(reg)
	var plOpts []dataplane.PipelineOption
	if v.GetBool("dump") {
		plOpts = append(plOpts, dataplane.WithDump(log.New("component", "dump")))
	}
	build := func(worker int) pipeline.Stage {
		sessions := stateful.NewTable(stateful.WithMetrics(sessionMetrics))
		return pipeline.Chain(
			dataplane.NewPipeline(tables, vtep, sessions, m, plOpts...),
			sweepStage(sessions),
		)
	}
	engine := dataplane.NewEngine(pktIO, pktIO, c.Device.Workers, build, m)

	reconciler := periodic.Start(periodic.TaskFunc{
		TaskName: "reconcile",
		TaskFn: func(ctx context.Context) {
			if err := apply(); err != nil {
				logger.Error("Reconciling configuration", "err", err)
			}
		},
	}, reconcileInterval, reconcileInterval)
	defer reconciler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := &http.Server{
		Addr: v.GetString("metrics"),
		Handler: promhttp.HandlerFor(reg,
			promhttp.HandlerOpts{Registry: reg}),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer log.HandlePanic()
		return resolver.Run(ctx)
	})
	g.Go(func() error {
		defer log.HandlePanic()
		return engine.Run(ctx)
	})
	g.Go(func() error {
		defer log.HandlePanic()
		err := metricsSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		pktIO.Close()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	logger.Info("Gateway running",
		"hostname", c.Device.Hostname,
		"workers", c.Device.Workers,
		"metrics", v.GetString("metrics"))
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// seedInterfaces publishes the host's interfaces. Interface state tracking
// beyond this initial snapshot is left to the platform integration.
func seedInterfaces(w *leftright.Writer[iftable.Table]) error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifc := iftable.Interface{
			Index: uint32(ifi.Index),
			Name:  ifi.Name,
			Kind:  iftable.KindEthernet,
			Admin: iftable.AdminUp,
			Oper:  iftable.OperDown,
		}
		if ifi.Flags&net.FlagUp != 0 && ifi.Flags&net.FlagRunning != 0 {
			ifc.Oper = iftable.OperUp
		}
		if len(ifi.HardwareAddr) == 6 {
			copy(ifc.Mac[:], ifi.HardwareAddr)
		}
		if mtu, err := nettype.NewMtu(uint16(ifi.MTU)); err == nil {
			ifc.Mtu = mtu
		}
		w.Append(iftable.Add(ifc))
	}
	w.Publish()
	return nil
}

// forwardingInterfaces lists the interfaces the packet sockets bind to.
func forwardingInterfaces(t *iftable.Table) []iftable.Interface {
	var out []iftable.Interface
	for ifc := range t.All() {
		if ifc.Forwarding() {
			out = append(out, ifc)
		}
	}
	return out
}

// requestNeighbors asks the resolver for the next-hops named in the
// configuration, so their adjacencies are in place when routes project.
func requestNeighbors(c *config.InternalConfig, ifaces *iftable.Table,
	resolver *adjacency.Resolver) {

	for _, v := range c.Vrfs.All() {
		for _, r := range v.StaticRoutes {
			if !r.Via.IsValid() || r.Ifname == "" {
				continue
			}
			ifc, ok := ifaces.GetByName(r.Ifname)
			if !ok {
				continue
			}
			resolver.Request(adjacency.Key{Ifindex: ifc.Index, Addr: r.Via})
		}
	}
}

// sweepStage reaps expired NAT sessions from the worker's own goroutine, so
// the single-owner session table needs no locks.
func sweepStage(sessions *stateful.Table) pipeline.Stage {
	last := time.Now()
	return pipeline.Transform("nat-sweep", func(p *packet.Packet) {
		if now := time.Now(); now.Sub(last) >= sweepInterval {
			sessions.Sweep()
			last = now
		}
	})
}

func adjacencyMetrics(reg prometheus.Registerer) adjacency.Metrics {
	factory := promauto.With(reg)
	return adjacency.Metrics{
		Resolved: metrics.NewPromCounter(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_adjacency_resolved_total",
			Help: "Successful neighbor resolutions.",
		}, nil)),
		Failed: metrics.NewPromCounter(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_adjacency_failed_total",
			Help: "Failed neighbor resolutions.",
		}, nil)),
		Dropped: metrics.NewPromCounter(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_adjacency_dropped_requests_total",
			Help: "Resolution requests shed due to a full queue.",
		}, nil)),
		TableEntries: metrics.NewPromGauge(factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_adjacency_entries",
			Help: "Entries in the adjacency table.",
		}, nil)),
	}
}

func statefulMetrics(reg prometheus.Registerer) stateful.Metrics {
	factory := promauto.With(reg)
	return stateful.Metrics{
		SessionsCreated: metrics.NewPromCounter(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_nat_sessions_created_total",
			Help: "NAT sessions created.",
		}, nil)),
		SessionsReaped: metrics.NewPromCounter(factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_nat_sessions_reaped_total",
			Help: "NAT sessions reaped after idle expiry.",
		}, nil)),
		ActiveSessions: metrics.NewPromGauge(factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gateway_nat_sessions_active",
			Help: "Live NAT sessions.",
		}, nil)),
	}
}
