package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CZERTAINLY/radarsim/internal/log"
	"github.com/CZERTAINLY/radarsim/internal/model"
	"github.com/CZERTAINLY/radarsim/internal/observability"
	"github.com/CZERTAINLY/radarsim/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run starts the transmitter and the receiver until interrupted or the duration expires",
	RunE:  doRun,
}

func runFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Duration("duration", 0, "stop the simulation after this time, 0 runs until interrupted")
	flags.Int("iterations", 0, "number of status lines each component prints, 0 is unbounded")
	flags.Duration("tick", model.DefaultTick, "period of every component")
	flags.Duration("grace", model.DefaultGracePeriod, "how long stop waits for components")
	flags.String("output", model.OutputStdout, "status line output: stdout, stderr, discard or a file path")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, eg :9090")
}

func doRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	attrs := slog.Group("radarsim",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	sink, err := service.OpenSink(config.Output)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			slog.WarnContext(ctx, "closing output has failed", "error", err)
		}
	}()

	return run(ctx, config, sink)
}

// run executes a single simulation. It returns when ctx is cancelled, the
// configured duration expires or every component has finished its
// iterations.
func run(ctx context.Context, cfg model.Config, sink model.Sink) error {
	cfg.ApplyDefaults()
	timing, err := cfg.Simulation.Timing()
	if err != nil {
		return err
	}
	ctx = log.ContextAttrs(ctx, slog.String("run_id", uuid.NewString()))

	tracing := cfg.Service.Tracing
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     tracing != nil && (tracing.Enabled == nil || *tracing.Enabled),
		ServiceName: serviceName(tracing),
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.WithoutCancel(ctx), shutdownTracing)

	var collector *observability.Collector
	addr := metricsAddr(cfg.Service.Metrics)
	if addr != "" {
		collector, err = observability.NewCollector(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("initializing metrics: %w", err)
		}
	}

	supervisor, err := service.SupervisorFromConfig(ctx, cfg, sink)
	if err != nil {
		return err
	}
	supervisor = supervisor.WithMetrics(collector)
	defer func() {
		_ = supervisor.Close()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if collector != nil {
		serveMetrics(gctx, g, addr, collector)
	}

	g.Go(func() error {
		defer cancel()
		if err := supervisor.Start(gctx); err != nil {
			return err
		}

		var expired <-chan time.Time
		if timing.Duration > 0 {
			timer := time.NewTimer(timing.Duration)
			defer timer.Stop()
			expired = timer.C
		}

		select {
		case <-gctx.Done():
			slog.InfoContext(ctx, "simulation interrupted")
		case <-expired:
			slog.InfoContext(ctx, "simulation duration expired", "duration", timing.Duration.String())
		case <-supervisor.Done():
			slog.InfoContext(ctx, "all components finished")
		}
		return supervisor.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, collector *observability.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		slog.InfoContext(ctx, "serving metrics", "addr", addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving metrics: %w", err)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func metricsAddr(m *model.Metrics) string {
	if m == nil || (m.Enabled != nil && !*m.Enabled) {
		return ""
	}
	return m.Addr
}

func serviceName(t *model.Tracing) string {
	if t == nil || t.ServiceName == "" {
		return "radarsim"
	}
	return t.ServiceName
}
