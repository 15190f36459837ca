// File: internal/cli/command.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cobra commands wiring the Hello engines.

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/client"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/internal/logging"
	"github.com/momentics/hioload-udp/server"
)

// NewRootCommand builds the `hello` command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hello",
		Short:         "Hello protocol exerciser over UDP",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newClientCommand(), newServerCommand())
	return root
}

func newClientCommand() *cobra.Command {
	opts := NewClientOptions()
	cmd := &cobra.Command{
		Use:   "client HOST PORT PREFIX THREADS REQUESTS",
		Short: "Send numbered requests and verify every answer",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(args); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			log, sync, err := newLogger(opts.Logging())
			if err != nil {
				return err
			}
			defer sync()
			return RunClient(cmd.Context(), opts, log)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func newServerCommand() *cobra.Command {
	opts := NewServerOptions()
	cmd := &cobra.Command{
		Use:   "server PORT THREADS [TEMPLATE]",
		Short: "Answer requests by expanding TEMPLATE until interrupted",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Complete(args); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			log, sync, err := newLogger(opts.Logging())
			if err != nil {
				return err
			}
			defer sync()
			return RunServer(cmd.Context(), opts, log)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func newLogger(opts logging.Options) (logr.Logger, func(), error) {
	log, zl, err := logging.New(opts)
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	return log, func() { _ = zl.Sync() }, nil
}

// RunClient runs one client engine to completion.
func RunClient(ctx context.Context, opts *ClientOptions, log logr.Logger) error {
	copts := []client.Option{client.WithLogger(log), client.WithTimeout(opts.Timeout)}
	var c api.Client
	if opts.Nonblocking {
		c = client.NewNonblocking(copts...)
	} else {
		c = client.NewBlocking(copts...)
	}

	start := time.Now()
	err := c.Run(ctx, opts.Host, opts.Port, opts.Prefix, opts.Threads, opts.Requests)
	if err != nil {
		log.Error(err, "client stopped", "code", api.CodeOf(err).String())
		return err
	}
	log.Info("client finished", "threads", opts.Threads, "requests", opts.Requests, "elapsed", time.Since(start))
	return nil
}

type serverEngine interface {
	api.Server
	Metrics() *control.Metrics
	Ports() []int
}

// RunServer serves until ctx is done.
func RunServer(ctx context.Context, opts *ServerOptions, log logr.Logger) error {
	sopts := []server.Option{
		server.WithLogger(log),
		server.WithPollTimeout(opts.PollTimeout),
		server.WithCPU(opts.CPU),
	}
	var (
		s      serverEngine
		failed <-chan struct{}
	)
	if opts.Nonblocking {
		ns := server.NewNonblocking(sopts...)
		s = ns
		if err := ns.Start(opts.Threads, map[int]string{opts.Port: opts.Template}); err != nil {
			return err
		}
		failed = ns.Done()
		defer func() {
			if err := ns.Err(); err != nil {
				log.Error(err, "reactor loop failed")
			}
		}()
	} else {
		s = server.NewBlocking(sopts...)
		if err := s.Start(opts.Threads, map[int]string{opts.Port: opts.Template}); err != nil {
			return err
		}
	}
	log.Info("server listening", "ports", s.Ports(), "template", opts.Template, "nonblocking", opts.Nonblocking)

	var metricsSrv *http.Server
	if opts.MetricsAddr != "" {
		metricsSrv = serveMetrics(opts.MetricsAddr, s.Metrics(), log)
	}

	select {
	case <-ctx.Done():
	case <-failed:
	}

	err := s.Close()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := metricsSrv.Shutdown(shutdownCtx); serr != nil {
			log.Error(serr, "metrics server shutdown")
		}
	}
	log.Info("server stopped")
	return err
}

func serveMetrics(addr string, m *control.Metrics, log logr.Logger) *http.Server {
	runtimeMetrics := prometheus.NewRegistry()
	runtimeMetrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	gatherers := append(control.Gatherers(m), runtimeMetrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server failed", "addr", addr)
		}
	}()
	log.Info("serving metrics", "addr", addr)
	return srv
}

// Execute runs the command tree with ctx and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	cmd.SetErr(os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
