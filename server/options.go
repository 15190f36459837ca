// File: server/options.go
// Package server defines functional options for the Hello servers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-udp/affinity"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/protocol"
)

// Option customizes server initialization.
type Option func(*config)

type config struct {
	log         logr.Logger
	metrics     *control.Metrics
	bufferSize  int
	pollTimeout time.Duration
	queueSize   int
	cpu         int
}

func newConfig(engine string, opts []Option) config {
	cfg := config{
		log:         logr.Discard(),
		bufferSize:  protocol.DefaultBufferSize,
		pollTimeout: protocol.DefaultTimeout,
		cpu:         affinity.Any,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = control.NewMetrics(engine)
	}
	return cfg
}

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMetrics shares a metrics set; by default each engine owns one.
func WithMetrics(m *control.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithBufferSize sets the receive buffer (and slot) size in bytes.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithPollTimeout bounds each selector wait of the reactor server.
func WithPollTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithQueueSize bounds the blocking server's executor queue. Listeners
// block once it is full. Defaults to the thread count.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithCPU pins the reactor loop thread to cpu. affinity.Any disables pinning.
func WithCPU(cpu int) Option {
	return func(c *config) { c.cpu = cpu }
}
