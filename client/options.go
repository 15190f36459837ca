// File: client/options.go
// Package client defines functional options for the Hello clients.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"net"
	"time"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/protocol"
)

// Dialer opens the datagram connection used by one blocking worker.
type Dialer func(ctx context.Context, address string) (net.Conn, error)

// Observer is called after a response has been verified.
type Observer func(worker, index int, response []byte)

// Option customizes client initialization.
type Option func(*config)

type config struct {
	log        logr.Logger
	metrics    *control.Metrics
	timeout    time.Duration
	bufferSize int
	dialer     Dialer
	observer   Observer
}

func newConfig(engine string, opts []Option) config {
	cfg := config{
		log:        logr.Discard(),
		timeout:    protocol.DefaultTimeout,
		bufferSize: protocol.DefaultBufferSize,
		dialer:     dialUDP,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.metrics == nil {
		cfg.metrics = control.NewMetrics(engine)
	}
	return cfg
}

func dialUDP(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "udp", address)
}

// WithLogger sets the engine logger.
func WithLogger(log logr.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMetrics shares a metrics set; by default each engine owns one.
func WithMetrics(m *control.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithTimeout bounds how long a request waits for its response before
// it is resent. The reactor client uses it as its selector timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBufferSize sets the receive buffer size per worker.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithDialer replaces the UDP dialer of the blocking client.
func WithDialer(d Dialer) Option {
	return func(c *config) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithObserver registers a callback for verified responses. It runs on
// the worker's goroutine and must not block.
func WithObserver(fn Observer) Option {
	return func(c *config) { c.observer = fn }
}
