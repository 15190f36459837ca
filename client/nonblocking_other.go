//go:build !linux
// +build !linux

// File: client/nonblocking_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/reactor"
)

// Nonblocking is only available on Linux.
type Nonblocking struct {
	cfg config
}

// NewNonblocking creates a reactor client.
func NewNonblocking(opts ...Option) *Nonblocking {
	return &Nonblocking{cfg: newConfig("client_nonblocking", opts)}
}

// Metrics returns the client's collectors.
func (c *Nonblocking) Metrics() *control.Metrics { return c.cfg.metrics }

// Run always fails with reactor.ErrNotSupported.
func (c *Nonblocking) Run(_ context.Context, host string, port int, _ string, threads, requests int) error {
	if err := validate("client.Run", host, port, threads, requests); err != nil {
		return err
	}
	return api.FatalIO("client.Run", reactor.ErrNotSupported)
}
