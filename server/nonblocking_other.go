//go:build !linux
// +build !linux

// File: server/nonblocking_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/reactor"
)

// Nonblocking is only available on Linux.
type Nonblocking struct {
	cfg    config
	probes *control.Probes

	mu    sync.Mutex
	state engineState
}

// NewNonblocking creates a reactor server.
func NewNonblocking(opts ...Option) *Nonblocking {
	return &Nonblocking{cfg: newConfig("server_nonblocking", opts), probes: control.NewProbes()}
}

// Metrics returns the server's collectors.
func (s *Nonblocking) Metrics() *control.Metrics { return s.cfg.metrics }

// Probes returns the server's debug probes.
func (s *Nonblocking) Probes() *control.Probes { return s.probes }

// Start validates its arguments and fails with reactor.ErrNotSupported.
func (s *Nonblocking) Start(threads int, templates map[int]string) error {
	const op = "server.Start"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.checkStart(op); err != nil {
		return err
	}
	if _, err := parseBindings(op, threads, templates); err != nil {
		return err
	}
	return api.FatalIO(op, reactor.ErrNotSupported)
}

// Err always returns nil.
func (s *Nonblocking) Err() error { return nil }

// Done always returns nil.
func (s *Nonblocking) Done() <-chan struct{} { return nil }

// Ports always returns nil.
func (s *Nonblocking) Ports() []int { return nil }

// Stats always returns zero stats.
func (s *Nonblocking) Stats() api.SlotPoolStats { return api.SlotPoolStats{} }

// Close reports a lifecycle error; the server never starts.
func (s *Nonblocking) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.checkClose("server.Close")
}
