// File: server/blocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking server: one listener goroutine per port feeding a bounded executor.

package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/internal/concurrency"
	"github.com/momentics/hioload-udp/internal/transport"
	"github.com/momentics/hioload-udp/protocol"
)

type listener struct {
	conn     net.PacketConn
	port     int
	template protocol.Template
}

// Blocking answers every datagram from a shared pool of threadCount
// workers; answers leave through the socket the request arrived on.
type Blocking struct {
	cfg    config
	probes *control.Probes

	mu        sync.Mutex
	state     engineState
	listeners []*listener
	exec      *concurrency.Executor
	wg        sync.WaitGroup
}

// NewBlocking creates a blocking server.
func NewBlocking(opts ...Option) *Blocking {
	s := &Blocking{cfg: newConfig("server_blocking", opts), probes: control.NewProbes()}
	s.probes.Register("ports", func() any { return s.Ports() })
	s.probes.Register("executor", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.exec == nil {
			return nil
		}
		return s.exec.Stats()
	})
	return s
}

// Metrics returns the server's collectors.
func (s *Blocking) Metrics() *control.Metrics { return s.cfg.metrics }

// Probes returns the server's debug probes.
func (s *Blocking) Probes() *control.Probes { return s.probes }

// Start binds every port of templates and starts serving.
func (s *Blocking) Start(threads int, templates map[int]string) error {
	const op = "server.Start"
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.checkStart(op); err != nil {
		return err
	}
	bindings, err := parseBindings(op, threads, templates)
	if err != nil {
		return err
	}

	lc := transport.ListenConfig()
	listeners := make([]*listener, 0, len(bindings))
	for _, b := range bindings {
		conn, err := lc.ListenPacket(context.Background(), "udp", ":"+strconv.Itoa(b.port))
		if err != nil {
			for _, l := range listeners {
				_ = l.conn.Close()
			}
			return api.FatalIO(op, err)
		}
		port := conn.LocalAddr().(*net.UDPAddr).Port
		listeners = append(listeners, &listener{conn: conn, port: port, template: b.template})
	}

	queue := s.cfg.queueSize
	if queue == 0 {
		queue = threads
	}
	exec, err := concurrency.NewExecutor(threads, queue)
	if err != nil {
		for _, l := range listeners {
			_ = l.conn.Close()
		}
		return api.Configurationf(op, "%v", err)
	}

	s.exec = exec
	s.listeners = listeners
	s.state = stateRunning
	for _, l := range listeners {
		s.wg.Add(1)
		go s.listen(l)
	}
	s.cfg.log.V(0).Info("blocking server started", "ports", s.portsLocked(), "threads", threads)
	return nil
}

func (s *Blocking) listen(l *listener) {
	defer s.wg.Done()
	log := s.cfg.log.WithValues("port", l.port)
	m := s.cfg.metrics
	for {
		buf := make([]byte, s.cfg.bufferSize)
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			m.TransientErrors.Inc()
			log.V(1).Info("receive failed", "err", err)
			continue
		}
		m.RequestsReceived.Inc()
		req := buf[:n]
		if err := s.exec.Submit(func() { s.answer(l, req, from) }); err != nil {
			return
		}
	}
}

func (s *Blocking) answer(l *listener, req []byte, to net.Addr) {
	resp := l.template.AppendExpand(make([]byte, 0, len(req)+len(l.template.String())), req)
	if _, err := l.conn.WriteTo(resp, to); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			s.cfg.metrics.TransientErrors.Inc()
			s.cfg.log.V(1).Info("send failed", "port", l.port, "to", to.String(), "err", err)
		}
		return
	}
	s.cfg.metrics.AnswersSent.Inc()
	s.cfg.log.V(1).Info("answer sent", "port", l.port, "to", to.String(), "request", string(req))
}

// Ports returns the bound ports in ascending order of the requested ones.
func (s *Blocking) Ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portsLocked()
}

func (s *Blocking) portsLocked() []int {
	out := make([]int, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l.port)
	}
	return out
}

// Close closes every socket, waits for the listeners and drains the executor.
func (s *Blocking) Close() error {
	const op = "server.Close"
	s.mu.Lock()
	if err := s.state.checkClose(op); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = stateClosed
	listeners := s.listeners
	s.mu.Unlock()

	var err error
	for _, l := range listeners {
		err = multierr.Append(err, l.conn.Close())
	}
	s.wg.Wait()
	s.exec.Close()
	s.cfg.log.V(0).Info("blocking server closed")
	return err
}
