//go:build linux
// +build linux

// File: server/nonblocking_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor server. One goroutine owns the selector and every socket;
// template expansion runs on the executor and completed slots come back
// through a lock-free queue that the loop drains without blocking.

package server

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"
	"github.com/go-logr/logr"
	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-udp/affinity"
	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/internal/concurrency"
	"github.com/momentics/hioload-udp/internal/transport"
	"github.com/momentics/hioload-udp/pool"
	"github.com/momentics/hioload-udp/protocol"
	"github.com/momentics/hioload-udp/reactor"
)

// channel is a bound socket and the answers owed on it.
type channel struct {
	sock     *transport.Datagram
	port     int
	template protocol.Template
	ready    *queue.Queue // completed slot indices, FIFO
	inflight int          // slots submitted and not yet completed
}

// answer is the per-slot record. The loop fills channel and destination
// before submitting; the worker fills payload before publishing the slot.
type answer struct {
	ch      *channel
	to      unix.Sockaddr
	payload []byte
}

// Nonblocking serves every port from one selector loop. The number of
// requests in flight never exceeds the slot pool capacity; once the pool
// is exhausted no channel reads until answers drain. A channel is
// write-interested only while it holds completed answers; workers wake the
// selector when they complete one.
type Nonblocking struct {
	cfg    config
	probes *control.Probes

	mu       sync.Mutex
	state    engineState
	sel      *reactor.Selector
	channels map[int]*channel
	ports    []int
	slots    *pool.SlotPool
	exec     *concurrency.Executor
	done     chan struct{}
	stop     chan struct{}

	// shared with workers
	records     []answer
	completions *concurrency.LockFreeQueue[int]

	errMu sync.Mutex
	err   error
}

// NewNonblocking creates a reactor server.
func NewNonblocking(opts ...Option) *Nonblocking {
	s := &Nonblocking{cfg: newConfig("server_nonblocking", opts), probes: control.NewProbes()}
	s.probes.Register("ports", func() any { return s.Ports() })
	s.probes.Register("slot_pool", func() any { return s.Stats() })
	return s
}

// Metrics returns the server's collectors.
func (s *Nonblocking) Metrics() *control.Metrics { return s.cfg.metrics }

// Probes returns the server's debug probes.
func (s *Nonblocking) Probes() *control.Probes { return s.probes }

// Start binds every port of templates and launches the loop.
func (s *Nonblocking) Start(threads int, templates map[int]string) error {
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
	slots, err := pool.NewSlotPool(threads, s.cfg.bufferSize)
	if err != nil {
		return err
	}

	sel, err := reactor.NewSelector(len(bindings))
	if err != nil {
		return api.FatalIO(op, err)
	}
	channels := make(map[int]*channel, len(bindings))
	ports := make([]int, 0, len(bindings))
	fail := func(err error) error {
		for _, ch := range channels {
			_ = ch.sock.Close()
		}
		_ = sel.Close()
		return api.FatalIO(op, err)
	}
	for _, b := range bindings {
		sock, err := transport.OpenBound(b.port)
		if err != nil {
			return fail(err)
		}
		port, err := sock.LocalPort()
		if err != nil {
			_ = sock.Close()
			return fail(err)
		}
		channels[sock.Fd()] = &channel{sock: sock, port: port, template: b.template, ready: queue.New()}
		ports = append(ports, port)
		if err := sel.Register(sock.Fd(), reactor.InterestRead); err != nil {
			return fail(err)
		}
	}

	exec, err := concurrency.NewExecutor(threads, threads)
	if err != nil {
		return fail(err)
	}

	s.sel = sel
	s.channels = channels
	s.ports = ports
	s.slots = slots
	s.exec = exec
	s.records = make([]answer, threads)
	s.completions = concurrency.NewLockFreeQueue[int](threads)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.state = stateRunning

	go s.run()
	s.cfg.log.V(0).Info("reactor server started", "ports", ports, "threads", threads)
	return nil
}

func (s *Nonblocking) run() {
	runtime.LockOSThread()
	defer close(s.done)
	// a pinned thread stays locked and exits with the loop
	if s.cfg.cpu == affinity.Any {
		defer runtime.UnlockOSThread()
	} else if err := affinity.SetAffinity(s.cfg.cpu); err != nil {
		s.cfg.log.Error(err, "cpu pinning failed", "cpu", s.cfg.cpu)
	}

	events := make([]reactor.Event, 0, len(s.channels))
	for {
		select {
		case <-s.stop:
			return
		default:
		}

		progress := s.drainCompletions() > 0

		var err error
		events, err = s.sel.Wait(events[:0], s.cfg.pollTimeout)
		if err != nil {
			s.fail(err)
			return
		}

		if len(events) == 0 {
			for fd, ch := range s.channels {
				if interest, _ := s.sel.Interest(fd); interest.Has(reactor.InterestWrite) {
					progress = s.flush(ch) || progress
				}
			}
		}
		for _, ev := range events {
			ch, ok := s.channels[ev.Fd]
			if !ok {
				continue
			}
			interest, _ := s.sel.Interest(ev.Fd)
			if ev.Readable() && interest.Has(reactor.InterestRead) {
				progress = s.receive(ch) || progress
			}
			if ev.Writable() && interest.Has(reactor.InterestWrite) {
				progress = s.flush(ch) || progress
			}
		}

		exhausted := s.slots.Empty()
		for fd, ch := range s.channels {
			current, _ := s.sel.Interest(fd)
			next := nextInterest(exhausted, ch.ready.Length())
			if current.Has(reactor.InterestRead) && !next.Has(reactor.InterestRead) {
				s.cfg.metrics.Backpressure.Inc()
			}
			s.setInterest(ch, next)
		}
		s.cfg.metrics.Outstanding.Set(float64(s.slots.InUse()))

		// the loop thread is locked; let workers run on a busy single P
		if !progress && len(events) > 0 {
			runtime.Gosched()
		}
	}
}

// nextInterest is the interest a channel is left with after an iteration.
// An exhausted pool removes read interest from every channel, including
// ones owning no slot; those ports cannot read until slots return. Write
// interest follows completed answers only.
func nextInterest(exhausted bool, ready int) reactor.Interest {
	var next reactor.Interest
	if !exhausted {
		next = reactor.InterestRead
	}
	if ready > 0 {
		next |= reactor.InterestWrite
	}
	return next
}

func (s *Nonblocking) log(ch *channel) logr.Logger {
	return s.cfg.log.WithValues("port", ch.port)
}

// drainCompletions moves completed slots to their channel's answer queue
// and returns how many moved.
func (s *Nonblocking) drainCompletions() int {
	moved := 0
	for {
		slot, ok := s.completions.Dequeue()
		if !ok {
			return moved
		}
		rec := &s.records[slot]
		rec.ch.inflight--
		rec.ch.ready.Add(slot)
		current, _ := s.sel.Interest(rec.ch.sock.Fd())
		s.setInterest(rec.ch, current|reactor.InterestWrite)
		moved++
	}
}

// receive reads one request into a free slot and submits its expansion.
// It reports whether a datagram was consumed.
func (s *Nonblocking) receive(ch *channel) bool {
	m := s.cfg.metrics
	slot, ok := s.slots.Borrow()
	if !ok {
		m.Backpressure.Inc()
		current, _ := s.sel.Interest(ch.sock.Fd())
		s.setInterest(ch, current&^reactor.InterestRead)
		return false
	}
	buf := s.slots.Bytes(slot)
	n, from, err := ch.sock.RecvFrom(buf)
	if err != nil {
		s.release(ch, slot)
		if !transport.IsWouldBlock(err) {
			m.TransientErrors.Inc()
			s.log(ch).V(1).Info("receive failed", "err", err)
			return true
		}
		return false
	}
	if from == nil {
		s.release(ch, slot)
		return true
	}
	m.RequestsReceived.Inc()

	req := make([]byte, n)
	copy(req, buf[:n])
	s.records[slot] = answer{ch: ch, to: from}
	tpl := ch.template
	task := func() {
		s.records[slot].payload = tpl.AppendExpand(buf[:0], req)
		for !s.completions.Enqueue(slot) {
			runtime.Gosched()
		}
		// fails only once the selector is closed on shutdown
		_ = s.sel.Wakeup()
	}
	if err := s.exec.TrySubmit(task); err != nil {
		s.records[slot] = answer{}
		s.release(ch, slot)
		m.TransientErrors.Inc()
		s.log(ch).Error(err, "submit failed")
		return true
	}
	ch.inflight++
	s.log(ch).V(1).Info("request received", "from", transport.SockaddrString(from), "request", string(req), "slot", slot)
	return true
}

// flush sends the oldest completed answer of ch, if any, and reports
// whether one left the queue.
func (s *Nonblocking) flush(ch *channel) bool {
	if ch.ready.Length() == 0 {
		return false
	}
	slot := ch.ready.Peek().(int)
	rec := &s.records[slot]
	err := ch.sock.SendTo(rec.payload, rec.to)
	if transport.IsWouldBlock(err) {
		return false
	}
	ch.ready.Remove()
	if err != nil {
		s.cfg.metrics.TransientErrors.Inc()
		s.log(ch).V(1).Info("send failed", "to", transport.SockaddrString(rec.to), "err", err)
	} else {
		s.cfg.metrics.AnswersSent.Inc()
		s.log(ch).V(1).Info("answer sent", "to", transport.SockaddrString(rec.to), "slot", slot)
	}
	*rec = answer{}
	s.release(ch, slot)
	next := reactor.InterestRead
	if ch.ready.Length() > 0 {
		next |= reactor.InterestWrite
	}
	s.setInterest(ch, next)
	return true
}

func (s *Nonblocking) release(ch *channel, slot int) {
	if err := s.slots.Return(slot); err != nil {
		s.log(ch).Error(err, "slot return failed", "slot", slot)
	}
}

func (s *Nonblocking) setInterest(ch *channel, interest reactor.Interest) {
	if err := s.sel.Modify(ch.sock.Fd(), interest); err != nil {
		s.log(ch).Error(err, "modify interest failed", "interest", interest.String())
	}
}

func (s *Nonblocking) fail(err error) {
	s.errMu.Lock()
	s.err = api.FatalIO("server.Wait", err)
	s.errMu.Unlock()
	s.cfg.log.Error(err, "selector failed, loop stopped")
}

// Err returns the error that stopped the loop, if any.
func (s *Nonblocking) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Done is closed when the loop exits. It is nil before Start.
func (s *Nonblocking) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Ports returns the bound ports in ascending order of the requested ones.
func (s *Nonblocking) Ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.ports))
	copy(out, s.ports)
	return out
}

// Stats reports slot pool usage; zero before Start.
func (s *Nonblocking) Stats() api.SlotPoolStats {
	s.mu.Lock()
	slots := s.slots
	s.mu.Unlock()
	if slots == nil {
		return api.SlotPoolStats{}
	}
	return slots.Stats()
}

// Close stops the loop, closes every socket and the selector, drains the
// executor and returns every slot still borrowed.
func (s *Nonblocking) Close() error {
	const op = "server.Close"
	s.mu.Lock()
	if err := s.state.checkClose(op); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = stateClosed
	s.mu.Unlock()

	close(s.stop)
	var err error
	if werr := s.sel.Wakeup(); werr != nil {
		err = multierr.Append(err, werr)
	}
	<-s.done

	for _, ch := range s.channels {
		err = multierr.Append(err, ch.sock.Close())
	}
	err = multierr.Append(err, s.sel.Close())
	s.exec.Close()

	for slot := 0; slot < s.slots.Cap(); slot++ {
		if s.slots.Borrowed(slot) {
			_ = s.slots.Return(slot)
		}
	}
	s.cfg.metrics.Outstanding.Set(0)
	s.cfg.log.V(0).Info("reactor server closed")
	return err
}
