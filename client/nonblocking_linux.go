//go:build linux
// +build linux

// File: client/nonblocking_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor client: one selector loop over a non-blocking socket per worker.

package client

import (
	"context"
	"net"
	"runtime"
	"strconv"

	"github.com/go-logr/logr"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/internal/transport"
	"github.com/momentics/hioload-udp/protocol"
	"github.com/momentics/hioload-udp/reactor"
)

type channelState uint8

const (
	awaitingWrite channelState = iota
	awaitingRead
)

func (s channelState) String() string {
	if s == awaitingRead {
		return "awaiting-read"
	}
	return "awaiting-write"
}

// channel is the per-worker state kept while its socket is registered.
type channel struct {
	sock   *transport.Datagram
	worker int
	index  int
	state  channelState
	buf    []byte
	req    []byte
}

// Nonblocking drives every worker from a single goroutine. A worker
// sends when its socket is writable and verifies when it is readable;
// an idle selector timeout resends every request still awaiting its answer.
type Nonblocking struct {
	cfg config
}

// NewNonblocking creates a reactor client.
func NewNonblocking(opts ...Option) *Nonblocking {
	return &Nonblocking{cfg: newConfig("client_nonblocking", opts)}
}

// Metrics returns the client's collectors.
func (c *Nonblocking) Metrics() *control.Metrics { return c.cfg.metrics }

// Run blocks until every worker has verified all of its requests or ctx
// is cancelled. Socket and selector failures are fatal.
func (c *Nonblocking) Run(ctx context.Context, host string, port int, prefix string, threads, requests int) error {
	if err := validate("client.Run", host, port, threads, requests); err != nil {
		return err
	}
	if requests == 0 {
		return nil
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return api.Configurationf("client.Run", "resolve %s: %v", host, err)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sel, err := reactor.NewSelector(threads)
	if err != nil {
		return api.FatalIO("client.NewSelector", err)
	}
	defer sel.Close()

	channels := make(map[int]*channel, threads)
	defer func() {
		for _, ch := range channels {
			_ = ch.sock.Close()
		}
	}()
	for w := 1; w <= threads; w++ {
		sock, err := transport.OpenConnected(addr)
		if err != nil {
			return api.FatalIO("client.OpenConnected", err)
		}
		ch := &channel{
			sock:   sock,
			worker: w,
			index:  1,
			buf:    make([]byte, c.cfg.bufferSize),
			req:    make([]byte, 0, len(prefix)+24),
		}
		channels[sock.Fd()] = ch
		if err := sel.Register(sock.Fd(), reactor.InterestWrite); err != nil {
			return api.FatalIO("client.Register", err)
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = sel.Wakeup() })
	defer stop()

	c.cfg.log.V(0).Info("reactor client started", "address", addr.String(), "threads", threads, "requests", requests)
	l := loop{cfg: &c.cfg, sel: sel, channels: channels, prefix: prefix, requests: requests}
	events := make([]reactor.Event, 0, threads)
	for len(channels) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err = sel.Wait(events[:0], c.cfg.timeout)
		if err != nil {
			return api.FatalIO("client.Wait", err)
		}
		if len(events) == 0 {
			l.resendAwaiting()
			continue
		}
		for _, ev := range events {
			ch, ok := channels[ev.Fd]
			if !ok {
				continue
			}
			switch {
			case ch.state == awaitingWrite && ev.Writable():
				l.send(ch)
			case ch.state == awaitingRead && ev.Readable():
				l.receive(ch)
			}
		}
	}
	c.cfg.log.V(0).Info("reactor client finished")
	return nil
}

type loop struct {
	cfg      *config
	sel      *reactor.Selector
	channels map[int]*channel
	prefix   string
	requests int
}

func (l *loop) logger(ch *channel) logr.Logger {
	return l.cfg.log.WithValues("worker", ch.worker)
}

func (l *loop) send(ch *channel) {
	ch.req = protocol.AppendRequest(ch.req[:0], l.prefix, ch.worker, ch.index)
	if _, err := ch.sock.Send(ch.req); err != nil {
		if !transport.IsWouldBlock(err) {
			l.cfg.metrics.TransientErrors.Inc()
			l.logger(ch).V(1).Info("send failed", "request", string(ch.req), "err", err)
		}
		return
	}
	l.cfg.metrics.RequestsSent.Inc()
	l.logger(ch).V(1).Info("Request was sent", "request", string(ch.req))
	l.transition(ch, awaitingRead)
}

func (l *loop) receive(ch *channel) {
	n, err := ch.sock.Recv(ch.buf)
	if err != nil {
		if !transport.IsWouldBlock(err) {
			// stay awaiting read; the idle timeout resends
			l.cfg.metrics.TransientErrors.Inc()
			l.logger(ch).V(1).Info("receive failed", "request", string(ch.req), "err", err)
		}
		return
	}
	resp := ch.buf[:n]
	if !protocol.Verify(resp, ch.req) {
		l.cfg.metrics.ResponsesRejected.Inc()
		l.cfg.metrics.Retries.Inc()
		l.logger(ch).V(1).Info("unexpected answer", "request", string(ch.req), "response", string(resp))
		l.transition(ch, awaitingWrite)
		return
	}
	l.cfg.metrics.ResponsesAccepted.Inc()
	l.logger(ch).V(1).Info("Success answer", "request", string(ch.req), "response", string(resp))
	if l.cfg.observer != nil {
		l.cfg.observer(ch.worker, ch.index, resp)
	}
	ch.index++
	if ch.index > l.requests {
		l.finish(ch)
		return
	}
	l.transition(ch, awaitingWrite)
}

// resendAwaiting treats every outstanding request as lost.
func (l *loop) resendAwaiting() {
	for _, ch := range l.channels {
		if ch.state != awaitingRead {
			continue
		}
		l.cfg.metrics.Retries.Inc()
		if _, err := ch.sock.Send(ch.req); err != nil {
			if !transport.IsWouldBlock(err) {
				l.cfg.metrics.TransientErrors.Inc()
				l.logger(ch).V(1).Info("resend failed", "request", string(ch.req), "err", err)
			}
			continue
		}
		l.cfg.metrics.RequestsSent.Inc()
		l.logger(ch).V(1).Info("Request was sent", "request", string(ch.req), "retry", true)
	}
}

func (l *loop) transition(ch *channel, next channelState) {
	ch.state = next
	interest := reactor.InterestWrite
	if next == awaitingRead {
		interest = reactor.InterestRead
	}
	if err := l.sel.Modify(ch.sock.Fd(), interest); err != nil {
		l.logger(ch).Error(err, "modify interest failed", "state", next.String())
	}
}

func (l *loop) finish(ch *channel) {
	fd := ch.sock.Fd()
	if err := l.sel.Deregister(fd); err != nil {
		l.logger(ch).Error(err, "deregister failed")
	}
	if err := ch.sock.Close(); err != nil {
		l.logger(ch).Error(err, "close failed")
	}
	delete(l.channels, fd)
	l.logger(ch).V(1).Info("worker finished", "requests", l.requests)
}
