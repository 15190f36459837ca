// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-memory datagram connections with a per-connection delivery policy.

package fake

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/momentics/hioload-udp/protocol"
)

// Action decides the fate of one request written to a Conn.
type Action int

const (
	// Deliver answers the request with the expanded template.
	Deliver Action = iota
	// Drop loses the request.
	Drop
	// Corrupt answers with a response that does not contain the request.
	Corrupt
)

// Policy maps the n-th write (1-based) on a connection to an Action.
type Policy func(n int, request string) Action

// DeliverAll never loses anything.
func DeliverAll() Policy {
	return func(int, string) Action { return Deliver }
}

// DropEvery drops every k-th write.
func DropEvery(k int) Policy {
	return func(n int, _ string) Action {
		if k > 0 && n%k == 0 {
			return Drop
		}
		return Deliver
	}
}

// Script replays actions in order and delivers once they run out.
func Script(actions ...Action) Policy {
	return func(n int, _ string) Action {
		if n <= len(actions) {
			return actions[n-1]
		}
		return Deliver
	}
}

// Network hands out Conns that share one template and policy.
type Network struct {
	template protocol.Template
	policy   Policy

	mu    sync.Mutex
	conns []*Conn
}

// NewNetwork creates a network answering with template.
func NewNetwork(template protocol.Template, policy Policy) *Network {
	if policy == nil {
		policy = DeliverAll()
	}
	return &Network{template: template, policy: policy}
}

// Dial matches the client dialer signature.
func (n *Network) Dial(ctx context.Context, address string) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := newConn(address, n.template, n.policy)
	n.mu.Lock()
	n.conns = append(n.conns, c)
	n.mu.Unlock()
	return c, nil
}

// Conns returns every connection dialed so far.
func (n *Network) Conns() []*Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Conn, len(n.conns))
	copy(out, n.conns)
	return out
}

// Conn is an in-memory net.Conn answering Hello requests.
type Conn struct {
	remote   string
	template protocol.Template
	policy   Policy

	mu       sync.Mutex
	sent     []string
	inbox    chan []byte
	closed   chan struct{}
	isClosed bool
	deadline time.Time
}

func newConn(remote string, template protocol.Template, policy Policy) *Conn {
	return &Conn{
		remote:   remote,
		template: template,
		policy:   policy,
		inbox:    make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

// Write records the request and applies the policy.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	if c.isClosed {
		c.mu.Unlock()
		return 0, net.ErrClosed
	}
	req := string(p)
	c.sent = append(c.sent, req)
	action := c.policy(len(c.sent), req)
	c.mu.Unlock()

	switch action {
	case Deliver:
		c.push([]byte(c.template.Expand(req)))
	case Corrupt:
		c.push([]byte(c.template.Expand("corrupted")))
	}
	return len(p), nil
}

func (c *Conn) push(b []byte) {
	select {
	case c.inbox <- b:
	default:
	}
}

// Read returns the next response, or a timeout error once the read deadline passes.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, timeoutError{}
		}
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case b := <-c.inbox:
		return copy(p, b), nil
	case <-c.closed:
		return 0, net.ErrClosed
	case <-timeout:
		return 0, timeoutError{}
	}
}

// Sent returns every request written, in order.
func (c *Conn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosed
}

// Close implements net.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return net.ErrClosed
	}
	c.isClosed = true
	close(c.closed)
	return nil
}

func (c *Conn) LocalAddr() net.Addr  { return addr("fake-local") }
func (c *Conn) RemoteAddr() net.Addr { return addr(c.remote) }

// SetDeadline implements net.Conn; only reads honor deadlines.
func (c *Conn) SetDeadline(t time.Time) error { return c.SetReadDeadline(t) }

// SetReadDeadline implements net.Conn.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

// SetWriteDeadline implements net.Conn.
func (c *Conn) SetWriteDeadline(time.Time) error { return nil }

type addr string

func (a addr) Network() string { return "fake-udp" }
func (a addr) String() string  { return string(a) }

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}
