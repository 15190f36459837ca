// File: client/blocking.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking client: one goroutine and one socket per worker.

package client

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/protocol"
)

// Blocking sends requests from threadCount goroutines, each waiting for
// its answer with a read deadline and resending the same index on loss.
type Blocking struct {
	cfg config
}

// NewBlocking creates a blocking client.
func NewBlocking(opts ...Option) *Blocking {
	return &Blocking{cfg: newConfig("client_blocking", opts)}
}

// Metrics returns the client's collectors.
func (c *Blocking) Metrics() *control.Metrics { return c.cfg.metrics }

// Run blocks until every worker has verified all of its requests or ctx
// is cancelled, in which case ctx.Err() is returned.
func (c *Blocking) Run(ctx context.Context, host string, port int, prefix string, threads, requests int) error {
	if err := validate("client.Run", host, port, threads, requests); err != nil {
		return err
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))
	c.cfg.log.V(0).Info("blocking client started", "address", address, "threads", threads, "requests", requests)

	var g errgroup.Group
	for w := 1; w <= threads; w++ {
		worker := w
		g.Go(func() error {
			return c.worker(ctx, address, prefix, worker, requests)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (c *Blocking) worker(ctx context.Context, address, prefix string, worker, requests int) error {
	log := c.cfg.log.WithValues("worker", worker)
	m := c.cfg.metrics

	conn, err := c.cfg.dialer(ctx, address)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error(err, "open socket failed")
		return nil
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	buf := make([]byte, c.cfg.bufferSize)
	req := make([]byte, 0, len(prefix)+24)
	for index := 1; index <= requests; {
		if err := ctx.Err(); err != nil {
			return err
		}
		req = protocol.AppendRequest(req[:0], prefix, worker, index)
		deadline := time.Now().Add(c.cfg.timeout)

		if _, err := conn.Write(req); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.TransientErrors.Inc()
			log.V(1).Info("send failed", "request", string(req), "err", err)
			waitUntil(ctx, deadline)
			m.Retries.Inc()
			continue
		}
		m.RequestsSent.Inc()
		log.V(1).Info("Request was sent", "request", string(req))

		if err := conn.SetReadDeadline(deadline); err != nil {
			return api.FatalIO("client.SetReadDeadline", err)
		}
		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ne net.Error
			if !errors.As(err, &ne) || !ne.Timeout() {
				// a refused datagram fails fast; still spend the attempt's window
				m.TransientErrors.Inc()
				log.V(1).Info("receive failed", "request", string(req), "err", err)
				waitUntil(ctx, deadline)
			}
			m.Retries.Inc()
			continue
		}
		if !protocol.Verify(buf[:n], req) {
			m.ResponsesRejected.Inc()
			m.Retries.Inc()
			log.V(1).Info("unexpected answer", "request", string(req), "response", string(buf[:n]))
			continue
		}
		m.ResponsesAccepted.Inc()
		log.V(1).Info("Success answer", "request", string(req), "response", string(buf[:n]))
		if c.cfg.observer != nil {
			c.cfg.observer(worker, index, buf[:n])
		}
		index++
	}
	return nil
}

func waitUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
