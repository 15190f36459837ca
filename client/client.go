// Package client
// Author: momentics <momentics@gmail.com>
//
// Hello protocol clients: a goroutine-per-worker blocking engine and a
// single-loop reactor engine over non-blocking sockets.

package client

import (
	"github.com/momentics/hioload-udp/api"
)

var (
	_ api.Client = (*Blocking)(nil)
	_ api.Client = (*Nonblocking)(nil)
)

// validate checks the arguments shared by both engines.
func validate(op, host string, port int, threads, requests int) error {
	switch {
	case host == "":
		return api.Configurationf(op, "empty host")
	case port < 1 || port > 65535:
		return api.Configurationf(op, "port %d out of range", port)
	case threads < 1:
		return api.Configurationf(op, "thread count %d must be positive", threads)
	case requests < 0:
		return api.Configurationf(op, "request count %d must not be negative", requests)
	}
	return nil
}
