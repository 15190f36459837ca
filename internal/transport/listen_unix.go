//go:build unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenConfig returns a config whose sockets have SO_REUSEADDR set.
func ListenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
}
