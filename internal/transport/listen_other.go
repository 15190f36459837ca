//go:build !unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "net"

// ListenConfig returns the default config on platforms without x/sys/unix.
func ListenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
