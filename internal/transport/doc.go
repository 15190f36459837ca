// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UDP socket plumbing for the engines: raw non-blocking datagram sockets for
// the selector-driven engines (Linux), and a net.ListenConfig that enables
// address reuse for the blocking engines.

package transport
