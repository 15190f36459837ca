//go:build linux
// +build linux

// internal/transport/datagram_linux.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-blocking UDP sockets over raw descriptors for selector-driven loops.

package transport

import (
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Datagram is a non-blocking UDP socket. Send/receive calls return
// unix.EAGAIN when they would block; see IsWouldBlock.
type Datagram struct {
	fd     int
	family int
	closed atomic.Bool
}

// OpenDatagram creates a non-blocking UDP socket of the given family
// (unix.AF_INET or unix.AF_INET6) with SO_REUSEADDR set.
func OpenDatagram(family int) (*Datagram, error) {
	fd, err := unix.Socket(family, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_UDP)
	if err != nil {
		return nil, fmt.Errorf("socket create: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	return &Datagram{fd: fd, family: family}, nil
}

// OpenBound opens an IPv4 socket bound to the wildcard address on port.
func OpenBound(port int) (*Datagram, error) {
	d, err := OpenDatagram(unix.AF_INET)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(d.fd, &unix.SockaddrInet4{Port: port}); err != nil {
		d.Close()
		return nil, fmt.Errorf("bind port %d: %w", port, err)
	}
	return d, nil
}

// OpenConnected opens a socket whose destination is fixed to addr.
func OpenConnected(addr *net.UDPAddr) (*Datagram, error) {
	sa, family, err := ToSockaddr(addr)
	if err != nil {
		return nil, err
	}
	d, err := OpenDatagram(family)
	if err != nil {
		return nil, err
	}
	if err := unix.Connect(d.fd, sa); err != nil {
		d.Close()
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return d, nil
}

// Fd returns the raw descriptor for selector registration.
func (d *Datagram) Fd() int { return d.fd }

// LocalPort returns the bound port.
func (d *Datagram) LocalPort() (int, error) {
	sa, err := unix.Getsockname(d.fd)
	if err != nil {
		return 0, fmt.Errorf("getsockname: %w", err)
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port, nil
	case *unix.SockaddrInet6:
		return a.Port, nil
	default:
		return 0, fmt.Errorf("getsockname: unexpected address %T", sa)
	}
}

// Send writes p to the connected destination.
func (d *Datagram) Send(p []byte) (int, error) {
	return unix.Write(d.fd, p)
}

// SendTo writes p to the given destination.
func (d *Datagram) SendTo(p []byte, to unix.Sockaddr) error {
	return unix.Sendto(d.fd, p, 0, to)
}

// Recv reads one datagram from the connected peer into p.
func (d *Datagram) Recv(p []byte) (int, error) {
	return unix.Read(d.fd, p)
}

// RecvFrom reads one datagram into p and reports its source.
func (d *Datagram) RecvFrom(p []byte) (int, unix.Sockaddr, error) {
	return unix.Recvfrom(d.fd, p, 0)
}

// Close closes the descriptor once.
func (d *Datagram) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("close fd=%d: %w", d.fd, err)
	}
	return nil
}

// Closed reports whether Close has been called.
func (d *Datagram) Closed() bool { return d.closed.Load() }

// IsWouldBlock reports whether err means the call would have blocked.
func IsWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// ToSockaddr converts a resolved UDP address.
func ToSockaddr(addr *net.UDPAddr) (unix.Sockaddr, int, error) {
	if ip4 := addr.IP.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], ip4)
		return sa, unix.AF_INET, nil
	}
	if ip6 := addr.IP.To16(); ip6 != nil {
		sa := &unix.SockaddrInet6{Port: addr.Port}
		copy(sa.Addr[:], ip6)
		return sa, unix.AF_INET6, nil
	}
	return nil, 0, fmt.Errorf("unsupported address %s", addr)
}

// SockaddrString renders sa for logs.
func SockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return (&net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}).String()
	case *unix.SockaddrInet6:
		return (&net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}).String()
	default:
		return fmt.Sprintf("%T", sa)
	}
}
