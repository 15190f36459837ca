//go:build linux
// +build linux

// File: reactor/selector_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7)-based selector.

package reactor

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Selector multiplexes readiness of registered descriptors. Register,
// Modify, Deregister and Wait belong to the loop goroutine; Wakeup may be
// called from any goroutine.
type Selector struct {
	epfd   int
	wakefd int
	raw    []unix.EpollEvent
	keys   map[int]Interest

	mu     sync.Mutex
	closed bool
}

// NewSelector creates an epoll instance able to report up to maxEvents per Wait.
func NewSelector(maxEvents int) (*Selector, error) {
	if maxEvents <= 0 {
		maxEvents = 128
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wakeup: %w", err)
	}
	return &Selector{
		epfd:   epfd,
		wakefd: wakefd,
		raw:    make([]unix.EpollEvent, maxEvents+1),
		keys:   make(map[int]Interest),
	}, nil
}

func toEpoll(i Interest) uint32 {
	var ev uint32
	if i.Has(InterestRead) {
		ev |= unix.EPOLLIN
	}
	if i.Has(InterestWrite) {
		ev |= unix.EPOLLOUT
	}
	return ev
}

// Register adds fd with the given interest.
func (s *Selector) Register(fd int, interest Interest) error {
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd=%d: %w", fd, err)
	}
	s.keys[fd] = interest
	return nil
}

// Modify replaces the interest of fd. Unchanged interest is a no-op.
func (s *Selector) Modify(fd int, interest Interest) error {
	cur, ok := s.keys[fd]
	if !ok {
		return fmt.Errorf("epoll ctl mod fd=%d: not registered", fd)
	}
	if cur == interest {
		return nil
	}
	ev := unix.EpollEvent{Events: toEpoll(interest), Fd: int32(fd)}
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl mod fd=%d: %w", fd, err)
	}
	s.keys[fd] = interest
	return nil
}

// Interest returns the current interest of fd.
func (s *Selector) Interest(fd int) (Interest, bool) {
	i, ok := s.keys[fd]
	return i, ok
}

// Deregister removes fd. The caller still owns and closes fd.
func (s *Selector) Deregister(fd int) error {
	if _, ok := s.keys[fd]; !ok {
		return nil
	}
	delete(s.keys, fd)
	if err := unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("epoll ctl del fd=%d: %w", fd, err)
	}
	return nil
}

// Len returns the number of registered descriptors.
func (s *Selector) Len() int { return len(s.keys) }

// Fd returns the epoll descriptor.
func (s *Selector) Fd() int { return s.epfd }

// Wait blocks up to timeout and appends ready events to dst. A negative
// timeout blocks indefinitely. An interrupted wait or a Wakeup returns with
// whatever is ready, possibly nothing.
func (s *Selector) Wait(dst []Event, timeout time.Duration) ([]Event, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	n, err := unix.EpollWait(s.epfd, s.raw, ms)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := s.raw[i]
		fd := int(ev.Fd)
		if fd == s.wakefd {
			s.drainWakeup()
			continue
		}
		out := Event{Fd: fd}
		if ev.Events&unix.EPOLLIN != 0 {
			out.Ready |= InterestRead
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			out.Ready |= InterestWrite
		}
		if ev.Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
			out.Err = true
		}
		dst = append(dst, out)
	}
	return dst, nil
}

// Wakeup interrupts a concurrent Wait.
func (s *Selector) Wakeup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSelectorClosed
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(s.wakefd, one[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("wakeup: %w", err)
	}
	return nil
}

func (s *Selector) drainWakeup() {
	var buf [8]byte
	for {
		if _, err := unix.Read(s.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Close releases the epoll and wakeup descriptors. Registered descriptors
// are not closed.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSelectorClosed
	}
	s.closed = true
	s.keys = nil
	errWake := unix.Close(s.wakefd)
	if err := unix.Close(s.epfd); err != nil {
		return fmt.Errorf("epoll close: %w", err)
	}
	if errWake != nil {
		return fmt.Errorf("eventfd close: %w", errWake)
	}
	return nil
}
