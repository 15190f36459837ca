//go:build !linux
// +build !linux

// File: reactor/selector_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "time"

// Selector is unavailable on this platform.
type Selector struct{}

// NewSelector returns ErrNotSupported.
func NewSelector(int) (*Selector, error) { return nil, ErrNotSupported }

func (s *Selector) Register(int, Interest) error { return ErrNotSupported }
func (s *Selector) Modify(int, Interest) error { return ErrNotSupported }
func (s *Selector) Interest(int) (Interest, bool) { return 0, false }
func (s *Selector) Deregister(int) error { return ErrNotSupported }
func (s *Selector) Len() int { return 0 }
func (s *Selector) Fd() int { return -1 }
func (s *Selector) Wakeup() error { return ErrNotSupported }
func (s *Selector) Close() error { return ErrNotSupported }
func (s *Selector) Wait(dst []Event, _ time.Duration) ([]Event, error) {
	return dst, ErrNotSupported
}
