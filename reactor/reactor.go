// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral selector types.

package reactor

import "errors"

// Interest is a set of readiness conditions a descriptor is registered for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

// Has reports whether every bit of o is in i.
func (i Interest) Has(o Interest) bool { return i&o == o }

func (i Interest) String() string {
	switch i {
	case 0:
		return "none"
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestRead | InterestWrite:
		return "read|write"
	default:
		return "invalid"
	}
}

// Event is one readiness notification returned by Wait.
type Event struct {
	Fd    int
	Ready Interest
	Err   bool // error or hang-up reported for Fd
}

// Readable reports read readiness; errors count as readable so that the
// pending error is collected by the next receive.
func (e Event) Readable() bool { return e.Ready.Has(InterestRead) || e.Err }

// Writable reports write readiness.
func (e Event) Writable() bool { return e.Ready.Has(InterestWrite) }

var (
	// ErrNotSupported is returned by NewSelector on platforms without epoll.
	ErrNotSupported = errors.New("reactor: this platform is not supported")
	// ErrSelectorClosed is returned by operations on a closed selector.
	ErrSelectorClosed = errors.New("reactor: selector is closed")
)
