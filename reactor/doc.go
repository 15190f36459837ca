// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a level-triggered readiness selector with explicit
// per-descriptor interest sets, a bounded wait and a wakeup handle.
// Linux uses epoll(7); other platforms get a stub that reports ErrNotSupported.
package reactor
