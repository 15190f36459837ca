// Package api
// Author: momentics
//
// Executor contract for offloading work from engine goroutines.

package api

// Executor abstracts a bounded pool of worker goroutines.
type Executor interface {
	// Submit schedules task for execution.
	Submit(task func()) error

	// NumWorkers returns current number of worker routines.
	NumWorkers() int

	// Close stops accepting tasks and waits for queued ones to finish.
	Close()
}
