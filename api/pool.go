// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the fixed-capacity buffer slot pool used to bound in-flight requests.

package api

// SlotPool hands out indexed byte buffers. A slot is owned either by the pool
// or by exactly one borrower.
type SlotPool interface {
	// Borrow takes a free slot; ok is false when every slot is borrowed.
	Borrow() (slot int, ok bool)

	// Bytes returns the full-capacity buffer backing slot.
	Bytes(slot int) []byte

	// Return gives slot back to the pool. Returning a slot that is not
	// borrowed is an error.
	Return(slot int) error

	// Stats exposes accounting for observability.
	Stats() SlotPoolStats
}

// SlotPoolStats aggregates slot usage.
type SlotPoolStats struct {
	Capacity  int
	InUse     int
	HighWater int   // largest InUse ever observed
	Borrows   int64 // successful borrows
	Misses    int64 // borrows refused because the pool was empty
}
