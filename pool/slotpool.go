// File: pool/slotpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/internal/concurrency"
)

var _ api.SlotPool = (*SlotPool)(nil)

var (
	// ErrSlotNotBorrowed is returned when a free slot is returned again.
	ErrSlotNotBorrowed = errors.New("slot is not borrowed")
	// ErrSlotOutOfRange is returned for an index the pool never issued.
	ErrSlotOutOfRange = errors.New("slot index out of range")
)

// SlotPool is a fixed array of byte buffers with a lock-free free list.
// It is safe for concurrent use.
type SlotPool struct {
	bufs  [][]byte
	owned []atomic.Bool
	free  *concurrency.LockFreeQueue[int]

	inUse     atomic.Int64
	highWater atomic.Int64
	borrows   atomic.Int64
	misses    atomic.Int64
}

// NewSlotPool allocates capacity buffers of bufSize bytes each.
func NewSlotPool(capacity, bufSize int) (*SlotPool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("slot pool capacity %d: %w", capacity, api.ErrConfiguration)
	}
	if bufSize <= 0 {
		return nil, fmt.Errorf("slot pool buffer size %d: %w", bufSize, api.ErrConfiguration)
	}
	p := &SlotPool{
		bufs:  make([][]byte, capacity),
		owned: make([]atomic.Bool, capacity),
		free:  concurrency.NewLockFreeQueue[int](capacity),
	}
	for i := range p.bufs {
		p.bufs[i] = make([]byte, bufSize)
		p.free.Enqueue(i)
	}
	return p, nil
}

// Cap returns the number of slots.
func (p *SlotPool) Cap() int { return len(p.bufs) }

// InUse returns the number of borrowed slots.
func (p *SlotPool) InUse() int { return int(p.inUse.Load()) }

// Empty reports whether every slot is borrowed.
func (p *SlotPool) Empty() bool { return p.InUse() >= len(p.bufs) }

// Borrow takes a free slot.
func (p *SlotPool) Borrow() (int, bool) {
	slot, ok := p.free.Dequeue()
	if !ok {
		p.misses.Add(1)
		return -1, false
	}
	p.owned[slot].Store(true)
	p.borrows.Add(1)
	n := p.inUse.Add(1)
	for {
		hw := p.highWater.Load()
		if n <= hw || p.highWater.CompareAndSwap(hw, n) {
			break
		}
	}
	return slot, true
}

// Bytes returns the full-capacity buffer of slot.
func (p *SlotPool) Bytes(slot int) []byte {
	return p.bufs[slot][:cap(p.bufs[slot])]
}

// Return gives slot back.
func (p *SlotPool) Return(slot int) error {
	if slot < 0 || slot >= len(p.bufs) {
		return fmt.Errorf("return slot %d: %w", slot, ErrSlotOutOfRange)
	}
	if !p.owned[slot].CompareAndSwap(true, false) {
		return fmt.Errorf("return slot %d: %w", slot, ErrSlotNotBorrowed)
	}
	p.inUse.Add(-1)
	p.free.Enqueue(slot)
	return nil
}

// Borrowed reports whether slot is currently owned by a borrower.
func (p *SlotPool) Borrowed(slot int) bool {
	return slot >= 0 && slot < len(p.owned) && p.owned[slot].Load()
}

// Stats exposes accounting for observability.
func (p *SlotPool) Stats() api.SlotPoolStats {
	return api.SlotPoolStats{
		Capacity:  len(p.bufs),
		InUse:     int(p.inUse.Load()),
		HighWater: int(p.highWater.Load()),
		Borrows:   p.borrows.Load(),
		Misses:    p.misses.Load(),
	}
}
