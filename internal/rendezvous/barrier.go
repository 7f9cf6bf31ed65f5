// Package rendezvous implements the barrier synchronization used by
// fan-out connections.
package rendezvous

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned when a closed barrier is used.
	ErrClosed = errors.New("barrier is closed")
	// ErrBusy is returned when a barrier is closed while parties are
	// parked in it.
	ErrBusy = errors.New("barrier has waiting parties")
)

// Barrier is a cyclic barrier: every call to Wait blocks until the
// configured number of parties have called it, then all of them are
// released and the barrier is reset for the next generation.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation uint64
	closed     bool
}

// NewBarrier returns a barrier for the given number of parties.
func NewBarrier(parties int) *Barrier {
	if parties <= 0 {
		panic("rendezvous: parties must be positive")
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Parties returns the number of parties required to trip the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Wait blocks until all parties have arrived.
func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	generation := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}
	for generation == b.generation {
		b.cond.Wait()
	}
	return nil
}

// Waiting returns the number of parties currently parked.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.arrived
}

// Close marks barrier as unusable. It refuses to close while any party
// is parked, since those parties could never be released. Closing a
// closed barrier is a no-op.
func (b *Barrier) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.arrived > 0 {
		return ErrBusy
	}
	b.closed = true
	return nil
}
