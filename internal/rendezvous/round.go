package rendezvous

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/multierr"
)

var (
	// ErrPhase is returned when a party calls round methods out of order.
	ErrPhase = errors.New("round method called out of order")
	// ErrReleased is returned once the writer has released the round.
	ErrReleased = errors.New("round released")
)

// phase of a single party within a round.
type phase int

const (
	idle phase = iota
	writing
	reading
	released
)

func (p phase) String() string {
	switch p {
	case idle:
		return "idle"
	case writing:
		return "writing"
	case reading:
		return "reading"
	case released:
		return "released"
	}
	return "unknown"
}

// Round couples two barriers into the write/read alternation of a
// single writer and several readers sharing one buffer:
//
//	writer: EnterWrite -> fill buffer -> EnterRead -> EndRound
//	reader:               EnterRead -> read buffer -> EndRound
//
// EnterRead trips the data-ready barrier, so readers never see a buffer
// that is still being written. EndRound trips the consumers-ready
// barrier, so the writer cannot start the next write while any reader
// is still reading.
type Round struct {
	dataReady      *Barrier
	consumersReady *Barrier
	released       atomic.Bool
	writer         atomic.Bool
}

// NewRound returns a round for one writer and the given number of
// readers.
func NewRound(readers int) *Round {
	if readers < 0 {
		panic("rendezvous: negative readers")
	}
	return &Round{
		dataReady:      NewBarrier(readers + 1),
		consumersReady: NewBarrier(readers + 1),
	}
}

// Parties returns the number of parties taking part in every round.
func (r *Round) Parties() int {
	return r.dataReady.Parties()
}

// Waiting returns the number of parties parked at data-ready.
func (r *Round) Waiting() int {
	return r.dataReady.Waiting()
}

// Released reports if the writer has released the round. It never blocks.
func (r *Round) Released() bool {
	return r.released.Load()
}

// Writer returns the writer party. There is exactly one writer per
// round, the second call panics.
func (r *Round) Writer() *Party {
	if !r.writer.CompareAndSwap(false, true) {
		panic("rendezvous: writer already taken")
	}
	return &Party{round: r, writer: true}
}

// Reader returns a new reader party. The caller is responsible for not
// creating more readers than the round was built for.
func (r *Round) Reader() *Party {
	return &Party{round: r}
}

// Close closes both barriers. It fails if any party is still parked.
func (r *Round) Close() error {
	return multierr.Combine(
		r.dataReady.Close(),
		r.consumersReady.Close(),
	)
}

// Party is a handle of a single participant. It is not safe for
// concurrent use; each goroutine owns its own party.
type Party struct {
	round  *Round
	writer bool
	phase  phase
}

// EnterWrite grants the writer exclusive access to the shared buffer.
func (p *Party) EnterWrite() error {
	if p.phase == released {
		return ErrReleased
	}
	if !p.writer || p.phase != idle {
		return p.errPhase("EnterWrite")
	}
	p.phase = writing
	return nil
}

// EnterRead waits until the writer has finished the write of this
// round. Readers receive ErrReleased instead of data once the writer
// released the round and must not read the buffer in that case.
func (p *Party) EnterRead() error {
	switch {
	case p.phase == released:
		return ErrReleased
	case p.writer && p.phase != writing:
		return p.errPhase("EnterRead")
	case !p.writer && p.phase != idle:
		return p.errPhase("EnterRead")
	}
	if err := p.round.dataReady.Wait(); err != nil {
		return err
	}
	if !p.writer && p.round.released.Load() {
		p.phase = released
		return ErrReleased
	}
	p.phase = reading
	return nil
}

// EndRound waits until every party finished reading. After it returns
// the writer may start the next round.
func (p *Party) EndRound() error {
	if p.phase == released {
		return ErrReleased
	}
	if p.phase != reading {
		return p.errPhase("EndRound")
	}
	if err := p.round.consumersReady.Wait(); err != nil {
		return err
	}
	p.phase = idle
	return nil
}

// Release is called by the writer instead of the next EnterRead. It
// marks the round released and performs one extra data-ready rendezvous
// so every reader parked there wakes up and observes the release. The
// writer must not touch the round afterwards.
func (p *Party) Release() error {
	if p.phase == released {
		return nil
	}
	if !p.writer || p.phase == reading {
		return p.errPhase("Release")
	}
	p.round.released.Store(true)
	p.phase = released
	return p.round.dataReady.Wait()
}

func (p *Party) errPhase(method string) error {
	role := "reader"
	if p.writer {
		role = "writer"
	}
	return fmt.Errorf("%s %s in %v phase: %w", role, method, p.phase, ErrPhase)
}
