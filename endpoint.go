package block

import (
	"sync/atomic"
)

// Sample is a single complex baseband sample.
type Sample = complex64

// Shape defines which topology an endpoint can be part of.
type Shape int

const (
	// Single endpoints are linked point-to-point.
	Single Shape = iota + 1
	// Multi endpoints are linked one producer to many consumers.
	Multi
)

func (s Shape) String() string {
	switch s {
	case Single:
		return "single"
	case Multi:
		return "multi"
	}
	return "unknown"
}

type (
	// Producer is the output endpoint of a block.
	Producer struct {
		Shape Shape
		// MTU is the largest batch the block writes at once.
		MTU int
		out Outlet
	}

	// Consumer is the input endpoint of a block.
	Consumer struct {
		Shape Shape
		// MRU is the smallest batch the block is willing to read.
		MRU int
		in  Inlet
	}

	// Connection is either a *Pipe or a *FanOut.
	Connection interface {
		ID() string
		Name() string
		// Capacity returns buffer size in samples.
		Capacity() int
		// IsShutdownSignaled reports if producer signaled shutdown. It
		// never blocks.
		IsShutdownSignaled() bool
		// Refs returns the number of endpoints attached.
		Refs() int
		release(endpoints int) error
	}

	// Outlet is the producer side of a connection.
	Outlet interface {
		// Write blocks until samples are accepted by the connection.
		Write([]Sample) error
		// Shutdown tells consumers that no more samples will be written.
		Shutdown() error
		IsShutdownSignaled() bool
		Connection() Connection
	}

	// Inlet is the consumer side of a connection.
	Inlet interface {
		// Read blocks until the next batch is available and calls fn
		// with it. The batch is only valid during the call. Read returns
		// io.EOF once the producer signaled shutdown and no data left.
		Read(fn func([]Sample) error) error
		IsShutdownSignaled() bool
		Connection() Connection
	}

	// Ports is the view of block endpoints handed to the routine. Its
	// values are fixed when the block starts.
	Ports struct {
		In  Inlet
		Out Outlet
	}
)

// Out returns the connected outlet or nil.
func (p *Producer) Out() Outlet {
	if p == nil {
		return nil
	}
	return p.out
}

// In returns the connected inlet or nil.
func (c *Consumer) In() Inlet {
	if c == nil {
		return nil
	}
	return c.in
}

// IsShutdownSignaled reports if producer of the connection signaled
// shutdown.
func IsShutdownSignaled(c Connection) bool {
	return c.IsShutdownSignaled()
}

// refs counts endpoints attached to a connection.
type refs struct {
	n atomic.Int32
}

func (r *refs) Refs() int {
	return int(r.n.Load())
}

func (r *refs) acquire() {
	r.n.Add(1)
}

// drop detaches endpoints and reports if the last one was detached.
func (r *refs) drop(endpoints int) bool {
	return r.n.Add(int32(-endpoints)) <= 0
}

// WriteBatches writes samples to out in batches of at most mtu samples.
// Stages that forward their input use it to keep writes within the MTU
// they declared.
func WriteBatches(out Outlet, mtu int, samples []Sample) error {
	if mtu <= 0 {
		return ErrZeroMTU
	}
	for len(samples) > 0 {
		n := min(mtu, len(samples))
		if err := out.Write(samples[:n]); err != nil {
			return err
		}
		samples = samples[n:]
	}
	return nil
}
