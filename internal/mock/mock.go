// Package mock provides block routines for tests.
package mock

import (
	"errors"
	"io"
	"sync"

	"github.com/dudk/block"
)

// Generator writes Batches batches of Size samples and shuts its output
// down. Sample values are consecutive integers in the real part.
type Generator struct {
	Batches int
	Size    int
	// Delay is called before every write if set.
	Delay func()
	// SkipShutdown leaves the output open after the last batch.
	SkipShutdown bool
}

// Routine returns generator routine.
func (g *Generator) Routine() block.Routine {
	return func(_ *block.Block, ports block.Ports) error {
		batch := make([]block.Sample, g.Size)
		var next float32
		for i := 0; i < g.Batches; i++ {
			for j := range batch {
				batch[j] = complex(next, 0)
				next++
			}
			if g.Delay != nil {
				g.Delay()
			}
			if err := ports.Out.Write(batch); err != nil {
				return err
			}
		}
		if g.SkipShutdown {
			return nil
		}
		return ports.Out.Shutdown()
	}
}

// Expected returns all samples the generator writes.
func (g *Generator) Expected() []block.Sample {
	samples := make([]block.Sample, 0, g.Batches*g.Size)
	for i := 0; i < g.Batches*g.Size; i++ {
		samples = append(samples, complex(float32(i), 0))
	}
	return samples
}

// Collector reads input until io.EOF and keeps every batch.
type Collector struct {
	// Delay is called while the batch is being read if set.
	Delay func()
	// ErrorOnCall is returned after the first batch if set.
	ErrorOnCall error

	mu      sync.Mutex
	batches [][]block.Sample
}

// Routine returns collector routine.
func (c *Collector) Routine() block.Routine {
	return func(_ *block.Block, ports block.Ports) error {
		for {
			err := ports.In.Read(func(samples []block.Sample) error {
				if c.Delay != nil {
					c.Delay()
				}
				c.mu.Lock()
				c.batches = append(c.batches, append([]block.Sample(nil), samples...))
				c.mu.Unlock()
				return c.ErrorOnCall
			})
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// Batches returns collected batches.
func (c *Collector) Batches() [][]block.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// Samples returns collected batches concatenated.
func (c *Collector) Samples() []block.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	samples := make([]block.Sample, 0)
	for _, b := range c.batches {
		samples = append(samples, b...)
	}
	return samples
}

// Relay copies input to output in batches of producer MTU and shuts
// output down at the end of input.
func Relay() block.Routine {
	return func(b *block.Block, ports block.Ports) error {
		forward := func(samples []block.Sample) error {
			return block.WriteBatches(ports.Out, b.Producer().MTU, samples)
		}
		for {
			err := ports.In.Read(forward)
			if errors.Is(err, io.EOF) {
				return ports.Out.Shutdown()
			}
			if err != nil {
				return err
			}
		}
	}
}
