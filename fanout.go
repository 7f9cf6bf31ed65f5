package block

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dudk/block/internal/rendezvous"
	"github.com/dudk/block/log"
	"github.com/dudk/block/metric"
)

// FanOut is a one-to-many connection. The producer and every consumer
// share a single buffer, access to it is ordered by a rendezvous round.
type FanOut struct {
	refs
	id       string
	name     string
	capacity int
	log      logrus.FieldLogger
	meter    *metric.Meter
	metrics  *metric.Metrics

	round     *rendezvous.Round
	buf       []Sample
	n         int // length of the batch in current round
	consumers []*Block

	teardown    sync.Once
	teardownErr error
}

func newFanOut(id, name string, capacity, readers int, l logrus.FieldLogger, m *metric.Metrics) *FanOut {
	return &FanOut{
		id:       id,
		name:     name,
		capacity: capacity,
		log:      l,
		metrics:  m,
		meter:    m.Meter(name, "fanout", capacity),
		round:    rendezvous.NewRound(readers),
		buf:      make([]Sample, capacity),
	}
}

// ID returns unique id of the connection.
func (f *FanOut) ID() string { return f.id }

// Name returns human readable name of the connection.
func (f *FanOut) Name() string { return f.name }

// Capacity returns buffer size in samples.
func (f *FanOut) Capacity() int { return f.capacity }

// Parties returns the number of parties of every round: the producer and
// all attached consumers.
func (f *FanOut) Parties() int { return f.round.Parties() }

// IsShutdownSignaled reports if producer signaled shutdown.
func (f *FanOut) IsShutdownSignaled() bool {
	return f.round.Released()
}

func (f *FanOut) release(endpoints int) error {
	if !f.drop(endpoints) {
		return nil
	}
	f.teardown.Do(func() {
		if err := f.round.Close(); err != nil {
			f.teardownErr = fmt.Errorf("fan-out %s: %w: %w", f.name, ErrBusy, err)
			return
		}
		f.buf = nil
		f.metrics.Forget(f.name)
		f.log.WithFields(logrus.Fields{
			"category":   log.Topology,
			"connection": f.name,
		}).Debug("fan-out connection torn down")
	})
	return f.teardownErr
}

// FanOutWriter is the outlet of a fan-out connection.
type FanOutWriter struct {
	*FanOut
	party *rendezvous.Party
}

// Write publishes samples to every consumer. It returns after all
// consumers finished reading them. Batches larger than capacity are
// rejected with ErrOverflow.
func (w *FanOutWriter) Write(samples []Sample) error {
	if len(samples) > w.capacity {
		return fmt.Errorf("%d samples into %d buffer: %w", len(samples), w.capacity, ErrOverflow)
	}
	if err := w.party.EnterWrite(); err != nil {
		return w.wrap(err)
	}
	w.n = copy(w.buf, samples)
	if err := w.party.EnterRead(); err != nil {
		return w.wrap(err)
	}
	if err := w.party.EndRound(); err != nil {
		return w.wrap(err)
	}
	w.meter.Push(len(samples))
	w.meter.Round()
	return nil
}

// Shutdown marks the connection as shut down and runs one more
// data-ready rendezvous, so every consumer parked there is released and
// observes shutdown. The writer must not be used afterwards.
func (w *FanOutWriter) Shutdown() error {
	if err := w.party.Release(); err != nil {
		return w.wrap(err)
	}
	w.log.WithFields(logrus.Fields{
		"category":   log.Shutdown,
		"connection": w.name,
	}).Debug("fan-out shutdown signaled")
	return nil
}

// Connection returns the fan-out connection.
func (w *FanOutWriter) Connection() Connection {
	return w.FanOut
}

func (w *FanOutWriter) wrap(err error) error {
	if errors.Is(err, rendezvous.ErrReleased) {
		return ErrShutdown
	}
	return err
}

// FanOutReader is the inlet of a fan-out connection.
type FanOutReader struct {
	*FanOut
	party *rendezvous.Party
}

// Read waits for the producer to publish a batch and calls fn with a
// read-only view of the shared buffer. The round ends after fn returns,
// even if fn failed. Once shutdown is observed, io.EOF is returned and fn
// is not called.
func (r *FanOutReader) Read(fn func([]Sample) error) error {
	if err := r.party.EnterRead(); err != nil {
		if errors.Is(err, rendezvous.ErrReleased) {
			return io.EOF
		}
		return err
	}
	n := r.n
	err := fn(r.buf[:n:n])
	if endErr := r.party.EndRound(); endErr != nil {
		return endErr
	}
	r.meter.Pop(n)
	return err
}

// Connection returns the fan-out connection.
func (r *FanOutReader) Connection() Connection {
	return r.FanOut
}
