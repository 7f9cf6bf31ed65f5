package block

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dudk/block/internal/ring"
	"github.com/dudk/block/log"
	"github.com/dudk/block/metric"
)

// Pipe is a point-to-point connection backed by a circular buffer.
type Pipe struct {
	refs
	id       string
	name     string
	capacity int
	log      logrus.FieldLogger
	meter    *metric.Meter
	metrics  *metric.Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	ring     *ring.Ring[Sample]
	shutdown atomic.Bool
	torn     bool
}

func newPipe(id, name string, capacity int, l logrus.FieldLogger, m *metric.Metrics) *Pipe {
	p := &Pipe{
		id:       id,
		name:     name,
		capacity: capacity,
		log:      l,
		metrics:  m,
		meter:    m.Meter(name, "pipe", capacity),
		ring:     ring.New[Sample](capacity),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// ID returns unique id of the connection.
func (p *Pipe) ID() string { return p.id }

// Name returns human readable name of the connection.
func (p *Pipe) Name() string { return p.name }

// Capacity returns buffer size in samples.
func (p *Pipe) Capacity() int { return p.capacity }

// Len returns number of buffered samples.
func (p *Pipe) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ring.Len()
}

// Push writes all samples into the buffer. It blocks while the buffer is
// full and returns ErrShutdown if the connection is shut down before all
// samples are written.
func (p *Pipe) Push(samples []Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(samples) > 0 {
		for p.ring.Free() == 0 && !p.shutdown.Load() {
			p.cond.Wait()
		}
		if p.shutdown.Load() {
			return ErrShutdown
		}
		n := p.ring.Write(samples)
		p.meter.Push(n)
		samples = samples[n:]
		p.cond.Broadcast()
	}
	return nil
}

// Pop blocks until at least atLeast samples are buffered or shutdown is
// signaled, then moves up to len(dst) samples into dst. After shutdown
// the remaining samples are returned even if there are less than atLeast.
// Once shutdown is signaled and the buffer is empty, io.EOF is returned.
func (p *Pipe) Pop(dst []Sample, atLeast int) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	need := min(max(1, atLeast), len(dst), p.capacity)

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.ring.Len() < need && !p.shutdown.Load() {
		p.cond.Wait()
	}
	n := p.ring.Read(dst)
	if n == 0 {
		return 0, io.EOF
	}
	p.meter.Pop(n)
	p.cond.Broadcast()
	return n, nil
}

// Shutdown sets the shutdown flag and wakes up blocked parties. Consumer
// drains buffered samples and then receives io.EOF. Calling it more than
// once has no effect.
func (p *Pipe) Shutdown() error {
	p.mu.Lock()
	if p.shutdown.Load() {
		p.mu.Unlock()
		return nil
	}
	p.shutdown.Store(true)
	p.mu.Unlock()
	p.cond.Broadcast()
	p.log.WithFields(logrus.Fields{
		"category":   log.Shutdown,
		"connection": p.name,
	}).Debug("point-to-point shutdown signaled")
	return nil
}

// IsShutdownSignaled reports if shutdown was signaled.
func (p *Pipe) IsShutdownSignaled() bool {
	return p.shutdown.Load()
}

func (p *Pipe) release(endpoints int) error {
	if !p.drop(endpoints) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.torn {
		return nil
	}
	p.torn = true
	p.ring.Reset()
	p.metrics.Forget(p.name)
	p.log.WithFields(logrus.Fields{
		"category":   log.Topology,
		"connection": p.name,
	}).Debug("point-to-point connection torn down")
	return nil
}

// pipeWriter is the outlet of a point-to-point connection.
type pipeWriter struct {
	*Pipe
}

func (w pipeWriter) Write(samples []Sample) error {
	return w.Push(samples)
}

func (w pipeWriter) Connection() Connection {
	return w.Pipe
}

// pipeReader is the inlet of a point-to-point connection.
type pipeReader struct {
	*Pipe
	mru     int
	scratch []Sample
}

func (r *pipeReader) Read(fn func([]Sample) error) error {
	n, err := r.Pop(r.scratch, r.mru)
	if err != nil {
		return err
	}
	return fn(r.scratch[:n])
}

func (r *pipeReader) Connection() Connection {
	return r.Pipe
}
