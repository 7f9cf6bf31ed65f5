package block

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dudk/block/log"
)

// Routine is the function executed by a started block. It reads from
// ports.In, writes to ports.Out and returns when input reports io.EOF or
// when the block has nothing more to produce. Returned error is available
// with Block.Wait.
type Routine func(b *Block, ports Ports) error

// Block is a processing stage running on its own OS thread.
type Block struct {
	id       string
	name     string
	baseLog  logrus.FieldLogger
	log      logrus.FieldLogger
	producer *Producer
	consumer *Consumer
	routine  Routine

	started atomic.Bool
	running atomic.Bool
	done    chan struct{}
	err     error
}

// New creates a new block and applies provided options.
func New(options ...Option) (*Block, error) {
	b := &Block{
		id:      newUID(),
		baseLog: log.Silent(),
		done:    make(chan struct{}),
	}
	for _, option := range options {
		if err := option(b); err != nil {
			return nil, err
		}
	}
	fields := logrus.Fields{"id": b.id}
	if b.name != "" {
		fields["block"] = b.name
	}
	b.log = b.baseLog.WithFields(fields)
	return b, nil
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// ID returns unique id of the block.
func (b *Block) ID() string { return b.id }

// Name returns the name of the block.
func (b *Block) Name() string { return b.name }

// Producer returns producer endpoint or nil.
func (b *Block) Producer() *Producer { return b.producer }

// Consumer returns consumer endpoint or nil.
func (b *Block) Consumer() *Consumer { return b.consumer }

// Logger returns the block logger.
func (b *Block) Logger() logrus.FieldLogger { return b.log }

// String returns the name of block and its id.
func (b *Block) String() string {
	if b.name == "" {
		return b.id
	}
	return fmt.Sprintf("%v %v", b.name, b.id)
}

// Done is closed when the routine returns.
func (b *Block) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the routine returns and returns its error. It must
// only be called on started blocks.
func (b *Block) Wait() error {
	<-b.done
	return b.err
}

// Start launches the block routine on a dedicated OS thread. A block can
// be started only once.
func Start(b *Block) error {
	if b.routine == nil {
		return fmt.Errorf("%v: %w", b, ErrNoRoutine)
	}
	if !b.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%v: %w", b, ErrAlreadyStarted)
	}
	ports := Ports{
		In:  b.consumer.In(),
		Out: b.producer.Out(),
	}
	launched := make(chan struct{})
	go b.run(ports, launched)
	<-launched
	return nil
}

func (b *Block) run(ports Ports, launched chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	b.running.Store(true)
	b.log.WithFields(logrus.Fields{
		"category": log.Lifecycle,
		"thread":   threadID(),
	}).Debug("block started")
	close(launched)

	b.err = b.routine(b, ports)
	if b.err != nil {
		b.log.WithField("category", log.Lifecycle).Errorf("block failed: %v", b.err)
	} else {
		b.log.WithField("category", log.Lifecycle).Debug("block finished")
	}
	b.closePorts(ports)
	b.running.Store(false)
	close(b.done)
}

// closePorts signals shutdown on the output the routine left open, so
// downstream consumers reach io.EOF. If the routine failed, its
// point-to-point input is shut down too and upstream writes return
// ErrShutdown instead of blocking on a buffer nobody drains.
func (b *Block) closePorts(ports Ports) {
	if ports.Out != nil && !ports.Out.IsShutdownSignaled() {
		if err := ports.Out.Shutdown(); err != nil {
			b.log.WithField("category", log.Shutdown).Warnf("output shutdown: %v", err)
		}
	}
	if b.err == nil || ports.In == nil {
		return
	}
	if p, ok := ports.In.Connection().(*Pipe); ok {
		_ = p.Shutdown()
	}
}

// StartAll starts every block and returns the number of blocks started.
// Failures don't prevent other blocks from starting, all of them are
// returned combined.
func StartAll(blocks ...*Block) (int, error) {
	var (
		started int
		errs    error
	)
	for _, b := range blocks {
		if err := Start(b); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		started++
	}
	return started, errs
}

// IsRunning reports if block routine is executing.
func IsRunning(b *Block) bool {
	return b.running.Load()
}

// AnyRunning reports if at least one of blocks is running.
func AnyRunning(blocks ...*Block) bool {
	for _, b := range blocks {
		if IsRunning(b) {
			return true
		}
	}
	return false
}

// WaitAll waits for every started block and returns their errors
// combined. Blocks that were never started are skipped.
func WaitAll(blocks ...*Block) error {
	var errs error
	for _, b := range blocks {
		if !b.started.Load() {
			continue
		}
		if err := b.Wait(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%v: %w", b, err))
		}
	}
	return errs
}
