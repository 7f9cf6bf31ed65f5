package block

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dudk/block/log"
)

// Buffer sizing multipliers. Producer must never stall in the middle of a
// burst and consumer must always be able to get its minimal batch.
const (
	ProducerMTUMultiplier = 8
	ConsumerMRUMultiplier = 2
)

// Capacity returns buffer size for a producer with given MTU and
// consumers with given MRUs.
func Capacity(mtu int, mrus ...int) int {
	maxMRU := 0
	for _, mru := range mrus {
		maxMRU = max(maxMRU, mru)
	}
	return max(ProducerMTUMultiplier*mtu, ConsumerMRUMultiplier*maxMRU)
}

// newFanOutReader returns an unbound inlet for a fan-out sink. Its party
// and connection are assigned once every sink is attached. Tests replace
// it to inject attach failures.
var newFanOutReader = func(sink *Block) (*FanOutReader, error) {
	return &FanOutReader{}, nil
}

// ConnectOneToOne links single-shaped producer of source with
// single-shaped consumer of sink through a new point-to-point connection.
// Both blocks must not be started.
func ConnectOneToOne(source, sink *Block, options ...ConnectOption) (*Pipe, error) {
	if err := checkProducer(source, Single); err != nil {
		return nil, err
	}
	if err := checkConsumer(sink, Single); err != nil {
		return nil, err
	}
	cfg := newConnectConfig(options, fmt.Sprintf("%s->%s", label(source), label(sink)))
	capacity := Capacity(source.producer.MTU, sink.consumer.MRU)
	p := newPipe(newUID(), cfg.name, capacity, source.log, cfg.metrics)

	source.producer.out = pipeWriter{p}
	p.acquire()
	sink.consumer.in = &pipeReader{
		Pipe:    p,
		mru:     sink.consumer.MRU,
		scratch: make([]Sample, capacity),
	}
	p.acquire()

	source.log.WithFields(logrus.Fields{
		"category":   log.Topology,
		"connection": p.name,
		"mtu":        source.producer.MTU,
		"mru":        sink.consumer.MRU,
		"capacity":   capacity,
	}).Debug("point-to-point connected")
	return p, nil
}

// DisconnectOneToOne tears down the connection between source and sink.
// It's a no-op if they don't share a connection. Both blocks must have
// returned from their routines.
func DisconnectOneToOne(source, sink *Block) error {
	if source.producer == nil || sink.consumer == nil {
		return fmt.Errorf("disconnect %v from %v: %w", source, sink, ErrShape)
	}
	if IsRunning(source) || IsRunning(sink) {
		return fmt.Errorf("disconnect %v from %v: %w", source, sink, ErrBusy)
	}
	out, in := source.producer.out, sink.consumer.in
	if out == nil || in == nil || out.Connection() != in.Connection() {
		return nil
	}
	p, ok := out.Connection().(*Pipe)
	if !ok {
		return fmt.Errorf("disconnect %v from %v: not point-to-point: %w", source, sink, ErrShape)
	}
	source.producer.out = nil
	sink.consumer.in = nil
	return p.release(2)
}

// ConnectOneToMany links multi-shaped producer of source with
// multi-shaped consumers of all sinks through a new fan-out connection.
// It returns the number of sinks attached. If it's less than number of
// sinks, the returned error contains an *AttachError for every sink that
// failed and the caller must treat the topology as broken. Rendezvous is
// sized for the sinks actually attached.
func ConnectOneToMany(source *Block, sinks []*Block, options ...ConnectOption) (int, error) {
	if err := checkProducer(source, Multi); err != nil {
		return 0, err
	}
	if len(sinks) == 0 {
		return 0, fmt.Errorf("connect %v: no sinks: %w", source, ErrShape)
	}
	seen := make(map[*Block]struct{}, len(sinks))
	names := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		if err := checkConsumer(sink, Multi); err != nil {
			return 0, err
		}
		if _, ok := seen[sink]; ok {
			return 0, fmt.Errorf("%v listed twice: %w", sink, ErrConnected)
		}
		seen[sink] = struct{}{}
		names = append(names, label(sink))
	}

	var (
		errs     error
		readers  = make([]*FanOutReader, 0, len(sinks))
		attached = make([]*Block, 0, len(sinks))
		mrus     = make([]int, 0, len(sinks))
	)
	for _, sink := range sinks {
		r, err := newFanOutReader(sink)
		if err != nil {
			errs = multierr.Append(errs, &AttachError{Sink: sink.String(), Err: err})
			continue
		}
		readers = append(readers, r)
		attached = append(attached, sink)
		mrus = append(mrus, sink.consumer.MRU)
	}
	if len(readers) == 0 {
		return 0, errs
	}

	cfg := newConnectConfig(options, fmt.Sprintf("%s->{%s}", label(source), strings.Join(names, ",")))
	capacity := Capacity(source.producer.MTU, mrus...)
	f := newFanOut(newUID(), cfg.name, capacity, len(readers), source.log, cfg.metrics)
	f.consumers = attached

	source.producer.out = &FanOutWriter{FanOut: f, party: f.round.Writer()}
	f.acquire()
	for i, r := range readers {
		r.FanOut = f
		r.party = f.round.Reader()
		attached[i].consumer.in = r
		f.acquire()
	}

	source.log.WithFields(logrus.Fields{
		"category":   log.Topology,
		"connection": f.name,
		"mtu":        source.producer.MTU,
		"max_mru":    slices.Max(mrus),
		"capacity":   capacity,
		"parties":    f.Parties(),
		"requested":  len(sinks),
	}).Debug("fan-out connected")
	return len(readers), errs
}

// DisconnectOneToMany tears down the fan-out connection of source. Every
// consumer attached to it is detached, including those missing from
// sinks, so the connection is never left with dangling parties. Sinks
// not attached to the connection are ignored. Calling it again is a
// no-op. All blocks must have returned from their routines.
func DisconnectOneToMany(source *Block, sinks []*Block) error {
	if source.producer == nil {
		return fmt.Errorf("disconnect %v: %w", source, ErrShape)
	}
	out := source.producer.out
	if out == nil {
		return nil
	}
	f, ok := out.Connection().(*FanOut)
	if !ok {
		return fmt.Errorf("disconnect %v: not fan-out: %w", source, ErrShape)
	}
	if IsRunning(source) || AnyRunning(f.consumers...) {
		return fmt.Errorf("disconnect %v: %w", source, ErrBusy)
	}

	listed := make(map[*Block]struct{}, len(sinks))
	for _, sink := range sinks {
		listed[sink] = struct{}{}
	}
	detached := 0
	for _, c := range f.consumers {
		if c.consumer.in == nil || c.consumer.in.Connection() != Connection(f) {
			continue
		}
		if _, ok := listed[c]; !ok {
			source.log.WithFields(logrus.Fields{
				"category":   log.Topology,
				"connection": f.name,
			}).Warnf("detaching unlisted sink %v", c)
		}
		c.consumer.in = nil
		detached++
	}
	source.producer.out = nil
	detached++
	return f.release(detached)
}

func checkProducer(b *Block, shape Shape) error {
	switch {
	case b.started.Load():
		return fmt.Errorf("connect %v: %w", b, ErrAlreadyStarted)
	case b.producer == nil:
		return fmt.Errorf("connect %v: no producer: %w", b, ErrShape)
	case b.producer.Shape != shape:
		return fmt.Errorf("connect %v: %v producer in %v topology: %w", b, b.producer.Shape, shape, ErrShape)
	case b.producer.MTU == 0:
		return fmt.Errorf("connect %v: %w", b, ErrZeroMTU)
	case b.producer.out != nil:
		return fmt.Errorf("connect %v: producer: %w", b, ErrConnected)
	}
	return nil
}

func checkConsumer(b *Block, shape Shape) error {
	switch {
	case b.started.Load():
		return fmt.Errorf("connect %v: %w", b, ErrAlreadyStarted)
	case b.consumer == nil:
		return fmt.Errorf("connect %v: no consumer: %w", b, ErrShape)
	case b.consumer.Shape != shape:
		return fmt.Errorf("connect %v: %v consumer in %v topology: %w", b, b.consumer.Shape, shape, ErrShape)
	case b.consumer.in != nil:
		return fmt.Errorf("connect %v: consumer: %w", b, ErrConnected)
	}
	return nil
}

func newConnectConfig(options []ConnectOption, name string) connectConfig {
	cfg := connectConfig{name: name}
	for _, option := range options {
		option(&cfg)
	}
	return cfg
}

func label(b *Block) string {
	if b.name != "" {
		return b.name
	}
	return b.id
}
