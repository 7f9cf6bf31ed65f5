package block

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dudk/block/metric"
)

// Option provides a way to set functional parameters to block.
type Option func(b *Block) error

// WithName sets name to block.
func WithName(n string) Option {
	return func(b *Block) error {
		b.name = n
		return nil
	}
}

// WithLogger sets logger to block. If this option is not provided, silent
// logger is used.
func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Block) error {
		b.baseLog = l
		return nil
	}
}

// WithProducer adds a producer endpoint.
func WithProducer(shape Shape, mtu int) Option {
	return func(b *Block) error {
		if err := validShape(shape); err != nil {
			return err
		}
		if mtu < 0 {
			return fmt.Errorf("negative MTU %d", mtu)
		}
		b.producer = &Producer{Shape: shape, MTU: mtu}
		return nil
	}
}

// WithConsumer adds a consumer endpoint.
func WithConsumer(shape Shape, mru int) Option {
	return func(b *Block) error {
		if err := validShape(shape); err != nil {
			return err
		}
		if mru < 0 {
			return fmt.Errorf("negative MRU %d", mru)
		}
		b.consumer = &Consumer{Shape: shape, MRU: mru}
		return nil
	}
}

// WithRoutine sets the routine executed when block is started.
func WithRoutine(r Routine) Option {
	return func(b *Block) error {
		b.routine = r
		return nil
	}
}

func validShape(s Shape) error {
	if s != Single && s != Multi {
		return fmt.Errorf("%w: invalid shape %d", ErrShape, s)
	}
	return nil
}

// ConnectOption configures a connection.
type ConnectOption func(*connectConfig)

type connectConfig struct {
	name    string
	metrics *metric.Metrics
}

// WithConnectionName overrides the generated connection name.
func WithConnectionName(n string) ConnectOption {
	return func(c *connectConfig) {
		c.name = n
	}
}

// WithMetrics enables connection metrics.
func WithMetrics(m *metric.Metrics) ConnectOption {
	return func(c *connectConfig) {
		c.metrics = m
	}
}
