package block_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/block"
)

func newBlock(t *testing.T, options ...block.Option) *block.Block {
	t.Helper()
	b, err := block.New(options...)
	require.NoError(t, err)
	return b
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		name     string
		mtu      int
		mrus     []int
		expected int
	}{
		{name: "producer dominates", mtu: 64, mrus: []int{16}, expected: 512},
		{name: "consumer dominates", mtu: 4, mrus: []int{512}, expected: 1024},
		{name: "equal bounds", mtu: 2, mrus: []int{8}, expected: 16},
		{name: "max of many consumers", mtu: 10, mrus: []int{8, 100, 30}, expected: 200},
		{name: "no consumers", mtu: 3, expected: 24},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, block.Capacity(test.mtu, test.mrus...))
		})
	}
}

func TestConnectOneToOne(t *testing.T) {
	tests := []struct {
		name     string
		mtu      int
		mru      int
		expected int
	}{
		{name: "producer dominates", mtu: 64, mru: 16, expected: 512},
		{name: "consumer dominates", mtu: 4, mru: 512, expected: 1024},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			source := newBlock(t, block.WithName("source"), block.WithProducer(block.Single, test.mtu))
			sink := newBlock(t, block.WithName("sink"), block.WithConsumer(block.Single, test.mru))
			p, err := block.ConnectOneToOne(source, sink)
			require.NoError(t, err)
			assert.Equal(t, test.expected, p.Capacity())
			assert.Equal(t, "source->sink", p.Name())
			assert.Equal(t, 2, p.Refs())
			assert.Equal(t, block.Connection(p), source.Producer().Out().Connection())
			assert.Equal(t, block.Connection(p), sink.Consumer().In().Connection())

			require.NoError(t, block.DisconnectOneToOne(source, sink))
			assert.Nil(t, source.Producer().Out())
			assert.Nil(t, sink.Consumer().In())
			assert.Equal(t, 0, p.Refs())
			// already disconnected
			assert.NoError(t, block.DisconnectOneToOne(source, sink))
			assert.Equal(t, 0, p.Refs())
		})
	}
}

func TestConnectOneToMany(t *testing.T) {
	source := newBlock(t, block.WithName("source"), block.WithProducer(block.Multi, 10))
	sinks := []*block.Block{
		newBlock(t, block.WithName("a"), block.WithConsumer(block.Multi, 8)),
		newBlock(t, block.WithName("b"), block.WithConsumer(block.Multi, 100)),
		newBlock(t, block.WithName("c"), block.WithConsumer(block.Multi, 30)),
	}
	n, err := block.ConnectOneToMany(source, sinks, block.WithConnectionName("fan"))
	require.NoError(t, err)
	assert.Equal(t, len(sinks), n)

	f, ok := source.Producer().Out().Connection().(*block.FanOut)
	require.True(t, ok)
	assert.Equal(t, 200, f.Capacity())
	assert.Equal(t, 4, f.Parties())
	assert.Equal(t, 4, f.Refs())
	assert.Equal(t, "fan", f.Name())
	for _, sink := range sinks {
		assert.Equal(t, block.Connection(f), sink.Consumer().In().Connection())
	}

	require.NoError(t, block.DisconnectOneToMany(source, sinks))
	assert.Equal(t, 0, f.Refs())
	assert.Nil(t, source.Producer().Out())
	for _, sink := range sinks {
		assert.Nil(t, sink.Consumer().In())
	}
	assert.NoError(t, block.DisconnectOneToMany(source, sinks))
}

func TestDisconnectOneToManyUnlisted(t *testing.T) {
	source := newBlock(t, block.WithProducer(block.Multi, 4))
	a := newBlock(t, block.WithConsumer(block.Multi, 4))
	b := newBlock(t, block.WithConsumer(block.Multi, 4))
	n, err := block.ConnectOneToMany(source, []*block.Block{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	f := source.Producer().Out().Connection()

	require.NoError(t, block.DisconnectOneToMany(source, []*block.Block{a}))
	assert.Equal(t, 0, f.Refs())
	assert.Nil(t, b.Consumer().In())
}

func TestDisconnectOneToOneMismatch(t *testing.T) {
	source1 := newBlock(t, block.WithProducer(block.Single, 4))
	sink1 := newBlock(t, block.WithConsumer(block.Single, 4))
	source2 := newBlock(t, block.WithProducer(block.Single, 4))
	sink2 := newBlock(t, block.WithConsumer(block.Single, 4))
	p1, err := block.ConnectOneToOne(source1, sink1)
	require.NoError(t, err)
	p2, err := block.ConnectOneToOne(source2, sink2)
	require.NoError(t, err)

	assert.NoError(t, block.DisconnectOneToOne(source1, sink2))
	assert.Equal(t, 2, p1.Refs())
	assert.Equal(t, 2, p2.Refs())
	assert.NotNil(t, source1.Producer().Out())
	assert.NotNil(t, sink2.Consumer().In())
}

func TestConnectErrors(t *testing.T) {
	single := func(t *testing.T) *block.Block {
		return newBlock(t, block.WithProducer(block.Single, 4), block.WithConsumer(block.Single, 4))
	}
	multi := func(t *testing.T) *block.Block {
		return newBlock(t, block.WithProducer(block.Multi, 4), block.WithConsumer(block.Multi, 4))
	}
	tests := []struct {
		name     string
		connect  func(t *testing.T) error
		expected error
	}{
		{
			name: "one-to-one multi producer",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToOne(multi(t), single(t))
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-one multi consumer",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToOne(single(t), multi(t))
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-one no producer",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToOne(newBlock(t), single(t))
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-one zero MTU",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToOne(newBlock(t, block.WithProducer(block.Single, 0)), single(t))
				return err
			},
			expected: block.ErrZeroMTU,
		},
		{
			name: "one-to-one already connected",
			connect: func(t *testing.T) error {
				source, sink := single(t), single(t)
				_, err := block.ConnectOneToOne(source, sink)
				require.NoError(t, err)
				_, err = block.ConnectOneToOne(source, single(t))
				return err
			},
			expected: block.ErrConnected,
		},
		{
			name: "one-to-many single sink",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToMany(multi(t), []*block.Block{multi(t), single(t)})
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-many single source",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToMany(single(t), []*block.Block{multi(t)})
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-many no sinks",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToMany(multi(t), nil)
				return err
			},
			expected: block.ErrShape,
		},
		{
			name: "one-to-many duplicate sink",
			connect: func(t *testing.T) error {
				sink := multi(t)
				_, err := block.ConnectOneToMany(multi(t), []*block.Block{sink, sink})
				return err
			},
			expected: block.ErrConnected,
		},
		{
			name: "one-to-many zero MTU",
			connect: func(t *testing.T) error {
				_, err := block.ConnectOneToMany(newBlock(t, block.WithProducer(block.Multi, 0)), []*block.Block{multi(t)})
				return err
			},
			expected: block.ErrZeroMTU,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ErrorIs(t, test.connect(t), test.expected)
		})
	}
}

func TestOptionErrors(t *testing.T) {
	_, err := block.New(block.WithProducer(block.Shape(7), 1))
	assert.ErrorIs(t, err, block.ErrShape)
	_, err = block.New(block.WithProducer(block.Single, -1))
	assert.Error(t, err)
	_, err = block.New(block.WithConsumer(block.Multi, -1))
	assert.Error(t, err)
}
