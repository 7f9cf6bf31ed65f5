package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/block"
	"github.com/dudk/block/config"
)

const fanOut = `
blocks:
  - name: input
    kind: iqwav-source
    producer: {shape: multi, mtu: 256}
    params: {path: in.wav}
  - name: left
    kind: count
    consumer: {shape: multi, mru: 64}
  - name: right
    kind: iqwav-sink
    consumer: {shape: multi, mru: 1024}
    params: {path: out.wav}
links:
  - from: input
    to: [left, right]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fanOut), 0o600))

	topology, err := config.Load(path)
	require.NoError(t, err)
	require.Len(t, topology.Blocks, 3)
	assert.Equal(t, "in.wav", topology.Blocks[0].Params["path"])
	assert.Equal(t, 256, topology.Blocks[0].Producer.MTU)
	assert.Equal(t, []string{"left", "right"}, topology.Links[0].To)
	assert.NoError(t, topology.Validate(nil))

	options, err := topology.Blocks[2].Options()
	require.NoError(t, err)
	b, err := block.New(options...)
	require.NoError(t, err)
	assert.Equal(t, "right", b.Name())
	assert.Equal(t, block.Multi, b.Consumer().Shape)
	assert.Equal(t, 1024, b.Consumer().MRU)
	assert.Nil(t, b.Producer())
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseUnknownField(t *testing.T) {
	_, err := config.Parse([]byte("blocks:\n  - name: a\n    colour: red\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	known := func(kind string) bool { return kind == "k" }
	single := &config.Producer{Shape: "single", MTU: 4}
	tests := []struct {
		name     string
		topology config.Topology
		valid    bool
	}{
		{
			name: "one-to-one",
			topology: config.Topology{
				Blocks: []config.Block{
					{Name: "a", Kind: "k", Producer: single},
					{Name: "b", Kind: "k", Consumer: &config.Consumer{Shape: "single", MRU: 1}},
				},
				Links: []config.Link{{From: "a", To: []string{"b"}}},
			},
			valid: true,
		},
		{
			name: "unknown kind",
			topology: config.Topology{
				Blocks: []config.Block{{Name: "a", Kind: "x"}},
			},
		},
		{
			name: "duplicate name",
			topology: config.Topology{
				Blocks: []config.Block{{Name: "a", Kind: "k"}, {Name: "a", Kind: "k"}},
			},
		},
		{
			name: "zero MTU",
			topology: config.Topology{
				Blocks: []config.Block{{Name: "a", Kind: "k", Producer: &config.Producer{Shape: "single"}}},
			},
		},
		{
			name: "invalid shape",
			topology: config.Topology{
				Blocks: []config.Block{{Name: "a", Kind: "k", Producer: &config.Producer{Shape: "many", MTU: 1}}},
			},
		},
		{
			name: "shape mismatch",
			topology: config.Topology{
				Blocks: []config.Block{
					{Name: "a", Kind: "k", Producer: single},
					{Name: "b", Kind: "k", Consumer: &config.Consumer{Shape: "multi", MRU: 1}},
				},
				Links: []config.Link{{From: "a", To: []string{"b"}}},
			},
		},
		{
			name: "single producer with two targets",
			topology: config.Topology{
				Blocks: []config.Block{
					{Name: "a", Kind: "k", Producer: single},
					{Name: "b", Kind: "k", Consumer: &config.Consumer{Shape: "single", MRU: 1}},
					{Name: "c", Kind: "k", Consumer: &config.Consumer{Shape: "single", MRU: 1}},
				},
				Links: []config.Link{{From: "a", To: []string{"b", "c"}}},
			},
		},
		{
			name: "consumer linked twice",
			topology: config.Topology{
				Blocks: []config.Block{
					{Name: "a", Kind: "k", Producer: single},
					{Name: "b", Kind: "k", Producer: single},
					{Name: "c", Kind: "k", Consumer: &config.Consumer{Shape: "single", MRU: 1}},
				},
				Links: []config.Link{
					{From: "a", To: []string{"c"}},
					{From: "b", To: []string{"c"}},
				},
			},
		},
		{
			name: "unknown target",
			topology: config.Topology{
				Blocks: []config.Block{{Name: "a", Kind: "k", Producer: single}},
				Links:  []config.Link{{From: "a", To: []string{"z"}}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.topology.Validate(known)
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
