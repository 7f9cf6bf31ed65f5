// Package config loads pipeline topology descriptions.
package config

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"

	"github.com/dudk/block"
)

type (
	// Topology describes blocks and links between them.
	Topology struct {
		Blocks []Block `yaml:"blocks"`
		Links  []Link  `yaml:"links"`
	}

	// Block describes a single block.
	Block struct {
		Name     string            `yaml:"name"`
		Kind     string            `yaml:"kind"`
		Producer *Producer         `yaml:"producer,omitempty"`
		Consumer *Consumer         `yaml:"consumer,omitempty"`
		Params   map[string]string `yaml:"params,omitempty"`
	}

	// Producer describes producer endpoint.
	Producer struct {
		Shape string `yaml:"shape"`
		MTU   int    `yaml:"mtu"`
	}

	// Consumer describes consumer endpoint.
	Consumer struct {
		Shape string `yaml:"shape"`
		MRU   int    `yaml:"mru"`
	}

	// Link connects producer of From block with consumers of To blocks.
	// Single producers have exactly one target.
	Link struct {
		From string   `yaml:"from"`
		To   []string `yaml:"to"`
	}
)

// Load reads and parses topology file.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses topology from YAML.
func Parse(data []byte) (*Topology, error) {
	var t Topology
	if err := yaml.UnmarshalStrict(data, &t); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	return &t, nil
}

// ParseShape converts shape name into block shape.
func ParseShape(s string) (block.Shape, error) {
	switch s {
	case "single":
		return block.Single, nil
	case "multi":
		return block.Multi, nil
	}
	return 0, fmt.Errorf("unknown shape %q", s)
}

// Options returns block options defined by endpoints.
func (b Block) Options() ([]block.Option, error) {
	options := []block.Option{block.WithName(b.Name)}
	if b.Producer != nil {
		shape, err := ParseShape(b.Producer.Shape)
		if err != nil {
			return nil, fmt.Errorf("block %s producer: %w", b.Name, err)
		}
		options = append(options, block.WithProducer(shape, b.Producer.MTU))
	}
	if b.Consumer != nil {
		shape, err := ParseShape(b.Consumer.Shape)
		if err != nil {
			return nil, fmt.Errorf("block %s consumer: %w", b.Name, err)
		}
		options = append(options, block.WithConsumer(shape, b.Consumer.MRU))
	}
	return options, nil
}

// Validate checks that topology can be wired. Known reports if block kind
// is supported, nil accepts any kind. All problems are returned.
func (t *Topology) Validate(known func(kind string) bool) error {
	var errs error
	blocks := make(map[string]Block, len(t.Blocks))
	for _, b := range t.Blocks {
		if b.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("block without name"))
			continue
		}
		if _, ok := blocks[b.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate block %s", b.Name))
			continue
		}
		blocks[b.Name] = b
		if known != nil && !known(b.Kind) {
			errs = multierr.Append(errs, fmt.Errorf("block %s: unknown kind %q", b.Name, b.Kind))
		}
		if b.Producer != nil && b.Producer.MTU <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("block %s: producer MTU must be positive", b.Name))
		}
		if b.Consumer != nil && b.Consumer.MRU < 0 {
			errs = multierr.Append(errs, fmt.Errorf("block %s: consumer MRU is negative", b.Name))
		}
		if _, err := b.Options(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	sources := make(map[string]struct{})
	targets := make(map[string]struct{})
	for _, l := range t.Links {
		errs = multierr.Append(errs, l.validate(blocks, sources, targets))
	}
	return errs
}

func (l Link) validate(blocks map[string]Block, sources, targets map[string]struct{}) error {
	from, ok := blocks[l.From]
	switch {
	case !ok:
		return fmt.Errorf("link from unknown block %q", l.From)
	case from.Producer == nil:
		return fmt.Errorf("link from %s: block has no producer", l.From)
	case len(l.To) == 0:
		return fmt.Errorf("link from %s: no targets", l.From)
	case from.Producer.Shape == "single" && len(l.To) != 1:
		return fmt.Errorf("link from %s: single producer with %d targets", l.From, len(l.To))
	}
	if _, ok := sources[l.From]; ok {
		return fmt.Errorf("link from %s: producer linked twice", l.From)
	}
	sources[l.From] = struct{}{}

	var errs error
	for _, name := range l.To {
		to, ok := blocks[name]
		switch {
		case !ok:
			errs = multierr.Append(errs, fmt.Errorf("link from %s: unknown target %q", l.From, name))
			continue
		case to.Consumer == nil:
			errs = multierr.Append(errs, fmt.Errorf("link from %s: target %s has no consumer", l.From, name))
			continue
		case to.Consumer.Shape != from.Producer.Shape:
			errs = multierr.Append(errs, fmt.Errorf("link from %s: %s producer to %s consumer %s",
				l.From, from.Producer.Shape, to.Consumer.Shape, name))
		}
		if _, ok := targets[name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("link from %s: consumer %s linked twice", l.From, name))
		}
		targets[name] = struct{}{}
	}
	return errs
}
