package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/dudk/block"
	"github.com/dudk/block/log"
	"github.com/dudk/block/wav"
)

// kind builds the routine of a block from its params.
type kind struct {
	help    string
	routine func(params map[string]string) (block.Routine, error)
}

var kinds = map[string]kind{
	"wav-source": {
		help: "read I/Q samples from wav file (path)",
		routine: func(params map[string]string) (block.Routine, error) {
			path, err := required(params, "path")
			if err != nil {
				return nil, err
			}
			return (&wav.Source{Path: path}).Routine(), nil
		},
	},
	"wav-sink": {
		help: "write I/Q samples to wav file (path, sample_rate, bit_depth)",
		routine: func(params map[string]string) (block.Routine, error) {
			path, err := required(params, "path")
			if err != nil {
				return nil, err
			}
			rate, err := intParam(params, "sample_rate", 48000)
			if err != nil {
				return nil, err
			}
			bitDepth, err := intParam(params, "bit_depth", 16)
			if err != nil {
				return nil, err
			}
			return (&wav.Sink{Path: path, SampleRate: rate, BitDepth: bitDepth}).Routine(), nil
		},
	},
	"tone": {
		help: "generate complex tone (frequency, sample_rate, samples)",
		routine: func(params map[string]string) (block.Routine, error) {
			freq, err := intParam(params, "frequency", 1000)
			if err != nil {
				return nil, err
			}
			rate, err := intParam(params, "sample_rate", 48000)
			if err != nil {
				return nil, err
			}
			samples, err := intParam(params, "samples", rate)
			if err != nil {
				return nil, err
			}
			return tone(float64(freq), float64(rate), samples), nil
		},
	},
	"relay": {
		help: "copy input to output in MTU sized batches",
		routine: func(map[string]string) (block.Routine, error) {
			return relay, nil
		},
	},
	"count": {
		help: "count received samples and log the total",
		routine: func(map[string]string) (block.Routine, error) {
			return count, nil
		},
	},
}

func kindNames() []string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func knownKind(k string) bool {
	_, ok := kinds[k]
	return ok
}

func required(params map[string]string, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing %s param", key)
	}
	return v, nil
}

func intParam(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return i, nil
}

// tone writes n samples of a complex exponential in MTU sized batches.
func tone(freq, rate float64, n int) block.Routine {
	return func(b *block.Block, ports block.Ports) error {
		batch := make([]block.Sample, b.Producer().MTU)
		step := 2 * math.Pi * freq / rate
		for written := 0; written < n; {
			size := min(len(batch), n-written)
			for i := 0; i < size; i++ {
				s, c := math.Sincos(step * float64(written+i))
				batch[i] = complex(float32(c)*0.5, float32(s)*0.5)
			}
			if err := ports.Out.Write(batch[:size]); err != nil {
				return err
			}
			written += size
		}
		return ports.Out.Shutdown()
	}
}

func relay(b *block.Block, ports block.Ports) error {
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

func count(b *block.Block, ports block.Ports) error {
	var total int
	for {
		err := ports.In.Read(func(samples []block.Sample) error {
			total += len(samples)
			return nil
		})
		if errors.Is(err, io.EOF) {
			b.Logger().WithField("category", log.Lifecycle).Infof("received %d samples", total)
			return nil
		}
		if err != nil {
			return err
		}
	}
}
