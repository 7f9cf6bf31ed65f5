// Package wav provides blocks that store complex samples in WAV files.
// In-phase and quadrature components are kept as two channels.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dudk/block"
)

// numChannels of I/Q recording.
const numChannels = 2

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrNotIQ is returned when file doesn't have exactly two channels.
	ErrNotIQ = errors.New("wav must have 2 channels")
	// ErrInvalid is returned when file is not a valid wav.
	ErrInvalid = errors.New("wav is not valid")
)

type (
	// Source reads I/Q samples from wav file. Batches are as large as the
	// producer MTU. Output is shut down when file ends or reading fails.
	Source struct {
		Path string
	}

	// Sink writes I/Q samples to wav file.
	Sink struct {
		Path       string
		SampleRate int
		BitDepth   int
	}
)

// Routine returns the block routine of source.
func (s *Source) Routine() block.Routine {
	return func(b *block.Block, ports block.Ports) (err error) {
		defer func() {
			err = multierr.Append(err, ports.Out.Shutdown())
		}()
		file, err := os.Open(s.Path)
		if err != nil {
			return err
		}
		defer file.Close()

		decoder := wav.NewDecoder(file)
		if !decoder.IsValidFile() {
			return fmt.Errorf("%s: %w", s.Path, ErrInvalid)
		}
		bitDepth := int(decoder.BitDepth)
		if bitDepth != 16 && bitDepth != 32 {
			return fmt.Errorf("%s: %d bits: %w", s.Path, bitDepth, ErrUnsupportedBitDepth)
		}
		if decoder.NumChans != numChannels {
			return fmt.Errorf("%s: %d channels: %w", s.Path, decoder.NumChans, ErrNotIQ)
		}
		b.Logger().WithFields(logrus.Fields{
			"path":        s.Path,
			"sample_rate": decoder.SampleRate,
			"bit_depth":   bitDepth,
		}).Debug("wav source opened")

		batchSize := b.Producer().MTU
		ib := &audio.IntBuffer{
			Format:         decoder.Format(),
			Data:           make([]int, batchSize*numChannels),
			SourceBitDepth: bitDepth,
		}
		batch := make([]block.Sample, batchSize)
		scale := float32(int64(1) << (bitDepth - 1))
		for {
			n, err := decoder.PCMBuffer(ib)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			samples := n / numChannels
			for i := 0; i < samples; i++ {
				batch[i] = complex(
					float32(ib.Data[2*i])/scale,
					float32(ib.Data[2*i+1])/scale,
				)
			}
			if err := ports.Out.Write(batch[:samples]); err != nil {
				return err
			}
		}
	}
}

// Routine returns the block routine of sink.
func (s *Sink) Routine() block.Routine {
	return func(b *block.Block, ports block.Ports) (err error) {
		if s.BitDepth != 16 && s.BitDepth != 32 {
			return fmt.Errorf("%d bits: %w", s.BitDepth, ErrUnsupportedBitDepth)
		}
		file, err := os.Create(s.Path)
		if err != nil {
			return err
		}
		encoder := wav.NewEncoder(file, s.SampleRate, s.BitDepth, numChannels, 1)
		defer func() {
			err = multierr.Combine(err, encoder.Close(), file.Close())
		}()

		ib := &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  s.SampleRate,
			},
			SourceBitDepth: s.BitDepth,
		}
		scale := float64(int64(1)<<(s.BitDepth-1) - 1)
		write := func(samples []block.Sample) error {
			ib.Data = ib.Data[:0]
			for _, v := range samples {
				ib.Data = append(ib.Data, quantize(real(v), scale), quantize(imag(v), scale))
			}
			return encoder.Write(ib)
		}
		for {
			readErr := ports.In.Read(write)
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			if readErr != nil {
				return readErr
			}
		}
	}
}

func quantize(v float32, scale float64) int {
	f := math.Max(-1, math.Min(1, float64(v)))
	return int(math.Round(f * scale))
}
