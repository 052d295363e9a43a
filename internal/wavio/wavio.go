// Package wavio reads and writes mono 16-bit PCM WAV containers,
// converting between the float32 sample domain used by the synthesis
// pipeline and the integer domain of the container.
package wavio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// Write stores samples as a mono 16-bit WAV at path, creating
// intervening directories. Samples outside [-1, 1] are clamped.
func Write(path string, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	defer file.Close()

	buffer := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buffer.Data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(file, sampleRate, bitDepth, 1, 1)
	if err := enc.Write(buffer); err != nil {
		enc.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Read loads a WAV file back into float32 samples, returning the
// samples and the container's sample rate. Multi-channel files are
// mixed down by taking the first channel.
func Read(path string) ([]float32, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav file: %w", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	buffer, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buffer.Format == nil || buffer.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("wav missing format header")
	}

	channels := buffer.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	scale := float32(int(1) << (buffer.SourceBitDepth - 1))
	if buffer.SourceBitDepth == 0 {
		scale = 32768
	}

	samples := make([]float32, 0, len(buffer.Data)/channels)
	for i := 0; i < len(buffer.Data); i += channels {
		samples = append(samples, float32(buffer.Data[i])/scale)
	}
	return samples, buffer.Format.SampleRate, nil
}
