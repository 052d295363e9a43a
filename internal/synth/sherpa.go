package synth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/glolivercoder/pipertts/internal/voice"
)

// sherpaBackend is the secondary tier: the sherpa-onnx native runtime
// loading the same artifact as a VITS offline TTS model. It phonemizes
// internally, so it consumes the request text rather than the encoded
// tokens.
type sherpaBackend struct {
	tts        *sherpa.OfflineTts
	sampleRate int
	log        *slog.Logger
	mu         sync.Mutex
}

func newSherpaBackend(desc *voice.Descriptor, numThreads int, log *slog.Logger) (*sherpaBackend, error) {
	if numThreads <= 0 {
		numThreads = 2
	}

	cfg := sherpa.OfflineTtsConfig{}
	cfg.Model.Vits.Model = desc.ModelPath
	cfg.Model.Vits.NoiseScale = desc.Scales.Noise
	cfg.Model.Vits.NoiseScaleW = desc.Scales.NoiseW
	cfg.Model.Vits.LengthScale = desc.Scales.Length
	cfg.Model.NumThreads = numThreads
	cfg.Model.Provider = "cpu"

	// Conventional sidecar files shipped next to piper exports.
	modelDir := filepath.Dir(desc.ModelPath)
	if p := filepath.Join(modelDir, "tokens.txt"); fileExists(p) {
		cfg.Model.Vits.Tokens = p
	}
	if p := filepath.Join(modelDir, "espeak-ng-data"); fileExists(p) {
		cfg.Model.Vits.DataDir = p
	}
	if cfg.Model.Vits.Tokens == "" {
		return nil, fmt.Errorf("%w: no tokens.txt beside model", ErrUnsupportedModel)
	}

	tts := sherpa.NewOfflineTts(&cfg)
	if tts == nil {
		return nil, fmt.Errorf("%w: sherpa rejected model %s", ErrUnsupportedModel, desc.ModelPath)
	}

	return &sherpaBackend{tts: tts, sampleRate: desc.SampleRate, log: log}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (b *sherpaBackend) Name() Provenance { return ProvenanceSherpa }

func (b *sherpaBackend) Run(ctx context.Context, req Request) (RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	audio := b.tts.Generate(req.Text, 0, 1.0)
	if audio == nil || len(audio.Samples) == 0 {
		return RawOutput{}, fmt.Errorf("%w: generation returned no samples", ErrUnsupportedModel)
	}

	rate := int(audio.SampleRate)
	if rate <= 0 {
		rate = b.sampleRate
	}
	return RawOutput{Samples: audio.Samples, SampleRate: rate}, nil
}

func (b *sherpaBackend) Close() {
	if b.tts != nil {
		sherpa.DeleteOfflineTts(b.tts)
		b.tts = nil
	}
}
