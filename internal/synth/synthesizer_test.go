package synth

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/glolivercoder/pipertts/internal/voice"
	"github.com/glolivercoder/pipertts/internal/wavio"
)

func syntheticOnlySynthesizer() *Synthesizer {
	desc := voice.New(nil, 0, "", voice.Scales{
		Noise:  voice.DefaultNoiseScale,
		Length: voice.DefaultLengthScale,
		NoiseW: voice.DefaultNoiseW,
	})
	return &Synthesizer{
		desc:    desc,
		cascade: newTestCascade(syntheticBackend{}),
		log:     testLogger(),
	}
}

func TestSynthesizeDeterministicWithoutBackends(t *testing.T) {
	s := syntheticOnlySynthesizer()
	a, err := s.Synthesize(context.Background(), "ola mundo", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := s.Synthesize(context.Background(), "ola mundo", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Provenance != ProvenanceSynthetic || b.Provenance != ProvenanceSynthetic {
		t.Fatalf("expected synthetic provenance, got %s/%s", a.Provenance, b.Provenance)
	}
	if len(a.Samples) == 0 || len(a.Samples) != len(b.Samples) {
		t.Fatalf("expected identical buffers, got %d and %d", len(a.Samples), len(b.Samples))
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs", i)
		}
	}
}

func TestSynthesizeEmptyTextStillProducesAudio(t *testing.T) {
	s := syntheticOnlySynthesizer()
	res, err := s.Synthesize(context.Background(), "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Samples) == 0 {
		t.Fatal("expected non-empty buffer for empty text")
	}
}

func TestSynthesizeAmplitudeBound(t *testing.T) {
	s := syntheticOnlySynthesizer()
	res, err := s.Synthesize(context.Background(), "bound check text", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range res.Samples {
		if math.Abs(float64(v)) > 1.0+1e-6 {
			t.Fatalf("sample %d out of range: %v", i, v)
		}
	}
}

func TestSynthesizeFallsThroughExternalFailure(t *testing.T) {
	external := &stubBackend{
		name: ProvenancePiperCLI,
		err:  &ExternalToolError{Err: errors.New("exit status 1"), Stderr: "model load failed"},
	}
	s := syntheticOnlySynthesizer()
	s.cascade = newTestCascade(external, syntheticBackend{})

	res, err := s.Synthesize(context.Background(), "alo", Options{})
	if err != nil {
		t.Fatalf("expected failure to be absorbed, got %v", err)
	}
	if res.Provenance != ProvenanceSynthetic {
		t.Fatalf("expected synthetic provenance after tool failure, got %s", res.Provenance)
	}
	if external.calls != 1 {
		t.Fatalf("external tier tried %d times, expected 1", external.calls)
	}
}

func TestSynthesizeNormalizesModelOutput(t *testing.T) {
	loud := make([]float32, 256)
	for i := range loud {
		loud[i] = float32(i%16) - 8 // way outside [-1, 1]
	}
	primary := &stubBackend{name: ProvenanceONNX, out: RawOutput{Samples: loud, SampleRate: 22050}}
	s := syntheticOnlySynthesizer()
	s.cascade = newTestCascade(primary, syntheticBackend{})

	res, err := s.Synthesize(context.Background(), "x", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var peak float64
	for _, v := range res.Samples {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	if peak > 1.0+1e-6 || peak < 0.99 {
		t.Fatalf("expected peak normalization to 1.0, got %v", peak)
	}
}

func TestSynthesizeResamplesToOverrideRate(t *testing.T) {
	native := make([]float32, 22050) // one second at native rate
	for i := range native {
		native[i] = float32(math.Sin(float64(i) * 0.05))
	}
	primary := &stubBackend{name: ProvenanceONNX, out: RawOutput{Samples: native, SampleRate: 22050}}
	s := syntheticOnlySynthesizer()
	s.cascade = newTestCascade(primary, syntheticBackend{})

	res, err := s.Synthesize(context.Background(), "x", Options{SampleRate: 16000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SampleRate != 16000 {
		t.Fatalf("expected override rate, got %d", res.SampleRate)
	}
	if got := len(res.Samples); got < 15999 || got > 16001 {
		t.Fatalf("expected ~16000 samples after resampling, got %d", got)
	}
}

func TestSynthesizeWritesWav(t *testing.T) {
	s := syntheticOnlySynthesizer()
	path := filepath.Join(t.TempDir(), "voices", "out.wav")
	res, err := s.Synthesize(context.Background(), "gravar em disco", Options{OutputPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	samples, rate, err := wavio.Read(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if rate != res.SampleRate {
		t.Fatalf("expected rate %d in container, got %d", res.SampleRate, rate)
	}
	if len(samples) != len(res.Samples) {
		t.Fatalf("expected %d samples in container, got %d", len(res.Samples), len(samples))
	}
}

func TestReadinessReflectsProbing(t *testing.T) {
	s := syntheticOnlySynthesizer()
	s.cascade = newTestCascade(&stubBackend{name: ProvenanceSherpa}, syntheticBackend{})

	r := s.Readiness()
	if r.PrimaryReady {
		t.Fatal("primary must report unready when probing failed")
	}
	if !r.SecondaryReady {
		t.Fatal("secondary should report ready")
	}
	if !r.ConfigLoaded {
		t.Fatal("config should report loaded")
	}
	if r.SampleRate != voice.DefaultSampleRate || r.Language != voice.DefaultLanguage {
		t.Fatalf("unexpected voice parameters: %+v", r)
	}

	res, err := s.Synthesize(context.Background(), "ainda funciona", Options{})
	if err != nil {
		t.Fatalf("synthesis must still succeed: %v", err)
	}
	if len(res.Samples) == 0 {
		t.Fatal("expected audio despite missing primary tier")
	}
}

func TestExternalToolErrorMessage(t *testing.T) {
	err := &ExternalToolError{Err: errors.New("exit status 2"), Stderr: "bad flag"}
	if got := err.Error(); got == "" || !errors.Is(err, err.Err) {
		t.Fatalf("unexpected error behavior: %q", got)
	}
}
