package synth

import (
	"context"
	"log/slog"

	"github.com/glolivercoder/pipertts/internal/dsp"
	"github.com/glolivercoder/pipertts/internal/phoneme"
	"github.com/glolivercoder/pipertts/internal/voice"
	"github.com/glolivercoder/pipertts/internal/wavio"
)

// Options adjust a single synthesis call.
type Options struct {
	// OutputPath, when set, writes the waveform as a WAV file.
	OutputPath string
	// SampleRate overrides the descriptor's output rate.
	SampleRate int
}

// Result is a finished waveform plus its provenance.
type Result struct {
	Samples    []float32
	SampleRate int
	Provenance Provenance
}

// Readiness reports which tiers survived probing, for health checks.
type Readiness struct {
	PrimaryReady   bool   `json:"primary_ready"`
	SecondaryReady bool   `json:"secondary_ready"`
	ExternalReady  bool   `json:"external_ready"`
	ConfigLoaded   bool   `json:"config_loaded"`
	SampleRate     int    `json:"sample_rate"`
	Language       string `json:"language"`
}

// Synthesizer is the exported synthesis entry point for one loaded
// voice. It is safe for concurrent use: the descriptor and probed
// cascade are read-only after construction and every backend guards
// its own session.
type Synthesizer struct {
	desc    *voice.Descriptor
	cascade *cascade
	log     *slog.Logger
}

// New probes backends for the given voice and returns a ready
// synthesizer. Probing failures demote silently; New itself only
// fails on a nil descriptor.
func New(desc *voice.Descriptor, cfg Config, log *slog.Logger) *Synthesizer {
	log = log.With(slog.String("component", "synth"))
	return &Synthesizer{
		desc:    desc,
		cascade: newCascade(desc, cfg, log),
		log:     log,
	}
}

// Synthesize turns text into a waveform. It always returns audio: any
// backend failure falls through the cascade and, in the worst case,
// lands on the synthetic generator. The returned error is non-nil only
// for context cancellation or a sink write failure.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts Options) (Result, error) {
	targetRate := opts.SampleRate
	if targetRate <= 0 {
		targetRate = s.desc.SampleRate
	}

	req := Request{
		Text:       text,
		Tokens:     phoneme.Encode(text, s.desc),
		SampleRate: targetRate,
	}

	raw, prov, err := s.cascade.run(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, err
		}
		// Unreachable while the synthetic tier is registered, kept as
		// a belt against future cascade changes.
		raw = RawOutput{Samples: dsp.Synthetic(text, targetRate), SampleRate: targetRate}
		prov = ProvenanceSynthetic
	}

	samples := raw.Samples
	if len(raw.Mel) > 0 {
		samples = dsp.MelToAudio(raw.Mel, raw.SampleRate)
	} else if prov != ProvenanceSynthetic {
		samples = dsp.Normalize(samples, 1.0)
	}
	if len(samples) == 0 {
		// Output must never be empty; route through the procedural
		// generator as the last resort.
		samples = dsp.Synthetic(text, targetRate)
		prov = ProvenanceSynthetic
		raw.SampleRate = targetRate
	}
	if raw.SampleRate > 0 && raw.SampleRate != targetRate {
		samples = dsp.Resample(samples, raw.SampleRate, targetRate)
	}

	result := Result{Samples: samples, SampleRate: targetRate, Provenance: prov}

	if opts.OutputPath != "" {
		if err := wavio.Write(opts.OutputPath, samples, targetRate); err != nil {
			return result, err
		}
	}

	s.log.Debug("synthesis complete",
		slog.String("provenance", string(prov)),
		slog.Int("samples", len(samples)),
		slog.Int("sample_rate", targetRate))
	return result, nil
}

// Readiness describes which backends survived probing plus the loaded
// voice parameters, for the daemon's status endpoint.
func (s *Synthesizer) Readiness() Readiness {
	return Readiness{
		PrimaryReady:   s.cascade.isReady(ProvenanceONNX),
		SecondaryReady: s.cascade.isReady(ProvenanceSherpa),
		ExternalReady:  s.cascade.isReady(ProvenancePiperCLI),
		ConfigLoaded:   s.desc != nil && len(s.desc.PhonemeIDs) > 0,
		SampleRate:     s.desc.SampleRate,
		Language:       s.desc.Language,
	}
}

// Close releases backend sessions.
func (s *Synthesizer) Close() {
	s.cascade.close()
}
