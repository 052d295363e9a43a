// Package synth drives text-to-waveform inference through an ordered
// cascade of backends: an in-process ONNX session, a native sherpa-onnx
// runtime, the reference piper CLI, and a procedural synthetic
// generator that cannot fail. Backend availability is probed once at
// voice-load time; per-call failures fall through to the next tier
// without changing the probed state.
package synth

import (
	"context"
	"errors"
	"fmt"
)

// Provenance identifies which backend tier produced a waveform.
type Provenance string

const (
	ProvenanceONNX      Provenance = "onnx"
	ProvenanceSherpa    Provenance = "sherpa"
	ProvenancePiperCLI  Provenance = "piper-cli"
	ProvenanceSynthetic Provenance = "synthetic"
)

var (
	// ErrUnsupportedModel indicates the backend runtime rejected the
	// model artifact's shape or entry points.
	ErrUnsupportedModel = errors.New("model shape not supported by backend")

	// ErrAllBackendsExhausted is declared for completeness; the
	// synthetic tier never fails, so the cascade cannot actually
	// return it while that tier is registered.
	ErrAllBackendsExhausted = errors.New("all synthesis backends exhausted")
)

// ExternalToolError reports a non-zero exit from the external synthesis
// tool, carrying whatever the tool wrote to standard error.
type ExternalToolError struct {
	Err    error
	Stderr string
}

func (e *ExternalToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("external synthesis tool failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("external synthesis tool failed: %v", e.Err)
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// Request carries one synthesis call through the cascade. Backends pick
// the representation they understand: token-driven tiers read Tokens,
// text-driven tiers (piper CLI, sherpa, synthetic) read Text.
type Request struct {
	Text       string
	Tokens     []int64
	SampleRate int
}

// RawOutput is what a backend hands to post-processing: either
// time-domain samples or mel-scale spectral frames still needing
// inversion, plus the rate the backend natively produced.
type RawOutput struct {
	Samples    []float32
	Mel        [][]float32
	SampleRate int
}

// Backend is one tier of the cascade.
type Backend interface {
	Name() Provenance
	Run(ctx context.Context, req Request) (RawOutput, error)
	Close()
}
