package synth

import (
	"context"

	"github.com/glolivercoder/pipertts/internal/dsp"
)

// syntheticBackend is the unconditional last tier: a procedural tone
// derived from text statistics. It ignores the token sequence and
// cannot fail, which is what makes the cascade total.
type syntheticBackend struct{}

func (syntheticBackend) Name() Provenance { return ProvenanceSynthetic }

func (syntheticBackend) Run(_ context.Context, req Request) (RawOutput, error) {
	rate := req.SampleRate
	if rate <= 0 {
		rate = 22050
	}
	return RawOutput{Samples: dsp.Synthetic(req.Text, rate), SampleRate: rate}, nil
}

func (syntheticBackend) Close() {}
