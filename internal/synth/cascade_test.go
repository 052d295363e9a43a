package synth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/glolivercoder/pipertts/internal/voice"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubBackend struct {
	name   Provenance
	out    RawOutput
	err    error
	calls  int
	closed bool
}

func (s *stubBackend) Name() Provenance { return s.name }

func (s *stubBackend) Run(_ context.Context, _ Request) (RawOutput, error) {
	s.calls++
	return s.out, s.err
}

func (s *stubBackend) Close() { s.closed = true }

func newTestCascade(backends ...Backend) *cascade {
	c := &cascade{ready: make(map[Provenance]bool), log: testLogger()}
	for _, b := range backends {
		c.add(b)
	}
	return c
}

func TestCascadeFallsThroughInOrder(t *testing.T) {
	primary := &stubBackend{name: ProvenanceONNX, err: errors.New("session lost")}
	secondary := &stubBackend{name: ProvenanceSherpa, err: ErrUnsupportedModel}
	external := &stubBackend{name: ProvenancePiperCLI, err: &ExternalToolError{Err: errors.New("exit status 1"), Stderr: "boom"}}
	last := &stubBackend{name: ProvenanceSynthetic, out: RawOutput{Samples: []float32{0.1}, SampleRate: 22050}}

	c := newTestCascade(primary, secondary, external, last)
	out, prov, err := c.run(context.Background(), Request{Text: "x", SampleRate: 22050})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prov != ProvenanceSynthetic {
		t.Fatalf("expected synthetic provenance, got %s", prov)
	}
	if len(out.Samples) != 1 {
		t.Fatalf("expected stub samples, got %d", len(out.Samples))
	}
	for _, b := range []*stubBackend{primary, secondary, external} {
		if b.calls != 1 {
			t.Fatalf("backend %s tried %d times, expected 1", b.name, b.calls)
		}
	}
}

func TestCascadeStopsAtFirstSuccess(t *testing.T) {
	primary := &stubBackend{name: ProvenanceONNX, out: RawOutput{Samples: []float32{0.5}, SampleRate: 22050}}
	last := &stubBackend{name: ProvenanceSynthetic, out: RawOutput{Samples: []float32{0.1}, SampleRate: 22050}}

	c := newTestCascade(primary, last)
	_, prov, err := c.run(context.Background(), Request{Text: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prov != ProvenanceONNX {
		t.Fatalf("expected primary provenance, got %s", prov)
	}
	if last.calls != 0 {
		t.Fatal("later tier must not run after a success")
	}
}

func TestCascadeExhaustion(t *testing.T) {
	failing := &stubBackend{name: ProvenanceONNX, err: errors.New("down")}
	c := newTestCascade(failing)
	_, _, err := c.run(context.Background(), Request{Text: "x"})
	if !errors.Is(err, ErrAllBackendsExhausted) {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
}

func TestCascadeHonorsCancelledContext(t *testing.T) {
	b := &stubBackend{name: ProvenanceSynthetic, out: RawOutput{Samples: []float32{0.1}}}
	c := newTestCascade(b)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := c.run(ctx, Request{Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if b.calls != 0 {
		t.Fatal("backend must not run after cancellation")
	}
}

func TestCascadeClosesBackends(t *testing.T) {
	b := &stubBackend{name: ProvenanceSynthetic}
	c := newTestCascade(b)
	c.close()
	if !b.closed {
		t.Fatal("expected Close to propagate")
	}
}

func TestProbeWithNothingAvailable(t *testing.T) {
	desc := voice.New(nil, 0, "", voice.Scales{})
	desc.ModelPath = "/nonexistent/model.onnx"
	c := newCascade(desc, Config{
		DisableONNX:   true,
		DisableSherpa: true,
		PiperCommand:  "pipertts-no-such-binary",
	}, testLogger())
	if len(c.backends) != 1 {
		t.Fatalf("expected only the synthetic tier, got %d backends", len(c.backends))
	}
	if !c.isReady(ProvenanceSynthetic) {
		t.Fatal("synthetic tier must always be ready")
	}
	if c.isReady(ProvenanceONNX) || c.isReady(ProvenanceSherpa) || c.isReady(ProvenancePiperCLI) {
		t.Fatal("unprobed tiers must not report ready")
	}
}
