package synth

import (
	"context"
	"log/slog"

	"github.com/glolivercoder/pipertts/internal/voice"
)

// Config controls backend probing.
type Config struct {
	// PiperCommand is the external synthesis tool invocation, parsed
	// shell-style. Defaults to "piper".
	PiperCommand string
	// ONNXLibraryPath points at the onnxruntime shared library when it
	// is not on the default loader path.
	ONNXLibraryPath string
	// NumThreads bounds native runtime inference threads.
	NumThreads int
	// DisableONNX and DisableSherpa skip probing the in-process tiers,
	// mainly for constrained deployments and tests.
	DisableONNX   bool
	DisableSherpa bool
}

// cascade holds the probed backend list in strict priority order. The
// list is built once per loaded voice and read-only afterwards, so
// concurrent synthesis calls share it safely.
type cascade struct {
	backends []Backend
	ready    map[Provenance]bool
	log      *slog.Logger
}

// newCascade probes each tier in priority order. A tier whose session
// cannot be constructed is logged and skipped; the synthetic tier is
// always registered last, guaranteeing the cascade is never empty.
func newCascade(desc *voice.Descriptor, cfg Config, log *slog.Logger) *cascade {
	c := &cascade{ready: make(map[Provenance]bool), log: log}

	if !cfg.DisableONNX {
		if b, err := newONNXBackend(desc, cfg.ONNXLibraryPath, log); err != nil {
			log.Warn("primary backend unavailable", slog.String("backend", string(ProvenanceONNX)), slog.String("error", err.Error()))
		} else {
			c.add(b)
		}
	}
	if !cfg.DisableSherpa {
		if b, err := newSherpaBackend(desc, cfg.NumThreads, log); err != nil {
			log.Warn("secondary backend unavailable", slog.String("backend", string(ProvenanceSherpa)), slog.String("error", err.Error()))
		} else {
			c.add(b)
		}
	}
	if b, err := newPiperCLIBackend(desc, cfg.PiperCommand, log); err != nil {
		log.Warn("external backend unavailable", slog.String("backend", string(ProvenancePiperCLI)), slog.String("error", err.Error()))
	} else {
		c.add(b)
	}
	c.add(syntheticBackend{})

	return c
}

func (c *cascade) add(b Backend) {
	c.backends = append(c.backends, b)
	c.ready[b.Name()] = true
}

// run walks the probed tiers in order. Backend errors are absorbed and
// logged; only context cancellation or the (unreachable) exhaustion of
// every tier surfaces to the caller.
func (c *cascade) run(ctx context.Context, req Request) (RawOutput, Provenance, error) {
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return RawOutput{}, "", err
		}
		out, err := b.Run(ctx, req)
		if err != nil {
			c.log.Warn("backend failed, falling through",
				slog.String("backend", string(b.Name())),
				slog.String("error", err.Error()))
			continue
		}
		return out, b.Name(), nil
	}
	return RawOutput{}, "", ErrAllBackendsExhausted
}

func (c *cascade) isReady(p Provenance) bool { return c.ready[p] }

func (c *cascade) close() {
	for _, b := range c.backends {
		b.Close()
	}
}
