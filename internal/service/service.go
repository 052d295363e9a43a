// Package service exposes synthesis over the NATS bus. Each request on
// the synth request subject is served in its own goroutine and answered
// on the result subject (or the reply inbox when one is set), so a slow
// model never blocks the subscription.
package service

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/glolivercoder/pipertts/internal/bus"
	"github.com/glolivercoder/pipertts/internal/config"
	"github.com/glolivercoder/pipertts/internal/history"
	"github.com/glolivercoder/pipertts/internal/protocol"
	"github.com/glolivercoder/pipertts/internal/synth"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Service struct {
	cfg     config.ServiceConfig
	bus     *bus.Client
	synth   *synth.Synthesizer
	store   *history.Store
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  *slog.Logger
	synthed metric.Int64Counter
}

func New(parent context.Context, cfg config.ServiceConfig, busClient *bus.Client, synthesizer *synth.Synthesizer, store *history.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	meter := otel.Meter("pipertts/service")
	synthed, err := meter.Int64Counter("pipertts_syntheses_total",
		metric.WithDescription("Completed synthesis calls by backend tier"))
	if err != nil {
		log.Warn("failed to create synthesis counter", slogError(err))
	}
	return &Service{
		cfg:     cfg,
		bus:     busClient,
		synth:   synthesizer,
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
		logger:  log.With(slog.String("component", "synth-service")),
		synthed: synthed,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSynthRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	s.cancel()
	if s.sub != nil {
		_ = s.sub.Drain()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.SynthRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode synth request", slogError(err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timeout := time.Duration(s.cfg.TimeoutMS) * time.Millisecond
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()

		start := time.Now()
		opts := synth.Options{SampleRate: req.SampleRate, OutputPath: s.outputPath(req)}
		result, err := s.synth.Synthesize(ctx, req.Text, opts)
		if err != nil {
			s.logger.Warn("synthesis failed", slogError(err), slog.String("session_id", req.SessionID))
			s.publish(msg, protocol.SynthResult{
				SessionID: req.SessionID,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
			return
		}

		s.record(req, result, time.Since(start))
		s.publish(msg, protocol.SynthResult{
			SessionID:  req.SessionID,
			Provenance: string(result.Provenance),
			SampleRate: result.SampleRate,
			Samples:    len(result.Samples),
			DurationMS: int64(float64(len(result.Samples)) / float64(result.SampleRate) * 1000),
			PCM:        encodePCM16(result.Samples),
			OutputPath: opts.OutputPath,
			Timestamp:  time.Now().UTC(),
		})
	}()
}

// outputPath places request output under the configured directory. An
// absolute path in the request wins; with no directory configured the
// audio travels only as PCM in the result message.
func (s *Service) outputPath(req protocol.SynthRequest) string {
	if filepath.IsAbs(req.OutputPath) {
		return req.OutputPath
	}
	if s.cfg.OutputDir == "" {
		return ""
	}
	name := req.OutputPath
	if name == "" {
		name = req.SessionID + ".wav"
	}
	return filepath.Join(s.cfg.OutputDir, name)
}

func (s *Service) record(req protocol.SynthRequest, result synth.Result, elapsed time.Duration) {
	if s.synthed != nil {
		s.synthed.Add(s.ctx, 1, metric.WithAttributes(attribute.String("provenance", string(result.Provenance))))
	}
	if s.store == nil {
		return
	}
	rec := history.Record{
		SessionID:  req.SessionID,
		Provenance: string(result.Provenance),
		Samples:    len(result.Samples),
		SampleRate: result.SampleRate,
		DurationMS: elapsed.Milliseconds(),
	}
	if err := s.store.Append(s.ctx, rec); err != nil {
		s.logger.Warn("failed to record synthesis", slogError(err))
	}
}

func (s *Service) publish(msg *nats.Msg, result protocol.SynthResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Warn("failed to marshal synth result", slogError(err))
		return
	}
	subject := protocol.SubjectSynthResult
	if msg.Reply != "" {
		subject = msg.Reply
	}
	if err := s.bus.Conn().Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish synth result", slogError(err))
	}
}

func encodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(math.Round(float64(s)*32767))))
	}
	return out
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
