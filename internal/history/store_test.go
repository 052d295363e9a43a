package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/glolivercoder/pipertts/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "ephemeral"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Append(context.Background(), Record{Provenance: "synthetic"}); err != nil {
		t.Fatalf("append should no-op: %v", err)
	}
	recs, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if recs != nil {
		t.Fatalf("expected no records, got %v", recs)
	}
}

func TestAppendAndQuery(t *testing.T) {
	cfg := config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionMode: "persistent",
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	rec := Record{
		SessionID:  "session-1",
		Voice:      "pt_BR-voice",
		Provenance: "onnx",
		Samples:    44100,
		SampleRate: 22050,
		DurationMS: 312,
	}
	if err := s.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(context.Background(), Record{Provenance: "synthetic", Samples: 2205, SampleRate: 22050, CreatedAt: time.Now().Add(time.Second)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Provenance != "synthetic" {
		t.Fatalf("expected newest first, got %q", records[0].Provenance)
	}
	if records[1].Voice != "pt_BR-voice" || records[1].Samples != 44100 {
		t.Fatalf("record fields did not round-trip: %+v", records[1])
	}

	counts, err := s.CountByProvenance(context.Background())
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["onnx"] != 1 || counts["synthetic"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestPruneRetention(t *testing.T) {
	cfg := config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Record{Provenance: "onnx"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), Record{Provenance: "sherpa"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	records, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 || records[0].Provenance != "sherpa" {
		t.Fatalf("expected only the recent record, got %+v", records)
	}
}

func TestPruneMaxRecords(t *testing.T) {
	cfg := config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "history.db"),
		RetentionMode: "persistent",
		MaxRecords:    2,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := Record{Provenance: "onnx", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Append(context.Background(), rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}
	records, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(records))
	}
}
