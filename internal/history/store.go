// Package history keeps a SQLite record of completed synthesis calls:
// which backend tier served them, how much audio came out, and when.
// It backs the daemon's status page and lets degraded deployments be
// spotted after the fact (a voice that silently fell to the synthetic
// tier for a week shows up here).
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glolivercoder/pipertts/internal/config"
	_ "modernc.org/sqlite"
)

// Record is one completed synthesis call.
type Record struct {
	ID         int64
	SessionID  string
	Voice      string
	Provenance string
	Samples    int
	SampleRate int
	DurationMS int64
	CreatedAt  time.Time
}

// Store wraps the SQLite-backed synthesis history.
type Store struct {
	db    *sql.DB
	cfg   config.HistoryConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the history store according to config. In ephemeral
// mode no database is opened and every operation is a no-op.
func Open(ctx context.Context, cfg config.HistoryConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("history vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("history prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS syntheses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    voice TEXT,
    provenance TEXT NOT NULL,
    samples INTEGER NOT NULL,
    sample_rate INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_syntheses_created ON syntheses(created_at);
CREATE INDEX IF NOT EXISTS idx_syntheses_provenance ON syntheses(provenance);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records a completed synthesis.
func (s *Store) Append(ctx context.Context, rec Record) error {
	if s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO syntheses(session_id, voice, provenance, samples, sample_rate, duration_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Voice, rec.Provenance, rec.Samples, rec.SampleRate, rec.DurationMS, rec.CreatedAt)
	return err
}

// Recent retrieves up to limit records ordered newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, voice, provenance, samples, sample_rate, duration_ms, created_at
		 FROM syntheses ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Voice, &r.Provenance, &r.Samples, &r.SampleRate, &r.DurationMS, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountByProvenance aggregates how many calls each tier served, the
// quickest way to see a deployment that degraded to a lower tier.
func (s *Store) CountByProvenance(ctx context.Context) (map[string]int64, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT provenance, COUNT(*) FROM syntheses GROUP BY provenance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var prov string
		var n int64
		if err := rows.Scan(&prov, &n); err != nil {
			return nil, err
		}
		counts[prov] = n
	}
	return counts, rows.Err()
}

// Prune applies the configured retention.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM syntheses WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRecords > 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM syntheses WHERE id IN (
			SELECT id FROM syntheses ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRecords)
		if err != nil {
			return err
		}
	}
	return nil
}
