package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrRunNotFound = errors.New("run not found")

type SQLiteStore struct {
	db *sql.DB
}

var _ RunStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT,
			level TEXT,
			country TEXT,
			title TEXT,
			status TEXT,
			started_at TEXT,
			finished_at TEXT,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS stage_results (
			run_id TEXT,
			name TEXT,
			seq INTEGER,
			status TEXT,
			produced JSON,
			duration_ms INTEGER,
			error TEXT,
			PRIMARY KEY (run_id, name)
		);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT,
			stage TEXT,
			kind TEXT,
			path TEXT,
			seq INTEGER,
			PRIMARY KEY (run_id, path)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, topic, level, country, title, status, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', '')
		ON CONFLICT(id) DO UPDATE SET
			topic=excluded.topic,
			level=excluded.level,
			country=excluded.country,
			title=excluded.title,
			status=excluded.status,
			started_at=excluded.started_at
	`, run.ID, run.Topic, run.Level, run.Country, run.Title, run.Status, formatTime(run.StartedAt))
	if err != nil {
		return fmt.Errorf("failed to start run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RecordStage(ctx context.Context, st StageRecord) error {
	produced, _ := json.Marshal(st.Produced)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_results (run_id, name, seq, status, produced, duration_ms, error)
		VALUES (?, ?, (SELECT COUNT(*) FROM stage_results WHERE run_id = ?), ?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			status=excluded.status,
			produced=excluded.produced,
			duration_ms=excluded.duration_ms,
			error=excluded.error
	`, st.RunID, st.Name, st.RunID, st.Status, produced, st.DurationMS, st.Error)
	if err != nil {
		return fmt.Errorf("failed to record stage %s: %w", st.Name, err)
	}
	return nil
}

func (s *SQLiteStore) RecordArtifact(ctx context.Context, a ArtifactRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, stage, kind, path, seq)
		VALUES (?, ?, ?, ?, (SELECT COUNT(*) FROM artifacts WHERE run_id = ?))
		ON CONFLICT(run_id, path) DO UPDATE SET
			stage=excluded.stage,
			kind=excluded.kind
	`, a.RunID, a.Stage, a.Kind, a.Path, a.RunID)
	if err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", a.Path, err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status, title string, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, title = COALESCE(NULLIF(?, ''), title), finished_at = ?, error = ?
		WHERE id = ?
	`, status, title, formatTime(time.Now()), msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, topic, level, country, title, status, started_at, finished_at, error FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, topic, level, country, title, status, started_at, finished_at, error FROM runs ORDER BY started_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) StageResults(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id, name, status, produced, duration_ms, error FROM stage_results WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stages: %w", err)
	}
	defer rows.Close()

	var out []StageRecord
	for rows.Next() {
		var st StageRecord
		var produced []byte
		if err := rows.Scan(&st.RunID, &st.Name, &st.Status, &produced, &st.DurationMS, &st.Error); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		if len(produced) > 0 {
			_ = json.Unmarshal(produced, &st.Produced)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Artifacts(ctx context.Context, runID string) ([]ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT run_id, stage, kind, path FROM artifacts WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var out []ArtifactRecord
	for rows.Next() {
		var a ArtifactRecord
		if err := rows.Scan(&a.RunID, &a.Stage, &a.Kind, &a.Path); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var run RunRecord
	var started, finished string
	if err := row.Scan(&run.ID, &run.Topic, &run.Level, &run.Country, &run.Title, &run.Status, &started, &finished, &run.Error); err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return &run, nil
}

// timeLayout has fixed-width fractions so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
