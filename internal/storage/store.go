package storage

import (
	"context"
	"time"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord is one article-generation run.
type RunRecord struct {
	ID         string
	Topic      string
	Level      string
	Country    string
	Title      string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// StageRecord is the outcome of one stage inside a run.
type StageRecord struct {
	RunID      string
	Name       string
	Status     string
	Produced   []string
	DurationMS int64
	Error      string
}

type ArtifactRecord struct {
	RunID string
	Stage string
	Kind  string
	Path  string
}

// RunStore persists the run registry.
type RunStore interface {
	StartRun(ctx context.Context, run RunRecord) error
	RecordStage(ctx context.Context, stage StageRecord) error
	RecordArtifact(ctx context.Context, artifact ArtifactRecord) error
	FinishRun(ctx context.Context, runID, status, title string, runErr error) error

	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	StageResults(ctx context.Context, runID string) ([]StageRecord, error)
	Artifacts(ctx context.Context, runID string) ([]ArtifactRecord, error)
	Close() error
}
