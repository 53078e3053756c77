package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const reportFileName = "run_report.json"

type ReportSignal struct {
	Code     string  `json:"code"`
	Stage    string  `json:"stage"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type BlockMetric struct {
	Key          string   `json:"key"`
	Words        int      `json:"words"`
	Paragraphs   int      `json:"paragraphs"`
	QualityScore float64  `json:"quality_score"`
	Issues       []string `json:"issues,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	BlockCount        int            `json:"block_count"`
	FailedStages      int            `json:"failed_stages"`
	LowQualityBlocks  int            `json:"low_quality_blocks"`
	AvgQuality        float64        `json:"avg_quality"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report is the run_report.json written next to a run's artifacts.
type Report struct {
	Version     string         `json:"version"`
	RunID       string         `json:"run_id"`
	Topic       string         `json:"topic"`
	Level       string         `json:"level"`
	Status      string         `json:"status"`
	GeneratedAt string         `json:"generated_at"`
	OutputDir   string         `json:"output_dir"`
	Stages      []StageMetric  `json:"stages"`
	Blocks      []BlockMetric  `json:"blocks,omitempty"`
	Signals     []ReportSignal `json:"signals,omitempty"`
	Summary     ReportSummary  `json:"summary"`

	mu  sync.Mutex
	now func() time.Time
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport(runID string, req Request, outputDir string, now func() time.Time) *Report {
	if now == nil {
		now = time.Now
	}
	return &Report{
		Version:     "v1",
		RunID:       runID,
		Topic:       req.Topic,
		Level:       req.Level,
		Status:      StatusRunning,
		GeneratedAt: now().UTC().Format(time.RFC3339),
		OutputDir:   outputDir,
		Stages:      []StageMetric{},
		Signals:     []ReportSignal{},
		now:         now,
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: r.now().UTC()}
}

func (r *Report) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || strings.TrimSpace(h.name) == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = "ok"
	}
	finished := r.now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == "ok" {
			m.Status = "error"
		}
	}
	r.mu.Lock()
	r.Stages = append(r.Stages, m)
	r.mu.Unlock()
}

func (r *Report) AddSignal(code, stage, severity, message string, value float64) {
	if r == nil {
		return
	}
	s := ReportSignal{
		Code:     strings.TrimSpace(code),
		Stage:    strings.TrimSpace(stage),
		Severity: strings.ToLower(strings.TrimSpace(severity)),
		Message:  strings.TrimSpace(message),
		Value:    value,
	}
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.mu.Lock()
	r.Signals = append(r.Signals, s)
	r.mu.Unlock()
}

// SignalCodes lists the codes recorded so far, in insertion order.
func (r *Report) SignalCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.Signals))
	for _, s := range r.Signals {
		codes = append(codes, s.Code)
	}
	return codes
}

func (r *Report) AddBlockMetric(m BlockMetric) {
	if r == nil || strings.TrimSpace(m.Key) == "" {
		return
	}
	r.mu.Lock()
	r.Blocks = append(r.Blocks, m)
	r.mu.Unlock()
}

func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.GeneratedAt = r.now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		"critical": 0,
		"warning":  0,
		"info":     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	low := 0
	total := 0.0
	for _, b := range r.Blocks {
		if b.QualityScore < lowQualityThreshold {
			low++
		}
		total += b.QualityScore
	}
	avg := 0.0
	if len(r.Blocks) > 0 {
		avg = total / float64(len(r.Blocks))
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		BlockCount:        len(r.Blocks),
		FailedStages:      failed,
		LowQualityBlocks:  low,
		AvgQuality:        avg,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case "critical":
		return 3
	case "warning":
		return 2
	default:
		return 1
	}
}
