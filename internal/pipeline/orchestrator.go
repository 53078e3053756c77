// Package pipeline runs the staged generation of a review article: drafting
// blocks, citing them, retrieving and screening candidate sources and
// assembling the final document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"papergen/internal/citation"
	"papergen/internal/config"
	"papergen/internal/document"
	"papergen/internal/extract"
	"papergen/internal/logger"
	"papergen/internal/prisma"
	"papergen/internal/search"
	"papergen/internal/storage"
	"papergen/internal/textgen"
)

// Recorder persists run progress. storage.SQLiteStore implements it.
type Recorder interface {
	StartRun(ctx context.Context, run storage.RunRecord) error
	RecordStage(ctx context.Context, stage storage.StageRecord) error
	RecordArtifact(ctx context.Context, artifact storage.ArtifactRecord) error
	FinishRun(ctx context.Context, runID, status, title string, runErr error) error
}

// Deps are the collaborators of an Orchestrator. Generator is required. A nil
// Searcher skips retrieval.
type Deps struct {
	Generator  textgen.Generator
	Searcher   search.Searcher
	Fetcher    search.Fetcher
	Extractor  extract.Extractor
	References citation.ReferenceSource
	Recorder   Recorder
	Logger     *logger.Logger
	Clock      func() time.Time
	NewID      func() string
}

type Orchestrator struct {
	cfg   *config.Config
	gen   textgen.Generator
	srch  search.Searcher
	fetch search.Fetcher
	ext   extract.Extractor
	refs  citation.ReferenceSource
	rec   Recorder
	log   *logger.Logger
	now   func() time.Time
	id    func() string
}

func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if deps.Generator == nil {
		return nil, errors.New("a text generator is required")
	}
	o := &Orchestrator{
		cfg:   cfg,
		gen:   deps.Generator,
		srch:  deps.Searcher,
		fetch: deps.Fetcher,
		ext:   deps.Extractor,
		refs:  deps.References,
		rec:   deps.Recorder,
		log:   deps.Logger,
		now:   deps.Clock,
		id:    deps.NewID,
	}
	if o.fetch == nil {
		o.fetch = search.NewHTTPFetcher()
	}
	if o.ext == nil {
		o.ext = extract.New(cfg.Pipeline.MaxArticleChars)
	}
	if o.refs == nil {
		o.refs = citation.TemplateSource{}
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.id == nil {
		o.id = uuid.NewString
	}
	return o, nil
}

// Stages returns the stage table in declaration order.
func (o *Orchestrator) Stages() []Stage {
	return []Stage{
		{Name: "title", Run: o.runTitle},
		{Name: "variables", Requires: []string{"title"}, Run: o.runVariables},
		{Name: "narrative", Requires: []string{"title"}, Run: o.runNarrative},
		{Name: "problem", Requires: []string{"title"}, Run: o.runProblem},
		{Name: "theory", Requires: []string{"title", "variables"}, Run: o.runTheory},
		{Name: "concepts", Requires: []string{"variables"}, Run: o.runConcepts},
		{Name: "citations", Requires: []string{"narrative", "problem", "theory", "concepts"}, Run: o.runCitations},
		{Name: "references", Requires: []string{"citations"}, Run: o.runReferences},
		{Name: "retrieval", Requires: []string{"variables"}, Run: o.runRetrieval},
		{Name: "methodology", Requires: []string{"retrieval", "citations"}, Run: o.runMethodology},
		{Name: "discussion", Requires: []string{"retrieval", "methodology"}, Run: o.runDiscussion},
		{Name: "abstract", Requires: []string{"discussion"}, Run: o.runAbstract},
		{Name: "assembly", Requires: []string{"abstract", "references"}, Run: o.runAssembly},
	}
}

// Run executes every stage in plan order. A failing stage stops the run with
// an *AbortError; artifacts written before it stay on disk.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Response, error) {
	req, err := o.normalize(req)
	if err != nil {
		return nil, err
	}
	plan, err := Plan(o.Stages())
	if err != nil {
		return nil, err
	}

	id := o.id()
	started := o.now()
	writer := NewArtifactWriter(o.cfg.Output.Dir, id, started)
	report := NewReport(id, req, writer.Dir(), o.now)
	run := newRun(id, req, started, writer, report)
	log := o.log.With("run_id", id)

	o.recordErr(log, o.rec != nil, func() error {
		return o.rec.StartRun(ctx, storage.RunRecord{
			ID: id, Topic: req.Topic, Level: req.Level, Country: req.Country,
			Status: storage.StatusRunning, StartedAt: started,
		})
	})
	log.Info("run started", "topic", req.Topic, "level", req.Level, "country", req.Country, "stages", len(plan))

	for _, st := range plan {
		if err := o.runStage(ctx, log, run, st); err != nil {
			run.Status = StatusFailed
			abort := &AbortError{Stage: st.Name, Artifacts: run.AllArtifacts(), Err: err}
			o.finish(ctx, log, run, abort)
			log.Error("run aborted", "stage", st.Name, "error", err)
			return nil, abort
		}
	}

	run.Status = StatusSucceeded
	o.scoreBlocks(run)
	o.finish(ctx, log, run, nil)
	log.Info("run finished", "final", run.Artifacts.Final)

	final, err := document.ReadFile(run.Artifacts.Final)
	if err != nil {
		final = run.Primary
	}
	return &Response{
		RunID:     id,
		Title:     run.Title(),
		Variables: run.Variables(),
		Text:      document.PlainText(final, 0),
		Artifacts: run.Artifacts,
		Stats:     run.Stats,
		Totals:    prisma.Aggregate(run.Stats),
		Report:    filepath.Join(run.Dir, reportFileName),
	}, nil
}

func (o *Orchestrator) normalize(req Request) (Request, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return req, errors.New("topic is required")
	}
	if strings.TrimSpace(req.Level) == "" {
		req.Level = o.cfg.Pipeline.Level
	}
	level, err := search.ParseLevel(req.Level)
	if err != nil {
		return req, err
	}
	req.Level = string(level)
	req.Country = strings.TrimSpace(req.Country)
	if req.Country == "" {
		req.Country = o.cfg.Pipeline.Country
	}
	return req, nil
}

func (o *Orchestrator) runStage(ctx context.Context, log *logger.Logger, run *Run, st Stage) error {
	run.beginStage()
	h := run.report.BeginStage(st.Name)
	start := time.Now()

	err := ctx.Err()
	if err == nil {
		err = st.Run(ctx, run)
	}
	if err == nil {
		err = ctx.Err()
	}

	produced, written := run.stageOutput()
	result := StageResult{
		Name:     st.Name,
		Status:   "ok",
		Produced: produced,
		Duration: time.Since(start),
	}
	for _, a := range written {
		result.Artifacts = append(result.Artifacts, a.path)
		o.recordErr(log, o.rec != nil, func() error {
			return o.rec.RecordArtifact(context.WithoutCancel(ctx), storage.ArtifactRecord{RunID: run.ID, Stage: st.Name, Kind: a.kind, Path: a.path})
		})
	}
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
	}
	run.Results = append(run.Results, result)

	run.report.EndStage(h, result.Status, map[string]float64{
		"blocks":    float64(len(produced)),
		"artifacts": float64(len(written)),
	}, nil, err)
	o.recordErr(log, o.rec != nil, func() error {
		return o.rec.RecordStage(context.WithoutCancel(ctx), storage.StageRecord{
			RunID: run.ID, Name: st.Name, Status: result.Status, Produced: produced,
			DurationMS: result.Duration.Milliseconds(), Error: result.Error,
		})
	})

	if err != nil {
		return err
	}
	log.Info("stage done", "stage", st.Name, "blocks", len(produced), "artifacts", len(written), "duration_ms", result.Duration.Milliseconds())
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, log *logger.Logger, run *Run, runErr error) {
	run.report.Status = run.Status
	if err := run.report.Save(filepath.Join(run.Dir, reportFileName)); err != nil {
		log.Warn("failed to save run report", "error", err)
	}
	o.recordErr(log, o.rec != nil, func() error {
		return o.rec.FinishRun(context.WithoutCancel(ctx), run.ID, run.Status, run.Title(), runErr)
	})
}

// recordErr logs registry failures without failing the run.
func (o *Orchestrator) recordErr(log *logger.Logger, enabled bool, fn func() error) {
	if !enabled {
		return
	}
	if err := fn(); err != nil {
		log.Warn("run registry update failed", "error", err)
	}
}

func (o *Orchestrator) scoreBlocks(run *Run) {
	title := run.Title()
	order := append([]string{KeyTitle}, IntroductionOrder...)
	order = append(order, FrameworkOrder(o.cfg.Pipeline.ConceptParagraphs)...)
	order = append(order, KeyMethodology, KeyDiscussion, KeyConclusion, KeyAbstractES, KeyAbstractEN)
	for _, key := range order {
		b, ok := run.Block(key)
		if !ok {
			continue
		}
		m := blockMetric(key, b.Text, title)
		run.report.AddBlockMetric(m)
		if m.QualityScore < lowQualityThreshold {
			run.report.AddSignal("low_quality_block", "assembly", "info",
				fmt.Sprintf("block %s scored %.2f (%s)", key, m.QualityScore, strings.Join(m.Issues, ", ")), m.QualityScore)
		}
	}
}

// generate runs one generation call and rejects error sentinels.
func (o *Orchestrator) generate(ctx context.Context, stage string, req textgen.Request) (string, error) {
	text, err := textgen.Generate(ctx, o.gen, req)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", stage, err)
	}
	return text, nil
}
