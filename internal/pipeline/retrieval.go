package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"papergen/internal/document"
	"papergen/internal/prisma"
	"papergen/internal/search"
)

// screened is the outcome of one candidate article.
type screened struct {
	record prisma.Record
	ok     bool
}

// runRetrieval searches every source of the level plan, screens the
// downloaded candidates and fills r.Stats. Candidates that cannot be
// downloaded, read or summarised count as excluded.
func (o *Orchestrator) runRetrieval(ctx context.Context, r *Run) error {
	if o.srch == nil || o.cfg.Pipeline.SkipRetrieval {
		r.report.AddSignal("retrieval_skipped", "retrieval", "warning", "no searcher configured, PRISMA counts are empty", 0)
		return nil
	}
	level := search.Level(r.Request.Level)
	plan, err := search.PlanFor(level)
	if err != nil {
		return err
	}

	for _, src := range plan {
		variable := r.Text(KeyVariable1)
		if src.English {
			variable = r.Text(KeyVariable1EN)
		}
		urls, err := o.srch.Search(ctx, src.Query(variable), src.Match, src.Limit)
		if err != nil {
			return fmt.Errorf("failed to search %s: %w", src.Name, err)
		}
		o.log.Info("search done", "run_id", r.ID, "source", src.Name, "results", len(urls))
		if len(urls) == 0 {
			r.Stats.Add(src.Name, prisma.Counts{})
			continue
		}

		listing := searchListing(level, src, r.Title(), variable, urls)
		path, err := r.write("search_results", "busqueda_"+string(level)+"_"+src.Name, "", "docx", listing)
		if err != nil {
			return err
		}
		r.Artifacts.SearchResults = append(r.Artifacts.SearchResults, path)

		records, err := o.screen(ctx, r, src, urls)
		if err != nil {
			return err
		}
		included := 0
		for _, rec := range records {
			if rec.Included() {
				included++
			}
		}
		r.Stats.Add(src.Name, prisma.Counts{
			Identified: len(urls),
			Included:   included,
			Excluded:   len(urls) - included,
		})

		if len(records) == 0 {
			continue
		}
		table := prisma.TableDocument(level.Label(), src.Name, records)
		path, err = r.write("prisma_table", "PRISMA_"+string(level)+"_"+src.Name, "", "docx", table)
		if err != nil {
			return err
		}
		r.Artifacts.PrismaTables = append(r.Artifacts.PrismaTables, path)
	}
	return r.Stats.Validate()
}

// screen downloads and summarises candidates with bounded concurrency.
// Records come back in candidate order.
func (o *Orchestrator) screen(ctx context.Context, r *Run, src search.Source, urls []string) ([]prisma.Record, error) {
	dir := filepath.Join(r.Dir, "descargas", strings.ToLower(src.Name))
	results := make([]screened, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.cfg.Pipeline.Concurrency, 1))
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			rec, ok := o.screenOne(gctx, r, src, i+1, u, dir)
			results[i] = screened{record: rec, ok: ok}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var records []prisma.Record
	for _, s := range results {
		if s.ok {
			records = append(records, s.record)
		}
	}
	return records, nil
}

func (o *Orchestrator) screenOne(ctx context.Context, r *Run, src search.Source, idx int, url, dir string) (prisma.Record, bool) {
	exclude := func(code, msg string, err error) (prisma.Record, bool) {
		o.log.Warn("candidate excluded", "run_id", r.ID, "source", src.Name, "url", url, "reason", code, "error", err)
		r.report.AddSignal(code, "retrieval", "info", fmt.Sprintf("%s: %s", msg, url), float64(idx))
		return prisma.Record{}, false
	}

	path, err := o.fetch.Fetch(ctx, url, dir)
	if err != nil {
		return exclude("download_failed", "candidate could not be downloaded", err)
	}
	text := strings.TrimSpace(o.ext.Extract(path))
	if text == "" {
		return exclude("extraction_empty", "candidate has no extractable text", nil)
	}
	text = document.Truncate(text, o.cfg.Pipeline.MaxArticleChars)

	raw, err := o.generate(ctx, "record", analytical(prisma.BuildRecordPrompt(text, idx), recordTemperature, recordMaxTokens))
	if err != nil {
		return exclude("record_failed", "candidate could not be summarised", err)
	}
	rec := prisma.ParseRecord(raw)
	rec.Index = idx
	rec.Source = src.Name
	rec.Path = path
	return rec, true
}

// searchListing is the per-source document of candidate links.
func searchListing(level search.Level, src search.Source, title, variable string, urls []string) document.Document {
	label := "Variable 1 específica: " + variable
	if src.English {
		label = "Variable 1 específica (inglés): " + variable
	}
	d := document.New(
		document.Heading(fmt.Sprintf("Artículos para revisión – %s (%s)", level.Label(), src.Name), 0),
		document.Block{Kind: document.KindParagraph, Text: title, Style: "Title"},
		document.Paragraph(label),
		document.Heading(fmt.Sprintf("%s (%d)", src.Name, len(urls)), 2),
	)
	for _, u := range urls {
		d = d.AppendBlocks(document.Paragraph(u))
	}
	return d
}
