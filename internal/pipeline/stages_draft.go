package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"papergen/internal/document"
)

func (o *Orchestrator) runTitle(ctx context.Context, r *Run) error {
	text, err := o.generate(ctx, "title", o.draft(titlePrompt(r.Request.Topic)))
	if err != nil {
		return err
	}
	title := firstLine(text)
	if title == "" {
		return fmt.Errorf("title response has no usable line")
	}
	r.Set(KeyTitle, title)
	return nil
}

func (o *Orchestrator) runVariables(ctx context.Context, r *Run) error {
	text, err := o.generate(ctx, "variables", o.draft(variablesPrompt(r.Title())))
	if err != nil {
		return err
	}
	v := ParseLabelled(text, "VARIABLE1", "VARIABLE2", "VARIABLE1_EN")
	v1, v2, en := firstLine(v["VARIABLE1"]), firstLine(v["VARIABLE2"]), firstLine(v["VARIABLE1_EN"])
	if v2 == "" {
		// Unlabelled answer: one concept per line.
		items := listItems(text)
		v1, v2, en = "", "", ""
		if len(items) > 0 {
			v1 = items[0]
		}
		if len(items) > 1 {
			v2 = items[1]
		}
		if len(items) > 2 {
			en = items[2]
		}
	}
	if v1 == "" || v2 == "" {
		return fmt.Errorf("expected two variables, got %q", abbreviate(text, 120))
	}
	if en == "" {
		en = v1
		r.report.AddSignal("variable_translation_missing", "variables", "info", "english rendering of variable 1 missing, searching with the spanish form", 0)
	}
	r.Set(KeyVariable1, strings.ToLower(v1))
	r.Set(KeyVariable2, strings.ToLower(v2))
	r.Set(KeyVariable1EN, strings.ToLower(en))
	return nil
}

func (o *Orchestrator) runNarrative(ctx context.Context, r *Run) error {
	title, country := r.Title(), r.Request.Country

	contexto, err := o.generate(ctx, "context", o.draft(contextPrompt(title)))
	if err != nil {
		return err
	}
	r.Set(KeyContext, strings.Join(document.SplitParagraphs(contexto), " "))

	levels, err := o.generate(ctx, "problem levels", o.draft(levelsPrompt(title, country)))
	if err != nil {
		return err
	}
	paragraphs := document.SplitParagraphs(levels)
	for i, key := range []string{KeyWorld, KeyLatam, KeyCountry} {
		if i >= len(paragraphs) {
			r.report.AddSignal("short_response", "narrative", "warning",
				fmt.Sprintf("problem levels returned %d of 3 paragraphs", len(paragraphs)), float64(len(paragraphs)))
			break
		}
		r.Set(key, paragraphs[i])
	}
	return nil
}

func (o *Orchestrator) runProblem(ctx context.Context, r *Run) error {
	title := r.Title()
	problem, err := o.generate(ctx, "problem", o.draft(problemPrompt(title)))
	if err != nil {
		return err
	}
	r.Set(KeyProblem, problem)

	justification, err := o.generate(ctx, "justification", o.draft(justificationPrompt(title)))
	if err != nil {
		return err
	}
	r.Set(KeyJustification, justification)
	return nil
}

// runTheory drafts both theories concurrently.
func (o *Orchestrator) runTheory(ctx context.Context, r *Run) error {
	title, vars := r.Title(), r.Variables()
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range []string{KeyTheory1, KeyTheory2} {
		n, key := i+1, key
		g.Go(func() error {
			text, err := o.generate(gctx, key, o.draft(theoryPrompt(title, n, vars)))
			if err != nil {
				return err
			}
			r.Set(key, strings.Join(document.SplitParagraphs(text), " "))
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runConcepts(ctx context.Context, r *Run) error {
	n := o.cfg.Pipeline.ConceptParagraphs
	title := r.Title()
	for v, variable := range r.Variables() {
		text, err := o.generate(ctx, fmt.Sprintf("concepts %d", v+1), o.draft(conceptPrompt(title, variable, n)))
		if err != nil {
			return err
		}
		paragraphs := document.SplitParagraphs(text)
		if len(paragraphs) < n {
			r.report.AddSignal("short_response", "concepts", "warning",
				fmt.Sprintf("concepts for %q returned %d of %d paragraphs", variable, len(paragraphs), n), float64(len(paragraphs)))
		}
		for p := 1; p <= n && p <= len(paragraphs); p++ {
			r.Set(ConceptKey(v+1, p), paragraphs[p-1])
		}
	}
	return nil
}

func abbreviate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
