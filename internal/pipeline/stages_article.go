package pipeline

import (
	"context"
	"fmt"
	"strings"

	"papergen/internal/citation"
	"papergen/internal/document"
	"papergen/internal/prisma"
	"papergen/internal/search"
)

// Section headings of the article.
const (
	HeadingAbstractES   = "RESUMEN"
	HeadingAbstractEN   = "ABSTRACT"
	HeadingIntroduction = "INTRODUCCION"
	HeadingFramework    = "MARCO TEORICO"
	HeadingReferences   = "REFERENCIAS"
	HeadingMethodology  = "METODOLOGIA"
	HeadingDiscussion   = "RESULTADOS Y DISCUSION"
	HeadingConclusions  = "CONCLUSIONES"
)

const (
	abstractPlaceholderES = "Resumen pendiente de generación."
	abstractPlaceholderEN = "Abstract pending generation."
	noCitedTexts          = "(No se encontraron textos citados para esta sección)"
	prismaFigure          = 1
)

// runCitations cites every block that belongs to a citation group and writes
// the primary article.
func (o *Orchestrator) runCitations(ctx context.Context, r *Run) error {
	vars := r.Variables()
	catalog, err := citation.NewCatalog(ctx, o.refs, citation.Labels{
		Title:     r.Title(),
		Country:   r.Request.Country,
		Variable1: vars[0],
		Variable2: vars[1],
	})
	if err != nil {
		return err
	}
	r.Catalog = catalog
	if catalog.Simulated() {
		r.report.AddSignal("simulated_references", "citations", "info", "references come from the simulated template source", 0)
	}

	keys := append(append([]string(nil), IntroductionOrder...), FrameworkOrder(o.cfg.Pipeline.ConceptParagraphs)...)
	for _, key := range keys {
		b, ok := r.Block(key)
		if !ok {
			continue
		}
		if _, grouped := citation.GroupForBlock(key); !grouped {
			continue
		}
		r.Set(key, strings.Join(catalog.CiteBlock(key, b.Text), "\n\n"))
	}

	r.Primary = o.primaryDocument(r)
	path, err := r.write("primary", "articulo", "", "docx", r.Primary)
	if err != nil {
		return err
	}
	r.Artifacts.Primary = path
	model, err := r.write("primary_model", "articulo", "", "json", r.Primary)
	if err != nil {
		return err
	}
	r.Artifacts.PrimaryModel = model
	return nil
}

// primaryDocument lays out the article in assembly order. Missing blocks are
// reported and skipped.
func (o *Orchestrator) primaryDocument(r *Run) document.Document {
	d := document.New(
		document.Heading(r.Title(), 0),
		document.Heading(HeadingAbstractES, 1),
		document.Paragraph(abstractPlaceholderES),
		document.Heading(HeadingAbstractEN, 1),
		document.Paragraph(abstractPlaceholderEN),
	)
	d = o.appendBlocks(r, d, HeadingIntroduction, IntroductionOrder)
	d = o.appendBlocks(r, d, HeadingFramework, FrameworkOrder(o.cfg.Pipeline.ConceptParagraphs))

	d = d.AppendBlocks(document.Heading(HeadingReferences, 1))
	for _, ref := range r.Catalog.References() {
		d = d.AppendBlocks(document.Paragraph(ref))
	}
	return d
}

func (o *Orchestrator) appendBlocks(r *Run, d document.Document, heading string, order []string) document.Document {
	blocks, missing := r.collect(order)
	for _, key := range missing {
		o.log.Warn("missing block at assembly", "run_id", r.ID, "key", key, "section", heading)
		r.report.AddSignal("missing_block", "citations", "warning", fmt.Sprintf("block %s missing from %s", key, heading), 0)
	}
	var content []string
	for _, b := range blocks {
		content = append(content, b.Text)
	}
	return document.AppendSection(d, heading, strings.Join(content, "\n"), false)
}

// runReferences writes the reference template grouped by citation group.
func (o *Orchestrator) runReferences(_ context.Context, r *Run) error {
	d := document.New(
		document.Heading("Plantilla de referencias", 0),
		document.Block{Kind: document.KindParagraph, Text: shortTitle(r.Title(), 10), Style: "Title"},
	)
	sections := []struct {
		title string
		group citation.Group
	}{
		{"Problemática mundial", citation.GroupWorld},
		{"Problemática latinoamericana (LATAM)", citation.GroupLatam},
		{"Problemática nacional – " + r.Request.Country, citation.GroupCountry},
		{"Teoría 1", citation.GroupTheory1},
		{"Teoría 2", citation.GroupTheory2},
		{"Variable 1", citation.GroupVariable1},
		{"Variable 2", citation.GroupVariable2},
	}
	for _, s := range sections {
		d = d.AppendBlocks(document.Heading(s.title, 2))
		refs := r.Catalog.GroupReferences(s.group)
		if len(refs) == 0 {
			d = d.AppendBlocks(document.Paragraph(noCitedTexts))
			continue
		}
		for _, ref := range refs {
			d = d.AppendBlocks(document.Paragraph(ref))
		}
	}
	path, err := r.write("references", "referencias", "", "docx", d)
	if err != nil {
		return err
	}
	r.Artifacts.References = path
	return nil
}

func (o *Orchestrator) runMethodology(ctx context.Context, r *Run) error {
	req := r.Request
	prompt := methodologyPrompt(req.Topic, req.Country, search.Level(req.Level).Label(), prisma.SummaryLines(r.Stats))
	text, err := o.generate(ctx, "methodology", analytical(prompt, methodologyTemperature, methodologyMaxTokens))
	if err != nil {
		return err
	}
	parts := ParseLabelled(text, "METODOLOGIA", "FIGURA_PRISMA")
	methodology, figure := parts["METODOLOGIA"], parts["FIGURA_PRISMA"]
	if methodology == "" {
		return fmt.Errorf("methodology response is empty")
	}
	if figure == "" {
		figure = prisma.Caption(prisma.Aggregate(r.Stats), prismaFigure)
		r.report.AddSignal("figure_caption_fallback", "methodology", "info", "figure description generated from PRISMA totals", 0)
	}
	r.Set(KeyMethodology, methodology)
	r.Set(KeyFigure, figure)

	d := document.AppendSection(r.Primary, HeadingMethodology, methodology, false)
	d = d.AppendBlocks(document.Paragraph(prisma.FigureTitle(prismaFigure)), document.Paragraph(figure))
	return o.updatePrimary(r, d)
}

func (o *Orchestrator) runDiscussion(ctx context.Context, r *Run) error {
	req := r.Request
	excerpt := document.PlainText(r.Primary, discussionExcerptChars)
	prompt := discussionPrompt(req.Topic, req.Country, search.Level(req.Level).Label(), prisma.SummaryLines(r.Stats), excerpt)
	text, err := o.generate(ctx, "discussion", analytical(prompt, discussionTemperature, discussionMaxTokens))
	if err != nil {
		return err
	}
	parts := ParseLabelled(text, "DISCUSION", "CONCLUSION")
	if parts["CONCLUSION"] == "" {
		r.report.AddSignal("unlabelled_response", "discussion", "warning", "conclusions missing from discussion response", 0)
	}
	r.Set(KeyDiscussion, parts["DISCUSION"])
	r.Set(KeyConclusion, parts["CONCLUSION"])

	d := document.AppendSection(r.Primary, HeadingDiscussion, parts["DISCUSION"], false)
	d = document.AppendSection(d, HeadingConclusions, parts["CONCLUSION"], false)
	return o.updatePrimary(r, d)
}

// runAbstract replaces the RESUMEN and ABSTRACT placeholders. A missing
// heading makes the section go at the end instead.
func (o *Orchestrator) runAbstract(ctx context.Context, r *Run) error {
	excerpt := document.PlainText(r.Primary, abstractExcerptChars)
	text, err := o.generate(ctx, "abstract", analytical(abstractPrompt(excerpt), abstractTemperature, abstractMaxTokens))
	if err != nil {
		return err
	}
	parts := ParseLabelled(text, "RESUMEN_ES", "RESUMEN_EN", "PULIDO")
	r.Set(KeyAbstractES, parts["RESUMEN_ES"])
	r.Set(KeyAbstractEN, parts["RESUMEN_EN"])
	r.Set(KeyPolished, parts["PULIDO"])

	d := r.Primary
	for _, s := range []struct{ heading, text string }{
		{HeadingAbstractES, parts["RESUMEN_ES"]},
		{HeadingAbstractEN, parts["RESUMEN_EN"]},
	} {
		if s.text == "" {
			r.report.AddSignal("abstract_missing", "abstract", "warning", s.heading+" left as placeholder", 0)
			continue
		}
		var appended bool
		d, appended = document.ReplaceOrAppend(d, []string{s.heading}, s.heading, s.text)
		if appended {
			o.log.Warn("section heading not found, appended instead", "run_id", r.ID, "heading", s.heading)
			r.report.AddSignal("section_appended", "abstract", "warning", s.heading+" heading not found, section appended", 0)
		}
	}
	return o.updatePrimary(r, d)
}

// runAssembly moves the reference list to the end and merges the
// sub-documents written by earlier stages into the final article.
func (o *Orchestrator) runAssembly(_ context.Context, r *Run) error {
	final := moveSectionToEnd(r.Primary, HeadingReferences)

	var subs []document.SubDocument
	n := 0
	annex := func(path string) {
		n++
		subs = append(subs, document.SubDocument{Path: path, Heading: fmt.Sprintf("ANEXO %d", n)})
	}
	annex(r.Artifacts.References)
	for _, p := range r.Artifacts.PrismaTables {
		annex(p)
	}
	for _, p := range r.Artifacts.SearchResults {
		annex(p)
	}

	final, skipped := document.MergeFiles(final, subs)
	for _, s := range skipped {
		o.log.Warn("sub-document skipped", "run_id", r.ID, "path", s.Path, "error", s.Err)
		r.report.AddSignal("merge_skipped", "assembly", "warning", s.Error(), 0)
	}

	path, err := r.write("final", "articulo", "_final", "docx", final)
	if err != nil {
		return err
	}
	r.Artifacts.Final = path
	md, err := r.write("markdown", "articulo", "_final", "md", final)
	if err != nil {
		return err
	}
	r.Artifacts.Markdown = md
	return nil
}

// updatePrimary keeps the in-memory article and its files in sync.
func (o *Orchestrator) updatePrimary(r *Run, d document.Document) error {
	r.Primary = d
	if r.Artifacts.Primary != "" {
		if err := document.WriteFile(r.Artifacts.Primary, d); err != nil {
			return fmt.Errorf("failed to update primary article: %w", err)
		}
	}
	if r.Artifacts.PrimaryModel != "" {
		if err := document.WriteFile(r.Artifacts.PrimaryModel, d); err != nil {
			return fmt.Errorf("failed to update primary model: %w", err)
		}
	}
	return nil
}

// moveSectionToEnd relocates the section under heading, heading included, to
// the end of d. d is returned unchanged when the heading is absent.
func moveSectionToEnd(d document.Document, heading string) document.Document {
	start := d.FindHeading(heading)
	if start < 0 {
		return d.Clone()
	}
	end := start + 1
	for end < len(d.Blocks) && !d.IsHeading(end) {
		end++
	}
	out := make([]document.Block, 0, len(d.Blocks))
	out = append(out, d.Blocks[:start]...)
	out = append(out, d.Blocks[end:]...)
	out = append(out, d.Blocks[start:end]...)
	return document.New(out...)
}

// shortTitle keeps the first n words of a title.
func shortTitle(title string, n int) string {
	words := strings.Fields(title)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
