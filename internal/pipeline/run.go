package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"papergen/internal/citation"
	"papergen/internal/document"
	"papergen/internal/prisma"
)

// Block keys.
const (
	KeyTitle         = "titulo"
	KeyVariable1     = "variable1"
	KeyVariable2     = "variable2"
	KeyVariable1EN   = "variable1_en"
	KeyContext       = "contexto"
	KeyWorld         = "mundial"
	KeyLatam         = "latam"
	KeyCountry       = "pais"
	KeyProblem       = "problema"
	KeyJustification = "justificacion"
	KeyTheory1       = "teoria1"
	KeyTheory2       = "teoria2"
	KeyMethodology   = "metodologia"
	KeyFigure        = "figura_prisma"
	KeyDiscussion    = "discusion"
	KeyConclusion    = "conclusion"
	KeyAbstractES    = "resumen_es"
	KeyAbstractEN    = "resumen_en"
	KeyPolished      = "pulido"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// IntroductionOrder is the assembly order of the introduction.
var IntroductionOrder = []string{KeyContext, KeyWorld, KeyLatam, KeyCountry, KeyProblem, KeyJustification}

// ConceptKey names paragraph p (1-based) of the concept text for variable v.
func ConceptKey(v, p int) string {
	return fmt.Sprintf("concepto%d_p%d", v, p)
}

// FrameworkOrder is the assembly order of the theoretical framework for n
// concept paragraphs per variable.
func FrameworkOrder(n int) []string {
	keys := []string{KeyTheory1, KeyTheory2}
	for v := 1; v <= 2; v++ {
		for p := 1; p <= n; p++ {
			keys = append(keys, ConceptKey(v, p))
		}
	}
	return keys
}

// ContentBlock is a named piece of generated text.
type ContentBlock struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Request starts a run.
type Request struct {
	Topic   string `json:"topic"`
	Level   string `json:"level"`
	Country string `json:"country"`
}

// Artifacts are the files a run wrote.
type Artifacts struct {
	Primary       string   `json:"primary,omitempty"`
	PrimaryModel  string   `json:"primary_model,omitempty"`
	References    string   `json:"references,omitempty"`
	SearchResults []string `json:"search_results,omitempty"`
	PrismaTables  []string `json:"prisma_tables,omitempty"`
	Final         string   `json:"final,omitempty"`
	Markdown      string   `json:"markdown,omitempty"`
}

// Response is the outcome of a successful run.
type Response struct {
	RunID     string        `json:"run_id"`
	Title     string        `json:"title"`
	Variables [2]string     `json:"variables"`
	Text      string        `json:"text"`
	Artifacts Artifacts     `json:"artifacts"`
	Stats     prisma.Stats  `json:"stats"`
	Totals    prisma.Totals `json:"totals"`
	Report    string        `json:"report,omitempty"`
}

// StageResult is what one executed stage left behind.
type StageResult struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Produced  []string      `json:"produced,omitempty"`
	Artifacts []string      `json:"artifacts,omitempty"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Run is the state of one article run. Block access is safe for concurrent
// use by fan-out stages.
type Run struct {
	ID        string
	Request   Request
	StartedAt time.Time
	Dir       string
	Status    string

	Stats   prisma.Stats
	Catalog *citation.Catalog
	// Primary is the in-memory article; stages that change it re-save it to
	// Artifacts.Primary.
	Primary   document.Document
	Artifacts Artifacts
	Results   []StageResult

	writer *ArtifactWriter
	report *Report

	mu       sync.Mutex
	blocks   map[string]ContentBlock
	produced []string
	written  []artifactNote
}

type artifactNote struct {
	kind string
	path string
}

func newRun(id string, req Request, started time.Time, writer *ArtifactWriter, report *Report) *Run {
	return &Run{
		ID:        id,
		Request:   req,
		StartedAt: started,
		Dir:       writer.Dir(),
		Status:    StatusRunning,
		Stats:     prisma.Stats{},
		writer:    writer,
		report:    report,
		blocks:    make(map[string]ContentBlock),
	}
}

// Set stores a block, replacing any earlier text under key.
func (r *Run) Set(key, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[key] = ContentBlock{Key: key, Text: strings.TrimSpace(text)}
	r.produced = append(r.produced, key)
}

func (r *Run) Block(key string) (ContentBlock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocks[key]
	return b, ok
}

// Text returns the block text, empty when missing.
func (r *Run) Text(key string) string {
	b, _ := r.Block(key)
	return b.Text
}

// Keys lists stored block keys in sorted order.
func (r *Run) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.blocks))
	for k := range r.blocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Title is the generated article title.
func (r *Run) Title() string { return r.Text(KeyTitle) }

func (r *Run) Variables() [2]string {
	return [2]string{r.Text(KeyVariable1), r.Text(KeyVariable2)}
}

// AllArtifacts lists every artifact recorded so far, in write order.
func (r *Run) AllArtifacts() []string {
	var out []string
	for _, res := range r.Results {
		out = append(out, res.Artifacts...)
	}
	return out
}

// collect gathers the blocks of order for assembly. Missing keys come back
// in the second return value and contribute nothing.
func (r *Run) collect(order []string) ([]ContentBlock, []string) {
	var blocks []ContentBlock
	var missing []string
	for _, key := range order {
		b, ok := r.Block(key)
		if !ok {
			missing = append(missing, key)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, missing
}

func (r *Run) beginStage() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.produced = nil
	r.written = nil
}

func (r *Run) stageOutput() ([]string, []artifactNote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dedupe(r.produced), append([]artifactNote(nil), r.written...)
}

// write stores d as a new artifact of the current stage.
func (r *Run) write(kind, name, suffix, ext string, d document.Document) (string, error) {
	path, err := r.writer.Write(name, suffix, ext, d)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.written = append(r.written, artifactNote{kind: kind, path: path})
	r.mu.Unlock()
	return path, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
