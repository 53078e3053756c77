// Package document models paragraph-oriented documents as an ordered list of
// blocks and provides the structural edits used to assemble articles:
// section replacement, section append and sub-document merge.
package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind tags a block. Headings are always tagged explicitly; text casing is only
// consulted when classifying untagged input (see Classify).
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindBreak     Kind = "break"
	// KindOpaque is a source element kept verbatim, e.g. a table read from DOCX.
	KindOpaque Kind = "opaque"
)

// headingHeuristicMaxRunes bounds the uppercase-line heuristic.
const headingHeuristicMaxRunes = 25

// Block is one unit of a Document.
type Block struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text"`
	Level int    `json:"level,omitempty"`
	Style string `json:"style,omitempty"`
	// Raw is the verbatim source markup, re-emitted unchanged on write.
	Raw string `json:"raw,omitempty"`
}

// Document is an ordered sequence of blocks.
type Document struct {
	Blocks []Block `json:"blocks"`
}

func Heading(text string, level int) Block {
	return Block{Kind: KindHeading, Text: strings.TrimSpace(text), Level: level}
}

func Paragraph(text string) Block {
	return Block{Kind: KindParagraph, Text: text}
}

func Break() Block {
	return Block{Kind: KindBreak}
}

// New builds a document from blocks. The slice is copied.
func New(blocks ...Block) Document {
	return Document{Blocks: append([]Block(nil), blocks...)}
}

// Clone returns a deep copy (blocks are plain values).
func (d Document) Clone() Document {
	return Document{Blocks: append([]Block(nil), d.Blocks...)}
}

func (d Document) IsHeading(i int) bool {
	return i >= 0 && i < len(d.Blocks) && d.Blocks[i].Kind == KindHeading
}

// ParagraphCount counts headings and paragraphs. Breaks and opaque blocks are
// not paragraphs.
func (d Document) ParagraphCount() int {
	n := 0
	for _, b := range d.Blocks {
		if b.Kind == KindHeading || b.Kind == KindParagraph {
			n++
		}
	}
	return n
}

// Headings returns the text of every tagged heading in order.
func (d Document) Headings() []string {
	var out []string
	for _, b := range d.Blocks {
		if b.Kind == KindHeading {
			out = append(out, b.Text)
		}
	}
	return out
}

// HasTaggedHeadings reports whether any block carries explicit heading metadata.
func (d Document) HasTaggedHeadings() bool {
	for _, b := range d.Blocks {
		if b.Kind == KindHeading {
			return true
		}
	}
	return false
}

// FindHeading returns the index of the first block whose normalized text matches
// one of names, or -1.
func (d Document) FindHeading(names ...string) int {
	set := nameSet(names)
	for i, b := range d.Blocks {
		if b.Kind != KindHeading && b.Kind != KindParagraph {
			continue
		}
		if set[NormalizeHeading(b.Text)] {
			return i
		}
	}
	return -1
}

// AppendBlocks returns a copy of d with blocks appended.
func (d Document) AppendBlocks(blocks ...Block) Document {
	out := make([]Block, 0, len(d.Blocks)+len(blocks))
	out = append(out, d.Blocks...)
	out = append(out, blocks...)
	return Document{Blocks: out}
}

// LooksLikeHeading is the legacy heuristic: a short line whose letters are all
// uppercase.
func LooksLikeHeading(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || utf8.RuneCountInString(t) >= headingHeuristicMaxRunes {
		return false
	}
	letters := 0
	for _, r := range t {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return letters > 0
}

// Classify tags untagged paragraphs that pass LooksLikeHeading as level-1
// headings. Documents that already carry heading metadata are returned as is.
func Classify(d Document) Document {
	if d.HasTaggedHeadings() {
		return d.Clone()
	}
	out := d.Clone()
	for i, b := range out.Blocks {
		if b.Kind == KindParagraph && LooksLikeHeading(b.Text) {
			out.Blocks[i] = Block{Kind: KindHeading, Text: strings.TrimSpace(b.Text), Level: 1, Raw: b.Raw}
		}
	}
	return out
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeHeading trims, uppercases, folds accents and drops a trailing colon so
// "Introducción:" and "INTRODUCCION" compare equal.
func NormalizeHeading(text string) string {
	t := strings.TrimSpace(text)
	if folded, _, err := transform.String(accentFolder, t); err == nil {
		t = folded
	}
	t = strings.ToUpper(t)
	t = strings.TrimSpace(strings.TrimSuffix(t, ":"))
	return strings.Join(strings.Fields(t), " ")
}

// SplitParagraphs is the canonical paragraph-boundary rule: every non-blank
// line is one paragraph.
func SplitParagraphs(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func paragraphsOf(content string) []Block {
	lines := SplitParagraphs(content)
	out := make([]Block, 0, len(lines))
	for _, line := range lines {
		out = append(out, Paragraph(line))
	}
	return out
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if k := NormalizeHeading(n); k != "" {
			set[k] = true
		}
	}
	return set
}
