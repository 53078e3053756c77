package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStructureMismatch is returned when none of the requested headings exist.
var ErrStructureMismatch = errors.New("structure mismatch")

// StructureMismatchError names the headings a splice could not locate.
type StructureMismatchError struct {
	Headings []string
}

func (e *StructureMismatchError) Error() string {
	return fmt.Sprintf("%s: no heading matches %s", ErrStructureMismatch, strings.Join(e.Headings, ", "))
}

func (e *StructureMismatchError) Unwrap() error { return ErrStructureMismatch }

type spliceState int

const (
	outside spliceState = iota
	insideTarget
)

// ReplaceSection swaps the body of the section introduced by one of headings for
// content (split with SplitParagraphs). The heading itself is kept and the new
// paragraphs follow it. The section ends at the next heading, which is kept.
//
// When no heading matches, the document is returned unchanged together with a
// *StructureMismatchError; content is never placed anywhere else.
func ReplaceSection(d Document, headings []string, content string) (Document, error) {
	return splice(d, headings, paragraphsOf(content))
}

// DeleteSection removes the body of the matching section, keeping its heading.
func DeleteSection(d Document, headings []string) (Document, error) {
	return splice(d, headings, nil)
}

// AppendSection adds a heading and its paragraphs at the very end, optionally
// preceded by a page break.
func AppendSection(d Document, title, content string, withBreak bool) Document {
	blocks := make([]Block, 0, 2)
	if withBreak {
		blocks = append(blocks, Break())
	}
	blocks = append(blocks, Heading(title, 1))
	blocks = append(blocks, paragraphsOf(content)...)
	return d.AppendBlocks(blocks...)
}

// ReplaceOrAppend replaces the section and falls back to appending a fresh
// section titled fallbackTitle when the structure does not match. The returned
// bool reports whether the fallback was used.
func ReplaceOrAppend(d Document, headings []string, fallbackTitle, content string) (Document, bool) {
	out, err := ReplaceSection(d, headings, content)
	if err == nil {
		return out, false
	}
	return AppendSection(d, fallbackTitle, content, false), true
}

func splice(d Document, headings []string, insert []Block) (Document, error) {
	targets := nameSet(headings)
	legacy := !d.HasTaggedHeadings()
	src := d
	if legacy {
		src = Classify(d)
	}

	out := make([]Block, 0, len(src.Blocks)+len(insert))
	state := outside
	inserted := false

	for _, b := range src.Blocks {
		if state == insideTarget && b.Kind == KindHeading {
			state = outside
		}
		if state == insideTarget {
			continue
		}
		if inserted || !isTarget(b, targets) {
			out = append(out, b)
			continue
		}
		// A matched plain paragraph becomes a heading so the result keeps
		// its section boundaries on the next splice.
		if legacy && b.Kind == KindParagraph {
			b = Block{Kind: KindHeading, Text: strings.TrimSpace(b.Text), Level: 1, Raw: b.Raw}
		}
		out = append(out, b)
		out = append(out, insert...)
		state = insideTarget
		inserted = true
	}

	if !inserted {
		return d.Clone(), &StructureMismatchError{Headings: append([]string(nil), headings...)}
	}
	return Document{Blocks: out}, nil
}

// isTarget reports whether b introduces one of the requested sections.
// Untagged documents are classified beforehand, so only headings end a section.
func isTarget(b Block, targets map[string]bool) bool {
	return (b.Kind == KindHeading || b.Kind == KindParagraph) && targets[NormalizeHeading(b.Text)]
}
