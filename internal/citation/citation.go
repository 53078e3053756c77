package citation

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

type Style string

const (
	Narrative     Style = "narrative"
	Parenthetical Style = "parenthetical"
)

// DefaultConnective opens narrative citations.
const DefaultConnective = "Además,"

// FallbackEntry is the placeholder reference used when a block has no sources.
const FallbackEntry = "Referencia simulada (2024)."

// Citation is an in-text marker derived from one reference entry.
type Citation struct {
	Marker    string
	Style     Style
	Author    string
	Year      string
	Reference string
	// Simulated marks placeholder sources that were not retrieved.
	Simulated bool
}

// FromReference derives a citation in the given style.
func FromReference(ref Reference, style Style) Citation {
	c := Citation{
		Style:     style,
		Author:    ref.Author,
		Year:      ref.Year,
		Reference: ref.Entry,
	}
	if style == Narrative {
		c.Marker = fmt.Sprintf("%s (%s)", ref.Author, ref.Year)
	} else {
		c.Marker = fmt.Sprintf("(%s, %s)", ref.Author, ref.Year)
	}
	return c
}

// BuildCitations alternates narrative (even index) and parenthetical (odd
// index) citations over refs.
func BuildCitations(refs []string) []Citation {
	out := make([]Citation, 0, len(refs))
	for i, entry := range refs {
		style := Narrative
		if i%2 == 1 {
			style = Parenthetical
		}
		out = append(out, FromReference(ParseReference(entry), style))
	}
	return out
}

// FallbackCitation is the simulated citation used when none are available.
func FallbackCitation() Citation {
	c := FromReference(ParseReference(FallbackEntry), Parenthetical)
	c.Simulated = true
	return c
}

// Apply attaches the citation to one sentence (no trailing period).
func (c Citation) Apply(sentence, connective string) string {
	if c.Style == Narrative {
		if connective == "" {
			connective = DefaultConnective
		}
		return fmt.Sprintf("%s %s, %s", connective, c.Marker, lowerFirst(sentence))
	}
	return sentence + " " + c.Marker
}

// lowerFirst lowercases the initial letter unless the first word looks like an
// acronym or proper initialism.
func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
