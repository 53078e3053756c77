package citation

import (
	"strings"

	"papergen/internal/document"
)

const sentenceSeparator = ". "

// InsertCitations attaches one citation per sentence and returns the resulting
// paragraphs joined by blank lines. See InsertParagraphs.
func InsertCitations(text string, cites []Citation) string {
	return strings.Join(InsertParagraphs(text, cites), "\n\n")
}

// InsertParagraphs splits text into sentences on ". " (line breaks also end a
// sentence) and gives the i-th non-blank sentence cites[i mod k]. A marker
// already used in the current paragraph closes it, so no paragraph repeats a
// marker. An empty cites slice falls back to FallbackCitation.
func InsertParagraphs(text string, cites []Citation) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if len(cites) == 0 {
		cites = []Citation{FallbackCitation()}
	}

	var (
		out     []string
		current []string
		used    = make(map[string]bool)
	)
	for i, sentence := range sentences {
		c := cites[i%len(cites)]
		if used[c.Marker] {
			out = append(out, closeParagraph(current))
			current = nil
			used = map[string]bool{}
		}
		current = append(current, c.Apply(sentence, DefaultConnective))
		used[c.Marker] = true
	}
	if len(current) > 0 {
		out = append(out, closeParagraph(current))
	}
	return out
}

func splitSentences(text string) []string {
	var out []string
	for _, line := range document.SplitParagraphs(text) {
		for _, s := range strings.Split(line, sentenceSeparator) {
			s = strings.TrimSpace(s)
			s = strings.TrimSpace(strings.TrimRight(s, "."))
			if s == "" {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

func closeParagraph(sentences []string) string {
	return strings.Join(sentences, sentenceSeparator) + "."
}
