package pipeline

import (
	"strings"

	"papergen/internal/document"
)

// ParseLabelled splits a response written as "LABEL:" sections. Labels match
// case- and accent-insensitively at the start of a line, with optional
// markdown emphasis. Text before the first label belongs to labels[0] when
// that label is absent; a response with no labels at all goes entirely to
// labels[0]. Every label is present in the result.
func ParseLabelled(raw string, labels ...string) map[string]string {
	out := make(map[string]string, len(labels))
	for _, l := range labels {
		out[l] = ""
	}
	if len(labels) == 0 {
		return out
	}

	want := make(map[string]string, len(labels))
	for _, l := range labels {
		want[labelKey(l)] = l
	}

	sections := make(map[string][]string, len(labels))
	var preamble []string
	current := ""
	found := make(map[string]bool)
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if label, rest, ok := matchSectionLabel(line, want); ok {
			current = label
			found[label] = true
			if rest != "" {
				sections[label] = append(sections[label], rest)
			}
			continue
		}
		if current == "" {
			preamble = append(preamble, line)
			continue
		}
		sections[current] = append(sections[current], line)
	}

	if len(found) == 0 {
		out[labels[0]] = strings.TrimSpace(raw)
		return out
	}
	if !found[labels[0]] {
		sections[labels[0]] = append(preamble, sections[labels[0]]...)
	}
	for label, lines := range sections {
		out[label] = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	return out
}

func matchSectionLabel(line string, want map[string]string) (string, string, bool) {
	t := strings.TrimSpace(line)
	colon := strings.Index(t, ":")
	if colon <= 0 {
		return "", "", false
	}
	label, ok := want[labelKey(t[:colon])]
	if !ok {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.Trim(t[colon+1:], "* "))
	return label, rest, true
}

func labelKey(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "*#_ ")
	s = document.NormalizeHeading(s)
	return strings.ReplaceAll(s, "_", " ")
}

// firstLine returns the first non-blank line without surrounding quotes or
// emphasis and without a leading "Título:" label.
func firstLine(text string) string {
	lines := document.SplitParagraphs(text)
	if len(lines) == 0 {
		return ""
	}
	line := lines[0]
	if i := strings.Index(line, ":"); i > 0 && labelKey(line[:i]) == "TITULO" {
		line = line[i+1:]
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), `"'“”«»*#`))
}

// listItems reads one entry per line, dropping list markers and numbering.
func listItems(text string) []string {
	var out []string
	for _, line := range document.SplitParagraphs(text) {
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.TrimSpace(strings.Trim(line, `"'“”`))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
