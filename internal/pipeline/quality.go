package pipeline

import (
	"strings"

	"papergen/internal/document"
)

const lowQualityThreshold = 0.6

type blockQuality struct {
	Score  float64
	Issues []string
}

// assessBlock scores a generated block against the drafting instructions it
// was produced under. It never rejects text; low scores only surface in the
// run report.
func assessBlock(key, content, title string) blockQuality {
	text := strings.TrimSpace(content)
	if text == "" {
		return blockQuality{Score: 0, Issues: []string{"empty_content"}}
	}

	score := 1.0
	issues := make([]string, 0, 6)
	lines := document.SplitParagraphs(text)
	bullets := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
			bullets++
		}
	}
	if len(lines) > 0 && float64(bullets)/float64(len(lines)) > 0.45 {
		score -= 0.25
		issues = append(issues, "list_heavy")
	}

	lower := strings.ToLower(text)
	for _, token := range []string{"[texto]", "escribe aquí", "como modelo de lenguaje", "lorem ipsum", "placeholder"} {
		if strings.Contains(lower, token) {
			score -= 0.3
			issues = append(issues, "instructional_or_placeholder_text")
			break
		}
	}

	if t := strings.ToLower(strings.TrimSpace(title)); key != KeyTitle && len(t) > 12 && strings.Contains(lower, t) {
		score -= 0.2
		issues = append(issues, "title_echo")
	}

	for _, token := range []string{"nosotros", "hablamos", "consideramos", "en este artículo"} {
		if strings.Contains(lower, token) {
			score -= 0.15
			issues = append(issues, "first_person")
			break
		}
	}

	if strings.HasPrefix(key, "concepto") && strings.Contains(lower, "variable") {
		score -= 0.15
		issues = append(issues, "mentions_variable")
	}

	words := len(strings.Fields(text))
	if key != KeyTitle && !strings.HasPrefix(key, "variable") && words < 25 {
		score -= 0.2
		issues = append(issues, "too_short")
	}

	if score < 0 {
		score = 0
	}
	return blockQuality{Score: score, Issues: issues}
}

func blockMetric(key, content, title string) BlockMetric {
	q := assessBlock(key, content, title)
	return BlockMetric{
		Key:          key,
		Words:        len(strings.Fields(content)),
		Paragraphs:   len(document.SplitParagraphs(content)),
		QualityScore: q.Score,
		Issues:       q.Issues,
	}
}
