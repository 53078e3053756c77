package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ReadFile loads a document by extension: .docx, .json (document model), .md,
// or plain text classified with the uppercase heading heuristic.
func ReadFile(path string) (Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return ReadDOCX(path)
	case ".json":
		m, err := LoadModel(path)
		if err != nil {
			return Document{}, err
		}
		return m.Document(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	if !utf8.Valid(b) {
		return Document{}, fmt.Errorf("%s is not a supported document", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".md") {
		return ParseMarkdown(string(b)), nil
	}
	return Classify(New(paragraphsOf(string(b))...)), nil
}

// WriteFile writes a document by extension. Unknown extensions get plain text.
func WriteFile(path string, d Document) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return WriteDOCX(path, d)
	case ".json":
		return SaveModel(path, NewModel(d))
	case ".md":
		return WriteMarkdown(path, d)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(PlainText(d, 0)), 0644)
}

// PlainText joins block texts with newlines, skipping breaks. maxChars > 0
// truncates on a rune boundary.
func PlainText(d Document, maxChars int) string {
	var sb strings.Builder
	for _, b := range d.Blocks {
		if b.Kind == KindBreak {
			continue
		}
		t := strings.TrimSpace(b.Text)
		if t == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t)
	}
	return Truncate(sb.String(), maxChars)
}

// Truncate cuts s to at most maxChars runes. maxChars <= 0 disables it.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars])
}
