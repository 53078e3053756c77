// Package extract pulls best-effort plain text out of downloaded candidate
// articles.
package extract

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"papergen/internal/document"
)

// DefaultMaxChars bounds the text handed to per-article extraction prompts.
const DefaultMaxChars = 16000

// Extractor returns whatever text it can; failures yield empty text.
type Extractor interface {
	Extract(path string) string
}

// ExtractionError reports why a file produced no text.
type ExtractionError struct {
	Path   string
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FileExtractor sniffs the content and dispatches to the PDF, DOCX, HTML or
// plain-text reader.
type FileExtractor struct {
	MaxChars int
}

func New(maxChars int) *FileExtractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &FileExtractor{MaxChars: maxChars}
}

func (x *FileExtractor) Extract(path string) string {
	text, _ := x.ExtractFile(path)
	return text
}

// ExtractFile is Extract with the underlying error exposed. Partial text may be
// returned together with an error.
func (x *FileExtractor) ExtractFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Format: "unknown", Err: err}
	}
	if len(data) == 0 {
		return "", &ExtractionError{Path: path, Format: "unknown", Err: fmt.Errorf("empty file")}
	}

	var (
		text   string
		format string
	)
	switch {
	case isPDF(data):
		format = "pdf"
		text, err = extractPDF(path)
	case isZip(data) || strings.EqualFold(filepath.Ext(path), ".docx"):
		format = "docx"
		text, err = extractDOCX(path)
	case looksLikeHTML(data):
		format = "html"
		text = extractHTML(string(data))
	default:
		format = "text"
		text = decodeLossy(data)
	}

	// Structured readers that found nothing fall back to the raw bytes when
	// they are mostly text.
	if strings.TrimSpace(text) == "" && (format == "pdf" || format == "docx") && isProbablyText(data) {
		text = extractHTML(decodeLossy(data))
	}

	text = document.Truncate(collapseWhitespace(text), x.MaxChars)
	if err != nil {
		return text, &ExtractionError{Path: path, Format: format, Err: err}
	}
	if text == "" {
		return "", &ExtractionError{Path: path, Format: format, Err: fmt.Errorf("no text found")}
	}
	return text, nil
}

func extractPDF(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	var firstErr error
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		t, perr := pageText(page)
		if perr != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", i, perr)
			}
			continue
		}
		sb.WriteString(t)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 && firstErr != nil {
		return "", firstErr
	}
	return sb.String(), nil
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page text panic: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

func extractDOCX(path string) (string, error) {
	d, err := document.ReadDOCX(path)
	if err != nil {
		return "", err
	}
	return document.PlainText(d, 0), nil
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
)

func extractHTML(s string) string {
	s = scriptPattern.ReplaceAllString(s, " ")
	s = tagPattern.ReplaceAllString(s, " ")
	return html.UnescapeString(s)
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

func looksLikeHTML(b []byte) bool {
	head := bytes.ToLower(b[:min(len(b), 2048)])
	trimmed := bytes.TrimSpace(head)
	if bytes.HasPrefix(trimmed, []byte("<!doctype")) || bytes.HasPrefix(trimmed, []byte("<html")) {
		return true
	}
	return bytes.Contains(head, []byte("<html")) || bytes.Contains(head, []byte("<body"))
}

// decodeLossy reads bytes as UTF-8, dropping invalid sequences.
func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "")
}

// isProbablyText accepts samples without NUL bytes that are mostly printable.
func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
