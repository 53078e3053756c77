package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"papergen/internal/document"
)

const timestampLayout = "20060102150405"

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)

// ArtifactWriter places run outputs under <root>/<run-id>/ as
// <name>_<timestamp><suffix>.<ext>, never reusing a path.
type ArtifactWriter struct {
	dir   string
	stamp string

	mu       sync.Mutex
	reserved map[string]bool
}

func NewArtifactWriter(root, runID string, started time.Time) *ArtifactWriter {
	return &ArtifactWriter{
		dir:      filepath.Join(root, runID),
		stamp:    started.Format(timestampLayout),
		reserved: make(map[string]bool),
	}
}

func (w *ArtifactWriter) Dir() string { return w.dir }

// Path reserves a unique artifact path. Collisions get -2, -3, ... before the
// extension.
func (w *ArtifactWriter) Path(name, suffix, ext string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	base := fmt.Sprintf("%s_%s%s", sanitizeName(name), w.stamp, suffix)
	ext = "." + strings.TrimPrefix(ext, ".")
	candidate := filepath.Join(w.dir, base+ext)
	for n := 2; w.taken(candidate); n++ {
		candidate = filepath.Join(w.dir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
	w.reserved[candidate] = true
	return candidate
}

func (w *ArtifactWriter) taken(path string) bool {
	if w.reserved[path] {
		return true
	}
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

// Write reserves a path and writes d there in the format given by ext.
func (w *ArtifactWriter) Write(name, suffix, ext string, d document.Document) (string, error) {
	path := w.Path(name, suffix, ext)
	if err := document.WriteFile(path, d); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

func sanitizeName(name string) string {
	name = unsafeName.ReplaceAllString(strings.TrimSpace(name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "artifact"
	}
	return name
}
