package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papergen/internal/document"
)

func TestArtifactWriter_PathNaming(t *testing.T) {
	root := t.TempDir()
	started := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	w := NewArtifactWriter(root, "run-1", started)

	assert.Equal(t, filepath.Join(root, "run-1"), w.Dir())
	assert.Equal(t, filepath.Join(root, "run-1", "articulo_20250304050607_final.docx"), w.Path("articulo", "_final", "docx"))
	assert.Equal(t, filepath.Join(root, "run-1", "PRISMA_scielo_SciELO_20250304050607.docx"), w.Path("PRISMA_scielo_SciELO", "", ".docx"))
	assert.Equal(t, filepath.Join(root, "run-1", "artifact_20250304050607.md"), w.Path(" /// ", "", "md"))
}

func TestArtifactWriter_NeverReusesPath(t *testing.T) {
	root := t.TempDir()
	started := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	w := NewArtifactWriter(root, "run-1", started)

	first, err := w.Write("articulo", "", "docx", document.New(document.Paragraph("uno")))
	require.NoError(t, err)
	second := w.Path("articulo", "", "docx")
	assert.Equal(t, filepath.Join(root, "run-1", "articulo_20250304050607-2.docx"), second)

	// A file left by an earlier writer is not overwritten either.
	other := NewArtifactWriter(root, "run-1", started)
	third := other.Path("articulo", "", "docx")
	assert.NotEqual(t, first, third)

	_, err = os.Stat(first)
	require.NoError(t, err)
}
