package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papergen/internal/document"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtract_HTMLSavedAsPDF(t *testing.T) {
	path := writeFile(t, "articulo.pdf", `<!DOCTYPE html><html><head><style>p{}</style><script>var x=1;</script></head>
<body><h1>Gestión &amp; talento</h1><p>Resultados   del estudio.</p></body></html>`)

	got, err := New(0).ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Gestión & talento Resultados del estudio.", got)
}

func TestExtract_PlainText(t *testing.T) {
	path := writeFile(t, "notas.txt", "línea uno\n\nlínea\tdos fin")
	assert.Equal(t, "línea uno línea dos fin", New(0).Extract(path))
}

func TestExtract_DOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidato.docx")
	require.NoError(t, document.WriteDOCX(path, document.New(document.Heading("Título", 0), document.Paragraph("Cuerpo del artículo."))))

	got, err := New(0).ExtractFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Título Cuerpo del artículo.", got)
}

func TestExtract_Truncates(t *testing.T) {
	path := writeFile(t, "largo.txt", strings.Repeat("á", 50))
	assert.Equal(t, strings.Repeat("á", 10), New(10).Extract(path))
}

func TestExtract_FailuresNeverPanic(t *testing.T) {
	x := New(0)

	assert.Equal(t, "", x.Extract(filepath.Join(t.TempDir(), "missing.pdf")))

	empty := writeFile(t, "vacio.pdf", "")
	_, err := x.ExtractFile(empty)
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, empty, ee.Path)

	broken := writeFile(t, "roto.pdf", "%PDF-1.4\nnot really a pdf")
	_, err = x.ExtractFile(broken)
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "pdf", ee.Format)

	zipLike := writeFile(t, "roto.docx", "PK\x03\x04garbage")
	assert.NotPanics(t, func() { x.Extract(zipLike) })
}
