package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDOCX_RoundTrip(t *testing.T) {
	doc := New(
		Heading("Gestión del talento", 0),
		Heading("RESUMEN", 1),
		Paragraph("Texto con <símbolos> & acentos."),
		Break(),
		Heading("Subtema", 2),
		Paragraph("Última línea."),
	)
	path := filepath.Join(t.TempDir(), "out", "articulo.docx")

	require.NoError(t, WriteDOCX(path, doc))
	got, err := ReadDOCX(path)
	require.NoError(t, err)

	require.Len(t, got.Blocks, len(doc.Blocks))
	for i, want := range doc.Blocks {
		assert.Equal(t, want.Kind, got.Blocks[i].Kind, "block %d", i)
		assert.Equal(t, want.Text, got.Blocks[i].Text, "block %d", i)
		if want.Kind == KindHeading {
			assert.Equal(t, want.Level, got.Blocks[i].Level, "block %d", i)
		}
	}
}

func TestDOCX_RawBlocksSurviveRewrite(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.docx")
	second := filepath.Join(dir, "b.docx")

	require.NoError(t, WriteDOCX(first, New(Heading("TABLA", 1), Paragraph("fila"))))
	read, err := ReadDOCX(first)
	require.NoError(t, err)
	for _, b := range read.Blocks {
		assert.NotEmpty(t, b.Raw)
	}

	require.NoError(t, WriteDOCX(second, read))
	again, err := ReadDOCX(second)
	require.NoError(t, err)
	assert.Equal(t, texts(read), texts(again))
}

func TestDecodeDOCXBody_TablesAreOpaque(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:pPr><w:pStyle w:val="Ttulo1"/></w:pPr><w:r><w:t>Tablas</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Objetivo</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Resultados</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:sectPr/>
</w:body>
</w:document>`

	d, err := DecodeDOCXBody(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, d.Blocks, 2)
	assert.Equal(t, Heading("Tablas", 1).Text, d.Blocks[0].Text)
	assert.Equal(t, KindHeading, d.Blocks[0].Kind)
	assert.Equal(t, KindOpaque, d.Blocks[1].Kind)
	assert.Contains(t, d.Blocks[1].Text, "Objetivo")
	assert.Contains(t, d.Blocks[1].Raw, "<w:tbl>")
}

func TestDecodeDOCXBody_UndeclaredPrefixesFallBackToText(t *testing.T) {
	const (
		wURI   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
		w14URI = "http://schemas.microsoft.com/office/word/2010/wordml"
		w15URI = "http://schemas.microsoft.com/office/word/2012/wordml"
		mcURI  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	)
	for name, root := range map[string]string{
		"declared in source":   `<w:document xmlns:w="` + wURI + `" xmlns:w14="` + w14URI + `" xmlns:w15="` + w15URI + `" xmlns:mc="` + mcURI + `">`,
		"undeclared in source": `<w:document xmlns:w="` + wURI + `" xmlns:w14="` + w14URI + `" xmlns:mc="` + mcURI + `">`,
	} {
		t.Run(name, func(t *testing.T) {
			body := root + `<w:body>
<w:p w14:paraId="1A2B"><w:r><w:t>conocido</w:t></w:r></w:p>
<w:p w15:foo="1"><w:r><w:t>extendido</w:t></w:r></w:p>
<w:p mc:Ignorable="w15"><w:r><w:t>ignorable</w:t></w:r></w:p>
</w:body></w:document>`

			d, err := DecodeDOCXBody(strings.NewReader(body))
			require.NoError(t, err)
			require.Len(t, d.Blocks, 3)
			assert.Equal(t, []string{"conocido", "extendido", "ignorable"}, texts(d))
			assert.Contains(t, d.Blocks[0].Raw, "w14:paraId")
			assert.Empty(t, d.Blocks[1].Raw)
			assert.Empty(t, d.Blocks[2].Raw)

			out := renderBody(d)
			assert.NotContains(t, out, "w15")
			again, err := DecodeDOCXBody(strings.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, texts(d), texts(again))
		})
	}
}

func TestSaveModel_RoundTrip(t *testing.T) {
	doc := New(Heading("Titulo", 0), Paragraph("uno"), Break())
	path := filepath.Join(t.TempDir(), "articulo.json")

	require.NoError(t, SaveModel(path, NewModel(doc)))
	m, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, "Titulo", m.Title)
	assert.Equal(t, doc, m.Document())
}

func TestSaveModel_ValidatesAgainstJSONSchema(t *testing.T) {
	m := NewModel(New(Paragraph("uno")))
	m.Blocks[0].Kind = "table"

	err := SaveModel(filepath.Join(t.TempDir(), "bad.json"), m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestLoadModel_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":"v1","blocks":[],"extra":1}`), 0644))

	_, err := LoadModel(path)
	require.Error(t, err)
}

func TestMarkdown_RenderAndParse(t *testing.T) {
	doc := New(Heading("Titulo", 0), Heading("RESUMEN", 1), Paragraph("uno"), Break(), Paragraph("dos"))

	md := RenderMarkdown(doc)
	assert.Equal(t, "# Titulo\n\n## RESUMEN\n\nuno\n\n---\n\ndos\n", md)
	assert.Equal(t, doc, ParseMarkdown(md))
}

func TestReadFile_PlainTextIsClassified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notas.txt")
	require.NoError(t, os.WriteFile(path, []byte("RESUMEN\nEste es el cuerpo.\n\nABSTRACT\nBody.\n"), 0644))

	d, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"RESUMEN", "ABSTRACT"}, d.Headings())
	assert.Equal(t, 4, d.ParagraphCount())
}

func TestMergeFiles_SkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "prisma.docx")
	require.NoError(t, WriteDOCX(good, New(Paragraph("registro"))))

	target := New(Heading("Titulo", 0))
	out, skipped := MergeFiles(target, []SubDocument{
		{Path: filepath.Join(dir, "missing.docx"), Heading: "Faltante"},
		{Path: good, Heading: "Tablas PRISMA"},
	})

	require.Len(t, skipped, 1)
	assert.Equal(t, filepath.Join(dir, "missing.docx"), skipped[0].Path)
	assert.Error(t, skipped[0].Err)
	assert.Equal(t, []string{"Titulo", "", "Tablas PRISMA", "registro"}, texts(out))
}

func TestPlainText_Truncates(t *testing.T) {
	doc := New(Heading("Título", 0), Break(), Paragraph("cuerpo"))
	assert.Equal(t, "Título\ncuerpo", PlainText(doc, 0))
	assert.Equal(t, "Títu", PlainText(doc, 4))
}
