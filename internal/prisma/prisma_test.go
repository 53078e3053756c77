package prisma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papergen/internal/document"
)

func TestAggregate(t *testing.T) {
	stats := Stats{
		"A": {Identified: 30, Included: 9, Excluded: 21},
		"B": {Identified: 10, Included: 4, Excluded: 6},
	}
	assert.Equal(t, Totals{Identified: 40, Included: 13, Excluded: 27}, Aggregate(stats))
	assert.Equal(t, Totals{}, Aggregate(nil))
}

func TestStats_NormalizeAndValidate(t *testing.T) {
	stats := Stats{"SciELO": {Identified: 15, Included: 5}}.Normalize()
	assert.Equal(t, 10, stats["SciELO"].Excluded)
	require.NoError(t, stats.Validate())

	bad := Stats{"Dialnet": {Identified: 2, Included: 3}}
	assert.Error(t, bad.Validate())
	assert.Error(t, Stats{"x": {Identified: -1}}.Validate())
}

func TestStats_Add(t *testing.T) {
	s := Stats{}
	s.Add("Dialnet", Counts{Identified: 3, Included: 1, Excluded: 2})
	s.Add("Dialnet", Counts{Identified: 2, Included: 2})
	assert.Equal(t, Counts{Identified: 5, Included: 3, Excluded: 2}, s["Dialnet"])
}

func TestSummaryLines_SortedBySource(t *testing.T) {
	s := Stats{
		"SciELO":  {Identified: 15, Included: 5, Excluded: 10},
		"Dialnet": {Identified: 20, Included: 8, Excluded: 12},
	}
	got := SummaryLines(s)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "- Dialnet: 20 registros identificados, 12 excluidos, 8 artículos incluidos en la revisión.", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "- SciELO:"))
}

func TestCaption(t *testing.T) {
	c := Caption(Totals{Identified: 40, Included: 13, Excluded: 27}, 1)
	assert.Contains(t, c, "Figura 1")
	assert.Contains(t, c, "40 registros")
	assert.Contains(t, c, "27 fueron excluidos")
	assert.Contains(t, c, "13 artículos incluidos")
	assert.Equal(t, c, Caption(Totals{Identified: 40, Included: 13, Excluded: 27}, 1))
}

func TestParseRecord(t *testing.T) {
	raw := `Artículo 3
Objetivo:
Analizar la gestión del talento
en empresas públicas.
Metodología: Estudio de caso
Tipo de metodología:
Cualitativa
Resultados/aportes:
Se identificaron tres factores.
Conclusiones:
La gestión mejora el desempeño.
País:
Perú
Año:
2022
**Referencia APA:** Quispe, L. (2022). Gestión del talento. Revista, 4(1). https://doi.org/10.1/abc
Cita APA:
(Quispe, 2022)
Título:
Gestión del talento: un estudio
`
	r := ParseRecord(raw)
	assert.Equal(t, "Analizar la gestión del talento en empresas públicas.", r.Objective)
	assert.Equal(t, "Estudio de caso", r.Methodology)
	assert.Equal(t, "Cualitativa", r.MethodologyType)
	assert.Equal(t, "Perú", r.Country)
	assert.Equal(t, "2022", r.Year)
	assert.Equal(t, "Quispe, L. (2022). Gestión del talento. Revista, 4(1). https://doi.org/10.1/abc", r.Reference)
	assert.Equal(t, "(Quispe, 2022)", r.Citation)
	assert.Equal(t, "Gestión del talento: un estudio", r.Title)
	assert.True(t, r.Included())
}

func TestParseRecord_EmptyIsExcluded(t *testing.T) {
	r := ParseRecord("No analysis available.")
	assert.False(t, r.Included())
	assert.Equal(t, Record{}, r)
}

func TestBuildRecordPrompt(t *testing.T) {
	p := BuildRecordPrompt("cuerpo del artículo", 7)
	assert.Contains(t, p, "Artículo 7\nObjetivo:")
	assert.True(t, strings.HasSuffix(p, "cuerpo del artículo"))
}

func TestTableDocument(t *testing.T) {
	d := TableDocument("scielo", "SciELO", []Record{{Objective: "o", Title: "t"}, {Objective: "p"}})
	require.Equal(t, document.KindHeading, d.Blocks[0].Kind)
	assert.Equal(t, "PRISMA – scielo – SciELO", d.Blocks[0].Text)
	assert.Len(t, d.Blocks, 1+2*11)
	assert.Equal(t, "Artículo 2", d.Blocks[12].Text)
	assert.Equal(t, "Objetivo:\no", d.Blocks[2].Text)
}
