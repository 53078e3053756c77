package citation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	cases := []struct {
		entry, author, year string
	}{
		{"Smith, J. (2023). Advances in research. Journal, 45(3), 120–134.", "Smith", "2023"},
		{"Lopez, M. & Wang, Y. (2022). Perspectives. Educational Review.", "Lopez y Wang", "2022"},
		{"Kumar, R., Rao, S., & Li, X. (2021). Conceptual analysis.", "Kumar et al.", "2021"},
		{"García Márquez, G. (2019a). Cien años.", "García Márquez", "2019"},
		{"World Health Organization. (2023). Report. Geneva: WHO.", "World Health Organization", "2023"},
		{"UNESCO. Educación en América Latina.", "UNESCO", NoDate},
		{FallbackEntry, "Referencia simulada", "2024"},
	}
	for _, tc := range cases {
		ref := ParseReference(tc.entry)
		assert.Equal(t, tc.author, ref.Author, tc.entry)
		assert.Equal(t, tc.year, ref.Year, tc.entry)
	}
}

func TestBuildCitations_Alternates(t *testing.T) {
	cites := BuildCitations([]string{
		"Smith, J. (2023). A.",
		"Lopez, M. & Wang, Y. (2022). B.",
		"Kumar, R. (2021). C.",
	})
	require.Len(t, cites, 3)
	assert.Equal(t, Narrative, cites[0].Style)
	assert.Equal(t, "Smith (2023)", cites[0].Marker)
	assert.Equal(t, Parenthetical, cites[1].Style)
	assert.Equal(t, "(Lopez y Wang, 2022)", cites[1].Marker)
	assert.Equal(t, Narrative, cites[2].Style)
}

func TestCitation_Apply(t *testing.T) {
	narrative := FromReference(Reference{Author: "Smith", Year: "2023"}, Narrative)
	paren := FromReference(Reference{Author: "OECD", Year: "2024"}, Parenthetical)

	assert.Equal(t, "Además, Smith (2023), la brecha digital crece", narrative.Apply("La brecha digital crece", ""))
	assert.Equal(t, "Además, Smith (2023), UNESCO advierte", narrative.Apply("UNESCO advierte", ""))
	assert.Equal(t, "La brecha crece (OECD, 2024)", paren.Apply("La brecha crece", ""))
}

func TestInsertCitations_MarkerPerSentenceNoRepeats(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for k := 1; k <= 4; k++ {
			t.Run(fmt.Sprintf("n=%d,k=%d", n, k), func(t *testing.T) {
				cites := syntheticCitations(k)
				text := syntheticText(n)

				out := InsertCitations(text, cites)
				total := 0
				for _, c := range cites {
					total += strings.Count(out, c.Marker)
				}
				assert.Equal(t, n, total)

				for _, para := range strings.Split(out, "\n\n") {
					for _, c := range cites {
						assert.LessOrEqual(t, strings.Count(para, c.Marker), 1, para)
					}
				}
			})
		}
	}
}

func TestInsertParagraphs_ParagraphBreaksOnRepeat(t *testing.T) {
	cites := syntheticCitations(2)
	paras := InsertParagraphs(syntheticText(5), cites)
	assert.Len(t, paras, 3)
	for _, p := range paras {
		assert.True(t, strings.HasSuffix(p, "."), p)
	}
}

func TestInsertCitations_Fallbacks(t *testing.T) {
	out := InsertCitations("Primera idea. Segunda idea.", nil)
	fallback := FallbackCitation()
	assert.True(t, fallback.Simulated)
	assert.Equal(t, "Primera idea (Referencia simulada, 2024).\n\nSegunda idea (Referencia simulada, 2024).", out)

	assert.Equal(t, "", InsertCitations("", syntheticCitations(2)))
	assert.Equal(t, "", InsertCitations("  \n . \n", syntheticCitations(2)))
	assert.Empty(t, InsertParagraphs("", nil))
}

func TestInsertCitations_Deterministic(t *testing.T) {
	cites := syntheticCitations(3)
	text := syntheticText(6)
	assert.Equal(t, InsertCitations(text, cites), InsertCitations(text, cites))
}

func TestCatalog_TemplateSource(t *testing.T) {
	cat, err := NewCatalog(context.Background(), TemplateSource{}, Labels{
		Title:     "Gestión del talento",
		Country:   "Perú",
		Theory1:   "Teoría de recursos",
		Variable1: "gestión del talento",
		Variable2: "desempeño laboral",
	})
	require.NoError(t, err)
	assert.True(t, cat.Simulated())

	world := cat.Citations(GroupWorld)
	require.Len(t, world, 4)
	assert.Equal(t, "World Health Organization (2023)", world[0].Marker)
	assert.True(t, world[0].Simulated)
	assert.Contains(t, cat.GroupReferences(GroupCountry)[0], "Problematica gestión del talento perú")

	theory := cat.Citations(GroupTheory2)
	require.Len(t, theory, 3)
	assert.Contains(t, theory[0].Reference, "2 teoria")

	refs := cat.References()
	assert.True(t, len(refs) > 0)
	assert.IsIncreasing(t, refs)
}

func TestGroupForBlock(t *testing.T) {
	cases := map[string]Group{
		"contexto":     GroupWorld,
		"mundial":      GroupWorld,
		"latam":        GroupLatam,
		"pais":         GroupCountry,
		"teoria1":      GroupTheory1,
		"teoria2":      GroupTheory2,
		"concepto1_p2": GroupVariable1,
		"concepto2_p3": GroupVariable2,
	}
	for key, want := range cases {
		g, ok := GroupForBlock(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, g, key)
	}
	_, ok := GroupForBlock("problema")
	assert.False(t, ok)
}

func TestCatalog_CiteBlockWithoutGroupUsesFallback(t *testing.T) {
	cat, err := NewCatalog(context.Background(), TemplateSource{}, Labels{Title: "x"})
	require.NoError(t, err)
	paras := cat.CiteBlock("justificacion", "Se justifica.")
	require.Len(t, paras, 1)
	assert.Contains(t, paras[0], "Referencia simulada")
}

func syntheticCitations(k int) []Citation {
	refs := make([]string, 0, k)
	for i := 0; i < k; i++ {
		refs = append(refs, fmt.Sprintf("Autor%c, A. (20%02d). Obra.", 'A'+i, 10+i))
	}
	return BuildCitations(refs)
}

func syntheticText(n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("Oración número %d sobre el tema", i+1))
	}
	return strings.Join(parts, ". ") + "."
}
