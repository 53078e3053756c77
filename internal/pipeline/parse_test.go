package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabelled_Sections(t *testing.T) {
	raw := "**METODOLOGÍA:**\nPrimer párrafo.\nSegundo párrafo.\n\nFigura_PRISMA: Se identificaron 10 registros.\nSe incluyeron 4."
	got := ParseLabelled(raw, "METODOLOGIA", "FIGURA_PRISMA")
	assert.Equal(t, "Primer párrafo.\nSegundo párrafo.", got["METODOLOGIA"])
	assert.Equal(t, "Se identificaron 10 registros.\nSe incluyeron 4.", got["FIGURA_PRISMA"])
}

func TestParseLabelled_PreambleGoesToFirstLabel(t *testing.T) {
	got := ParseLabelled("Texto de discusión sin etiqueta.\nCONCLUSION:\nCierre.", "DISCUSION", "CONCLUSION")
	assert.Equal(t, "Texto de discusión sin etiqueta.", got["DISCUSION"])
	assert.Equal(t, "Cierre.", got["CONCLUSION"])
}

func TestParseLabelled_NoLabels(t *testing.T) {
	got := ParseLabelled("  Solo texto.  ", "RESUMEN_ES", "RESUMEN_EN", "PULIDO")
	assert.Equal(t, "Solo texto.", got["RESUMEN_ES"])
	assert.Contains(t, got, "RESUMEN_EN")
	assert.Empty(t, got["RESUMEN_EN"])
	assert.Empty(t, got["PULIDO"])
}

func TestParseLabelled_UnknownLabelStaysInSection(t *testing.T) {
	got := ParseLabelled("DISCUSION:\nNota: los estudios coinciden.", "DISCUSION", "CONCLUSION")
	assert.Equal(t, "Nota: los estudios coinciden.", got["DISCUSION"])
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Gestión hídrica en comunidades rurales", firstLine("Título: \"Gestión hídrica en comunidades rurales\"\nOtra línea"))
	assert.Equal(t, "Un título", firstLine("\n\n**Un título**"))
	assert.Empty(t, firstLine("   \n"))
}

func TestListItems(t *testing.T) {
	assert.Equal(t, []string{"gestión hídrica", "comunidades rurales"}, listItems("1. gestión hídrica\n- \"comunidades rurales\"\n"))
}
