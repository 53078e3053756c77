package prisma

import (
	"fmt"
	"strings"

	"papergen/internal/document"
)

// Record is the structured summary extracted from one candidate article.
type Record struct {
	Index           int    `json:"index"`
	Source          string `json:"source,omitempty"`
	Path            string `json:"path,omitempty"`
	Objective       string `json:"objetivo"`
	Methodology     string `json:"metodologia"`
	MethodologyType string `json:"tipo_metodologia"`
	Results         string `json:"resultados"`
	Conclusions     string `json:"conclusiones"`
	Country         string `json:"pais"`
	Year            string `json:"anio"`
	Reference       string `json:"referencia_apa"`
	Citation        string `json:"cita_apa"`
	Title           string `json:"titulo"`
}

// Included reports whether the record carries enough to enter the review: an
// objective plus a title or reference.
func (r Record) Included() bool {
	return strings.TrimSpace(r.Objective) != "" &&
		(strings.TrimSpace(r.Title) != "" || strings.TrimSpace(r.Reference) != "")
}

type field struct {
	label string
	get   func(*Record) *string
}

// fields are in output order. Labels are matched case-insensitively with and
// without accents.
var fields = []field{
	{"Objetivo", func(r *Record) *string { return &r.Objective }},
	{"Metodología", func(r *Record) *string { return &r.Methodology }},
	{"Tipo de metodología", func(r *Record) *string { return &r.MethodologyType }},
	{"Resultados/aportes", func(r *Record) *string { return &r.Results }},
	{"Conclusiones", func(r *Record) *string { return &r.Conclusions }},
	{"País", func(r *Record) *string { return &r.Country }},
	{"Año", func(r *Record) *string { return &r.Year }},
	{"Referencia APA", func(r *Record) *string { return &r.Reference }},
	{"Cita APA", func(r *Record) *string { return &r.Citation }},
	{"Título", func(r *Record) *string { return &r.Title }},
}

// aliases map normalized labels to field positions.
var aliases = map[string]int{
	"OBJETIVO":            0,
	"METODOLOGIA":         1,
	"TIPO DE METODOLOGIA": 2,
	"RESULTADOS/APORTES":  3,
	"RESULTADOS":          3,
	"CONCLUSIONES":        4,
	"PAIS":                5,
	"ANO":                 6,
	"REFERENCIA APA":      7,
	"CITA APA":            8,
	"TITULO":              9,
}

const recordPromptBase = `A partir de este artículo, extrae la siguiente información y preséntala en texto plano:

Objetivo del artículo: redáctalo en exactamente 30 palabras.
Metodología del artículo: descríbela en exactamente 30 palabras.
Tipo de metodología: elige solo entre las siguientes opciones: Cualitativa, Cuantitativa, Revisión sistemática o Mixta.
Resultados/aportes: descríbelos en prosa, con exactamente 60 palabras. Enfócate en los aportes centrales del estudio sin incluir interpretaciones ajenas.
Conclusiones: resume en exactamente 50 palabras.
País de origen: identifica un país específico. Si hay varios países o el estudio es global, escribir "Internacional". Nunca dejar vacío este campo.
Año de publicación: debe ser un año específico. Si el artículo presenta un rango de años, elegir el más reciente.
Referencia en formato APA con DOI: redactar la referencia completa en estilo APA 7, incluyendo el DOI.
Cita APA abreviada: aplicar estas reglas:
- Un solo apellido por autor.
- Un autor: (Apellido, año).
- Dos autores: (Apellido y Apellido, año).
- Tres o más autores: (Apellido et al., año).
- Si los autores tienen varios apellidos, usar solo el primero.
Título completo del artículo.

ENTREGA LA INFORMACIÓN EN EL SIGUIENTE FORMATO EXACTO:

Artículo %d
Objetivo:
[texto]
Metodología:
[texto]
Tipo de metodología:
[texto]
Resultados/aportes:
[texto]
Conclusiones:
[texto]
País:
[texto]
Año:
[texto]
Referencia APA:
[texto]
Cita APA:
[texto]
Título:
[texto]

No agregues explicaciones adicionales, ni comentarios, ni texto fuera de este esquema.
`

// BuildRecordPrompt asks for the labelled summary of article idx.
func BuildRecordPrompt(articleText string, idx int) string {
	return fmt.Sprintf(recordPromptBase, idx) + "\n\nTEXTO DEL ARTÍCULO (recortado):\n\n" + articleText
}

// ParseRecord reads a labelled response. Lines that start no label continue
// the previous field; "Artículo N" headers are ignored.
func ParseRecord(raw string) Record {
	var r Record
	current := -1
	for _, line := range document.SplitParagraphs(raw) {
		if strings.HasPrefix(document.NormalizeHeading(strings.Trim(line, "*# ")), "ARTICULO") {
			continue
		}
		if idx, rest, ok := matchLabel(line); ok {
			current = idx
			*fields[idx].get(&r) = rest
			continue
		}
		if current < 0 {
			continue
		}
		dst := fields[current].get(&r)
		if *dst == "" {
			*dst = line
		} else {
			*dst += " " + line
		}
	}
	return r
}

func matchLabel(line string) (int, string, bool) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return 0, "", false
	}
	label := document.NormalizeHeading(strings.Trim(line[:colon], "*#- "))
	idx, ok := aliases[label]
	if !ok {
		return 0, "", false
	}
	return idx, strings.TrimSpace(strings.Trim(line[colon+1:], "* ")), true
}

// TableDocument builds the per-source PRISMA sub-document.
func TableDocument(level, source string, records []Record) document.Document {
	heading := "PRISMA – " + level
	if source != "" {
		heading += " – " + source
	}
	d := document.New(document.Heading(heading, 0))
	for i, r := range records {
		r := r
		blocks := []document.Block{document.Paragraph(fmt.Sprintf("Artículo %d", i+1))}
		for _, f := range fields {
			blocks = append(blocks, document.Paragraph(f.label+":\n"+*f.get(&r)))
		}
		d = d.AppendBlocks(blocks...)
	}
	return d
}
