// Package prisma aggregates per-source screening counts for the PRISMA
// selection flow and turns extracted article records into table documents.
package prisma

import (
	"fmt"
	"sort"
	"strings"
)

// Counts are the screening numbers of one source.
type Counts struct {
	Identified int `json:"identificados" yaml:"identificados"`
	Included   int `json:"incluidos" yaml:"incluidos"`
	Excluded   int `json:"excluidos" yaml:"excluidos"`
}

// Stats maps a source name (e.g. "SciELO") to its counts.
type Stats map[string]Counts

// Totals is the sum over every source.
type Totals struct {
	Identified int `json:"identificados"`
	Included   int `json:"incluidos"`
	Excluded   int `json:"excluidos"`
}

// Normalize fills Excluded as Identified-Included when it was left at zero.
func (c Counts) Normalize() Counts {
	if c.Excluded == 0 && c.Identified > c.Included {
		c.Excluded = c.Identified - c.Included
	}
	return c
}

func (c Counts) Validate() error {
	if c.Identified < 0 || c.Included < 0 || c.Excluded < 0 {
		return fmt.Errorf("counts must be non-negative: %+v", c)
	}
	if c.Included > c.Identified {
		return fmt.Errorf("included (%d) exceeds identified (%d)", c.Included, c.Identified)
	}
	return nil
}

// Normalize returns a copy with every source normalized.
func (s Stats) Normalize() Stats {
	out := make(Stats, len(s))
	for name, c := range s {
		out[name] = c.Normalize()
	}
	return out
}

func (s Stats) Validate() error {
	for _, name := range s.Sources() {
		if err := s[name].Validate(); err != nil {
			return fmt.Errorf("source %s: %w", name, err)
		}
	}
	return nil
}

// Sources returns source names in sorted order.
func (s Stats) Sources() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Add accumulates counts into the named source.
func (s Stats) Add(source string, c Counts) {
	cur := s[source]
	cur.Identified += c.Identified
	cur.Included += c.Included
	cur.Excluded += c.Excluded
	s[source] = cur
}

// Aggregate sums every source.
func Aggregate(s Stats) Totals {
	var t Totals
	for _, c := range s {
		t.Identified += c.Identified
		t.Included += c.Included
		t.Excluded += c.Excluded
	}
	return t
}

// SummaryLines renders one line per source for generation prompts.
func SummaryLines(s Stats) string {
	lines := make([]string, 0, len(s))
	for _, name := range s.Sources() {
		c := s[name]
		lines = append(lines, fmt.Sprintf("- %s: %d registros identificados, %d excluidos, %d artículos incluidos en la revisión.",
			name, c.Identified, c.Excluded, c.Included))
	}
	return strings.Join(lines, "\n")
}

// FigureTitle is the caption line placed before the figure description.
func FigureTitle(figure int) string {
	return fmt.Sprintf("Figura %d. Diagrama de flujo PRISMA del proceso de selección de artículos.", figure)
}

// Caption describes the selection flow when no generated description exists.
func Caption(t Totals, figure int) string {
	return fmt.Sprintf("La Figura %d presenta el diagrama de flujo PRISMA del proceso de selección: se identificaron %d registros en las bases de datos consultadas, de los cuales %d fueron excluidos tras el cribado y la evaluación de elegibilidad, quedando %d artículos incluidos en la revisión.",
		figure, t.Identified, t.Excluded, t.Included)
}
