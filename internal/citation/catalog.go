package citation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Group names a pool of references shared by related text blocks.
type Group string

const (
	GroupWorld     Group = "problematica mundial"
	GroupLatam     Group = "problematica latam"
	GroupCountry   Group = "problematica pais"
	GroupTheory1   Group = "1 teoria"
	GroupTheory2   Group = "2 teoria"
	GroupVariable1 Group = "1 variable"
	GroupVariable2 Group = "2 variable"
)

// Groups lists every group in catalog order.
var Groups = []Group{GroupWorld, GroupLatam, GroupCountry, GroupTheory1, GroupTheory2, GroupVariable1, GroupVariable2}

type SourceKind string

const (
	Institutional SourceKind = "institucional"
	Scientific    SourceKind = "cientifico"
)

// Kind reports which kind of source backs the group.
func (g Group) Kind() SourceKind {
	if strings.HasPrefix(string(g), "problematica") {
		return Institutional
	}
	return Scientific
}

// ReferenceSource looks up APA entries about a label.
type ReferenceSource interface {
	References(ctx context.Context, label string, kind SourceKind) ([]string, error)
}

// Labels are the topic strings each group searches for. Empty theory and
// variable labels fall back to the group name.
type Labels struct {
	Title     string
	Country   string
	Theory1   string
	Theory2   string
	Variable1 string
	Variable2 string
}

func (l Labels) label(g Group) string {
	theme := strings.ToLower(strings.TrimSpace(l.Title))
	country := strings.ToLower(strings.TrimSpace(l.Country))
	if country == "" {
		country = "pais"
	}
	pick := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return string(g)
		}
		return strings.TrimSpace(v)
	}
	switch g {
	case GroupWorld:
		return fmt.Sprintf("problematica %s mundial", theme)
	case GroupLatam:
		return fmt.Sprintf("problematica %s latam", theme)
	case GroupCountry:
		return fmt.Sprintf("problematica %s %s", theme, country)
	case GroupTheory1:
		return pick(l.Theory1)
	case GroupTheory2:
		return pick(l.Theory2)
	case GroupVariable1:
		return pick(l.Variable1)
	case GroupVariable2:
		return pick(l.Variable2)
	}
	return string(g)
}

// Catalog holds the references and derived citations of every group.
type Catalog struct {
	refs      map[Group][]string
	cites     map[Group][]Citation
	simulated bool
}

// NewCatalog queries src once per group.
func NewCatalog(ctx context.Context, src ReferenceSource, labels Labels) (*Catalog, error) {
	c := &Catalog{
		refs:  make(map[Group][]string, len(Groups)),
		cites: make(map[Group][]Citation, len(Groups)),
	}
	if s, ok := src.(interface{ Simulated() bool }); ok {
		c.simulated = s.Simulated()
	}
	for _, g := range Groups {
		refs, err := src.References(ctx, labels.label(g), g.Kind())
		if err != nil {
			return nil, fmt.Errorf("failed to collect references for %q: %w", g, err)
		}
		c.refs[g] = refs
		cites := BuildCitations(refs)
		for i := range cites {
			cites[i].Simulated = c.simulated
		}
		c.cites[g] = cites
	}
	return c, nil
}

func (c *Catalog) Citations(g Group) []Citation {
	return append([]Citation(nil), c.cites[g]...)
}

func (c *Catalog) GroupReferences(g Group) []string {
	return append([]string(nil), c.refs[g]...)
}

// Simulated reports whether the references came from a placeholder source.
func (c *Catalog) Simulated() bool { return c.simulated }

// References returns the sorted, de-duplicated union of every group.
func (c *Catalog) References() []string {
	seen := make(map[string]bool)
	var out []string
	for _, refs := range c.refs {
		for _, r := range refs {
			r = strings.TrimSpace(r)
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

// CiteBlock inserts the citations of the block's group into text. Blocks with
// no group get the simulated fallback.
func (c *Catalog) CiteBlock(key, text string) []string {
	g, _ := GroupForBlock(key)
	return InsertParagraphs(text, c.cites[g])
}

// GroupForBlock maps a content-block key to its citation group.
func GroupForBlock(key string) (Group, bool) {
	switch {
	case key == "contexto" || key == "mundial":
		return GroupWorld, true
	case key == "latam":
		return GroupLatam, true
	case key == "pais":
		return GroupCountry, true
	case key == "teoria1":
		return GroupTheory1, true
	case key == "teoria2":
		return GroupTheory2, true
	case strings.HasPrefix(key, "concepto1"):
		return GroupVariable1, true
	case strings.HasPrefix(key, "concepto2"):
		return GroupVariable2, true
	}
	return "", false
}

// TemplateSource produces simulated APA entries from fixed templates.
type TemplateSource struct{}

func (TemplateSource) Simulated() bool { return true }

func (TemplateSource) References(_ context.Context, label string, kind SourceKind) ([]string, error) {
	if kind == Institutional {
		return []string{
			fmt.Sprintf("World Health Organization. (2023). %s. Geneva: WHO.", capitalize(label)),
			fmt.Sprintf("UNESCO. (2022). %s in Latin America. Paris: UNESCO.", capitalize(label)),
			fmt.Sprintf("OECD. (2024). Global Report on %s. OECD Publishing.", capitalize(label)),
			fmt.Sprintf("UNICEF. (2023). Challenges of %s in vulnerable populations.", strings.ToLower(label)),
		}, nil
	}
	return []string{
		fmt.Sprintf("Smith, J. (2023). Advances in %s research. Journal of Applied Sciences, 45(3), 120–134.", strings.ToLower(label)),
		fmt.Sprintf("Lopez, M. & Wang, Y. (2022). Perspectives on %s in modern education. Educational Review, 39(2), 88–101.", strings.ToLower(label)),
		fmt.Sprintf("Kumar, R. (2021). Conceptual analysis of %s. International Journal of Research, 12(4), 55–70.", strings.ToLower(label)),
	}, nil
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
