package search

import (
	"fmt"
	"sort"
	"strings"
)

// Level is the journal indexing level an article targets.
type Level string

const (
	LevelLatindex Level = "latindex"
	LevelScielo   Level = "scielo"
	LevelScopus   Level = "scopus"
)

// Source is one site searched for candidate articles.
type Source struct {
	Name string
	// Site is the host used in the query's site: operator.
	Site string
	// Match filters result links by substring.
	Match string
	Limit int
	// English searches with the English rendering of the variable.
	English bool
}

// Query builds the exact-phrase site query for a variable.
func (s Source) Query(variable string) string {
	return fmt.Sprintf("%q site:%s", strings.TrimSpace(variable), s.Site)
}

var (
	dialnet = Source{Name: "Dialnet", Site: "dialnet.unirioja.es", Match: "dialnet"}
	scielo  = Source{Name: "SciELO", Site: "scielo.org", Match: "scielo"}
	sciDir  = Source{Name: "ScienceDirect", Site: "sciencedirect.com", Match: "sciencedirect.com", English: true}
)

func withLimit(s Source, n int) Source {
	s.Limit = n
	return s
}

var plans = map[Level][]Source{
	LevelLatindex: {withLimit(dialnet, 20)},
	LevelScielo:   {withLimit(scielo, 15), withLimit(dialnet, 15)},
	LevelScopus:   {withLimit(sciDir, 30)},
}

// PlanFor returns the sources searched for level.
func PlanFor(level Level) ([]Source, error) {
	p, ok := plans[Level(strings.ToLower(strings.TrimSpace(string(level))))]
	if !ok {
		return nil, fmt.Errorf("unknown indexing level %q (want one of %s)", level, strings.Join(Levels(), ", "))
	}
	return append([]Source(nil), p...), nil
}

// ParseLevel normalizes a user-supplied level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := plans[l]; !ok {
		return "", fmt.Errorf("unknown indexing level %q (want one of %s)", s, strings.Join(Levels(), ", "))
	}
	return l, nil
}

func Levels() []string {
	out := make([]string, 0, len(plans))
	for l := range plans {
		out = append(out, string(l))
	}
	sort.Strings(out)
	return out
}

// Label is the human-readable level name used in document headings.
func (l Level) Label() string {
	switch l {
	case LevelLatindex:
		return "LatIndex"
	case LevelScielo:
		return "SciELO"
	case LevelScopus:
		return "Scopus Q3–Q4"
	}
	return string(l)
}
