// Package citation derives in-text citations from APA-like reference entries
// and splices them into generated prose.
package citation

import (
	"regexp"
	"strings"
)

// NoDate is the APA token used when an entry carries no year.
const NoDate = "s.f."

var (
	yearPattern    = regexp.MustCompile(`\((\d{4})[^)]*\)`)
	surnamePattern = regexp.MustCompile(`([\p{Lu}][\p{L}'\-]+(?:\s[\p{Lu}][\p{L}'\-]+)*),\s+\p{Lu}\.`)
)

// Reference is a parsed reference entry.
type Reference struct {
	Entry  string
	Author string
	Year   string
}

// ParseReference extracts the author and year tokens of an entry.
//
//	"Smith, J. (2023). ..."              -> Smith, 2023
//	"Lopez, M. & Wang, Y. (2022). ..."   -> Lopez y Wang, 2022
//	"Kumar, R., Rao, S., & Li, X. ..."   -> Kumar et al., s.f.
//	"UNESCO. (2022). ..."                -> UNESCO, 2022
func ParseReference(entry string) Reference {
	e := strings.TrimSpace(entry)
	ref := Reference{Entry: e, Year: NoDate}

	authorPart := e
	if loc := yearPattern.FindStringSubmatchIndex(e); loc != nil {
		ref.Year = e[loc[2]:loc[3]]
		authorPart = e[:loc[0]]
	}

	var surnames []string
	for _, m := range surnamePattern.FindAllStringSubmatch(authorPart, -1) {
		surnames = append(surnames, m[1])
	}

	switch {
	case len(surnames) == 1:
		ref.Author = surnames[0]
	case len(surnames) == 2:
		ref.Author = surnames[0] + " y " + surnames[1]
	case len(surnames) > 2:
		ref.Author = surnames[0] + " et al."
	default:
		ref.Author = institutionalAuthor(authorPart)
	}
	if ref.Author == "" {
		ref.Author = "Anónimo"
	}
	return ref
}

// institutionalAuthor keeps a corporate author whole: everything up to the
// first sentence terminator.
func institutionalAuthor(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.TrimRight(s, ". "))
}
