package fallback

import (
	"strings"

	"github.com/aescanero/docforge/pkg/domain"
)

const (
	// Sections shorter than this are left untouched by summarization.
	condenseMinChars = 400
	// Length of the lead excerpt kept from the body.
	condenseLeadChars = 200
	// Words at least this long count as key terms.
	keyTermMinLen = 7
	// Cap on key terms retained per section.
	keyTermMax = 12
)

// condenseSection replaces a large section body with its lead sentence plus
// the section's key terms. Titles are always preserved. The transformation
// is deterministic: same input, same condensed output.
func condenseSection(s *domain.Section) (domain.Section, bool) {
	if len(s.Body) < condenseMinChars {
		return *s, false
	}

	lead := s.Body
	if i := strings.Index(lead, ". "); i >= 0 && i < condenseLeadChars {
		lead = lead[:i+1]
	} else if len(lead) > condenseLeadChars {
		lead = lead[:condenseLeadChars]
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(lead))
	if terms := keyTerms(s.Body); len(terms) > 0 {
		b.WriteString("\nKey terms: ")
		b.WriteString(strings.Join(terms, ", "))
	}

	out := *s
	out.Body = b.String()
	return out, true
}

// keyTerms extracts the distinct long words of a body in order of first
// appearance, capped at keyTermMax.
func keyTerms(body string) []string {
	seen := make(map[string]bool)
	var terms []string

	for _, word := range strings.Fields(body) {
		word = strings.Trim(word, ".,;:()[]{}\"'`!?")
		if len(word) < keyTermMinLen {
			continue
		}
		lower := strings.ToLower(word)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		terms = append(terms, word)
		if len(terms) == keyTermMax {
			break
		}
	}

	return terms
}
