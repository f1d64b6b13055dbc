package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases, strips Unicode diacritics, and collapses whitespace.
// The same normalization is applied to keywords and to event text, otherwise
// accented titles would never match unaccented filters.
func Normalize(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Matcher tests event text fields against a compiled Rule. It is stateless
// and safe to reuse for a whole reconciliation run.
type Matcher struct {
	rule Rule
}

func NewMatcher(rule Rule) *Matcher {
	return &Matcher{rule: rule}
}

// Match reports whether an event with the given title, description, and
// location matches the rule.
func (m *Matcher) Match(title, description, location string) bool {
	switch rule := m.rule.(type) {
	case KeywordsRule:
		text := Normalize(title + " " + description + " " + location)
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return true
			}
		}
		return false
	case RegexRule:
		return rule.Pattern.MatchString(title) ||
			rule.Pattern.MatchString(description) ||
			rule.Pattern.MatchString(location)
	default:
		return false
	}
}
