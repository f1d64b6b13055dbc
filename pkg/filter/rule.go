package filter

import (
	"fmt"
	"regexp"
	"strings"
)

type RuleKind string

const (
	KindKeywords RuleKind = "keywords"
	KindRegex    RuleKind = "regex"
)

// Rule is the tagged variant of a subscription filter. Exactly one of
// KeywordsRule or RegexRule implements it.
type Rule interface {
	Kind() RuleKind
}

// KeywordsRule matches when any of its normalized keywords is a substring of
// the normalized event text.
type KeywordsRule struct {
	Keywords []string
}

func (KeywordsRule) Kind() RuleKind { return KindKeywords }

// RegexRule matches when the pattern matches any of the tested fields.
type RegexRule struct {
	Pattern *regexp.Regexp
}

func (RegexRule) Kind() RuleKind { return KindRegex }

// ParseRule compiles the raw pattern stored on a subscription into a Rule.
// Keyword patterns are comma-separated, trimmed, and normalized; regex
// patterns are compiled case-insensitively.
func ParseRule(kind RuleKind, pattern string) (Rule, error) {
	switch kind {
	case KindKeywords:
		var keywords []string
		for _, part := range strings.Split(pattern, ",") {
			keyword := Normalize(part)
			if keyword == "" {
				continue
			}
			keywords = append(keywords, keyword)
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("keywords rule %q contains no keywords", pattern)
		}
		return KeywordsRule{Keywords: keywords}, nil
	case KindRegex:
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("could not compile regex rule %q: %w", pattern, err)
		}
		return RegexRule{Pattern: re}, nil
	default:
		return nil, fmt.Errorf("unknown filter rule kind: %q", kind)
	}
}
