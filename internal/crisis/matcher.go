package crisis

import (
	"strconv"
	"strings"
)

// minorAgeLimit is the age below which sexual-intent vocabulary forces the
// child-protection category.
const minorAgeLimit = 18

// Matcher assigns at most one category to a message. It is immutable and safe
// for concurrent use.
type Matcher struct {
	rules []categoryRule
}

// NewMatcher returns a matcher over the built-in pattern tables.
func NewMatcher() *Matcher {
	return &Matcher{rules: defaultRules}
}

// DetectCategory returns the category of text, or false when nothing matched.
// The minor-protection heuristic is evaluated first and overrides the tables;
// otherwise the first category in CategoryOrder with a matching pattern wins.
func (m *Matcher) DetectCategory(text string) (Category, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	if IsMinorSexualContext(t) {
		return CategoryChildAbuse, true
	}
	for _, rule := range m.rules {
		for _, re := range rule.patterns {
			if re.MatchString(t) {
				return rule.category, true
			}
		}
	}
	return "", false
}

// Patterns returns the pattern sources for category, for diagnostics.
func (m *Matcher) Patterns(category Category) []string {
	for _, rule := range m.rules {
		if rule.category != category {
			continue
		}
		out := make([]string, 0, len(rule.patterns))
		for _, re := range rule.patterns {
			out = append(out, re.String())
		}
		return out
	}
	return nil
}

// IsMinorSexualContext reports whether text states an age under 18 alongside
// sexual-intent vocabulary. Age tokens that fail to parse are ignored.
func IsMinorSexualContext(text string) bool {
	t := strings.ToLower(text)
	if !sexualIntentRe.MatchString(t) {
		return false
	}
	for _, m := range ageRe.FindAllStringSubmatch(t, -1) {
		age, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if age < minorAgeLimit {
			return true
		}
	}
	return false
}
