package crisis

import (
	"regexp"
	"strings"
)

// Language is the detected script/language of a message. It is recorded in the
// audit log only; safety templates are always English.
type Language string

const (
	LanguageEnglish  Language = "EN"
	LanguageHindi    Language = "HI"
	LanguageHinglish Language = "HINGLISH"
)

var (
	devanagariRe = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	latinRe      = regexp.MustCompile(`[a-z]`)

	// hindiHintRe matches romanised Hindi tokens on word boundaries.
	hindiHintRe = regexp.MustCompile(`\b(?:` + strings.Join([]string{
		"aatmhatya", "marna", "mar jaunga", "mar jaungi", "madad", "sahayata",
		"bachcha", "nabalig", "mahila", "hinsa", "utpeedan", "yaun",
		"chedkhani", "zakhmi", "behosh", "dard", "khatra",
	}, "|") + `)\b`)
)

// DetectLanguage classifies text as HI, HINGLISH or EN.
func DetectLanguage(text string) Language {
	t := strings.ToLower(text)
	if devanagariRe.MatchString(t) {
		return LanguageHindi
	}
	hasHint := hindiHintRe.MatchString(t)
	hasLatin := latinRe.MatchString(t)
	switch {
	case hasHint && hasLatin:
		return LanguageHinglish
	case hasHint:
		return LanguageHindi
	default:
		return LanguageEnglish
	}
}
