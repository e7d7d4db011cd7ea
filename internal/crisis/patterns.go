package crisis

import (
	"fmt"
	"regexp"
	"strings"
)

// categoryPatterns lists the English and Devanagari patterns per category.
// Text is lower-cased before matching; Devanagari patterns match literal spans.
var categoryPatterns = map[Category][]string{
	CategorySelfHarm: {
		`(?i)\b(i want to die|i want die|kill myself|suicid(al|e)|end my life|can[’']?t go on|self harm|hurt myself)\b`,
		`आत्महत्या|मर(ना| जाऊँ| जाऊंगी| जाऊँगा)`,
	},
	CategoryChildAbuse: {
		`(?i)\b(child (porn|abuse)|\bcp\b|minor nudes|underage sex|kid pics|sex with (a )?(minor|child))\b`,
		`बाल\s*शोषण|बच्च(ा|े)\s*के\s*साथ\s*सेक्स`,
	},
	CategorySexAssault: {
		`(?i)\b(rap(e|ed)|molest(ed|ation)|sexual assault|forced me|spiked my drink|harass(ed|ment))\b`,
		`यौन\s*उत्पीड़न|बलात्कार|छेड़खानी`,
	},
	CategoryDomesticViolence: {
		`(?i)\b(domestic violence|partner hit me|abusive spouse|family abuse|locked me in|controlling partner)\b`,
		`घर\s*में\s*हिंसा|पीट(ता|ती)\s*है|धमकी`,
	},
	CategoryGrooming: {
		`(?i)\b(dms?\s?(a )?\d{1,2}f|school(girl|boy)|underage sexting|meet (a )?(minor|teen))\b`,
		`नाबालिग\s*(से)?\s*सेक्स`,
	},
	CategoryTrafficking: {
		`(?i)\b(traffick(ing)?|sell (girls|children)|forced work|escort underage|coercion)\b`,
		`किसी\s*को\s*बेच\s*देना|तस्करी`,
	},
	CategoryThreatViolence: {
		`(?i)\b(i will (kill|stab|shoot)|bomb|acid attack|bring (a )?(gun|knife) to|blow up)\b`,
		`उड़ा\s*दूँगा|मार\s*दूँगा|एसिड\s*अटैक`,
	},
	CategoryHateExtremism: {
		`(?i)\b(kill (all )?(muslims|hindus|christians|jews)|genocide|ethnic cleansing|join (isis|al[- ]qaeda))\b`,
	},
	CategoryRevengePorn: {
		`(?i)\b(leak nudes|share her pics|post his nudes|record without consent|spycam|hidden cam)\b`,
		`अश्लील\s*वीडियो\s*फैलाना`,
	},
	CategoryAcuteMedical: {
		`(?i)\b(overdose|took too many pills|can[’']?t breathe|chest pain|severe bleeding|stroke|heart attack)\b`,
		`बेहोशी|सांस\s*नहीं\s*आ\s*रही`,
	},
	CategoryEatingSelfInjury: {
		`(?i)\b(purge|vomit on purpose|starving myself|skip all meals|cutting|self injur(y|e))\b`,
		`खुद\s*को\s*नुकसान`,
	},
}

// ageRe captures a one or two digit age followed by an age unit.
var ageRe = regexp.MustCompile(`\b([0-9]{1,2})\s?(?:(?:yo|yrs?|years?|saal)\b|साल)`)

// sexualIntentRe is the vocabulary that, combined with a minor's age, forces
// the child-protection category. Tokens are anchored at the start of a word
// only, so inflections ("sexual", "flirting", "hookups") still count while
// "essex" does not. The two-letter tokens need a closing boundary as well.
var sexualIntentRe = regexp.MustCompile(`\b(?:` + strings.Join([]string{
	`sex\w*`, `nud(?:e|es|ity)`, `naked`, `send pics`, `pic please`, `porn\w*`,
	`onlyfans`, `hookups?`, `horny`, `flirt\w*`, `explicit`, `kamasutra`,
	`handjobs?`, `blowjobs?`, `nsfw`, `lap danc\w*`, `roleplay\w*`,
	`(?:cp|bj)\b`,
}, "|") + `)`)

// categoryRule is one category with its compiled patterns.
type categoryRule struct {
	category Category
	patterns []*regexp.Regexp
}

// compileRules builds the rule table in CategoryOrder. It panics on a bad
// pattern or a category without patterns, so mistakes fail at startup.
func compileRules(order []Category, sources map[Category][]string) []categoryRule {
	rules := make([]categoryRule, 0, len(order))
	for _, cat := range order {
		srcs, ok := sources[cat]
		if !ok || len(srcs) == 0 {
			panic(fmt.Sprintf("crisis: no patterns for category %s", cat))
		}
		rule := categoryRule{category: cat, patterns: make([]*regexp.Regexp, 0, len(srcs))}
		for _, src := range srcs {
			rule.patterns = append(rule.patterns, regexp.MustCompile(src))
		}
		rules = append(rules, rule)
	}
	return rules
}

var defaultRules = compileRules(CategoryOrder, categoryPatterns)
