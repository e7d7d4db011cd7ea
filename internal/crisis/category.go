// Package crisis detects high-risk user messages and builds the fixed safety
// response shown instead of a generated reply.
package crisis

// Category is a crisis class. Exactly one category is assigned to a matched message.
type Category string

const (
	CategorySelfHarm         Category = "SELF_HARM"
	CategoryChildAbuse       Category = "CHILD_ABUSE"
	CategorySexAssault       Category = "SEX_ASSAULT"
	CategoryDomesticViolence Category = "DOMESTIC_VIOLENCE"
	CategoryGrooming         Category = "GROOMING"
	CategoryTrafficking      Category = "TRAFFICKING"
	CategoryThreatViolence   Category = "THREAT_VIOLENCE"
	CategoryHateExtremism    Category = "HATE_EXTREMISM"
	CategoryRevengePorn      Category = "REVENGE_PORN"
	CategoryAcuteMedical     Category = "ACUTE_MEDICAL"
	CategoryEatingSelfInjury Category = "ED_NSSI"
)

// CategoryOrder is the scan priority of the pattern tables. The minor-protection
// heuristic runs before it and always wins.
var CategoryOrder = []Category{
	CategorySelfHarm,
	CategoryChildAbuse,
	CategorySexAssault,
	CategoryDomesticViolence,
	CategoryGrooming,
	CategoryTrafficking,
	CategoryThreatViolence,
	CategoryHateExtremism,
	CategoryRevengePorn,
	CategoryAcuteMedical,
	CategoryEatingSelfInjury,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range CategoryOrder {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// CategoryNames returns the wire names of CategoryOrder.
func CategoryNames() []string {
	names := make([]string, len(CategoryOrder))
	for i, c := range CategoryOrder {
		names[i] = string(c)
	}
	return names
}
