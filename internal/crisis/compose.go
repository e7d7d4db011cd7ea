package crisis

import (
	"strings"

	"github.com/wolfman30/crisis-guard/internal/helplines"
)

// responseTemplates holds one English template per category. {helpline} is
// replaced with the contact line.
var responseTemplates = map[Category]string{
	CategorySelfHarm:         "Your pain matters. I’m not a crisis service, but I want you safe. Please reach out to someone who can be with you. {helpline}",
	CategoryChildAbuse:       "I cannot engage with any content involving minors. If a child is at risk, contact authorities now. {helpline}",
	CategorySexAssault:       "I’m so sorry this happened. Your safety comes first. If you’re in danger now, please call emergency services. {helpline}",
	CategoryDomesticViolence: "You don’t deserve to be hurt. If possible, move to a safe place and call for help. {helpline}",
	CategoryGrooming:         "I won’t engage in sexual content with or about minors. If a minor is at risk, contact authorities now. {helpline}",
	CategoryTrafficking:      "I cannot assist with trafficking or exploitation. Please alert authorities immediately. {helpline}",
	CategoryThreatViolence:   "I can’t assist with threats or violence. If someone is in danger, contact authorities now. {helpline}",
	CategoryHateExtremism:    "I won’t engage in hateful or violent content. If there’s risk of harm, contact authorities. {helpline}",
	CategoryRevengePorn:      "I can’t help with non-consensual or abusive content. This may be a crime. If you’re affected, seek help and report. {helpline}",
	CategoryAcuteMedical:     "This sounds urgent. I’m not a medical service, please call emergency help now. {helpline}",
	CategoryEatingSelfInjury: "I’m sorry you’re going through this. I can’t offer medical advice, but you deserve care. Consider speaking to a professional or someone you trust. {helpline}",
}

// fallbackTemplate is used when the guard fails closed without a category.
const fallbackTemplate = "I can’t continue with this right now. If you or someone else is in danger, please contact emergency services. {helpline}"

// categoryRoles lists the helpline roles shown for a category before the
// emergency line.
var categoryRoles = map[Category][]string{
	CategorySelfHarm:         {helplines.RoleSuicide},
	CategoryChildAbuse:       {helplines.RoleChild},
	CategoryGrooming:         {helplines.RoleChild},
	CategorySexAssault:       {helplines.RoleWomen},
	CategoryDomesticViolence: {helplines.RoleWomen},
}

// ContactLine builds the "Call: ..." line for category. Category-specific roles
// come first, emergency last; duplicate label/phone pairs are dropped.
func ContactLine(category Category, contacts helplines.Contacts) string {
	roles := append(append([]string{}, categoryRoles[category]...), helplines.RoleEmergency)

	seen := make(map[string]bool, len(roles))
	parts := make([]string, 0, len(roles))
	for _, role := range roles {
		entry, ok := contacts.Lookup(role)
		if !ok {
			continue
		}
		line := entry.String()
		if seen[line] {
			continue
		}
		seen[line] = true
		parts = append(parts, line)
	}
	if len(parts) == 0 {
		// Contacts without an emergency role only come from a broken directory;
		// the built-in DEFAULT keeps the line usable.
		parts = append(parts, helplines.Resolve(helplines.DefaultKey, nil)[helplines.RoleEmergency].String())
	}
	return "Call: " + strings.Join(parts, "; ")
}

// ComposeResponse renders the category template with its contact line.
func ComposeResponse(category Category, contacts helplines.Contacts) string {
	tmpl, ok := responseTemplates[category]
	if !ok {
		tmpl = fallbackTemplate
	}
	return strings.Replace(tmpl, "{helpline}", ContactLine(category, contacts), 1)
}
