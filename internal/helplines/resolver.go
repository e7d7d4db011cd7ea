package helplines

import (
	"maps"
	"strings"
)

// Resolve returns the contacts for country. dir is preferred when non-empty,
// otherwise the built-in directory is used. Unknown, empty or malformed codes
// resolve to DEFAULT; a dir without DEFAULT falls back to the built-in DEFAULT,
// so the result always carries an emergency entry. The returned map is a copy
// the caller may modify.
func Resolve(country string, dir Directory) Contacts {
	if len(dir) == 0 {
		dir = builtin
	}
	iso := strings.ToUpper(strings.TrimSpace(country))
	if isISO2(iso) {
		if contacts, ok := dir[iso]; ok && len(contacts) > 0 {
			return maps.Clone(contacts)
		}
	}
	if contacts, ok := dir[DefaultKey]; ok {
		if _, ok := contacts.Lookup(RoleEmergency); ok {
			return maps.Clone(contacts)
		}
	}
	return maps.Clone(builtin[DefaultKey])
}

// Source supplies the currently configured remote directory, or nil.
type Source interface {
	Directory() Directory
}
