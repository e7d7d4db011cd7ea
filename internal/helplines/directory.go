// Package helplines resolves country-specific emergency contacts for safety responses.
package helplines

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultKey is the directory entry used when a country has no contacts of its own.
const DefaultKey = "DEFAULT"

// Role keys used by the response composer.
const (
	RoleEmergency = "emergency"
	RoleSuicide   = "suicide"
	RoleChild     = "child"
	RoleWomen     = "women"
	RolePolice    = "police"
)

// verifiedAtLayout is the date format of Entry.VerifiedAt.
const verifiedAtLayout = "2006-01-02"

var (
	// ErrMissingDefault is returned when a directory has no DEFAULT emergency contact.
	ErrMissingDefault = errors.New("helplines: directory must contain DEFAULT.emergency")

	// ErrInvalidCountry is returned for keys that are neither ISO2 nor DEFAULT.
	ErrInvalidCountry = errors.New("helplines: invalid country key")

	// ErrInvalidEntry is returned when a contact is missing label/phone or has a bad date.
	ErrInvalidEntry = errors.New("helplines: invalid entry")
)

// Entry is a single contact line.
type Entry struct {
	Label      string `json:"label"`
	Phone      string `json:"phone"`
	VerifiedAt string `json:"verifiedAt,omitempty"`
}

// UnmarshalJSON accepts both verifiedAt and the legacy verified_at key.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label            string `json:"label"`
		Phone            string `json:"phone"`
		VerifiedAt       string `json:"verifiedAt"`
		LegacyVerifiedAt string `json:"verified_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Label = raw.Label
	e.Phone = raw.Phone
	e.VerifiedAt = raw.VerifiedAt
	if e.VerifiedAt == "" {
		e.VerifiedAt = raw.LegacyVerifiedAt
	}
	return nil
}

// String renders the entry as "label: phone".
func (e Entry) String() string {
	return e.Label + ": " + e.Phone
}

// Contacts maps a role key (emergency, suicide, child, ...) to its entry.
type Contacts map[string]Entry

// Lookup returns the entry for role when it has a phone number.
func (c Contacts) Lookup(role string) (Entry, bool) {
	e, ok := c[role]
	if !ok || strings.TrimSpace(e.Phone) == "" {
		return Entry{}, false
	}
	return e, true
}

// Directory maps an uppercase ISO-3166-1 alpha-2 code (or DEFAULT) to contacts.
type Directory map[string]Contacts

// Countries returns the directory keys in sorted order.
func (d Directory) Countries() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Parse decodes a JSON directory, upper-cases its keys and validates it.
func Parse(data []byte) (Directory, error) {
	var raw map[string]Contacts
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("helplines: decode directory: %w", err)
	}
	dir := Normalize(raw)
	if err := Validate(dir); err != nil {
		return nil, err
	}
	return dir, nil
}

// Normalize returns a copy of raw with trimmed, upper-cased keys.
func Normalize(raw map[string]Contacts) Directory {
	dir := make(Directory, len(raw))
	for key, contacts := range raw {
		dir[strings.ToUpper(strings.TrimSpace(key))] = contacts
	}
	return dir
}

// Validate checks the directory invariants. It is meant for configuration load
// time; per-message resolution never validates.
func Validate(dir Directory) error {
	def, ok := dir[DefaultKey]
	if !ok {
		return ErrMissingDefault
	}
	if _, ok := def.Lookup(RoleEmergency); !ok {
		return ErrMissingDefault
	}
	for _, key := range dir.Countries() {
		if key != DefaultKey && !isISO2(key) {
			return fmt.Errorf("%w: %q", ErrInvalidCountry, key)
		}
		for role, entry := range dir[key] {
			if strings.TrimSpace(entry.Label) == "" || strings.TrimSpace(entry.Phone) == "" {
				return fmt.Errorf("%w: %s.%s needs label and phone", ErrInvalidEntry, key, role)
			}
			if entry.VerifiedAt == "" {
				continue
			}
			if _, err := time.Parse(verifiedAtLayout, entry.VerifiedAt); err != nil {
				return fmt.Errorf("%w: %s.%s verifiedAt %q", ErrInvalidEntry, key, role, entry.VerifiedAt)
			}
		}
	}
	return nil
}

func isISO2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

const builtinVerifiedAt = "2025-08-01"

// Default returns a fresh copy of the built-in directory.
func Default() Directory {
	return Directory{
		"IN": {
			RoleEmergency: {Label: "Emergency", Phone: "112", VerifiedAt: builtinVerifiedAt},
			RoleSuicide:   {Label: "AASRA (24×7)", Phone: "+919820466726", VerifiedAt: builtinVerifiedAt},
			RoleChild:     {Label: "CHILDLINE", Phone: "1098", VerifiedAt: builtinVerifiedAt},
			RoleWomen:     {Label: "Women Helpline", Phone: "181", VerifiedAt: builtinVerifiedAt},
			RolePolice:    {Label: "Police", Phone: "112", VerifiedAt: builtinVerifiedAt},
		},
		"US": {
			RoleEmergency: {Label: "Emergency", Phone: "911", VerifiedAt: builtinVerifiedAt},
			RoleSuicide:   {Label: "988 Suicide & Crisis Lifeline", Phone: "988", VerifiedAt: builtinVerifiedAt},
		},
		DefaultKey: {
			RoleEmergency: {Label: "Emergency", Phone: "112", VerifiedAt: builtinVerifiedAt},
		},
	}
}

var builtin = Default()
