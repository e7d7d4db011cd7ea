package helplines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	remote := Directory{
		"GB": {
			RoleEmergency: {Label: "Emergency", Phone: "999"},
			RoleSuicide:   {Label: "Samaritans", Phone: "116 123"},
		},
		DefaultKey: {
			RoleEmergency: {Label: "Emergency", Phone: "112"},
		},
	}

	tests := []struct {
		name      string
		country   string
		dir       Directory
		wantPhone string
		wantRoles int
	}{
		{"builtin india", "IN", nil, "112", 5},
		{"lowercase code", " us ", nil, "911", 2},
		{"unknown code", "ZZ", nil, "112", 1},
		{"empty code", "", nil, "112", 1},
		{"malformed code", "united states", nil, "112", 1},
		{"numeric code", "12", nil, "112", 1},
		{"remote preferred", "GB", remote, "999", 2},
		{"remote has no IN", "IN", remote, "112", 1},
		{"empty remote uses builtin", "US", Directory{}, "911", 2},
		{"remote without default", "FR", Directory{"GB": remote["GB"]}, "112", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.country, tt.dir)
			emergency, ok := got.Lookup(RoleEmergency)
			require.True(t, ok, "emergency role must always resolve")
			assert.Equal(t, tt.wantPhone, emergency.Phone)
			assert.Len(t, got, tt.wantRoles)
		})
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	got := Resolve("US", nil)
	got[RoleEmergency] = Entry{Label: "Overwritten", Phone: "000"}
	delete(got, RoleSuicide)

	again := Resolve("US", nil)
	emergency, ok := again.Lookup(RoleEmergency)
	require.True(t, ok)
	assert.Equal(t, "911", emergency.Phone)
	assert.Len(t, again, 2)

	fallback := Resolve("ZZ", nil)
	fallback[RoleEmergency] = Entry{Label: "Overwritten", Phone: "000"}
	emergency, _ = Resolve("", nil).Lookup(RoleEmergency)
	assert.Equal(t, "112", emergency.Phone)

	remote := Directory{DefaultKey: {RoleEmergency: {Label: "Emergency", Phone: "112"}}}
	Resolve("FR", remote)[RoleEmergency] = Entry{Label: "x", Phone: "0"}
	assert.Equal(t, "112", remote[DefaultKey][RoleEmergency].Phone)
}

func TestValidate(t *testing.T) {
	valid := Default()
	require.NoError(t, Validate(valid))

	tests := []struct {
		name    string
		dir     Directory
		wantErr error
	}{
		{"missing default", Directory{"IN": valid["IN"]}, ErrMissingDefault},
		{"default without emergency", Directory{DefaultKey: {RoleSuicide: {Label: "x", Phone: "1"}}}, ErrMissingDefault},
		{"bad country key", Directory{DefaultKey: valid[DefaultKey], "INDIA": valid["IN"]}, ErrInvalidCountry},
		{"missing phone", Directory{DefaultKey: valid[DefaultKey], "US": {RoleSuicide: {Label: "988"}}}, ErrInvalidEntry},
		{"bad date", Directory{DefaultKey: valid[DefaultKey], "US": {RoleSuicide: {Label: "988", Phone: "988", VerifiedAt: "Aug 2025"}}}, ErrInvalidEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.dir)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestParseNormalisesKeysAndLegacyDates(t *testing.T) {
	data := []byte(`{
		"default": {"emergency": {"label": "Emergency", "phone": "112", "verified_at": "2025-08-01"}},
		"au": {"emergency": {"label": "Emergency", "phone": "000", "verifiedAt": "2025-09-01"}}
	}`)

	dir, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"AU", DefaultKey}, dir.Countries())
	assert.Equal(t, "2025-08-01", dir[DefaultKey][RoleEmergency].VerifiedAt)
	assert.Equal(t, "000", Resolve("au", dir)[RoleEmergency].Phone)
}

func TestParseRejectsMissingDefault(t *testing.T) {
	_, err := Parse([]byte(`{"US": {"emergency": {"label": "Emergency", "phone": "911"}}}`))
	assert.ErrorIs(t, err, ErrMissingDefault)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestFileLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helplines.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"DEFAULT": {"emergency": {"label": "Emergency", "phone": "112"}}}`), 0o600))

	dir, err := FileLoader{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "112", dir[DefaultKey][RoleEmergency].Phone)

	_, err = FileLoader{Path: filepath.Join(t.TempDir(), "missing.json")}.Load(context.Background())
	assert.Error(t, err)
}

func TestEntryString(t *testing.T) {
	assert.Equal(t, "CHILDLINE: 1098", Default()["IN"][RoleChild].String())
}
