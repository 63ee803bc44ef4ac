package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsraeliMobileNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"trunk prefix replaced", "0501234567", "+972501234567"},
		{"already canonical", "+972501234567", "+972501234567"},
		{"missing plus", "972501234567", "+972972501234567"},
		{"bare subscriber", "501234567", "+972501234567"},
		{"spaces stripped", "050 123 4567", "+972501234567"},
		{"hyphens stripped", "050-123-4567", "+972501234567"},
		{"mixed separators", " +972 50-123-4567 ", "+972501234567"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsraeliMobile.Normalize(tt.raw))
		})
	}
}

func TestIsraeliMobileValidate(t *testing.T) {
	valid := []string{
		"+972501234567",
		"+972521234567",
		"+972531234567",
		"+972541234567",
		"+972551234567",
		"+972581234567",
	}
	for _, number := range valid {
		assert.True(t, IsraeliMobile.Validate(number), number)
	}

	invalid := []string{
		"",
		"+972511234567",  // 51 is not a mobile prefix
		"+97250123456",   // too short
		"+9725012345678", // too long
		"+33612345678",   // wrong country
		"0501234567",     // not canonical
		"+972 501234567", // separator survived
	}
	for _, number := range invalid {
		assert.False(t, IsraeliMobile.Validate(number), number)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"0501234567",
		"050-123-4567",
		"050 123 4567",
		"+972501234567",
		"+972 50-123-4567",
	}

	for _, raw := range inputs {
		canonical := IsraeliMobile.Normalize(raw)
		assert.Equal(t, canonical, IsraeliMobile.Normalize(canonical), raw)
		assert.Equal(t,
			IsraeliMobile.Validate(canonical),
			IsraeliMobile.Validate(IsraeliMobile.Normalize(canonical)),
			raw)
	}
}

func TestGenericPolicyIsPermissive(t *testing.T) {
	// The generic policy only demands an explicit country code. It is not
	// symmetric with the Israeli policy and must stay that way.
	assert.True(t, Generic.Validate("+33612345678"))
	assert.True(t, Generic.Validate("+972511234567"))
	assert.True(t, Generic.Validate("+1"))
	assert.False(t, Generic.Validate("0501234567"))
	assert.False(t, Generic.Validate(""))

	assert.Equal(t, "+33612345678", Generic.Normalize("+33 6 12 34 56 78"))
	// No trunk-prefix expansion on the generic path
	assert.Equal(t, "0501234567", Generic.Normalize("050-123-4567"))
}

func TestPolicyByName(t *testing.T) {
	policy, err := PolicyByName("il")
	require.NoError(t, err)
	assert.Equal(t, IsraeliMobile, policy)

	policy, err = PolicyByName("generic")
	require.NoError(t, err)
	assert.Equal(t, Generic, policy)

	_, err = PolicyByName("klingon")
	assert.Error(t, err)
}

func TestSMSLocale(t *testing.T) {
	assert.Equal(t, "he", SMSLocale("+972501234567"))
	assert.Equal(t, "fr", SMSLocale("+33612345678"))
	assert.Equal(t, "en", SMSLocale("+14155552671"))
	assert.Equal(t, "en", SMSLocale("not-a-number"))
}
