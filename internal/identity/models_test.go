package identity

import (
	"testing"

	dErrors "voicedesk/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestPhoneSuffix(t *testing.T) {
	assert.Equal(t, "612345678", PhoneSuffix("+33 6 12 34 56 78", 9))
	assert.Equal(t, "612345678", PhoneSuffix("06.12.34.56.78", 9))
	assert.Equal(t, "1234", PhoneSuffix("12-34", 9))
	assert.Equal(t, "", PhoneSuffix("unknown", 9))
}

func TestContactUpdate_Validate(t *testing.T) {
	t.Run("empty update is rejected", func(t *testing.T) {
		u := ContactUpdate{}
		err := u.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("trims values", func(t *testing.T) {
		u := ContactUpdate{City: strPtr("  Lyon ")}
		require.NoError(t, u.Validate())
		assert.Equal(t, "Lyon", *u.City)
	})

	t.Run("rejects blank and malformed fields", func(t *testing.T) {
		for _, u := range []ContactUpdate{
			{Address: strPtr("   ")},
			{Email: strPtr("not-an-email")},
			{Phone: strPtr("12")},
		} {
			err := u.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("apply touches only set fields", func(t *testing.T) {
		s := Subject{City: "Paris", Email: "old@example.com"}
		ContactUpdate{Email: strPtr("new@example.com")}.Apply(&s)
		assert.Equal(t, "Paris", s.City)
		assert.Equal(t, "new@example.com", s.Email)
	})
}
