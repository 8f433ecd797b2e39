package phone

import (
	"errors"
	"testing"

	"github.com/matching-sms-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"555-123-4567":      "+15551234567",
		"5551234567":        "+15551234567",
		"+1 (555) 123-4567": "+15551234567",
		"15551234567":       "+15551234567",
		"+16504416163":      "+16504416163",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalize_NoDigits(t *testing.T) {
	for _, in := range []string{"", "   ", "abc-()"} {
		_, err := Normalize(in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}
}
