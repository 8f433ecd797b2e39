package phone

import (
	"fmt"
	"strings"

	"github.com/matching-sms-api/internal/domain"
)

// Normalize renders a user-entered number as +<digits>. Every non-digit is
// dropped and the North American country code 1 is prepended when missing.
// Numbers outside +1 are not recognized.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", fmt.Errorf("phone number has no digits: %w", domain.ErrValidation)
	}
	if !strings.HasPrefix(digits, "1") {
		digits = "1" + digits
	}
	return "+" + digits, nil
}
