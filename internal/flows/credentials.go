package flows

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether a normalized address is well formed.
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	return validation.Validate(email, is.Email) == nil
}
