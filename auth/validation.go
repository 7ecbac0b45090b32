package auth

import (
	"strings"

	"github.com/jrsteele09/go-user-auth/users"
)

// ValidateRegistration checks the shape of candidate user fields and
// returns a ValidationError listing every failing field, or nil.
func ValidateRegistration(req RegisterRequest) *ValidationError {
	fields := make(map[string]string)

	email := strings.TrimSpace(req.Email)
	if email == "" {
		fields["email"] = "email is required"
	} else if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		fields["email"] = "invalid email format"
	}

	if req.Password == "" {
		fields["password"] = "password is required"
	} else if err := users.ValidatePasswordStrength(req.Password); err != nil {
		fields["password"] = err.Error()
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
