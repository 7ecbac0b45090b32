package auth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	NoSessionErr          = errors.New("no session")
	InvalidCredentialsErr = errors.New("invalid credentials")
	InvalidTokenErr       = errors.New("invalid token")
	UserNotFoundErr       = errors.New("user not found")
)

// ValidationError carries field-level registration errors that are safe
// to return to the client.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
