package password

import (
	"strings"

	dErrors "dlvery/pkg/domain-errors"
)

// Validate enforces presence and the full policy, returning a validation error
// whose message joins every violated rule.
func Validate(password string) error {
	if password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if vs := Evaluate(password); len(vs) > 0 {
		return dErrors.New(dErrors.CodeValidation, strings.Join(vs.Messages(), "; "))
	}
	return nil
}

// ValidateMatch checks the confirmation field of a registration form.
func ValidateMatch(password, confirm string) error {
	if password == "" || confirm == "" {
		return dErrors.New(dErrors.CodeValidation, "password and confirmation are required")
	}
	if password != confirm {
		return dErrors.New(dErrors.CodeValidation, "passwords do not match")
	}
	return nil
}
