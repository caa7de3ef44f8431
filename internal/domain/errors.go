package domain

import "errors"

// ErrDuplicateUser is returned by a UserRepository when a username or
// e-mail is already in use.
var ErrDuplicateUser = errors.New("username or email already taken")

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
