package domain

import "errors"

var (
	// ErrNotFound indicates the referenced entity no longer exists, typically
	// because another session deleted it concurrently.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the actor lacks the rights for the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicateEmail indicates a sign-up or roster addition with an email
	// already in use.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrSelfDelete indicates a member tried to remove their own roster entry
	// while signed in as that identity.
	ErrSelfDelete = errors.New("cannot delete own member record")

	// ErrInvalidCredentials indicates a sign-in with a wrong password or an
	// unknown account.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports input rejected before any write was attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation builds a ValidationError from a plain reason string.
func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
