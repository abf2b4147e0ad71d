package apperrors

import (
	"errors"
	"fmt"
)

// Failures surfaced to callers. None of them are retried.
var (
	ErrAuthenticationFailed = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid token")
	ErrForbidden            = errors.New("not authorized")
	ErrDuplicateEntry       = errors.New("you already have an active entry")
	ErrNoActiveEntry        = errors.New("no active entry found")
	ErrAlreadyExists        = errors.New("user already exists")
	ErrNotFound             = errors.New("user not found")
	ErrCorruptCredential    = errors.New("stored credential is unreadable")
	ErrInvalidInput         = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAuthenticationFailed, "authentication_failed"},
	{ErrInvalidToken, "invalid_token"},
	{ErrForbidden, "forbidden"},
	{ErrDuplicateEntry, "duplicate_entry"},
	{ErrNoActiveEntry, "no_active_entry"},
	{ErrAlreadyExists, "already_exists"},
	{ErrNotFound, "not_found"},
	{ErrCorruptCredential, "corrupt_credential"},
	{ErrInvalidInput, "invalid_input"},
}

// Kind returns the stable machine-readable name of err, or "internal" for
// anything outside the taxonomy.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Invalid builds an ErrInvalidInput carrying a caller-facing reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}
