package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrPackageCorrupt  = errors.New("package file corrupt")
	ErrProviderFailure = errors.New("model provider failure")
	ErrNotCached       = errors.New("not cached")
)

// Category tags carried on every user-visible failure. Stable strings;
// clients branch on them.
const (
	CategoryProvider   = "provider_error"
	CategoryNotFound   = "not_found"
	CategoryCorruption = "corruption"
	CategoryInvalid    = "invalid_request"
)

// Error is a categorized failure with a remediation hint for the caller.
type Error struct {
	Category string
	Message  string
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a not-found error for a named object or package.
func NotFound(what, name string) *Error {
	return &Error{
		Category: CategoryNotFound,
		Message:  fmt.Sprintf("%s %q not found", what, name),
		Hint:     "check the name, or broaden your filter",
		Err:      ErrNotFound,
	}
}

// Corrupt builds a corruption error naming the failing file and layer so
// the caller knows what to re-export.
func Corrupt(layer, file string, err error) *Error {
	return &Error{
		Category: CategoryCorruption,
		Message:  fmt.Sprintf("package %s layer failed to parse (%s)", layer, file),
		Hint:     "re-run export to produce a fresh package",
		Err:      fmt.Errorf("%w: %w", ErrPackageCorrupt, err),
	}
}

// Provider builds a provider error for a failed source-model call.
func Provider(op string, err error) *Error {
	return &Error{
		Category: CategoryProvider,
		Message:  fmt.Sprintf("model provider call %s failed", op),
		Hint:     "check the source connection and retry",
		Err:      fmt.Errorf("%w: %w", ErrProviderFailure, err),
	}
}

// Invalid builds an invalid-request error for bad caller parameters.
func Invalid(msg string) *Error {
	return &Error{
		Category: CategoryInvalid,
		Message:  msg,
		Hint:     "fix the request parameters and retry",
	}
}

// CategoryOf extracts the category tag from err, or "internal_error"
// when err carries none.
func CategoryOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return "internal_error"
}

// HintOf extracts the remediation hint from err, if any.
func HintOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Hint
	}
	return ""
}
