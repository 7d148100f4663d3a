package factcheck

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ValidationError is a bad request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaError is returned when the LLM output does not match the result schema.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("field %q %s", e.Field, e.Reason)
}

// FetchError means the page behind a submitted URL could not be read.
type FetchError struct {
	URL    string
	Reason string
}

func (e *FetchError) Error() string {
	return "Failed to fetch URL content: " + e.Reason
}

// InvalidFileError is an unusable upload
type InvalidFileError struct {
	Message string
}

func (e *InvalidFileError) Error() string { return e.Message }

// TooLargeError is content over a configured size cap.
type TooLargeError struct {
	Message string
}

func (e *TooLargeError) Error() string { return e.Message }

// UpstreamError wraps a failed LLM call or an unusable LLM answer.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "AI analysis failed: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsSchema checks if an error is a SchemaError
func IsSchema(err error) bool {
	var s *SchemaError
	return errors.As(err, &s)
}

// IsFetch checks if an error is a FetchError
func IsFetch(err error) bool {
	var f *FetchError
	return errors.As(err, &f)
}

// IsInvalidFile checks if an error is an InvalidFileError
func IsInvalidFile(err error) bool {
	var f *InvalidFileError
	return errors.As(err, &f)
}

// IsTooLarge checks if an error is a TooLargeError
func IsTooLarge(err error) bool {
	var t *TooLargeError
	return errors.As(err, &t)
}

// IsUpstream checks if an error is an UpstreamError
func IsUpstream(err error) bool {
	var u *UpstreamError
	return errors.As(err, &u)
}
