package service

import "fmt"

type serviceError string

func (e serviceError) Error() string { return string(e) }

const (
	ErrPageHasNoDate = serviceError("page has no date associated")
	ErrNotConfigured = serviceError("integration is not configured")
)

// ValidationError reports input the caller must fix.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
