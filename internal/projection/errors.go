package projection

import (
	"errors"
	"fmt"

	"github.com/roach88/populate/internal/memberpath"
)

// BuildError is a failure to synthesize a projection. Both codes are
// fatal: they describe configuration or internal faults, never bad input.
type BuildError struct {
	// Code identifies the error category.
	Code BuildErrorCode

	// Message is a human-readable description.
	Message string

	// Source and Destination name the shape pair being projected.
	Source      string
	Destination string

	// Path is the destination member being synthesized, if any.
	Path memberpath.Path

	// Operation names the synthesis step that failed.
	Operation string

	// Err is the underlying cause.
	Err error
}

// BuildErrorCode categorizes build errors.
type BuildErrorCode string

const (
	// ErrCodeMissingMapping indicates no field mapping exists between two
	// different shapes.
	ErrCodeMissingMapping BuildErrorCode = "MISSING_MAPPING"

	// ErrCodeSynthesisFailed indicates an expression could not be built,
	// e.g. a source path that does not resolve or a to-text conversion of
	// an unsupported expression.
	ErrCodeSynthesisFailed BuildErrorCode = "SYNTHESIS_FAILED"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s (%s -> %s)", e.Code, e.Message, e.Source, e.Destination)
	if !e.Path.IsRoot() {
		msg += fmt.Sprintf(" at %q", e.Path.Value())
	}
	if e.Operation != "" {
		msg += " during " + e.Operation
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error { return e.Err }

// IsMappingError reports whether err is a missing mapping error.
func IsMappingError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeMissingMapping
	}
	return false
}

// IsSynthesisError reports whether err is an expression synthesis failure.
func IsSynthesisError(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == ErrCodeSynthesisFailed
	}
	return false
}

func missingMapping(source, destination string) *BuildError {
	return &BuildError{
		Code:        ErrCodeMissingMapping,
		Message:     "no field mapping registered",
		Source:      source,
		Destination: destination,
	}
}

// NewSynthesisError reports that the expression for path could not be
// built during op.
func NewSynthesisError(source, destination string, path memberpath.Path, op string, err error) *BuildError {
	return &BuildError{
		Code:        ErrCodeSynthesisFailed,
		Message:     "cannot synthesize expression",
		Source:      source,
		Destination: destination,
		Path:        path,
		Operation:   op,
		Err:         err,
	}
}
