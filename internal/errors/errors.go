package errors

import (
	goerrors "errors"
	"fmt"
	"os"
	"time"
)

// Error types for the quote localization engine
type ErrorType string

const (
	// Localization errors
	ErrorTypeEmptyQuery    ErrorType = "empty_query"
	ErrorTypeNoCandidate   ErrorType = "no_candidate"
	ErrorTypeInputTooLarge ErrorType = "input_too_large"
	ErrorTypeInvalidOffset ErrorType = "invalid_offset"

	// Document errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeDocument     ErrorType = "document"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// Sentinels compared with errors.Is. LocateError unwraps to one of these.
var (
	ErrEmptyQuery    = goerrors.New("query is empty")
	ErrNoCandidate   = goerrors.New("no candidate span found")
	ErrInputTooLarge = goerrors.New("input exceeds approximate matching guard")
	ErrInvalidOffset = goerrors.New("offset outside document")
)

// LocateError represents a failure to place a quote in a document
type LocateError struct {
	Type       ErrorType
	Tier       string
	Query      string
	Underlying error
	Timestamp  time.Time
}

// NewLocateError creates a locate error of the given type
func NewLocateError(errType ErrorType, err error) *LocateError {
	return &LocateError{
		Type:       errType,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithTier records which matching tier produced the error
func (e *LocateError) WithTier(tier string) *LocateError {
	e.Tier = tier
	return e
}

// WithQuery records the query text, truncated for messages
func (e *LocateError) WithQuery(query string) *LocateError {
	e.Query = query
	return e
}

// Error implements the error interface
func (e *LocateError) Error() string {
	q := e.Query
	if r := []rune(q); len(r) > 40 {
		q = string(r[:40]) + "..."
	}
	switch {
	case e.Tier != "" && q != "":
		return fmt.Sprintf("%s in %s for %q: %v", e.Type, e.Tier, q, e.Underlying)
	case e.Tier != "":
		return fmt.Sprintf("%s in %s: %v", e.Type, e.Tier, e.Underlying)
	case q != "":
		return fmt.Sprintf("%s for %q: %v", e.Type, q, e.Underlying)
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *LocateError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable reports whether the next tier can still run. Only guard
// violations are absorbed by the resolver.
func (e *LocateError) IsRecoverable() bool {
	return e.Type == ErrorTypeInputTooLarge
}

// FileError represents a document file error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeDocument
	switch {
	case goerrors.Is(err, os.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	case goerrors.Is(err, os.ErrPermission):
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config error for field %s: %v", e.Field, e.Underlying)
	}
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// IsNoCandidate reports whether err means the quote could not be placed.
func IsNoCandidate(err error) bool {
	return goerrors.Is(err, ErrNoCandidate)
}
