package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Schema errors
	ErrSchema = errors.New("schema violation")

	// Lookup errors
	ErrMultipleMatch = errors.New("multiple matches")
	ErrKeyNotFound   = errors.New("key not found")

	// Computation errors
	ErrEmptyInput        = errors.New("empty input")
	ErrInvalidResolution = errors.New("invalid resolution")
	ErrUnclosedSpan      = errors.New("concurrency series ends inside a busy span")
)

// SchemaError reports required columns that are absent or forbidden columns
// that are present.
type SchemaError struct {
	Missing   []string
	Forbidden []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required columns [%s]", strings.Join(e.Missing, ", ")))
	}
	if len(e.Forbidden) > 0 {
		parts = append(parts, fmt.Sprintf("has forbidden columns [%s]", strings.Join(e.Forbidden, ", ")))
	}
	if len(parts) == 0 {
		return ErrSchema.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(parts, "; "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// MultipleMatchError is returned when a lookup assumed to be unique matched
// more than one entry.
type MultipleMatchError struct {
	Label   string
	Matches []string
}

func (e *MultipleMatchError) Error() string {
	return fmt.Sprintf("%s: label %q matched %s", ErrMultipleMatch, e.Label, strings.Join(e.Matches, " and "))
}

func (e *MultipleMatchError) Is(target error) bool { return target == ErrMultipleMatch }

// KeyNotFoundError is returned when a label has no match.
type KeyNotFoundError struct {
	Label string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrKeyNotFound, e.Label)
}

func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// EmptyInputError names the collection that was empty.
type EmptyInputError struct {
	What string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEmptyInput, e.What)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// Error constructors with context
func NewSchemaError(missing, forbidden []string) error {
	return &SchemaError{Missing: missing, Forbidden: forbidden}
}

func NewEmptyInputError(what string) error {
	return &EmptyInputError{What: what}
}

// Error checking helpers
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

func IsLookupError(err error) bool {
	return errors.Is(err, ErrMultipleMatch) || errors.Is(err, ErrKeyNotFound)
}
