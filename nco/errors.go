package nco

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrDataNotFound is returned when a reference or survey dataset is missing or unreadable.
	ErrDataNotFound = errors.New("data not found")

	// ErrEncodingMismatch is returned when a file decodes neither as UTF-8 nor as Latin-1.
	ErrEncodingMismatch = errors.New("encoding mismatch")

	// ErrMalformedConfig is returned when a descriptor or configuration directive is missing or unparsable.
	ErrMalformedConfig = errors.New("malformed config")

	// ErrEmptyQuery is returned when a user supplied query is blank.
	ErrEmptyQuery = errors.New("empty query")

	// ErrIndexNotLoaded is returned when a search runs before a lookup table was loaded.
	ErrIndexNotLoaded = errors.New("lookup index not loaded")

	// ErrColumnNotFound is returned when a dataset has no column with the requested name.
	ErrColumnNotFound = errors.New("column not found")

	// ErrDimensionMismatch is returned when an embedder produces vectors of different sizes.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbedderRequired is returned when a component is built without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)

// DataNotFoundError carries the path of a dataset that could not be read.
type DataNotFoundError struct {
	Path string
	Err  error
}

func (e *DataNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data file %q not found: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("data file %q not found", e.Path)
}

func (e *DataNotFoundError) Is(target error) bool {
	return target == ErrDataNotFound
}

func (e *DataNotFoundError) Unwrap() error {
	return e.Err
}

// MalformedConfigError reports the directive that could not be parsed.
type MalformedConfigError struct {
	Path      string
	Directive string
	Reason    string
}

func (e *MalformedConfigError) Error() string {
	msg := fmt.Sprintf("malformed %s", e.Directive)
	if e.Path != "" {
		msg = fmt.Sprintf("%s in %s", msg, e.Path)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	return msg
}

func (e *MalformedConfigError) Is(target error) bool {
	return target == ErrMalformedConfig
}

// ColumnNotFoundError names the missing column.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}

func (e *ColumnNotFoundError) Is(target error) bool {
	return target == ErrColumnNotFound
}
