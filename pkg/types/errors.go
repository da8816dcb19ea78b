package types

import (
	"errors"
	"fmt"
)

// Domain errors for the indexing pipeline
var (
	// ErrNoProcessorFound is matched by *NoProcessorError
	ErrNoProcessorFound = errors.New("no processor found")
)

// NoProcessorError is returned when no registered processor matches a file
type NoProcessorError struct {
	Path string
}

// Error implements the error interface
func (e *NoProcessorError) Error() string {
	return fmt.Sprintf("no processor found for %s", e.Path)
}

// Is makes errors.Is(err, ErrNoProcessorFound) hold
func (e *NoProcessorError) Is(target error) bool {
	return target == ErrNoProcessorFound
}

// ParseError wraps a processor-specific extraction failure
type ParseError struct {
	URI       string
	Processor string
	Err       error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to process %s with %s: %v", e.URI, e.Processor, e.Err)
}

// Unwrap returns the underlying cause
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadError describes a file that could not be read from disk.
// The indexer recovers from it by substituting an empty file.
type ReadError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause
func (e *ReadError) Unwrap() error {
	return e.Err
}
