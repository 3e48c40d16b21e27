package embedfile

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidArgument indicates malformed input such as a relative base directory
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrResourceNotFound indicates the provider holds no payload for the requested identity
	ErrResourceNotFound = errors.New("resource not found")

	// ErrNoProvider indicates a file was built without a content provider
	ErrNoProvider = errors.New("content provider is required")
)

// ExtractError represents a failed step while writing a payload to disk
type ExtractError struct {
	Resource string
	Path     string
	Op       string
	Err      error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract operation %s failed for resource %s at %s: %v", e.Op, e.Resource, e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
