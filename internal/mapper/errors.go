package mapper

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKey is returned when a relation does not expose a key its kind requires
	ErrMissingKey = errors.New("relation does not expose required key")

	// ErrInvalidPath marks a dotted path naming a relation that does not exist.
	// Resolve reports invalid paths as an empty Resolution; transports use
	// this error to render that result.
	ErrInvalidPath = errors.New("invalid relation path")
)

// ResolutionError is returned when a model identifier does not resolve to
// an introspectable model
type ResolutionError struct {
	Model string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve model %s: %v", e.Model, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsResolutionError checks if err was caused by an unresolvable model
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
