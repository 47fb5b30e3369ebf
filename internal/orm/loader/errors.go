package loader

import "errors"

var (
	// ErrUnknownRelationModel is returned when a relation targets a model the source does not declare
	ErrUnknownRelationModel = errors.New("relation targets an unknown model")

	// ErrUnknownMixin is returned when a model includes a mixin the source does not declare
	ErrUnknownMixin = errors.New("unknown mixin")

	// ErrUnsupportedDriver is returned for database drivers without a dialect
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
