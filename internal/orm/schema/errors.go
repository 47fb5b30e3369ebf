package schema

import "errors"

var (
	// ErrUnknownModel is returned when a model name is not registered
	ErrUnknownModel = errors.New("unknown model")

	// ErrDuplicateModel is returned when a model name is registered twice
	ErrDuplicateModel = errors.New("model already registered")

	// ErrNoRelatedModel is returned by a relation factory declared without a target model
	ErrNoRelatedModel = errors.New("relation has no related model")

	// ErrInvalidDefinition is returned when a model definition is structurally invalid
	ErrInvalidDefinition = errors.New("invalid model definition")
)
