package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry manages the model definitions of an application and the
// relations registered on them at setup time
type Registry struct {
	definitions map[string]*Definition
	registered  map[string][]Factory
	mu          sync.RWMutex
}

// NewRegistry creates a new model registry
func NewRegistry() *Registry {
	return &Registry{
		definitions: make(map[string]*Definition),
		registered:  make(map[string][]Factory),
	}
}

// Register registers a model definition
func (r *Registry) Register(defs ...*Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		if err := r.add(def); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) add(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

// RegisterRelation attaches a named relation to an already registered model.
// Registering the same name again replaces the previous factory.
func (r *Registry) RegisterRelation(model, name string, fn RelationFunc) error {
	if name == "" || fn == nil {
		return fmt.Errorf("%w: relation on %s needs a name and a factory", ErrInvalidDefinition, model)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.definitions[model]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	r.registered[model] = append(r.registered[model], Factory{Name: name, Fn: fn})
	return nil
}

// New returns a fresh instance of the named model
func (r *Registry) New(model string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[model]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return def.instantiate(), nil
}

// ListRelationFactories returns every relation producing operation of a
// model: its own, those contributed by mixins, then those registered with
// RegisterRelation. Names are unique; a later source replaces the factory of
// an earlier one but keeps its position.
func (r *Registry) ListRelationFactories(model string) ([]Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[model]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	var (
		out   []Factory
		index = make(map[string]int)
	)
	for _, f := range append(def.factories(), r.registered[model]...) {
		if i, seen := index[f.Name]; seen {
			out[i] = f
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return out, nil
}

// Get retrieves a model definition by name
func (r *Registry) Get(model string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.definitions[model]
	return def, exists
}

// Exists checks if a model is registered
func (r *Registry) Exists(model string) bool {
	_, exists := r.Get(model)
	return exists
}

// Names returns the registered model names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.definitions)
	sort.Strings(names)
	return names
}

// Count returns the number of registered models
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.definitions)
}

// Reset atomically replaces every definition. Relations registered with
// RegisterRelation are kept for the models that still exist.
func (r *Registry) Reset(defs ...*Definition) error {
	next := &Registry{
		definitions: make(map[string]*Definition, len(defs)),
		registered:  make(map[string][]Factory),
	}
	for _, def := range defs {
		if err := next.add(def); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for model, factories := range r.registered {
		if _, exists := next.definitions[model]; exists {
			next.registered[model] = factories
		}
	}
	r.definitions = next.definitions
	r.registered = next.registered
	return nil
}
