// Package schema is the model layer relmap introspects. It defines the
// capability interfaces a host model must satisfy (Model, Relation and the
// optional QualifiedKeyer), a declarative Definition type, and a Registry
// where models and dynamically registered relations live.
package schema

import "fmt"

// RelationKind identifies the concrete kind of a relation
type RelationKind string

const (
	KindBelongsTo     RelationKind = "BelongsTo"
	KindHasOne        RelationKind = "HasOne"
	KindHasMany       RelationKind = "HasMany"
	KindBelongsToMany RelationKind = "BelongsToMany"
	KindMorphOne      RelationKind = "MorphOne"
	KindMorphMany     RelationKind = "MorphMany"
	KindMorphToMany   RelationKind = "MorphToMany"
	KindMorphTo       RelationKind = "MorphTo"
)

// ParseRelationKind accepts both the canonical kind name ("BelongsToMany")
// and its snake case spelling ("belongs_to_many").
func ParseRelationKind(s string) (RelationKind, error) {
	switch s {
	case "BelongsTo", "belongs_to":
		return KindBelongsTo, nil
	case "HasOne", "has_one":
		return KindHasOne, nil
	case "HasMany", "has_many":
		return KindHasMany, nil
	case "BelongsToMany", "belongs_to_many":
		return KindBelongsToMany, nil
	case "MorphOne", "morph_one":
		return KindMorphOne, nil
	case "MorphMany", "morph_many":
		return KindMorphMany, nil
	case "MorphToMany", "morph_to_many":
		return KindMorphToMany, nil
	case "MorphTo", "morph_to":
		return KindMorphTo, nil
	default:
		return "", fmt.Errorf("unknown relation type %q", s)
	}
}

// KeyName names a key a relation exposes through its contract
type KeyName string

const (
	KeyParent       KeyName = "parentKey"
	KeyForeign      KeyName = "foreignKey"
	KeyOwner        KeyName = "ownerKey"
	KeyRelated      KeyName = "relatedKey"
	KeyMorphType    KeyName = "morphType"
	KeyMorphClass   KeyName = "morphClass"
	KeyPivotTable   KeyName = "table"
	KeyPivotUsing   KeyName = "using"
	KeyForeignPivot KeyName = "foreignPivotKey"
	KeyRelatedPivot KeyName = "relatedPivotKey"
)

// ClauseType classifies a filter clause of a relation query
type ClauseType string

const (
	// ClauseBasic is a column/operator/value comparison
	ClauseBasic   ClauseType = "Basic"
	ClauseNull    ClauseType = "Null"
	ClauseNotNull ClauseType = "NotNull"
	ClauseIn      ClauseType = "In"
)

// Clause is a single where clause of a relation query
type Clause struct {
	Type     ClauseType
	Column   string
	Operator string
	Value    any
}

// Model is an instantiated model the relation factories are invoked on
type Model interface {
	// ModelName returns the identifier the model is registered under
	ModelName() string
	// Table returns the table backing the model
	Table() string
	// KeyName returns the primary key column
	KeyName() string
}

// Relation is the capability every relation object exposes.
//
// Key must answer for every key its kind defines; a kind that cannot answer
// is an interface gap, reported by the introspector as ErrMissingKey.
type Relation interface {
	Kind() RelationKind
	// Related returns the target model name, empty for MorphTo
	Related() string
	Key(name KeyName) (string, bool)
	// Query returns the filter clauses of the relation query, the clauses
	// added by the join mechanics first and the scope clauses after them.
	Query() []Clause
}

// QualifiedKeyer is implemented by relations able to report table
// qualified key names ("posts.user_id").
type QualifiedKeyer interface {
	QualifiedKey(name KeyName) (string, bool)
}

// RelationFunc builds a relation for a fresh model instance
type RelationFunc func(m Model) (Relation, error)

// Factory is a named relation producing operation of a model
type Factory struct {
	Name string
	Fn   RelationFunc
}
