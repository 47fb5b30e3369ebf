package mapper

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/relation"
)

// Source is the capability the host model layer exposes to discovery
type Source interface {
	// New returns a fresh instance of the named model
	New(model string) (schema.Model, error)
	// ListRelationFactories returns every relation producing operation of the model
	ListRelationFactories(model string) ([]schema.Factory, error)
}

var errNotRelation = errors.New("factory did not produce a relation")

// Introspector discovers the direct relations of a model by invoking each
// of its relation factories on a fresh instance.
type Introspector struct {
	source Source
	logger *zap.Logger
}

// NewIntrospector creates a new introspector over source
func NewIntrospector(source Source, logger *zap.Logger) *Introspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{source: source, logger: logger}
}

// Discover returns the direct relations of model in declaration order.
// Candidates whose factory fails are skipped; the scan is best effort.
func (i *Introspector) Discover(model string) ([]*relation.Relation, error) {
	factories, err := i.source.ListRelationFactories(model)
	if err != nil {
		return nil, &ResolutionError{Model: model, Err: err}
	}

	rels := make([]*relation.Relation, 0, len(factories))
	for _, f := range factories {
		instance, err := i.source.New(model)
		if err != nil {
			return nil, &ResolutionError{Model: model, Err: err}
		}

		rel, err := probe(f, instance)
		if err != nil {
			i.logger.Debug("skipping relation candidate",
				zap.String("model", model),
				zap.String("candidate", f.Name),
				zap.Error(err))
			continue
		}

		desc, err := Normalize(f.Name, rel)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model, err)
		}
		rels = append(rels, desc)
	}

	return rels, nil
}

// probe invokes a single factory, turning a panic into an error
func probe(f schema.Factory, m schema.Model) (rel schema.Relation, err error) {
	defer func() {
		if r := recover(); r != nil {
			rel, err = nil, fmt.Errorf("relation factory panicked: %v", r)
		}
	}()

	rel, err = f.Fn(m)
	if err == nil && rel == nil {
		err = errNotRelation
	}
	return rel, err
}

// Normalize converts a host relation into its descriptor
func Normalize(name string, rel schema.Relation) (*relation.Relation, error) {
	kind, err := kindOf(rel.Kind())
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", name, err)
	}

	out := &relation.Relation{
		Kind:  kind,
		Name:  name,
		Model: rel.Related(),
	}

	k := &keyReader{rel: rel, relation: name}
	switch {
	case kind.ManyToMany():
		out.LocalKey = k.get(schema.KeyParent)
		out.ForeignKey = k.get(schema.KeyRelated)
		out.PivotTable = k.get(schema.KeyPivotTable)
		out.PivotIntermediate = k.get(schema.KeyPivotUsing)
		out.RelatedPivotKey = k.get(schema.KeyRelatedPivot)
		out.ForeignPivotKey = k.get(schema.KeyForeignPivot)
	case kind == relation.BelongsTo:
		out.LocalKey = k.get(schema.KeyForeign)
		out.ForeignKey = k.get(schema.KeyOwner)
	case kind == relation.MorphTo:
		out.LocalKey = k.get(schema.KeyForeign)
		out.MorphType = k.get(schema.KeyMorphType)
	default:
		out.LocalKey = k.get(schema.KeyParent)
		out.ForeignKey = k.get(schema.KeyForeign)
	}

	if kind.Polymorphic() {
		out.MorphType = k.get(schema.KeyMorphType)
		out.MorphClass = k.get(schema.KeyMorphClass)
	}

	if k.err != nil {
		return nil, k.err
	}

	out.Scope = scopeOf(kind, rel.Query())
	return out, nil
}

func kindOf(kind schema.RelationKind) (relation.Kind, error) {
	switch kind {
	case schema.KindBelongsTo:
		return relation.BelongsTo, nil
	case schema.KindHasOne:
		return relation.HasOne, nil
	case schema.KindHasMany:
		return relation.HasMany, nil
	case schema.KindBelongsToMany:
		return relation.BelongsToMany, nil
	case schema.KindMorphOne:
		return relation.MorphOne, nil
	case schema.KindMorphMany:
		return relation.MorphMany, nil
	case schema.KindMorphToMany:
		return relation.MorphToMany, nil
	case schema.KindMorphTo:
		return relation.MorphTo, nil
	default:
		return "", fmt.Errorf("unsupported relation kind %q", kind)
	}
}

// keyReader reads key names, preferring qualified names when the relation
// can report them. The first missing key is kept in err.
type keyReader struct {
	rel      schema.Relation
	relation string
	err      error
}

func (k *keyReader) get(name schema.KeyName) string {
	if k.err != nil {
		return ""
	}

	if q, ok := k.rel.(schema.QualifiedKeyer); ok {
		if v, ok := q.QualifiedKey(name); ok {
			return v[strings.LastIndexByte(v, '.')+1:]
		}
	}
	if v, ok := k.rel.Key(name); ok {
		return v
	}

	k.err = fmt.Errorf("%w: %s on %s relation %s", ErrMissingKey, name, k.rel.Kind(), k.relation)
	return ""
}

// baseClauses returns how many leading query clauses the join mechanics of a
// kind always add
func baseClauses(kind relation.Kind) int {
	switch kind {
	case relation.BelongsTo, relation.MorphToMany:
		return 1
	case relation.HasOne, relation.HasMany:
		return 2
	case relation.MorphOne, relation.MorphMany, relation.BelongsToMany:
		return 3
	default:
		return 0
	}
}

// scopeOf keeps the basic clauses following the base clauses of kind. The
// first of them loses its table qualifier.
func scopeOf(kind relation.Kind, clauses []schema.Clause) []relation.Clause {
	scope := make([]relation.Clause, 0)

	offset := baseClauses(kind)
	if offset >= len(clauses) {
		return scope
	}

	for i, c := range clauses[offset:] {
		if c.Type != schema.ClauseBasic {
			continue
		}
		column := c.Column
		if i == 0 {
			if dot := strings.IndexByte(column, '.'); dot >= 0 {
				column = column[dot+1:]
			}
		}
		scope = append(scope, relation.Clause{
			Column:   column,
			Operator: c.Operator,
			Value:    relation.CanonicalValue(c.Value),
		})
	}
	return scope
}
