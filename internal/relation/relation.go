// Package relation holds the normalized description of a discovered model
// relation. Values are built once by the mapper and never mutated after
// they are cached.
package relation

import (
	"math"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Kind is the closed set of relation kinds a graph can contain
type Kind string

const (
	BelongsTo     Kind = "BelongsTo"
	HasOne        Kind = "HasOne"
	HasMany       Kind = "HasMany"
	BelongsToMany Kind = "BelongsToMany"
	MorphOne      Kind = "MorphOne"
	MorphMany     Kind = "MorphMany"
	MorphToMany   Kind = "MorphToMany"
	// MorphTo is reported by discovery but never enters a graph
	MorphTo Kind = "MorphTo"
)

// Polymorphic reports whether the kind carries morph type and class
func (k Kind) Polymorphic() bool {
	return k == MorphOne || k == MorphMany || k == MorphToMany
}

// ManyToMany reports whether the kind goes through a pivot table
func (k Kind) ManyToMany() bool {
	return k == BelongsToMany || k == MorphToMany
}

// Clause is a scope filter a relation applies beyond its join
type Clause struct {
	Column   string `json:"column" msgpack:"column"`
	Operator string `json:"operator" msgpack:"operator"`
	Value    any    `json:"value" msgpack:"value"`
}

// CanonicalValue widens numeric clause values to int64 or float64 so a scope
// compares the same whichever cache backend decoded it. Unsigned values
// above math.MaxInt64 stay uint64. Slices are converted element-wise.
func CanonicalValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return canonicalUint(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return canonicalUint(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = CanonicalValue(e)
		}
		return out
	default:
		return v
	}
}

func canonicalUint(n uint64) any {
	if n > math.MaxInt64 {
		return n
	}
	return int64(n)
}

// Relation describes one relation of a model.
//
// Children holds the relations of Model. It is nil when the subtree was not
// expanded (depth exhausted or structural duplicate) and empty when Model
// was expanded but has no relations.
type Relation struct {
	Kind       Kind   `json:"type" msgpack:"type"`
	Name       string `json:"name" msgpack:"name"`
	Model      string `json:"model" msgpack:"model"`
	LocalKey   string `json:"localKey,omitempty" msgpack:"local_key,omitempty"`
	ForeignKey string `json:"foreignKey,omitempty" msgpack:"foreign_key,omitempty"`

	MorphType  string `json:"morphType,omitempty" msgpack:"morph_type,omitempty"`
	MorphClass string `json:"morphClass,omitempty" msgpack:"morph_class,omitempty"`

	PivotTable        string `json:"pivotTable,omitempty" msgpack:"pivot_table,omitempty"`
	PivotIntermediate string `json:"pivotIntermediate,omitempty" msgpack:"pivot_intermediate,omitempty"`
	RelatedPivotKey   string `json:"relatedPivotKey,omitempty" msgpack:"related_pivot_key,omitempty"`
	ForeignPivotKey   string `json:"foreignPivotKey,omitempty" msgpack:"foreign_pivot_key,omitempty"`

	Scope []Clause `json:"scope" msgpack:"scope"`

	Children []*Relation `json:"children" msgpack:"children"`
}

// Expanded reports whether the target model's relations were built
func (r *Relation) Expanded() bool {
	return r.Children != nil
}

// Scoped reports whether the relation applies filters beyond its join
func (r *Relation) Scoped() bool {
	return len(r.Scope) > 0
}

var shapeOptions = []cmp.Option{
	cmpopts.IgnoreFields(Relation{}, "Children"),
	cmpopts.EquateEmpty(),
}

// SameShape compares two relations ignoring their children
func (r *Relation) SameShape(other *Relation) bool {
	if r == nil || other == nil {
		return r == other
	}
	return cmp.Equal(*r, *other, shapeOptions...)
}

// Canonicalize rewrites every scope value of the graph with CanonicalValue
func Canonicalize(rels []*Relation) {
	Walk(rels, func(r *Relation, _ int) bool {
		for i := range r.Scope {
			r.Scope[i].Value = CanonicalValue(r.Scope[i].Value)
		}
		return true
	})
}

// Clone returns a deep copy of the relation and its subtree
func (r *Relation) Clone() *Relation {
	if r == nil {
		return nil
	}
	out := *r
	if r.Scope != nil {
		out.Scope = append([]Clause(nil), r.Scope...)
	}
	out.Children = CloneAll(r.Children)
	return &out
}

// CloneAll deep copies a relation set, keeping nil and empty distinct
func CloneAll(rels []*Relation) []*Relation {
	if rels == nil {
		return nil
	}
	out := make([]*Relation, len(rels))
	for i, r := range rels {
		out[i] = r.Clone()
	}
	return out
}

// Find returns the relation with the given name
func Find(rels []*Relation, name string) (*Relation, bool) {
	for _, r := range rels {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Walk visits every relation depth first, parents before children.
// Returning false from fn skips the relation's children.
func Walk(rels []*Relation, fn func(r *Relation, depth int) bool) {
	walk(rels, 0, fn)
}

func walk(rels []*Relation, depth int, fn func(r *Relation, depth int) bool) {
	for _, r := range rels {
		if fn(r, depth) {
			walk(r.Children, depth+1, fn)
		}
	}
}
