package schema

import "fmt"

// Option customizes the keys, tables and scope of a relation
type Option func(*relationOptions)

type relationOptions struct {
	foreignKey      string
	ownerKey        string
	localKey        string
	relatedKey      string
	relatedTable    string
	pivotTable      string
	using           string
	foreignPivotKey string
	relatedPivotKey string
	morphName       string
	morphClass      string
	scope           []Clause
}

// ForeignKey overrides the foreign key column
func ForeignKey(column string) Option {
	return func(o *relationOptions) { o.foreignKey = column }
}

// OwnerKey overrides the key on the owning model of a BelongsTo
func OwnerKey(column string) Option {
	return func(o *relationOptions) { o.ownerKey = column }
}

// LocalKey overrides the key on the parent model
func LocalKey(column string) Option {
	return func(o *relationOptions) { o.localKey = column }
}

// RelatedKey overrides the key on the related model of a many to many relation
func RelatedKey(column string) Option {
	return func(o *relationOptions) { o.relatedKey = column }
}

// RelatedTable overrides the table of the related model
func RelatedTable(table string) Option {
	return func(o *relationOptions) { o.relatedTable = table }
}

// PivotTable overrides the intermediate table of a many to many relation
func PivotTable(table string) Option {
	return func(o *relationOptions) { o.pivotTable = table }
}

// Using sets the model representing the pivot table
func Using(model string) Option {
	return func(o *relationOptions) { o.using = model }
}

// PivotKeys overrides both pivot columns
func PivotKeys(foreignPivotKey, relatedPivotKey string) Option {
	return func(o *relationOptions) {
		o.foreignPivotKey = foreignPivotKey
		o.relatedPivotKey = relatedPivotKey
	}
}

// MorphName sets the polymorphic name ("commentable") the type and id columns derive from
func MorphName(name string) Option {
	return func(o *relationOptions) { o.morphName = name }
}

// MorphClass overrides the class tag stored in the morph type column
func MorphClass(class string) Option {
	return func(o *relationOptions) { o.morphClass = class }
}

// Where adds a basic comparison to the relation scope
func Where(column, operator string, value any) Option {
	return func(o *relationOptions) {
		o.scope = append(o.scope, Clause{Type: ClauseBasic, Column: column, Operator: operator, Value: value})
	}
}

// WhereNull adds an "is null" clause to the relation scope
func WhereNull(column string) Option {
	return func(o *relationOptions) {
		o.scope = append(o.scope, Clause{Type: ClauseNull, Column: column})
	}
}

// WhereNotNull adds an "is not null" clause to the relation scope
func WhereNotNull(column string) Option {
	return func(o *relationOptions) {
		o.scope = append(o.scope, Clause{Type: ClauseNotNull, Column: column})
	}
}

// WhereIn adds an "in" clause to the relation scope
func WhereIn(column string, values ...any) Option {
	return func(o *relationOptions) {
		o.scope = append(o.scope, Clause{Type: ClauseIn, Column: column, Operator: "in", Value: values})
	}
}

// WithScope appends already built clauses to the relation scope
func WithScope(clauses ...Clause) Option {
	return func(o *relationOptions) { o.scope = append(o.scope, clauses...) }
}

func applyOptions(related string, opts []Option) *relationOptions {
	o := &relationOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.relatedTable == "" && related != "" {
		o.relatedTable = TableName(related)
	}
	return o
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// BelongsTo declares an inverse one to one or one to many relation
func BelongsTo(name, related string, opts ...Option) Factory {
	return Factory{Name: name, Fn: func(m Model) (Relation, error) {
		if related == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoRelatedModel, m.ModelName(), name)
		}
		o := applyOptions(related, opts)
		return &BelongsToRelation{
			parent:       m,
			related:      related,
			relatedTable: o.relatedTable,
			foreignKey:   or(o.foreignKey, ForeignKeyFor(name)),
			ownerKey:     or(o.ownerKey, "id"),
			scope:        o.scope,
		}, nil
	}}
}

// HasOne declares a one to one relation owned by the parent
func HasOne(name, related string, opts ...Option) Factory {
	return hasOneOrMany(KindHasOne, name, related, opts)
}

// HasMany declares a one to many relation owned by the parent
func HasMany(name, related string, opts ...Option) Factory {
	return hasOneOrMany(KindHasMany, name, related, opts)
}

// MorphOne declares a polymorphic one to one relation
func MorphOne(name, related string, opts ...Option) Factory {
	return hasOneOrMany(KindMorphOne, name, related, opts)
}

// MorphMany declares a polymorphic one to many relation
func MorphMany(name, related string, opts ...Option) Factory {
	return hasOneOrMany(KindMorphMany, name, related, opts)
}

func hasOneOrMany(kind RelationKind, name, related string, opts []Option) Factory {
	return Factory{Name: name, Fn: func(m Model) (Relation, error) {
		if related == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoRelatedModel, m.ModelName(), name)
		}
		o := applyOptions(related, opts)
		rel := &HasOneOrManyRelation{
			kind:         kind,
			parent:       m,
			related:      related,
			relatedTable: o.relatedTable,
			foreignKey:   or(o.foreignKey, ForeignKeyFor(m.ModelName())),
			localKey:     or(o.localKey, m.KeyName()),
			scope:        o.scope,
		}
		if rel.morphs() {
			morph := or(o.morphName, MorphNameFor(name))
			rel.foreignKey = or(o.foreignKey, morph+"_id")
			rel.morphType = morph + "_type"
			rel.morphClass = or(o.morphClass, m.ModelName())
		}
		return rel, nil
	}}
}

// BelongsToMany declares a many to many relation through a pivot table
func BelongsToMany(name, related string, opts ...Option) Factory {
	return Factory{Name: name, Fn: func(m Model) (Relation, error) {
		if related == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoRelatedModel, m.ModelName(), name)
		}
		o := applyOptions(related, opts)
		return &BelongsToManyRelation{
			kind:            KindBelongsToMany,
			parent:          m,
			related:         related,
			relatedTable:    o.relatedTable,
			table:           or(o.pivotTable, PivotTableName(m.ModelName(), related)),
			using:           o.using,
			foreignPivotKey: or(o.foreignPivotKey, ForeignKeyFor(m.ModelName())),
			relatedPivotKey: or(o.relatedPivotKey, ForeignKeyFor(related)),
			parentKey:       or(o.localKey, m.KeyName()),
			relatedKey:      or(o.relatedKey, "id"),
			scope:           o.scope,
		}, nil
	}}
}

// MorphToMany declares a polymorphic many to many relation
func MorphToMany(name, related string, opts ...Option) Factory {
	return Factory{Name: name, Fn: func(m Model) (Relation, error) {
		if related == "" {
			return nil, fmt.Errorf("%w: %s.%s", ErrNoRelatedModel, m.ModelName(), name)
		}
		o := applyOptions(related, opts)
		morph := or(o.morphName, MorphNameFor(related))
		return &BelongsToManyRelation{
			kind:            KindMorphToMany,
			parent:          m,
			related:         related,
			relatedTable:    o.relatedTable,
			table:           or(o.pivotTable, TableName(morph)),
			using:           o.using,
			foreignPivotKey: or(o.foreignPivotKey, morph+"_id"),
			relatedPivotKey: or(o.relatedPivotKey, ForeignKeyFor(related)),
			parentKey:       or(o.localKey, m.KeyName()),
			relatedKey:      or(o.relatedKey, "id"),
			morphType:       morph + "_type",
			morphClass:      or(o.morphClass, m.ModelName()),
			scope:           o.scope,
		}, nil
	}}
}

// MorphTo declares the inverse of a polymorphic relation. Its target model
// is only known per row, so it never takes part in a relation graph.
func MorphTo(name string, opts ...Option) Factory {
	return Factory{Name: name, Fn: func(m Model) (Relation, error) {
		o := applyOptions("", opts)
		morph := or(o.morphName, name)
		return &MorphToRelation{
			parent:     m,
			foreignKey: or(o.foreignKey, morph+"_id"),
			morphType:  morph + "_type",
			scope:      o.scope,
		}, nil
	}}
}

// BelongsToRelation is an inverse relation: the foreign key lives on the parent
type BelongsToRelation struct {
	parent       Model
	related      string
	relatedTable string
	foreignKey   string
	ownerKey     string
	scope        []Clause
}

func (r *BelongsToRelation) Kind() RelationKind { return KindBelongsTo }
func (r *BelongsToRelation) Related() string    { return r.related }

func (r *BelongsToRelation) Key(name KeyName) (string, bool) {
	switch name {
	case KeyForeign:
		return r.foreignKey, true
	case KeyOwner:
		return r.ownerKey, true
	}
	return "", false
}

func (r *BelongsToRelation) QualifiedKey(name KeyName) (string, bool) {
	switch name {
	case KeyForeign:
		return r.parent.Table() + "." + r.foreignKey, true
	case KeyOwner:
		return r.relatedTable + "." + r.ownerKey, true
	}
	return "", false
}

func (r *BelongsToRelation) Query() []Clause {
	base := []Clause{
		{Type: ClauseBasic, Column: r.relatedTable + "." + r.ownerKey, Operator: "="},
	}
	return append(base, r.scope...)
}

// HasOneOrManyRelation covers HasOne, HasMany and their polymorphic variants:
// the foreign key lives on the related model.
type HasOneOrManyRelation struct {
	kind         RelationKind
	parent       Model
	related      string
	relatedTable string
	foreignKey   string
	localKey     string
	morphType    string
	morphClass   string
	scope        []Clause
}

func (r *HasOneOrManyRelation) morphs() bool {
	return r.kind == KindMorphOne || r.kind == KindMorphMany
}

func (r *HasOneOrManyRelation) Kind() RelationKind { return r.kind }
func (r *HasOneOrManyRelation) Related() string    { return r.related }

func (r *HasOneOrManyRelation) Key(name KeyName) (string, bool) {
	switch name {
	case KeyForeign:
		return r.foreignKey, true
	case KeyParent:
		return r.localKey, true
	case KeyMorphType:
		return r.morphType, r.morphs()
	case KeyMorphClass:
		return r.morphClass, r.morphs()
	}
	return "", false
}

func (r *HasOneOrManyRelation) QualifiedKey(name KeyName) (string, bool) {
	switch name {
	case KeyForeign:
		return r.relatedTable + "." + r.foreignKey, true
	case KeyParent:
		return r.parent.Table() + "." + r.localKey, true
	}
	return "", false
}

func (r *HasOneOrManyRelation) Query() []Clause {
	fk := r.relatedTable + "." + r.foreignKey
	base := []Clause{
		{Type: ClauseBasic, Column: fk, Operator: "="},
		{Type: ClauseNotNull, Column: fk},
	}
	if r.morphs() {
		base = append(base, Clause{
			Type:     ClauseBasic,
			Column:   r.relatedTable + "." + r.morphType,
			Operator: "=",
			Value:    r.morphClass,
		})
	}
	return append(base, r.scope...)
}

// BelongsToManyRelation covers BelongsToMany and MorphToMany
type BelongsToManyRelation struct {
	kind            RelationKind
	parent          Model
	related         string
	relatedTable    string
	table           string
	using           string
	foreignPivotKey string
	relatedPivotKey string
	parentKey       string
	relatedKey      string
	morphType       string
	morphClass      string
	scope           []Clause
}

func (r *BelongsToManyRelation) Kind() RelationKind { return r.kind }
func (r *BelongsToManyRelation) Related() string    { return r.related }

func (r *BelongsToManyRelation) Key(name KeyName) (string, bool) {
	morphs := r.kind == KindMorphToMany
	switch name {
	case KeyPivotTable:
		return r.table, true
	case KeyPivotUsing:
		return r.using, true
	case KeyForeignPivot:
		return r.foreignPivotKey, true
	case KeyRelatedPivot:
		return r.relatedPivotKey, true
	case KeyParent:
		return r.parentKey, true
	case KeyRelated:
		return r.relatedKey, true
	case KeyMorphType:
		return r.morphType, morphs
	case KeyMorphClass:
		return r.morphClass, morphs
	}
	return "", false
}

func (r *BelongsToManyRelation) QualifiedKey(name KeyName) (string, bool) {
	switch name {
	case KeyForeignPivot:
		return r.table + "." + r.foreignPivotKey, true
	case KeyRelatedPivot:
		return r.table + "." + r.relatedPivotKey, true
	case KeyParent:
		return r.parent.Table() + "." + r.parentKey, true
	case KeyRelated:
		return r.relatedTable + "." + r.relatedKey, true
	}
	return "", false
}

func (r *BelongsToManyRelation) Query() []Clause {
	fpk := r.table + "." + r.foreignPivotKey
	base := []Clause{{Type: ClauseBasic, Column: fpk, Operator: "="}}
	if r.kind == KindBelongsToMany {
		base = append(base,
			Clause{Type: ClauseNotNull, Column: fpk},
			Clause{Type: ClauseNotNull, Column: r.table + "." + r.relatedPivotKey},
		)
	}
	return append(base, r.scope...)
}

// MorphToRelation is the inverse side of a polymorphic relation
type MorphToRelation struct {
	parent     Model
	foreignKey string
	morphType  string
	scope      []Clause
}

func (r *MorphToRelation) Kind() RelationKind { return KindMorphTo }
func (r *MorphToRelation) Related() string    { return "" }

func (r *MorphToRelation) Key(name KeyName) (string, bool) {
	switch name {
	case KeyForeign:
		return r.foreignKey, true
	case KeyMorphType:
		return r.morphType, true
	}
	return "", false
}

func (r *MorphToRelation) Query() []Clause {
	return append([]Clause(nil), r.scope...)
}
