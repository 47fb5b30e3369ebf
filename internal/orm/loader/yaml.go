// Package loader builds model definitions from external sources: a YAML
// model file or the foreign keys of a live database.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// File is the document format of a model file
type File struct {
	Mixins []MixinSpec `yaml:"mixins"`
	Models []ModelSpec `yaml:"models"`
}

// MixinSpec declares relations shared by every model including the mixin
type MixinSpec struct {
	Name      string         `yaml:"name"`
	Relations []RelationSpec `yaml:"relations"`
}

// ModelSpec declares one model. Relation order is discovery order.
type ModelSpec struct {
	Name      string         `yaml:"name"`
	Table     string         `yaml:"table"`
	Key       string         `yaml:"key"`
	Mixins    []string       `yaml:"mixins"`
	Relations []RelationSpec `yaml:"relations"`
}

// RelationSpec declares one relation; empty keys fall back to conventions
type RelationSpec struct {
	Name            string       `yaml:"name"`
	Type            string       `yaml:"type"`
	Model           string       `yaml:"model"`
	ForeignKey      string       `yaml:"foreign_key"`
	OwnerKey        string       `yaml:"owner_key"`
	LocalKey        string       `yaml:"local_key"`
	RelatedKey      string       `yaml:"related_key"`
	PivotTable      string       `yaml:"pivot_table"`
	Using           string       `yaml:"using"`
	ForeignPivotKey string       `yaml:"foreign_pivot_key"`
	RelatedPivotKey string       `yaml:"related_pivot_key"`
	MorphName       string       `yaml:"morph_name"`
	MorphClass      string       `yaml:"morph_class"`
	Where           []ClauseSpec `yaml:"where"`
}

// ClauseSpec is a scope filter. Type is one of basic (default), null,
// not_null or in.
type ClauseSpec struct {
	Type     string `yaml:"type"`
	Column   string `yaml:"column"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
	Values   []any  `yaml:"values"`
}

// LoadFile reads model definitions from a YAML file
func LoadFile(path string) ([]*schema.Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open model file: %w", err)
	}
	defer f.Close()

	defs, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadYAML parses model definitions from a YAML document
func LoadYAML(data []byte) ([]*schema.Definition, error) {
	return Load(bytes.NewReader(data))
}

// Load decodes a YAML document and turns it into model definitions
func Load(r io.Reader) ([]*schema.Definition, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	return file.Definitions()
}

// Definitions converts the document into validated model definitions
func (f *File) Definitions() ([]*schema.Definition, error) {
	tables := make(map[string]string, len(f.Models))
	for _, m := range f.Models {
		if _, exists := tables[m.Name]; exists {
			return nil, fmt.Errorf("%w: %s", schema.ErrDuplicateModel, m.Name)
		}
		tables[m.Name] = m.Table
		if m.Table == "" {
			tables[m.Name] = schema.TableName(m.Name)
		}
	}

	mixins := make(map[string]*schema.Mixin, len(f.Mixins))
	for _, decl := range f.Mixins {
		rels, err := buildFactories(decl.Relations, tables)
		if err != nil {
			return nil, fmt.Errorf("mixin %s: %w", decl.Name, err)
		}
		mixins[decl.Name] = &schema.Mixin{Name: decl.Name, Relations: rels}
	}

	defs := make([]*schema.Definition, 0, len(f.Models))
	for _, decl := range f.Models {
		def := schema.NewDefinition(decl.Name).Table(tables[decl.Name])
		if decl.Key != "" {
			def.Key(decl.Key)
		}

		rels, err := buildFactories(decl.Relations, tables)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", decl.Name, err)
		}
		def.With(rels...)

		for _, name := range decl.Mixins {
			mixin, ok := mixins[name]
			if !ok {
				return nil, fmt.Errorf("model %s: %w: %s", decl.Name, ErrUnknownMixin, name)
			}
			def.Use(mixin)
		}

		if err := def.Validate(); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func buildFactories(specs []RelationSpec, tables map[string]string) ([]schema.Factory, error) {
	out := make([]schema.Factory, 0, len(specs))
	for _, decl := range specs {
		f, err := decl.factory(tables)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s RelationSpec) factory(tables map[string]string) (schema.Factory, error) {
	if s.Name == "" {
		return schema.Factory{}, fmt.Errorf("%w: relation without a name", schema.ErrInvalidDefinition)
	}

	kind, err := schema.ParseRelationKind(s.Type)
	if err != nil {
		return schema.Factory{}, fmt.Errorf("relation %s: %w", s.Name, err)
	}

	opts, err := s.options()
	if err != nil {
		return schema.Factory{}, fmt.Errorf("relation %s: %w", s.Name, err)
	}

	if kind == schema.KindMorphTo {
		return schema.MorphTo(s.Name, opts...), nil
	}

	table, ok := tables[s.Model]
	if !ok {
		return schema.Factory{}, fmt.Errorf("relation %s: %w: %q", s.Name, ErrUnknownRelationModel, s.Model)
	}
	opts = append(opts, schema.RelatedTable(table))

	switch kind {
	case schema.KindBelongsTo:
		return schema.BelongsTo(s.Name, s.Model, opts...), nil
	case schema.KindHasOne:
		return schema.HasOne(s.Name, s.Model, opts...), nil
	case schema.KindHasMany:
		return schema.HasMany(s.Name, s.Model, opts...), nil
	case schema.KindBelongsToMany:
		return schema.BelongsToMany(s.Name, s.Model, opts...), nil
	case schema.KindMorphOne:
		return schema.MorphOne(s.Name, s.Model, opts...), nil
	case schema.KindMorphMany:
		return schema.MorphMany(s.Name, s.Model, opts...), nil
	default:
		return schema.MorphToMany(s.Name, s.Model, opts...), nil
	}
}

func (s RelationSpec) options() ([]schema.Option, error) {
	var opts []schema.Option
	add := func(v string, opt func(string) schema.Option) {
		if v != "" {
			opts = append(opts, opt(v))
		}
	}

	add(s.ForeignKey, schema.ForeignKey)
	add(s.OwnerKey, schema.OwnerKey)
	add(s.LocalKey, schema.LocalKey)
	add(s.RelatedKey, schema.RelatedKey)
	add(s.PivotTable, schema.PivotTable)
	add(s.Using, schema.Using)
	add(s.MorphName, schema.MorphName)
	add(s.MorphClass, schema.MorphClass)
	if s.ForeignPivotKey != "" || s.RelatedPivotKey != "" {
		opts = append(opts, schema.PivotKeys(s.ForeignPivotKey, s.RelatedPivotKey))
	}

	for _, c := range s.Where {
		opt, err := c.option()
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

func (c ClauseSpec) option() (schema.Option, error) {
	if c.Column == "" {
		return nil, fmt.Errorf("%w: where clause without a column", schema.ErrInvalidDefinition)
	}

	switch c.Type {
	case "", "basic":
		op := c.Operator
		if op == "" {
			op = "="
		}
		return schema.Where(c.Column, op, c.Value), nil
	case "null":
		return schema.WhereNull(c.Column), nil
	case "not_null":
		return schema.WhereNotNull(c.Column), nil
	case "in":
		return schema.WhereIn(c.Column, c.Values...), nil
	default:
		return nil, fmt.Errorf("%w: unknown clause type %q", schema.ErrInvalidDefinition, c.Type)
	}
}
