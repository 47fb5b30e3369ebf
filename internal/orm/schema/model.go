package schema

import "fmt"

// Mixin is a reusable set of relation factories shared by several models
type Mixin struct {
	Name      string
	Relations []Factory
}

// Definition declares a model: its table, its key and the relations it defines
type Definition struct {
	Name       string
	TableName  string
	PrimaryKey string
	Relations  []Factory
	Mixins     []*Mixin
}

// NewDefinition creates a definition with conventional table and key names
func NewDefinition(name string) *Definition {
	return &Definition{
		Name:       name,
		TableName:  TableName(name),
		PrimaryKey: "id",
	}
}

// Table sets the table backing the model
func (d *Definition) Table(table string) *Definition {
	d.TableName = table
	return d
}

// Key sets the primary key column
func (d *Definition) Key(column string) *Definition {
	d.PrimaryKey = column
	return d
}

// With adds relation factories to the definition
func (d *Definition) With(factories ...Factory) *Definition {
	d.Relations = append(d.Relations, factories...)
	return d
}

// Use includes the relations of a mixin
func (d *Definition) Use(mixins ...*Mixin) *Definition {
	d.Mixins = append(d.Mixins, mixins...)
	return d
}

// Validate checks the definition is structurally usable
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidDefinition)
	}
	if d.TableName == "" {
		return fmt.Errorf("%w: model %s has no table", ErrInvalidDefinition, d.Name)
	}
	for _, f := range d.factories() {
		if f.Name == "" || f.Fn == nil {
			return fmt.Errorf("%w: model %s declares an unnamed or empty relation", ErrInvalidDefinition, d.Name)
		}
	}
	return nil
}

// factories returns own relations followed by mixin relations
func (d *Definition) factories() []Factory {
	out := make([]Factory, 0, len(d.Relations))
	out = append(out, d.Relations...)
	for _, m := range d.Mixins {
		out = append(out, m.Relations...)
	}
	return out
}

// instance is the Model handed to relation factories
type instance struct {
	name  string
	table string
	key   string
}

func (i *instance) ModelName() string { return i.name }
func (i *instance) Table() string     { return i.table }
func (i *instance) KeyName() string   { return i.key }

func (d *Definition) instantiate() Model {
	key := d.PrimaryKey
	if key == "" {
		key = "id"
	}
	return &instance{name: d.Name, table: d.TableName, key: key}
}
