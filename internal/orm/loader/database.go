package loader

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iancoleman/strcase"
	"github.com/samber/lo"
	"go.uber.org/zap"

	// Database drivers selectable through database.driver
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// Table is a database table with its columns in ordinal order
type Table struct {
	Name       string
	Columns    []string
	PrimaryKey string
}

// ForeignKey is a single column reference from Table.Column to RefTable.RefColumn
type ForeignKey struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// Dialect reads table structure from a database catalog
type Dialect interface {
	Tables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error)
	ForeignKeys(ctx context.Context, db *sql.DB, schemaName string) ([]ForeignKey, error)
}

// DialectFor returns the dialect of a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres{}, nil
	case "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}

// Open opens a database handle and its dialect
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, dialect, nil
}

// DatabaseLoader infers model definitions from the foreign keys of a database
type DatabaseLoader struct {
	db         *sql.DB
	dialect    Dialect
	schemaName string
	logger     *zap.Logger
}

// DatabaseOption configures a DatabaseLoader
type DatabaseOption func(*DatabaseLoader)

// WithSchema sets the database schema to read; ignored by sqlite
func WithSchema(name string) DatabaseOption {
	return func(l *DatabaseLoader) {
		l.schemaName = name
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) DatabaseOption {
	return func(l *DatabaseLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewDatabaseLoader creates a loader reading db through dialect
func NewDatabaseLoader(db *sql.DB, dialect Dialect, opts ...DatabaseOption) *DatabaseLoader {
	l := &DatabaseLoader{
		db:         db,
		dialect:    dialect,
		schemaName: "public",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the catalog and infers one definition per non pivot table
func (l *DatabaseLoader) Load(ctx context.Context) ([]*schema.Definition, error) {
	tables, err := l.dialect.Tables(ctx, l.db, l.schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}

	fks, err := l.dialect.ForeignKeys(ctx, l.db, l.schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}

	defs := Infer(tables, fks, l.logger)
	l.logger.Info("loaded models from database",
		zap.Int("tables", len(tables)),
		zap.Int("foreign_keys", len(fks)),
		zap.Int("models", len(defs)))
	return defs, nil
}

var pivotColumns = []string{"id", "created_at", "updated_at"}

// isPivot reports whether a table only joins two other tables
func isPivot(t Table, fks []ForeignKey) bool {
	if len(fks) != 2 {
		return false
	}
	a, b := fks[0], fks[1]
	if a.RefTable == b.RefTable || a.RefTable == t.Name || b.RefTable == t.Name {
		return false
	}
	allowed := append([]string{a.Column, b.Column}, pivotColumns...)
	return lo.Every(allowed, t.Columns)
}

// inference accumulates relations per model while keeping names unique
type inference struct {
	defs  map[string]*schema.Definition
	names map[string]map[string]bool
}

func (in *inference) add(model, name, column string, build func(name string) schema.Factory) {
	used := in.names[model]
	unique := name
	if used[unique] {
		unique = name + "By" + strcase.ToCamel(column)
	}
	for i := 2; used[unique]; i++ {
		unique = fmt.Sprintf("%sBy%s%d", name, strcase.ToCamel(column), i)
	}
	used[unique] = true
	in.defs[model].With(build(unique))
}

// Infer builds definitions from tables and foreign keys.
//
// Every foreign key src.col -> dst.key gives src a BelongsTo named after the
// column and dst a HasMany named after src. A pivot table becomes a
// BelongsToMany on both joined models instead of a model of its own.
func Infer(tables []Table, fks []ForeignKey, logger *zap.Logger) []*schema.Definition {
	if logger == nil {
		logger = zap.NewNop()
	}

	byTable := lo.GroupBy(fks, func(fk ForeignKey) string { return fk.Table })
	in := &inference{
		defs:  make(map[string]*schema.Definition),
		names: make(map[string]map[string]bool),
	}

	var models, pivots []Table
	for _, t := range tables {
		if isPivot(t, byTable[t.Name]) {
			pivots = append(pivots, t)
			continue
		}
		models = append(models, t)

		name := schema.ModelNameFor(t.Name)
		def := schema.NewDefinition(name).Table(t.Name)
		if t.PrimaryKey != "" {
			def.Key(t.PrimaryKey)
		}
		in.defs[t.Name] = def
		in.names[t.Name] = make(map[string]bool)
	}

	for _, t := range models {
		src := in.defs[t.Name]
		for _, fk := range byTable[t.Name] {
			dst, ok := in.defs[fk.RefTable]
			if !ok {
				logger.Debug("skipping foreign key to a table without model",
					zap.String("table", fk.Table),
					zap.String("column", fk.Column),
					zap.String("references", fk.RefTable))
				continue
			}

			in.add(t.Name, schema.RelationNameFor(fk.Column, false), fk.Column, func(name string) schema.Factory {
				return schema.BelongsTo(name, dst.Name,
					schema.ForeignKey(fk.Column),
					schema.OwnerKey(fk.RefColumn),
					schema.RelatedTable(fk.RefTable))
			})
			in.add(fk.RefTable, schema.RelationNameFor(src.Name, true), fk.Column, func(name string) schema.Factory {
				return schema.HasMany(name, src.Name,
					schema.ForeignKey(fk.Column),
					schema.LocalKey(fk.RefColumn),
					schema.RelatedTable(t.Name))
			})
		}
	}

	for _, p := range pivots {
		joined := byTable[p.Name]
		for _, pair := range [][2]ForeignKey{{joined[0], joined[1]}, {joined[1], joined[0]}} {
			own, other := pair[0], pair[1]
			parent, ok := in.defs[own.RefTable]
			if !ok {
				continue
			}
			related, ok := in.defs[other.RefTable]
			if !ok {
				continue
			}

			in.add(parent.TableName, schema.RelationNameFor(related.Name, true), own.Column, func(name string) schema.Factory {
				return schema.BelongsToMany(name, related.Name,
					schema.PivotTable(p.Name),
					schema.PivotKeys(own.Column, other.Column),
					schema.LocalKey(own.RefColumn),
					schema.RelatedKey(other.RefColumn),
					schema.RelatedTable(other.RefTable))
			})
		}
	}

	return lo.Map(models, func(t Table, _ int) *schema.Definition {
		return in.defs[t.Name]
	})
}
