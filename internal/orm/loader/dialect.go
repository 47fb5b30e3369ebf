package loader

import (
	"context"
	"database/sql"
	"fmt"
)

// Postgres reads information_schema. It serves both the pgx and pq drivers.
type Postgres struct{}

const postgresColumnsQuery = `
SELECT c.table_name, c.column_name
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
ORDER BY c.table_name, c.ordinal_position`

const postgresPrimaryKeysQuery = `
SELECT tc.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
ORDER BY tc.table_name, kcu.ordinal_position`

const postgresForeignKeysQuery = `
SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
ORDER BY kcu.table_name, kcu.ordinal_position`

// Tables returns the base tables of schemaName ordered by name
func (Postgres) Tables(ctx context.Context, db *sql.DB, schemaName string) ([]Table, error) {
	rows, err := db.QueryContext(ctx, postgresColumnsQuery, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []Table
	index := make(map[string]int)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, err
		}
		i, ok := index[table]
		if !ok {
			i = len(tables)
			index[table] = i
			tables = append(tables, Table{Name: table})
		}
		tables[i].Columns = append(tables[i].Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pks, err := db.QueryContext(ctx, postgresPrimaryKeysQuery, schemaName)
	if err != nil {
		return nil, err
	}
	defer pks.Close()

	for pks.Next() {
		var table, column string
		if err := pks.Scan(&table, &column); err != nil {
			return nil, err
		}
		// Composite keys keep their first column.
		if i, ok := index[table]; ok && tables[i].PrimaryKey == "" {
			tables[i].PrimaryKey = column
		}
	}
	return tables, pks.Err()
}

// ForeignKeys returns the foreign keys of schemaName
func (Postgres) ForeignKeys(ctx context.Context, db *sql.DB, schemaName string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, postgresForeignKeysQuery, schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.Table, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, err
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// SQLite reads sqlite_master and the table pragmas
type SQLite struct{}

const sqliteTablesQuery = `
SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

const sqliteColumnsQuery = `SELECT name, pk FROM pragma_table_info(?) ORDER BY cid`

const sqliteForeignKeysQuery = `SELECT "from", "table", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`

func (SQLite) tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, sqliteTablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Tables returns every user table ordered by name
func (d SQLite) Tables(ctx context.Context, db *sql.DB, _ string) ([]Table, error) {
	names, err := d.tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		t, err := d.table(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func (SQLite) table(ctx context.Context, db *sql.DB, name string) (Table, error) {
	rows, err := db.QueryContext(ctx, sqliteColumnsQuery, name)
	if err != nil {
		return Table{}, err
	}
	defer rows.Close()

	t := Table{Name: name}
	for rows.Next() {
		var column string
		var pk int
		if err := rows.Scan(&column, &pk); err != nil {
			return Table{}, err
		}
		t.Columns = append(t.Columns, column)
		if pk == 1 {
			t.PrimaryKey = column
		}
	}
	return t, rows.Err()
}

// ForeignKeys returns the foreign keys of every user table. A reference
// without a target column points at the target's primary key.
func (d SQLite) ForeignKeys(ctx context.Context, db *sql.DB, _ string) ([]ForeignKey, error) {
	names, err := d.tableNames(ctx, db)
	if err != nil {
		return nil, err
	}

	var fks []ForeignKey
	for _, name := range names {
		found, err := d.foreignKeys(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		fks = append(fks, found...)
	}
	return fks, nil
}

func (SQLite) foreignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, sqliteForeignKeysQuery, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var column, ref string
		var refColumn sql.NullString
		if err := rows.Scan(&column, &ref, &refColumn); err != nil {
			return nil, err
		}
		fk := ForeignKey{Table: table, Column: column, RefTable: ref, RefColumn: refColumn.String}
		if fk.RefColumn == "" {
			fk.RefColumn = "id"
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}
