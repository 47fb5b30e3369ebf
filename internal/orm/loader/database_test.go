package loader

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/schema"
)

func blogTables() ([]Table, []ForeignKey) {
	tables := []Table{
		{Name: "comments", Columns: []string{"id", "post_id", "parent_id", "body"}, PrimaryKey: "id"},
		{Name: "post_tag", Columns: []string{"post_id", "tag_id", "created_at"}},
		{Name: "posts", Columns: []string{"id", "author_id", "editor_id", "title"}, PrimaryKey: "id"},
		{Name: "tags", Columns: []string{"id", "name"}, PrimaryKey: "id"},
		{Name: "users", Columns: []string{"uuid", "name"}, PrimaryKey: "uuid"},
	}
	fks := []ForeignKey{
		{Table: "comments", Column: "post_id", RefTable: "posts", RefColumn: "id"},
		{Table: "comments", Column: "parent_id", RefTable: "comments", RefColumn: "id"},
		{Table: "post_tag", Column: "post_id", RefTable: "posts", RefColumn: "id"},
		{Table: "post_tag", Column: "tag_id", RefTable: "tags", RefColumn: "id"},
		{Table: "posts", Column: "author_id", RefTable: "users", RefColumn: "uuid"},
		{Table: "posts", Column: "editor_id", RefTable: "users", RefColumn: "uuid"},
	}
	return tables, fks
}

func register(t *testing.T, defs []*schema.Definition) *schema.Registry {
	t.Helper()
	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(defs...))
	return registry
}

func TestInfer(t *testing.T) {
	tables, fks := blogTables()
	defs := Infer(tables, fks, nil)

	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Comment", "Post", "Tag", "User"}, names, "pivot tables are not models")

	registry := register(t, defs)
	assert.Equal(t, []string{"post", "parent", "comments"}, factoryNames(t, registry, "Comment"))
	assert.Equal(t, []string{"comments", "author", "editor", "tags"}, factoryNames(t, registry, "Post"))
	assert.Equal(t, []string{"posts"}, factoryNames(t, registry, "Tag"))
	assert.Equal(t, []string{"posts", "postsByEditorId"}, factoryNames(t, registry, "User"))

	t.Run("belongs to", func(t *testing.T) {
		rel := relationOf(t, registry, "Post", "editor")
		assert.Equal(t, schema.KindBelongsTo, rel.Kind())
		assert.Equal(t, "User", rel.Related())
		fk, _ := rel.Key(schema.KeyForeign)
		assert.Equal(t, "editor_id", fk)
		owner, _ := rel.Key(schema.KeyOwner)
		assert.Equal(t, "uuid", owner)
	})

	t.Run("has many", func(t *testing.T) {
		rel := relationOf(t, registry, "User", "postsByEditorId")
		assert.Equal(t, schema.KindHasMany, rel.Kind())
		assert.Equal(t, "Post", rel.Related())
		fk, _ := rel.Key(schema.KeyForeign)
		assert.Equal(t, "editor_id", fk)
		local, _ := rel.Key(schema.KeyParent)
		assert.Equal(t, "uuid", local)
	})

	t.Run("self reference", func(t *testing.T) {
		rel := relationOf(t, registry, "Comment", "comments")
		assert.Equal(t, "Comment", rel.Related())
		fk, _ := rel.Key(schema.KeyForeign)
		assert.Equal(t, "parent_id", fk)
	})

	t.Run("pivot", func(t *testing.T) {
		rel := relationOf(t, registry, "Tag", "posts")
		assert.Equal(t, schema.KindBelongsToMany, rel.Kind())
		assert.Equal(t, "Post", rel.Related())

		table, _ := rel.Key(schema.KeyPivotTable)
		assert.Equal(t, "post_tag", table)
		fpk, _ := rel.Key(schema.KeyForeignPivot)
		assert.Equal(t, "tag_id", fpk)
		rpk, _ := rel.Key(schema.KeyRelatedPivot)
		assert.Equal(t, "post_id", rpk)
	})

	t.Run("primary key", func(t *testing.T) {
		user, ok := registry.Get("User")
		require.True(t, ok)
		assert.Equal(t, "uuid", user.PrimaryKey)
	})
}

func TestIsPivot(t *testing.T) {
	pair := []ForeignKey{
		{Table: "post_tag", Column: "post_id", RefTable: "posts"},
		{Table: "post_tag", Column: "tag_id", RefTable: "tags"},
	}

	tests := []struct {
		name  string
		table Table
		fks   []ForeignKey
		want  bool
	}{
		{"keys only", Table{Name: "post_tag", Columns: []string{"post_id", "tag_id"}}, pair, true},
		{"with id and timestamps", Table{Name: "post_tag", Columns: []string{"id", "post_id", "tag_id", "created_at", "updated_at"}}, pair, true},
		{"extra payload column", Table{Name: "post_tag", Columns: []string{"post_id", "tag_id", "position"}}, pair, false},
		{"single foreign key", Table{Name: "post_tag", Columns: []string{"post_id"}}, pair[:1], false},
		{"same target twice", Table{Name: "follows", Columns: []string{"follower_id", "followee_id"}}, []ForeignKey{
			{Table: "follows", Column: "follower_id", RefTable: "users"},
			{Table: "follows", Column: "followee_id", RefTable: "users"},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPivot(tt.table, tt.fks))
		})
	}
}

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"pgx", "postgres"} {
		d, err := DialectFor(driver)
		require.NoError(t, err)
		assert.IsType(t, Postgres{}, d)
	}

	d, err := DialectFor("sqlite3")
	require.NoError(t, err)
	assert.IsType(t, SQLite{}, d)

	_, err = DialectFor("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, _, err = Open("oracle", "")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestDatabaseLoader_Postgres(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("posts", "id").
			AddRow("posts", "author_id").
			AddRow("users", "id").
			AddRow("users", "email"))
	mock.ExpectQuery("constraint_type = 'PRIMARY KEY'").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("posts", "id").
			AddRow("users", "id"))
	mock.ExpectQuery("constraint_type = 'FOREIGN KEY'").
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "table_name", "column_name"}).
			AddRow("posts", "author_id", "users", "id"))

	defs, err := NewDatabaseLoader(db, Postgres{}, WithSchema("app")).Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	registry := register(t, defs)
	assert.Equal(t, []string{"Post", "User"}, registry.Names())
	assert.Equal(t, []string{"author"}, factoryNames(t, registry, "Post"))
	assert.Equal(t, []string{"posts"}, factoryNames(t, registry, "User"))
}

func TestDatabaseLoader_QueryError(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public").
		WillReturnError(sql.ErrConnDone)

	_, err := NewDatabaseLoader(db, Postgres{}).Load(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseLoader_SQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY, author_id INTEGER REFERENCES users(id), title TEXT)`,
		`CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT)`,
		`CREATE TABLE post_tag (post_id INTEGER REFERENCES posts(id), tag_id INTEGER REFERENCES tags, created_at DATETIME)`,
	} {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	tables, err := SQLite{}.Tables(ctx, db, "")
	require.NoError(t, err)
	require.Len(t, tables, 4)
	assert.Equal(t, "post_tag", tables[0].Name)
	assert.Equal(t, []string{"id", "author_id", "title"}, tables[1].Columns)
	assert.Equal(t, "id", tables[1].PrimaryKey)

	defs, err := NewDatabaseLoader(db, SQLite{}).Load(ctx)
	require.NoError(t, err)

	registry := register(t, defs)
	assert.Equal(t, []string{"Post", "Tag", "User"}, registry.Names())
	assert.Equal(t, []string{"author", "tags"}, factoryNames(t, registry, "Post"))
	assert.Equal(t, []string{"posts"}, factoryNames(t, registry, "Tag"))

	rel := relationOf(t, registry, "Tag", "posts")
	owner, _ := rel.Key(schema.KeyRelated)
	assert.Equal(t, "id", owner)
	local, _ := rel.Key(schema.KeyParent)
	assert.Equal(t, "id", local, "implicit reference targets id")
}
