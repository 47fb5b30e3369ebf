package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factoryNames(factories []Factory) []string {
	names := make([]string, len(factories))
	for i, f := range factories {
		names[i] = f.Name
	}
	return names
}

func TestRegistry(t *testing.T) {
	t.Run("register and get definition", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewDefinition("Post")))

		def, exists := registry.Get("Post")
		require.True(t, exists)
		assert.Equal(t, "posts", def.TableName)
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewDefinition("Post")))

		err := registry.Register(NewDefinition("Post"))
		assert.ErrorIs(t, err, ErrDuplicateModel)
	})

	t.Run("invalid definition", func(t *testing.T) {
		registry := NewRegistry()

		err := registry.Register(&Definition{TableName: "posts"})
		assert.ErrorIs(t, err, ErrInvalidDefinition)

		err = registry.Register(NewDefinition("Post").With(Factory{Name: "author"}))
		assert.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("names are sorted", func(t *testing.T) {
		registry := NewRegistry()
		for _, name := range []string{"User", "Post", "Comment"} {
			require.NoError(t, registry.Register(NewDefinition(name)))
		}
		assert.Equal(t, []string{"Comment", "Post", "User"}, registry.Names())
	})

	t.Run("new returns a fresh instance", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewDefinition("Post").Table("blog_posts").Key("uuid")))

		a, err := registry.New("Post")
		require.NoError(t, err)
		b, err := registry.New("Post")
		require.NoError(t, err)

		assert.NotSame(t, a, b)
		assert.Equal(t, "Post", a.ModelName())
		assert.Equal(t, "blog_posts", a.Table())
		assert.Equal(t, "uuid", a.KeyName())
	})

	t.Run("unknown model", func(t *testing.T) {
		registry := NewRegistry()

		_, err := registry.New("Ghost")
		assert.True(t, errors.Is(err, ErrUnknownModel))

		_, err = registry.ListRelationFactories("Ghost")
		assert.ErrorIs(t, err, ErrUnknownModel)

		err = registry.RegisterRelation("Ghost", "haunts", BelongsTo("haunts", "House").Fn)
		assert.ErrorIs(t, err, ErrUnknownModel)
	})
}

func TestRegistry_ListRelationFactories(t *testing.T) {
	commentable := &Mixin{
		Name:      "commentable",
		Relations: []Factory{MorphMany("comments", "Comment")},
	}

	t.Run("own, mixin and registered relations in order", func(t *testing.T) {
		registry := NewRegistry()
		post := NewDefinition("Post").
			With(BelongsTo("author", "User"), BelongsToMany("tags", "Tag")).
			Use(commentable)
		require.NoError(t, registry.Register(post))
		require.NoError(t, registry.RegisterRelation("Post", "editor", BelongsTo("editor", "User").Fn))

		factories, err := registry.ListRelationFactories("Post")
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "tags", "comments", "editor"}, factoryNames(factories))
	})

	t.Run("later registration replaces factory in place", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewDefinition("Post").With(
			BelongsTo("author", "User"),
			BelongsToMany("tags", "Tag"),
		)))
		require.NoError(t, registry.RegisterRelation("Post", "author", BelongsTo("author", "Admin").Fn))

		factories, err := registry.ListRelationFactories("Post")
		require.NoError(t, err)
		require.Equal(t, []string{"author", "tags"}, factoryNames(factories))

		m, err := registry.New("Post")
		require.NoError(t, err)
		rel, err := factories[0].Fn(m)
		require.NoError(t, err)
		assert.Equal(t, "Admin", rel.Related())
	})

	t.Run("invalid registration", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(NewDefinition("Post")))

		assert.ErrorIs(t, registry.RegisterRelation("Post", "", nil), ErrInvalidDefinition)
	})
}

func TestRegistry_Reset(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewDefinition("Post"), NewDefinition("User")))
	require.NoError(t, registry.RegisterRelation("Post", "author", BelongsTo("author", "User").Fn))
	require.NoError(t, registry.RegisterRelation("User", "posts", HasMany("posts", "Post").Fn))

	require.NoError(t, registry.Reset(NewDefinition("Post"), NewDefinition("Tag")))

	assert.Equal(t, []string{"Post", "Tag"}, registry.Names())

	factories, err := registry.ListRelationFactories("Post")
	require.NoError(t, err)
	assert.Equal(t, []string{"author"}, factoryNames(factories))

	t.Run("failed reset keeps previous state", func(t *testing.T) {
		err := registry.Reset(NewDefinition("Post"), NewDefinition("Post"))
		assert.ErrorIs(t, err, ErrDuplicateModel)
		assert.Equal(t, []string{"Post", "Tag"}, registry.Names())
	})
}
