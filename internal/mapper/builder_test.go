package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relmap/internal/orm/schema"
	"github.com/conduit-lang/relmap/internal/relation"
)

func names(rels []*relation.Relation) []string {
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = r.Name
	}
	return out
}

func newBuilder(registry *schema.Registry) *Builder {
	return NewBuilder(NewIntrospector(registry, nil), nil)
}

func TestPolicy(t *testing.T) {
	assert.Equal(t, "depth3", DepthPolicy(3).String())
	assert.Equal(t, "depth0", DepthPolicy(0).String())
	assert.Equal(t, "dedupe", DuplicatePolicy().String())

	tests := []struct {
		name    string
		depth   int
		want    Policy
		wantErr bool
	}{
		{"depth", 2, DepthPolicy(2), false},
		{"", 3, DepthPolicy(3), false},
		{"Duplicates", 3, DuplicatePolicy(), false},
		{"dedupe", 0, DuplicatePolicy(), false},
		{"depth", -1, Policy{}, true},
		{"breadth", 3, Policy{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.name, tt.depth)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilder_Depth(t *testing.T) {
	b := newBuilder(blog(t))

	t.Run("depth zero", func(t *testing.T) {
		rels, err := b.Build("Post", DepthPolicy(0))
		require.NoError(t, err)
		assert.Empty(t, rels)
	})

	t.Run("depth zero still resolves the model", func(t *testing.T) {
		_, err := b.Build("Ghost", DepthPolicy(0))
		assert.ErrorIs(t, err, schema.ErrUnknownModel)
	})

	t.Run("depth one", func(t *testing.T) {
		rels, err := b.Build("Post", DepthPolicy(1))
		require.NoError(t, err)
		assert.Equal(t, []string{"author", "tags"}, names(rels))
		for _, r := range rels {
			assert.False(t, r.Expanded(), r.Name)
		}
	})

	t.Run("depth two", func(t *testing.T) {
		rels, err := b.Build("Post", DepthPolicy(2))
		require.NoError(t, err)
		require.Len(t, rels, 2)

		author, tags := rels[0], rels[1]
		assert.Equal(t, []string{"posts"}, names(author.Children))
		assert.False(t, author.Children[0].Expanded())
		assert.True(t, tags.Expanded(), "Tag was expanded")
		assert.Empty(t, tags.Children)
	})

	t.Run("bounded by depth", func(t *testing.T) {
		for depth := 1; depth <= 5; depth++ {
			rels, err := b.Build("Post", DepthPolicy(depth))
			require.NoError(t, err)

			deepest := 0
			relation.Walk(rels, func(_ *relation.Relation, d int) bool {
				deepest = max(deepest, d)
				return true
			})
			assert.Equal(t, depth-1, deepest, "depth %d", depth)
		}
	})

	t.Run("unknown target model", func(t *testing.T) {
		registry := blog(t)
		require.NoError(t, registry.RegisterRelation("Post", "ghost", schema.BelongsTo("ghost", "Ghost").Fn))

		_, err := newBuilder(registry).Build("Post", DepthPolicy(2))
		require.Error(t, err)
		assert.True(t, IsResolutionError(err))
		assert.Contains(t, err.Error(), "Ghost")
	})
}

func TestBuilder_ExcludesMorphTo(t *testing.T) {
	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(
		schema.NewDefinition("Comment").With(
			schema.MorphTo("commentable"),
			schema.BelongsTo("author", "User"),
		),
		schema.NewDefinition("User"),
	))

	for _, policy := range []Policy{DepthPolicy(3), DuplicatePolicy()} {
		rels, err := newBuilder(registry).Build("Comment", policy)
		require.NoError(t, err)
		assert.Equal(t, []string{"author"}, names(rels), policy.String())
	}
}

func TestBuilder_Duplicates(t *testing.T) {
	t.Run("mutual relations", func(t *testing.T) {
		rels, err := newBuilder(blog(t)).Build("Post", DuplicatePolicy())
		require.NoError(t, err)
		require.Equal(t, []string{"author", "tags"}, names(rels))

		author, tags := rels[0], rels[1]
		require.Equal(t, []string{"posts"}, names(author.Children))

		posts := author.Children[0]
		require.Equal(t, []string{"author", "tags"}, names(posts.Children))
		assert.False(t, posts.Children[0].Expanded(), "author seen before")
		assert.True(t, posts.Children[1].Expanded(), "first tags occurrence")
		assert.False(t, tags.Expanded(), "tags seen under author.posts")
	})

	t.Run("self reference terminates", func(t *testing.T) {
		registry := schema.NewRegistry()
		require.NoError(t, registry.Register(
			schema.NewDefinition("Category").With(
				schema.BelongsTo("parent", "Category"),
				schema.HasMany("children", "Category", schema.ForeignKey("parent_id")),
			),
		))

		rels, err := newBuilder(registry).Build("Category", DuplicatePolicy())
		require.NoError(t, err)
		require.Equal(t, []string{"parent", "children"}, names(rels))
		assert.True(t, rels[0].Expanded())
		assert.False(t, rels[1].Expanded())
	})

	t.Run("each shape expanded once", func(t *testing.T) {
		rels, err := newBuilder(blog(t)).Build("Post", DuplicatePolicy())
		require.NoError(t, err)

		var expanded []*relation.Relation
		relation.Walk(rels, func(r *relation.Relation, _ int) bool {
			if r.Expanded() {
				for _, seen := range expanded {
					assert.False(t, seen.SameShape(r), "%s expanded twice", r.Name)
				}
				expanded = append(expanded, r)
			}
			return true
		})
		assert.Len(t, expanded, 3)
	})
}
