package mapper

import (
	"context"

	"github.com/conduit-lang/relmap/internal/relation"
)

// TransformFunc maps a relation visited under prefix to the prefix its
// children are visited with and the keys to emit. Returning false skips the
// relation and its subtree.
type TransformFunc func(prefix string, r *relation.Relation) (next string, keys []string, ok bool)

// ByName emits the dotted relation name path of every relation
func ByName(prefix string, r *relation.Relation) (string, []string, bool) {
	key := r.Name
	if prefix != "" {
		key = prefix + "." + r.Name
	}
	return key, []string{key}, true
}

// MapPaths walks the relation graph of model depth first and collects the
// keys fn emits
func (m *Mapper) MapPaths(ctx context.Context, model string, fn TransformFunc) ([]string, error) {
	rels, err := m.Relations(ctx, model)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0)
	var walk func(prefix string, rels []*relation.Relation)
	walk = func(prefix string, rels []*relation.Relation) {
		for _, r := range rels {
			next, emitted, ok := fn(prefix, r)
			if !ok {
				continue
			}
			keys = append(keys, emitted...)
			walk(next, r.Children)
		}
	}
	walk("", rels)

	return keys, nil
}

// MapKeysByName returns every dotted relation path of the graph of model
func (m *Mapper) MapKeysByName(ctx context.Context, model string) ([]string, error) {
	return m.MapPaths(ctx, model, ByName)
}
