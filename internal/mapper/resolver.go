package mapper

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/relation"
)

// Step is one resolved segment of a dotted path
type Step struct {
	Path     string             `json:"path"`
	Relation *relation.Relation `json:"relation"`
}

// Resolution maps every prefix of a resolved path to its relation.
// It is empty when the path does not resolve.
type Resolution []Step

// Valid reports whether the path resolved
func (r Resolution) Valid() bool {
	return len(r) > 0
}

// Get returns the relation resolved for a prefix
func (r Resolution) Get(path string) (*relation.Relation, bool) {
	for _, s := range r {
		if s.Path == path {
			return s.Relation, true
		}
	}
	return nil, false
}

// Last returns the relation at the end of the path
func (r Resolution) Last() *relation.Relation {
	if len(r) == 0 {
		return nil
	}
	return r[len(r)-1].Relation
}

// Paths returns the resolved prefixes in order
func (r Resolution) Paths() []string {
	paths := make([]string, len(r))
	for i, s := range r {
		paths[i] = s.Path
	}
	return paths
}

// Resolve walks a dotted relation path from model. Each segment is looked up
// among the top-level relations of the model reached so far. A segment that
// matches nothing yields an empty resolution and no error.
func (m *Mapper) Resolve(ctx context.Context, model, path string) (Resolution, error) {
	var (
		out     Resolution
		prefix  string
		current = model
	)

	for _, segment := range strings.Split(path, ".") {
		rels, err := m.Relations(ctx, current)
		if err != nil {
			return nil, err
		}

		rel, ok := relation.Find(rels, segment)
		if !ok {
			m.logger.Debug("path does not resolve",
				zap.String("model", model),
				zap.String("path", path),
				zap.String("segment", segment))
			return Resolution{}, nil
		}

		if prefix == "" {
			prefix = segment
		} else {
			prefix += "." + segment
		}
		out = append(out, Step{Path: prefix, Relation: rel})
		current = rel.Model
	}

	return out, nil
}

// IsValidPath reports whether path resolves from model
func (m *Mapper) IsValidPath(ctx context.Context, model, path string) (bool, error) {
	res, err := m.Resolve(ctx, model, path)
	if err != nil {
		return false, err
	}
	return res.Valid(), nil
}
