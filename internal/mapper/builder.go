package mapper

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/relation"
)

// DefaultDepth is the depth limit used when no policy is configured
const DefaultDepth = 3

// Mode selects how a relation graph is kept finite
type Mode int

const (
	// PruneDepth stops expanding after a fixed number of levels
	PruneDepth Mode = iota
	// PruneDuplicates expands each relation shape once per graph
	PruneDuplicates
)

// Policy is the pruning policy of a graph build
type Policy struct {
	Mode     Mode
	MaxDepth int
}

// DepthPolicy prunes graphs below depth levels
func DepthPolicy(depth int) Policy {
	return Policy{Mode: PruneDepth, MaxDepth: depth}
}

// DuplicatePolicy prunes every relation after its first occurrence
func DuplicatePolicy() Policy {
	return Policy{Mode: PruneDuplicates}
}

// String returns the tag the policy is cached under
func (p Policy) String() string {
	if p.Mode == PruneDuplicates {
		return "dedupe"
	}
	return fmt.Sprintf("depth%d", p.MaxDepth)
}

// ParsePolicy builds a policy from its configuration name
func ParsePolicy(name string, depth int) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "depth":
		if depth < 0 {
			return Policy{}, fmt.Errorf("invalid max depth %d", depth)
		}
		return DepthPolicy(depth), nil
	case "duplicates", "dedupe":
		return DuplicatePolicy(), nil
	default:
		return Policy{}, fmt.Errorf("unknown pruning policy %q", name)
	}
}

// Discoverer lists the direct relations of a model
type Discoverer interface {
	Discover(model string) ([]*relation.Relation, error)
}

// Builder expands direct relations into a finite relation graph
type Builder struct {
	discoverer Discoverer
	logger     *zap.Logger
}

// NewBuilder creates a graph builder on top of a discoverer
func NewBuilder(discoverer Discoverer, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{discoverer: discoverer, logger: logger}
}

// Build returns the relation graph rooted at model. Polymorphic inverse
// relations never enter the graph.
func (b *Builder) Build(model string, policy Policy) ([]*relation.Relation, error) {
	b.logger.Debug("building relation graph",
		zap.String("model", model),
		zap.Stringer("policy", policy))

	if policy.Mode == PruneDuplicates {
		var seen []*relation.Relation
		return b.unique(model, &seen)
	}

	if policy.MaxDepth <= 0 {
		// Still resolve the root so unknown models are reported.
		if _, err := b.direct(model); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return b.depth(model, policy.MaxDepth)
}

func (b *Builder) direct(model string) ([]*relation.Relation, error) {
	rels, err := b.discoverer.Discover(model)
	if err != nil {
		return nil, err
	}
	return lo.Reject(rels, func(r *relation.Relation, _ int) bool {
		return r.Kind == relation.MorphTo
	}), nil
}

func (b *Builder) depth(model string, remaining int) ([]*relation.Relation, error) {
	if remaining <= 0 {
		return nil, nil
	}

	rels, err := b.direct(model)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		children, err := b.depth(r.Model, remaining-1)
		if err != nil {
			return nil, err
		}
		r.Children = children
	}
	return rels, nil
}

// unique expands every relation whose shape was not seen before in the same
// build. Shapes are recorded before descending, so cycles terminate.
func (b *Builder) unique(model string, seen *[]*relation.Relation) ([]*relation.Relation, error) {
	rels, err := b.direct(model)
	if err != nil {
		return nil, err
	}
	for _, r := range rels {
		if lo.ContainsBy(*seen, r.SameShape) {
			continue
		}
		*seen = append(*seen, r)

		children, err := b.unique(r.Model, seen)
		if err != nil {
			return nil, err
		}
		r.Children = children
	}
	return rels, nil
}
