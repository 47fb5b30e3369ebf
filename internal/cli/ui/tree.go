package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/relmap/internal/relation"
)

// Tree renders a relation graph with box drawing guides. Relations whose
// target was not expanded end with an ellipsis.
type Tree struct {
	writer io.Writer
	name   *color.Color
	kind   *color.Color
	muted  *color.Color
}

// NewTree creates a tree renderer
func NewTree(w io.Writer, noColor bool) *Tree {
	t := &Tree{
		writer: w,
		name:   color.New(color.Bold),
		kind:   color.New(color.FgCyan),
		muted:  color.New(color.FgHiBlack),
	}
	if noColor {
		t.name.DisableColor()
		t.kind.DisableColor()
		t.muted.DisableColor()
	}
	return t
}

// Render writes root followed by its relations
func (t *Tree) Render(root string, rels []*relation.Relation) {
	fmt.Fprintln(t.writer, t.name.Sprint(root))
	t.render(rels, "")
}

func (t *Tree) render(rels []*relation.Relation, indent string) {
	for i, r := range rels {
		branch, next := "├── ", "│   "
		if i == len(rels)-1 {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(t.writer, "%s%s%s\n", indent, branch, t.label(r))
		t.render(r.Children, indent+next)
	}
}

func (t *Tree) label(r *relation.Relation) string {
	var b strings.Builder
	b.WriteString(t.name.Sprint(r.Name))
	b.WriteString(" ")
	b.WriteString(t.kind.Sprintf("%s %s", r.Kind, r.Model))

	if keys := Keys(r); keys != "" {
		b.WriteString(" ")
		b.WriteString(t.muted.Sprintf("[%s]", keys))
	}
	if r.Scoped() {
		b.WriteString(" ")
		b.WriteString(t.muted.Sprintf("(%d scope)", len(r.Scope)))
	}
	if !r.Expanded() {
		b.WriteString(" ")
		b.WriteString(t.muted.Sprint("…"))
	}
	return b.String()
}

// Keys summarizes the join keys of a relation
func Keys(r *relation.Relation) string {
	parts := make([]string, 0, 3)
	if r.LocalKey != "" || r.ForeignKey != "" {
		parts = append(parts, r.LocalKey+" → "+r.ForeignKey)
	}
	if r.PivotTable != "" {
		parts = append(parts, "via "+r.PivotTable)
	}
	if r.MorphType != "" {
		parts = append(parts, r.MorphType+"="+r.MorphClass)
	}
	return strings.Join(parts, ", ")
}
