package schema

import (
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// TableName returns the conventional table for a model: "BlogPost" -> "blog_posts"
func TableName(model string) string {
	return strcase.ToSnake(inflection.Plural(model))
}

// ForeignKeyFor returns the conventional foreign key pointing at model: "User" -> "user_id"
func ForeignKeyFor(model string) string {
	return strcase.ToSnake(model) + "_id"
}

// PivotTableName joins the snake cased singular names of both models in
// alphabetical order: ("Post", "Tag") -> "post_tag"
func PivotTableName(a, b string) string {
	names := []string{strcase.ToSnake(a), strcase.ToSnake(b)}
	sort.Strings(names)
	return strings.Join(names, "_")
}

// MorphNameFor derives the polymorphic name from a relation or model name: "comments" -> "commentable"
func MorphNameFor(name string) string {
	return strcase.ToSnake(inflection.Singular(name)) + "able"
}

// ModelNameFor returns the conventional model name for a table: "blog_posts" -> "BlogPost"
func ModelNameFor(table string) string {
	return strcase.ToCamel(inflection.Singular(table))
}

// RelationNameFor returns the conventional relation name for a column or model name
func RelationNameFor(s string, plural bool) string {
	s = strings.TrimSuffix(strcase.ToSnake(s), "_id")
	if plural {
		s = inflection.Plural(s)
	}
	return strcase.ToLowerCamel(s)
}
