package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"Post", "Pst", 1},
		{"author", "autor", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			result := LevenshteinDistance(tt.s1, tt.s2)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, result, tt.expected)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	models := []string{"Post", "User", "Tag", "Comment", "Category"}

	tests := []struct {
		name       string
		target     string
		candidates []string
		expected   []string
	}{
		{"typo", "Pst", models, []string{"Post", "User", "Tag"}},
		{"case insensitive", "user", models, []string{"User"}},
		{"closest first", "Tag", []string{"Tags2x", "Tag"}, []string{"Tag", "Tags2x"}},
		{"limited", "Post", []string{"Posts", "Pst", "Past", "Poster"}, []string{"Posts", "Pst", "Past"}},
		{"nothing close", "Organization", models, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindSimilar(tt.target, tt.candidates)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("FindSimilar(%q) = %v; want %v", tt.target, result, tt.expected)
			}
		})
	}
}
