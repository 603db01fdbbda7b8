// Package search answers title and author autocomplete queries.
//
// Matching is a case-insensitive substring test done here, whatever the
// source. Queries shorter than MinQueryLength runes return an empty result
// without reaching the source.
package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinQueryLength = 2
	MaxResults     = 10
)

// Field is the book attribute a query is matched against
type Field string

const (
	FieldTitle  Field = "title"
	FieldAuthor Field = "author"
)

// ParseField resolves a query parameter; empty means title
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case "", FieldTitle:
		return FieldTitle, nil
	case FieldAuthor:
		return FieldAuthor, nil
	default:
		return "", fmt.Errorf("unsupported search field: %q (supported: title, author)", s)
	}
}

type Result struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Query is what a Source is asked for. CollectionID scopes local sources;
// remote sources ignore it.
type Query struct {
	Text         string
	Field        Field
	CollectionID string
	Limit        int
}

// Source supplies candidates for a query. Candidates need not match; the
// Index filters them.
type Source interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

type Index struct {
	source Source
}

func NewIndex(source Source) *Index {
	return &Index{source: source}
}

// Search returns at most MaxResults matches in source order
func (i *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if utf8.RuneCountInString(text) < MinQueryLength {
		return []Result{}, nil
	}
	if q.Field == "" {
		q.Field = FieldTitle
	}
	q.Text = text
	q.Limit = MaxResults

	candidates, err := i.source.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(text)
	results := make([]Result, 0, MaxResults)
	for _, c := range candidates {
		if !strings.Contains(strings.ToLower(c.value(q.Field)), needle) {
			continue
		}
		results = append(results, c)
		if len(results) == MaxResults {
			break
		}
	}
	return results, nil
}

func (r Result) value(f Field) string {
	if f == FieldAuthor {
		return r.Author
	}
	return r.Title
}
