// Package normalize maps the row shapes of the supported CSV exports onto
// models.BookRecord.
//
// Column resolution is per canonical field: Goodreads column names first, then
// StoryGraph names, then lowercase variants, whatever the source format.
// Blank values count as absent. Columns that were not consumed are kept in
// BookRecord.Extra so a re-export does not lose data.
package normalize

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/readingdna/readingdna/internal/models"
)

// Row is one CSV data row keyed by header name
type Row map[string]string

type column struct {
	goodreads  []string
	storygraph []string
	lowercase  []string
}

var (
	titleColumn = column{
		goodreads:  []string{"Title"},
		storygraph: []string{"title"},
		lowercase:  []string{"title"},
	}
	authorColumn = column{
		goodreads:  []string{"Author"},
		storygraph: []string{"author", "Authors"},
		lowercase:  []string{"author", "authors"},
	}
	ratingColumn = column{
		goodreads:  []string{"My Rating"},
		storygraph: []string{"Star Rating", "rating"},
		lowercase:  []string{"my rating", "my_rating", "star rating"},
	}
	dateReadColumn = column{
		goodreads:  []string{"Date Read"},
		storygraph: []string{"Read Date", "Last Date Read", "date_read"},
		lowercase:  []string{"date read", "read date", "last date read", "dateread"},
	}
	shelfColumn = column{
		goodreads:  []string{"Exclusive Shelf"},
		storygraph: []string{"Read Status", "shelf"},
		lowercase:  []string{"exclusive shelf", "read status", "shelf", "status"},
	}
	averageRatingColumn = column{
		goodreads: []string{"Average Rating"},
		lowercase: []string{"average rating", "average_rating"},
	}
	pagesColumn = column{
		goodreads:  []string{"Number of Pages"},
		storygraph: []string{"Pages"},
		lowercase:  []string{"number of pages", "pages", "page_count"},
	}
	yearColumn = column{
		goodreads: []string{"Original Publication Year", "Year Published"},
		lowercase: []string{"original publication year", "year published", "year_published"},
	}
	readCountColumn = column{
		goodreads:  []string{"Read Count"},
		storygraph: []string{"Read Count"},
		lowercase:  []string{"read count", "read_count"},
	}
)

var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC3339,
}

type resolver struct {
	row      Row
	keys     []string // sorted, so lowercase matching is deterministic
	consumed map[string]struct{}
}

// Normalize converts a raw row into a canonical record. It never fails:
// unresolved strings become "", unresolved numbers 0. Both formats resolve
// along the same chain (Goodreads names, StoryGraph names, lowercase
// variants), so a row means the same thing whichever dialect it is tagged with.
func Normalize(row Row, format models.SourceFormat) models.BookRecord {
	r := &resolver{row: row, consumed: make(map[string]struct{})}
	for k := range row {
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)

	rec := models.BookRecord{
		Title:         r.text(titleColumn),
		Author:        r.text(authorColumn),
		UserRating:    r.float(ratingColumn),
		DateRead:      r.date(dateReadColumn),
		AverageRating: r.float(averageRatingColumn),
		PageCount:     r.int(pagesColumn),
		YearPublished: r.int(yearColumn),
		ReadCount:     r.int(readCountColumn),
		ShelfStatus:   ParseShelf(r.text(shelfColumn)),
	}

	for k, v := range row {
		if _, ok := r.consumed[k]; ok || strings.TrimSpace(v) == "" {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]string)
		}
		rec.Extra[k] = v
	}
	return rec
}

// ParseShelf maps shelf vocabularies of both exports onto ShelfStatus
func ParseShelf(s string) models.ShelfStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "finished":
		return models.ShelfRead
	case "to-read", "to read", "to_read", "want to read", "want-to-read":
		return models.ShelfToRead
	default:
		return models.ShelfOther
	}
}

func (r *resolver) candidates(c column) []string {
	keys := make([]string, 0, len(c.goodreads)+len(c.storygraph))
	keys = append(keys, c.goodreads...)
	return append(keys, c.storygraph...)
}

// lookup returns the first non-blank value along the resolution chain
func (r *resolver) lookup(c column) (string, bool) {
	for _, k := range r.candidates(c) {
		if v, ok := r.row[k]; ok && strings.TrimSpace(v) != "" {
			r.consumed[k] = struct{}{}
			return cleanValue(v), true
		}
	}
	for _, want := range c.lowercase {
		for _, k := range r.keys {
			v := r.row[k]
			if strings.ToLower(strings.TrimSpace(k)) != want || strings.TrimSpace(v) == "" {
				continue
			}
			r.consumed[k] = struct{}{}
			return cleanValue(v), true
		}
	}
	return "", false
}

func (r *resolver) text(c column) string {
	v, _ := r.lookup(c)
	return v
}

func (r *resolver) float(c column) float64 {
	v, ok := r.lookup(c)
	if !ok {
		return 0
	}
	f, ok := parseFinite(v)
	if !ok {
		return 0
	}
	return f
}

func (r *resolver) int(c column) int {
	v, ok := r.lookup(c)
	if !ok {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	// "312.0" and similar spreadsheet artefacts
	if f, ok := parseFinite(v); ok && f >= math.MinInt32 && f <= math.MaxInt32 {
		return int(f)
	}
	return 0
}

// parseFinite rejects the "nan" and "inf" spellings ParseFloat accepts;
// dataframe exports write them for empty cells
func parseFinite(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func (r *resolver) date(c column) *models.Date {
	v, ok := r.lookup(c)
	if !ok {
		return nil
	}
	return ParseDate(v)
}

// ParseDate accepts the date layouts seen in both exports; nil if none match
func ParseDate(s string) *models.Date {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewDate(t)
		}
	}
	return nil
}

// cleanValue trims whitespace and the ="..." wrapper Goodreads uses for
// spreadsheet-safe cells
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, `="`) && strings.HasSuffix(v, `"`) && len(v) >= 3 {
		v = v[2 : len(v)-1]
	}
	return strings.TrimSpace(v)
}
