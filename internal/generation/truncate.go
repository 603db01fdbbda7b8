package generation

import (
	"sort"

	"github.com/readingdna/readingdna/internal/models"
)

// Per-operation caps on how many books are embedded in a prompt
const (
	ProfileLimit         = 100
	RecommendationsLimit = 30
	EvaluationLimit      = 30
	ConnectionsLimit     = 50
)

// mostRecent returns at most n books ordered by read date, newest first.
// Undated books follow the dated ones in their collection order.
func mostRecent(books []models.BookRecord, n int) []models.BookRecord {
	sorted := make([]models.BookRecord, len(books))
	copy(sorted, books)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].DateRead, sorted[j].DateRead
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(b.Time)
		}
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
