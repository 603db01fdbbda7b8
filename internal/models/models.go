package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SourceFormat names the export dialect a CSV file was produced by
type SourceFormat string

const (
	FormatGoodreads  SourceFormat = "goodreads"
	FormatStoryGraph SourceFormat = "storygraph"
)

// ParseSourceFormat resolves a user supplied format name
func ParseSourceFormat(s string) (SourceFormat, error) {
	switch SourceFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatGoodreads:
		return FormatGoodreads, nil
	case FormatStoryGraph:
		return FormatStoryGraph, nil
	default:
		return "", fmt.Errorf("unsupported source format: %q (supported: goodreads, storygraph)", s)
	}
}

// ShelfStatus is the canonical shelf a book sits on
type ShelfStatus string

const (
	ShelfRead   ShelfStatus = "read"
	ShelfToRead ShelfStatus = "to-read"
	ShelfOther  ShelfStatus = "other"
)

// BookRecord is one canonical row of a reading history
type BookRecord struct {
	Title         string            `json:"title"`
	Author        string            `json:"author"`
	UserRating    float64           `json:"userRating"`
	DateRead      *Date             `json:"dateRead,omitempty"`
	AverageRating float64           `json:"averageRating"`
	PageCount     int               `json:"pageCount"`
	YearPublished int               `json:"yearPublished"`
	ReadCount     int               `json:"readCount"`
	ShelfStatus   ShelfStatus       `json:"shelfStatus"`
	Extra         map[string]string `json:"extra,omitempty"` // columns the normalizer did not consume
}

// Collection is the ordered set of read books ingested for one identifier
type Collection struct {
	UserID     string       `json:"userId"`
	Books      []BookRecord `json:"books"`
	Source     SourceFormat `json:"source,omitempty"`
	UploadDate time.Time    `json:"uploadDate"`
}

// GenreShare is one entry of a profile's genre breakdown
type GenreShare struct {
	Genre      string  `json:"genre"`
	Percentage float64 `json:"percentage"`
}

// ReadingProfile is the generated "Reading DNA"
type ReadingProfile struct {
	CoreIdentity      string       `json:"coreIdentity"`
	GenreDistribution []GenreShare `json:"genreDistribution"`
	PacingPreference  string       `json:"pacingPreference"`
	ThemesAndPatterns []string     `json:"themesAndPatterns"`
	ReadingEvolution  string       `json:"readingEvolution,omitempty"`
	UniqueFingerprint string       `json:"uniqueFingerprint"`
}

// GraphNode is a book in the connection graph, keyed by title
type GraphNode struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Group  string `json:"group"`
}

// GraphLink connects two nodes by title
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// ConnectionGraph relates the books of a collection thematically
type ConnectionGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Validate checks that every link endpoint names an existing node
func (g *ConnectionGraph) Validate() error {
	ids := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = struct{}{}
	}
	for i, l := range g.Links {
		if _, ok := ids[l.Source]; !ok {
			return fmt.Errorf("link %d: source %q is not a node", i, l.Source)
		}
		if _, ok := ids[l.Target]; !ok {
			return fmt.Errorf("link %d: target %q is not a node", i, l.Target)
		}
	}
	return nil
}

// Recommendation is a single suggested book
type Recommendation struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
	Hook   string `json:"hook"`
	Reason string `json:"reason"`
}

// RecommendationSet is ordered; the target size is 10
type RecommendationSet []Recommendation

// DistinctGenres counts genres case-insensitively
func (s RecommendationSet) DistinctGenres() int {
	seen := make(map[string]struct{})
	for _, r := range s {
		g := strings.ToLower(strings.TrimSpace(r.Genre))
		if g == "" {
			continue
		}
		seen[g] = struct{}{}
	}
	return len(seen)
}

// Alternative is a book suggested in place of an evaluated one
type Alternative struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Reason string `json:"reason"`
}

// Evaluation is the fit assessment of one candidate book. It is never persisted.
type Evaluation struct {
	BookTitle         string        `json:"bookTitle"`
	BookAuthor        string        `json:"bookAuthor"`
	MatchScore        int           `json:"matchScore"`
	WhyItFits         string        `json:"whyItFits"`
	PotentialConcerns string        `json:"potentialConcerns,omitempty"`
	ContentWarnings   []string      `json:"contentWarnings"`
	Alternatives      []Alternative `json:"alternatives"`
}

// Date is a calendar day serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar day
func NewDate(t time.Time) *Date {
	y, m, d := t.Date()
	return &Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}
