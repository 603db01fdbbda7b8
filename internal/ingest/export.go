package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/storage"
)

// exportHeader uses Goodreads names so an export can be uploaded again
var exportHeader = []string{
	"Title",
	"Author",
	"My Rating",
	"Average Rating",
	"Number of Pages",
	"Original Publication Year",
	"Date Read",
	"Exclusive Shelf",
	"Read Count",
}

const exportDateLayout = "2006/01/02"

// ExportFormat selects the encoding written by Export
type ExportFormat string

const (
	ExportCSV     ExportFormat = "csv"
	ExportParquet ExportFormat = "parquet"
)

// Load returns the collection stored under id
func Load(ctx context.Context, store *storage.Store, id string) (*models.Collection, error) {
	var c models.Collection
	if _, err := store.Get(ctx, storage.KindBooks, id, storage.PerID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Export loads the collection stored under id and writes it to w
func Export(ctx context.Context, store *storage.Store, id string, format ExportFormat, w io.Writer) (int, error) {
	c, err := Load(ctx, store, id)
	if err != nil {
		return 0, err
	}

	switch format {
	case ExportCSV, "":
		return len(c.Books), WriteCSV(w, c)
	case ExportParquet:
		return len(c.Books), WriteParquet(w, c)
	default:
		return 0, fmt.Errorf("unsupported export format: %q (supported: csv, parquet)", format)
	}
}

// WriteCSV writes the collection with the canonical columns first and every
// passthrough column after them in name order
func WriteCSV(w io.Writer, c *models.Collection) error {
	extras := extraColumns(c.Books)

	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, exportHeader...), extras...)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, b := range c.Books {
		record := []string{
			b.Title,
			b.Author,
			formatFloat(b.UserRating),
			formatFloat(b.AverageRating),
			formatInt(b.PageCount),
			formatInt(b.YearPublished),
			"",
			string(b.ShelfStatus),
			formatInt(b.ReadCount),
		}
		if b.DateRead != nil {
			record[6] = b.DateRead.Format(exportDateLayout)
		}
		for _, name := range extras {
			record = append(record, b.Extra[name])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// parquetBook is the flat row written to Parquet. Passthrough columns are
// kept as a JSON object string.
type parquetBook struct {
	Title         string  `parquet:"title"`
	Author        string  `parquet:"author"`
	UserRating    float64 `parquet:"user_rating"`
	DateRead      string  `parquet:"date_read"`
	AverageRating float64 `parquet:"average_rating"`
	PageCount     int64   `parquet:"page_count"`
	YearPublished int64   `parquet:"year_published"`
	ReadCount     int64   `parquet:"read_count"`
	ShelfStatus   string  `parquet:"shelf_status"`
	Extra         string  `parquet:"extra"`
}

func WriteParquet(w io.Writer, c *models.Collection) error {
	rows := make([]parquetBook, 0, len(c.Books))
	for _, b := range c.Books {
		row := parquetBook{
			Title:         b.Title,
			Author:        b.Author,
			UserRating:    b.UserRating,
			AverageRating: b.AverageRating,
			PageCount:     int64(b.PageCount),
			YearPublished: int64(b.YearPublished),
			ReadCount:     int64(b.ReadCount),
			ShelfStatus:   string(b.ShelfStatus),
		}
		if b.DateRead != nil {
			row.DateRead = b.DateRead.String()
		}
		if len(b.Extra) > 0 {
			extra, err := json.Marshal(b.Extra)
			if err != nil {
				return fmt.Errorf("failed to encode extra columns: %w", err)
			}
			row.Extra = string(extra)
		}
		rows = append(rows, row)
	}

	writer := parquet.NewGenericWriter[parquetBook](w)
	if _, err := writer.Write(rows); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func extraColumns(books []models.BookRecord) []string {
	seen := make(map[string]struct{})
	for _, b := range books {
		for name := range b.Extra {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
