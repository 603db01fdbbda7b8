// Package ingest turns a reading-history CSV export into a stored Collection.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/normalize"
	"github.com/readingdna/readingdna/internal/storage"
)

// rowBuffer bounds how far the reader may run ahead of normalization
const rowBuffer = 64

// Result summarizes one ingestion
type Result struct {
	UserID    string
	BookCount int
	Skipped   int
}

type Pipeline struct {
	store *storage.Store
	now   func() time.Time
}

func NewPipeline(store *storage.Store) *Pipeline {
	return &Pipeline{store: store, now: time.Now}
}

// Ingest stores the read books of r under a newly generated identifier
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, format models.SourceFormat) (*Result, error) {
	if r == nil {
		return nil, &Error{Reason: ReasonNoFile}
	}
	id, err := NewCollectionID(p.now())
	if err != nil {
		return nil, err
	}
	return p.IngestAs(ctx, r, format, id)
}

// IngestFile ingests the file at path and removes it once the collection was
// stored
func (p *Pipeline) IngestFile(ctx context.Context, path string, format models.SourceFormat) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Reason: ReasonNoFile, Err: err}
		}
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}

	res, err := p.Ingest(ctx, f, format)
	f.Close()
	if err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil {
		slog.Warn("Failed to remove upload after ingestion", "path", path, "err", err)
	}
	return res, nil
}

// IngestAs is Ingest with a caller-chosen identifier. An existing collection
// under id is replaced.
func (p *Pipeline) IngestAs(ctx context.Context, r io.Reader, format models.SourceFormat, id string) (*Result, error) {
	if r == nil {
		return nil, &Error{Reason: ReasonNoFile}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	rows, errc := produceRows(ctx, cr, header)

	collection := models.Collection{
		UserID:     id,
		Books:      []models.BookRecord{},
		Source:     format,
		UploadDate: p.now().UTC(),
	}
	var dataRows, skewed, skipped int
	for row := range rows {
		dataRows++
		if row.skewed {
			skewed++
			skipped++
			slog.Debug("Skipping row with extra columns", "line", row.line)
			continue
		}

		rec := normalize.Normalize(row.values, format)
		if rec.Title == "" && rec.Author == "" {
			skipped++
			slog.Debug("Skipping row without title or author", "line", row.line)
			continue
		}
		if rec.ShelfStatus != models.ShelfRead {
			continue
		}
		collection.Books = append(collection.Books, rec)
	}

	if err := <-errc; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, parseFailure("%w", err)
	}
	if skewed > 0 && skewed*2 > dataRows {
		return nil, parseFailure("%d of %d rows have more columns than the header", skewed, dataRows)
	}

	if err := p.store.Put(ctx, storage.KindBooks, id, collection); err != nil {
		return nil, err
	}

	slog.Info("Collection ingested",
		"user_id", id,
		"format", format,
		"rows", dataRows,
		"books", len(collection.Books),
		"skipped", skipped)

	return &Result{UserID: id, BookCount: len(collection.Books), Skipped: skipped}, nil
}

type rawRow struct {
	line   int
	values normalize.Row
	skewed bool
}

// produceRows reads one record at a time on its own goroutine. errc yields
// exactly one value (nil on clean EOF) after rows is closed.
func produceRows(ctx context.Context, cr *csv.Reader, header []string) (<-chan rawRow, <-chan error) {
	rows := make(chan rawRow, rowBuffer)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(rows)
		for {
			record, err := cr.Read()
			if err == io.EOF {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}

			line, _ := cr.FieldPos(0)
			row := rawRow{line: line}
			if len(record) > len(header) {
				row.skewed = true
			} else {
				// short rows are padded: the missing cells are trailing ones
				row.values = make(normalize.Row, len(header))
				for i, name := range header {
					if i < len(record) {
						row.values[name] = record[i]
					} else {
						row.values[name] = ""
					}
				}
			}

			select {
			case rows <- row:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return rows, errc
}

func readHeader(cr *csv.Reader) ([]string, error) {
	record, err := cr.Read()
	if err == io.EOF {
		return nil, parseFailure("file is empty")
	}
	if err != nil {
		return nil, parseFailure("failed to read header: %w", err)
	}

	header := make([]string, len(record))
	seen := make(map[string]int, len(record))
	for i, name := range record {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		header[i] = name
	}
	return header, nil
}
