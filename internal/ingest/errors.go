package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Reason classifies a file-level ingestion failure
type Reason string

const (
	ReasonNoFile          Reason = "no-file"
	ReasonParseFailure    Reason = "parse-failure"
	ReasonUnsupportedFile Reason = "unsupported-file"
)

// Error is returned for failures that abort a whole ingestion. Problems with
// individual rows never surface as an Error; those rows are skipped.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("ingestion failed (%s)", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseFailure(format string, args ...any) *Error {
	return &Error{Reason: ReasonParseFailure, Err: fmt.Errorf(format, args...)}
}

// CheckUpload accepts files named *.csv or sent as text/csv
func CheckUpload(filename, contentType string) error {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(contentType), "text/csv") {
		return nil
	}
	return &Error{Reason: ReasonUnsupportedFile, Err: fmt.Errorf("only CSV files are allowed, got %q", filename)}
}
