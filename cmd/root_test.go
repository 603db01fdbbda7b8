package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestIngestBooksExport(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("DATA_DIR", "")
	dataDir := t.TempDir()

	csvPath := filepath.Join(t.TempDir(), "export.csv")
	content := "Title,Author,My Rating,Date Read,Exclusive Shelf\n" +
		"Dune,Frank Herbert,5,2023/01/02,read\n" +
		"Emma,Jane Austen,,,to-read\n"
	if err := os.WriteFile(csvPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runRoot(t, "ingest", csvPath, "--id", "cli_books", "--data-dir", dataDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("ingest failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 1 books as cli_books") {
		t.Errorf("Unexpected ingest output: %s", out)
	}

	out, err = runRoot(t, "books", "cli_books", "--data-dir", dataDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("books failed: %v", err)
	}
	if !strings.Contains(out, "Dune") || strings.Contains(out, "Emma") {
		t.Errorf("Unexpected books output: %s", out)
	}

	out, err = runRoot(t, "export", "cli_books", "--data-dir", dataDir, "--log-level", "error")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.HasPrefix(out, "Title,Author,") || !strings.Contains(out, "Dune,Frank Herbert,5") {
		t.Errorf("Unexpected export output: %s", out)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "sqlite")

	if _, err := runRoot(t, "books", "shared", "--data-dir", t.TempDir()); err == nil {
		t.Error("Expected invalid storage backend to be rejected")
	}
}
