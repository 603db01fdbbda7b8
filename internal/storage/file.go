package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var fileSuffix = map[Kind]string{
	KindBooks:           "books",
	KindProfile:         "dna",
	KindConnections:     "connections",
	KindRecommendations: "recommendations",
}

// FileBackend keeps one JSON file per (kind, id) in a flat directory:
// <id>_<suffix>.json per user and preloaded-<kind>.json for the shared dataset.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the data directory
func (f *FileBackend) Dir() string {
	return f.dir
}

// Path returns the file a record lives in
func (f *FileBackend) Path(kind Kind, id string) string {
	if id == SharedID {
		return filepath.Join(f.dir, "preloaded-"+string(kind)+".json")
	}
	suffix, ok := fileSuffix[kind]
	if !ok {
		suffix = string(kind)
	}
	return filepath.Join(f.dir, id+"_"+suffix+".json")
}

// ParsePath is the inverse of Path. It accepts a bare file name or a path
// and reports false for files that are not records.
func ParsePath(name string) (Kind, string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") || strings.HasPrefix(base, ".") {
		return "", "", false
	}
	base = strings.TrimSuffix(base, ".json")

	if kind, ok := strings.CutPrefix(base, "preloaded-"); ok {
		if _, known := fileSuffix[Kind(kind)]; known {
			return Kind(kind), SharedID, true
		}
		return "", "", false
	}

	i := strings.LastIndex(base, "_")
	if i <= 0 {
		return "", "", false
	}
	id, suffix := base[:i], base[i+1:]
	for kind, s := range fileSuffix {
		if s == suffix && ValidID(id) {
			return kind, id, true
		}
	}
	return "", "", false
}

func (f *FileBackend) Read(_ context.Context, kind Kind, id string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(kind, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write replaces the record through a temp file and rename so readers never
// observe a truncated file
func (f *FileBackend) Write(_ context.Context, kind Kind, id string, data []byte) error {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path(kind, id))
}

func (f *FileBackend) Close() error {
	return nil
}
