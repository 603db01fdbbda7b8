// Package storage persists ingested collections and generated artifacts.
//
// Every record is addressed by (Kind, id). The reserved id SharedID holds the
// pre-baked dataset that demo callers fall back to. Reads choose between the
// shared record and the per-id record with a Lookup:
//
//   - PerID reads only the caller's record.
//   - PreferShared returns the shared record when one exists and otherwise the
//     caller's record. Callers that need a personalised result (for example
//     an evaluation against a freshly uploaded history) must pass PerID.
//
// Writes are last-write-wins. There is no versioning or merging.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Kind names one artifact type
type Kind string

const (
	KindBooks           Kind = "books"
	KindProfile         Kind = "reading-dna"
	KindConnections     Kind = "book-connections"
	KindRecommendations Kind = "recommendations"
)

// SharedID is the identifier of the pre-baked dataset
const SharedID = "shared"

// Lookup selects the shared/per-id precedence for a read
type Lookup int

const (
	PerID Lookup = iota
	PreferShared
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid identifier")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is safe to use as a storage key
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// NotFoundError names the absent record. It matches ErrNotFound.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Kind, e.ID, ErrNotFound)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Backend is the medium records are kept in. Read returns ErrNotFound for an
// absent record.
type Backend interface {
	Read(ctx context.Context, kind Kind, id string) ([]byte, error)
	Write(ctx context.Context, kind Kind, id string, data []byte) error
	Close() error
}

type Store struct {
	backend Backend
}

func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Put serializes artifact as JSON and stores it under (kind, id)
func (s *Store) Put(ctx context.Context, kind Kind, id string, artifact any) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if err := s.backend.Write(ctx, kind, id, data); err != nil {
		return fmt.Errorf("failed to write %s for %s: %w", kind, id, err)
	}
	return nil
}

// Get decodes the record selected by lookup into out and returns the id it
// was served from
func (s *Store) Get(ctx context.Context, kind Kind, id string, lookup Lookup, out any) (string, error) {
	if !ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	if lookup == PreferShared && id != SharedID {
		data, err := s.backend.Read(ctx, kind, SharedID)
		switch {
		case err == nil:
			return SharedID, decode(kind, data, out)
		case !errors.Is(err, ErrNotFound):
			return "", fmt.Errorf("failed to read shared %s: %w", kind, err)
		}
	}

	data, err := s.backend.Read(ctx, kind, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", &NotFoundError{Kind: kind, ID: id}
		}
		return "", fmt.Errorf("failed to read %s for %s: %w", kind, id, err)
	}
	return id, decode(kind, data, out)
}

func decode(kind Kind, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode stored %s: %w", kind, err)
	}
	return nil
}
