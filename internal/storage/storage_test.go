package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/readingdna/readingdna/internal/models"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	fb, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file backend: %v", err)
	}
	bb, err := NewBadgerBackend(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create badger backend: %v", err)
	}
	t.Cleanup(func() { bb.Close() })
	return map[string]Backend{"file": fb, "badger": bb}
}

func TestGetBeforePut(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			var p models.ReadingProfile
			_, err := s.Get(context.Background(), KindProfile, "user_1", PerID, &p)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSharedPrecedence(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(b)
			shared := models.ReadingProfile{CoreIdentity: "shared reader"}
			user := models.ReadingProfile{CoreIdentity: "user1 reader"}
			if err := s.Put(ctx, KindProfile, SharedID, shared); err != nil {
				t.Fatalf("Put shared: %v", err)
			}
			if err := s.Put(ctx, KindProfile, "user1", user); err != nil {
				t.Fatalf("Put user1: %v", err)
			}

			var got models.ReadingProfile
			from, err := s.Get(ctx, KindProfile, "user1", PerID, &got)
			if err != nil {
				t.Fatalf("Get per-id: %v", err)
			}
			if got.CoreIdentity != "user1 reader" || from != "user1" {
				t.Errorf("Expected user1 profile, got %q from %s", got.CoreIdentity, from)
			}

			from, err = s.Get(ctx, KindProfile, "user1", PreferShared, &got)
			if err != nil {
				t.Fatalf("Get prefer shared: %v", err)
			}
			if got.CoreIdentity != "shared reader" || from != SharedID {
				t.Errorf("Expected shared profile, got %q from %s", got.CoreIdentity, from)
			}
		})
	}
}

func TestPreferSharedFallsBackToPerID(t *testing.T) {
	ctx := context.Background()
	s := New(backends(t)["file"])
	if err := s.Put(ctx, KindProfile, "user2", models.ReadingProfile{CoreIdentity: "mine"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var got models.ReadingProfile
	from, err := s.Get(ctx, KindProfile, "user2", PreferShared, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if from != "user2" || got.CoreIdentity != "mine" {
		t.Errorf("Expected fallback to user2, got %q from %s", got.CoreIdentity, from)
	}
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := New(backends(t)["badger"])
	for _, identity := range []string{"first", "second"} {
		if err := s.Put(ctx, KindProfile, "user3", models.ReadingProfile{CoreIdentity: identity}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	var got models.ReadingProfile
	if _, err := s.Get(ctx, KindProfile, "user3", PerID, &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CoreIdentity != "second" {
		t.Errorf("Expected second, got %s", got.CoreIdentity)
	}
}

func TestInvalidID(t *testing.T) {
	s := New(backends(t)["file"])
	for _, id := range []string{"", "../etc/passwd", "user 1", "a/b"} {
		if err := s.Put(context.Background(), KindBooks, id, models.Collection{}); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Put(%q): expected ErrInvalidID, got %v", id, err)
		}
	}
}

func TestFileBackendLayout(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	tests := []struct {
		kind Kind
		id   string
		want string
	}{
		{KindBooks, "user_1", "user_1_books.json"},
		{KindProfile, "user_1", "user_1_dna.json"},
		{KindConnections, "user_1", "user_1_connections.json"},
		{KindRecommendations, "user_1", "user_1_recommendations.json"},
		{KindBooks, SharedID, "preloaded-books.json"},
		{KindProfile, SharedID, "preloaded-reading-dna.json"},
		{KindConnections, SharedID, "preloaded-book-connections.json"},
	}
	for _, tt := range tests {
		if got := fb.Path(tt.kind, tt.id); got != filepath.Join(dir, tt.want) {
			t.Errorf("Path(%s, %s): expected %s, got %s", tt.kind, tt.id, tt.want, got)
		}
	}

	if err := New(fb).Put(context.Background(), KindProfile, "user_1", models.ReadingProfile{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "user_1_dna.json" {
		t.Errorf("Expected only user_1_dna.json after write, got %v", entries)
	}
}

func TestParsePath(t *testing.T) {
	fb := &FileBackend{dir: "/data"}
	for _, kind := range []Kind{KindBooks, KindProfile, KindConnections, KindRecommendations} {
		for _, id := range []string{"user_1700000000000_abc", SharedID} {
			gotKind, gotID, ok := ParsePath(fb.Path(kind, id))
			if !ok || gotKind != kind || gotID != id {
				t.Errorf("ParsePath(Path(%s, %s)) = %s, %s, %v", kind, id, gotKind, gotID, ok)
			}
		}
	}

	for _, name := range []string{".tmp-123.json", "notes.txt", "preloaded-other.json", "user_1_unknown.json", "books.json"} {
		if _, _, ok := ParsePath(name); ok {
			t.Errorf("Expected %s to be rejected", name)
		}
	}
}
