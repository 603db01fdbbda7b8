package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/readingdna/readingdna/internal/generation"
	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/providers"
	"github.com/readingdna/readingdna/internal/storage"
)

// scriptedProvider answers by operation, recognised from the prompt text
type scriptedProvider struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, cfg providers.Config) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, cfg.Prompt)
	p.mu.Unlock()
	return p.reply(cfg.Prompt)
}

const (
	profileReply = `{"coreIdentity":"c","genreDistribution":[],"pacingPreference":"p","themesAndPatterns":[],"uniqueFingerprint":"u"}`
	recsReply    = `{"recommendations":[{"title":"T","author":"A","genre":"Fantasy","hook":"h","reason":"r"}]}`
	graphReply   = `{"nodes":[{"id":"Dune","author":"Frank Herbert","group":"sf"}],"links":[]}`
)

func newTestService(t *testing.T, reply func(string) (string, error), mode storage.InFlightMode) (*Service, *storage.Store, *scriptedProvider) {
	t.Helper()
	backend, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(backend)
	t.Cleanup(func() { store.Close() })

	p := &scriptedProvider{reply: reply}
	svc := NewService(store, generation.New(p, "test-model"), storage.NewInFlight(mode))
	return svc, store, p
}

func putCollection(t *testing.T, store *storage.Store, id string, titles ...string) {
	t.Helper()
	c := models.Collection{UserID: id, UploadDate: time.Now().UTC()}
	for _, title := range titles {
		c.Books = append(c.Books, models.BookRecord{Title: title, Author: "Someone", ShelfStatus: models.ShelfRead})
	}
	if err := store.Put(context.Background(), storage.KindBooks, id, c); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateProfileParseFailureStoresNothing(t *testing.T) {
	svc, store, _ := newTestService(t, func(string) (string, error) { return "{not json", nil }, storage.InFlightOff)
	putCollection(t, store, "user_1", "Dune")

	_, err := svc.GenerateProfile(context.Background(), "user_1")
	var gerr *generation.Error
	if !errors.As(err, &gerr) || gerr.Stage != generation.StageParse {
		t.Fatalf("Expected parse stage error, got %v", err)
	}

	if _, err := svc.Profile(context.Background(), "user_1", storage.PerID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected no stored profile, got %v", err)
	}
}

func TestGenerateProfileStores(t *testing.T) {
	svc, store, _ := newTestService(t, func(string) (string, error) { return profileReply, nil }, storage.InFlightOff)
	putCollection(t, store, "user_1", "Dune")

	if _, err := svc.GenerateProfile(context.Background(), "user_1"); err != nil {
		t.Fatalf("GenerateProfile failed: %v", err)
	}
	p, err := svc.Profile(context.Background(), "user_1", storage.PerID)
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if p.CoreIdentity != "c" {
		t.Errorf("Expected stored profile, got %+v", p)
	}
}

func TestGenerateWithoutCollection(t *testing.T) {
	svc, _, p := newTestService(t, func(string) (string, error) { return profileReply, nil }, storage.InFlightOff)

	if _, err := svc.GenerateConnections(context.Background(), "user_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if len(p.prompts) != 0 {
		t.Errorf("Expected provider not to be called, got %d calls", len(p.prompts))
	}
}

func TestGenerateRecommendationsPrecedence(t *testing.T) {
	reply := func(prompt string) (string, error) { return recsReply, nil }

	tests := []struct {
		name       string
		lookup     storage.Lookup
		wantPrompt string
	}{
		{"prefer shared", storage.PreferShared, "Shared Book"},
		{"per id", storage.PerID, "Own Book"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, p := newTestService(t, reply, storage.InFlightOff)
			ctx := context.Background()
			putCollection(t, store, storage.SharedID, "Shared Book")
			putCollection(t, store, "user_1", "Own Book")
			store.Put(ctx, storage.KindProfile, storage.SharedID, models.ReadingProfile{CoreIdentity: "shared"})
			store.Put(ctx, storage.KindProfile, "user_1", models.ReadingProfile{CoreIdentity: "own"})

			if _, err := svc.GenerateRecommendations(ctx, "user_1", tt.lookup); err != nil {
				t.Fatalf("GenerateRecommendations failed: %v", err)
			}
			if !strings.Contains(p.prompts[0], tt.wantPrompt) {
				t.Errorf("Expected prompt built from %q", tt.wantPrompt)
			}

			set, err := svc.Recommendations(ctx, "user_1")
			if err != nil || len(set) != 1 {
				t.Errorf("Expected stored per-id recommendations, got %v %v", set, err)
			}
		})
	}
}

func TestEvaluateRequiresProfile(t *testing.T) {
	svc, store, _ := newTestService(t, func(string) (string, error) { return `{"matchScore":5}`, nil }, storage.InFlightOff)
	putCollection(t, store, "user_1", "Dune")

	_, err := svc.Evaluate(context.Background(), "user_1", "Emma", "", storage.PerID)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound without profile, got %v", err)
	}

	store.Put(context.Background(), storage.KindProfile, "user_1", models.ReadingProfile{CoreIdentity: "x"})
	eval, err := svc.Evaluate(context.Background(), "user_1", "Emma", "", storage.PerID)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.BookAuthor != generation.UnknownAuthor {
		t.Errorf("Expected default author, got %s", eval.BookAuthor)
	}
}

func TestGenerateRejectsConcurrentCall(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	reply := func(string) (string, error) {
		once.Do(func() { close(started) })
		<-unblock
		return graphReply, nil
	}

	svc, store, _ := newTestService(t, reply, storage.InFlightReject)
	putCollection(t, store, "user_1", "Dune")

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateConnections(context.Background(), "user_1")
		done <- err
	}()
	<-started

	if _, err := svc.GenerateConnections(context.Background(), "user_1"); !errors.Is(err, storage.ErrInFlight) {
		t.Errorf("Expected ErrInFlight, got %v", err)
	}

	close(unblock)
	if err := <-done; err != nil {
		t.Errorf("First call failed: %v", err)
	}
}
