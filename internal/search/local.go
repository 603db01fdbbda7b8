package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/storage"
)

// LocalSource searches a stored collection, the shared one unless the query
// names another. Collections are cached after the first read; Invalidate
// drops a cached entry.
type LocalSource struct {
	store *storage.Store
	cache map[string][]Result
	mu    sync.RWMutex
}

func NewLocalSource(store *storage.Store) *LocalSource {
	return &LocalSource{
		store: store,
		cache: make(map[string][]Result),
	}
}

func (l *LocalSource) Search(ctx context.Context, q Query) ([]Result, error) {
	id := q.CollectionID
	if id == "" {
		id = storage.SharedID
	}

	l.mu.RLock()
	books, ok := l.cache[id]
	l.mu.RUnlock()
	if ok {
		return books, nil
	}

	var c models.Collection
	if _, err := l.store.Get(ctx, storage.KindBooks, id, storage.PerID, &c); err != nil {
		return nil, err
	}

	books = make([]Result, 0, len(c.Books))
	for _, b := range c.Books {
		books = append(books, Result{Title: b.Title, Author: b.Author})
	}

	l.mu.Lock()
	l.cache[id] = books
	l.mu.Unlock()

	slog.Debug("Cached collection for search", "collection_id", id, "books", len(books))
	return books, nil
}

// Invalidate forgets the cached collection of id
func (l *LocalSource) Invalidate(id string) {
	l.mu.Lock()
	delete(l.cache, id)
	l.mu.Unlock()
}
