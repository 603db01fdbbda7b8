// Package analysis runs the generation operations against stored
// collections and persists what they produce.
package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/readingdna/readingdna/internal/generation"
	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/storage"
)

type Service struct {
	store    *storage.Store
	gateway  *generation.Gateway
	inflight *storage.InFlight
}

// NewService wires the store and gateway. inflight may be nil, which is the
// same as mode off.
func NewService(store *storage.Store, gateway *generation.Gateway, inflight *storage.InFlight) *Service {
	return &Service{store: store, gateway: gateway, inflight: inflight}
}

// Books returns the stored collection for id
func (s *Service) Books(ctx context.Context, id string, lookup storage.Lookup) (*models.Collection, error) {
	var c models.Collection
	served, err := s.store.Get(ctx, storage.KindBooks, id, lookup, &c)
	if err != nil {
		return nil, err
	}
	if served != id {
		slog.Debug("Serving shared collection", "requested", id)
	}
	return &c, nil
}

func (s *Service) Profile(ctx context.Context, id string, lookup storage.Lookup) (*models.ReadingProfile, error) {
	var p models.ReadingProfile
	if _, err := s.store.Get(ctx, storage.KindProfile, id, lookup, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Connections(ctx context.Context, id string, lookup storage.Lookup) (*models.ConnectionGraph, error) {
	var g models.ConnectionGraph
	if _, err := s.store.Get(ctx, storage.KindConnections, id, lookup, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Service) Recommendations(ctx context.Context, id string) (models.RecommendationSet, error) {
	var set models.RecommendationSet
	if _, err := s.store.Get(ctx, storage.KindRecommendations, id, storage.PerID, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// GenerateProfile regenerates and stores the profile of id's own collection
func (s *Service) GenerateProfile(ctx context.Context, id string) (*models.ReadingProfile, error) {
	release, err := s.inflight.Acquire(ctx, storage.KindProfile, id)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.Books(ctx, id, storage.PerID)
	if err != nil {
		return nil, err
	}

	profile, err := s.gateway.Profile(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, storage.KindProfile, id, profile); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	slog.Info("Reading profile generated", "user_id", id, "books", len(c.Books))
	return profile, nil
}

// GenerateConnections regenerates and stores the connection graph of id's
// own collection
func (s *Service) GenerateConnections(ctx context.Context, id string) (*models.ConnectionGraph, error) {
	release, err := s.inflight.Acquire(ctx, storage.KindConnections, id)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.Books(ctx, id, storage.PerID)
	if err != nil {
		return nil, err
	}

	graph, err := s.gateway.Connections(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, storage.KindConnections, id, graph); err != nil {
		return nil, fmt.Errorf("failed to store connections: %w", err)
	}

	slog.Info("Book connections generated", "user_id", id, "nodes", len(graph.Nodes), "links", len(graph.Links))
	return graph, nil
}

// GenerateRecommendations reads books and profile with lookup, so with
// PreferShared the shared dataset drives the result. The set is always
// stored under id.
func (s *Service) GenerateRecommendations(ctx context.Context, id string, lookup storage.Lookup) (models.RecommendationSet, error) {
	release, err := s.inflight.Acquire(ctx, storage.KindRecommendations, id)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := s.Books(ctx, id, lookup)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, id, lookup)
	if err != nil {
		return nil, fmt.Errorf("reading DNA must be generated first: %w", err)
	}

	set, err := s.gateway.Recommendations(ctx, c, profile)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, storage.KindRecommendations, id, set); err != nil {
		return nil, fmt.Errorf("failed to store recommendations: %w", err)
	}

	slog.Info("Recommendations generated", "user_id", id, "count", len(set), "genres", set.DistinctGenres())
	return set, nil
}

// Evaluate assesses one book against id's profile. Nothing is stored.
func (s *Service) Evaluate(ctx context.Context, id, title, author string, lookup storage.Lookup) (*models.Evaluation, error) {
	c, err := s.Books(ctx, id, lookup)
	if err != nil {
		return nil, err
	}
	profile, err := s.Profile(ctx, id, lookup)
	if err != nil {
		return nil, fmt.Errorf("reading DNA must be generated first: %w", err)
	}

	return s.gateway.Evaluate(ctx, title, author, profile, c)
}
