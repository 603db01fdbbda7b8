// Package generation turns collections and prior artifacts into prompts for
// a text-generation provider and parses the replies into typed artifacts.
//
// Replies must be JSON. Markdown fences are stripped and a single envelope
// object around the expected payload is unwrapped; anything else that does
// not decode fails with Stage "parse", and payloads that decode but break a
// structural rule fail with Stage "validate". Nothing is retried and nothing
// is stored here.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/readingdna/readingdna/internal/models"
	"github.com/readingdna/readingdna/internal/providers"
	"github.com/readingdna/readingdna/internal/validation"
)

const (
	OpProfile         = "profile"
	OpRecommendations = "recommendations"
	OpConnections     = "connections"
	OpEvaluate        = "evaluate"
)

// Sampling temperatures per operation
const (
	profileTemperature         = 0.7
	recommendationsTemperature = 0.8
	evaluationTemperature      = 0.7
	connectionsTemperature     = 0.6
)

// UnknownAuthor is used when an evaluation request names no author
const UnknownAuthor = "Unknown Author"

// minGenres is the diversity target for a recommendation set
const minGenres = 3

type Gateway struct {
	provider providers.Provider
	model    string
}

func New(provider providers.Provider, model string) *Gateway {
	return &Gateway{provider: provider, model: model}
}

// Profile generates a ReadingProfile from the most recent read books
func (g *Gateway) Profile(ctx context.Context, c *models.Collection) (*models.ReadingProfile, error) {
	prompt := buildProfilePrompt(mostRecent(c.Books, ProfileLimit))

	raw, err := g.call(ctx, OpProfile, profileTemperature, prompt)
	if err != nil {
		return nil, err
	}

	var profile models.ReadingProfile
	if err := decodeObject(raw, "coreIdentity", &profile); err != nil {
		return nil, parseError(OpProfile, raw, err)
	}
	if strings.TrimSpace(profile.CoreIdentity) == "" {
		return nil, validateError(OpProfile, raw, errors.New("profile has no coreIdentity"))
	}
	return &profile, nil
}

// Recommendations generates books the reader has not read, guided by profile
func (g *Gateway) Recommendations(ctx context.Context, c *models.Collection, profile *models.ReadingProfile) (models.RecommendationSet, error) {
	prompt := buildRecommendationsPrompt(mostRecent(c.Books, RecommendationsLimit), profile)

	raw, err := g.call(ctx, OpRecommendations, recommendationsTemperature, prompt)
	if err != nil {
		return nil, err
	}

	payload, err := unwrapArray([]byte(raw), "recommendations")
	if err != nil {
		return nil, parseError(OpRecommendations, raw, err)
	}
	var set models.RecommendationSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return nil, parseError(OpRecommendations, raw, err)
	}
	if len(set) == 0 {
		return nil, validateError(OpRecommendations, raw, errors.New("no recommendations returned"))
	}
	for i, r := range set {
		if strings.TrimSpace(r.Title) == "" {
			return nil, validateError(OpRecommendations, raw, fmt.Errorf("recommendation %d has no title", i))
		}
	}

	if genres := set.DistinctGenres(); genres < minGenres {
		slog.Warn("Recommendation set lacks genre diversity",
			"genres", genres,
			"want", minGenres,
			"count", len(set))
	}
	return set, nil
}

// Connections generates a thematic graph over the most recent read books
func (g *Gateway) Connections(ctx context.Context, c *models.Collection) (*models.ConnectionGraph, error) {
	prompt := buildConnectionsPrompt(mostRecent(c.Books, ConnectionsLimit))

	raw, err := g.call(ctx, OpConnections, connectionsTemperature, prompt)
	if err != nil {
		return nil, err
	}

	var graph models.ConnectionGraph
	if err := decodeObject(raw, "nodes", &graph); err != nil {
		return nil, parseError(OpConnections, raw, err)
	}
	if graph.Links == nil {
		graph.Links = []models.GraphLink{}
	}
	if graph.Nodes == nil {
		graph.Nodes = []models.GraphNode{}
	}
	if err := graph.Validate(); err != nil {
		return nil, validateError(OpConnections, raw, err)
	}
	return &graph, nil
}

// Evaluate assesses how well one book fits the reader. An empty author is
// replaced by UnknownAuthor; the returned Evaluation carries the requested
// title and author whatever the provider echoed.
func (g *Gateway) Evaluate(ctx context.Context, title, author string, profile *models.ReadingProfile, c *models.Collection) (*models.Evaluation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &validation.Error{Fields: map[string]string{"bookTitle": "is required"}}
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = UnknownAuthor
	}

	var books []models.BookRecord
	if c != nil {
		books = mostRecent(c.Books, EvaluationLimit)
	}
	prompt := buildEvaluationPrompt(title, author, profile, books)

	raw, err := g.call(ctx, OpEvaluate, evaluationTemperature, prompt)
	if err != nil {
		return nil, err
	}

	var eval models.Evaluation
	if err := decodeObject(raw, "matchScore", &eval); err != nil {
		return nil, parseError(OpEvaluate, raw, err)
	}
	if eval.MatchScore < 1 || eval.MatchScore > 10 {
		return nil, validateError(OpEvaluate, raw, fmt.Errorf("matchScore %d is outside 1-10", eval.MatchScore))
	}
	if eval.ContentWarnings == nil {
		eval.ContentWarnings = []string{}
	}
	if eval.Alternatives == nil {
		eval.Alternatives = []models.Alternative{}
	}
	eval.BookTitle = title
	eval.BookAuthor = author
	return &eval, nil
}

func (g *Gateway) call(ctx context.Context, op string, temperature float64, prompt string) (string, error) {
	start := time.Now()
	text, err := g.provider.Generate(ctx, providers.Config{
		Model:       g.model,
		Temperature: temperature,
		Prompt:      prompt,
		JSON:        true,
	})
	if err != nil {
		slog.Error("Generation call failed",
			"operation", op,
			"provider", g.provider.Name(),
			"model", g.model,
			"err", err)
		return "", &Error{Op: op, Stage: StageProvider, Err: err}
	}

	slog.Info("Generation call completed",
		"operation", op,
		"provider", g.provider.Name(),
		"model", g.model,
		"prompt_length", len(prompt),
		"response_length", len(text),
		"duration", time.Since(start))

	return stripFences(text), nil
}

func decodeObject(raw, key string, out any) error {
	payload, err := unwrapObject([]byte(raw), key)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, out)
}

func parseError(op, raw string, err error) error {
	slog.Warn("Unparseable generation output", "operation", op, "excerpt", excerpt(raw), "err", err)
	return &Error{Op: op, Stage: StageParse, Cause: excerpt(raw), Err: err}
}

func validateError(op, raw string, err error) error {
	slog.Warn("Generation output failed validation", "operation", op, "err", err)
	return &Error{Op: op, Stage: StageValidate, Cause: excerpt(raw), Err: err}
}
