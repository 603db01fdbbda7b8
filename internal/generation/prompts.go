package generation

import (
	"encoding/json"
	"fmt"

	"github.com/readingdna/readingdna/internal/models"
)

type promptBook struct {
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Rating   float64 `json:"rating,omitempty"`
	DateRead string  `json:"dateRead,omitempty"`
}

func summarize(books []models.BookRecord, detailed bool) string {
	out := make([]promptBook, 0, len(books))
	for _, b := range books {
		pb := promptBook{Title: b.Title, Author: b.Author}
		if detailed {
			pb.Rating = b.UserRating
			if b.DateRead != nil {
				pb.DateRead = b.DateRead.String()
			}
		}
		out = append(out, pb)
	}
	return toJSON(out)
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(data)
}

func buildProfilePrompt(books []models.BookRecord) string {
	return fmt.Sprintf(`Analyze this reader's book history and create a "Reading DNA" profile. The profile should be insightful, personalized, and reveal patterns in their reading preferences.

Books read (up to %d most recent):
%s

Create a Reading DNA profile with these sections:
1. Core Reading Identity (2-3 sentences): What defines this reader?
2. Genre Distribution: Break down their genre preferences with percentages
3. Pacing Preference: Do they prefer slow literary fiction, fast-paced thrillers, or a mix?
4. Themes & Patterns: What recurring themes, character types, or plot elements do they gravitate toward?
5. Reading Evolution: How has their taste changed over time (if the data shows this)?
6. Unique Fingerprint: What makes this reader's taste unique or interesting?

Respond with ONLY a JSON object with this structure:
{
  "coreIdentity": "string",
  "genreDistribution": [{"genre": "string", "percentage": number}],
  "pacingPreference": "string",
  "themesAndPatterns": ["string"],
  "readingEvolution": "string",
  "uniqueFingerprint": "string"
}`, ProfileLimit, summarize(books, true))
}

func buildRecommendationsPrompt(books []models.BookRecord, profile *models.ReadingProfile) string {
	return fmt.Sprintf(`Based on this reader's Reading DNA profile and recent books, recommend 10 books they haven't read yet.

Reading DNA:
%s

Recent books they've read:
%s

Include variety. The 10 recommendations should span different genres to prevent typecasting:
- Include at least 3-4 different genres
- Mix popular and lesser-known titles
- Include different time periods (classic and contemporary)
- Vary the pacing and tone

For each book provide the title and author, why it fits their Reading DNA, the genre it represents and a one sentence hook.

Respond with ONLY a JSON object with this structure:
{
  "recommendations": [{
    "title": "string",
    "author": "string",
    "reason": "string",
    "genre": "string",
    "hook": "string"
  }]
}`, toJSON(profile), summarize(books, false))
}

func buildConnectionsPrompt(books []models.BookRecord) string {
	return fmt.Sprintf(`Analyze these books and identify thematic connections between them. Create a network graph showing how books relate to each other.

Books:
%s

Identify connections based on similar themes, related genres, character archetypes, narrative style, author influences and subject matter.

Create connections between books that share significant commonalities. Each book should connect to 2-5 other books. Every link source and target must be the exact id of a node.

Respond with ONLY a JSON object with this structure:
{
  "nodes": [{"id": "string (book title)", "author": "string", "group": "string (primary theme/genre)"}],
  "links": [{"source": "string (book title)", "target": "string (book title)", "reason": "string (why they connect)"}]
}`, summarize(books, false))
}

func buildEvaluationPrompt(title, author string, profile *models.ReadingProfile, books []models.BookRecord) string {
	return fmt.Sprintf(`A reader is considering reading %q by %s.

Their Reading DNA profile:
%s

Books they have already read recently:
%s

Provide feedback on whether this book would be a good fit for them. Include:
1. Match Score (1-10): How well does this book align with their Reading DNA?
2. Why It Fits: Specific reasons this might appeal to them
3. Potential Concerns: Any aspects that might not align with their preferences
4. Content Warnings: List potential triggers WITHOUT spoilers (violence, sexual content, death, mental health themes, etc.)
5. Similar Books They Might Prefer: 2-3 alternatives they have not read, if this isn't a perfect match

Do not spoil plot points, twists, or endings. Keep all descriptions spoiler-free.

Respond with ONLY a JSON object with this structure:
{
  "matchScore": number,
  "whyItFits": "string",
  "potentialConcerns": "string",
  "contentWarnings": ["string"],
  "alternatives": [{"title": "string", "author": "string", "reason": "string"}]
}`, title, author, toJSON(profile), summarize(books, false))
}
