package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jo-hoe/gophotos/internal/backend/database"
	"github.com/jo-hoe/gophotos/internal/backend/search"
)

type SearchHit struct {
	Image       *database.Image
	MatchReason string
}

type SearchResult struct {
	Message string
	Hits    []SearchHit
	Intent  search.Intent
}

// Search matches the query's keywords against the user's tag names. Without any
// hit the most recent uploads are returned instead.
func (service *CoreService) Search(ctx context.Context, userID int64, query string) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}
	intent := search.ParseIntent(query)

	hits := []SearchHit{}
	seen := map[int64]bool{}
	for _, keyword := range intent.Keywords {
		matches, err := service.databaseService.SearchImagesByTag(ctx, userID, keyword)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
		}
		for _, match := range matches {
			if seen[match.Image.ID] {
				continue
			}
			seen[match.Image.ID] = true
			hits = append(hits, SearchHit{Image: match.Image, MatchReason: search.TagReason(match.MatchedTag)})
		}
	}

	if len(hits) == 0 {
		recent, err := service.databaseService.ListImages(ctx, userID, "", service.config.Search.FallbackLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
		}
		for _, image := range recent {
			hits = append(hits, SearchHit{Image: image, MatchReason: search.RecentReason})
		}
	}

	// the message counts every hit, the response is capped
	message := search.Respond(intent, len(hits))
	if len(hits) > service.config.Search.MaxResults {
		hits = hits[:service.config.Search.MaxResults]
	}

	slog.Debug("Search: query handled", "user_id", userID, "intent", intent.Type, "keywords", intent.Keywords, "hits", len(hits))
	return &SearchResult{Message: message, Hits: hits, Intent: intent}, nil
}

func (service *CoreService) Suggestions(ctx context.Context, userID int64) ([]string, error) {
	names, err := service.databaseService.ListUserTagNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProcessing, err)
	}
	return search.Suggestions(names), nil
}
