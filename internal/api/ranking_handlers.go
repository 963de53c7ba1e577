package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/graphia/graphia-server/internal/ranking"
)

func (s *Server) registerRankingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRankings",
		Method:      http.MethodGet,
		Path:        "/api/v1/rankings",
		Summary:     "Get rankings",
		Description: "Returns the most viewed artifacts, the most used tags and the most used prompts. " +
			"All three load together; if any fails the whole request fails and can be retried.",
		Tags: []string{"Rankings"},
	}, s.handleGetRankings)
}

// === DTOs ===

// RankingsInput holds the optional text filter.
type RankingsInput struct {
	Query string `query:"q" maxLength:"100" doc:"Case-insensitive substring filter"`
}

// RankedArtifactResponse is one row of the views ranking.
type RankedArtifactResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Email string `json:"email"`
	Views int    `json:"views"`
	Rank  int    `json:"rank"`
	Medal string `json:"medal,omitempty" enum:"gold,silver,bronze"`
}

// RankedTagResponse is one row of the tag ranking.
type RankedTagResponse struct {
	Tag        string `json:"tag"`
	UsageCount int    `json:"usage_count"`
	Rank       int    `json:"rank"`
	Medal      string `json:"medal,omitempty" enum:"gold,silver,bronze"`
}

// RankedPromptResponse is one row of the prompt ranking.
type RankedPromptResponse struct {
	PromptName string `json:"prompt_name"`
	UsageCount int    `json:"usage_count"`
	Rank       int    `json:"rank"`
	Medal      string `json:"medal,omitempty" enum:"gold,silver,bronze"`
}

// RankingsResponse holds the three rankings after filtering.
type RankingsResponse struct {
	Artifacts []RankedArtifactResponse `json:"artifacts"`
	Tags      []RankedTagResponse      `json:"tags"`
	Prompts   []RankedPromptResponse   `json:"prompts"`
	// Empty has the message for each ranking with no rows, keyed by category.
	Empty map[string]string `json:"empty,omitempty"`
}

// RankingsOutput wraps the rankings for Huma.
type RankingsOutput struct {
	Body RankingsResponse
}

// RankingsFailure is the error detail naming the failed rankings.
type RankingsFailure struct {
	Failed []string `json:"failed"`
}

// === Handlers ===

func (s *Server) handleGetRankings(ctx context.Context, input *RankingsInput) (*RankingsOutput, error) {
	lists, err := ranking.NewView(s.services.Rankings, s.logger).Load(ctx)
	if err != nil {
		apiErr := s.fail(ctx, "load rankings", err)
		var loadErr *ranking.LoadError
		if errors.As(err, &loadErr) {
			failure := RankingsFailure{Failed: make([]string, len(loadErr.Failed))}
			for i, c := range loadErr.Failed {
				failure.Failed[i] = c.String()
			}
			apiErr.Details = failure
		}
		return nil, apiErr
	}

	return &RankingsOutput{Body: mapRankings(ctx, lists.Filter(input.Query))}, nil
}

func mapRankings(ctx context.Context, lists *ranking.Lists) RankingsResponse {
	resp := RankingsResponse{
		Artifacts: make([]RankedArtifactResponse, len(lists.Artifacts)),
		Tags:      make([]RankedTagResponse, len(lists.Tags)),
		Prompts:   make([]RankedPromptResponse, len(lists.Prompts)),
	}
	for i, r := range lists.Artifacts {
		resp.Artifacts[i] = RankedArtifactResponse{
			ID:    r.ID,
			Title: r.Title,
			Email: r.Email,
			Views: r.Views,
			Rank:  r.Rank,
			Medal: string(ranking.MedalFor(r.Rank)),
		}
	}
	for i, r := range lists.Tags {
		resp.Tags[i] = RankedTagResponse{Tag: r.Tag, UsageCount: r.UsageCount, Rank: r.Rank, Medal: string(ranking.MedalFor(r.Rank))}
	}
	for i, r := range lists.Prompts {
		resp.Prompts[i] = RankedPromptResponse{PromptName: r.PromptName, UsageCount: r.UsageCount, Rank: r.Rank, Medal: string(ranking.MedalFor(r.Rank))}
	}

	sizes := map[ranking.Category]int{
		ranking.Artifacts: len(lists.Artifacts),
		ranking.Tags:      len(lists.Tags),
		ranking.Prompts:   len(lists.Prompts),
	}
	for c, n := range sizes {
		if n > 0 {
			continue
		}
		if resp.Empty == nil {
			resp.Empty = make(map[string]string)
		}
		resp.Empty[c.String()] = localize(ctx, ranking.EmptyKey(c))
	}
	return resp
}
