package sqlite

import (
	"context"
	"fmt"

	"github.com/graphia/graphia-server/internal/domain"
)

// RankArtifactsByViews reads the most-viewed ranking view.
func (s *Store) RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, views, email, rank
		FROM ranked_files_by_views
		ORDER BY rank ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("rank artifacts: %w", err)
	}
	defer rows.Close()

	var out []domain.RankedArtifact
	for rows.Next() {
		var r domain.RankedArtifact
		if err := rows.Scan(&r.ID, &r.Title, &r.Views, &r.Email, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan ranked artifact: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RankTags reads the tag usage ranking view.
func (s *Store) RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, usage_count, rank
		FROM tag_rankings
		ORDER BY rank ASC, tag ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("rank tags: %w", err)
	}
	defer rows.Close()

	var out []domain.TagRanking
	for rows.Next() {
		var r domain.TagRanking
		if err := rows.Scan(&r.Tag, &r.UsageCount, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan tag ranking: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RankPrompts reads the prompt usage ranking view.
func (s *Store) RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prompt_name, usage_count, rank
		FROM prompt_rankings
		ORDER BY rank ASC, prompt_name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("rank prompts: %w", err)
	}
	defer rows.Close()

	var out []domain.PromptRanking
	for rows.Next() {
		var r domain.PromptRanking
		if err := rows.Scan(&r.PromptName, &r.UsageCount, &r.Rank); err != nil {
			return nil, fmt.Errorf("scan prompt ranking: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
