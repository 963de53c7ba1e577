package supabase

import (
	"context"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
)

type profileRow struct {
	ID       string  `json:"id,omitempty"`
	Email    string  `json:"email"`
	Username *string `json:"username"`
}

type fileRow struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Title        string      `json:"title"`
	Description  *string     `json:"description"`
	Content      string      `json:"content"`
	Views        *int        `json:"views"`
	Tags         []string    `json:"tags"`
	PromptName   *string     `json:"prompt_name"`
	ReferenceURL *string     `json:"reference_url"`
	Opacity      *float64    `json:"opacity"`
	CreatedAt    time.Time   `json:"created_at"`
	Profiles     *profileRow `json:"profiles"`
}

func (r *fileRow) toDomain() domain.Artifact {
	a := domain.Artifact{
		ID:           r.ID,
		UserID:       r.UserID,
		Title:        r.Title,
		Content:      r.Content,
		Tags:         domain.TagSet(r.Tags),
		PromptName:   r.PromptName,
		ReferenceURL: r.ReferenceURL,
		CreatedAt:    r.CreatedAt,
	}
	if r.Description != nil {
		a.Description = *r.Description
	}
	if r.Views != nil {
		a.Views = *r.Views
	}
	if r.Opacity != nil {
		a.Opacity = *r.Opacity
	}
	if r.Profiles != nil {
		a.Owner = domain.Owner{Email: r.Profiles.Email, Username: r.Profiles.Username}
	}
	return a
}

// insertRow is the upload payload. Views and opacity take column defaults.
type insertRow struct {
	UserID       string   `json:"user_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	PromptName   *string  `json:"prompt_name"`
	ReferenceURL *string  `json:"reference_url"`
}

type patchRow struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	PromptName   *string  `json:"prompt_name"`
	ReferenceURL *string  `json:"reference_url"`
	Opacity      float64  `json:"opacity"`
}

type idRow struct {
	ID string `json:"id"`
}

func nonNilTags(tags domain.TagSet) []string {
	if tags == nil {
		return []string{}
	}
	return []string(tags)
}

// ListArtifacts returns matching artifacts newest first.
func (c *Client) ListArtifacts(ctx context.Context, q gateway.ListQuery) ([]domain.Artifact, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	query := client.From(tableFiles).
		Select(fileColumnsWithOwn, "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if q.Tag != nil {
		query = query.Contains("tags", []string{*q.Tag})
	}
	if q.Prompt != nil {
		query = query.Eq("prompt_name", *q.Prompt)
	}

	var rows []fileRow
	if _, err := query.ExecuteTo(&rows); err != nil {
		return nil, restError(err, "list artifacts")
	}

	out := make([]domain.Artifact, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out, nil
}

// GetArtifact returns one artifact with its owner profile.
func (c *Client) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	var rows []fileRow
	_, err = client.From(tableFiles).
		Select(fileColumnsWithOwn, "", false).
		Eq("id", artifactID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, restError(err, "get artifact")
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundf("artifact %s not found", artifactID)
	}

	a := rows[0].toDomain()
	return &a, nil
}

// ListFacetRows selects only tags and prompt_name.
func (c *Client) ListFacetRows(ctx context.Context) ([]domain.FacetRow, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.FacetRow
	_, err = client.From(tableFiles).
		Select("tags, prompt_name", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, restError(err, "list facet rows")
	}
	return rows, nil
}

// InsertArtifact uploads one artifact as the caller.
func (c *Client) InsertArtifact(ctx context.Context, a gateway.NewArtifact) (string, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return "", err
	}

	row := insertRow{
		UserID:       a.UserID,
		Title:        a.Title,
		Description:  a.Description,
		Content:      a.Content,
		Tags:         nonNilTags(a.Tags),
		PromptName:   a.PromptName,
		ReferenceURL: a.ReferenceURL,
	}

	var created []idRow
	_, err = client.From(tableFiles).
		Insert([]insertRow{row}, false, "", "representation", "").
		ExecuteTo(&created)
	if err != nil {
		return "", restError(err, "insert artifact")
	}
	if len(created) == 0 {
		return "", apperr.Forbidden("upload was rejected")
	}
	return created[0].ID, nil
}

// UpdateArtifact writes the owner-editable fields.
func (c *Client) UpdateArtifact(ctx context.Context, artifactID string, p gateway.ArtifactPatch) error {
	client, err := c.clientFor(ctx)
	if err != nil {
		return err
	}

	row := patchRow{
		Title:        p.Title,
		Description:  p.Description,
		Tags:         nonNilTags(p.Tags),
		PromptName:   p.PromptName,
		ReferenceURL: p.ReferenceURL,
		Opacity:      p.Opacity,
	}

	var updated []idRow
	_, err = client.From(tableFiles).
		Update(row, "representation", "").
		Eq("id", artifactID).
		ExecuteTo(&updated)
	if err != nil {
		return restError(err, "update artifact")
	}
	if len(updated) > 0 {
		return nil
	}

	// Row-level security hides rows the caller may not update.
	if _, err := c.GetArtifact(ctx, artifactID); err != nil {
		return err
	}
	return apperr.Forbidden("only the owner can edit this artifact")
}

// SetViews overwrites the view counter.
func (c *Client) SetViews(ctx context.Context, artifactID string, views int) error {
	client, err := c.clientFor(ctx)
	if err != nil {
		return err
	}

	var updated []idRow
	_, err = client.From(tableFiles).
		Update(map[string]int{"views": views}, "representation", "").
		Eq("id", artifactID).
		ExecuteTo(&updated)
	if err != nil {
		return restError(err, "set views")
	}
	if len(updated) == 0 {
		return apperr.NotFoundf("artifact %s not found", artifactID)
	}
	return nil
}

// GetProfile reads one profile row.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	var rows []profileRow
	_, err = client.From(tableProfiles).
		Select("id, email, username", "", false).
		Eq("id", userID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, restError(err, "get profile")
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("profile not found")
	}
	return &domain.Profile{ID: rows[0].ID, Email: rows[0].Email, Username: rows[0].Username}, nil
}

// UpdateUsername sets the caller's username.
func (c *Client) UpdateUsername(ctx context.Context, userID, username string) error {
	client, err := c.clientFor(ctx)
	if err != nil {
		return err
	}

	var updated []idRow
	_, err = client.From(tableProfiles).
		Update(map[string]string{"username": username}, "representation", "").
		Eq("id", userID).
		ExecuteTo(&updated)
	if err != nil {
		return restError(err, "update username")
	}
	if len(updated) == 0 {
		return apperr.Forbidden("cannot edit this profile")
	}
	return nil
}

// RankArtifactsByViews reads the ranked_files_by_views view.
func (c *Client) RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error) {
	client, err := c.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.RankedArtifact
	_, err = client.From(viewRankedByViews).
		Select("id, title, views, email, rank", "", false).
		Order("rank", &postgrest.OrderOpts{Ascending: true}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, restError(err, "rank artifacts")
	}
	return rows, nil
}

// RankTags calls get_tag_rankings.
func (c *Client) RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error) {
	var rows []domain.TagRanking
	if err := c.callRanking(ctx, rpcTagRankings, limit, &rows); err != nil {
		return nil, restError(err, "rank tags")
	}
	return rows, nil
}

// RankPrompts calls get_prompt_rankings.
func (c *Client) RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error) {
	var rows []domain.PromptRanking
	if err := c.callRanking(ctx, rpcPromptRankings, limit, &rows); err != nil {
		return nil, restError(err, "rank prompts")
	}
	return rows, nil
}

// callRanking reads a set-returning function through GET /rpc/<name>, which
// reports errors where the SDK's Rpc helper would swallow them.
func (c *Client) callRanking(ctx context.Context, fn string, limit int, to any) error {
	client, err := c.clientFor(ctx)
	if err != nil {
		return err
	}
	_, err = client.From(fn).
		Select("*", "", false).
		Limit(limit, "").
		ExecuteTo(to)
	return err
}

