package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/id"
)

// artifactColumns is the ordered list of columns selected in artifact queries.
// Must match the scan order in scanArtifact.
const artifactColumns = `f.id, f.user_id, f.title, f.description, f.content, f.views,
	f.tags, f.prompt_name, f.reference_url, f.opacity, f.created_at,
	COALESCE(p.email, ''), p.username`

const artifactFrom = ` FROM html_files f LEFT JOIN profiles p ON p.id = f.user_id`

func scanArtifact(scanner interface{ Scan(dest ...any) error }) (*domain.Artifact, error) {
	var (
		a            domain.Artifact
		tags         string
		promptName   sql.NullString
		referenceURL sql.NullString
		createdAt    string
		username     sql.NullString
	)

	err := scanner.Scan(
		&a.ID,
		&a.UserID,
		&a.Title,
		&a.Description,
		&a.Content,
		&a.Views,
		&tags,
		&promptName,
		&referenceURL,
		&a.Opacity,
		&createdAt,
		&a.Owner.Email,
		&username,
	)
	if err != nil {
		return nil, err
	}

	a.Tags, err = decodeTags(tags)
	if err != nil {
		return nil, err
	}
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.PromptName = stringPtr(promptName)
	a.ReferenceURL = stringPtr(referenceURL)
	a.Owner.Username = stringPtr(username)

	return &a, nil
}

// ListArtifacts returns artifacts matching q, newest first.
func (s *Store) ListArtifacts(ctx context.Context, q gateway.ListQuery) ([]domain.Artifact, error) {
	var (
		where []string
		args  []any
	)
	if q.Tag != nil {
		where = append(where, `EXISTS (SELECT 1 FROM json_each(f.tags) WHERE json_each.value = ?)`)
		args = append(args, *q.Tag)
	}
	if q.Prompt != nil {
		where = append(where, `f.prompt_name = ?`)
		args = append(args, *q.Prompt)
	}

	query := `SELECT ` + artifactColumns + artifactFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY f.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetArtifact returns one artifact, or errors.ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, artifactID string) (*domain.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+artifactFrom+` WHERE f.id = ?`, artifactID)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("artifact %s not found", artifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return a, nil
}

// ListFacetRows returns tags and prompt of every artifact in upload order.
func (s *Store) ListFacetRows(ctx context.Context) ([]domain.FacetRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags, prompt_name FROM html_files ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list facet rows: %w", err)
	}
	defer rows.Close()

	var out []domain.FacetRow
	for rows.Next() {
		var (
			tags       string
			promptName sql.NullString
		)
		if err := rows.Scan(&tags, &promptName); err != nil {
			return nil, fmt.Errorf("scan facet row: %w", err)
		}
		decoded, err := decodeTags(tags)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.FacetRow{Tags: decoded, PromptName: stringPtr(promptName)})
	}
	return out, rows.Err()
}

// InsertArtifact stores a new artifact owned by the caller.
func (s *Store) InsertArtifact(ctx context.Context, a gateway.NewArtifact) (string, error) {
	who, err := caller(ctx)
	if err != nil {
		return "", err
	}
	if who.UserID != a.UserID {
		return "", apperr.Forbidden("cannot upload on behalf of another user")
	}

	tags, err := encodeTags(a.Tags)
	if err != nil {
		return "", err
	}

	artifactID, err := id.Generate(id.PrefixArtifact)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO html_files (id, user_id, title, description, content, tags, prompt_name, reference_url, opacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		artifactID,
		a.UserID,
		a.Title,
		a.Description,
		a.Content,
		tags,
		nullableString(a.PromptName),
		nullableString(a.ReferenceURL),
		domain.DefaultOpacity,
		formatTime(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert artifact: %w", err)
	}
	return artifactID, nil
}

// UpdateArtifact overwrites the editable fields. Only the owner may do this.
func (s *Store) UpdateArtifact(ctx context.Context, artifactID string, p gateway.ArtifactPatch) error {
	who, err := caller(ctx)
	if err != nil {
		return err
	}

	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE html_files
		SET title = ?, description = ?, tags = ?, prompt_name = ?, reference_url = ?, opacity = ?
		WHERE id = ? AND user_id = ?`,
		p.Title,
		p.Description,
		tags,
		nullableString(p.PromptName),
		nullableString(p.ReferenceURL),
		p.Opacity,
		artifactID,
		who.UserID,
	)
	if err != nil {
		return fmt.Errorf("update artifact: %w", err)
	}
	return s.requireOwnedRow(ctx, res, artifactID)
}

// SetViews overwrites the view counter. Any signed-in user may do this.
func (s *Store) SetViews(ctx context.Context, artifactID string, views int) error {
	if _, err := caller(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `UPDATE html_files SET views = ? WHERE id = ?`, views, artifactID)
	if err != nil {
		return fmt.Errorf("set views: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFoundf("artifact %s not found", artifactID)
	}
	return nil
}

// requireOwnedRow turns "no rows updated" into not found or forbidden.
func (s *Store) requireOwnedRow(ctx context.Context, res sql.Result, artifactID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM html_files WHERE id = ?`, artifactID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("artifact %s not found", artifactID)
	}
	if err != nil {
		return err
	}
	return apperr.Forbidden("only the owner can edit this artifact")
}
