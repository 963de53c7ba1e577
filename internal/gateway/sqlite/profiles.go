package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
)

// GetProfile returns the profile for userID.
func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p        domain.Profile
		username sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, username FROM profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Email, &username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Username = stringPtr(username)
	return &p, nil
}

// UpdateUsername sets the username of the caller's own profile.
func (s *Store) UpdateUsername(ctx context.Context, userID, username string) error {
	who, err := caller(ctx)
	if err != nil {
		return err
	}
	if who.UserID != userID {
		return apperr.Forbidden("cannot edit another user's profile")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET username = ? WHERE id = ?`, username, userID)
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("profile not found")
	}
	return nil
}
