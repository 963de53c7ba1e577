package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/graphia/graphia-server/internal/auth"
	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/id"
)

// Provider-style messages. Sign-in and sign-up classification matches on them.
const (
	msgInvalidLogin      = "Invalid login credentials"
	msgAlreadyRegistered = "User already registered"
	msgInvalidEmail      = "Unable to validate email address: invalid format"
)

// SignIn checks the password and opens a session.
func (s *Store) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)

	var (
		userID, hash, createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&userID, &hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.InvalidCredentials(msgInvalidLogin)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.VerifyPassword(hash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, apperr.InvalidCredentials(msgInvalidLogin)
	}

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, domain.Identity{UserID: userID, Email: email, CreatedAt: created})
}

// SignUp registers the account with its profile and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)
	if local, domainPart, ok := strings.Cut(email, "@"); !ok || local == "" || domainPart == "" {
		return nil, apperr.Validation(msgInvalidEmail)
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return nil, apperr.Validation(err.Error())
	}
	if err != nil {
		return nil, err
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, err
	}
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email = ?`, email).Scan(&exists)
	switch {
	case err == nil:
		return nil, apperr.AlreadyExists(msgAlreadyRegistered)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("check email: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		userID, email, hash, formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (id, email) VALUES (?, ?)`, userID, email,
	); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID)

	return s.openSession(ctx, domain.Identity{UserID: userID, Email: email, CreatedAt: now})
}

// SignOut revokes the session behind accessToken. Unknown or expired tokens
// are already signed out.
func (s *Store) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, claims.TokenID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Verify resolves a token to its identity. The session row must still exist.
func (s *Store) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := s.tokens.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeTokenExpired, "invalid or expired token")
	}

	var (
		email, createdAt, expiresAt string
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT u.email, u.created_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.id = ? AND s.user_id = ?`,
		claims.TokenID, claims.UserID,
	).Scan(&email, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.TokenExpired("session has been revoked")
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	expires, err := parseTime(expiresAt)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(expires) {
		return nil, apperr.TokenExpired("session has expired")
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &domain.Identity{
		UserID:      claims.UserID,
		Email:       email,
		CreatedAt:   created,
		AccessToken: accessToken,
		ExpiresAt:   expires,
	}, nil
}

func (s *Store) openSession(ctx context.Context, identity domain.Identity) (*domain.Session, error) {
	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, err
	}

	token, expires, err := s.tokens.GenerateAccessToken(identity.UserID, identity.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, identity.UserID, formatTime(expires), formatTime(s.now()),
	); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	identity.AccessToken = token
	identity.ExpiresAt = expires

	return &domain.Session{
		Identity:    identity,
		AccessToken: token,
		ExpiresAt:   expires,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
