package supabase

import (
	"context"
	"time"

	"github.com/supabase-community/gotrue-go/types"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
)

// SignIn exchanges email and password for a provider session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.anon.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, authError(err)
	}
	return toSession(res.Session), nil
}

// SignUp registers an account. With email confirmation enabled the provider
// returns the user without a session and the result carries no tokens.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.anon.Auth.Signup(types.SignupRequest{Email: email, Password: password})
	if err != nil {
		return nil, authError(err)
	}
	if res.Session.AccessToken != "" {
		return toSession(res.Session), nil
	}
	return &domain.Session{Identity: toIdentity(res.User)}, nil
}

// SignOut revokes the refresh tokens of the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return authError(c.anon.Auth.WithToken(accessToken).Logout())
}

// Verify asks the provider who accessToken belongs to.
func (c *Client) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.anon.Auth.WithToken(accessToken).GetUser()
	if err != nil {
		mapped := authError(err)
		if apperr.CodeOf(mapped) == apperr.CodeValidation {
			return nil, apperr.Wrap(err, apperr.CodeTokenExpired, "invalid or expired token")
		}
		return nil, mapped
	}

	identity := toIdentity(res.User)
	identity.AccessToken = accessToken
	return &identity, nil
}

func toIdentity(u types.User) domain.Identity {
	return domain.Identity{
		UserID:    u.ID.String(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func toSession(s types.Session) *domain.Session {
	expires := time.Unix(s.ExpiresAt, 0)
	if s.ExpiresAt == 0 {
		expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}

	identity := toIdentity(s.User)
	identity.AccessToken = s.AccessToken
	identity.RefreshToken = s.RefreshToken
	identity.ExpiresAt = expires

	return &domain.Session{
		Identity:     identity,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    expires,
	}
}
