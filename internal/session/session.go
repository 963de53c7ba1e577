// Package session tracks who the current user is and talks to the auth provider.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
)

// Op names the auth operation an error came from.
type Op string

// Auth operations.
const (
	OpSignIn  Op = "sign_in"
	OpSignUp  Op = "sign_up"
	OpSignOut Op = "sign_out"
)

// AuthError is an auth provider failure classified into a user-facing message.
type AuthError struct {
	Op  Op
	Key i18n.Key
	// SuggestSignIn is set when the account already exists and the user
	// should be pointed at the sign-in page instead.
	SuggestSignIn bool
	Err           error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Classify maps a provider error to localized text by the phrases it contains.
// Matching is case-insensitive; the first matching phrase wins.
func Classify(op Op, err error) *AuthError {
	msg := strings.ToLower(err.Error())

	ae := &AuthError{Op: op, Err: err}
	switch {
	case strings.Contains(msg, "already registered"):
		ae.Key = i18n.AuthAlreadyRegistered
		ae.SuggestSignIn = true
	case strings.Contains(msg, "password"):
		ae.Key = i18n.AuthWeakPassword
	case strings.Contains(msg, "email"):
		ae.Key = i18n.AuthInvalidEmail
	case op == OpSignUp:
		ae.Key = i18n.AuthSignUpFailed
	default:
		ae.Key = i18n.AuthSignInFailed
	}
	return ae
}

// Service performs auth operations against the gateway. It holds no per-user state.
type Service struct {
	auth   gateway.Authenticator
	logger *slog.Logger
}

// NewService creates a session service.
func NewService(auth gateway.Authenticator, logger *slog.Logger) *Service {
	return &Service{auth: auth, logger: logger}
}

// Resolve turns a bearer token into the identity it belongs to.
func (s *Service) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Unauthorized("missing access token")
	}
	identity, err := s.auth.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// NewContext starts a session context, signed in as identity when it is non-nil.
func (s *Service) NewContext(identity *domain.Identity) *Context {
	return &Context{svc: s, current: identity}
}

// Context is one client's view of the session: who is signed in right now.
// Safe for concurrent use.
type Context struct {
	svc *Service

	mu      sync.RWMutex
	current *domain.Identity
}

// Current returns the signed-in identity, or nil.
func (c *Context) Current() *domain.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SignedIn reports whether an identity is present.
func (c *Context) SignedIn() bool {
	return c.Current() != nil
}

// SignIn authenticates and makes the result current.
func (c *Context) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := c.svc.auth.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		c.svc.logger.Info("sign in failed", "error", err)
		return nil, c.svc.classify(OpSignIn, err)
	}
	c.set(&session.Identity)
	return session, nil
}

// SignUp registers an account. When the provider signs the user straight in,
// the new identity becomes current.
func (c *Context) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	session, err := c.svc.auth.SignUp(ctx, strings.TrimSpace(email), password)
	if err != nil {
		c.svc.logger.Info("sign up failed", "error", err)
		return nil, c.svc.classify(OpSignUp, err)
	}
	if session.AccessToken != "" {
		c.set(&session.Identity)
	}
	return session, nil
}

// SignOut ends the provider session. The context is cleared even when the
// provider call fails, since the local identity is no longer trusted.
func (c *Context) SignOut(ctx context.Context) error {
	current := c.Current()
	if current == nil {
		return nil
	}
	c.set(nil)

	if err := c.svc.auth.SignOut(ctx, current.AccessToken); err != nil {
		c.svc.logger.Warn("sign out failed", "user_id", current.UserID, "error", err)
		return &AuthError{Op: OpSignOut, Key: i18n.AuthSignInFailed, Err: err}
	}
	return nil
}

func (c *Context) set(identity *domain.Identity) {
	c.mu.Lock()
	c.current = identity
	c.mu.Unlock()
}

// classify keeps infrastructure failures as they are so the HTTP layer can
// report them with the right status; provider answers are classified.
func (s *Service) classify(op Op, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, apperr.ErrGatewayUnavailable) {
		return err
	}
	return Classify(op, err)
}
