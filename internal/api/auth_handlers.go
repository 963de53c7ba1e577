package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/graphia/graphia-server/internal/domain"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "signUp",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signup",
		Summary:     "Sign up",
		Description: "Registers an account. When the provider requires email confirmation no tokens are returned.",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimitAuth},
	}, s.handleSignUp)

	huma.Register(s.api, huma.Operation{
		OperationID: "signIn",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Authenticates with email and password and returns the provider session",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimitAuth},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "signOut",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Ends the provider session of the bearer token",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSignOut)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the identity the bearer token belongs to",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// CredentialsRequest is the body of sign-in and sign-up. Format checks are
// left to the auth provider so its messages can be classified.
type CredentialsRequest struct {
	Email    string `json:"email" maxLength:"254" doc:"Email address"`
	Password string `json:"password" maxLength:"1024" doc:"Password"`
}

// CredentialsInput wraps the credentials for Huma.
type CredentialsInput struct {
	Body CredentialsRequest
}

// UserResponse contains user information in auth responses.
type UserResponse struct {
	ID        string    `json:"id" doc:"User ID"`
	Email     string    `json:"email" doc:"User email"`
	CreatedAt time.Time `json:"created_at" doc:"Account creation timestamp"`
}

// AuthResponse contains the provider session.
type AuthResponse struct {
	AccessToken  string       `json:"access_token,omitempty" doc:"Bearer access token"`
	RefreshToken string       `json:"refresh_token,omitempty" doc:"Refresh token"`
	TokenType    string       `json:"token_type,omitempty" doc:"Token type (Bearer)"`
	ExpiresAt    *time.Time   `json:"expires_at,omitempty" doc:"Access token expiry"`
	User         UserResponse `json:"user" doc:"Authenticated user"`
	// ConfirmationRequired is set when sign-up succeeded but the account
	// must be confirmed by email before signing in.
	ConfirmationRequired bool `json:"confirmation_required" doc:"Email confirmation pending"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleSignUp(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	sess, err := s.services.Sessions.NewContext(nil).SignUp(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, s.fail(ctx, "sign up", err)
	}
	return &AuthOutput{Body: mapAuthResponse(sess)}, nil
}

func (s *Server) handleSignIn(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	sess, err := s.services.Sessions.NewContext(nil).SignIn(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, s.fail(ctx, "sign in", err)
	}
	return &AuthOutput{Body: mapAuthResponse(sess)}, nil
}

func (s *Server) handleSignOut(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Sessions.NewContext(identity).SignOut(ctx); err != nil {
		return nil, s.fail(ctx, "sign out", err)
	}

	return &MessageOutput{Body: MessageResponse{Message: "Signed out"}}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return &UserOutput{Body: mapUser(identity)}, nil
}

// === Helpers ===

func mapAuthResponse(sess *domain.Session) AuthResponse {
	resp := AuthResponse{User: mapUser(&sess.Identity)}
	if sess.AccessToken == "" {
		resp.ConfirmationRequired = true
		return resp
	}
	expires := sess.ExpiresAt
	resp.AccessToken = sess.AccessToken
	resp.RefreshToken = sess.RefreshToken
	resp.TokenType = "Bearer"
	resp.ExpiresAt = &expires
	return resp
}

func mapUser(identity *domain.Identity) UserResponse {
	return UserResponse{
		ID:        identity.UserID,
		Email:     identity.Email,
		CreatedAt: identity.CreatedAt,
	}
}
