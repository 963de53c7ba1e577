package domain

import (
	"strings"
	"time"
)

// AnonymousName is shown when a profile has neither username nor email.
const AnonymousName = "名無し"

// Identity is the authenticated user as reported by the auth provider,
// together with the tokens of the provider session.
type Identity struct {
	UserID       string    `json:"id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"-"`
}

// Session is what sign-in and sign-up hand back to the client.
type Session struct {
	Identity     Identity  `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Profile is the public per-user record.
type Profile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username"`
}

// DisplayName is the username, else the local part of the email, else AnonymousName.
func (p *Profile) DisplayName() string {
	return displayName(p.Username, p.Email)
}

func displayName(username *string, email string) string {
	if username != nil && strings.TrimSpace(*username) != "" {
		return *username
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" && !strings.Contains(email, "@") {
		return email
	}
	return AnonymousName
}
