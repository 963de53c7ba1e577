// Package profile implements the signed-in user's profile page.
package profile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
)

// ErrSignedOut is returned when there is no identity to load a profile for.
var ErrSignedOut = i18n.Wrap(apperr.Unauthorized("sign in to view your profile"), i18n.AuthenticationMissing)

// View is what the page renders.
type View struct {
	Profile     *domain.Profile `json:"profile"`
	DisplayName string          `json:"display_name"`
	Editing     bool            `json:"editing"`
	Input       string          `json:"input,omitempty"`
	Error       i18n.Key        `json:"error,omitempty"`
	Success     i18n.Key        `json:"success,omitempty"`
}

// Editor holds the profile page state for one identity.
type Editor struct {
	store    gateway.ProfileStore
	identity *domain.Identity
	logger   *slog.Logger

	profile *domain.Profile
	editing bool
	input   string
	errKey  i18n.Key
	success i18n.Key
}

// NewEditor creates an editor for identity.
func NewEditor(store gateway.ProfileStore, identity *domain.Identity, logger *slog.Logger) *Editor {
	return &Editor{store: store, identity: identity, logger: logger}
}

// Load fetches the identity's profile.
func (e *Editor) Load(ctx context.Context) error {
	if e.identity == nil {
		return ErrSignedOut
	}
	p, err := e.store.GetProfile(ctx, e.identity.UserID)
	if err != nil {
		e.logger.Error("load profile failed", "user_id", e.identity.UserID, "error", err)
		e.errKey = i18n.ProfileLoadFailed
		return i18n.Wrap(apperr.EnsureCode(err, apperr.CodeLoadFailed, "get profile"), i18n.ProfileLoadFailed)
	}
	e.profile = p
	e.input = p.DisplayName()
	e.errKey = ""
	return nil
}

// BeginEdit opens the username input, prefilled with the display name.
func (e *Editor) BeginEdit() error {
	if e.profile == nil {
		return apperr.InvalidTransitionf("profile is not loaded")
	}
	e.editing = true
	e.input = e.profile.DisplayName()
	e.success = ""
	return nil
}

// SetUsername updates the input.
func (e *Editor) SetUsername(username string) {
	e.input = username
}

// Save writes the trimmed username. A blank input does nothing. On failure
// the input is kept and the editor stays open.
func (e *Editor) Save(ctx context.Context) error {
	if !e.editing {
		return apperr.InvalidTransitionf("not editing the username")
	}
	username := strings.TrimSpace(e.input)
	if username == "" {
		return nil
	}

	if err := e.store.UpdateUsername(ctx, e.identity.UserID, username); err != nil {
		e.logger.Error("update username failed", "user_id", e.identity.UserID, "error", err)
		e.errKey = i18n.UsernameUpdateFailed
		return i18n.Wrap(apperr.EnsureCode(err, apperr.CodeSaveFailed, "update username"), i18n.UsernameUpdateFailed)
	}

	e.profile.Username = &username
	e.input = username
	e.editing = false
	e.errKey = ""
	e.success = i18n.UsernameUpdated
	return nil
}

// Cancel closes the input and restores the displayed name.
func (e *Editor) Cancel() {
	e.editing = false
	if e.profile != nil {
		e.input = e.profile.DisplayName()
	}
}

// View snapshots the page.
func (e *Editor) View() View {
	v := View{Editing: e.editing, Error: e.errKey, Success: e.success}
	if e.profile != nil {
		p := *e.profile
		v.Profile = &p
		v.DisplayName = p.DisplayName()
	}
	if e.editing {
		v.Input = e.input
	}
	return v
}
