package domain

import (
	"strings"
	"time"
)

// Artifact is one uploaded graphic recording: a self-contained HTML document
// plus the metadata its owner can edit. Views may be bumped by any reader.
type Artifact struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Content      string    `json:"content,omitempty"` // opaque HTML, never parsed for behaviour
	Views        int       `json:"views"`
	Tags         TagSet    `json:"tags"`
	PromptName   *string   `json:"prompt_name"`
	ReferenceURL *string   `json:"reference_url"`
	Opacity      float64   `json:"opacity"`
	CreatedAt    time.Time `json:"created_at"`
	Owner        Owner     `json:"owner"`
}

// Owner is the profile joined onto an artifact for display.
type Owner struct {
	Email    string  `json:"email"`
	Username *string `json:"username"`
}

// DisplayName resolves the owner's name the same way Profile does.
func (o Owner) DisplayName() string {
	return displayName(o.Username, o.Email)
}

// OwnedBy reports whether userID owns the artifact.
func (a *Artifact) OwnedBy(userID string) bool {
	return userID != "" && a.UserID == userID
}

// FacetRow projects the fields facet derivation needs.
func (a *Artifact) FacetRow() FacetRow {
	return FacetRow{Tags: a.Tags, PromptName: a.PromptName}
}

// DisplayOpacity is the overlay opacity to render with; unset falls back to the default.
func (a *Artifact) DisplayOpacity() float64 {
	if a.Opacity == 0 {
		return DefaultOpacity
	}
	return a.Opacity
}

// OptionalString turns blank input into nil. Non-blank values are trimmed.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences p, returning "" for nil.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
