// Package detail implements the artifact detail view: loading an artifact,
// counting the view, and the owner's edit/save/cancel cycle.
package detail

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
)

// Store is the part of the gateway the detail view needs.
type Store interface {
	GetArtifact(ctx context.Context, id string) (*domain.Artifact, error)
	ListFacetRows(ctx context.Context) ([]domain.FacetRow, error)
	UpdateArtifact(ctx context.Context, id string, p gateway.ArtifactPatch) error
	SetViews(ctx context.Context, id string, views int) error
}

// Machine is one visit to an artifact's detail view. It is not safe for
// concurrent use.
type Machine struct {
	store    Store
	identity *domain.Identity
	logger   *slog.Logger

	viewFailures prometheus.Counter
	skipViews    bool

	state    State
	artifact *domain.Artifact
	draft    Draft
	facets   domain.Facets

	loadErr i18n.Key
	saveErr i18n.Key
}

// Option configures a Machine.
type Option func(*Machine)

// WithViewFailureCounter counts failed view increments on c.
func WithViewFailureCounter(c prometheus.Counter) Option {
	return func(m *Machine) { m.viewFailures = c }
}

// WithoutViewCount makes Open never count a view. Used when a visit that
// already counted its view is resumed, e.g. to start editing.
func WithoutViewCount() Option {
	return func(m *Machine) { m.skipViews = true }
}

// New creates a machine for identity, which may be nil for anonymous visitors.
func New(store Store, identity *domain.Identity, logger *slog.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:    store,
		identity: identity,
		logger:   logger,
		state:    Loading,
		facets:   emptyFacets(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func emptyFacets() domain.Facets {
	return domain.Facets{Tags: []string{}, Prompts: []string{}}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Open loads the artifact and the global facet lists concurrently. A facet
// failure is logged and leaves the lists empty. Once the artifact is shown
// a view is counted unless the owner was editing.
func (m *Machine) Open(ctx context.Context, id string) error {
	if m.state == Saving {
		return invalidTransition(m.state, "open")
	}
	countView := m.state != Editing && !m.skipViews

	m.state = Loading
	m.loadErr, m.saveErr = "", ""

	var (
		artifact *domain.Artifact
		fetchErr error
		facets   = emptyFacets()
	)

	// Siblings are not canceled on failure; each outcome is observed.
	var g errgroup.Group
	g.Go(func() error {
		artifact, fetchErr = m.store.GetArtifact(ctx, id)
		return nil
	})
	g.Go(func() error {
		rows, err := m.store.ListFacetRows(ctx)
		if err != nil {
			m.logger.Warn("load facets failed", "artifact_id", id, "error", err)
			return nil
		}
		facets = catalog.DeriveFacets(rows)
		return nil
	})
	_ = g.Wait()

	m.facets = facets

	if fetchErr != nil {
		m.artifact = nil
		if apperr.Is(fetchErr, apperr.ErrNotFound) {
			m.state = NotFound
			m.loadErr = i18n.ArtifactNotFound
			return i18n.Wrap(fetchErr, i18n.ArtifactNotFound)
		}
		m.logger.Error("load artifact failed", "artifact_id", id, "error", fetchErr)
		m.state = LoadError
		m.loadErr = i18n.ArtifactLoadFailed
		return i18n.Wrap(apperr.EnsureCode(fetchErr, apperr.CodeLoadFailed, "get artifact"), i18n.ArtifactLoadFailed)
	}

	m.show(artifact)

	if countView {
		m.countView(ctx, artifact)
	}
	return nil
}

// countView writes fetched+1. Concurrent viewers can lose increments; the
// loaded artifact keeps the fetched count.
func (m *Machine) countView(ctx context.Context, a *domain.Artifact) {
	if err := m.store.SetViews(ctx, a.ID, a.Views+1); err != nil {
		m.logger.Warn("view increment failed", "artifact_id", a.ID, "error", err)
		if m.viewFailures != nil {
			m.viewFailures.Inc()
		}
	}
}

func (m *Machine) show(a *domain.Artifact) {
	m.artifact = a
	m.draft = seedDraft(a)
	m.state = Viewing
}

// Artifact returns the loaded artifact, or nil.
func (m *Machine) Artifact() *domain.Artifact { return m.artifact }

// Facets returns the global tag and prompt lists loaded with the artifact.
func (m *Machine) Facets() domain.Facets { return m.facets }

// CanEdit reports whether the edit affordance should be offered.
func (m *Machine) CanEdit() bool {
	return m.state == Viewing && m.ownsArtifact()
}

func (m *Machine) ownsArtifact() bool {
	return m.identity != nil && m.artifact != nil && m.artifact.OwnedBy(m.identity.UserID)
}

// BeginEdit enters Editing with a draft seeded from the loaded artifact.
func (m *Machine) BeginEdit() error {
	if m.state != Viewing {
		return invalidTransition(m.state, "edit")
	}
	if !m.ownsArtifact() {
		return ErrNotOwner
	}
	m.draft = seedDraft(m.artifact)
	m.saveErr = ""
	m.state = Editing
	return nil
}

// Draft returns a copy of the current draft.
func (m *Machine) Draft() Draft { return m.draft.clone() }

func (m *Machine) editing(op string) error {
	if m.state != Editing {
		return invalidTransition(m.state, op)
	}
	return nil
}

// SetTitle replaces the draft title.
func (m *Machine) SetTitle(title string) error {
	if err := m.editing("set title"); err != nil {
		return err
	}
	m.draft.Title = title
	return nil
}

// SetDescription replaces the draft description.
func (m *Machine) SetDescription(description string) error {
	if err := m.editing("set description"); err != nil {
		return err
	}
	m.draft.Description = description
	return nil
}

// AddTag adds a trimmed tag. Empty and duplicate tags are ignored.
func (m *Machine) AddTag(tag string) error {
	if err := m.editing("add tag"); err != nil {
		return err
	}
	m.draft.Tags = m.draft.Tags.Add(normalizeTag(tag))
	return nil
}

// RemoveTag removes tag by exact match.
func (m *Machine) RemoveTag(tag string) error {
	if err := m.editing("remove tag"); err != nil {
		return err
	}
	m.draft.Tags = m.draft.Tags.Remove(tag)
	return nil
}

// SetPromptName sets the prompt; blank clears it.
func (m *Machine) SetPromptName(name string) error {
	if err := m.editing("set prompt"); err != nil {
		return err
	}
	m.draft.PromptName = domain.OptionalString(name)
	return nil
}

// SetReferenceURL sets the reference URL; blank clears it.
func (m *Machine) SetReferenceURL(url string) error {
	if err := m.editing("set reference url"); err != nil {
		return err
	}
	m.draft.ReferenceURL = domain.OptionalString(url)
	return nil
}

// SetOpacity moves the stepped opacity control to the step nearest v.
func (m *Machine) SetOpacity(v float64) error {
	if err := m.editing("set opacity"); err != nil {
		return err
	}
	m.draft.Opacity = domain.StepOpacity(v)
	return nil
}

// Apply runs the mutators named by p, tags last.
func (m *Machine) Apply(p DraftPatch) error {
	if err := m.editing("edit"); err != nil {
		return err
	}
	if p.Title != nil {
		_ = m.SetTitle(*p.Title)
	}
	if p.Description != nil {
		_ = m.SetDescription(*p.Description)
	}
	if p.PromptName != nil {
		_ = m.SetPromptName(*p.PromptName)
	}
	if p.ReferenceURL != nil {
		_ = m.SetReferenceURL(*p.ReferenceURL)
	}
	if p.Opacity != nil {
		_ = m.SetOpacity(*p.Opacity)
	}
	for _, tag := range p.RemoveTags {
		_ = m.RemoveTag(tag)
	}
	for _, tag := range p.AddTags {
		_ = m.AddTag(tag)
	}
	return nil
}

// Save writes the whole draft. On success the stored artifact is re-read and
// the machine returns to Viewing. A failed write returns to Editing with the
// draft intact. A failed re-read still leaves Editing, since the write
// happened, and keeps showing the previous artifact with a load error.
func (m *Machine) Save(ctx context.Context) error {
	if err := m.editing("save"); err != nil {
		return err
	}
	m.state = Saving
	m.saveErr = ""

	id := m.artifact.ID
	if err := m.store.UpdateArtifact(ctx, id, m.draft.patch()); err != nil {
		m.logger.Error("save artifact failed", "artifact_id", id, "error", err)
		m.state = Editing
		m.saveErr = i18n.ArtifactSaveFailed
		return i18n.Wrap(apperr.EnsureCode(err, apperr.CodeSaveFailed, "update artifact"), i18n.ArtifactSaveFailed)
	}

	fresh, err := m.store.GetArtifact(ctx, id)
	if err != nil {
		m.logger.Error("reload after save failed", "artifact_id", id, "error", err)
		m.show(m.artifact)
		m.loadErr = i18n.ArtifactLoadFailed
		return nil
	}

	m.show(fresh)
	m.loadErr = ""
	return nil
}

// Cancel discards the draft and returns to Viewing.
func (m *Machine) Cancel() error {
	if err := m.editing("cancel"); err != nil {
		return err
	}
	m.draft = seedDraft(m.artifact)
	m.saveErr = ""
	m.state = Viewing
	return nil
}

// LoadError is the message for the last failed load, if any.
func (m *Machine) LoadError() i18n.Key { return m.loadErr }

// SaveError is the message for the last failed save, if any.
func (m *Machine) SaveError() i18n.Key { return m.saveErr }

// Snapshot is an immutable picture of the machine for rendering.
type Snapshot struct {
	State     State            `json:"state"`
	Artifact  *domain.Artifact `json:"artifact,omitempty"`
	Draft     *Draft           `json:"draft,omitempty"`
	Facets    domain.Facets    `json:"facets"`
	CanEdit   bool             `json:"can_edit"`
	LoadError i18n.Key         `json:"load_error,omitempty"`
	SaveError i18n.Key         `json:"save_error,omitempty"`
}

// Snapshot copies the current state. The draft is included only while editing.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:     m.state,
		Facets:    domain.Facets{Tags: append([]string{}, m.facets.Tags...), Prompts: append([]string{}, m.facets.Prompts...)},
		CanEdit:   m.CanEdit(),
		LoadError: m.loadErr,
		SaveError: m.saveErr,
	}
	if m.artifact != nil {
		a := *m.artifact
		a.Tags = a.Tags.Clone()
		s.Artifact = &a
	}
	if m.state == Editing || m.state == Saving {
		d := m.draft.clone()
		s.Draft = &d
	}
	return s
}
