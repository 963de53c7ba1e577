package detail

import (
	"log/slog"

	"github.com/graphia/graphia-server/internal/domain"
	"github.com/graphia/graphia-server/internal/i18n"
)

// EditSession is the persisted form of an Editing machine.
type EditSession struct {
	Artifact  domain.Artifact `json:"artifact"`
	Draft     Draft           `json:"draft"`
	Facets    domain.Facets   `json:"facets"`
	SaveError i18n.Key        `json:"save_error,omitempty"`
}

// EditSession captures the machine for persistence. It returns false unless
// the machine is Editing.
func (m *Machine) EditSession() (EditSession, bool) {
	if m.state != Editing {
		return EditSession{}, false
	}
	a := *m.artifact
	a.Tags = a.Tags.Clone()
	return EditSession{
		Artifact:  a,
		Draft:     m.draft.clone(),
		Facets:    m.facets,
		SaveError: m.saveErr,
	}, true
}

// Restore rebuilds an Editing machine from a persisted session. No view is
// counted. The identity must still own the artifact.
func Restore(store Store, identity *domain.Identity, logger *slog.Logger, sess EditSession, opts ...Option) (*Machine, error) {
	m := New(store, identity, logger, opts...)
	a := sess.Artifact
	a.Tags = a.Tags.Clone()
	m.artifact = &a
	if !m.ownsArtifact() {
		return nil, ErrNotOwner
	}
	m.draft = sess.Draft.clone()
	if sess.Facets.Tags != nil && sess.Facets.Prompts != nil {
		m.facets = sess.Facets
	}
	m.saveErr = sess.SaveError
	m.state = Editing
	return m, nil
}
