package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/graphia/graphia-server/internal/detail"
	"github.com/graphia/graphia-server/internal/domain"
	domainerrors "github.com/graphia/graphia-server/internal/errors"
)

func (s *Server) registerEditRoutes() {
	security := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "beginEdit",
		Method:      http.MethodPost,
		Path:        "/api/v1/artifacts/{id}/edit",
		Summary:     "Begin editing",
		Description: "Starts an edit session seeded from the stored artifact. Resumes the open session if there is one. Owner only.",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleBeginEdit)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEdit",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{id}/edit",
		Summary:     "Get edit session",
		Description: "Returns the open edit session and its draft",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleGetEdit)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateDraft",
		Method:      http.MethodPatch,
		Path:        "/api/v1/artifacts/{id}/edit",
		Summary:     "Update draft",
		Description: "Applies field edits to the draft. Nothing is written to the artifact until save.",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleUpdateDraft)

	huma.Register(s.api, huma.Operation{
		OperationID: "addDraftTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/artifacts/{id}/edit/tags",
		Summary:     "Add draft tag",
		Description: "Adds a tag to the draft. Tags already present are ignored.",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleAddDraftTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeDraftTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/artifacts/{id}/edit/tags/{tag}",
		Summary:     "Remove draft tag",
		Description: "Removes a tag from the draft",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleRemoveDraftTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveEdit",
		Method:      http.MethodPost,
		Path:        "/api/v1/artifacts/{id}/edit/save",
		Summary:     "Save edit",
		Description: "Writes the whole draft to the artifact. On failure the session stays open with the draft intact.",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleSaveEdit)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelEdit",
		Method:      http.MethodDelete,
		Path:        "/api/v1/artifacts/{id}/edit",
		Summary:     "Cancel edit",
		Description: "Discards the draft and closes the edit session",
		Tags:        []string{"Editing"},
		Security:    security,
	}, s.handleCancelEdit)
}

// === DTOs ===

// UpdateDraftRequest is a partial draft edit. Omitted fields are left alone;
// an empty prompt name or reference URL clears it.
type UpdateDraftRequest struct {
	Title        *string  `json:"title,omitempty" validate:"omitempty,max=200" doc:"Title"`
	Description  *string  `json:"description,omitempty" doc:"Description"`
	PromptName   *string  `json:"prompt_name,omitempty" validate:"omitempty,max=100" doc:"Prompt name"`
	ReferenceURL *string  `json:"reference_url,omitempty" validate:"omitempty,max=2048" doc:"Reference URL"`
	Opacity      *float64 `json:"opacity,omitempty" doc:"Overlay opacity; stepped and clamped to 0.1-0.9"`
	AddTags      []string `json:"add_tags,omitempty" validate:"omitempty,dive,max=50" doc:"Tags to add"`
	RemoveTags   []string `json:"remove_tags,omitempty" doc:"Tags to remove"`
}

// UpdateDraftInput wraps the draft edit for Huma.
type UpdateDraftInput struct {
	ID   string `path:"id" doc:"Artifact ID"`
	Body UpdateDraftRequest
}

// AddTagRequest names one tag.
type AddTagRequest struct {
	Tag string `json:"tag" validate:"notblank,max=50" doc:"Tag to add"`
}

// AddTagInput wraps the tag for Huma.
type AddTagInput struct {
	ID   string `path:"id" doc:"Artifact ID"`
	Body AddTagRequest
}

// RemoveTagInput identifies a draft tag.
type RemoveTagInput struct {
	ID  string `path:"id" doc:"Artifact ID"`
	Tag string `path:"tag" doc:"Tag to remove"`
}

// === Handlers ===

func (s *Server) handleBeginEdit(ctx context.Context, input *ArtifactIDInput) (*ArtifactDetailOutput, error) {
	var snap detail.Snapshot
	err := s.withEdit(ctx, input.ID, func(identity *domain.Identity) error {
		m, err := s.restoreEdit(ctx, identity, input.ID)
		if err == nil {
			snap = m.Snapshot()
			return nil
		}
		if !domainerrors.Is(err, domainerrors.ErrNotFound) {
			return err
		}

		// The visit that shows the edit button already counted the view.
		opts := append(s.machineOptions(), detail.WithoutViewCount())
		m = detail.New(s.services.Details, identity, s.logger, opts...)
		if err := m.Open(ctx, input.ID); err != nil {
			return err
		}
		if err := m.BeginEdit(); err != nil {
			return err
		}
		if err := s.persistEdit(ctx, identity, input.ID, m); err != nil {
			return err
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "begin edit", err)
	}
	return &ArtifactDetailOutput{Body: mapSnapshot(ctx, snap)}, nil
}

func (s *Server) handleGetEdit(ctx context.Context, input *ArtifactIDInput) (*ArtifactDetailOutput, error) {
	return s.editStep(ctx, "get edit", input.ID, func(*detail.Machine) error { return nil })
}

func (s *Server) handleUpdateDraft(ctx context.Context, input *UpdateDraftInput) (*ArtifactDetailOutput, error) {
	if err := s.services.Validator.Validate(&input.Body); err != nil {
		return nil, s.fail(ctx, "update draft", err)
	}
	body := input.Body
	return s.editStep(ctx, "update draft", input.ID, func(m *detail.Machine) error {
		return m.Apply(detail.DraftPatch{
			Title:        body.Title,
			Description:  body.Description,
			PromptName:   body.PromptName,
			ReferenceURL: body.ReferenceURL,
			Opacity:      body.Opacity,
			AddTags:      body.AddTags,
			RemoveTags:   body.RemoveTags,
		})
	})
}

func (s *Server) handleAddDraftTag(ctx context.Context, input *AddTagInput) (*ArtifactDetailOutput, error) {
	if err := s.services.Validator.Validate(&input.Body); err != nil {
		return nil, s.fail(ctx, "add draft tag", err)
	}
	return s.editStep(ctx, "add draft tag", input.ID, func(m *detail.Machine) error {
		return m.AddTag(input.Body.Tag)
	})
}

func (s *Server) handleRemoveDraftTag(ctx context.Context, input *RemoveTagInput) (*ArtifactDetailOutput, error) {
	return s.editStep(ctx, "remove draft tag", input.ID, func(m *detail.Machine) error {
		return m.RemoveTag(input.Tag)
	})
}

func (s *Server) handleSaveEdit(ctx context.Context, input *ArtifactIDInput) (*ArtifactDetailOutput, error) {
	var snap detail.Snapshot
	err := s.withEdit(ctx, input.ID, func(identity *domain.Identity) error {
		m, err := s.restoreEdit(ctx, identity, input.ID)
		if err != nil {
			return err
		}

		if saveErr := m.Save(ctx); saveErr != nil {
			// Back in Editing with the draft and the save error; keep both.
			if err := s.persistEdit(ctx, identity, input.ID, m); err != nil {
				s.logger.Error("persist draft after failed save", "artifact_id", input.ID, "error", err)
			}
			return saveErr
		}

		if err := s.services.Drafts.Delete(ctx, identity.UserID, input.ID); err != nil {
			s.logger.Warn("drop saved draft failed", "artifact_id", input.ID, "error", err)
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "save edit", err)
	}
	return &ArtifactDetailOutput{Body: mapSnapshot(ctx, snap)}, nil
}

func (s *Server) handleCancelEdit(ctx context.Context, input *ArtifactIDInput) (*ArtifactDetailOutput, error) {
	var snap detail.Snapshot
	err := s.withEdit(ctx, input.ID, func(identity *domain.Identity) error {
		m, err := s.restoreEdit(ctx, identity, input.ID)
		if err != nil {
			return err
		}
		if err := m.Cancel(); err != nil {
			return err
		}
		if err := s.services.Drafts.Delete(ctx, identity.UserID, input.ID); err != nil {
			return err
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, "cancel edit", err)
	}
	return &ArtifactDetailOutput{Body: mapSnapshot(ctx, snap)}, nil
}

// === Session plumbing ===

// withEdit runs fn for the caller while holding the lock of their session on artifactID.
func (s *Server) withEdit(ctx context.Context, artifactID string, fn func(identity *domain.Identity) error) error {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return err
	}
	unlock := s.edits.Lock(identity.UserID + "/" + artifactID)
	defer unlock()
	return fn(identity)
}

// editStep restores the session, applies step and stores the result.
func (s *Server) editStep(ctx context.Context, op, artifactID string, step func(*detail.Machine) error) (*ArtifactDetailOutput, error) {
	var snap detail.Snapshot
	err := s.withEdit(ctx, artifactID, func(identity *domain.Identity) error {
		m, err := s.restoreEdit(ctx, identity, artifactID)
		if err != nil {
			return err
		}
		if err := step(m); err != nil {
			return err
		}
		if err := s.persistEdit(ctx, identity, artifactID, m); err != nil {
			return err
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return &ArtifactDetailOutput{Body: mapSnapshot(ctx, snap)}, nil
}

func (s *Server) restoreEdit(ctx context.Context, identity *domain.Identity, artifactID string) (*detail.Machine, error) {
	sess, err := s.services.Drafts.Get(ctx, identity.UserID, artifactID)
	if err != nil {
		return nil, err
	}
	return detail.Restore(s.services.Details, identity, s.logger, *sess, s.machineOptions()...)
}

func (s *Server) persistEdit(ctx context.Context, identity *domain.Identity, artifactID string, m *detail.Machine) error {
	sess, ok := m.EditSession()
	if !ok {
		return domainerrors.InvalidTransitionf("not editing artifact %s", artifactID)
	}
	return s.services.Drafts.Put(ctx, identity.UserID, artifactID, sess)
}
