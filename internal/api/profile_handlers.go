package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/graphia/graphia-server/internal/profile"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get profile",
		Description: "Returns the caller's profile and display name",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/profile",
		Summary:     "Update username",
		Description: "Sets the caller's username. A blank username changes nothing.",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProfile)
}

// === DTOs ===

// ProfileResponse is the profile page.
type ProfileResponse struct {
	ID          string  `json:"id" doc:"User ID"`
	Email       string  `json:"email" doc:"Email"`
	Username    *string `json:"username" doc:"Username, if set"`
	DisplayName string  `json:"display_name" doc:"Username, else the email's local part"`
	Message     string  `json:"message,omitempty" doc:"Confirmation after an update"`
}

// ProfileOutput wraps the profile for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// UpdateProfileRequest carries the new username.
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"max=50" doc:"New username"`
}

// UpdateProfileInput wraps the update for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	editor, err := s.loadProfile(ctx)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: s.mapProfile(ctx, editor.View())}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	if err := s.services.Validator.Validate(&input.Body); err != nil {
		return nil, s.fail(ctx, "update profile", err)
	}

	editor, err := s.loadProfile(ctx)
	if err != nil {
		return nil, err
	}
	if err := editor.BeginEdit(); err != nil {
		return nil, s.fail(ctx, "update profile", err)
	}
	editor.SetUsername(input.Body.Username)
	if err := editor.Save(ctx); err != nil {
		return nil, s.fail(ctx, "update profile", err)
	}

	return &ProfileOutput{Body: s.mapProfile(ctx, editor.View())}, nil
}

func (s *Server) loadProfile(ctx context.Context) (*profile.Editor, error) {
	identity, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	editor := profile.NewEditor(s.services.Profiles, identity, s.logger)
	if err := editor.Load(ctx); err != nil {
		return nil, s.fail(ctx, "load profile", err)
	}
	return editor, nil
}

func (s *Server) mapProfile(ctx context.Context, v profile.View) ProfileResponse {
	resp := ProfileResponse{
		DisplayName: v.DisplayName,
		Message:     localize(ctx, v.Success),
	}
	if v.Profile != nil {
		resp.ID = v.Profile.ID
		resp.Email = v.Profile.Email
		resp.Username = v.Profile.Username
	}
	return resp
}
