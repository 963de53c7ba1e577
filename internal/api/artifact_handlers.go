package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/detail"
	"github.com/graphia/graphia-server/internal/domain"
	domainerrors "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/http/response"
	"github.com/graphia/graphia-server/internal/upload"
)

// contentSecurityPolicy confines uploaded documents: scripts run, but in an
// opaque origin with no access to the API's cookies or storage.
const contentSecurityPolicy = "sandbox allow-scripts"

// multipartOverhead is allowed on top of the file limit for the other form fields.
const multipartOverhead = 1 << 20

func (s *Server) registerArtifactRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listArtifacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts",
		Summary:     "List artifacts",
		Description: "Lists artifacts newest first, optionally filtered by tag and prompt. Facets are derived from the result.",
		Tags:        []string{"Artifacts"},
	}, s.handleListArtifacts)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUploadChoices",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/facets",
		Summary:     "Get upload choices",
		Description: "Returns every distinct tag and prompt name to choose from on the upload form. " +
			"Tags passed in selected are marked as already chosen. A load failure yields empty lists.",
		Tags:        []string{"Artifacts"},
	}, s.handleGetUploadChoices)

	huma.Register(s.api, huma.Operation{
		OperationID: "getArtifact",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{id}",
		Summary:     "Get artifact",
		Description: "Opens the artifact detail view and counts a view",
		Tags:        []string{"Artifacts"},
	}, s.handleGetArtifact)

	huma.Register(s.api, huma.Operation{
		OperationID: "getArtifactContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{id}/content",
		Summary:     "Get artifact content",
		Description: "Returns the uploaded HTML document under a sandboxing content security policy",
		Tags:        []string{"Artifacts"},
	}, s.handleGetArtifactContent)
}

// === DTOs ===

// OwnerResponse is the profile joined onto an artifact.
type OwnerResponse struct {
	Email       string  `json:"email" doc:"Owner email"`
	Username    *string `json:"username" doc:"Owner username, if set"`
	DisplayName string  `json:"display_name" doc:"Name to show for the owner"`
}

// ArtifactResponse is an artifact without its HTML payload.
type ArtifactResponse struct {
	ID           string        `json:"id" doc:"Artifact ID"`
	UserID       string        `json:"user_id" doc:"Owner user ID"`
	Title        string        `json:"title" doc:"Title"`
	Description  string        `json:"description" doc:"Description"`
	Excerpt      string        `json:"excerpt,omitempty" doc:"Plain-text excerpt of the content (listings only)"`
	Views        int           `json:"views" doc:"View count"`
	Tags         domain.TagSet `json:"tags" doc:"Tags"`
	PromptName   *string       `json:"prompt_name" doc:"Prompt used to generate the recording"`
	ReferenceURL *string       `json:"reference_url" doc:"Link to the source material"`
	Opacity      float64       `json:"opacity" doc:"Overlay opacity, 0.1 to 0.9"`
	CreatedAt    time.Time     `json:"created_at" doc:"Upload timestamp"`
	Owner        OwnerResponse `json:"owner" doc:"Owner profile"`
}

// FacetsResponse lists distinct tags and prompt names.
type FacetsResponse struct {
	Tags    []string `json:"tags" doc:"Distinct tags"`
	Prompts []string `json:"prompts" doc:"Distinct prompt names"`
}

// FilterResponse echoes the applied filter.
type FilterResponse struct {
	Tag    *string `json:"tag" doc:"Tag filter"`
	Prompt *string `json:"prompt" doc:"Prompt filter"`
}

// ListArtifactsInput holds the listing filters.
type ListArtifactsInput struct {
	Tag    string `query:"tag" doc:"Only artifacts with this tag"`
	Prompt string `query:"prompt" doc:"Only artifacts made with this prompt"`
}

// ListArtifactsResponse is one gallery page.
type ListArtifactsResponse struct {
	Artifacts    []ArtifactResponse `json:"artifacts" doc:"Matching artifacts, newest first"`
	Facets       FacetsResponse     `json:"facets" doc:"Tags and prompts of the matching artifacts"`
	Filter       FilterResponse     `json:"filter" doc:"Applied filter"`
	EmptyMessage string             `json:"empty_message,omitempty" doc:"Shown when there are no artifacts"`
}

// ListArtifactsOutput wraps the listing for Huma.
type ListArtifactsOutput struct {
	Body ListArtifactsResponse
}

// UploadChoicesInput names the tags already chosen on the form.
type UploadChoicesInput struct {
	Selected []string `query:"selected" doc:"Tags already on the form, comma separated"`
}

// TagChoiceResponse is one existing tag on the upload form.
type TagChoiceResponse struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected" doc:"Already chosen; the choice is disabled"`
}

// UploadChoicesResponse lists what the upload form can pick from.
type UploadChoicesResponse struct {
	Tags       []string            `json:"tags" doc:"Distinct tags"`
	Prompts    []string            `json:"prompts" doc:"Distinct prompt names"`
	TagChoices []TagChoiceResponse `json:"tag_choices" doc:"Distinct tags with their selection state"`
}

// UploadChoicesOutput wraps the choices for Huma.
type UploadChoicesOutput struct {
	Body UploadChoicesResponse
}

// ArtifactIDInput identifies an artifact in the path.
type ArtifactIDInput struct {
	ID string `path:"id" doc:"Artifact ID"`
}

// DraftResponse is the owner's uncommitted edit.
type DraftResponse struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Tags         domain.TagSet `json:"tags"`
	PromptName   *string       `json:"prompt_name"`
	ReferenceURL *string       `json:"reference_url"`
	Opacity      float64       `json:"opacity"`
}

// ArtifactDetailResponse is the detail view.
type ArtifactDetailResponse struct {
	State     string            `json:"state" doc:"viewing, editing, not_found, ..."`
	Artifact  *ArtifactResponse `json:"artifact,omitempty" doc:"Loaded artifact"`
	Draft     *DraftResponse    `json:"draft,omitempty" doc:"Edit draft, present while editing"`
	Facets    FacetsResponse    `json:"facets" doc:"Every tag and prompt, for edit choices"`
	CanEdit   bool              `json:"can_edit" doc:"Whether the caller may edit"`
	LoadError string            `json:"load_error,omitempty" doc:"Reload failure message"`
	SaveError string            `json:"save_error,omitempty" doc:"Save failure message"`
}

// ArtifactDetailOutput wraps the detail view for Huma.
type ArtifactDetailOutput struct {
	Body ArtifactDetailResponse
}

// ArtifactContentOutput is the raw document.
type ArtifactContentOutput struct {
	ContentType           string `header:"Content-Type"`
	ContentSecurityPolicy string `header:"Content-Security-Policy"`
	ContentTypeOptions    string `header:"X-Content-Type-Options"`
	Body                  []byte
}

// UploadResponse describes a stored upload.
type UploadResponse struct {
	ID   string `json:"id"`
	Next string `json:"next"`
}

// === Handlers ===

func (s *Server) handleListArtifacts(ctx context.Context, input *ListArtifactsInput) (*ListArtifactsOutput, error) {
	page, err := s.services.Catalog.Query(ctx, catalog.NewFilter(input.Tag, input.Prompt))
	if err != nil {
		return nil, s.fail(ctx, "list artifacts", err)
	}

	resp := ListArtifactsResponse{
		Artifacts:    make([]ArtifactResponse, len(page.Entries)),
		Facets:       mapFacets(page.Facets),
		Filter:       FilterResponse{Tag: page.Filter.Tag, Prompt: page.Filter.Prompt},
		EmptyMessage: localize(ctx, page.Empty),
	}
	for i, entry := range page.Entries {
		a := entry.Artifact
		resp.Artifacts[i] = mapArtifact(&a)
		resp.Artifacts[i].Excerpt = entry.Excerpt
	}

	return &ListArtifactsOutput{Body: resp}, nil
}

func (s *Server) handleGetUploadChoices(ctx context.Context, input *UploadChoicesInput) (*UploadChoicesOutput, error) {
	facets := mapFacets(s.services.Uploads.LoadChoices(ctx))

	form := &upload.Form{}
	for _, tag := range input.Selected {
		form.SelectTag(tag)
	}

	resp := UploadChoicesResponse{Tags: facets.Tags, Prompts: facets.Prompts}
	for _, c := range form.TagChoices(facets.Tags) {
		resp.TagChoices = append(resp.TagChoices, TagChoiceResponse{Value: c.Value, Selected: c.Selected})
	}
	if resp.TagChoices == nil {
		resp.TagChoices = []TagChoiceResponse{}
	}
	return &UploadChoicesOutput{Body: resp}, nil
}

func (s *Server) handleGetArtifact(ctx context.Context, input *ArtifactIDInput) (*ArtifactDetailOutput, error) {
	m := detail.New(s.services.Details, gateway.IdentityFrom(ctx), s.logger, s.machineOptions()...)
	if err := m.Open(ctx, input.ID); err != nil {
		return nil, s.fail(ctx, "open artifact", err)
	}
	return &ArtifactDetailOutput{Body: mapSnapshot(ctx, m.Snapshot())}, nil
}

func (s *Server) handleGetArtifactContent(ctx context.Context, input *ArtifactIDInput) (*ArtifactContentOutput, error) {
	content, err := s.services.Catalog.Content(ctx, input.ID)
	if err != nil {
		return nil, s.fail(ctx, "get artifact content", err)
	}
	return &ArtifactContentOutput{
		ContentType:           "text/html; charset=utf-8",
		ContentSecurityPolicy: contentSecurityPolicy,
		ContentTypeOptions:    "nosniff",
		Body:                  []byte(content),
	}, nil
}

// handleUploadArtifact handles multipart artifact uploads.
// This is a chi handler (not Huma) because Huma doesn't easily support multipart forms.
func (s *Server) handleUploadArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := gateway.IdentityFrom(ctx)
	if identity == nil {
		s.writeError(w, r, errAuthRequired)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, upload.ErrFileTooLarge(s.maxUploadBytes))
			return
		}
		s.writeError(w, r, upload.ErrMalformed(err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form := &upload.Form{
		Title:        r.FormValue("title"),
		Description:  r.FormValue("description"),
		ReferenceURL: r.FormValue("reference_url"),
	}
	for _, tag := range r.MultipartForm.Value["tags"] {
		form.AddTag(tag)
	}
	form.SetPrompt(r.FormValue("prompt_name"))

	if file, header, err := r.FormFile("file"); err == nil {
		f, readErr := upload.ReadFile(header.Filename, file, s.maxUploadBytes)
		_ = file.Close()
		if readErr != nil {
			s.writeError(w, r, readErr)
			return
		}
		form.File = f
	}

	result, err := s.services.Uploads.Submit(ctx, identity, form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	response.Created(w, UploadResponse{ID: result.ID, Next: result.Next}, s.logger)
}

// writeError renders err through the same mapping huma handlers use.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(r.Context(), err)
	if apiErr.status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	response.Error(w, apiErr.status, domainerrors.Code(apiErr.Code), apiErr.Message, apiErr.Details, s.logger)
}

func (s *Server) machineOptions() []detail.Option {
	if s.metrics == nil {
		return nil
	}
	return []detail.Option{detail.WithViewFailureCounter(s.metrics.ViewIncrementFailures)}
}

// === Mapping ===

func mapArtifact(a *domain.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		Title:        a.Title,
		Description:  a.Description,
		Views:        a.Views,
		Tags:         a.Tags.Clone(),
		PromptName:   a.PromptName,
		ReferenceURL: a.ReferenceURL,
		Opacity:      a.DisplayOpacity(),
		CreatedAt:    a.CreatedAt,
		Owner: OwnerResponse{
			Email:       a.Owner.Email,
			Username:    a.Owner.Username,
			DisplayName: a.Owner.DisplayName(),
		},
	}
}

func mapFacets(f domain.Facets) FacetsResponse {
	resp := FacetsResponse{Tags: f.Tags, Prompts: f.Prompts}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Prompts == nil {
		resp.Prompts = []string{}
	}
	return resp
}

func mapSnapshot(ctx context.Context, snap detail.Snapshot) ArtifactDetailResponse {
	resp := ArtifactDetailResponse{
		State:     snap.State.String(),
		Facets:    mapFacets(snap.Facets),
		CanEdit:   snap.CanEdit,
		LoadError: localize(ctx, snap.LoadError),
		SaveError: localize(ctx, snap.SaveError),
	}
	if snap.Artifact != nil {
		a := mapArtifact(snap.Artifact)
		resp.Artifact = &a
	}
	if snap.Draft != nil {
		resp.Draft = &DraftResponse{
			Title:        snap.Draft.Title,
			Description:  snap.Draft.Description,
			Tags:         snap.Draft.Tags,
			PromptName:   snap.Draft.PromptName,
			ReferenceURL: snap.Draft.ReferenceURL,
			Opacity:      snap.Draft.Opacity,
		}
	}
	return resp
}
