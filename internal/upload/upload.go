// Package upload implements the artifact upload form.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
	"github.com/graphia/graphia-server/internal/validation"
)

// NextLocation is where the client goes after a successful upload.
const NextLocation = "/gallery"

// Rejections that happen before any gateway call.
var (
	ErrNoIdentity = i18n.Wrap(apperr.Unauthorized("sign in to upload"), i18n.AuthenticationMissing)
	ErrNoFile     = apperr.ValidationWithDetails("validation failed", map[string]string{"file": "is required"})
)

// ErrFileTooLarge rejects a file over limit bytes.
func ErrFileTooLarge(limit int64) error {
	return apperr.ValidationWithDetails("validation failed", map[string]string{
		"file": fmt.Sprintf("must not exceed %d bytes", limit),
	})
}

// ErrMalformed rejects a request body that is not a readable multipart form.
func ErrMalformed(err error) error {
	return apperr.Wrap(err, apperr.CodeValidation, "malformed upload form")
}

// File is the uploaded document. Its text is stored verbatim.
type File struct {
	Name    string
	Content string
}

// ReadFile reads at most limit bytes from r. Larger files are rejected.
func ReadFile(name string, r io.Reader, limit int64) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge(limit)
	}
	return &File{Name: name, Content: string(data)}, nil
}

// Form is the upload form state. It survives a failed submit unchanged.
type Form struct {
	Title        string        `json:"title" validate:"notblank,max=200"`
	Description  string        `json:"description" validate:"notblank"`
	Tags         domain.TagSet `json:"tags"`
	PromptName   string        `json:"prompt_name" validate:"max=100"`
	ReferenceURL string        `json:"reference_url" validate:"omitempty,url"`
	File         *File         `json:"-"`
}

// SelectTag adds an existing tag. Chosen tags are not added twice.
func (f *Form) SelectTag(tag string) {
	f.Tags = f.Tags.Add(tag)
}

// AddTag adds a typed tag after trimming; blank input is ignored.
func (f *Form) AddTag(raw string) {
	f.Tags = f.Tags.Add(strings.TrimSpace(raw))
}

// RemoveTag drops a chosen tag.
func (f *Form) RemoveTag(tag string) {
	f.Tags = f.Tags.Remove(tag)
}

// SetPrompt selects or types the prompt name.
func (f *Form) SetPrompt(raw string) {
	f.PromptName = strings.TrimSpace(raw)
}

// Choice is one selectable facet value.
type Choice struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// TagChoices marks which existing tags are already on the form.
func (f *Form) TagChoices(existing []string) []Choice {
	out := make([]Choice, len(existing))
	for i, tag := range existing {
		out[i] = Choice{Value: tag, Selected: f.Tags.Contains(tag)}
	}
	return out
}

func (f *Form) artifact(owner string) gateway.NewArtifact {
	return gateway.NewArtifact{
		UserID:       owner,
		Title:        strings.TrimSpace(f.Title),
		Description:  strings.TrimSpace(f.Description),
		Content:      f.File.Content,
		Tags:         f.Tags.Clone(),
		PromptName:   domain.OptionalString(f.PromptName),
		ReferenceURL: domain.OptionalString(f.ReferenceURL),
	}
}

// Store is the part of the gateway uploads need.
type Store interface {
	ListFacetRows(ctx context.Context) ([]domain.FacetRow, error)
	InsertArtifact(ctx context.Context, a gateway.NewArtifact) (string, error)
}

// Result describes a stored upload.
type Result struct {
	ID   string `json:"id"`
	Next string `json:"next"`
}

// Service submits upload forms.
type Service struct {
	store     Store
	validator *validation.Validator
	logger    *slog.Logger
	uploads   prometheus.Counter
}

// NewService creates an upload service. uploads may be nil.
func NewService(store Store, v *validation.Validator, logger *slog.Logger, uploads prometheus.Counter) *Service {
	return &Service{store: store, validator: v, logger: logger, uploads: uploads}
}

// LoadChoices returns the existing tags and prompt names to choose from.
// A failure is logged and yields empty lists.
func (s *Service) LoadChoices(ctx context.Context) domain.Facets {
	rows, err := s.store.ListFacetRows(ctx)
	if err != nil {
		s.logger.Warn("load upload choices failed", "error", err)
		return domain.Facets{Tags: []string{}, Prompts: []string{}}
	}
	return catalog.DeriveFacets(rows)
}

// Submit validates the form and performs exactly one insert on behalf of identity.
func (s *Service) Submit(ctx context.Context, identity *domain.Identity, f *Form) (*Result, error) {
	if identity == nil {
		return nil, ErrNoIdentity
	}
	if f.File == nil {
		return nil, ErrNoFile
	}
	if err := s.validator.Validate(f); err != nil {
		return nil, err
	}

	id, err := s.store.InsertArtifact(ctx, f.artifact(identity.UserID))
	if err != nil {
		s.logger.Error("upload failed", "user_id", identity.UserID, "title", f.Title, "error", err)
		return nil, i18n.Wrap(apperr.EnsureCode(err, apperr.CodeUploadFailed, "insert artifact"), i18n.UploadFailed)
	}

	if s.uploads != nil {
		s.uploads.Inc()
	}
	s.logger.Info("artifact uploaded", "artifact_id", id, "user_id", identity.UserID, "bytes", len(f.File.Content))
	return &Result{ID: id, Next: NextLocation}, nil
}
