// Package catalog lists artifacts for the gallery, with optional tag and
// prompt filters and the facet lists derived from the result.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
	"github.com/graphia/graphia-server/internal/preview"
)

// Filter narrows the listing. Nil fields are not applied; set fields are ANDed.
// Changing the filter means issuing a new Query.
type Filter struct {
	Tag    *string
	Prompt *string
}

// NewFilter builds a filter from raw query values; blank values are unset.
func NewFilter(tag, prompt string) Filter {
	return Filter{Tag: domain.OptionalString(tag), Prompt: domain.OptionalString(prompt)}
}

// Active reports whether any filter is set.
func (f Filter) Active() bool {
	return f.Tag != nil || f.Prompt != nil
}

func (f Filter) query() gateway.ListQuery {
	return gateway.ListQuery{Tag: f.Tag, Prompt: f.Prompt}
}

// Entry is one listed artifact. The HTML payload is replaced by a text excerpt.
type Entry struct {
	domain.Artifact
	Excerpt string `json:"excerpt"`
}

// Page is the result of one catalog query.
type Page struct {
	Filter  Filter
	Entries []Entry
	// Facets are derived from the filtered rows, so they narrow as filters apply.
	Facets domain.Facets
	// Empty is set when there are no entries and says which empty state applies.
	Empty i18n.Key
}

// Service queries the catalog.
type Service struct {
	artifacts gateway.ArtifactReader
	logger    *slog.Logger
}

// NewService creates a catalog service.
func NewService(artifacts gateway.ArtifactReader, logger *slog.Logger) *Service {
	return &Service{artifacts: artifacts, logger: logger}
}

// Query issues one gateway read for f, newest first.
func (s *Service) Query(ctx context.Context, f Filter) (*Page, error) {
	artifacts, err := s.artifacts.ListArtifacts(ctx, f.query())
	if err != nil {
		s.logger.Error("list artifacts failed", "filter", f.String(), "error", err)
		return nil, loadFailed(err, "list artifacts")
	}

	page := &Page{
		Filter:  f,
		Entries: make([]Entry, len(artifacts)),
		Facets:  DeriveFacets(facetRows(artifacts)),
	}
	for i, a := range artifacts {
		excerpt := preview.Excerpt(a.Content, preview.DefaultExcerptLength)
		a.Content = ""
		page.Entries[i] = Entry{Artifact: a, Excerpt: excerpt}
	}

	if len(artifacts) == 0 {
		page.Empty = i18n.GalleryEmpty
		if f.Active() {
			page.Empty = i18n.GalleryEmptyFiltered
		}
	}
	return page, nil
}

// Content returns the raw HTML of one artifact.
func (s *Service) Content(ctx context.Context, artifactID string) (string, error) {
	a, err := s.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		if apperr.Is(err, apperr.ErrNotFound) {
			return "", i18n.Wrap(err, i18n.ArtifactNotFound)
		}
		return "", loadFailed(err, "get artifact content")
	}
	return a.Content, nil
}

func loadFailed(err error, op string) error {
	return i18n.Wrap(apperr.EnsureCode(err, apperr.CodeLoadFailed, op), i18n.ArtifactLoadFailed)
}

// String renders f for logs.
func (f Filter) String() string {
	var parts []string
	if f.Tag != nil {
		parts = append(parts, "tag="+*f.Tag)
	}
	if f.Prompt != nil {
		parts = append(parts, "prompt="+*f.Prompt)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}
