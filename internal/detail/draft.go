package detail

import (
	"strings"

	"github.com/graphia/graphia-server/internal/domain"
	"github.com/graphia/graphia-server/internal/gateway"
)

// Draft holds the owner's uncommitted edits.
type Draft struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Tags         domain.TagSet `json:"tags"`
	PromptName   *string       `json:"prompt_name"`
	ReferenceURL *string       `json:"reference_url"`
	Opacity      float64       `json:"opacity"`
}

// seedDraft copies the editable fields of a.
func seedDraft(a *domain.Artifact) Draft {
	return Draft{
		Title:        a.Title,
		Description:  a.Description,
		Tags:         a.Tags.Clone(),
		PromptName:   cloneString(a.PromptName),
		ReferenceURL: cloneString(a.ReferenceURL),
		Opacity:      a.DisplayOpacity(),
	}
}

func (d Draft) clone() Draft {
	d.Tags = d.Tags.Clone()
	d.PromptName = cloneString(d.PromptName)
	d.ReferenceURL = cloneString(d.ReferenceURL)
	return d
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DraftPatch is a partial draft edit. Nil fields are left alone.
type DraftPatch struct {
	Title        *string  `json:"title,omitempty"`
	Description  *string  `json:"description,omitempty"`
	PromptName   *string  `json:"prompt_name,omitempty"`
	ReferenceURL *string  `json:"reference_url,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	AddTags      []string `json:"add_tags,omitempty"`
	RemoveTags   []string `json:"remove_tags,omitempty"`
}

func normalizeTag(tag string) string {
	return strings.TrimSpace(tag)
}

func (d Draft) patch() gateway.ArtifactPatch {
	return gateway.ArtifactPatch{
		Title:        d.Title,
		Description:  d.Description,
		Tags:         d.Tags.Clone(),
		PromptName:   cloneString(d.PromptName),
		ReferenceURL: cloneString(d.ReferenceURL),
		Opacity:      d.Opacity,
	}
}
