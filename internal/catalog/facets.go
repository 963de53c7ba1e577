package catalog

import "github.com/graphia/graphia-server/internal/domain"

// DeriveFacets returns the distinct tags and distinct non-null prompt names
// of rows, each in first-seen order.
func DeriveFacets(rows []domain.FacetRow) domain.Facets {
	facets := domain.Facets{Tags: []string{}, Prompts: []string{}}
	seenTags := make(map[string]struct{})
	seenPrompts := make(map[string]struct{})

	for _, row := range rows {
		for _, tag := range row.Tags {
			if _, ok := seenTags[tag]; ok {
				continue
			}
			seenTags[tag] = struct{}{}
			facets.Tags = append(facets.Tags, tag)
		}
		if row.PromptName == nil {
			continue
		}
		if _, ok := seenPrompts[*row.PromptName]; ok {
			continue
		}
		seenPrompts[*row.PromptName] = struct{}{}
		facets.Prompts = append(facets.Prompts, *row.PromptName)
	}
	return facets
}

func facetRows(artifacts []domain.Artifact) []domain.FacetRow {
	rows := make([]domain.FacetRow, len(artifacts))
	for i := range artifacts {
		rows[i] = artifacts[i].FacetRow()
	}
	return rows
}
