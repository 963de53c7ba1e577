package domain

// FacetRow is the per-artifact projection that facets are derived from.
type FacetRow struct {
	Tags       []string `json:"tags"`
	PromptName *string  `json:"prompt_name"`
}

// Facets are the distinct tag and prompt values across a set of artifacts.
type Facets struct {
	Tags    []string `json:"tags"`
	Prompts []string `json:"prompts"`
}
