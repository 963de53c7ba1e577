package domain

// RankedArtifact is one row of the most-viewed ranking.
type RankedArtifact struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Views int    `json:"views"`
	Email string `json:"email"`
	Rank  int    `json:"rank"`
}

// TagRanking is one row of the tag usage ranking.
type TagRanking struct {
	Tag        string `json:"tag"`
	UsageCount int    `json:"usage_count"`
	Rank       int    `json:"rank"`
}

// PromptRanking is one row of the prompt usage ranking.
type PromptRanking struct {
	PromptName string `json:"prompt_name"`
	UsageCount int    `json:"usage_count"`
	Rank       int    `json:"rank"`
}
