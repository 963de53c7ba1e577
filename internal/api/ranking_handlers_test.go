package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphia/graphia-server/internal/domain"
	"github.com/graphia/graphia-server/internal/gateway/gatewaytest"
	"github.com/graphia/graphia-server/internal/i18n"
	"github.com/graphia/graphia-server/internal/ranking"
)

func seedRankings(fake *gatewaytest.Fake) {
	fake.ArtifactRanks = []domain.RankedArtifact{
		{ID: "art-1", Title: "Keynote", Views: 40, Email: "hanako@example.com", Rank: 1},
		{ID: "art-2", Title: "Workshop", Views: 12, Email: "taro@example.com", Rank: 2},
		{ID: "art-3", Title: "Panel", Views: 12, Email: "taro@example.com", Rank: 2},
		{ID: "art-4", Title: "Lightning talks", Views: 3, Email: "hanako@example.com", Rank: 4},
	}
	fake.TagRanks = []domain.TagRanking{
		{Tag: "Talk", UsageCount: 5, Rank: 1},
		{Tag: "design", UsageCount: 2, Rank: 2},
	}
	fake.PromptRanks = []domain.PromptRanking{
		{PromptName: "claude", UsageCount: 4, Rank: 1},
	}
}

func TestGetRankings(t *testing.T) {
	ts := setupTestServer(t)
	seedRankings(ts.fake)

	resp := ts.api.Get("/api/v1/rankings")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := decodeEnvelope[RankingsResponse](t, resp).Data
	require.Len(t, data.Artifacts, 4)

	medals := make([]string, len(data.Artifacts))
	for i, a := range data.Artifacts {
		medals[i] = a.Medal
	}
	assert.Equal(t, []string{"gold", "silver", "silver", ""}, medals, "ties share a medal")
	assert.Equal(t, "gold", data.Tags[0].Medal)
	assert.Equal(t, 4, data.Prompts[0].UsageCount)
	assert.Empty(t, data.Empty)
}

func TestGetRankings_Filter(t *testing.T) {
	ts := setupTestServer(t)
	seedRankings(ts.fake)

	resp := ts.api.Get("/api/v1/rankings?q=talk")

	require.Equal(t, http.StatusOK, resp.Code)
	data := decodeEnvelope[RankingsResponse](t, resp).Data

	titles := make([]string, len(data.Artifacts))
	for i, a := range data.Artifacts {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"Lightning talks"}, titles)
	assert.Equal(t, 4, data.Artifacts[0].Rank, "ranks are kept after filtering")
	require.Len(t, data.Tags, 1)
	assert.Equal(t, "Talk", data.Tags[0].Tag, "matching ignores case")
	assert.Empty(t, data.Prompts)
	assert.NotNil(t, data.Prompts)
	assert.Equal(t, map[string]string{"prompts": i18n.Japanese(i18n.RankingNoPrompts)}, data.Empty)
}

func TestGetRankings_FilterWhitespace(t *testing.T) {
	ts := setupTestServer(t)
	seedRankings(ts.fake)

	resp := ts.api.Get("/api/v1/rankings?q=%20")

	require.Equal(t, http.StatusOK, resp.Code)
	data := decodeEnvelope[RankingsResponse](t, resp).Data
	require.Len(t, data.Artifacts, 1)
	assert.Equal(t, "Lightning talks", data.Artifacts[0].Title)
	assert.Empty(t, data.Tags)
	assert.Empty(t, data.Prompts)
}

func TestGetRankings_RetryAfterFailure(t *testing.T) {
	ts := setupTestServer(t)
	seedRankings(ts.fake)
	ts.fake.FailOn(gatewaytest.OpRankPrompts, assert.AnError)

	first := ts.api.Get("/api/v1/rankings")
	require.Equal(t, http.StatusBadGateway, first.Code)

	ts.fake.FailOn(gatewaytest.OpRankPrompts, nil)
	second := ts.api.Get("/api/v1/rankings")

	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	data := decodeEnvelope[RankingsResponse](t, second).Data
	assert.Len(t, data.Artifacts, 4)
	assert.Equal(t, 2, ts.fake.Calls(gatewaytest.OpRankArtifacts), "every ranking is fetched again")
}

func TestGetRankings_Failure(t *testing.T) {
	ts := setupTestServer(t)
	seedRankings(ts.fake)
	ts.fake.FailOn(gatewaytest.OpRankTags, assert.AnError)

	resp := ts.api.Get("/api/v1/rankings")

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	envelope := decodeEnvelope[any](t, resp)
	assert.Equal(t, "LOAD_FAILED", envelope.Code)
	want := (&ranking.LoadError{Failed: []ranking.Category{ranking.Tags}}).Localize(i18n.Default())
	assert.Equal(t, want, envelope.Message)

	var failure RankingsFailure
	require.NoError(t, json.Unmarshal(envelope.Details, &failure))
	assert.Equal(t, []string{"tags"}, failure.Failed)

	assert.Equal(t, 1, ts.fake.Calls(gatewaytest.OpRankArtifacts), "siblings still run")
	assert.Equal(t, 1, ts.fake.Calls(gatewaytest.OpRankPrompts))
}
