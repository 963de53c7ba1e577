package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/config"
	"github.com/graphia/graphia-server/internal/detail"
	"github.com/graphia/graphia-server/internal/domain"
	"github.com/graphia/graphia-server/internal/gateway/gatewaytest"
	"github.com/graphia/graphia-server/internal/metrics"
	"github.com/graphia/graphia-server/internal/session"
	"github.com/graphia/graphia-server/internal/upload"
	"github.com/graphia/graphia-server/internal/validation"
)

// testEnvelope decodes both success and error envelopes.
type testEnvelope[T any] struct {
	Version int             `json:"v"`
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// testServer wraps the API server with the fakes behind it.
type testServer struct {
	*Server
	api     humatest.TestAPI
	fake    *gatewaytest.Fake
	drafts  *detail.BadgerDraftStore
	metrics *metrics.Collector

	owner    domain.Identity
	stranger domain.Identity
	artifact *domain.Artifact
}

func ptr(s string) *string { return &s }

// setupTestServer creates a server over an in-memory gateway seeded with two
// users and two artifacts. opts adjust the config before the server is built.
func setupTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	fake := gatewaytest.New()
	m := metrics.NewCollector("graphia_test")

	drafts, err := detail.NewInMemoryDraftStore(time.Hour, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = drafts.Close() })

	v := validation.New()
	services := &Services{
		Sessions:  session.NewService(fake, logger),
		Catalog:   catalog.NewService(fake, logger),
		Uploads:   upload.NewService(fake, v, logger, m.Uploads),
		Details:   fake,
		Drafts:    drafts,
		Profiles:  fake,
		Rankings:  fake,
		Health:    fake,
		Validator: v,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			CORSOrigins:    []string{"http://localhost:5173"},
			MaxUploadBytes: 64 << 10,
		},
		Auth: config.AuthConfig{
			RateLimitPerMinute: 600,
			RateLimitBurst:     100,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := NewServer(services, cfg, m, logger)
	t.Cleanup(s.Close)

	ts := &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		fake:    fake,
		drafts:  drafts,
		metrics: m,
	}

	ts.owner = fake.AddUser("usr-owner", "hanako@example.com", "password1")
	ts.stranger = fake.AddUser("usr-other", "taro@example.com", "password2")
	ts.artifact = fake.PutArtifact(domain.Artifact{
		UserID:      ts.owner.UserID,
		Title:       "Keynote",
		Description: "Opening talk",
		Content:     "<h1>Keynote</h1><p>Graphic recording of the opening talk</p>",
		Views:       4,
		Tags:        domain.NewTagSet("ai", "talk"),
		PromptName:  ptr("claude"),
		Opacity:     0.3,
	})
	fake.PutArtifact(domain.Artifact{
		UserID:     ts.stranger.UserID,
		Title:      "Workshop",
		Content:    "<p>workshop</p>",
		Tags:       domain.NewTagSet("art"),
		PromptName: ptr("gpt"),
	})

	return ts
}

func (ts *testServer) bearer(identity domain.Identity) string {
	return "Authorization: Bearer " + ts.fake.TokenFor(identity)
}

func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), resp.Body.String())
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	return envelope
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope[HealthResponse](t, resp)
	assert.True(t, envelope.Success)
	assert.Equal(t, "healthy", envelope.Data.Status)
	assert.Equal(t, "healthy", envelope.Data.Components["gateway"].Status)
	assert.NotContains(t, envelope.Data.Components, "breaker", "local gateway has no breaker")
}

func TestHealthCheck_GatewayDown(t *testing.T) {
	ts := setupTestServer(t)
	ts.fake.FailOn(gatewaytest.OpPing, assert.AnError)

	resp := ts.api.Get("/health")

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope[HealthResponse](t, resp)
	assert.Equal(t, "unhealthy", envelope.Data.Status)
	assert.Equal(t, assert.AnError.Error(), envelope.Data.Components["gateway"].Message)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.api.Get("/health")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `graphia_test_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/artifacts", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	ts.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
