package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
)

const testAnonKey = "anon-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, testAnonKey, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func asUser(token string) context.Context {
	return gateway.WithIdentity(context.Background(), &domain.Identity{UserID: "u1", AccessToken: token})
}

func TestListArtifacts_QueryAndMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/html_files", r.URL.Path)
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "*,profiles(email,username)", q.Get("select"))
		assert.Equal(t, "created_at.desc.nullslast", q.Get("order"))
		assert.Equal(t, `cs.{"ai"}`, q.Get("tags"))
		assert.Equal(t, "eq.claude", q.Get("prompt_name"))

		writeJSON(t, w, http.StatusOK, []map[string]any{{
			"id":            "f1",
			"user_id":       "u1",
			"title":         "Board",
			"description":   nil,
			"content":       "<html></html>",
			"views":         3,
			"tags":          []string{"ai"},
			"prompt_name":   "claude",
			"reference_url": nil,
			"opacity":       0.7,
			"created_at":    "2024-05-01T10:00:00.123456+00:00",
			"profiles":      map[string]any{"email": "alice@example.com", "username": nil},
		}})
	})

	tag, prompt := "ai", "claude"
	got, err := c.ListArtifacts(asUser("user-token"), gateway.ListQuery{Tag: &tag, Prompt: &prompt})
	require.NoError(t, err)
	require.Len(t, got, 1)

	a := got[0]
	assert.Equal(t, "f1", a.ID)
	assert.Equal(t, "", a.Description)
	assert.Equal(t, 3, a.Views)
	assert.Equal(t, domain.TagSet{"ai"}, a.Tags)
	assert.Equal(t, "claude", domain.StringValue(a.PromptName))
	assert.Nil(t, a.ReferenceURL)
	assert.InDelta(t, 0.7, a.Opacity, 1e-9)
	assert.Equal(t, 2024, a.CreatedAt.Year())
	assert.Equal(t, "alice", a.Owner.DisplayName())
}

func TestListArtifacts_AnonymousUsesAnonKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testAnonKey, r.Header.Get("Authorization"))
		assert.Empty(t, r.URL.Query().Get("tags"))
		writeJSON(t, w, http.StatusOK, []any{})
	})

	got, err := c.ListArtifacts(context.Background(), gateway.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetArtifact_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		writeJSON(t, w, http.StatusOK, []any{})
	})

	_, err := c.GetArtifact(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRestErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"code": "PGRST301", "message": "JWT expired"})
	})

	_, err := c.ListFacetRows(asUser("stale"))
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestUpdateArtifact_HiddenRowIsForbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "new", body["title"])
			assert.Equal(t, []any{}, body["tags"])
			writeJSON(t, w, http.StatusOK, []any{})
		case http.MethodGet:
			writeJSON(t, w, http.StatusOK, []map[string]any{{"id": "f1", "user_id": "someone-else", "created_at": "2024-05-01T10:00:00Z"}})
		}
	})

	err := c.UpdateArtifact(asUser("t"), "f1", gateway.ArtifactPatch{Title: "new", Opacity: 0.5})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestInsertArtifact_ReturnsID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Prefer"), "return=representation")
		var rows []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0]["prompt_name"])
		writeJSON(t, w, http.StatusCreated, []map[string]any{{"id": "f9"}})
	})

	got, err := c.InsertArtifact(asUser("t"), gateway.NewArtifact{UserID: "u1", Title: "x", Content: "<p/>"})
	require.NoError(t, err)
	assert.Equal(t, "f9", got)
}

func TestRankings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		switch r.URL.Path {
		case "/rest/v1/ranked_files_by_views":
			assert.Equal(t, "rank.asc.nullslast", r.URL.Query().Get("order"))
			writeJSON(t, w, http.StatusOK, []map[string]any{{"id": "f1", "title": "t", "views": 9, "email": "a@b.c", "rank": 1}})
		case "/rest/v1/rpc/get_tag_rankings":
			writeJSON(t, w, http.StatusOK, []map[string]any{{"tag": "ai", "usage_count": 4, "rank": 1}})
		default:
			writeJSON(t, w, http.StatusNotFound, map[string]string{"code": "PGRST202", "message": "function not found"})
		}
	})

	ranked, err := c.RankArtifactsByViews(context.Background(), gateway.RankingLimit)
	require.NoError(t, err)
	assert.Equal(t, []domain.RankedArtifact{{ID: "f1", Title: "t", Views: 9, Email: "a@b.c", Rank: 1}}, ranked)

	tags, err := c.RankTags(context.Background(), gateway.RankingLimit)
	require.NoError(t, err)
	assert.Equal(t, []domain.TagRanking{{Tag: "ai", UsageCount: 4, Rank: 1}}, tags)

	_, err = c.RankPrompts(context.Background(), gateway.RankingLimit)
	assert.ErrorContains(t, err, "function not found")
}

func TestSignIn(t *testing.T) {
	userID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "correct horse" {
			writeJSON(t, w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    1900000000,
			"user":          map[string]any{"id": userID.String(), "email": body.Email},
		})
	})

	session, err := c.SignIn(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, userID.String(), session.Identity.UserID)
	assert.Equal(t, int64(1900000000), session.ExpiresAt.Unix())

	_, err = c.SignIn(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUp_ProviderMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]any{"code": 400, "msg": "User already registered"})
	})

	_, err := c.SignUp(context.Background(), "alice@example.com", "correct horse")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "already registered")
}

func TestVerify(t *testing.T) {
	userID := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(t, w, http.StatusUnauthorized, map[string]any{"code": 401, "msg": "invalid JWT"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{"id": userID.String(), "email": "alice@example.com"})
	})

	identity, err := c.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, userID.String(), identity.UserID)
	assert.Equal(t, "good", identity.AccessToken)

	_, err = c.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestParseAuthError(t *testing.T) {
	status, msg, ok := parseAuthError(`response status code 422: {"code":422,"msg":"Password should be at least 6 characters"}`)
	require.True(t, ok)
	assert.Equal(t, 422, status)
	assert.Equal(t, "Password should be at least 6 characters", msg)

	status, msg, ok = parseAuthError("response status code 500")
	require.True(t, ok)
	assert.Equal(t, 500, status)
	assert.Equal(t, "Internal Server Error", msg)

	_, _, ok = parseAuthError("dial tcp: connection refused")
	assert.False(t, ok)
}

func TestRestError_Passthrough(t *testing.T) {
	err := restError(errors.New("dial tcp: connection refused"), "list artifacts")
	assert.Equal(t, apperr.CodeInternal, apperr.CodeOf(err))
	assert.ErrorContains(t, err, "list artifacts")

	code, msg := splitRestError("(PGRST116) JSON object requested, multiple (or no) rows returned")
	assert.Equal(t, "PGRST116", code)
	assert.Equal(t, "JSON object requested, multiple (or no) rows returned", msg)
}
