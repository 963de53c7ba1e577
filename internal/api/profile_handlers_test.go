package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphia/graphia-server/internal/gateway/gatewaytest"
	"github.com/graphia/graphia-server/internal/i18n"
)

func TestGetProfile(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/profile", ts.bearer(ts.owner))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := decodeEnvelope[ProfileResponse](t, resp).Data
	assert.Equal(t, ts.owner.UserID, data.ID)
	assert.Nil(t, data.Username)
	assert.Equal(t, "hanako", data.DisplayName, "falls back to the email's local part")
	assert.Empty(t, data.Message)
}

func TestGetProfile_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/profile")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestGetProfile_LoadFailed(t *testing.T) {
	ts := setupTestServer(t)
	ts.fake.FailOn(gatewaytest.OpGetProfile, assert.AnError)

	resp := ts.api.Get("/api/v1/profile", ts.bearer(ts.owner))

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, i18n.Japanese(i18n.ProfileLoadFailed), decodeEnvelope[any](t, resp).Message)
}

func TestUpdateProfile(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/profile", ts.bearer(ts.owner), map[string]any{"username": "  hanako-y  "})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := decodeEnvelope[ProfileResponse](t, resp).Data
	require.NotNil(t, data.Username)
	assert.Equal(t, "hanako-y", *data.Username)
	assert.Equal(t, "hanako-y", data.DisplayName)
	assert.Equal(t, i18n.Japanese(i18n.UsernameUpdated), data.Message)
	assert.Equal(t, "hanako-y", *ts.fake.Profile(ts.owner.UserID).Username)
}

func TestUpdateProfile_BlankIsNoop(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Patch("/api/v1/profile", ts.bearer(ts.owner), map[string]any{"username": "   "})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeEnvelope[ProfileResponse](t, resp).Data.Message)
	assert.Zero(t, ts.fake.Calls(gatewaytest.OpUpdateUsername))
}

func TestUpdateProfile_Failure(t *testing.T) {
	ts := setupTestServer(t)
	ts.fake.FailOn(gatewaytest.OpUpdateUsername, assert.AnError)

	resp := ts.api.Patch("/api/v1/profile", ts.bearer(ts.owner), map[string]any{"username": "new"})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	envelope := decodeEnvelope[any](t, resp)
	assert.Equal(t, "SAVE_FAILED", envelope.Code)
	assert.Equal(t, i18n.Japanese(i18n.UsernameUpdateFailed), envelope.Message)
}
