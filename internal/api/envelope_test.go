package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	domainerrors "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/i18n"
	"github.com/graphia/graphia-server/internal/session"
)

func TestEnvelopeTransformer(t *testing.T) {
	t.Run("wraps success bodies", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "200", map[string]string{"k": "v"})
		require.NoError(t, err)
		envelope, ok := out.(APIEnvelope)
		require.True(t, ok)
		assert.Equal(t, EnvelopeVersion, envelope.Version)
		assert.True(t, envelope.Success)
		assert.Equal(t, map[string]string{"k": "v"}, envelope.Data)
	})

	t.Run("leaves envelopes alone", func(t *testing.T) {
		in := APIEnvelope{Version: EnvelopeVersion, Success: true, Data: 1}
		out, err := EnvelopeTransformer(nil, "201", in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("coded errors", func(t *testing.T) {
		apiErr := &APIError{status: http.StatusConflict, Code: "CONFLICT", Message: "taken", Details: []string{"x"}}
		out, err := EnvelopeTransformer(nil, "409", apiErr)
		require.NoError(t, err)
		envelope, ok := out.(APIErrorEnvelope)
		require.True(t, ok)
		assert.False(t, envelope.Success)
		assert.Equal(t, "CONFLICT", envelope.Code)
		assert.Equal(t, "taken", envelope.Message)
		assert.Equal(t, "taken", envelope.Error)
		assert.Equal(t, []string{"x"}, envelope.Details)
	})

	t.Run("uncoded errors", func(t *testing.T) {
		out, err := EnvelopeTransformer(nil, "500", errors.New("boom"))
		require.NoError(t, err)
		assert.Equal(t, APIEnvelope{Version: EnvelopeVersion, Success: false, Error: "boom"}, out)
	})
}

func TestToAPIError(t *testing.T) {
	english := withLanguage(context.Background(), language.English)

	tests := []struct {
		name        string
		ctx         context.Context
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "localized key",
			ctx:         context.Background(),
			err:         i18n.Wrap(domainerrors.NotFound("gone"), i18n.ArtifactNotFound),
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: i18n.Japanese(i18n.ArtifactNotFound),
		},
		{
			name:        "language from context",
			ctx:         english,
			err:         i18n.Wrap(domainerrors.NotFound("gone"), i18n.ArtifactNotFound),
			wantStatus:  http.StatusNotFound,
			wantCode:    "NOT_FOUND",
			wantMessage: i18n.Text(language.English, i18n.ArtifactNotFound),
		},
		{
			name:        "domain message without key",
			ctx:         context.Background(),
			err:         domainerrors.Forbidden("owner only"),
			wantStatus:  http.StatusForbidden,
			wantCode:    "FORBIDDEN",
			wantMessage: "owner only",
		},
		{
			name:        "unauthorized falls back to sign in prompt",
			ctx:         context.Background(),
			err:         domainerrors.Unauthorized("invalid token"),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "UNAUTHORIZED",
			wantMessage: i18n.Japanese(i18n.AuthenticationMissing),
		},
		{
			name:        "foreign error is hidden",
			ctx:         context.Background(),
			err:         errors.New("dial tcp: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL",
			wantMessage: http.StatusText(http.StatusInternalServerError),
		},
		{
			name:        "unclassified auth failure is a bad request",
			ctx:         context.Background(),
			err:         session.Classify(session.OpSignUp, errors.New("something odd")),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION",
			wantMessage: i18n.Japanese(i18n.AuthSignUpFailed),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := toAPIError(tt.ctx, tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.GetStatus())
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestToAPIError_KeepsValidationDetails(t *testing.T) {
	err := domainerrors.ValidationWithDetails("validation failed", map[string]string{"title": "is required"})

	apiErr := toAPIError(context.Background(), err)

	assert.Equal(t, http.StatusBadRequest, apiErr.GetStatus())
	assert.Equal(t, map[string]string{"title": "is required"}, apiErr.Details)
}

func TestRegisterErrorHandler(t *testing.T) {
	RegisterErrorHandler()

	t.Run("domain error", func(t *testing.T) {
		se := huma.NewError(http.StatusInternalServerError, "ignored", domainerrors.NotFound("nope"))
		assert.Equal(t, http.StatusNotFound, se.GetStatus())
		assert.Equal(t, "NOT_FOUND", se.(*APIError).Code)
	})

	t.Run("framework error", func(t *testing.T) {
		se := huma.NewError(http.StatusUnprocessableEntity, "validation failed", errors.New("expected string"))
		apiErr := se.(*APIError)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.GetStatus())
		assert.Equal(t, "VALIDATION", apiErr.Code)
		assert.Equal(t, []string{"expected string"}, apiErr.Details)
	})
}
