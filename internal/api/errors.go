package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/text/language"

	domainerrors "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/i18n"
	"github.com/graphia/graphia-server/internal/session"
)

// APIError is a custom error type that implements huma.StatusError.
// Message is localized for the client; Code is stable.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Localized error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// signInHint is attached to sign-up errors that should send the user to sign in.
type signInHint struct {
	SuggestSignIn bool `json:"suggest_sign_in"`
}

// RegisterErrorHandler configures huma to render domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr
			}
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}
		}

		details := make([]string, 0, len(errs))
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		apiErr := &APIError{status: status, Code: statusToCode(status), Message: message}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// fallbackKey is the message shown for errors without their own key.
func fallbackKey(code domainerrors.Code) i18n.Key {
	switch code {
	case domainerrors.CodeUnauthorized, domainerrors.CodeTokenExpired:
		return i18n.AuthenticationMissing
	case domainerrors.CodeGatewayUnavailable:
		return i18n.GatewayUnavailable
	case domainerrors.CodeRateLimited:
		return i18n.RequestRateLimited
	default:
		return ""
	}
}

// toAPIError renders err for the client in the request's language. Domain
// errors keep their status and code; anything else is a 500 with no detail.
func toAPIError(ctx context.Context, err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	tag := languageFrom(ctx)
	code := domainerrors.CodeOf(err)

	out := &APIError{status: code.HTTPStatus(), Code: string(code)}

	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		if code == domainerrors.CodeInternal {
			out.status, out.Code = http.StatusBadRequest, string(domainerrors.CodeValidation)
		}
		out.Message = i18n.Text(tag, authErr.Key)
		if authErr.SuggestSignIn {
			out.Details = signInHint{SuggestSignIn: true}
		}
		return out
	}

	out.Message = i18n.Message(tag, err, fallbackKey(code))

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		if out.Message == "" {
			out.Message = domainErr.Message
		}
		if code == domainerrors.CodeValidation {
			out.Details = domainErr.Details
		}
	}
	if out.Message == "" {
		out.Message = http.StatusText(out.status)
	}
	return out
}

func localize(ctx context.Context, key i18n.Key) string {
	if key == "" {
		return ""
	}
	return i18n.Text(languageFrom(ctx), key)
}

type languageKey struct{}

func withLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, languageKey{}, tag)
}

func languageFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(languageKey{}).(language.Tag); ok {
		return tag
	}
	return i18n.Default()
}
