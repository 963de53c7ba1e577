package supabase

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperr "github.com/graphia/graphia-server/internal/errors"
)

// restError maps a PostgREST error ("(CODE) message") onto a domain error.
func restError(err error, op string) error {
	if err == nil {
		return nil
	}

	code, msg := splitRestError(err.Error())
	switch {
	case code == "PGRST116":
		return apperr.Wrap(err, apperr.CodeNotFound, op+": not found")
	case code == "42501":
		return apperr.Wrap(err, apperr.CodeForbidden, msg)
	case code == "PGRST301" || code == "PGRST302":
		return apperr.Wrap(err, apperr.CodeTokenExpired, msg)
	case code == "23505":
		return apperr.Wrap(err, apperr.CodeAlreadyExists, msg)
	case code == "23502" || code == "23514" || code == "22P02":
		return apperr.Wrap(err, apperr.CodeValidation, msg)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func splitRestError(s string) (code, msg string) {
	if !strings.HasPrefix(s, "(") {
		return "", s
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return "", s
	}
	return s[1:end], strings.TrimSpace(s[end+1:])
}

// authErrorBody covers the shapes GoTrue uses for error payloads.
type authErrorBody struct {
	Code             any    `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// authError maps a GoTrue error ("response status code N: body") onto a
// domain error, keeping the provider's message so callers can classify it.
func authError(err error) error {
	if err == nil {
		return nil
	}

	status, msg, ok := parseAuthError(err.Error())
	if !ok {
		return err
	}

	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "invalid login credentials"):
		return apperr.Wrap(err, apperr.CodeInvalidCredentials, msg)
	case strings.Contains(lower, "already registered"):
		return apperr.Wrap(err, apperr.CodeAlreadyExists, msg)
	case status == http.StatusTooManyRequests:
		return apperr.Wrap(err, apperr.CodeRateLimited, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Wrap(err, apperr.CodeTokenExpired, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return apperr.Wrap(err, apperr.CodeValidation, msg)
	default:
		return err
	}
}

func parseAuthError(s string) (status int, msg string, ok bool) {
	rest, found := strings.CutPrefix(s, "response status code ")
	if !found {
		return 0, "", false
	}
	if _, err := fmt.Sscanf(rest, "%d", &status); err != nil {
		return 0, "", false
	}

	_, body, hasBody := strings.Cut(rest, ": ")
	if !hasBody {
		return status, http.StatusText(status), true
	}

	var payload authErrorBody
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return status, body, true
	}
	for _, candidate := range []string{payload.Msg, payload.ErrorDescription, payload.Message, payload.Error} {
		if candidate != "" {
			return status, candidate, true
		}
	}
	return status, body, true
}
