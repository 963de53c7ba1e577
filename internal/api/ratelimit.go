package api

import (
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/i18n"
)

// rateLimitAuth is a per-operation middleware for sign-in and sign-up.
// Clients are keyed by IP; RealIP has already applied forwarding headers.
func (s *Server) rateLimitAuth(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())

	if !s.authRateLimiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded",
			"ip", key,
			"path", ctx.URL().Path,
		)
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "", &APIError{
			status:  http.StatusTooManyRequests,
			Code:    string(domainerrors.CodeRateLimited),
			Message: i18n.Text(languageFrom(ctx.Context()), i18n.RequestRateLimited),
		})
		return
	}

	next(ctx)
}

// clientIP strips the port from a remote address.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
