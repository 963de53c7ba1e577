package api

import (
	"context"

	"github.com/graphia/graphia-server/internal/domain"
	domainerrors "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/i18n"
)

// errAuthRequired is returned by handlers that need a signed-in user.
var errAuthRequired = i18n.Wrap(domainerrors.Unauthorized("authentication required"), i18n.AuthenticationMissing)

// requireIdentity returns the caller, or a localized 401.
func requireIdentity(ctx context.Context) (*domain.Identity, error) {
	identity := gateway.IdentityFrom(ctx)
	if identity == nil {
		return nil, toAPIError(ctx, errAuthRequired)
	}
	return identity, nil
}

// fail renders err for the client. Server-side failures are logged here so
// handlers can return straight away.
func (s *Server) fail(ctx context.Context, op string, err error) *APIError {
	apiErr := toAPIError(ctx, err)
	if apiErr.status >= 500 {
		s.logger.Error(op+" failed", "error", err)
	}
	return apiErr
}
