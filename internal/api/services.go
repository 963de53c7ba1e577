package api

import (
	"context"

	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/detail"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/session"
	"github.com/graphia/graphia-server/internal/upload"
	"github.com/graphia/graphia-server/internal/validation"
)

// Pinger reports whether the data gateway answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups what the handlers call into.
type Services struct {
	Sessions  *session.Service
	Catalog   *catalog.Service
	Uploads   *upload.Service
	Details   detail.Store
	Drafts    detail.DraftStore
	Profiles  gateway.ProfileStore
	Rankings  gateway.Rankings
	Health    Pinger
	Breaker   *gateway.Breaker // nil when the gateway is local
	Validator *validation.Validator
}
