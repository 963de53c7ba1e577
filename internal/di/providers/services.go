package providers

import (
	"github.com/samber/do/v2"

	"github.com/graphia/graphia-server/internal/api"
	"github.com/graphia/graphia-server/internal/catalog"
	"github.com/graphia/graphia-server/internal/logger"
	"github.com/graphia/graphia-server/internal/metrics"
	"github.com/graphia/graphia-server/internal/session"
	"github.com/graphia/graphia-server/internal/upload"
	"github.com/graphia/graphia-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideSessionService provides the auth session service.
func ProvideSessionService(i do.Injector) (*session.Service, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return session.NewService(gw, log.Logger), nil
}

// ProvideCatalogService provides the gallery listing service.
func ProvideCatalogService(i do.Injector) (*catalog.Service, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return catalog.NewService(gw, log.Logger), nil
}

// ProvideUploadService provides the artifact upload service.
func ProvideUploadService(i do.Injector) (*upload.Service, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Collector](i)
	return upload.NewService(gw, v, log.Logger, m.Uploads), nil
}

// ProvideAPIServices gathers everything the HTTP handlers use.
func ProvideAPIServices(i do.Injector) (*api.Services, error) {
	gw := do.MustInvoke[*GatewayHandle](i)
	drafts := do.MustInvoke[*DraftStoreHandle](i)

	return &api.Services{
		Sessions:  do.MustInvoke[*session.Service](i),
		Catalog:   do.MustInvoke[*catalog.Service](i),
		Uploads:   do.MustInvoke[*upload.Service](i),
		Details:   gw,
		Drafts:    drafts,
		Profiles:  gw,
		Rankings:  gw,
		Health:    gw,
		Breaker:   gw.Breaker,
		Validator: do.MustInvoke[*validation.Validator](i),
	}, nil
}
