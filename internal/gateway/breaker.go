package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/metrics"
)

// BreakerConfig configures the circuit breaker around a remote gateway.
type BreakerConfig struct {
	Name        string
	MaxFailures uint32        // consecutive failures that open the breaker
	OpenTimeout time.Duration // how long it stays open before probing
	MaxProbes   uint32        // requests allowed while half-open
}

// Breaker fails fast while the remote gateway is unhealthy. It never retries.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker. Client errors (not found,
// forbidden, bad credentials, validation) do not count as failures.
func WithBreaker(next Gateway, cfg BreakerConfig, m *metrics.Collector, logger *slog.Logger) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MaxProbes == 0 {
		cfg.MaxProbes = 1
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxProbes,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("gateway circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: isHealthy,
	})

	return &Breaker{next: next, cb: cb}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func isHealthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound, apperr.CodeForbidden, apperr.CodeValidation,
		apperr.CodeUnauthorized, apperr.CodeInvalidCredentials, apperr.CodeTokenExpired,
		apperr.CodeAlreadyExists:
		return true
	default:
		return false
	}
}

func guard[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, apperr.Wrap(err, apperr.CodeGatewayUnavailable, "data gateway temporarily unavailable")
	}
	out, _ := v.(T)
	return out, err
}

func guardErr(b *Breaker, fn func() error) error {
	_, err := guard(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func (b *Breaker) ListArtifacts(ctx context.Context, q ListQuery) ([]domain.Artifact, error) {
	return guard(b, func() ([]domain.Artifact, error) { return b.next.ListArtifacts(ctx, q) })
}

func (b *Breaker) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	return guard(b, func() (*domain.Artifact, error) { return b.next.GetArtifact(ctx, id) })
}

func (b *Breaker) ListFacetRows(ctx context.Context) ([]domain.FacetRow, error) {
	return guard(b, func() ([]domain.FacetRow, error) { return b.next.ListFacetRows(ctx) })
}

func (b *Breaker) InsertArtifact(ctx context.Context, a NewArtifact) (string, error) {
	return guard(b, func() (string, error) { return b.next.InsertArtifact(ctx, a) })
}

func (b *Breaker) UpdateArtifact(ctx context.Context, id string, p ArtifactPatch) error {
	return guardErr(b, func() error { return b.next.UpdateArtifact(ctx, id, p) })
}

func (b *Breaker) SetViews(ctx context.Context, id string, views int) error {
	return guardErr(b, func() error { return b.next.SetViews(ctx, id, views) })
}

func (b *Breaker) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return guard(b, func() (*domain.Profile, error) { return b.next.GetProfile(ctx, userID) })
}

func (b *Breaker) UpdateUsername(ctx context.Context, userID, username string) error {
	return guardErr(b, func() error { return b.next.UpdateUsername(ctx, userID, username) })
}

func (b *Breaker) RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error) {
	return guard(b, func() ([]domain.RankedArtifact, error) { return b.next.RankArtifactsByViews(ctx, limit) })
}

func (b *Breaker) RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error) {
	return guard(b, func() ([]domain.TagRanking, error) { return b.next.RankTags(ctx, limit) })
}

func (b *Breaker) RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error) {
	return guard(b, func() ([]domain.PromptRanking, error) { return b.next.RankPrompts(ctx, limit) })
}

func (b *Breaker) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return guard(b, func() (*domain.Session, error) { return b.next.SignIn(ctx, email, password) })
}

func (b *Breaker) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	return guard(b, func() (*domain.Session, error) { return b.next.SignUp(ctx, email, password) })
}

func (b *Breaker) SignOut(ctx context.Context, accessToken string) error {
	return guardErr(b, func() error { return b.next.SignOut(ctx, accessToken) })
}

func (b *Breaker) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	return guard(b, func() (*domain.Identity, error) { return b.next.Verify(ctx, accessToken) })
}

func (b *Breaker) Ping(ctx context.Context) error {
	return guardErr(b, func() error { return b.next.Ping(ctx) })
}
