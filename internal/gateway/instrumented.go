package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/metrics"
)

// Instrumented records call counts and latency for every gateway operation.
type Instrumented struct {
	next    Gateway
	metrics *metrics.Collector
}

// WithMetrics wraps next with Prometheus instrumentation.
func WithMetrics(next Gateway, m *metrics.Collector) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func observe[T any](m *metrics.Collector, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	m.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.GatewayCalls.WithLabelValues(op, outcome(err)).Inc()
	return v, err
}

func observeErr(m *metrics.Collector, op string, fn func() error) error {
	_, err := observe(m, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var domainErr *apperr.Error
	if apperr.As(err, &domainErr) {
		return strings.ToLower(string(domainErr.Code))
	}
	return "error"
}

func (g *Instrumented) ListArtifacts(ctx context.Context, q ListQuery) ([]domain.Artifact, error) {
	return observe(g.metrics, "list_artifacts", func() ([]domain.Artifact, error) { return g.next.ListArtifacts(ctx, q) })
}

func (g *Instrumented) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	return observe(g.metrics, "get_artifact", func() (*domain.Artifact, error) { return g.next.GetArtifact(ctx, id) })
}

func (g *Instrumented) ListFacetRows(ctx context.Context) ([]domain.FacetRow, error) {
	return observe(g.metrics, "list_facet_rows", func() ([]domain.FacetRow, error) { return g.next.ListFacetRows(ctx) })
}

func (g *Instrumented) InsertArtifact(ctx context.Context, a NewArtifact) (string, error) {
	return observe(g.metrics, "insert_artifact", func() (string, error) { return g.next.InsertArtifact(ctx, a) })
}

func (g *Instrumented) UpdateArtifact(ctx context.Context, id string, p ArtifactPatch) error {
	return observeErr(g.metrics, "update_artifact", func() error { return g.next.UpdateArtifact(ctx, id, p) })
}

func (g *Instrumented) SetViews(ctx context.Context, id string, views int) error {
	return observeErr(g.metrics, "set_views", func() error { return g.next.SetViews(ctx, id, views) })
}

func (g *Instrumented) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return observe(g.metrics, "get_profile", func() (*domain.Profile, error) { return g.next.GetProfile(ctx, userID) })
}

func (g *Instrumented) UpdateUsername(ctx context.Context, userID, username string) error {
	return observeErr(g.metrics, "update_username", func() error { return g.next.UpdateUsername(ctx, userID, username) })
}

func (g *Instrumented) RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error) {
	return observe(g.metrics, "rank_artifacts", func() ([]domain.RankedArtifact, error) { return g.next.RankArtifactsByViews(ctx, limit) })
}

func (g *Instrumented) RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error) {
	return observe(g.metrics, "rank_tags", func() ([]domain.TagRanking, error) { return g.next.RankTags(ctx, limit) })
}

func (g *Instrumented) RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error) {
	return observe(g.metrics, "rank_prompts", func() ([]domain.PromptRanking, error) { return g.next.RankPrompts(ctx, limit) })
}

func (g *Instrumented) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return observe(g.metrics, "sign_in", func() (*domain.Session, error) { return g.next.SignIn(ctx, email, password) })
}

func (g *Instrumented) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	return observe(g.metrics, "sign_up", func() (*domain.Session, error) { return g.next.SignUp(ctx, email, password) })
}

func (g *Instrumented) SignOut(ctx context.Context, accessToken string) error {
	return observeErr(g.metrics, "sign_out", func() error { return g.next.SignOut(ctx, accessToken) })
}

func (g *Instrumented) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	return observe(g.metrics, "verify", func() (*domain.Identity, error) { return g.next.Verify(ctx, accessToken) })
}

func (g *Instrumented) Ping(ctx context.Context) error {
	return observeErr(g.metrics, "ping", func() error { return g.next.Ping(ctx) })
}
