// Package gateway defines the Remote Data Gateway: the hosted store, auth
// provider and ranking functions every gallery operation goes through.
// Each method is a single round trip; implementations live in subpackages.
package gateway

import (
	"context"

	"github.com/graphia/graphia-server/internal/domain"
)

// RankingLimit is the number of rows each ranking returns.
const RankingLimit = 50

// ListQuery filters the catalog. Nil fields are not applied; set fields are ANDed.
type ListQuery struct {
	Tag    *string
	Prompt *string
}

// NewArtifact is the payload of an upload.
type NewArtifact struct {
	UserID       string
	Title        string
	Description  string
	Content      string
	Tags         domain.TagSet
	PromptName   *string
	ReferenceURL *string
}

// ArtifactPatch is the full set of owner-editable fields written by a save.
type ArtifactPatch struct {
	Title        string
	Description  string
	Tags         domain.TagSet
	PromptName   *string
	ReferenceURL *string
	Opacity      float64
}

// ArtifactReader reads artifacts and the rows facets are built from.
type ArtifactReader interface {
	// ListArtifacts returns matching artifacts newest first.
	ListArtifacts(ctx context.Context, q ListQuery) ([]domain.Artifact, error)
	// GetArtifact returns one artifact with its owner profile joined.
	// A missing row is reported as errors.ErrNotFound.
	GetArtifact(ctx context.Context, id string) (*domain.Artifact, error)
	// ListFacetRows returns the tags and prompt name of every artifact.
	ListFacetRows(ctx context.Context) ([]domain.FacetRow, error)
}

// ArtifactWriter mutates artifacts.
type ArtifactWriter interface {
	InsertArtifact(ctx context.Context, a NewArtifact) (string, error)
	UpdateArtifact(ctx context.Context, id string, p ArtifactPatch) error
	// SetViews overwrites the view counter. Callers do read-modify-write; last writer wins.
	SetViews(ctx context.Context, id string, views int) error
}

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateUsername(ctx context.Context, userID, username string) error
}

// Rankings exposes the server-side ranking queries.
type Rankings interface {
	RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error)
	RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error)
	RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error)
}

// Authenticator is the auth provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	// SignUp may return a session without tokens when the provider requires email confirmation.
	SignUp(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// Verify resolves an access token to the identity it was issued for.
	Verify(ctx context.Context, accessToken string) (*domain.Identity, error)
}

// Gateway is the full contract.
type Gateway interface {
	ArtifactReader
	ArtifactWriter
	ProfileStore
	Rankings
	Authenticator
	Ping(ctx context.Context) error
}

type identityKey struct{}

// WithIdentity attaches the caller to ctx. Gateways use it to act on the
// caller's behalf (the hosted store enforces row-level security with it).
func WithIdentity(ctx context.Context, identity *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller attached by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *domain.Identity {
	identity, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return identity
}
