package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphia/graphia-server/internal/auth"
	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
)

// testClock hands out strictly increasing times.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tokens, err := auth.NewTokenService(make([]byte, 32), time.Hour)
	require.NoError(t, err)

	s, err := Open(filepath.Join(t.TempDir(), "gateway.db"), tokens, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := &testClock{now: time.Now().Add(-time.Hour)}
	s.now = clock.Now
	return s
}

func signUp(t *testing.T, s *Store, email string) context.Context {
	t.Helper()
	session, err := s.SignUp(context.Background(), email, "correct horse")
	require.NoError(t, err)
	identity := session.Identity
	return gateway.WithIdentity(context.Background(), &identity)
}

func upload(t *testing.T, s *Store, ctx context.Context, title string, tags []string, prompt string) string {
	t.Helper()
	identity := gateway.IdentityFrom(ctx)
	artifactID, err := s.InsertArtifact(ctx, gateway.NewArtifact{
		UserID:     identity.UserID,
		Title:      title,
		Content:    "<html><body>" + title + "</body></html>",
		Tags:       domain.NewTagSet(tags...),
		PromptName: domain.OptionalString(prompt),
	})
	require.NoError(t, err)
	return artifactID
}

func TestSignUpAndSignIn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.SignUp(ctx, " Alice@Example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.Identity.Email)
	assert.NotEmpty(t, session.AccessToken)

	profile, err := s.GetProfile(ctx, session.Identity.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Nil(t, profile.Username)

	signedIn, err := s.SignIn(ctx, "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, session.Identity.UserID, signedIn.Identity.UserID)
	assert.NotEqual(t, session.AccessToken, signedIn.AccessToken)
}

func TestSignUp_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "bob@example.com", "short")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "password")

	_, err = s.SignUp(ctx, "not-an-email", "correct horse")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.SignUp(ctx, "bob@example.com", "correct horse")
	require.NoError(t, err)
	_, err = s.SignUp(ctx, "BOB@example.com", "correct horse")
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "already registered")
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.SignUp(ctx, "carol@example.com", "correct horse")
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "carol@example.com", "wrong horse")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

func TestVerifyAndSignOut(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.SignUp(ctx, "dave@example.com", "correct horse")
	require.NoError(t, err)

	identity, err := s.Verify(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.Identity.UserID, identity.UserID)
	assert.Equal(t, session.AccessToken, identity.AccessToken)

	require.NoError(t, s.SignOut(ctx, session.AccessToken))

	_, err = s.Verify(ctx, session.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)

	// Signing out twice is fine.
	assert.NoError(t, s.SignOut(ctx, session.AccessToken))

	_, err = s.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestInsertArtifact_RequiresCaller(t *testing.T) {
	s := newTestStore(t)
	owner := signUp(t, s, "erin@example.com")
	other := signUp(t, s, "frank@example.com")

	_, err := s.InsertArtifact(context.Background(), gateway.NewArtifact{UserID: "usr-x", Title: "t", Content: "c"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = s.InsertArtifact(other, gateway.NewArtifact{
		UserID:  gateway.IdentityFrom(owner).UserID,
		Title:   "t",
		Content: "c",
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestGetArtifact(t *testing.T) {
	s := newTestStore(t)
	ctx := signUp(t, s, "gina@example.com")

	artifactID := upload(t, s, ctx, "Board", []string{"ai", "design"}, "claude")

	a, err := s.GetArtifact(context.Background(), artifactID)
	require.NoError(t, err)
	assert.Equal(t, "Board", a.Title)
	assert.Equal(t, domain.TagSet{"ai", "design"}, a.Tags)
	assert.Equal(t, "claude", domain.StringValue(a.PromptName))
	assert.Nil(t, a.ReferenceURL)
	assert.Equal(t, 0, a.Views)
	assert.InDelta(t, domain.DefaultOpacity, a.Opacity, 1e-9)
	assert.Equal(t, "gina@example.com", a.Owner.Email)
	assert.Equal(t, "gina", a.Owner.DisplayName())

	_, err = s.GetArtifact(context.Background(), "art-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListArtifacts_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := signUp(t, s, "hana@example.com")

	first := upload(t, s, ctx, "one", []string{"ai"}, "claude")
	second := upload(t, s, ctx, "two", []string{"ai", "art"}, "gpt")
	third := upload(t, s, ctx, "three", nil, "claude")

	all, err := s.ListArtifacts(context.Background(), gateway.ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third, second, first}, artifactIDs(all), "newest first")

	tag := "ai"
	byTag, err := s.ListArtifacts(context.Background(), gateway.ListQuery{Tag: &tag})
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, artifactIDs(byTag))

	prompt := "claude"
	both, err := s.ListArtifacts(context.Background(), gateway.ListQuery{Tag: &tag, Prompt: &prompt})
	require.NoError(t, err)
	assert.Equal(t, []string{first}, artifactIDs(both))

	missing := "none"
	empty, err := s.ListArtifacts(context.Background(), gateway.ListQuery{Tag: &missing})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListFacetRows(t *testing.T) {
	s := newTestStore(t)
	ctx := signUp(t, s, "ian@example.com")

	upload(t, s, ctx, "one", []string{"b", "a"}, "")
	upload(t, s, ctx, "two", []string{"c"}, "claude")

	rows, err := s.ListFacetRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"b", "a"}, []string(rows[0].Tags))
	assert.Nil(t, rows[0].PromptName)
	assert.Equal(t, "claude", domain.StringValue(rows[1].PromptName))
}

func TestUpdateArtifact_OwnerOnly(t *testing.T) {
	s := newTestStore(t)
	owner := signUp(t, s, "jun@example.com")
	other := signUp(t, s, "kai@example.com")
	artifactID := upload(t, s, owner, "before", []string{"x"}, "")

	patch := gateway.ArtifactPatch{
		Title:        "after",
		Description:  "desc",
		Tags:         domain.NewTagSet("y", "z"),
		PromptName:   domain.OptionalString("claude"),
		ReferenceURL: domain.OptionalString("https://example.com"),
		Opacity:      0.7,
	}

	err := s.UpdateArtifact(other, artifactID, patch)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = s.UpdateArtifact(owner, "art-missing", patch)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.UpdateArtifact(owner, artifactID, patch))

	a, err := s.GetArtifact(context.Background(), artifactID)
	require.NoError(t, err)
	assert.Equal(t, "after", a.Title)
	assert.Equal(t, "desc", a.Description)
	assert.Equal(t, domain.TagSet{"y", "z"}, a.Tags)
	assert.Equal(t, "https://example.com", domain.StringValue(a.ReferenceURL))
	assert.InDelta(t, 0.7, a.Opacity, 1e-9)
}

func TestSetViews(t *testing.T) {
	s := newTestStore(t)
	owner := signUp(t, s, "lena@example.com")
	reader := signUp(t, s, "mika@example.com")
	artifactID := upload(t, s, owner, "viewed", nil, "")

	assert.ErrorIs(t, s.SetViews(context.Background(), artifactID, 1), apperr.ErrUnauthorized)

	require.NoError(t, s.SetViews(reader, artifactID, 5))
	a, err := s.GetArtifact(context.Background(), artifactID)
	require.NoError(t, err)
	assert.Equal(t, 5, a.Views)

	assert.ErrorIs(t, s.SetViews(reader, "art-missing", 1), apperr.ErrNotFound)
}

func TestUpdateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := signUp(t, s, "nora@example.com")
	other := signUp(t, s, "omar@example.com")
	userID := gateway.IdentityFrom(ctx).UserID

	assert.ErrorIs(t, s.UpdateUsername(other, userID, "x"), apperr.ErrForbidden)
	require.NoError(t, s.UpdateUsername(ctx, userID, "Nora"))

	profile, err := s.GetProfile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Nora", profile.DisplayName())

	_, err = s.GetProfile(context.Background(), "usr-missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRankings(t *testing.T) {
	s := newTestStore(t)
	ctx := signUp(t, s, "pia@example.com")

	a := upload(t, s, ctx, "a", []string{"ai", "art"}, "claude")
	b := upload(t, s, ctx, "b", []string{"ai"}, "claude")
	c := upload(t, s, ctx, "c", []string{"ai", "art"}, "gpt")

	require.NoError(t, s.SetViews(ctx, a, 10))
	require.NoError(t, s.SetViews(ctx, b, 10))
	require.NoError(t, s.SetViews(ctx, c, 3))

	ranked, err := s.RankArtifactsByViews(context.Background(), gateway.RankingLimit)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank, "ties share a rank")
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, c, ranked[2].ID)
	assert.Equal(t, "pia@example.com", ranked[2].Email)

	tags, err := s.RankTags(context.Background(), gateway.RankingLimit)
	require.NoError(t, err)
	assert.Equal(t, []domain.TagRanking{
		{Tag: "ai", UsageCount: 3, Rank: 1},
		{Tag: "art", UsageCount: 2, Rank: 2},
	}, tags)

	prompts, err := s.RankPrompts(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []domain.PromptRanking{{PromptName: "claude", UsageCount: 2, Rank: 1}}, prompts)
}

func artifactIDs(artifacts []domain.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = a.ID
	}
	return out
}
