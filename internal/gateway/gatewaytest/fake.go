// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
)

// Operation names accepted by FailOn and Calls.
const (
	OpListArtifacts  = "list_artifacts"
	OpGetArtifact    = "get_artifact"
	OpListFacetRows  = "list_facet_rows"
	OpInsertArtifact = "insert_artifact"
	OpUpdateArtifact = "update_artifact"
	OpSetViews       = "set_views"
	OpGetProfile     = "get_profile"
	OpUpdateUsername = "update_username"
	OpRankArtifacts  = "rank_artifacts"
	OpRankTags       = "rank_tags"
	OpRankPrompts    = "rank_prompts"
	OpSignIn         = "sign_in"
	OpSignUp         = "sign_up"
	OpSignOut        = "sign_out"
	OpVerify         = "verify"
	OpPing           = "ping"
)

// ViewWrite records one SetViews call.
type ViewWrite struct {
	ID    string
	Views int
}

// PatchWrite records one UpdateArtifact call.
type PatchWrite struct {
	ID    string
	Patch gateway.ArtifactPatch
}

type account struct {
	password string
	identity domain.Identity
}

// Fake is a goroutine-safe in-memory gateway with per-operation error injection.
type Fake struct {
	mu sync.Mutex

	artifacts map[string]*domain.Artifact
	profiles  map[string]*domain.Profile
	accounts  map[string]*account // by email
	tokens    map[string]*domain.Identity

	ArtifactRanks []domain.RankedArtifact
	TagRanks      []domain.TagRanking
	PromptRanks   []domain.PromptRanking

	Inserted   []gateway.NewArtifact
	Patches    []PatchWrite
	ViewWrites []ViewWrite
	Queries    []gateway.ListQuery

	// Hook runs before every operation, outside the lock.
	Hook func(ctx context.Context, op string)

	errs  map[string]error
	calls map[string]int
	seq   int
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		artifacts: make(map[string]*domain.Artifact),
		profiles:  make(map[string]*domain.Profile),
		accounts:  make(map[string]*account),
		tokens:    make(map[string]*domain.Identity),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

var _ gateway.Gateway = (*Fake)(nil)

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// PutArtifact stores a copy of a, filling ID and CreatedAt when empty.
func (f *Fake) PutArtifact(a domain.Artifact) *domain.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if a.ID == "" {
		a.ID = fmt.Sprintf("art-%d", f.seq)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
	}
	if p, ok := f.profiles[a.UserID]; ok {
		a.Owner = domain.Owner{Email: p.Email, Username: p.Username}
	}
	stored := a
	stored.Tags = a.Tags.Clone()
	f.artifacts[a.ID] = &stored
	return cloneArtifact(&stored)
}

// Artifact returns a copy of the stored artifact, or nil.
func (f *Fake) Artifact(id string) *domain.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return nil
	}
	return cloneArtifact(a)
}

// AddUser registers an account and its profile, returning the identity.
func (f *Fake) AddUser(userID, email, password string) domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	identity := domain.Identity{UserID: userID, Email: email, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	f.accounts[strings.ToLower(email)] = &account{password: password, identity: identity}
	f.profiles[userID] = &domain.Profile{ID: userID, Email: email}
	return identity
}

// Profile returns a copy of the stored profile, or nil.
func (f *Fake) Profile(userID string) *domain.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (f *Fake) enter(ctx context.Context, op string) error {
	if f.Hook != nil {
		f.Hook(ctx, op)
	}
	f.mu.Lock()
	f.calls[op]++
	err := f.errs[op]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func cloneArtifact(a *domain.Artifact) *domain.Artifact {
	cp := *a
	cp.Tags = a.Tags.Clone()
	return &cp
}

func (f *Fake) ListArtifacts(ctx context.Context, q gateway.ListQuery) ([]domain.Artifact, error) {
	if err := f.enter(ctx, OpListArtifacts); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, q)

	out := make([]domain.Artifact, 0, len(f.artifacts))
	for _, a := range f.artifacts {
		if q.Tag != nil && !a.Tags.Contains(*q.Tag) {
			continue
		}
		if q.Prompt != nil && (a.PromptName == nil || *a.PromptName != *q.Prompt) {
			continue
		}
		out = append(out, *cloneArtifact(a))
	}
	slices.SortFunc(out, func(x, y domain.Artifact) int { return y.CreatedAt.Compare(x.CreatedAt) })
	return out, nil
}

func (f *Fake) GetArtifact(ctx context.Context, id string) (*domain.Artifact, error) {
	if err := f.enter(ctx, OpGetArtifact); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.artifacts[id]
	if !ok {
		return nil, apperr.NotFoundf("artifact %s not found", id)
	}
	return cloneArtifact(a), nil
}

func (f *Fake) ListFacetRows(ctx context.Context) ([]domain.FacetRow, error) {
	if err := f.enter(ctx, OpListFacetRows); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]string, 0, len(f.artifacts))
	for id := range f.artifacts {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(x, y string) int { return f.artifacts[x].CreatedAt.Compare(f.artifacts[y].CreatedAt) })

	rows := make([]domain.FacetRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, f.artifacts[id].FacetRow())
	}
	return rows, nil
}

func (f *Fake) InsertArtifact(ctx context.Context, a gateway.NewArtifact) (string, error) {
	if err := f.enter(ctx, OpInsertArtifact); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.Inserted = append(f.Inserted, a)
	f.mu.Unlock()

	stored := f.PutArtifact(domain.Artifact{
		UserID:       a.UserID,
		Title:        a.Title,
		Description:  a.Description,
		Content:      a.Content,
		Tags:         a.Tags,
		PromptName:   a.PromptName,
		ReferenceURL: a.ReferenceURL,
		Opacity:      domain.DefaultOpacity,
	})
	return stored.ID, nil
}

func (f *Fake) UpdateArtifact(ctx context.Context, id string, p gateway.ArtifactPatch) error {
	if err := f.enter(ctx, OpUpdateArtifact); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Patches = append(f.Patches, PatchWrite{ID: id, Patch: p})

	a, ok := f.artifacts[id]
	if !ok {
		return apperr.NotFoundf("artifact %s not found", id)
	}
	a.Title = p.Title
	a.Description = p.Description
	a.Tags = p.Tags.Clone()
	a.PromptName = p.PromptName
	a.ReferenceURL = p.ReferenceURL
	a.Opacity = p.Opacity
	return nil
}

func (f *Fake) SetViews(ctx context.Context, id string, views int) error {
	if err := f.enter(ctx, OpSetViews); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ViewWrites = append(f.ViewWrites, ViewWrite{ID: id, Views: views})
	if a, ok := f.artifacts[id]; ok {
		a.Views = views
	}
	return nil
}

func (f *Fake) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := f.enter(ctx, OpGetProfile); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperr.NotFound("profile not found")
	}
	cp := *p
	return &cp, nil
}

func (f *Fake) UpdateUsername(ctx context.Context, userID, username string) error {
	if err := f.enter(ctx, OpUpdateUsername); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return apperr.NotFound("profile not found")
	}
	p.Username = &username
	return nil
}

func (f *Fake) RankArtifactsByViews(ctx context.Context, limit int) ([]domain.RankedArtifact, error) {
	if err := f.enter(ctx, OpRankArtifacts); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ArtifactRanks[:min(limit, len(f.ArtifactRanks))]), nil
}

func (f *Fake) RankTags(ctx context.Context, limit int) ([]domain.TagRanking, error) {
	if err := f.enter(ctx, OpRankTags); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.TagRanks[:min(limit, len(f.TagRanks))]), nil
}

func (f *Fake) RankPrompts(ctx context.Context, limit int) ([]domain.PromptRanking, error) {
	if err := f.enter(ctx, OpRankPrompts); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.PromptRanks[:min(limit, len(f.PromptRanks))]), nil
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := f.enter(ctx, OpSignIn); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[strings.ToLower(email)]
	if !ok || acct.password != password {
		return nil, apperr.InvalidCredentials("Invalid login credentials")
	}
	return f.issue(acct.identity), nil
}

func (f *Fake) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := f.enter(ctx, OpSignUp); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(email)
	if _, exists := f.accounts[email]; exists {
		return nil, apperr.AlreadyExists("User already registered")
	}
	if len(password) < 8 {
		return nil, apperr.Validation("Password should be at least 8 characters")
	}
	f.seq++
	identity := domain.Identity{UserID: fmt.Sprintf("usr-%d", f.seq), Email: email, CreatedAt: time.Now()}
	f.accounts[email] = &account{password: password, identity: identity}
	f.profiles[identity.UserID] = &domain.Profile{ID: identity.UserID, Email: email}
	return f.issue(identity), nil
}

// issue must be called with f.mu held.
func (f *Fake) issue(identity domain.Identity) *domain.Session {
	f.seq++
	token := fmt.Sprintf("token-%d", f.seq)
	expires := time.Now().Add(time.Hour)
	identity.AccessToken = token
	identity.ExpiresAt = expires
	f.tokens[token] = &identity
	return &domain.Session{Identity: identity, AccessToken: token, RefreshToken: "refresh-" + token, ExpiresAt: expires}
}

// TokenFor signs identity in directly and returns its access token.
func (f *Fake) TokenFor(identity domain.Identity) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issue(identity).AccessToken
}

func (f *Fake) SignOut(ctx context.Context, accessToken string) error {
	if err := f.enter(ctx, OpSignOut); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, accessToken)
	return nil
}

func (f *Fake) Verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if err := f.enter(ctx, OpVerify); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.tokens[accessToken]
	if !ok {
		return nil, apperr.Unauthorized("invalid token")
	}
	cp := *identity
	return &cp, nil
}

func (f *Fake) Ping(ctx context.Context) error {
	return f.enter(ctx, OpPing)
}
