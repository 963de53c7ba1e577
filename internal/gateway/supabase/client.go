// Package supabase is the hosted Remote Data Gateway. Every call is one
// PostgREST or GoTrue round trip made with the caller's access token, so the
// backend's row-level security decides what each user may read and write.
package supabase

import (
	"context"
	"fmt"
	"log/slog"

	supa "github.com/supabase-community/supabase-go"

	"github.com/graphia/graphia-server/internal/gateway"
)

// Table, view and function names on the hosted backend.
const (
	tableFiles         = "html_files"
	tableProfiles      = "profiles"
	viewRankedByViews  = "ranked_files_by_views"
	rpcTagRankings     = "rpc/get_tag_rankings"
	rpcPromptRankings  = "rpc/get_prompt_rankings"
	fileColumnsWithOwn = "*, profiles(email, username)"
)

// Client implements gateway.Gateway against a Supabase project.
type Client struct {
	url    string
	key    string
	anon   *supa.Client
	logger *slog.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New creates a gateway for the project at url using its anon key.
func New(url, anonKey string, logger *slog.Logger) (*Client, error) {
	anon, err := supa.NewClient(url, anonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Client{
		url:    url,
		key:    anonKey,
		anon:   anon,
		logger: logger,
	}, nil
}

// clientFor returns a client acting as the caller attached to ctx, or the
// anonymous client when there is none. The underlying SDK does not take a
// context, so a canceled ctx is checked before the request goes out.
func (c *Client) clientFor(ctx context.Context) (*supa.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	identity := gateway.IdentityFrom(ctx)
	if identity == nil || identity.AccessToken == "" {
		return c.anon, nil
	}
	return c.withToken(identity.AccessToken)
}

func (c *Client) withToken(accessToken string) (*supa.Client, error) {
	client, err := supa.NewClient(c.url, c.key, &supa.ClientOptions{
		Headers: map[string]string{"Authorization": "Bearer " + accessToken},
	})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

// Ping issues the cheapest possible read.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := c.anon.From(tableFiles).Select("id", "", false).Limit(1, "").Execute()
	return restError(err, "ping")
}
