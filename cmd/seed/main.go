// Package main seeds the embedded gateway with demo accounts and artifacts.
//
// Usage:
//
//	go run ./cmd/seed
//	go run ./cmd/seed --data-path ~/.graphia --artifacts 40
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/graphia/graphia-server/internal/auth"
	"github.com/graphia/graphia-server/internal/domain"
	apperr "github.com/graphia/graphia-server/internal/errors"
	"github.com/graphia/graphia-server/internal/gateway"
	"github.com/graphia/graphia-server/internal/gateway/sqlite"
	"github.com/graphia/graphia-server/internal/logger"
)

var (
	dataPath  = flag.String("data-path", "", "Directory holding graphia.db (default: $DATA_PATH or ~/.graphia)")
	artifacts = flag.Int("artifacts", 24, "Number of artifacts to create")
	password  = flag.String("password", "graphia-demo", "Password for the demo accounts")
)

var demoUsers = []string{
	"hanako@example.com",
	"taro@example.com",
	"yuki@example.com",
}

var (
	titles  = []string{"Keynote", "Design review", "Sprint retro", "Panel discussion", "Lightning talks", "Workshop", "Town hall", "Product demo"}
	tags    = []string{"ai", "design", "engineering", "meetup", "retro", "product", "talk", "workshop"}
	prompts = []string{"claude", "gpt", "gemini", ""}
)

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Level: slog.LevelInfo})

	path := *dataPath
	if path == "" {
		path = os.Getenv("DATA_PATH")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.WithError(err).Fatal("Failed to resolve home directory")
		}
		path = filepath.Join(home, ".graphia")
	}

	log = log.WithField("data_path", path)

	key, err := auth.LoadOrGenerateKey(path)
	if err != nil {
		log.WithError(err).Fatal("Failed to load auth key")
	}
	tokens, err := auth.NewTokenService(key, time.Hour)
	if err != nil {
		log.WithError(err).Fatal("Failed to create token service")
	}

	dbPath := filepath.Join(path, "graphia.db")
	log.Info("Opening database", "path", dbPath)

	store, err := sqlite.Open(dbPath, tokens, logger.Discard())
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}
	defer store.Close()

	ctx := context.Background()

	identities := make([]domain.Identity, 0, len(demoUsers))
	for _, email := range demoUsers {
		identity, err := signInOrUp(ctx, store, email, *password)
		if err != nil {
			log.WithField("email", email).WithError(err).Fatal("Failed to prepare user")
		}
		identities = append(identities, *identity)
		log.Info("User ready", "email", email, "user_id", identity.UserID)
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	created := 0
	for n := range *artifacts {
		owner := identities[rng.IntN(len(identities))]
		ownerCtx := gateway.WithIdentity(ctx, &owner)

		title := fmt.Sprintf("%s #%d", titles[rng.IntN(len(titles))], n+1)
		a := gateway.NewArtifact{
			UserID:      owner.UserID,
			Title:       title,
			Description: "Graphic recording of " + title,
			Content:     sampleHTML(title),
			Tags:        pickTags(rng),
			PromptName:  domain.OptionalString(prompts[rng.IntN(len(prompts))]),
		}

		artifactID, err := store.InsertArtifact(ownerCtx, a)
		if err != nil {
			log.WithError(err).Warn("Failed to insert artifact", "title", title)
			continue
		}
		if err := store.SetViews(ownerCtx, artifactID, rng.IntN(200)); err != nil {
			log.WithError(err).Warn("Failed to set views", "artifact_id", artifactID)
		}
		log.Info("Artifact created", "artifact_id", artifactID, "title", title, "owner", owner.Email)
		created++
	}

	log.Info("Seeding complete", "artifacts", created, "password", *password)
}

func signInOrUp(ctx context.Context, store *sqlite.Store, email, pw string) (*domain.Identity, error) {
	sess, err := store.SignUp(ctx, email, pw)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		sess, err = store.SignIn(ctx, email, pw)
	}
	if err != nil {
		return nil, err
	}
	return &sess.Identity, nil
}

func pickTags(rng *rand.Rand) domain.TagSet {
	var set domain.TagSet
	for range 1 + rng.IntN(3) {
		set = set.Add(tags[rng.IntN(len(tags))])
	}
	return set
}

func sampleHTML(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>%[1]s</title></head>
<body>
<h1>%[1]s</h1>
<p>Sketch notes captured live during the session.</p>
<ul><li>Opening</li><li>Main points</li><li>Next steps</li></ul>
</body>
</html>
`, title)
}
