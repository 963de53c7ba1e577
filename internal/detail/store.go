package detail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	apperr "github.com/graphia/graphia-server/internal/errors"
)

// DraftStore persists edit sessions between requests.
type DraftStore interface {
	// Get returns the session or an ErrNotFound-coded error.
	Get(ctx context.Context, userID, artifactID string) (*EditSession, error)
	Put(ctx context.Context, userID, artifactID string, sess EditSession) error
	// Delete removes the session; a missing session is not an error.
	Delete(ctx context.Context, userID, artifactID string) error
}

const draftPrefix = "draft:"

func draftKey(userID, artifactID string) []byte {
	return []byte(draftPrefix + userID + ":" + artifactID)
}

// BadgerDraftStore keeps edit sessions in Badger. Entries expire after the TTL.
type BadgerDraftStore struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// OpenBadgerDraftStore opens (or creates) the draft database at path.
func OpenBadgerDraftStore(path string, ttl time.Duration, logger *slog.Logger) (*BadgerDraftStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	return openBadger(opts, ttl, logger)
}

// NewInMemoryDraftStore is a draft store that lives only as long as the process.
func NewInMemoryDraftStore(ttl time.Duration, logger *slog.Logger) (*BadgerDraftStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts, ttl, logger)
}

func openBadger(opts badger.Options, ttl time.Duration, logger *slog.Logger) (*BadgerDraftStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft store: %w", err)
	}
	logger.Info("draft store opened", "path", opts.Dir, "in_memory", opts.InMemory, "ttl", ttl)
	return &BadgerDraftStore{db: db, ttl: ttl, logger: logger}, nil
}

// Close closes the database.
func (s *BadgerDraftStore) Close() error {
	return s.db.Close()
}

// Get implements DraftStore.
func (s *BadgerDraftStore) Get(_ context.Context, userID, artifactID string) (*EditSession, error) {
	var sess EditSession
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(userID, artifactID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, apperr.NotFound("no edit session")
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return &sess, nil
}

// Put implements DraftStore. Every write restarts the TTL.
func (s *BadgerDraftStore) Put(_ context.Context, userID, artifactID string, sess EditSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(draftKey(userID, artifactID), data).WithTTL(s.ttl))
	})
}

// Delete implements DraftStore.
func (s *BadgerDraftStore) Delete(_ context.Context, userID, artifactID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(draftKey(userID, artifactID))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// CollectGarbage reclaims value log space held by expired and deleted drafts.
// It is a no-op for in-memory stores.
func (s *BadgerDraftStore) CollectGarbage() error {
	for {
		err := s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
			return nil
		default:
			return fmt.Errorf("draft gc: %w", err)
		}
	}
}
