package testsupport

import (
	"context"
	"testing"

	"spool/internal/config"
	"spool/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEpisode seeds one pending episode for tests using the provided store.
// An empty batchID enqueues the episode without batch membership.
func NewEpisode(t testing.TB, store *queue.Store, batchID string, seed queue.EpisodeSeed) *queue.Item {
	t.Helper()

	item, err := store.NewEpisode(context.Background(), batchID, seed)
	if err != nil {
		t.Fatalf("store.NewEpisode: %v", err)
	}
	return item
}
