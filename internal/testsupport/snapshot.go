package testsupport

import (
	"testing"

	"dialer/internal/config"
	"dialer/internal/snapshot"
)

// MustOpenSnapshot opens a snapshot.Store for tests and registers cleanup.
func MustOpenSnapshot(t testing.TB, cfg *config.Config) *snapshot.Store {
	t.Helper()

	store, err := snapshot.Open(cfg)
	if err != nil {
		t.Fatalf("snapshot.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
