// Package testsupport provides shared helpers for package tests: per-test
// configs backed by temp directories and store construction with cleanup.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"minutebook/internal/config"
	"minutebook/internal/store"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Portal.BaseURL = "https://portal.test.invalid"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewMeeting inserts a meeting for tests using the provided store.
func NewMeeting(t testing.TB, st *store.Store, portalID, body string, date time.Time) *store.Meeting {
	t.Helper()

	meeting, err := st.UpsertMeeting(context.Background(), &store.Meeting{
		PortalID: portalID,
		Body:     body,
		Date:     date,
	})
	if err != nil {
		t.Fatalf("store.UpsertMeeting: %v", err)
	}
	return meeting
}
