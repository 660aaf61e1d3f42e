package runlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"minutebook/internal/runlock"
	"minutebook/internal/services"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "minutebook.lock")

	lock, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	if _, err := runlock.Acquire(path); !errors.Is(err, runlock.ErrHeld) {
		t.Fatalf("expected ErrHeld for second acquisition, got %v", err)
	} else if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("held lock must classify as unavailable, got %v", err)
	}
}

func TestReleaseAllowsReacquisition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minutebook.lock")

	lock, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	again, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("reacquisition after release failed: %v", err)
	}
	if err := again.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	var nilLock *runlock.Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil release must be a no-op, got %v", err)
	}
}
