// Package runlock enforces single-instance execution across concurrent
// invocations, including cron-scheduled ones. The lock is an OS file lock,
// so a crashed process never leaves the archive wedged: the kernel releases
// it when the process dies.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"minutebook/internal/services"
)

// ErrHeld reports that another process holds the run lock.
var ErrHeld = errors.New("run lock held by another process")

// Lock is an acquired exclusive run lock.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire takes the exclusive run lock at path without blocking. A lock held
// elsewhere is a fatal condition for the caller, so ErrHeld carries the
// unavailable marker.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "runlock", "acquire", "create lock directory", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "runlock", "acquire", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", services.ErrUnavailable, ErrHeld, path)
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release gives up the lock. Safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
