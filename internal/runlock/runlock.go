// Package runlock enforces single-writer access to a run directory.
// Two generate invocations against the same song would race on the
// shared artifact filenames, so the second acquirer fails fast.
package runlock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".coverforge.lock"

// Lock guards a run directory against concurrent pipeline runs.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock for the given run directory. The lock is not held
// until Acquire succeeds.
func New(runDir string) *Lock {
	path := filepath.Join(runDir, lockFileName)
	return &Lock{path: path, lock: flock.New(path)}
}

// Path reports the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. It fails when another
// process already holds it.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("run directory is locked by another coverforge process (%s)", l.path)
	}
	return nil
}

// Release drops the lock. Safe to call when the lock was never acquired.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
