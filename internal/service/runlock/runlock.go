// Package runlock guards against overlapping publisher runs. Two concurrent
// runs would each create their own draft release, so the CLI takes a file
// lock for the duration of a publish.
package runlock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// errAlreadyLocked is returned when another run holds the lock.
var errAlreadyLocked = errors.New("another publisher run is in progress")

// Lock is a held run lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock at the given path without blocking. It fails if
// another process (or another handle in this one) already holds it.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	if !locked {
		return nil, fmt.Errorf("%w (lock file: %s)", errAlreadyLocked, path)
	}

	return &Lock{fl: fl}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
