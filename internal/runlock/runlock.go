package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created in the output directory.
const FileName = ".jobsieve.lock"

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("another jobsieve run is in progress")

// Lock is a held run lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes an exclusive, non-blocking lock on dir. It fails with
// ErrLocked if another process holds it, so two runs never write the same
// dataset at once.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, FileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. The file is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
