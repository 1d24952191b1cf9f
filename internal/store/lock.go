package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/roach88/vendorsync/internal/errors"
)

// LockFileName is the advisory lock file created in the output directory.
const LockFileName = ".vendorsync.lock"

// Lock is an exclusive advisory lock on an output directory.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the output directory lock without blocking. Fails with
// errors.ErrLocked when another process (or another Lock in this process)
// holds it.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", dir)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", dir)
	}
	if !locked {
		return nil, errors.WithHint(
			errors.Mark(errors.Newf("%s is in use by another vendorsync run", dir), errors.ErrLocked),
			"wait for the other run to finish; stages must not run concurrently",
		)
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks the directory. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
