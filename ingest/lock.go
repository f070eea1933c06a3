package ingest

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// LockFile is the name of the lock file kept in the data folder.
const LockFile = ".bagingest.lock"

// Lock takes an advisory lock on the data folder so two runs on one host do
// not work on the same submissions. It fails with ErrLocked at once if
// another process holds the lock. Call the returned function to release it.
func Lock(dataFolder string) (func() error, error) {
	fl := flock.New(filepath.Join(dataFolder, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrap(err, "lock data folder")
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}
