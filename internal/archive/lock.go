package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSourceLocked is returned when another archive job holds the source lock.
var ErrSourceLocked = errors.New("another archive job is running for this source")

// SourceLock keeps a second job from archiving the same source tree.
type SourceLock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file for source inside lockDir.
func LockPath(lockDir, source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock"), nil
}

// LockSource acquires the lock for source without blocking.
func LockSource(lockDir, source string) (*SourceLock, error) {
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	path, err := LockPath(lockDir, source)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceLocked)
	}
	return &SourceLock{path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *SourceLock) Path() string { return l.path }

// Release unlocks the source.
func (l *SourceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
