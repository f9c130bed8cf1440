package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// LockFileName is the advisory lock taken for every load-mutate-save cycle.
const LockFileName = ".opq.lock"

// FileLock is an exclusive advisory lock on a file. Lock blocks until any
// other holder releases it.
type FileLock struct {
	path string
}

// NewFileLock creates a FileLock on path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock acquires the lock (LOCK_EX) and returns a function that releases it.
// The lock file itself is left in place so waiting processes keep contending
// on the same inode.
func (l *FileLock) Lock() (unlock func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquiring file lock: %w", err)
	}

	return func() error {
		defer func() { _ = f.Close() }()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// TryLock acquires the lock without blocking. It fails if another process
// holds it.
func (l *FileLock) TryLock() (unlock func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquiring file lock (another opq process may be running): %w", err)
	}
	return func() error {
		defer func() { _ = f.Close() }()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
