package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_TryLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	holder := NewFileLock(path)

	unlock, err := holder.Lock()
	require.NoError(t, err)

	_, err = NewFileLock(path).TryLock()
	require.Error(t, err, "second lock must fail while the first is held")
	assert.Contains(t, err.Error(), "another opq process")

	require.NoError(t, unlock())

	unlock2, err := NewFileLock(path).TryLock()
	require.NoError(t, err)
	require.NoError(t, unlock2())
}

func TestFileLock_LockWaitsForRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", LockFileName)
	unlock, err := NewFileLock(path).Lock()
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		u, err := NewFileLock(path).Lock()
		if err == nil {
			_ = u()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while still held")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, unlock())
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}
