package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageLockAcquire(t *testing.T) {
	lt := NewPackageLockTable()

	require.True(t, lt.Acquire(1))
	assert.False(t, lt.Acquire(1))
	// Khóa theo từng sinh viên, không chặn sinh viên khác
	assert.True(t, lt.Acquire(2))

	lt.release(1)
	assert.True(t, lt.Acquire(1))
}

func TestPackageLockTTLExpiry(t *testing.T) {
	lt := NewPackageLockTable()
	lt.ttl = 10 * time.Millisecond

	require.True(t, lt.Acquire(1))
	time.Sleep(25 * time.Millisecond)
	// Khóa quá TTL coi như mồ côi, request mới chiếm được
	assert.True(t, lt.Acquire(1))
}

func TestPackageLockReleaseAfterDelay(t *testing.T) {
	lt := NewPackageLockTable()
	lt.delay = 20 * time.Millisecond

	require.True(t, lt.Acquire(1))
	lt.ReleaseAfter(1)

	// Trong cửa sổ delay vẫn giữ, chặn double-submit
	assert.False(t, lt.Acquire(1))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, lt.Acquire(1))
}
