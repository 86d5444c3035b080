package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestL2(t *testing.T) *L2 {
	t.Helper()
	l2, err := OpenL2("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { l2.Close() }) //nolint:errcheck
	return l2
}

func TestL2_SetGet(t *testing.T) {
	l2 := openTestL2(t)

	l2.Set("k", []byte("durable"), 0)

	got, ok := l2.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("durable"), got)
}

func TestL2_MissingKey(t *testing.T) {
	l2 := openTestL2(t)

	_, ok := l2.Get("absent")
	assert.False(t, ok)
}

func TestL2_TTLExpiry(t *testing.T) {
	l2 := openTestL2(t)

	l2.Set("k", []byte("v"), time.Second)
	_, ok := l2.Get("k")
	assert.True(t, ok, "entry readable inside its TTL window")
}

func TestL2_DiskPersistence(t *testing.T) {
	dir := t.TempDir()

	l2, err := OpenL2(dir, zap.NewNop())
	require.NoError(t, err)
	l2.Set("k", []byte("v"), 0)
	require.NoError(t, l2.Close())

	reopened, err := OpenL2(dir, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("k")
	require.True(t, ok, "entry must survive a reopen")
	assert.Equal(t, []byte("v"), got)
}
