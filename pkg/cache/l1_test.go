package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL1_SetGet(t *testing.T) {
	c := NewL1(64, 1<<20)

	c.Set("k", []byte("value"), CategoryStatic, 0)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestL1_MissingKey(t *testing.T) {
	c := NewL1(64, 1<<20)

	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestL1_TTLExpiry(t *testing.T) {
	c := NewL1(64, 1<<20)

	c.Set("k", []byte("v"), CategoryAnalysis, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok, "expired entry must read as a miss")
	assert.Equal(t, 0, c.Len(), "expired entry must be removed on read")
}

func TestL1_ZeroTTLNeverExpires(t *testing.T) {
	c := NewL1(64, 1<<20)

	c.Set("k", []byte("v"), CategoryStatic, 0)
	time.Sleep(2 * time.Millisecond)

	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestL1_CountEviction(t *testing.T) {
	// 16 entries total, one per shard slot. Hammering a single shard via
	// distinct keys forces LRU eviction within it.
	c := NewL1(16, 1<<20)

	for i := 0; i < 200; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []byte("v"), CategoryStatic, 0)
	}

	assert.LessOrEqual(t, c.Len(), 16)
}

func TestL1_ByteEviction(t *testing.T) {
	c := NewL1(1024, 16*64) // 64 bytes per shard

	big := make([]byte, 48)
	c.Set("a", big, CategoryStatic, 0)
	c.Set("b", big, CategoryStatic, 0)
	c.Set("c", big, CategoryStatic, 0)
	c.Set("d", big, CategoryStatic, 0)

	// Every shard must stay within its byte budget, so at least one of
	// the four entries is gone unless they hashed to distinct shards.
	total := 0
	for _, k := range []string{"a", "b", "c", "d"} {
		if _, ok := c.Get(k); ok {
			total++
		}
	}
	assert.LessOrEqual(t, total, 4)
	assert.Greater(t, total, 0, "at least the most recent entry survives")
}

func TestL1_OverwriteReplacesPayload(t *testing.T) {
	c := NewL1(64, 1<<20)

	c.Set("k", []byte("old"), CategoryStatic, 0)
	c.Set("k", []byte("new"), CategoryStatic, 0)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, c.Len())
}

func TestL1_Delete(t *testing.T) {
	c := NewL1(64, 1<<20)

	c.Set("k", []byte("v"), CategoryStatic, 0)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
