package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTiered_L1Hit(t *testing.T) {
	c := NewTiered(NewL1(64, 1<<20), nil, nil, zap.NewNop())

	c.Set("k", []byte("v"), CategoryStatic)

	got, ok := c.Get("k", CategoryStatic)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestTiered_L2Promotion(t *testing.T) {
	l1 := NewL1(64, 1<<20)
	l2 := openTestL2(t)
	c := NewTiered(l1, l2, nil, zap.NewNop())

	// Seed L2 directly, bypassing L1.
	l2.Set("k", []byte("v"), 0)

	got, ok := c.Get("k", CategoryStatic)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	// The hit must now be resident in L1.
	promoted, ok := l1.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), promoted)
}

func TestTiered_SetWritesBothTiers(t *testing.T) {
	l1 := NewL1(64, 1<<20)
	l2 := openTestL2(t)
	c := NewTiered(l1, l2, nil, zap.NewNop())

	c.Set("k", []byte("v"), CategoryStatic)

	_, ok := l1.Get("k")
	assert.True(t, ok)
	_, ok = l2.Get("k")
	assert.True(t, ok)
}

func TestTiered_TotalMiss(t *testing.T) {
	c := NewTiered(NewL1(64, 1<<20), openTestL2(t), nil, zap.NewNop())

	_, ok := c.Get("absent", CategoryAnalysis)
	assert.False(t, ok)
}

func TestSignature(t *testing.T) {
	t.Run("parameter order does not matter", func(t *testing.T) {
		a := Signature("pkg-1", "find_objects", map[string]any{"type": "metric", "batch": 1})
		b := Signature("pkg-1", "find_objects", map[string]any{"batch": 1, "type": "metric"})
		assert.Equal(t, a, b)
	})

	t.Run("package identity changes the key", func(t *testing.T) {
		a := Signature("pkg-1", "find_objects", map[string]any{"type": "metric"})
		b := Signature("pkg-2", "find_objects", map[string]any{"type": "metric"})
		assert.NotEqual(t, a, b)
	})

	t.Run("parameter values change the key", func(t *testing.T) {
		a := Signature("pkg-1", "analyze", map[string]any{"focus": "unused_columns"})
		b := Signature("pkg-1", "analyze", map[string]any{"focus": "complexity"})
		assert.NotEqual(t, a, b)
	})

	t.Run("operation changes the key", func(t *testing.T) {
		a := Signature("pkg-1", "read_metadata", nil)
		b := Signature("pkg-1", "analyze", nil)
		assert.NotEqual(t, a, b)
	})
}
