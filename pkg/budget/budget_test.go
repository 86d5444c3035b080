package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

type record struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestEstimateTokens(t *testing.T) {
	b := New(6000)

	t.Run("scales with payload size", func(t *testing.T) {
		small := b.EstimateTokens(record{Name: "a"}, models.EncodingVerbose)
		large := b.EstimateTokens(record{Name: strings.Repeat("x", 400)}, models.EncodingVerbose)
		assert.Greater(t, large, small)
		assert.GreaterOrEqual(t, large, 100, "400 bytes is at least 100 tokens")
	})

	t.Run("compact halves long arrays", func(t *testing.T) {
		items := make([]record, 10)
		verbose := b.EstimateTokens(items, models.EncodingVerbose)
		compact := b.EstimateTokens(items, models.EncodingCompact)
		assert.Equal(t, verbose/2, compact)
	})

	t.Run("compact does not help short arrays", func(t *testing.T) {
		items := make([]record, 3)
		verbose := b.EstimateTokens(items, models.EncodingVerbose)
		compact := b.EstimateTokens(items, models.EncodingCompact)
		assert.Equal(t, verbose, compact)
	})

	t.Run("compact does not help single objects", func(t *testing.T) {
		verbose := b.EstimateTokens(record{Name: "a"}, models.EncodingVerbose)
		compact := b.EstimateTokens(record{Name: "a"}, models.EncodingCompact)
		assert.Equal(t, verbose, compact)
	})
}

func TestColumnar(t *testing.T) {
	t.Run("uniform records re-encode", func(t *testing.T) {
		items := []record{
			{Name: "a", Value: 1},
			{Name: "b", Value: 2},
			{Name: "c", Value: 3},
			{Name: "d", Value: 4},
			{Name: "e", Value: 5},
		}

		out, ok := Columnar(items)
		require.True(t, ok)
		assert.Equal(t, []string{"name", "value"}, out.Fields)
		require.Len(t, out.Rows, 5)
		assert.Equal(t, []any{"a", float64(1)}, out.Rows[0])
	})

	t.Run("too few records stays verbose", func(t *testing.T) {
		items := []record{{Name: "a"}, {Name: "b"}}
		_, ok := Columnar(items)
		assert.False(t, ok)
	})

	t.Run("mixed field sets stay verbose", func(t *testing.T) {
		items := []map[string]any{
			{"name": "a", "value": 1},
			{"name": "b", "value": 2},
			{"name": "c", "value": 3},
			{"name": "d", "value": 4},
			{"name": "e"},
		}
		_, ok := Columnar(items)
		assert.False(t, ok)
	})

	t.Run("non-array input stays verbose", func(t *testing.T) {
		_, ok := Columnar(record{Name: "a"})
		assert.False(t, ok)
	})
}

func TestFitList(t *testing.T) {
	sample := record{Name: "item-name", Value: 42}

	t.Run("everything fits under a large budget", func(t *testing.T) {
		b := New(100000)
		keep, truncated := b.FitList(50, sample, models.EncodingVerbose)
		assert.Equal(t, 50, keep)
		assert.False(t, truncated)
	})

	t.Run("tight budget truncates and reports it", func(t *testing.T) {
		b := New(200)
		keep, truncated := b.FitList(1000, sample, models.EncodingVerbose)
		assert.Less(t, keep, 1000)
		assert.GreaterOrEqual(t, keep, 1, "at least one item is always kept")
		assert.True(t, truncated)
	})

	t.Run("compact keeps more items than verbose", func(t *testing.T) {
		b := New(300)
		verboseKeep, _ := b.FitList(1000, sample, models.EncodingVerbose)
		compactKeep, _ := b.FitList(1000, sample, models.EncodingCompact)
		assert.GreaterOrEqual(t, compactKeep, verboseKeep)
	})

	t.Run("compact discount needs a columnar-sized result", func(t *testing.T) {
		// The budget only fits a handful of items, so the kept list
		// would fall below the columnar threshold and be rendered
		// verbose. The verbose estimate must govern the keep count.
		b := New(116)
		verboseKeep, _ := b.FitList(1000, sample, models.EncodingVerbose)
		compactKeep, truncated := b.FitList(1000, sample, models.EncodingCompact)
		assert.Less(t, compactKeep, compactMinRecords)
		assert.Equal(t, verboseKeep, compactKeep)
		assert.True(t, truncated)
	})

	t.Run("compact discount never applies to short lists", func(t *testing.T) {
		b := New(116)
		verboseKeep, _ := b.FitList(4, sample, models.EncodingVerbose)
		compactKeep, truncated := b.FitList(4, sample, models.EncodingCompact)
		assert.Equal(t, verboseKeep, compactKeep)
		assert.True(t, truncated)
	})

	t.Run("empty list", func(t *testing.T) {
		b := New(200)
		keep, truncated := b.FitList(0, sample, models.EncodingVerbose)
		assert.Equal(t, 0, keep)
		assert.False(t, truncated)
	})
}

func TestAnnotate(t *testing.T) {
	t.Run("truncation sets flag and original count", func(t *testing.T) {
		var meta models.ResponseMeta
		Annotate(&meta, 100, 20)
		assert.True(t, meta.Truncated)
		assert.Equal(t, 100, meta.OriginalCount)
	})

	t.Run("full result never claims truncation", func(t *testing.T) {
		var meta models.ResponseMeta
		Annotate(&meta, 20, 20)
		assert.False(t, meta.Truncated)
	})
}
