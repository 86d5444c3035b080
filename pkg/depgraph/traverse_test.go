package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

func TestTransitiveClosure(t *testing.T) {
	objects := []models.Object{
		table("Sales"),
		col("Sales", "Amount"),
		metric("Base", "Sales", "SUM('Sales'[Amount])"),
		metric("Derived", "Sales", "[Base] * 2"),
		metric("Top", "Sales", "[Derived] + [Base]"),
	}
	idx := NewBuilder(nil, zap.NewNop()).Build(objects)

	t.Run("forward from top", func(t *testing.T) {
		ids, depth := idx.TransitiveClosure("metric:Top", DirectionForward)
		assert.ElementsMatch(t, []string{"metric:Derived", "metric:Base", "column:Sales.Amount"}, ids)
		// Breadth-first depth: Base is reached directly from Top, so the
		// diamond's long edge never contributes a deeper level.
		assert.Equal(t, 2, depth)
	})

	t.Run("reverse from column", func(t *testing.T) {
		ids, depth := idx.TransitiveClosure("column:Sales.Amount", DirectionReverse)
		assert.ElementsMatch(t, []string{"metric:Base", "metric:Derived", "metric:Top"}, ids)
		assert.Equal(t, 2, depth)
	})

	t.Run("leaf has empty closure", func(t *testing.T) {
		ids, depth := idx.TransitiveClosure("column:Sales.Amount", DirectionForward)
		assert.Empty(t, ids)
		assert.Equal(t, 0, depth)
	})

	t.Run("root never appears in result", func(t *testing.T) {
		ids, _ := idx.TransitiveClosure("metric:Top", DirectionForward)
		assert.NotContains(t, ids, "metric:Top")
	})
}

func TestTransitiveClosure_TerminatesOnCycle(t *testing.T) {
	objects := []models.Object{
		metric("A", "", "[B]"),
		metric("B", "", "[C]"),
		metric("C", "", "[A]"),
	}
	idx := NewBuilder(nil, zap.NewNop()).Build(objects)

	ids, _ := idx.TransitiveClosure("metric:A", DirectionForward)
	assert.ElementsMatch(t, []string{"metric:B", "metric:C"}, ids)
}
