package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/cache"
	"github.com/semlens-inc/semlens-engine/pkg/export"
	"github.com/semlens-inc/semlens-engine/pkg/models"
	"github.com/semlens-inc/semlens-engine/pkg/provider"
)

// testModel seeds a provider with three tables, a two-metric chain, and
// a relationship: enough surface for every query path.
func testModel() *provider.Fake {
	f := provider.NewFake()
	f.Objects = []models.Object{
		{ID: "table:T1", Type: models.ObjectTypeTable, Name: "T1"},
		{ID: "table:T2", Type: models.ObjectTypeTable, Name: "T2"},
		{ID: "table:T3", Type: models.ObjectTypeTable, Name: "T3"},
		{ID: "column:T1.Amount", Type: models.ObjectTypeColumn, Name: "Amount", TableName: "T1"},
		{ID: "column:T1.Key", Type: models.ObjectTypeColumn, Name: "Key", TableName: "T1"},
		{ID: "column:T2.Key", Type: models.ObjectTypeColumn, Name: "Key", TableName: "T2"},
		{ID: "column:T2.Label", Type: models.ObjectTypeColumn, Name: "Label", TableName: "T2"},
		{ID: "column:T3.Note", Type: models.ObjectTypeColumn, Name: "Note", TableName: "T3"},
		{ID: "metric:M1", Type: models.ObjectTypeMetric, Name: "M1", TableName: "T1",
			Definition: "SUM('T1'[Amount])"},
		{ID: "metric:M2", Type: models.ObjectTypeMetric, Name: "M2", TableName: "T1",
			Definition: "[M1] * 2"},
		{ID: "relationship:t1_t2", Type: models.ObjectTypeRelationship, Name: "t1_t2",
			Endpoints: &models.RelationshipEndpoints{
				FromTable: "T1", FromColumn: "Key",
				ToTable: "T2", ToColumn: "Key", IsActive: true,
			}},
		{ID: "role:mask", Type: models.ObjectTypeRole, Name: "mask", TableName: "T2",
			Definition: "'T2'[Label] <> \"internal\""},
	}

	rows := make([][]any, 150)
	for i := range rows {
		rows[i] = []any{i, "note"}
	}
	f.Samples["T3"] = &models.SampleFile{
		TableName: "T3",
		Columns:   []string{"id", "Note"},
		Rows:      rows,
	}
	return f
}

// buildTestPackage exports the test model into root and returns the
// published package id.
func buildTestPackage(t *testing.T, root string) string {
	t.Helper()
	opts := export.DefaultOptions()
	opts.SampleRowCount = 200
	opts.SourceName = "query-test"
	meta, err := export.NewBuilder(testModel(), root, zap.NewNop()).BuildPackage(context.Background(), opts)
	require.NoError(t, err)
	return meta.PackageID.String()
}

func newTestEngine(t *testing.T, root string) *Engine {
	t.Helper()
	tiered := cache.NewTiered(cache.NewL1(256, 1<<20), nil, nil, zap.NewNop())
	return NewEngine(root, tiered, budget.New(6000), zap.NewNop())
}

func TestReadMetadata(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	result := e.ReadMetadata(pkgID)
	require.True(t, result.Success)
	require.NotNil(t, result.Package)
	assert.Equal(t, pkgID, result.Package.PackageID.String())
	assert.Equal(t, 3, result.Package.ObjectCounts[models.ObjectTypeTable])
	assert.Equal(t, 2, result.Package.ObjectCounts[models.ObjectTypeMetric])

	// A second read is served from cache with the same content.
	again := e.ReadMetadata(pkgID)
	require.True(t, again.Success)
	assert.Equal(t, result.Package.PackageID, again.Package.PackageID)
}

func TestFindObjects(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	t.Run("metrics fit one batch", func(t *testing.T) {
		result := e.FindObjects(pkgID, "metric", nil, 10, 1, models.EncodingVerbose)
		require.True(t, result.Success)
		require.Len(t, result.Objects, 2)
		require.NotNil(t, result.Metadata.Batch)
		assert.False(t, result.Metadata.Batch.HasMore)
		assert.Equal(t, 1, result.Metadata.Batch.TotalBatches)
	})

	t.Run("identical calls return identical pages", func(t *testing.T) {
		a := e.FindObjects(pkgID, "column", nil, 2, 1, models.EncodingVerbose)
		b := e.FindObjects(pkgID, "column", nil, 2, 1, models.EncodingVerbose)
		require.True(t, a.Success)
		assert.Equal(t, a.Objects, b.Objects)
	})

	t.Run("pagination partitions without overlap", func(t *testing.T) {
		p1 := e.FindObjects(pkgID, "column", nil, 2, 1, models.EncodingVerbose)
		p2 := e.FindObjects(pkgID, "column", nil, 2, 2, models.EncodingVerbose)
		p3 := e.FindObjects(pkgID, "column", nil, 2, 3, models.EncodingVerbose)
		require.True(t, p1.Success)
		require.True(t, p2.Success)
		require.True(t, p3.Success)
		assert.True(t, p1.Metadata.Batch.HasMore)
		assert.True(t, p2.Metadata.Batch.HasMore)
		assert.False(t, p3.Metadata.Batch.HasMore)
		assert.Equal(t, 3, p1.Metadata.Batch.TotalBatches)

		seen := make(map[string]bool)
		for _, o := range append(append(p1.Objects, p2.Objects...), p3.Objects...) {
			assert.False(t, seen[o.ID], "object %s in two batches", o.ID)
			seen[o.ID] = true
		}
		assert.Len(t, seen, 5)
	})

	t.Run("name filter", func(t *testing.T) {
		result := e.FindObjects(pkgID, "column", map[string]any{"name_contains": "amo"}, 10, 1, models.EncodingVerbose)
		require.True(t, result.Success)
		require.Len(t, result.Objects, 1)
		assert.Equal(t, "column:T1.Amount", result.Objects[0].ID)
	})

	t.Run("unused filter", func(t *testing.T) {
		result := e.FindObjects(pkgID, "column", map[string]any{"unused": true}, 10, 1, models.EncodingVerbose)
		require.True(t, result.Success)
		require.Len(t, result.Objects, 1)
		assert.Equal(t, "column:T3.Note", result.Objects[0].ID)
	})

	t.Run("invalid object type", func(t *testing.T) {
		result := e.FindObjects(pkgID, "widget", nil, 10, 1, models.EncodingVerbose)
		require.False(t, result.Success)
		assert.Equal(t, "invalid_request", result.Error.Category)
	})

	t.Run("invalid batch number", func(t *testing.T) {
		result := e.FindObjects(pkgID, "metric", nil, 10, 0, models.EncodingVerbose)
		require.False(t, result.Success)
		assert.Equal(t, "invalid_request", result.Error.Category)
	})

	t.Run("batch past the end is empty not an error", func(t *testing.T) {
		result := e.FindObjects(pkgID, "metric", nil, 10, 5, models.EncodingVerbose)
		require.True(t, result.Success)
		assert.Empty(t, result.Objects)
		assert.False(t, result.Metadata.Batch.HasMore)
	})

	t.Run("compact encoding emits columnar for uniform lists", func(t *testing.T) {
		result := e.FindObjects(pkgID, "column", nil, 20, 1, models.EncodingCompact)
		require.True(t, result.Success)
		require.NotNil(t, result.Columnar, "5 uniform entries qualify for compact")
		assert.Empty(t, result.Objects)
		assert.Equal(t, models.EncodingCompact, result.Metadata.Encoding)
		assert.Len(t, result.Columnar.Rows, 5)
	})

	t.Run("compact falls back to verbose for short lists", func(t *testing.T) {
		result := e.FindObjects(pkgID, "metric", nil, 20, 1, models.EncodingCompact)
		require.True(t, result.Success)
		assert.Nil(t, result.Columnar)
		assert.Len(t, result.Objects, 2)
		assert.Equal(t, models.EncodingVerbose, result.Metadata.Encoding)
	})
}

func TestGetObjectDefinition(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	t.Run("metric body round trips", func(t *testing.T) {
		result := e.GetObjectDefinition(pkgID, "metric", "M1")
		require.True(t, result.Success)
		assert.Equal(t, "SUM('T1'[Amount])", result.Definition)
		assert.Contains(t, result.DependsOn, "column:T1.Amount")
		assert.Contains(t, result.UsedBy, "metric:M2")
	})

	t.Run("table-qualified column lookup", func(t *testing.T) {
		result := e.GetObjectDefinition(pkgID, "column", "T1.Amount")
		require.True(t, result.Success)
		assert.Empty(t, result.Definition, "columns have no definition body")
		assert.Contains(t, result.UsedBy, "metric:M1")
	})

	t.Run("unknown name is structured not-found", func(t *testing.T) {
		result := e.GetObjectDefinition(pkgID, "metric", "Nope")
		require.False(t, result.Success)
		require.NotNil(t, result.Error)
		assert.Equal(t, "not_found", result.Error.Category)
		assert.NotEmpty(t, result.Error.Hint)
	})
}

func TestAnalyzeDependencies(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	t.Run("forward closure", func(t *testing.T) {
		result := e.AnalyzeDependencies(pkgID, "M2", "forward")
		require.True(t, result.Success)
		assert.Equal(t, "metric:M2", result.Root)
		assert.ElementsMatch(t, []string{"metric:M1", "column:T1.Amount"}, result.Objects)
		assert.Equal(t, 2, result.MaxDepth)
	})

	t.Run("reverse closure", func(t *testing.T) {
		result := e.AnalyzeDependencies(pkgID, "T1.Amount", "reverse")
		require.True(t, result.Success)
		assert.ElementsMatch(t, []string{"metric:M1", "metric:M2"}, result.Objects)
	})

	t.Run("invalid direction", func(t *testing.T) {
		result := e.AnalyzeDependencies(pkgID, "M1", "sideways")
		require.False(t, result.Success)
		assert.Equal(t, "invalid_request", result.Error.Category)
	})
}

func TestAnalyze(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	t.Run("unused columns found", func(t *testing.T) {
		result := e.Analyze(pkgID, []string{FocusUnusedColumns}, BatchConfig{}, "")
		require.True(t, result.Success)
		require.Len(t, result.Findings, 1)
		assert.Equal(t, "column:T3.Note", result.Findings[0].ObjectID)
		assert.False(t, result.Cached)
	})

	t.Run("repeat call is served from cache", func(t *testing.T) {
		first := e.Analyze(pkgID, []string{FocusUnusedMetrics}, BatchConfig{}, "")
		require.True(t, first.Success)
		assert.False(t, first.Cached)

		second := e.Analyze(pkgID, []string{FocusUnusedMetrics}, BatchConfig{}, "")
		require.True(t, second.Success)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Findings, second.Findings)
	})

	t.Run("unknown focus area", func(t *testing.T) {
		result := e.Analyze(pkgID, []string{"vibes"}, BatchConfig{}, "")
		require.False(t, result.Success)
		assert.Equal(t, "invalid_request", result.Error.Category)
	})

	t.Run("severity filter", func(t *testing.T) {
		result := e.Analyze(pkgID, nil, BatchConfig{}, "warn")
		require.True(t, result.Success)
		for _, f := range result.Findings {
			assert.Equal(t, "warn", f.Severity)
		}
	})
}

func TestGetSampleRows(t *testing.T) {
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	t.Run("max rows caps the result", func(t *testing.T) {
		result := e.GetSampleRows(pkgID, "T3", 100, models.EncodingVerbose)
		require.True(t, result.Success)
		assert.Equal(t, "T3", result.TableName)
		assert.LessOrEqual(t, len(result.Rows), 100)
		assert.NotEmpty(t, result.Rows)
	})

	t.Run("compact returns columnar rows", func(t *testing.T) {
		result := e.GetSampleRows(pkgID, "T3", 50, models.EncodingCompact)
		require.True(t, result.Success)
		require.NotNil(t, result.Columnar)
		assert.Equal(t, []string{"id", "Note"}, result.Columnar.Fields)
		assert.Empty(t, result.Rows)
	})

	t.Run("unknown table is structured not-found", func(t *testing.T) {
		result := e.GetSampleRows(pkgID, "Nope", 10, models.EncodingVerbose)
		require.False(t, result.Success)
		assert.Equal(t, "not_found", result.Error.Category)
	})
}

func TestHandle_MissingPackage(t *testing.T) {
	e := newTestEngine(t, t.TempDir())

	_, err := e.Handle("00000000-0000-0000-0000-000000000000")
	require.Error(t, err)

	result := e.ReadMetadata("00000000-0000-0000-0000-000000000000")
	require.False(t, result.Success)
	assert.Equal(t, "not_found", result.Error.Category)
	assert.NotEmpty(t, result.Error.Hint)
}

func TestLatestPackageID(t *testing.T) {
	root := t.TempDir()

	t.Run("empty root", func(t *testing.T) {
		e := newTestEngine(t, root)
		_, err := e.LatestPackageID()
		require.Error(t, err)
	})

	first := buildTestPackage(t, root)
	time.Sleep(5 * time.Millisecond)
	second := buildTestPackage(t, root)

	t.Run("most recent identity wins", func(t *testing.T) {
		e := newTestEngine(t, root)
		latest, err := e.LatestPackageID()
		require.NoError(t, err)
		assert.Equal(t, second, latest)
		assert.NotEqual(t, first, latest)
	})

	t.Run("empty package id resolves to latest", func(t *testing.T) {
		e := newTestEngine(t, root)
		result := e.ReadMetadata("")
		require.True(t, result.Success)
		assert.Equal(t, second, result.Package.PackageID.String())
	})
}

func TestEndToEnd(t *testing.T) {
	// Export a small model, then walk it the way an agent session would:
	// metadata, search, definitions, dependency traversal, analysis,
	// samples.
	root := t.TempDir()
	pkgID := buildTestPackage(t, root)
	e := newTestEngine(t, root)

	meta := e.ReadMetadata(pkgID)
	require.True(t, meta.Success)
	assert.Greater(t, meta.Package.EdgeCount, 0)

	metrics := e.FindObjects(pkgID, "metric", nil, 10, 1, models.EncodingVerbose)
	require.True(t, metrics.Success)
	require.Len(t, metrics.Objects, 2)
	assert.False(t, metrics.Metadata.Batch.HasMore)

	// The exported reverse index must answer "what uses M1" without a
	// forward scan.
	usage := e.AnalyzeDependencies(pkgID, "M1", "reverse")
	require.True(t, usage.Success)
	assert.Contains(t, usage.Objects, "metric:M2")

	def := e.GetObjectDefinition(pkgID, "metric", "M2")
	require.True(t, def.Success)
	assert.Equal(t, "[M1] * 2", def.Definition)

	analysis := e.Analyze(pkgID, []string{FocusUnusedColumns}, BatchConfig{BatchSize: 10, BatchNumber: 1}, "")
	require.True(t, analysis.Success)
	cachedAnalysis := e.Analyze(pkgID, []string{FocusUnusedColumns}, BatchConfig{BatchSize: 10, BatchNumber: 1}, "")
	assert.True(t, cachedAnalysis.Cached)

	samples := e.GetSampleRows(pkgID, "T3", 100, models.EncodingVerbose)
	require.True(t, samples.Success)
	assert.LessOrEqual(t, len(samples.Rows), 100)
}
