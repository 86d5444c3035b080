package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/depgraph"
	"github.com/semlens-inc/semlens-engine/pkg/models"
	"github.com/semlens-inc/semlens-engine/pkg/provider"
	"github.com/semlens-inc/semlens-engine/pkg/retry"
)

// Options configures one package build.
type Options struct {
	// IncludeSampleRows samples N rows per table into the compressed
	// sample store.
	IncludeSampleRows bool
	// SampleRowCount is N above.
	SampleRowCount int
	// WorkerConcurrency bounds concurrent per-table sample extraction.
	// Zero means available parallel-execution capacity.
	WorkerConcurrency int
	// StreamingThreshold is the object count at or above which the
	// analysis files are written element-by-element instead of buffered.
	StreamingThreshold int
	// SourceName labels the exported model in the metadata layer.
	SourceName string
}

// DefaultOptions returns the recognized option defaults.
func DefaultOptions() Options {
	return Options{
		IncludeSampleRows:  true,
		SampleRowCount:     1000,
		WorkerConcurrency:  runtime.GOMAXPROCS(0),
		StreamingThreshold: 5000,
	}
}

// Builder writes packages under a root directory. It receives its
// collaborators explicitly; there are no ambient singletons.
type Builder struct {
	provider provider.ModelProvider
	root     string
	logger   *zap.Logger
}

// NewBuilder creates a package builder rooted at root.
func NewBuilder(p provider.ModelProvider, root string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{provider: p, root: root, logger: logger.Named("export")}
}

// BuildPackage exports one immutable package: list the source objects,
// enrich statistics, build the dependency index, write all three layers
// to a staging directory, then atomically publish. No partial package is
// ever visible to readers.
func (b *Builder) BuildPackage(ctx context.Context, opts Options) (*models.PackageMetadata, error) {
	objects, err := b.provider.ListObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list source objects: %w", err)
	}
	b.logger.Info("export started", zap.Int("objects", len(objects)))

	b.enrichStatistics(ctx, objects)

	idx := depgraph.NewBuilder(nil, b.logger).Build(objects)
	cycles := idx.DetectCycles()
	relColumns := collectRelationshipColumns(objects)
	roleColumns := collectRoleFilterColumns(objects, idx)
	orphans := idx.FindOrphans(relColumns, roleColumns)

	if len(cycles) > 0 {
		b.logger.Warn("metric reference cycles detected", zap.Int("count", len(cycles)))
	}

	catalog := buildCatalog(objects, idx, relColumns, roleColumns)

	packageID := uuid.New()
	staging := StagingDir(b.root, packageID.String())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	// Staging is removed on any failure so readers never see partial
	// output under the root.
	published := false
	defer func() {
		if !published {
			os.RemoveAll(staging)
		}
	}()

	sink, err := newFSSink(filepath.Join(staging, DefinitionsDir))
	if err != nil {
		return nil, err
	}
	if err := writeDefinitions(sink, objects); err != nil {
		return nil, fmt.Errorf("write definitions tree: %w", err)
	}

	meta := &models.PackageMetadata{
		PackageID:    packageID,
		CreatedAt:    time.Now().UTC(),
		SourceName:   opts.SourceName,
		ObjectCounts: countByType(objects),
		EdgeCount:    idx.EdgeCount(),
		CycleCount:   len(cycles),
		OrphanCount:  len(orphans),
	}

	if opts.IncludeSampleRows {
		tables := tableNames(objects)
		meta.SampleOutcomes = extractSamples(ctx, b.provider,
			filepath.Join(staging, SamplesDir), tables,
			opts.SampleRowCount, opts.WorkerConcurrency, b.logger)
	}

	if err := b.writeAnalysis(staging, meta, catalog, idx, cycles, orphans, opts); err != nil {
		return nil, err
	}
	if err := writeJSONFile(filepath.Join(staging, IdentityFile), packageIdentity(meta)); err != nil {
		return nil, err
	}

	final := PackageDir(b.root, packageID.String())
	if err := os.Rename(staging, final); err != nil {
		return nil, fmt.Errorf("publish package: %w", err)
	}
	published = true

	b.logger.Info("export published",
		zap.String("package_id", packageID.String()),
		zap.Int("edges", meta.EdgeCount),
		zap.Int("cycles", meta.CycleCount),
		zap.Int("orphans", meta.OrphanCount))
	return meta, nil
}

// enrichStatistics fills missing row/distinct counts from the provider.
// Failure leaves the fields nil, recorded downstream as unavailable.
func (b *Builder) enrichStatistics(ctx context.Context, objects []models.Object) {
	var missing []string
	for i := range objects {
		obj := &objects[i]
		if obj.Type != models.ObjectTypeTable && obj.Type != models.ObjectTypeColumn {
			continue
		}
		if obj.Statistics == nil || (obj.Statistics.RowCount == nil && obj.Statistics.DistinctCount == nil) {
			missing = append(missing, obj.ID)
		}
	}
	if len(missing) == 0 {
		return
	}

	var stats map[string]models.ObjectStatistics
	err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var statsErr error
		stats, statsErr = b.provider.GetStatistics(ctx, missing)
		return statsErr
	})
	if err != nil {
		b.logger.Warn("statistics unavailable, continuing without",
			zap.Int("objects", len(missing)), zap.Error(err))
		return
	}

	for i := range objects {
		if s, ok := stats[objects[i].ID]; ok {
			merged := s
			if objects[i].Statistics != nil {
				if merged.RowCount == nil {
					merged.RowCount = objects[i].Statistics.RowCount
				}
				if merged.DistinctCount == nil {
					merged.DistinctCount = objects[i].Statistics.DistinctCount
				}
			}
			objects[i].Statistics = &merged
		}
	}
}

// writeAnalysis emits the metadata/catalog/dependencies triple, choosing
// streaming or buffered writes from the object count.
func (b *Builder) writeAnalysis(staging string, meta *models.PackageMetadata, catalog []models.CatalogEntry, idx *depgraph.Index, cycles [][]string, orphans []string, opts Options) error {
	dir := filepath.Join(staging, AnalysisDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create analysis directory: %w", err)
	}

	if err := writeJSONFile(filepath.Join(dir, MetadataFile), meta); err != nil {
		return err
	}

	dep := &models.DependencyFile{
		Forward: idx.ForwardMap(),
		Reverse: idx.ReverseMap(),
		Cycles:  cycles,
		Orphans: orphans,
	}
	if dep.Cycles == nil {
		dep.Cycles = [][]string{}
	}
	if dep.Orphans == nil {
		dep.Orphans = []string{}
	}

	streaming := opts.StreamingThreshold > 0 && len(catalog) >= opts.StreamingThreshold
	if streaming {
		if err := writeCatalogStreaming(filepath.Join(dir, CatalogFile), catalog); err != nil {
			return err
		}
		return writeDependenciesStreaming(filepath.Join(dir, DependenciesFile), dep)
	}
	if err := writeJSONFile(filepath.Join(dir, CatalogFile), catalog); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(dir, DependenciesFile), dep)
}

func countByType(objects []models.Object) map[models.ObjectType]int {
	counts := make(map[models.ObjectType]int)
	for i := range objects {
		counts[objects[i].Type]++
	}
	return counts
}

func tableNames(objects []models.Object) []string {
	var names []string
	for i := range objects {
		if objects[i].Type == models.ObjectTypeTable {
			names = append(names, objects[i].Name)
		}
	}
	return names
}

// packageIdentity is the small identity record written to package.json.
func packageIdentity(meta *models.PackageMetadata) map[string]any {
	return map[string]any{
		"package_id":  meta.PackageID.String(),
		"created_at":  meta.CreatedAt.Format(time.RFC3339Nano),
		"source_name": meta.SourceName,
	}
}
