package export

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/models"
	"github.com/semlens-inc/semlens-engine/pkg/provider"
	"github.com/semlens-inc/semlens-engine/pkg/retry"
)

// extractSamples pulls up to rowCount rows per table through a bounded
// worker pool and writes each table's compressed sample unit. One
// table's failure never cancels its siblings; the per-table outcomes are
// returned for the metadata layer.
func extractSamples(ctx context.Context, p provider.ModelProvider, dir string, tables []string, rowCount, concurrency int, logger *zap.Logger) []models.SampleOutcome {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create samples directory", zap.Error(err))
		outcomes := make([]models.SampleOutcome, 0, len(tables))
		for _, t := range tables {
			outcomes = append(outcomes, models.SampleOutcome{TableName: t, Error: err.Error()})
		}
		return outcomes
	}

	pool := newWorkerPool(concurrency, logger)
	items := make([]workItem[models.SampleOutcome], 0, len(tables))
	for _, table := range tables {
		table := table
		items = append(items, workItem[models.SampleOutcome]{
			ID: table,
			Execute: func(ctx context.Context) (models.SampleOutcome, error) {
				var sample *models.SampleFile
				err := retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
					var sampleErr error
					sample, sampleErr = p.SampleRows(ctx, table, rowCount)
					return sampleErr
				})
				if err != nil {
					return models.SampleOutcome{TableName: table, Error: err.Error()}, nil
				}
				if err := writeSampleFile(filepath.Join(dir, SampleFileName(table)), sample); err != nil {
					return models.SampleOutcome{TableName: table, Error: err.Error()}, nil
				}
				return models.SampleOutcome{TableName: table, RowCount: len(sample.Rows)}, nil
			},
		})
	}

	results := runAll(ctx, pool, items)
	outcomes := make([]models.SampleOutcome, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			// Only context cancellation reaches here; extraction errors
			// are carried in the outcome itself.
			outcomes = append(outcomes, models.SampleOutcome{TableName: r.ID, Error: r.Err.Error()})
			continue
		}
		if r.Result.Error != "" {
			logger.Warn("sample extraction failed",
				zap.String("table", r.Result.TableName),
				zap.String("error", r.Result.Error))
		}
		outcomes = append(outcomes, r.Result)
	}
	return outcomes
}

// writeSampleFile writes one table's rows as gzip-compressed JSON,
// streaming row-by-row through the compressor.
func writeSampleFile(path string, sample *models.SampleFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)

	header, err := json.Marshal(struct {
		TableName string   `json:"table_name"`
		Columns   []string `json:"columns"`
	}{sample.TableName, sample.Columns})
	if err != nil {
		return fmt.Errorf("marshal sample header: %w", err)
	}
	// Hand-assembled object so rows stream instead of buffering.
	if _, err := gz.Write(append(header[:len(header)-1], []byte(`,"rows":[`)...)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i, row := range sample.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("marshal sample row: %w", err)
		}
		if i > 0 {
			if _, err := gz.Write([]byte(",")); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
		if _, err := gz.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if _, err := gz.Write([]byte("]}")); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close gzip %s: %w", path, err)
	}
	return f.Close()
}
