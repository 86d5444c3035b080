// Package provider defines the Model Provider boundary: the raw
// connection to the source analytical engine. Every call may fail
// independently; consumers treat each as retryable or skippable.
package provider

import (
	"context"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// ModelProvider exposes the source model's raw object list, definition
// bodies, statistics, and row sampling. Implementations must be safe for
// concurrent use: sample extraction runs from a worker pool.
type ModelProvider interface {
	// ListObjects returns a snapshot of every object in the source model,
	// including structural relationship endpoints and role filters.
	ListObjects(ctx context.Context) ([]models.Object, error)

	// GetDefinitionBody returns the raw definition text for one object.
	GetDefinitionBody(ctx context.Context, objectID string) (string, error)

	// GetStatistics returns row/distinct counts for the requested
	// objects. Missing entries mean the statistic was unavailable.
	GetStatistics(ctx context.Context, objectIDs []string) (map[string]models.ObjectStatistics, error)

	// SampleRows returns up to n rows from the named table.
	SampleRows(ctx context.Context, tableName string, n int) (*models.SampleFile, error)
}
