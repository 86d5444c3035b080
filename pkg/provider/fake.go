package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Fake is an in-memory ModelProvider for tests and local development.
// Seed it with objects, then optionally inject per-call failures.
type Fake struct {
	mu sync.Mutex

	Objects    []models.Object
	Statistics map[string]models.ObjectStatistics
	Samples    map[string]*models.SampleFile

	// Per-operation error injection. A nil map entry means success.
	ListErr       error
	StatisticsErr error
	SampleErrs    map[string]error

	// Call counters, readable by tests.
	ListCalls   int
	SampleCalls int
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		Statistics: make(map[string]models.ObjectStatistics),
		Samples:    make(map[string]*models.SampleFile),
		SampleErrs: make(map[string]error),
	}
}

func (f *Fake) ListObjects(ctx context.Context) ([]models.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make([]models.Object, len(f.Objects))
	copy(out, f.Objects)
	return out, nil
}

func (f *Fake) GetDefinitionBody(ctx context.Context, objectID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.Objects {
		if f.Objects[i].ID == objectID {
			return f.Objects[i].Definition, nil
		}
	}
	return "", fmt.Errorf("object %s: no definition", objectID)
}

func (f *Fake) GetStatistics(ctx context.Context, objectIDs []string) (map[string]models.ObjectStatistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatisticsErr != nil {
		return nil, f.StatisticsErr
	}
	out := make(map[string]models.ObjectStatistics, len(objectIDs))
	for _, id := range objectIDs {
		if s, ok := f.Statistics[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (f *Fake) SampleRows(ctx context.Context, tableName string, n int) (*models.SampleFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SampleCalls++
	if err := f.SampleErrs[tableName]; err != nil {
		return nil, err
	}
	sf, ok := f.Samples[tableName]
	if !ok {
		return &models.SampleFile{TableName: tableName, Columns: nil, Rows: nil}, nil
	}
	rows := sf.Rows
	if len(rows) > n {
		rows = rows[:n]
	}
	return &models.SampleFile{TableName: tableName, Columns: sf.Columns, Rows: rows}, nil
}
