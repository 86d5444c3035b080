package query

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/apperrors"
	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/cache"
	"github.com/semlens-inc/semlens-engine/pkg/export"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Engine answers queries against exported packages. Collaborators are
// constructor arguments; every query is synchronous request/response.
type Engine struct {
	root     string
	cache    *cache.Tiered
	budgeter *budget.Budgeter
	logger   *zap.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewEngine creates a query engine over the package root. cache may be
// nil to disable caching.
func NewEngine(root string, c *cache.Tiered, b *budget.Budgeter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if b == nil {
		b = budget.New(0)
	}
	return &Engine{
		root:     root,
		cache:    c,
		budgeter: b,
		logger:   logger.Named("query"),
		handles:  make(map[string]*Handle),
	}
}

// Handle returns the (shared, lazily loading) handle for a package.
// An empty packageID resolves to the latest published package.
func (e *Engine) Handle(packageID string) (*Handle, error) {
	if packageID == "" {
		latest, err := e.LatestPackageID()
		if err != nil {
			return nil, err
		}
		packageID = latest
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.handles[packageID]; ok {
		return h, nil
	}
	h, err := OpenHandle(e.root, packageID)
	if err != nil {
		return nil, err
	}
	e.handles[packageID] = h
	return h, nil
}

// LatestPackageID resolves the most recently created package under the
// root by its identity record.
func (e *Engine) LatestPackageID() (string, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return "", fmt.Errorf("read package root: %w", err)
	}

	type candidate struct {
		id      string
		created time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(e.root, entry.Name(), export.IdentityFile))
		if err != nil {
			continue
		}
		var identity struct {
			PackageID string    `json:"package_id"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(data, &identity); err != nil {
			continue
		}
		candidates = append(candidates, candidate{id: entry.Name(), created: identity.CreatedAt})
	}
	if len(candidates) == 0 {
		return "", &apperrors.Error{
			Category: apperrors.CategoryNotFound,
			Message:  "no packages found under " + e.root,
			Hint:     "run export first",
			Err:      apperrors.ErrPackageNotFound,
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].created.Before(candidates[j].created)
	})
	return candidates[len(candidates)-1].id, nil
}

// okMeta builds a success envelope with the given encoding.
func okMeta(enc models.Encoding) models.Envelope {
	return models.Envelope{Success: true, Metadata: models.ResponseMeta{Encoding: enc}}
}

// failure builds the uniform error envelope from any engine error.
func failure(err error) models.Envelope {
	return models.Envelope{
		Success: false,
		Error: &models.ErrorInfo{
			Category: apperrors.CategoryOf(err),
			Message:  err.Error(),
			Hint:     apperrors.HintOf(err),
		},
	}
}

// paginate computes the half-open item range of a 1-indexed batch and
// its descriptor. The partition is a pure function of the item count and
// batch size, so the same object always lands in the same batch.
func paginate(totalItems, batchSize, batchNumber int) (start, end int, info *models.BatchInfo, err error) {
	if batchSize < 1 {
		return 0, 0, nil, apperrors.Invalid("batch_size must be >= 1")
	}
	if batchNumber < 1 {
		return 0, 0, nil, apperrors.Invalid("batch_number is 1-indexed and must be >= 1")
	}

	totalBatches := (totalItems + batchSize - 1) / batchSize
	if totalBatches == 0 {
		totalBatches = 1
	}

	start = (batchNumber - 1) * batchSize
	if start > totalItems {
		start = totalItems
	}
	end = start + batchSize
	if end > totalItems {
		end = totalItems
	}

	return start, end, &models.BatchInfo{
		BatchNumber:  batchNumber,
		BatchSize:    batchSize,
		TotalItems:   totalItems,
		TotalBatches: totalBatches,
		HasMore:      batchNumber < totalBatches,
	}, nil
}
