package export

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// workerPool bounds the parallelism of per-table provider round trips.
// Each table's extraction is an independent I/O-bound call, so the pool
// is sized to available parallel-execution capacity rather than
// hardwired.
type workerPool struct {
	maxConcurrent int
	logger        *zap.Logger
}

func newWorkerPool(maxConcurrent int, logger *zap.Logger) *workerPool {
	if maxConcurrent < 1 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &workerPool{maxConcurrent: maxConcurrent, logger: logger.Named("export-pool")}
}

// workItem is one unit of work keyed by an identifier for reporting.
type workItem[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// workResult carries a completed item's outcome. A failed item never
// cancels its siblings; callers collect per-item outcomes and report
// partial success.
type workResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// runAll executes all items with bounded parallelism and returns results
// in completion order.
func runAll[T any](ctx context.Context, pool *workerPool, items []workItem[T]) []workResult[T] {
	if len(items) == 0 {
		return nil
	}

	resultsChan := make(chan workResult[T], len(items))
	sem := make(chan struct{}, pool.maxConcurrent)

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item workItem[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				var zero T
				resultsChan <- workResult[T]{ID: item.ID, Result: zero, Err: ctx.Err()}
				return
			}

			result, err := item.Execute(ctx)
			resultsChan <- workResult[T]{ID: item.ID, Result: result, Err: err}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]workResult[T], 0, len(items))
	for result := range resultsChan {
		results = append(results, result)
	}
	return results
}
