package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/semlens-inc/semlens-engine/pkg/apperrors"
	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/cache"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Focus areas recognized by Analyze.
const (
	FocusUnusedColumns = "unused_columns"
	FocusUnusedMetrics = "unused_metrics"
	FocusCycles        = "cycles"
	FocusComplexity    = "complexity"
	FocusWideTables    = "wide_tables"
)

// complexityWarnThreshold marks a definition worth flagging.
const complexityWarnThreshold = 10

// wideTableColumnThreshold marks a table as unusually wide.
const wideTableColumnThreshold = 30

// BatchConfig selects one page of an analysis candidate set.
type BatchConfig struct {
	BatchSize   int
	BatchNumber int
}

// Analyze runs the requested derived-analysis scans and returns one
// deterministic page of findings. The candidate partition is fixed for
// a given batch size and package: batch_size never silently shrinks to
// fit the response budget; batching and budgeting compose, in that
// order. Results are cached under the short derived-analysis TTL.
func (e *Engine) Analyze(packageID string, focusAreas []string, batch BatchConfig, priorityFilter string) *models.AnalysisResult {
	result := &models.AnalysisResult{}

	if batch.BatchSize < 1 {
		batch.BatchSize = 50
	}
	if batch.BatchNumber < 1 {
		batch.BatchNumber = 1
	}
	if len(focusAreas) == 0 {
		focusAreas = []string{FocusUnusedColumns, FocusUnusedMetrics, FocusCycles, FocusComplexity, FocusWideTables}
	}
	for _, focus := range focusAreas {
		switch focus {
		case FocusUnusedColumns, FocusUnusedMetrics, FocusCycles, FocusComplexity, FocusWideTables:
		default:
			result.Envelope = failure(apperrors.Invalid("unknown focus area " + focus))
			return result
		}
	}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	key := cache.Signature(h.ID(), "analyze", map[string]any{
		"focus":        strings.Join(focusAreas, ","),
		"priority":     priorityFilter,
		"batch_size":   batch.BatchSize,
		"batch_number": batch.BatchNumber,
	})
	if payload, ok := e.cacheGet(key, cache.CategoryAnalysis); ok {
		var cached models.AnalysisResult
		if json.Unmarshal(payload, &cached) == nil {
			cached.Cached = true
			return &cached
		}
	}

	findings, err := e.collectFindings(h, focusAreas)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	if priorityFilter != "" {
		filtered := findings[:0]
		for _, f := range findings {
			if f.Severity == priorityFilter {
				filtered = append(filtered, f)
			}
		}
		findings = filtered
	}

	start, end, info, err := paginate(len(findings), batch.BatchSize, batch.BatchNumber)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}
	page := findings[start:end]

	keep := len(page)
	if len(page) > 0 {
		keep, _ = e.budgeter.FitList(len(page), page[0], models.EncodingVerbose)
	}
	pageLen := len(page)
	page = page[:keep]

	result.Envelope = okMeta(models.EncodingVerbose)
	result.Envelope.Metadata.Batch = info
	budget.Annotate(&result.Envelope.Metadata, pageLen, keep)
	result.FocusAreas = focusAreas
	result.Findings = page

	if payload, err := json.Marshal(result); err == nil {
		e.cacheSet(key, payload, cache.CategoryAnalysis)
	}
	return result
}

// collectFindings produces findings in a deterministic order: focus
// areas in request order, candidates in catalog order.
func (e *Engine) collectFindings(h *Handle, focusAreas []string) ([]models.Finding, error) {
	catalog, err := h.Catalog()
	if err != nil {
		return nil, err
	}

	var findings []models.Finding
	for _, focus := range focusAreas {
		switch focus {
		case FocusUnusedColumns:
			for i := range catalog {
				entry := &catalog[i]
				if entry.Type == models.ObjectTypeColumn && entry.IsUnused {
					findings = append(findings, models.Finding{
						ObjectID: entry.ID,
						Focus:    focus,
						Severity: "info",
						Detail:   "column is not referenced by any metric, relationship, or role filter",
					})
				}
			}
		case FocusUnusedMetrics:
			for i := range catalog {
				entry := &catalog[i]
				if entry.Type == models.ObjectTypeMetric && entry.UsedByCount == 0 {
					findings = append(findings, models.Finding{
						ObjectID: entry.ID,
						Focus:    focus,
						Severity: "info",
						Detail:   "metric has no dependents",
					})
				}
			}
		case FocusCycles:
			deps, err := h.Dependencies()
			if err != nil {
				return nil, err
			}
			for _, cycle := range deps.Cycles {
				findings = append(findings, models.Finding{
					ObjectID: cycle[0],
					Focus:    focus,
					Severity: "warn",
					Detail:   "metric reference cycle: " + strings.Join(cycle, " -> "),
				})
			}
		case FocusComplexity:
			for i := range catalog {
				entry := &catalog[i]
				if entry.ComplexityScore >= complexityWarnThreshold {
					findings = append(findings, models.Finding{
						ObjectID: entry.ID,
						Focus:    focus,
						Severity: "warn",
						Detail:   fmt.Sprintf("complexity score %d", entry.ComplexityScore),
					})
				}
			}
		case FocusWideTables:
			columnsPerTable := make(map[string]int)
			for i := range catalog {
				if catalog[i].Type == models.ObjectTypeColumn {
					columnsPerTable[catalog[i].TableName]++
				}
			}
			for i := range catalog {
				entry := &catalog[i]
				if entry.Type == models.ObjectTypeTable && columnsPerTable[entry.Name] > wideTableColumnThreshold {
					findings = append(findings, models.Finding{
						ObjectID: entry.ID,
						Focus:    focus,
						Severity: "info",
						Detail:   fmt.Sprintf("%d columns", columnsPerTable[entry.Name]),
					})
				}
			}
		}
	}
	return findings, nil
}
