package query

import (
	"strings"

	"github.com/semlens-inc/semlens-engine/pkg/apperrors"
	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// FindObjects runs a linear filter over the catalog slice for the
// requested type and returns one deterministic page. Catalog insertion
// order is the stable ordering, so identical filters return identical
// pages across repeated calls against the same package.
func (e *Engine) FindObjects(packageID, objType string, filters map[string]any, batchSize, batchNumber int, enc models.Encoding) *models.ObjectListResult {
	result := &models.ObjectListResult{}

	if objType != "" && !models.ValidObjectType(objType) {
		result.Envelope = failure(apperrors.Invalid("unknown object type " + objType))
		return result
	}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}
	catalog, err := h.Catalog()
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	var matched []models.CatalogEntry
	for i := range catalog {
		if objType != "" && catalog[i].Type != models.ObjectType(objType) {
			continue
		}
		if matchFilters(&catalog[i], filters) {
			matched = append(matched, catalog[i])
		}
	}

	start, end, info, err := paginate(len(matched), batchSize, batchNumber)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}
	page := matched[start:end]

	// Batching picked the slice; budgeting decides whether even that
	// slice must shrink.
	keep := len(page)
	if len(page) > 0 {
		keep, _ = e.budgeter.FitList(len(page), page[0], enc)
	}
	pageLen := len(page)
	page = page[:keep]

	result.Envelope = okMeta(models.EncodingVerbose)
	result.Envelope.Metadata.Batch = info
	budget.Annotate(&result.Envelope.Metadata, pageLen, keep)

	if enc == models.EncodingCompact {
		if columnar, ok := budget.Columnar(page); ok {
			result.Columnar = columnar
			result.Envelope.Metadata.Encoding = models.EncodingCompact
			return result
		}
	}
	result.Objects = page
	return result
}

// matchFilters applies the recognized filter predicates to one entry.
// Unknown filter keys are ignored.
func matchFilters(entry *models.CatalogEntry, filters map[string]any) bool {
	for key, raw := range filters {
		switch key {
		case "name_contains":
			s, ok := raw.(string)
			if ok && !strings.Contains(strings.ToLower(entry.Name), strings.ToLower(s)) {
				return false
			}
		case "table":
			s, ok := raw.(string)
			if ok && entry.TableName != s {
				return false
			}
		case "hidden":
			b, ok := raw.(bool)
			if ok && entry.IsHidden != b {
				return false
			}
		case "unused":
			b, ok := raw.(bool)
			if ok && entry.IsUnused != b {
				return false
			}
		case "min_complexity":
			// JSON numbers arrive as float64.
			if f, ok := raw.(float64); ok && entry.ComplexityScore < int(f) {
				return false
			}
			if n, ok := raw.(int); ok && entry.ComplexityScore < n {
				return false
			}
		}
	}
	return true
}
