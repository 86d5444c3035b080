package export

import (
	"strings"

	"github.com/semlens-inc/semlens-engine/pkg/depgraph"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// buildCatalog generates the denormalized catalog entries from the
// object list and the dependency index. Entry order follows the object
// list, which fixes the stable ordering queries page over.
func buildCatalog(objects []models.Object, idx *depgraph.Index, relColumns, roleColumns map[string]bool) []models.CatalogEntry {
	entries := make([]models.CatalogEntry, 0, len(objects))
	for i := range objects {
		obj := &objects[i]
		entry := models.CatalogEntry{
			ID:              obj.ID,
			Type:            obj.Type,
			Name:            obj.Name,
			TableName:       obj.TableName,
			DisplayFolder:   obj.DisplayFolder,
			IsHidden:        obj.IsHidden,
			ComplexityScore: complexityScore(obj.Definition, len(idx.Forward(obj.ID))),
			DependsOnCount:  len(idx.Forward(obj.ID)),
			UsedByCount:     len(idx.Reverse(obj.ID)),
			IsUnused:        isUnused(obj, idx, relColumns, roleColumns),
		}
		if obj.Statistics != nil {
			entry.RowCount = obj.Statistics.RowCount
			entry.DistinctCount = obj.Statistics.DistinctCount
			entry.EstimatedBytes = estimateBytes(obj)
		}
		entries = append(entries, entry)
	}
	return entries
}

// isUnused applies the conservative rule: a column is unused only when
// it is absent from all three sources: metric/role reference edges,
// the explicit relationship endpoint list, and role filter references.
// A false "used" is safe; a false "unused" is a defect. Visual usage is
// advisory only and never considered here.
func isUnused(obj *models.Object, idx *depgraph.Index, relColumns, roleColumns map[string]bool) bool {
	switch obj.Type {
	case models.ObjectTypeColumn:
		return len(idx.Reverse(obj.ID)) == 0 && !relColumns[obj.ID] && !roleColumns[obj.ID]
	case models.ObjectTypeMetric:
		return len(idx.Reverse(obj.ID)) == 0
	default:
		// Tables, relationships, and roles are top-level objects.
		return false
	}
}

// complexityScore scores a definition body from its length, reference
// count, and maximum nesting depth.
func complexityScore(definition string, refCount int) int {
	if definition == "" && refCount == 0 {
		return 0
	}
	score := len(definition)/50 + refCount*2 + maxNestingDepth(definition)
	if score < 1 {
		score = 1
	}
	return score
}

func maxNestingDepth(s string) int {
	depth, max := 0, 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
			if depth > max {
				max = depth
			}
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return max
}

// estimateBytes approximates the in-engine memory cost of an object from
// cardinality statistics. Nil when statistics are missing.
func estimateBytes(obj *models.Object) *int64 {
	s := obj.Statistics
	if s == nil {
		return nil
	}
	var est int64
	switch {
	case s.DistinctCount != nil && s.RowCount != nil:
		// Dictionary-encoded column: dictionary plus per-row index.
		est = *s.DistinctCount*8 + *s.RowCount*4
	case s.RowCount != nil:
		est = *s.RowCount * 8
	case s.DistinctCount != nil:
		est = *s.DistinctCount * 8
	default:
		return nil
	}
	return &est
}

// collectRelationshipColumns builds the explicit endpoint column set
// from the provider's relationship list.
func collectRelationshipColumns(objects []models.Object) map[string]bool {
	cols := make(map[string]bool)
	for i := range objects {
		obj := &objects[i]
		if obj.Type != models.ObjectTypeRelationship || obj.Endpoints == nil {
			continue
		}
		ep := obj.Endpoints
		cols[models.ObjectID(models.ObjectTypeColumn, ep.FromTable, ep.FromColumn)] = true
		cols[models.ObjectID(models.ObjectTypeColumn, ep.ToTable, ep.ToColumn)] = true
	}
	return cols
}

// collectRoleFilterColumns builds the set of columns referenced by any
// role filter, from the graph's role edges.
func collectRoleFilterColumns(objects []models.Object, idx *depgraph.Index) map[string]bool {
	cols := make(map[string]bool)
	for i := range objects {
		obj := &objects[i]
		if obj.Type != models.ObjectTypeRole {
			continue
		}
		for _, e := range idx.Forward(obj.ID) {
			if e.Kind == models.EdgeFilteredByRole && strings.HasPrefix(e.To, string(models.ObjectTypeColumn)+":") {
				cols[e.To] = true
			}
		}
	}
	return cols
}
