package depgraph

import (
	"sort"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// FindOrphans returns metrics and columns with no dependents. A column
// is additionally cross-checked against the provider's explicit
// relationship endpoint list and the role-filter reference set: presence
// in either keeps it out of the orphan list even when its reverse
// adjacency is empty. Tables, relationships, and roles are top-level
// objects and are never reported as orphans.
func (idx *Index) FindOrphans(relationshipColumns, roleFilterColumns map[string]bool) []string {
	var orphans []string
	for id, obj := range idx.objects {
		switch obj.Type {
		case models.ObjectTypeMetric:
			if len(idx.reverse[id]) == 0 {
				orphans = append(orphans, id)
			}
		case models.ObjectTypeColumn:
			if len(idx.reverse[id]) == 0 && !relationshipColumns[id] && !roleFilterColumns[id] {
				orphans = append(orphans, id)
			}
		}
	}
	sort.Strings(orphans)
	return orphans
}
