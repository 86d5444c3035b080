// Package depgraph builds bidirectional dependency indices over a
// semantic-model object list. It is pure computation: no I/O, no
// provider calls, single-threaded by design.
package depgraph

import (
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// Index holds the forward and reverse adjacency of a built dependency
// graph. The reverse map is populated during the build; a dependents
// lookup is a single map access, never a scan of the forward map.
type Index struct {
	objects map[string]*models.Object

	forward map[string][]models.DependencyEdge
	reverse map[string][]string

	// seen dedupes (from, to) pairs across edge kinds on insertion.
	seen map[string]map[string]bool

	// failed lists objects whose reference extraction failed. Their
	// forward edges are left empty; the build continues.
	failed []string

	edgeCount int
}

// Builder assembles an Index from an object list.
type Builder struct {
	extractor Extractor
	logger    *zap.Logger
}

// NewBuilder creates a graph builder. If extractor is nil the default
// regex extractor is used; if logger is nil a no-op logger is used.
func NewBuilder(extractor Extractor, logger *zap.Logger) *Builder {
	if extractor == nil {
		extractor = NewRegexExtractor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{extractor: extractor, logger: logger}
}

// Build scans every metric, relationship, and role for references to
// other objects and records each discovered edge in both directions.
// Extraction failure on one object is logged and skipped, never fatal.
func (b *Builder) Build(objects []models.Object) *Index {
	idx := &Index{
		objects: make(map[string]*models.Object, len(objects)),
		forward: make(map[string][]models.DependencyEdge),
		reverse: make(map[string][]string),
		seen:    make(map[string]map[string]bool),
	}

	// Name resolution maps: metrics by name, columns by table.column.
	metricIDs := make(map[string]string)
	columnIDs := make(map[string]string)
	for i := range objects {
		obj := &objects[i]
		idx.objects[obj.ID] = obj
		switch obj.Type {
		case models.ObjectTypeMetric:
			metricIDs[obj.Name] = obj.ID
		case models.ObjectTypeColumn:
			columnIDs[obj.TableName+"."+obj.Name] = obj.ID
		}
	}

	for i := range objects {
		obj := &objects[i]
		switch obj.Type {
		case models.ObjectTypeMetric:
			b.addBodyEdges(idx, obj, metricIDs, columnIDs, models.EdgeReferencesColumn)
		case models.ObjectTypeRole:
			b.addBodyEdges(idx, obj, metricIDs, columnIDs, models.EdgeFilteredByRole)
		case models.ObjectTypeRelationship:
			b.addRelationshipEdges(idx, obj, columnIDs)
		}
	}

	return idx
}

// addBodyEdges extracts references from obj's definition body and inserts
// an edge per resolved reference. columnKind is the edge kind used for
// column targets; metric targets always get references-metric.
func (b *Builder) addBodyEdges(idx *Index, obj *models.Object, metricIDs, columnIDs map[string]string, columnKind models.EdgeKind) {
	if obj.Definition == "" {
		return
	}

	refs, err := b.extractor.Extract(obj.Definition)
	if err != nil {
		b.logger.Warn("reference extraction failed, skipping object",
			zap.String("object_id", obj.ID),
			zap.Error(err))
		idx.failed = append(idx.failed, obj.ID)
		return
	}

	for _, ref := range refs {
		if ref.Table != "" {
			if to, ok := columnIDs[ref.Table+"."+ref.Name]; ok {
				idx.addEdge(obj.ID, to, columnKind)
			}
			continue
		}
		// Unqualified: a metric if one exists by that name, otherwise a
		// column of the defining object's home table.
		if to, ok := metricIDs[ref.Name]; ok && to != obj.ID {
			idx.addEdge(obj.ID, to, models.EdgeReferencesMetric)
			continue
		}
		if obj.TableName != "" {
			if to, ok := columnIDs[obj.TableName+"."+ref.Name]; ok {
				idx.addEdge(obj.ID, to, columnKind)
			}
		}
	}
}

// addRelationshipEdges inserts edges from a relationship to its endpoint
// columns, using the structural endpoints supplied by the provider.
func (b *Builder) addRelationshipEdges(idx *Index, obj *models.Object, columnIDs map[string]string) {
	if obj.Endpoints == nil {
		return
	}
	ep := obj.Endpoints
	for _, key := range []string{ep.FromTable + "." + ep.FromColumn, ep.ToTable + "." + ep.ToColumn} {
		if to, ok := columnIDs[key]; ok {
			idx.addEdge(obj.ID, to, models.EdgeParticipatesInRel)
		}
	}
}

// addEdge inserts a forward edge and its mirror reverse edge, deduping
// repeated (from, to) pairs.
func (idx *Index) addEdge(from, to string, kind models.EdgeKind) {
	tos := idx.seen[from]
	if tos == nil {
		tos = make(map[string]bool)
		idx.seen[from] = tos
	}
	if tos[to] {
		return
	}
	tos[to] = true

	idx.forward[from] = append(idx.forward[from], models.DependencyEdge{From: from, To: to, Kind: kind})
	idx.reverse[to] = append(idx.reverse[to], from)
	idx.edgeCount++
}

// Object returns the object with the given ID, or nil.
func (idx *Index) Object(id string) *models.Object { return idx.objects[id] }

// Forward returns the direct dependencies of the given object.
func (idx *Index) Forward(id string) []models.DependencyEdge { return idx.forward[id] }

// Reverse returns the direct dependents of the given object. This is a
// single map lookup against the pre-computed reverse index.
func (idx *Index) Reverse(id string) []string { return idx.reverse[id] }

// EdgeCount returns the number of distinct edges in the graph.
func (idx *Index) EdgeCount() int { return idx.edgeCount }

// Failed returns the objects whose reference extraction failed.
func (idx *Index) Failed() []string { return idx.failed }

// ForwardMap exposes the full forward adjacency for export serialization.
func (idx *Index) ForwardMap() map[string][]models.DependencyEdge { return idx.forward }

// ReverseMap exposes the full reverse adjacency for export serialization.
func (idx *Index) ReverseMap() map[string][]string { return idx.reverse }
