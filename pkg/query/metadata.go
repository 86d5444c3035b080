package query

import (
	"encoding/json"

	"github.com/semlens-inc/semlens-engine/pkg/apperrors"
	"github.com/semlens-inc/semlens-engine/pkg/budget"
	"github.com/semlens-inc/semlens-engine/pkg/cache"
	"github.com/semlens-inc/semlens-engine/pkg/depgraph"
	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// ReadMetadata returns the package summary layer. The lookup is static:
// cached without expiry, invalidated only by package replacement.
func (e *Engine) ReadMetadata(packageID string) *models.MetadataResult {
	result := &models.MetadataResult{}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	key := cache.Signature(h.ID(), "read_metadata", nil)
	if payload, ok := e.cacheGet(key, cache.CategoryStatic); ok {
		var meta models.PackageMetadata
		if json.Unmarshal(payload, &meta) == nil {
			result.Envelope = okMeta(models.EncodingVerbose)
			result.Package = &meta
			return result
		}
	}

	meta, err := h.Metadata()
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	if payload, err := json.Marshal(meta); err == nil {
		e.cacheSet(key, payload, cache.CategoryStatic)
	}

	result.Envelope = okMeta(models.EncodingVerbose)
	result.Package = meta
	return result
}

// GetObjectDefinition returns one object's raw definition body plus its
// immediate dependency neighborhood. A nonexistent name is a structured
// not-found result, never an engine failure.
func (e *Engine) GetObjectDefinition(packageID, objType, name string) *models.DefinitionResult {
	result := &models.DefinitionResult{}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	key := cache.Signature(h.ID(), "get_object_definition", map[string]any{
		"type": objType, "name": name,
	})
	if payload, ok := e.cacheGet(key, cache.CategoryStatic); ok {
		var cached models.DefinitionResult
		if json.Unmarshal(payload, &cached) == nil {
			return &cached
		}
	}

	entry, err := e.findEntry(h, objType, name)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	definition, err := h.Definition(entry)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	deps, err := h.Dependencies()
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	result.Envelope = okMeta(models.EncodingVerbose)
	result.Object = entry
	result.Definition = definition
	for _, edge := range deps.Forward[entry.ID] {
		result.DependsOn = append(result.DependsOn, edge.To)
	}
	result.UsedBy = append(result.UsedBy, deps.Reverse[entry.ID]...)

	if payload, err := json.Marshal(result); err == nil {
		e.cacheSet(key, payload, cache.CategoryStatic)
	}
	return result
}

// AnalyzeDependencies walks the exported dependency indices from the
// named object and returns the full transitive set with its depth.
func (e *Engine) AnalyzeDependencies(packageID, name, direction string) *models.DependencyTraversal {
	result := &models.DependencyTraversal{}

	dir := depgraph.Direction(direction)
	if dir != depgraph.DirectionForward && dir != depgraph.DirectionReverse {
		result.Envelope = failure(apperrors.Invalid("direction must be forward or reverse"))
		return result
	}

	h, err := e.Handle(packageID)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	entry, err := e.findEntry(h, "", name)
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	deps, err := h.Dependencies()
	if err != nil {
		result.Envelope = failure(err)
		return result
	}

	ids, depth := traverseFile(deps, entry.ID, dir)

	keep, _ := e.budgeter.FitList(len(ids), entry.ID, models.EncodingVerbose)
	total := len(ids)
	ids = ids[:keep]

	result.Envelope = okMeta(models.EncodingVerbose)
	budget.Annotate(&result.Envelope.Metadata, total, keep)
	result.Root = entry.ID
	result.Direction = string(dir)
	result.Objects = ids
	result.MaxDepth = depth
	return result
}

// traverseFile is a BFS over the serialized adjacency, mirroring the
// in-memory index traversal. A visited set guarantees termination in
// cyclic graphs.
func traverseFile(deps *models.DependencyFile, root string, dir depgraph.Direction) (ids []string, maxDepth int) {
	type frame struct {
		id    string
		depth int
	}
	visited := map[string]bool{root: true}
	queue := []frame{{id: root}}

	neighbors := func(id string) []string {
		if dir == depgraph.DirectionReverse {
			return deps.Reverse[id]
		}
		edges := deps.Forward[id]
		out := make([]string, len(edges))
		for i, e := range edges {
			out[i] = e.To
		}
		return out
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range neighbors(cur.id) {
			if visited[next] {
				continue
			}
			visited[next] = true
			ids = append(ids, next)
			if cur.depth+1 > maxDepth {
				maxDepth = cur.depth + 1
			}
			queue = append(queue, frame{id: next, depth: cur.depth + 1})
		}
	}
	return ids, maxDepth
}

// findEntry locates a catalog entry by name, optionally narrowed by
// type. Column names may be table-qualified ("Table.Column").
func (e *Engine) findEntry(h *Handle, objType, name string) (*models.CatalogEntry, error) {
	if objType != "" && !models.ValidObjectType(objType) {
		return nil, apperrors.Invalid("unknown object type " + objType)
	}

	catalog, err := h.Catalog()
	if err != nil {
		return nil, err
	}

	for i := range catalog {
		entry := &catalog[i]
		if objType != "" && entry.Type != models.ObjectType(objType) {
			continue
		}
		if entry.Name == name || entry.ID == name {
			return entry, nil
		}
		if entry.Type == models.ObjectTypeColumn && entry.TableName+"."+entry.Name == name {
			return entry, nil
		}
	}
	return nil, apperrors.NotFound("object", name)
}

func (e *Engine) cacheGet(key string, category cache.Category) ([]byte, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(key, category)
}

func (e *Engine) cacheSet(key string, payload []byte, category cache.Category) {
	if e.cache != nil {
		e.cache.Set(key, payload, category)
	}
}
