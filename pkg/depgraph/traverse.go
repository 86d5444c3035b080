package depgraph

// Direction selects which adjacency a traversal follows.
type Direction string

const (
	// DirectionForward walks what the root depends on.
	DirectionForward Direction = "forward"
	// DirectionReverse walks what depends on the root.
	DirectionReverse Direction = "reverse"
)

// TransitiveClosure walks the graph breadth-first from root in the given
// direction and returns every reachable object (excluding the root) plus
// the maximum traversal depth. A visited set guarantees termination in
// the presence of cycles.
func (idx *Index) TransitiveClosure(root string, dir Direction) (ids []string, maxDepth int) {
	type frame struct {
		id    string
		depth int
	}

	visited := map[string]bool{root: true}
	queue := []frame{{id: root, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range idx.neighbors(cur.id, dir) {
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

func (idx *Index) neighbors(id string, dir Direction) []string {
	if dir == DirectionReverse {
		return idx.reverse[id]
	}
	edges := idx.forward[id]
	if len(edges) == 0 {
		return nil
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.To
	}
	return out
}
