package depgraph

import (
	"sort"
	"strings"

	"github.com/semlens-inc/semlens-engine/pkg/models"
)

// DFS coloring states.
const (
	colorWhite = 0 // unvisited
	colorGray  = 1 // on the current recursion stack
	colorBlack = 2 // fully explored
)

// DetectCycles finds reference cycles over the forward graph restricted
// to metric-to-metric edges. Cycles are reported, never dropped; an
// acyclic model returns an empty list.
func (idx *Index) DetectCycles() [][]string {
	// Restrict to metric nodes and metric->metric edges.
	adj := make(map[string][]string)
	var roots []string
	for from, edges := range idx.forward {
		obj := idx.objects[from]
		if obj == nil || obj.Type != models.ObjectTypeMetric {
			continue
		}
		roots = append(roots, from)
		for _, e := range edges {
			if e.Kind != models.EdgeReferencesMetric {
				continue
			}
			if to := idx.objects[e.To]; to != nil && to.Type == models.ObjectTypeMetric {
				adj[from] = append(adj[from], e.To)
			}
		}
	}
	sort.Strings(roots)

	color := make(map[string]int)
	var stack []string
	var cycles [][]string
	reported := make(map[string]bool)

	var visit func(id string)
	visit = func(id string) {
		color[id] = colorGray
		stack = append(stack, id)

		for _, next := range adj[id] {
			switch color[next] {
			case colorWhite:
				visit(next)
			case colorGray:
				// Back edge: the cycle is the stack suffix from next.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle := append([]string(nil), stack[i:]...)
						if key := cycleKey(cycle); !reported[key] {
							reported[key] = true
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack
	}

	for _, id := range roots {
		if color[id] == colorWhite {
			visit(id)
		}
	}

	return cycles
}

// cycleKey normalizes a cycle to a rotation-independent identity so the
// same cycle discovered from different entry points is reported once.
func cycleKey(cycle []string) string {
	min := 0
	for i := range cycle {
		if cycle[i] < cycle[min] {
			min = i
		}
	}
	rotated := append(append([]string(nil), cycle[min:]...), cycle[:min]...)
	return strings.Join(rotated, "\x00")
}
