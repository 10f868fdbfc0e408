package pipeline

import (
	"strings"

	"github.com/rsdeploy/rsd/pkg/rsderr"
	"github.com/rsdeploy/rsd/pkg/state"
)

// keyGraph is the dependency graph over the component keys affected by a
// diff system. It assigns each key a topological level with Kahn's
// algorithm; keys at the same level tie-break by the (type, qualifier)
// total order.
type keyGraph struct {
	// nodes maps canonical key strings to their keys.
	nodes map[string]state.Key

	// adjacency maps a key to the keys that depend on it.
	adjacency map[string][]string

	// inDegree tracks the number of unresolved dependencies per key.
	inDegree map[string]int
}

// newKeyGraph indexes the given keys with no edges.
func newKeyGraph(keys []state.Key) *keyGraph {
	g := &keyGraph{
		nodes:     make(map[string]state.Key, len(keys)),
		adjacency: make(map[string][]string, len(keys)),
		inDegree:  make(map[string]int, len(keys)),
	}
	for _, key := range keys {
		id := key.String()
		g.nodes[id] = key
		g.inDegree[id] = 0
	}
	return g
}

// addEdge records that dependent requires dep. Edges pointing outside
// the graph are dropped: a dependency on an unaffected component is
// satisfied externally.
func (g *keyGraph) addEdge(dep, dependent state.Key) {
	depID := dep.String()
	dependentID := dependent.String()
	if _, ok := g.nodes[depID]; !ok {
		return
	}
	if _, ok := g.nodes[dependentID]; !ok {
		return
	}
	g.adjacency[depID] = append(g.adjacency[depID], dependentID)
	g.inDegree[dependentID]++
}

// levels computes the topological levels, dependencies first. A cycle
// among the affected keys fails with invalid-system.
func (g *keyGraph) levels() ([][]state.Key, error) {
	inDegree := make(map[string]int, len(g.inDegree))
	for id, degree := range g.inDegree {
		inDegree[id] = degree
	}

	var current []state.Key
	for id, degree := range inDegree {
		if degree == 0 {
			current = append(current, g.nodes[id])
		}
	}

	var levels [][]state.Key
	processed := 0
	for len(current) > 0 {
		state.SortKeys(current)
		levels = append(levels, current)
		processed += len(current)

		var next []state.Key
		for _, key := range current {
			for _, dependentID := range g.adjacency[key.String()] {
				inDegree[dependentID]--
				if inDegree[dependentID] == 0 {
					next = append(next, g.nodes[dependentID])
				}
			}
		}
		current = next
	}

	if processed != len(g.nodes) {
		var stuck []string
		for id, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, rsderr.Newf(rsderr.KindInvalidSystem,
			"circular dependency among components: %s", strings.Join(stuck, ", "))
	}
	return levels, nil
}
