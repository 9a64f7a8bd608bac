// Package graph provides a directed multigraph with a deterministic
// topological sort that can break cycles through a caller-supplied callback.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is returned when a cycle remains that the caller did not break
var ErrCycle = errors.New("circular dependency detected")

// CycleBreaker is asked to break the cycle running through the edges from
// -> to. Returning true removes those edges and resumes the sort.
type CycleBreaker[V comparable, E any] func(from, to V, edges []E) bool

// Multigraph is a directed graph allowing several labeled edges between the
// same pair of vertices. Vertex insertion order drives every tie-break.
type Multigraph[V comparable, E any] struct {
	vertices []V
	index    map[V]int
	out      map[V]map[V][]E
	name     func(V) string
}

// NewMultigraph creates an empty graph. name renders vertices in errors and
// may be nil.
func NewMultigraph[V comparable, E any](name func(V) string) *Multigraph[V, E] {
	if name == nil {
		name = func(v V) string { return fmt.Sprint(v) }
	}
	return &Multigraph[V, E]{
		index: make(map[V]int),
		out:   make(map[V]map[V][]E),
		name:  name,
	}
}

// AddVertex adds v if not already present
func (g *Multigraph[V, E]) AddVertex(v V) {
	if _, exists := g.index[v]; exists {
		return
	}
	g.index[v] = len(g.vertices)
	g.vertices = append(g.vertices, v)
	g.out[v] = make(map[V][]E)
}

// AddVertices adds each vertex in order
func (g *Multigraph[V, E]) AddVertices(vs ...V) {
	for _, v := range vs {
		g.AddVertex(v)
	}
}

// AddEdge adds a labeled edge meaning "from must come before to". Edges to
// or from unknown vertices are ignored.
func (g *Multigraph[V, E]) AddEdge(from, to V, edge E) {
	if _, ok := g.index[from]; !ok {
		return
	}
	if _, ok := g.index[to]; !ok {
		return
	}
	g.out[from][to] = append(g.out[from][to], edge)
}

// Vertices returns the vertices in insertion order
func (g *Multigraph[V, E]) Vertices() []V {
	out := make([]V, len(g.vertices))
	copy(out, g.vertices)
	return out
}

// Edges returns the labels on from -> to
func (g *Multigraph[V, E]) Edges(from, to V) []E {
	if m, ok := g.out[from]; ok {
		return m[to]
	}
	return nil
}

// TopologicalSort orders vertices so every edge's source precedes its
// target (Kahn's algorithm, scanning in insertion order). When only cycles
// remain, the first edge that lies on a cycle is offered to breakCycle.
func (g *Multigraph[V, E]) TopologicalSort(breakCycle CycleBreaker[V, E]) ([]V, error) {
	removed := make(map[V]map[V]bool)
	isRemoved := func(from, to V) bool {
		return removed[from] != nil && removed[from][to]
	}
	live := func(from, to V) bool {
		return len(g.out[from][to]) > 0 && !isRemoved(from, to)
	}

	done := make(map[V]bool, len(g.vertices))
	sorted := make([]V, 0, len(g.vertices))

	blocked := func(v V) bool {
		for _, u := range g.vertices {
			if !done[u] && live(u, v) {
				return true
			}
		}
		return false
	}

	for len(sorted) < len(g.vertices) {
		progress := false
		for _, v := range g.vertices {
			if done[v] || blocked(v) {
				continue
			}
			done[v] = true
			sorted = append(sorted, v)
			progress = true
		}
		if progress {
			continue
		}

		from, to, ok := g.cyclicEdge(done, live)
		if !ok {
			// Unreachable: no progress implies a cycle among the remaining vertices.
			return nil, ErrCycle
		}
		if breakCycle == nil || !breakCycle(from, to, g.out[from][to]) {
			return nil, fmt.Errorf("%w: %s", ErrCycle, g.formatCycle(from, to, done, live))
		}
		if removed[from] == nil {
			removed[from] = make(map[V]bool)
		}
		removed[from][to] = true
	}

	return sorted, nil
}

// cyclicEdge picks, in insertion order, the first pending vertex v with a
// pending predecessor u such that u is reachable from v.
func (g *Multigraph[V, E]) cyclicEdge(done map[V]bool, live func(V, V) bool) (V, V, bool) {
	for _, v := range g.vertices {
		if done[v] {
			continue
		}
		for _, u := range g.vertices {
			if done[u] || !live(u, v) {
				continue
			}
			if g.reachable(v, u, done, live) {
				return u, v, true
			}
		}
	}
	var zero V
	return zero, zero, false
}

func (g *Multigraph[V, E]) reachable(start, target V, done map[V]bool, live func(V, V) bool) bool {
	return g.path(start, target, done, live) != nil
}

// path returns a vertex path start -> ... -> target over live edges
func (g *Multigraph[V, E]) path(start, target V, done map[V]bool, live func(V, V) bool) []V {
	visited := make(map[V]bool)
	var walk func(v V) []V
	walk = func(v V) []V {
		if v == target {
			return []V{v}
		}
		if visited[v] {
			return nil
		}
		visited[v] = true
		for _, next := range g.vertices {
			if done[next] || !live(v, next) {
				continue
			}
			if p := walk(next); p != nil {
				return append([]V{v}, p...)
			}
		}
		return nil
	}
	return walk(start)
}

func (g *Multigraph[V, E]) formatCycle(from, to V, done map[V]bool, live func(V, V) bool) string {
	names := []string{g.name(from)}
	for _, v := range g.path(to, from, done, live) {
		names = append(names, g.name(v))
	}
	return strings.Join(names, " -> ")
}

// DetectCycles reports one cycle, if any, using a depth-first search
func (g *Multigraph[V, E]) DetectCycles() ([]V, error) {
	visited := make(map[V]bool)
	onPath := make(map[V]bool)
	var stack []V
	var cycle []V

	var dfs func(v V) bool
	dfs = func(v V) bool {
		if onPath[v] {
			for i, s := range stack {
				if s == v {
					cycle = append(append([]V{}, stack[i:]...), v)
					break
				}
			}
			return true
		}
		if visited[v] {
			return false
		}
		visited[v] = true
		onPath[v] = true
		stack = append(stack, v)
		for _, next := range g.vertices {
			if len(g.out[v][next]) > 0 && dfs(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		delete(onPath, v)
		return false
	}

	for _, v := range g.vertices {
		if dfs(v) {
			names := make([]string, len(cycle))
			for i, c := range cycle {
				names[i] = g.name(c)
			}
			return cycle, fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
		}
	}
	return nil, nil
}
