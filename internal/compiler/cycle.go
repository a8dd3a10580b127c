package compiler

import (
	"github.com/roach88/clafer/internal/ir"
)

// AnalyzeInheritance reports every cycle through superclafer links.
//
// Builders reject cyclic extending calls up front, but fixtures assembled
// from CUE or by hand can still carry one. Each returned path starts and
// ends with the same clafer, e.g. ["A", "B", "A"].
func AnalyzeInheritance(f *ir.Fixture) [][]string {
	return analyzeCycles(f, func(c *ir.Clafer) string { return c.Super })
}

// AnalyzeContainment reports every cycle through parent links.
func AnalyzeContainment(f *ir.Fixture) [][]string {
	return analyzeCycles(f, func(c *ir.Clafer) string { return c.Parent })
}

// analyzeCycles builds the graph clafer → edge(clafer) and reports each
// strongly connected component with more than one node, or with a
// self-loop, as a cycle path.
//
// The algorithm:
//  1. Build the edge graph over clafers in declaration order
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Reconstruct a cycle path from the earliest-declared member
//
// Output order follows declaration order, so results are deterministic.
func analyzeCycles(f *ir.Fixture, edge func(*ir.Clafer) string) [][]string {
	graph := make(dependencyGraph)
	var nodes []string
	for _, c := range f.ClafersInOrder() {
		nodes = append(nodes, c.Name)
		graph[c.Name] = nil
		if target := edge(c); target != "" {
			if _, ok := f.Lookup(target); ok {
				graph[c.Name] = []string{target}
			}
		}
	}

	position := make(map[string]int, len(nodes))
	for i, n := range nodes {
		position[n] = i
	}

	var cycles [][]string
	for _, scc := range tarjanSCC(nodes, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, reconstructCyclePath(earliestFirst(scc, position), graph))
		}
	}

	// SCCs come out in reverse topological order; report by declaration.
	sortByFirstPosition(cycles, position)
	return cycles
}

// dependencyGraph maps clafer name → names it links to.
type dependencyGraph map[string][]string

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the given node order.
func tarjanSCC(nodes []string, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// earliestFirst rotates the SCC member list so the earliest-declared member
// comes first.
func earliestFirst(scc []string, position map[string]int) []string {
	best := 0
	for i, n := range scc {
		if position[n] < position[scc[best]] {
			best = i
		}
	}
	return append(append([]string{}, scc[best:]...), scc[:best]...)
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}

func sortByFirstPosition(paths [][]string, position map[string]int) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && position[paths[j][0]] < position[paths[j-1][0]]; j-- {
			paths[j], paths[j-1] = paths[j-1], paths[j]
		}
	}
}
