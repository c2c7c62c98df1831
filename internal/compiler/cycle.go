package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/scylladb/go-set/strset"

	"github.com/roach88/populate/internal/shape"
)

// CycleWarning reports a group of shapes that reference each other.
//
// Recursive shapes are legal: metadata traversal expands a recursive field
// at most one level below where it was first met. The warning tells the
// author which paths populate will cut short.
type CycleWarning struct {
	Path    []string `json:"path" yaml:"path"`       // Cycle path: ["Node", "Node"]
	Message string   `json:"message" yaml:"message"` // Human-readable description
	Level   string   `json:"level" yaml:"level"`     // "info"
}

// AnalyzeCycles finds recursive shape references.
//
// The algorithm:
//  1. Build a shape → referenced shapes graph from object and collection
//     fields, skipping opaque shapes and ignored fields
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// Warnings are ordered by the first shape of their path. A spec without
// recursion returns an empty list.
func AnalyzeCycles(spec *Spec) []CycleWarning {
	graph := buildReferenceGraph(spec)

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// referenceGraph maps shape name → shapes its fields reference, in field
// order.
type referenceGraph struct {
	nodes []string
	edges map[string][]string
}

func buildReferenceGraph(spec *Spec) referenceGraph {
	opaque := strset.New()
	for _, name := range spec.Opaque {
		opaque.Add(strings.ToLower(name))
	}

	names := make(map[string]string, len(spec.Shapes))
	for _, s := range spec.Shapes {
		if _, dup := names[strings.ToLower(s.Name)]; !dup {
			names[strings.ToLower(s.Name)] = s.Name
		}
	}

	g := referenceGraph{edges: make(map[string][]string)}
	for _, s := range spec.Shapes {
		if names[strings.ToLower(s.Name)] != s.Name || opaque.Has(strings.ToLower(s.Name)) {
			continue
		}
		if _, seen := g.edges[s.Name]; seen {
			continue
		}
		g.nodes = append(g.nodes, s.Name)
		g.edges[s.Name] = []string{}
		for _, f := range s.Fields {
			leaf := f.Type.Leaf()
			if f.Ignore || leaf.Kind != shape.KindObject {
				continue
			}
			key := strings.ToLower(leaf.Shape)
			target, ok := names[key]
			if !ok || opaque.Has(key) || slices.Contains(g.edges[s.Name], target) {
				continue
			}
			g.edges[s.Name] = append(g.edges[s.Name], target)
		}
	}
	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph referenceGraph) bool {
	return slices.Contains(graph.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in declaration order so the result is deterministic.
func tarjanSCC(graph referenceGraph) [][]string {
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

		for _, w := range graph.edges[v] {
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
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range graph.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph referenceGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-referencing shape: %s → %s", name, name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Mutually recursive shapes: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath follows edges within the SCC from its first member
// until it returns there.
func reconstructCyclePath(scc []string, graph referenceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := strset.New(scc...)
	start := scc[0]
	current := start
	path := []string{current}
	visited := strset.New()

	for {
		visited.Add(current)

		var next string
		for _, neighbor := range graph.edges[current] {
			if members.Has(neighbor) && !visited.Has(neighbor) {
				next = neighbor
				break
			}
		}
		if next == "" && slices.Contains(graph.edges[current], start) {
			next = start
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
