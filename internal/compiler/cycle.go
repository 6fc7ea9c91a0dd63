package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/relsync/internal/ir"
)

// CycleWarning represents a cycle in the write order of cascading inserts.
//
// A MASTER or SUPERCLASS relation whose foreign key is required forces the
// target row to be written first. A cycle of such relations means no model
// in it can be inserted through a cascade. Cycles are warnings, not errors,
// because rows can still be written one at a time when a key is nullable
// at the storage level or supplied by the caller.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["Order", "Customer", "Order"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on the write order of the
// given models.
//
// The algorithm:
//  1. Build model → model edges for MASTER/SUPERCLASS relations whose
//     foreign key attribute is required
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// A DAG (no cycles) returns an empty warning list. Output is sorted so the
// result is stable across runs.
func AnalyzeCycles(specs []ir.ModelSpec) []CycleWarning {
	if len(specs) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(specs)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	slices.SortFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Message, b.Message)
	})
	return warnings
}

// dependencyGraph maps model → models that must be written before it.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the write-order graph.
func buildDependencyGraph(specs []ir.ModelSpec) dependencyGraph {
	graph := make(dependencyGraph)

	for _, spec := range specs {
		if graph[spec.Name] == nil {
			graph[spec.Name] = []string{}
		}
		for _, rel := range spec.Relations {
			if !rel.Type.SourceHoldsKey() || rel.Virtual {
				continue
			}
			fk, ok := spec.Attribute(rel.ForeignKey)
			if !ok || !fk.Required {
				continue
			}
			graph[spec.Name] = append(graph[spec.Name], rel.Target)
		}
	}

	for node := range graph {
		slices.Sort(graph[node])
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// sccFinder holds the traversal state of Tarjan's algorithm.
type sccFinder struct {
	graph   dependencyGraph
	next    int
	order   map[string]int // discovery index per model
	low     map[string]int // lowest index reachable per model
	pending []string       // models not yet assigned to a component
	open    map[string]bool
	found   [][]string
}

// tarjanSCC returns the strongly connected components of graph. Models are
// visited in name order so the output is deterministic. Single-model
// components without a self-loop are not cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	f := &sccFinder{
		graph: graph,
		order: make(map[string]int, len(graph)),
		low:   make(map[string]int, len(graph)),
		open:  make(map[string]bool, len(graph)),
	}

	models := make([]string, 0, len(graph))
	for m := range graph {
		models = append(models, m)
	}
	slices.Sort(models)

	for _, m := range models {
		if _, seen := f.order[m]; !seen {
			f.visit(m)
		}
	}
	return f.found
}

func (f *sccFinder) visit(m string) {
	f.order[m] = f.next
	f.low[m] = f.next
	f.next++
	f.pending = append(f.pending, m)
	f.open[m] = true

	for _, dep := range f.graph[m] {
		if _, seen := f.order[dep]; !seen {
			f.visit(dep)
			f.low[m] = min(f.low[m], f.low[dep])
		} else if f.open[dep] {
			f.low[m] = min(f.low[m], f.order[dep])
		}
	}

	if f.low[m] != f.order[m] {
		return
	}
	var component []string
	for {
		top := f.pending[len(f.pending)-1]
		f.pending = f.pending[:len(f.pending)-1]
		f.open[top] = false
		component = append(component, top)
		if top == m {
			break
		}
	}
	f.found = append(f.found, component)
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	if len(scc) == 1 {
		model := scc[0]
		return CycleWarning{
			Path:    []string{model, model},
			Message: fmt.Sprintf("Self-referencing required key detected: %s → %s", model, model),
			Level:   "warning",
		}
	}

	slices.Sort(scc)
	path := cyclePath(scc, graph)

	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Write-order cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// cyclePath walks from the first model of scc along edges that stay inside
// the component, never revisiting a model, until it returns to the start.
func cyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	start := scc[0]
	path := []string{start}
	for cur := start; ; {
		step := ""
		for _, dep := range graph[cur] {
			if !slices.Contains(scc, dep) {
				continue
			}
			if dep == start || !slices.Contains(path, dep) {
				step = dep
				break
			}
		}
		if step == "" {
			return path
		}
		path = append(path, step)
		if step == start {
			return path
		}
		cur = step
	}
}
