package depgraph

import (
	"fmt"
	"strings"
)

// Severity grades a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// CycleDedup selects how detected cycles are collapsed.
type CycleDedup string

const (
	// DedupMembers treats cycles with the same member set as one, regardless of
	// order. Distinct cycles over the same modules collapse.
	DedupMembers CycleDedup = "members"
	// DedupRotation keeps every distinct canonical rotation.
	DedupRotation CycleDedup = "rotation"
)

// Cycle is a closed dependency path. Modules ends with its first element.
type Cycle struct {
	ID          int      `json:"id" yaml:"id"`
	Modules     []string `json:"modules" yaml:"modules"`
	Length      int      `json:"length" yaml:"length"` // number of edges
	Severity    Severity `json:"severity" yaml:"severity"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

// Members returns the modules of the cycle without the closing duplicate.
func (c Cycle) Members() []string {
	if len(c.Modules) == 0 {
		return nil
	}
	return c.Modules[:len(c.Modules)-1]
}

// String renders the cycle as "a -> b -> a".
func (c Cycle) String() string {
	return strings.Join(c.Modules, " -> ")
}

// CycleDetector finds circular dependencies in a built graph. It never
// mutates the graph; each Detect call owns its traversal state.
type CycleDetector struct {
	graph *Graph
	dedup CycleDedup
}

// NewCycleDetector creates a detector. An empty dedup mode means DedupMembers.
func NewCycleDetector(g *Graph, dedup CycleDedup) *CycleDetector {
	if dedup == "" {
		dedup = DedupMembers
	}
	return &CycleDetector{graph: g, dedup: dedup}
}

const (
	unvisited = iota
	onStack
	finished
)

type dfsFrame struct {
	node string
	next int // index of the next dependency to explore
}

// FindCycles runs the depth-first search and returns canonical, deduplicated
// cycles as closed module paths.
func (d *CycleDetector) FindCycles() [][]string {
	if d.graph == nil || len(d.graph.Nodes) == 0 {
		return nil
	}

	state := make(map[string]int, len(d.graph.Nodes))
	var raw [][]string

	for _, root := range d.graph.SortedNames() {
		if state[root] != unvisited {
			continue
		}
		if cycle := d.traverse(root, state); cycle != nil {
			raw = append(raw, cycle)
		}
	}
	return d.unique(raw)
}

// traverse explores from root until the first back edge. The first cycle
// found ends the whole traversal: nodes still on the stack are marked
// finished and no further neighbors are explored from them.
func (d *CycleDetector) traverse(root string, state map[string]int) []string {
	path := []string{root}
	pos := map[string]int{root: 0}
	stack := []dfsFrame{{node: root}}
	state[root] = onStack

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		node := d.graph.Nodes[top.node]

		if node == nil || top.next >= len(node.Dependencies) {
			state[top.node] = finished
			delete(pos, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
			continue
		}

		neighbor := node.Dependencies[top.next].TargetModule
		top.next++

		switch state[neighbor] {
		case unvisited:
			state[neighbor] = onStack
			pos[neighbor] = len(path)
			path = append(path, neighbor)
			stack = append(stack, dfsFrame{node: neighbor})
		case onStack:
			cycle := make([]string, 0, len(path)-pos[neighbor]+1)
			cycle = append(cycle, path[pos[neighbor]:]...)
			cycle = append(cycle, neighbor)
			for _, f := range stack {
				state[f.node] = finished
			}
			return cycle
		}
	}
	return nil
}

func (d *CycleDetector) unique(cycles [][]string) [][]string {
	var out [][]string
	seen := make(map[string]bool)
	for _, c := range cycles {
		normalized := NormalizeCycle(c)
		if d.dedup == DedupRotation {
			key := strings.Join(normalized, "\x00")
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, normalized)
			continue
		}
		duplicate := false
		for _, existing := range out {
			if sameMembers(normalized, existing) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, normalized)
		}
	}
	return out
}

// NormalizeCycle rotates a closed cycle so it starts at its lexicographically
// smallest member, and closes it again.
func NormalizeCycle(cycle []string) []string {
	if len(cycle) <= 2 {
		return cycle
	}
	open := cycle[:len(cycle)-1]
	minIdx := 0
	for i := 1; i < len(open); i++ {
		if open[i] < open[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, open[minIdx:]...)
	out = append(out, open[:minIdx]...)
	out = append(out, open[minIdx])
	return out
}

func sameMembers(a, b []string) bool {
	setA := make(map[string]bool, len(a))
	for _, m := range a {
		setA[m] = true
	}
	setB := make(map[string]bool, len(b))
	for _, m := range b {
		setB[m] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for m := range setA {
		if !setB[m] {
			return false
		}
	}
	return true
}

// Detect returns the detected cycles with severity and remediation guidance.
func (d *CycleDetector) Detect() []Cycle {
	paths := d.FindCycles()
	cycles := make([]Cycle, 0, len(paths))
	for i, p := range paths {
		length := len(p) - 1
		cycles = append(cycles, Cycle{
			ID:          i + 1,
			Modules:     p,
			Length:      length,
			Severity:    CycleSeverity(length),
			Suggestions: BreakingSuggestions(p),
		})
	}
	return cycles
}

// CycleSeverity grades a cycle by its number of edges. Shorter cycles are
// tighter couplings and rank higher.
func CycleSeverity(length int) Severity {
	switch {
	case length <= 2:
		return SeverityCritical
	case length == 3:
		return SeverityHigh
	case length <= 5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// BreakingSuggestions returns the fixed remediation templates for a cycle.
func BreakingSuggestions(cycle []string) []string {
	first, last := "", ""
	if len(cycle) >= 2 {
		first, last = cycle[0], cycle[len(cycle)-2]
	}
	return []string{
		"Use dependency injection or interface segregation to break the direct dependency",
		fmt.Sprintf("Extract a shared module holding the common dependencies of %s and %s", first, last),
		"Consider reversing the call direction with a callback or event mechanism",
		"Introduce an intermediate layer or mediator between the modules",
	}
}
