// Package graph builds the dataflow graph described in spec.md §3/§4.3 and
// produces the topological schedule the propagation engine runs once per
// cycle.
package graph

import "fmt"

// Graph is a general-purpose DAG over string-named nodes. An edge from A to
// B means "B depends on A": A must be scheduled before B. Architecture
// construction (pkg/arch, via pkg/hcl) adds one node per unit, per
// unit input/output port, per stage prev/next field, and per intermediate
// signal, then edges per the rules in spec.md §4.3.
type Graph struct {
	order   []string        // insertion order, for deterministic tie-breaks
	index   map[string]int  // name -> position in order
	deferred map[string]bool // stage-register unit nodes, scheduled last
	adjOut  map[string][]string
	indeg   map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		index:    make(map[string]int),
		deferred: make(map[string]bool),
		adjOut:   make(map[string][]string),
		indeg:    make(map[string]int),
	}
}

// AddNode registers a node if it is not already present. deferred marks a
// node (a stage-register unit) that the ordering refinement moves to the
// end of the schedule regardless of its position in the natural
// topological order (spec.md §4.3).
func (g *Graph) AddNode(name string, deferred bool) {
	if _, ok := g.index[name]; ok {
		if deferred {
			g.deferred[name] = true
		}
		return
	}
	g.index[name] = len(g.order)
	g.order = append(g.order, name)
	if deferred {
		g.deferred[name] = true
	}
}

// AddEdge records that `to` depends on `from`, adding either node if it
// does not exist yet. Duplicate edges are harmless no-ops.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from, false)
	g.AddNode(to, false)
	for _, existing := range g.adjOut[from] {
		if existing == to {
			return
		}
	}
	g.adjOut[from] = append(g.adjOut[from], to)
	g.indeg[to]++
}

// InDegree reports the number of edges currently pointing at name (0 if the
// node has never been the target of AddEdge).
func (g *Graph) InDegree(name string) int { return g.indeg[name] }

// CycleError reports that the graph could not be fully ordered: the named
// nodes still had unresolved (non-zero) in-degree, meaning they sit on (or
// downstream of) a dependency cycle. Fatal per spec.md §4.3/§7.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dataflow graph has a cycle: unresolved nodes %v", e.Remaining)
}

// Toposort runs Kahn's algorithm with a deterministic insertion-order
// tie-break, then stably moves deferred (stage-register) nodes to the end
// (spec.md §4.3's ordering refinement). Returns a *CycleError if any node's
// in-degree never reaches zero.
func (g *Graph) Toposort() ([]string, error) {
	indeg := make(map[string]int, len(g.order))
	for _, n := range g.order {
		indeg[n] = g.indeg[n]
	}

	ready := newOrderedSet(g.order, indeg)
	var out []string
	for ready.len() > 0 {
		n := ready.popLowestIndex()
		out = append(out, n)
		for _, next := range g.adjOut[n] {
			indeg[next]--
			if indeg[next] == 0 {
				ready.push(next)
			}
		}
	}

	if len(out) != len(g.order) {
		var remaining []string
		for _, n := range g.order {
			if indeg[n] > 0 {
				remaining = append(remaining, n)
			}
		}
		return nil, &CycleError{Remaining: remaining}
	}

	return stablePartitionDeferred(out, g.deferred), nil
}

// stablePartitionDeferred moves every node flagged deferred to the end of
// the slice, preserving relative order within each group.
func stablePartitionDeferred(order []string, deferred map[string]bool) []string {
	out := make([]string, 0, len(order))
	var tail []string
	for _, n := range order {
		if deferred[n] {
			tail = append(tail, n)
		} else {
			out = append(out, n)
		}
	}
	return append(out, tail...)
}

// orderedSet tracks the current set of zero-indegree nodes and pops the one
// with the lowest original insertion index, giving Kahn's algorithm a
// deterministic tie-break.
type orderedSet struct {
	indexOf map[string]int
	members map[string]bool
}

func newOrderedSet(order []string, indeg map[string]int) *orderedSet {
	s := &orderedSet{indexOf: make(map[string]int, len(order)), members: make(map[string]bool)}
	for i, n := range order {
		s.indexOf[n] = i
		if indeg[n] == 0 {
			s.members[n] = true
		}
	}
	return s
}

func (s *orderedSet) len() int { return len(s.members) }

func (s *orderedSet) push(n string) { s.members[n] = true }

func (s *orderedSet) popLowestIndex() string {
	best := ""
	bestIdx := -1
	for n := range s.members {
		idx := s.indexOf[n]
		if bestIdx == -1 || idx < bestIdx {
			bestIdx = idx
			best = n
		}
	}
	delete(s.members, best)
	return best
}
