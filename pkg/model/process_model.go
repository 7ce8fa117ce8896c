package model

import (
	"fmt"
	"sort"
)

// ProcessModel is the graph view of a diagram: nodes indexed by ID plus
// successor and predecessor adjacency.
type ProcessModel struct {
	ID       string
	Name     string
	Notation Notation

	nodes map[string]Node
	order []string
	succ  map[string][]string
	pred  map[string][]string
	edges int
}

// NewProcessModel builds a process model from a diagram. Duplicate node IDs and
// edges that reference unknown nodes are rejected.
func NewProcessModel(d *Diagram) (*ProcessModel, error) {
	if d == nil {
		return nil, fmt.Errorf("diagram is nil")
	}
	pm := &ProcessModel{
		ID:       d.ID,
		Name:     d.Name,
		Notation: d.Notation,
		nodes:    make(map[string]Node, len(d.Nodes)),
		order:    make([]string, 0, len(d.Nodes)),
		succ:     make(map[string][]string, len(d.Nodes)),
		pred:     make(map[string][]string, len(d.Nodes)),
	}
	for _, n := range d.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("diagram %s: node without id", d.ID)
		}
		if _, dup := pm.nodes[n.ID]; dup {
			return nil, fmt.Errorf("diagram %s: duplicate node %q", d.ID, n.ID)
		}
		pm.nodes[n.ID] = n
		pm.order = append(pm.order, n.ID)
	}
	for _, e := range d.Edges {
		if _, ok := pm.nodes[e.From]; !ok {
			return nil, fmt.Errorf("diagram %s: edge from unknown node %q", d.ID, e.From)
		}
		if _, ok := pm.nodes[e.To]; !ok {
			return nil, fmt.Errorf("diagram %s: edge to unknown node %q", d.ID, e.To)
		}
		pm.succ[e.From] = append(pm.succ[e.From], e.To)
		pm.pred[e.To] = append(pm.pred[e.To], e.From)
		pm.edges++
	}
	return pm, nil
}

// NodeCount returns the number of nodes.
func (pm *ProcessModel) NodeCount() int { return len(pm.order) }

// EdgeCount returns the number of arcs.
func (pm *ProcessModel) EdgeCount() int { return pm.edges }

// Nodes returns the nodes in diagram order.
func (pm *ProcessModel) Nodes() []Node {
	out := make([]Node, len(pm.order))
	for i, id := range pm.order {
		out[i] = pm.nodes[id]
	}
	return out
}

// Node returns the node with the given ID.
func (pm *ProcessModel) Node(id string) (Node, bool) {
	n, ok := pm.nodes[id]
	return n, ok
}

// Successors returns the direct successors of id.
func (pm *ProcessModel) Successors(id string) []string { return pm.succ[id] }

// Predecessors returns the direct predecessors of id.
func (pm *ProcessModel) Predecessors(id string) []string { return pm.pred[id] }

// NodesOfKind returns the nodes of kind k in diagram order.
func (pm *ProcessModel) NodesOfKind(k NodeKind) []Node {
	var out []Node
	for _, id := range pm.order {
		if n := pm.nodes[id]; n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// KindCounts returns the number of nodes per kind.
func (pm *ProcessModel) KindCounts() map[NodeKind]int {
	out := make(map[NodeKind]int)
	for _, n := range pm.nodes {
		out[n.Kind]++
	}
	return out
}

// Kinds returns the distinct node kinds, sorted.
func (pm *ProcessModel) Kinds() []NodeKind {
	counts := pm.KindCounts()
	out := make([]NodeKind, 0, len(counts))
	for k := range counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connected reports whether the model is weakly connected. A model without
// nodes is not connected.
func (pm *ProcessModel) Connected() bool {
	if len(pm.order) == 0 {
		return false
	}
	seen := make(map[string]bool, len(pm.order))
	stack := []string{pm.order[0]}
	seen[pm.order[0]] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range pm.succ[id] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
		for _, prev := range pm.pred[id] {
			if !seen[prev] {
				seen[prev] = true
				stack = append(stack, prev)
			}
		}
	}
	return len(seen) == len(pm.order)
}
