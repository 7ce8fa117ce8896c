package model

import "fmt"

// PetriNet is a place/transition net derived from a process model.
type PetriNet struct {
	ID          string   `json:"id"`
	Places      []string `json:"places"`
	Transitions []string `json:"transitions"`
	Arcs        []Edge   `json:"arcs"`
}

// NewPetriNet translates pm into a place/transition net. Activities and AND
// connectors become transitions; events, XOR/OR connectors and gateways become
// places. An arc between two elements of the same class gets an implicit
// intermediate element so the net stays bipartite.
func NewPetriNet(pm *ProcessModel) (*PetriNet, error) {
	if pm == nil {
		return nil, fmt.Errorf("process model is nil")
	}
	net := &PetriNet{ID: pm.ID}
	isTransition := make(map[string]bool, pm.NodeCount())
	for _, n := range pm.Nodes() {
		if n.Kind.IsActivity() || n.Kind == KindAndConnector {
			isTransition[n.ID] = true
			net.Transitions = append(net.Transitions, n.ID)
		} else {
			net.Places = append(net.Places, n.ID)
		}
	}
	for _, n := range pm.Nodes() {
		for _, to := range pm.Successors(n.ID) {
			if isTransition[n.ID] != isTransition[to] {
				net.Arcs = append(net.Arcs, Edge{From: n.ID, To: to})
				continue
			}
			mid := n.ID + "->" + to
			if isTransition[n.ID] {
				net.Places = append(net.Places, mid)
			} else {
				net.Transitions = append(net.Transitions, mid)
			}
			net.Arcs = append(net.Arcs, Edge{From: n.ID, To: mid}, Edge{From: mid, To: to})
		}
	}
	return net, nil
}
