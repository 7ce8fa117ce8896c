package model

// NodeKind classifies diagram elements. EPC and BPMN kinds share one namespace.
type NodeKind string

const (
	KindEvent            NodeKind = "event"
	KindFunction         NodeKind = "function"
	KindAndConnector     NodeKind = "and"
	KindOrConnector      NodeKind = "or"
	KindXorConnector     NodeKind = "xor"
	KindProcessInterface NodeKind = "process-interface"
	KindStartEvent       NodeKind = "start-event"
	KindEndEvent         NodeKind = "end-event"
	KindTask             NodeKind = "task"
	KindGateway          NodeKind = "gateway"
	KindPlace            NodeKind = "place"
	KindTransition       NodeKind = "transition"
)

// IsConnector reports whether k is a routing element (EPC connector or BPMN gateway).
func (k NodeKind) IsConnector() bool {
	switch k {
	case KindAndConnector, KindOrConnector, KindXorConnector, KindGateway:
		return true
	}
	return false
}

// IsActivity reports whether k is an element that performs work.
func (k NodeKind) IsActivity() bool {
	return k == KindFunction || k == KindTask || k == KindProcessInterface || k == KindTransition
}

// Node is one element of a parsed diagram.
type Node struct {
	ID    string   `json:"id"`
	Kind  NodeKind `json:"kind"`
	Label string   `json:"label,omitempty"`
}

// Edge is a directed control-flow arc between two nodes.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Diagram is the parsed, notation-level representation of an artifact. It is not
// validated: edges may reference missing nodes until converted to a ProcessModel.
type Diagram struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Notation Notation `json:"notation,omitempty"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
}
