package domain

// NodeKind classifies a node of the workflow graph.
type NodeKind string

const (
	NodeStart NodeKind = "start"
	NodeStage NodeKind = "stage"
	NodeError NodeKind = "error"
	NodeEnd   NodeKind = "end"
)

// Route is the decision taken after every stage.
type Route string

const (
	RouteContinue Route = "continue"
	RouteError    Route = "error"
)

// GraphNode is one vertex of the workflow graph.
type GraphNode struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
}

// GraphEdge connects two nodes. Route is empty for unconditional edges.
type GraphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Route Route  `json:"route,omitempty"`
}

// Graph is a static description of the workflow, used for inspection and export.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
