package runtime

import "github.com/aretw0/techtrends/pkg/domain"

const (
	startNodeID = "start"
	endNodeID   = "end"
)

// Graph describes the configured workflow: every stage continues to the next one
// (or to the end) and diverts to the error handler on failure.
func (e *Engine) Graph() domain.Graph {
	g := domain.Graph{
		Nodes: []domain.GraphNode{{ID: startNodeID, Kind: domain.NodeStart}},
	}

	prev := startNodeID
	for i, s := range e.stages {
		id := string(s.Name())
		g.Nodes = append(g.Nodes, domain.GraphNode{ID: id, Kind: domain.NodeStage})

		if i == 0 {
			g.Edges = append(g.Edges, domain.GraphEdge{From: prev, To: id})
		}

		next := endNodeID
		if i+1 < len(e.stages) {
			next = string(e.stages[i+1].Name())
		}
		g.Edges = append(g.Edges, domain.GraphEdge{From: id, To: next, Route: domain.RouteContinue})

		if e.errorHandler != nil {
			g.Edges = append(g.Edges, domain.GraphEdge{From: id, To: string(e.errorHandler.Name()), Route: domain.RouteError})
		}
		prev = id
	}

	if e.errorHandler != nil {
		id := string(e.errorHandler.Name())
		g.Nodes = append(g.Nodes, domain.GraphNode{ID: id, Kind: domain.NodeError})
		g.Edges = append(g.Edges, domain.GraphEdge{From: id, To: endNodeID})
	}

	g.Nodes = append(g.Nodes, domain.GraphNode{ID: endNodeID, Kind: domain.NodeEnd})
	return g
}
