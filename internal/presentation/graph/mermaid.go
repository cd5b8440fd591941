package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/techtrends/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	FailedNode   string
}

// OverlayFromState highlights the stages a run went through.
// A failed run marks its failing stage; an unfinished run marks the next one.
func OverlayFromState(s *domain.WorkflowState, stages []domain.StageName) *GraphOverlay {
	o := &GraphOverlay{}
	for _, h := range s.History {
		o.VisitedNodes = append(o.VisitedNodes, string(h))
	}
	switch {
	case s.FailedStage != "":
		o.FailedNode = string(s.FailedStage)
	case !s.Terminated:
		for _, st := range stages {
			if !visited(s.History, st) {
				o.CurrentNode = string(st)
				break
			}
		}
	default:
		o.VisitedNodes = append(o.VisitedNodes, "end")
	}
	return o
}

func visited(history []domain.StageName, name domain.StageName) bool {
	for _, h := range history {
		if h == name {
			return true
		}
	}
	return false
}

// GenerateMermaid produces a Mermaid flowchart from a workflow graph.
// It applies semantic styling:
// - Start/End: ((Circle))
// - Error handler: {{Hexagon}}
// - Stage: [Rectangle]
// Error routes are drawn dotted with an "error" label.
func GenerateMermaid(g domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Kind {
		case domain.NodeStart, domain.NodeEnd:
			opener, closer = "((", "))"
		case domain.NodeError:
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, node.ID, closer)
	}

	for _, e := range g.Edges {
		arrow := "-->"
		if e.Route == domain.RouteError {
			arrow = "-. \"error\" .->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.From), arrow, sanitizeMermaidID(e.To))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
		if overlay.FailedNode != "" {
			fmt.Fprintf(&sb, "    class %s failed;\n", sanitizeMermaidID(overlay.FailedNode))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
