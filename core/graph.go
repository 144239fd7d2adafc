// Package core provides the stage-dependency graph the Orchestrator
// validates its execution order against, and helpers to linearize a final
// itinerary day into a start-time-ordered sequence.
package core

import (
	"fmt"
	"strings"
)

// Node is one pipeline stage.
type Node struct {
	ID string
}

// Edge is a "must run before" dependency between two stages.
type Edge struct {
	FromID string
	ToID   string
}

// Graph is a directed graph of stage dependencies.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// AddNode adds a node to the graph.
func AddNode(g *Graph, node *Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge adds an edge to the graph.
func AddEdge(g *Graph, edge *Edge) {
	g.Edges = append(g.Edges, edge)
}

// GetNodeByID returns a node by its ID.
func GetNodeByID(g *Graph, id string) *Node {
	for _, node := range g.Nodes {
		if node.ID == id {
			return node
		}
	}
	return nil
}

// GetEdgesFromNode returns all edges originating from a given node.
func GetEdgesFromNode(g *Graph, nodeID string) []*Edge {
	var edges []*Edge
	for _, edge := range g.Edges {
		if edge.FromID == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// GetEdgesToNode returns all edges leading to a given node.
func GetEdgesToNode(g *Graph, nodeID string) []*Edge {
	var edges []*Edge
	for _, edge := range g.Edges {
		if edge.ToID == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}

// ValidateNodes checks if all nodes have valid IDs and no duplicates.
func ValidateNodes(g *Graph) error {
	if g == nil {
		return nil
	}
	nodeIDs := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("found node with missing ID")
		}
		if nodeIDs[n.ID] {
			return fmt.Errorf("duplicate node ID found: %s", n.ID)
		}
		nodeIDs[n.ID] = true
	}
	return nil
}

// ValidateGraph performs comprehensive validation of the graph structure.
func ValidateGraph(g *Graph) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}

	if err := ValidateNodes(g); err != nil {
		return fmt.Errorf("node validation failed: %w", err)
	}

	nodeIDs := make(map[string]bool)
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = true
	}

	var errs []string
	for i, edge := range g.Edges {
		if edge.FromID == "" {
			errs = append(errs, fmt.Sprintf("edge %d: FromID is empty", i))
		}
		if edge.ToID == "" {
			errs = append(errs, fmt.Sprintf("edge %d: ToID is empty", i))
		}
		if !nodeIDs[edge.FromID] {
			errs = append(errs, fmt.Sprintf("edge %d: FromID '%s' not found in nodes", i, edge.FromID))
		}
		if !nodeIDs[edge.ToID] {
			errs = append(errs, fmt.Sprintf("edge %d: ToID '%s' not found in nodes", i, edge.ToID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("graph validation failed with %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}

	return nil
}

// HasCycle detects if there is a cycle in the directed graph.
func HasCycle(g *Graph) bool {
	if g == nil || len(g.Edges) == 0 {
		return false
	}

	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.FromID] = append(adj[e.FromID], e.ToID)
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var isCyclic func(string) bool
	isCyclic = func(node string) bool {
		visited[node] = true
		recStack[node] = true

		for _, neighbor := range adj[node] {
			if !visited[neighbor] {
				if isCyclic(neighbor) {
					return true
				}
			} else if recStack[neighbor] {
				return true
			}
		}

		recStack[node] = false
		return false
	}

	allIDs := make(map[string]bool)
	for _, n := range g.Nodes {
		allIDs[n.ID] = true
	}
	for _, e := range g.Edges {
		allIDs[e.FromID] = true
		allIDs[e.ToID] = true
	}

	for id := range allIDs {
		if !visited[id] {
			if isCyclic(id) {
				return true
			}
		}
	}

	return false
}

// Stage IDs for the planning pipeline's dependency graph.
const (
	StagePOIProvider        = "poi_provider"
	StageTravelTimeProvider = "travel_time_provider"
	StageMacroPlanner       = "macro_planner"
	StagePOIPlanner         = "poi_planner"
	StageRouteOptimizer     = "route_optimizer"
	StageTripCritic         = "trip_critic"
)

// PipelineGraph builds the fixed stage-dependency graph described in
// spec.md §2: the two provider leaves feed the stages that call them, and
// the four planning stages form a strict chain.
func PipelineGraph() *Graph {
	g := NewGraph()
	for _, id := range []string{
		StagePOIProvider, StageTravelTimeProvider,
		StageMacroPlanner, StagePOIPlanner, StageRouteOptimizer, StageTripCritic,
	} {
		AddNode(g, &Node{ID: id})
	}
	AddEdge(g, &Edge{FromID: StageMacroPlanner, ToID: StagePOIPlanner})
	AddEdge(g, &Edge{FromID: StagePOIProvider, ToID: StagePOIPlanner})
	AddEdge(g, &Edge{FromID: StagePOIPlanner, ToID: StageRouteOptimizer})
	AddEdge(g, &Edge{FromID: StageTravelTimeProvider, ToID: StageRouteOptimizer})
	AddEdge(g, &Edge{FromID: StageRouteOptimizer, ToID: StageTripCritic})
	return g
}
