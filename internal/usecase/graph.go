package usecase

import "chatqna-orchestrator/internal/domain"

// Node names of the fixed pipeline topology.
const (
	NodeEmbedding = "embedding"
	NodeRetriever = "retriever"
	NodeRerank    = "rerank"
	NodeLLM       = "llm"
)

// Graph holds the pipeline's named stages and an explicit edge list. The
// topology is built once at startup; per-request pruning works on a clone,
// never on shared state.
type Graph struct {
	nodes []string
	kinds map[string]domain.StageKind
	edges map[string][]string
}

// NewChatPipelineGraph builds the fixed embedding → retriever → rerank → llm
// chain.
func NewChatPipelineGraph() *Graph {
	g := &Graph{
		kinds: make(map[string]domain.StageKind),
		edges: make(map[string][]string),
	}
	g.AddNode(NodeEmbedding, domain.StageEmbedding)
	g.AddNode(NodeRetriever, domain.StageRetriever)
	g.AddNode(NodeRerank, domain.StageRerank)
	g.AddNode(NodeLLM, domain.StageLLM)
	g.AddEdge(NodeEmbedding, NodeRetriever)
	g.AddEdge(NodeRetriever, NodeRerank)
	g.AddEdge(NodeRerank, NodeLLM)
	return g
}

// AddNode registers a stage. Node order is execution order for the linear
// topology this service uses.
func (g *Graph) AddNode(name string, kind domain.StageKind) {
	g.nodes = append(g.nodes, name)
	g.kinds[name] = kind
}

// AddEdge wires from → to.
func (g *Graph) AddEdge(from, to string) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Clone copies the graph so a request can prune edges without touching the
// shared topology.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		nodes: append([]string(nil), g.nodes...),
		kinds: make(map[string]domain.StageKind, len(g.kinds)),
		edges: make(map[string][]string, len(g.edges)),
	}
	for name, kind := range g.kinds {
		clone.kinds[name] = kind
	}
	for from, tos := range g.edges {
		clone.edges[from] = append([]string(nil), tos...)
	}
	return clone
}

// Has reports whether the node is still part of the graph.
func (g *Graph) Has(name string) bool {
	for _, n := range g.nodes {
		if n == name {
			return true
		}
	}
	return false
}

// Kind returns the stage kind of a node.
func (g *Graph) Kind(name string) domain.StageKind {
	return g.kinds[name]
}

// Nodes returns the remaining nodes in execution order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Downstream returns the direct successors of a node.
func (g *Graph) Downstream(name string) []string {
	return append([]string(nil), g.edges[name]...)
}

// Splice removes a node and reconnects each of its predecessors directly to
// each of its successors. This is the documented graph transformation used
// to bypass rerank when retrieval fails or comes back empty.
func (g *Graph) Splice(name string) {
	successors := g.edges[name]
	for from, tos := range g.edges {
		if from == name {
			continue
		}
		filtered := tos[:0]
		pointedAt := false
		for _, to := range tos {
			if to == name {
				pointedAt = true
				continue
			}
			filtered = append(filtered, to)
		}
		g.edges[from] = filtered
		if pointedAt {
			for _, succ := range successors {
				g.AddEdge(from, succ)
			}
		}
	}
	delete(g.edges, name)
	delete(g.kinds, name)
	for i, n := range g.nodes {
		if n == name {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
}

// Leaves returns the nodes with no outgoing edges, in node order.
func (g *Graph) Leaves() []string {
	var leaves []string
	for _, n := range g.nodes {
		if len(g.edges[n]) == 0 {
			leaves = append(leaves, n)
		}
	}
	return leaves
}
