// Package upstream computes which node outputs a node may reference: the
// outputs of its transitive ancestors, grouped per ancestor.
package upstream

import (
	"log/slog"

	"github.com/polisai/polis-flow/pkg/domain"
)

const (
	defaultMaxDepth = 256
	defaultMaxNodes = 4096
)

// Options bound a traversal.
type Options struct {
	// MaxDepth caps how many edges away from the target an ancestor may be.
	MaxDepth int
	// MaxNodes caps how many ancestors are visited in total.
	MaxNodes int
	// Logger receives a warning when a bound truncates the traversal.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Graph indexes nodes by id and edges by target.
type Graph struct {
	nodes    map[string]domain.Node
	incoming map[string][]string
	opts     Options
}

// NewGraph builds an index over the given nodes and edges. Edges whose source
// is not a known node are kept; they simply contribute no variables.
func NewGraph(nodes []domain.Node, edges []domain.Edge, opts Options) *Graph {
	g := &Graph{
		nodes:    make(map[string]domain.Node, len(nodes)),
		incoming: make(map[string][]string),
		opts:     opts.withDefaults(),
	}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range edges {
		g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	}
	return g
}

// Ancestors returns the transitive predecessors of target, nearest first,
// following incoming edges breadth-first so that each ancestor is reached at
// its shortest distance. The target itself is never included, even when it
// sits on a cycle.
func (g *Graph) Ancestors(target string) []domain.Node {
	type step struct {
		id    string
		depth int
	}

	visited := map[string]bool{target: true}
	queue := []step{{id: target}}
	var out []domain.Node
	truncated := false

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, src := range g.incoming[cur.id] {
			if visited[src] {
				continue
			}
			if cur.depth >= g.opts.MaxDepth || len(out) >= g.opts.MaxNodes {
				truncated = true
				continue
			}
			visited[src] = true
			node, ok := g.nodes[src]
			if !ok {
				continue
			}
			out = append(out, node)
			queue = append(queue, step{id: src, depth: cur.depth + 1})
		}
	}

	if truncated {
		g.opts.Logger.Warn("Upstream traversal truncated",
			"node_id", target,
			"max_depth", g.opts.MaxDepth,
			"max_nodes", g.opts.MaxNodes,
			"visited", len(out),
		)
	}
	return out
}

// IsAncestor reports whether candidate is a transitive predecessor of nodeID.
func (g *Graph) IsAncestor(nodeID, candidate string) bool {
	if nodeID == candidate {
		return false
	}
	for _, n := range g.Ancestors(nodeID) {
		if n.ID == candidate {
			return true
		}
	}
	return false
}
