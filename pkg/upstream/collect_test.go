package upstream

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flow/pkg/domain"
)

func chatflow() ([]domain.Node, []domain.Edge) {
	nodes := []domain.Node{
		{ID: "s1", Type: domain.NodeTypeStart, Data: domain.NodeData{Title: "Start"}},
		{ID: "k1", Type: domain.NodeTypeKnowledgeRetrieval},
		{ID: "l1", Type: domain.NodeTypeLLM, Data: domain.NodeData{Title: "LLM"}},
		{ID: "e1", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{ID: "a", Source: "s1", Target: "k1"},
		{ID: "b", Source: "k1", Target: "l1"},
		{ID: "c", Source: "l1", Target: "e1"},
	}
	return nodes, edges
}

func selectors(groups []domain.NodeVariableGroup) []string {
	var out []string
	for _, v := range Flatten(groups) {
		out = append(out, v.Selector.String())
	}
	return out
}

func TestCollect_StartToLLM(t *testing.T) {
	nodes := []domain.Node{
		{ID: "s1", Type: domain.NodeTypeStart, Data: domain.NodeData{Title: "Start"}},
		{ID: "l1", Type: domain.NodeTypeLLM},
	}
	edges := []domain.Edge{{ID: "e", Source: "s1", Target: "l1"}}

	groups := Collect("l1", nodes, edges, "", Options{})
	require.Len(t, groups, 1)
	assert.Equal(t, "s1", groups[0].NodeID)
	assert.Equal(t, "Start", groups[0].NodeName)
	assert.Equal(t, domain.NodeTypeStart, groups[0].NodeType)
	assert.Equal(t, []string{"s1.query", "s1.session_id"}, selectors(groups))

	assert.Empty(t, Collect("s1", nodes, edges, "", Options{}))
	assert.NotNil(t, Collect("s1", nodes, edges, "", Options{}))
}

func TestCollect_TransitiveOrder(t *testing.T) {
	nodes, edges := chatflow()

	groups := Collect("e1", nodes, edges, "", Options{})
	require.Len(t, groups, 3)
	assert.Equal(t, "l1", groups[0].NodeID)
	assert.Equal(t, "k1", groups[1].NodeID)
	assert.Equal(t, "knowledge-retrieval", groups[1].NodeName)
	assert.Equal(t, "s1", groups[2].NodeID)
}

func TestCollect_TypeFilter(t *testing.T) {
	nodes, edges := chatflow()

	numbers := Collect("e1", nodes, edges, domain.PortTypeNumber, Options{})
	assert.Equal(t, []string{"l1.tokens", "k1.doc_count"}, selectors(numbers))

	// The start node has no number outputs and is dropped entirely.
	for _, g := range numbers {
		assert.NotEqual(t, "s1", g.NodeID)
	}

	all := Collect("e1", nodes, edges, domain.PortTypeAny, Options{})
	assert.Len(t, Flatten(all), 3+3+2)
}

func TestCollect_AnyPortMatchesEveryFilter(t *testing.T) {
	nodes := []domain.Node{
		{ID: "va", Type: domain.NodeTypeVariableAssigner, Data: domain.NodeData{Config: &domain.AggregatorConfig{OutputType: domain.PortTypeAny}}},
		{ID: "l1", Type: domain.NodeTypeLLM},
	}
	edges := []domain.Edge{{ID: "e", Source: "va", Target: "l1"}}

	groups := Collect("l1", nodes, edges, domain.PortTypeString, Options{})
	require.Len(t, groups, 1)
	assert.Equal(t, domain.PortTypeAny, groups[0].Variables[0].Type)
	assert.Equal(t, "Output", groups[0].Variables[0].DisplayName)
}

func TestCollect_NodesWithoutPortsAreSkipped(t *testing.T) {
	nodes := []domain.Node{
		{ID: "custom", Type: "custom"},
		{ID: "l1", Type: domain.NodeTypeLLM},
	}
	edges := []domain.Edge{{ID: "e", Source: "custom", Target: "l1"}}

	assert.Empty(t, Collect("l1", nodes, edges, "", Options{}))
}

func TestCollect_DisplayNameFallsBackToPortName(t *testing.T) {
	nodes := []domain.Node{
		{ID: "x", Type: "custom", Data: domain.NodeData{Ports: &domain.NodePortSchema{
			Outputs: []domain.PortDefinition{{Name: "raw", Type: domain.PortTypeString, Description: "d"}},
		}}},
		{ID: "l1", Type: domain.NodeTypeLLM},
	}
	edges := []domain.Edge{{ID: "e", Source: "x", Target: "l1"}}

	vars := Flatten(Collect("l1", nodes, edges, "", Options{}))
	require.Len(t, vars, 1)
	assert.Equal(t, "raw", vars[0].DisplayName)
	assert.Equal(t, "d", vars[0].Description)
}

func TestCollect_CycleTerminates(t *testing.T) {
	nodes := []domain.Node{
		{ID: "a", Type: domain.NodeTypeLLM},
		{ID: "b", Type: domain.NodeTypeLLM},
		{ID: "c", Type: domain.NodeTypeLLM},
	}
	edges := []domain.Edge{
		{ID: "1", Source: "a", Target: "b"},
		{ID: "2", Source: "b", Target: "c"},
		{ID: "3", Source: "c", Target: "a"},
	}

	groups := Collect("a", nodes, edges, "", Options{})
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.NodeID)
	}
	assert.Equal(t, []string{"c", "b"}, ids)
}

func TestCollect_DiamondVisitsOnce(t *testing.T) {
	nodes := []domain.Node{
		{ID: "s", Type: domain.NodeTypeStart},
		{ID: "l", Type: domain.NodeTypeLLM},
		{ID: "r", Type: domain.NodeTypeKnowledgeRetrieval},
		{ID: "e", Type: domain.NodeTypeEnd},
	}
	edges := []domain.Edge{
		{ID: "1", Source: "s", Target: "l"},
		{ID: "2", Source: "s", Target: "r"},
		{ID: "3", Source: "l", Target: "e"},
		{ID: "4", Source: "r", Target: "e"},
	}

	groups := Collect("e", nodes, edges, "", Options{})
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.NodeID)
	}
	assert.Equal(t, []string{"l", "r", "s"}, ids)
}

func TestGraph_DepthBoundTruncates(t *testing.T) {
	var nodes []domain.Node
	var edges []domain.Edge
	for i := 0; i < 10; i++ {
		nodes = append(nodes, domain.Node{ID: fmt.Sprintf("n%d", i), Type: domain.NodeTypeLLM})
		if i > 0 {
			edges = append(edges, domain.Edge{ID: fmt.Sprint(i), Source: fmt.Sprintf("n%d", i-1), Target: fmt.Sprintf("n%d", i)})
		}
	}

	var buf bytes.Buffer
	g := NewGraph(nodes, edges, Options{MaxDepth: 3, Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	ancestors := g.Ancestors("n9")
	assert.Len(t, ancestors, 3)
	assert.Contains(t, buf.String(), "Upstream traversal truncated")

	limited := NewGraph(nodes, edges, Options{MaxNodes: 2, Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	assert.Len(t, limited.Ancestors("n9"), 2)
}

func TestGraph_DepthBoundUsesShortestPath(t *testing.T) {
	nodes := []domain.Node{
		{ID: "t", Type: domain.NodeTypeEnd},
		{ID: "a", Type: domain.NodeTypeLLM},
		{ID: "b", Type: domain.NodeTypeLLM},
		{ID: "c", Type: domain.NodeTypeStart},
	}
	// a is listed first so a depth-first walk would reach b through a, one
	// edge deeper than b's direct edge to t.
	edges := []domain.Edge{
		{ID: "1", Source: "a", Target: "t"},
		{ID: "2", Source: "b", Target: "t"},
		{ID: "3", Source: "b", Target: "a"},
		{ID: "4", Source: "c", Target: "b"},
	}

	var buf bytes.Buffer
	g := NewGraph(nodes, edges, Options{MaxDepth: 2, Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	assert.True(t, g.IsAncestor("t", "c"))
	assert.Len(t, g.Ancestors("t"), 3)
	assert.NotContains(t, buf.String(), "Upstream traversal truncated")

	shallow := NewGraph(nodes, edges, Options{MaxDepth: 1, Logger: slog.New(slog.NewTextHandler(&buf, nil))})
	var ids []string
	for _, n := range shallow.Ancestors("t") {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Contains(t, buf.String(), "Upstream traversal truncated")
}

func TestGraph_IsAncestor(t *testing.T) {
	nodes, edges := chatflow()
	g := NewGraph(nodes, edges, Options{})

	assert.True(t, g.IsAncestor("e1", "s1"))
	assert.True(t, g.IsAncestor("l1", "k1"))
	assert.False(t, g.IsAncestor("s1", "e1"))
	assert.False(t, g.IsAncestor("l1", "l1"))
}

func TestCollector_Memoises(t *testing.T) {
	nodes, edges := chatflow()
	c := NewCollector(Options{}, 2)

	first := c.Collect("e1", nodes, edges, "")
	assert.Equal(t, 1, c.Len())

	first[0].Variables[0].DisplayName = "mutated"
	second := c.Collect("e1", nodes, edges, "")
	assert.Equal(t, 1, c.Len())
	assert.NotEqual(t, "mutated", second[0].Variables[0].DisplayName)
	assert.Equal(t, Collect("e1", nodes, edges, "", Options{}), second)

	c.Collect("l1", nodes, edges, "")
	c.Collect("k1", nodes, edges, "")
	assert.Equal(t, 2, c.Len())

	// A topology change is a different key.
	edges = edges[:2]
	assert.Empty(t, c.Collect("e1", nodes, edges, ""))

	c.Flush()
	assert.Equal(t, 0, c.Len())

	uncached := NewCollector(Options{}, -1)
	assert.Len(t, uncached.Collect("e1", nodes, chatflowEdges(), ""), 3)
	assert.Equal(t, 0, uncached.Len())
}

func chatflowEdges() []domain.Edge {
	_, edges := chatflow()
	return edges
}
