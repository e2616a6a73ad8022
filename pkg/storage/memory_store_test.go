package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flow/pkg/domain"
)

func testWorkflow() domain.Workflow {
	return domain.Workflow{
		Nodes: []domain.Node{
			{ID: "s1", Type: domain.NodeTypeStart},
			{ID: "qc", Type: domain.NodeTypeQuestionClassifier},
			{ID: "l1", Type: domain.NodeTypeLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "s1", Target: "qc"},
			{ID: "e2", Source: "qc", Target: "l1", SourceHandle: "class_1_branch"},
		},
	}
}

func TestMemoryGraphStore_UpdateNode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore(testWorkflow())

	title := "Router"
	ports := domain.NodePortSchema{Outputs: []domain.PortDefinition{{Name: "class_name", Type: domain.PortTypeString}}}
	cfg := &domain.ClassifierConfig{Classes: []domain.ClassTopic{{ID: "class_1"}}}
	require.NoError(t, store.UpdateNode(ctx, "qc", NodeUpdate{Title: &title, Config: cfg, Ports: &ports}))

	nodes, err := store.Nodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Router", nodes[1].Data.Title)
	assert.Same(t, cfg, nodes[1].Data.Config)
	require.NotNil(t, nodes[1].Data.Ports)
	assert.Equal(t, "class_name", nodes[1].Data.Ports.Outputs[0].Name)

	ports.Outputs[0].Name = "mutated"
	nodes, _ = store.Nodes(ctx)
	assert.Equal(t, "class_name", nodes[1].Data.Ports.Outputs[0].Name)

	err = store.UpdateNode(ctx, "missing", NodeUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGraphStore_Edges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore(testWorkflow())

	require.NoError(t, store.UpdateEdge(ctx, domain.Edge{ID: "e2", Source: "qc", Target: "l1", SourceHandle: "class_2_branch"}))
	edges, err := store.Edges(ctx)
	require.NoError(t, err)
	assert.Equal(t, "class_2_branch", edges[1].SourceHandle)

	require.NoError(t, store.DeleteEdge(ctx, "e1"))
	assert.ErrorIs(t, store.DeleteEdge(ctx, "e1"), ErrNotFound)
	assert.ErrorIs(t, store.UpdateEdge(ctx, domain.Edge{ID: "nope"}), ErrNotFound)

	edges, _ = store.Edges(ctx)
	require.Len(t, edges, 1)
	assert.Equal(t, "e2", edges[0].ID)

	require.NoError(t, store.AddEdge(ctx, domain.Edge{ID: "e3", Source: "s1", Target: "l1"}))
	assert.Error(t, store.AddEdge(ctx, domain.Edge{ID: "e3"}))
}

func TestMemoryGraphStore_RemoveNodeDropsEdges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryGraphStore(testWorkflow())

	require.NoError(t, store.RemoveNode(ctx, "qc"))
	wf := store.Workflow()
	assert.Len(t, wf.Nodes, 2)
	assert.Empty(t, wf.Edges)
	assert.ErrorIs(t, store.RemoveNode(ctx, "qc"), ErrNotFound)

	require.NoError(t, store.AddNode(ctx, domain.Node{ID: "qc", Type: domain.NodeTypeIfElse}))
	assert.Error(t, store.AddNode(ctx, domain.Node{ID: "qc"}))
}

func TestMemoryRunStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRunStore()

	state := domain.VariablePoolState{
		NodeOutputs:           map[string]domain.NodeOutputs{"llm_1": {"response": "hello"}},
		EnvironmentVariables:  map[string]any{"region": "eu"},
		ConversationVariables: map[string]any{},
	}
	id, err := store.SaveRun(ctx, state)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	state.NodeOutputs["llm_1"]["response"] = "changed"

	loaded, err := store.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", loaded.NodeOutputs["llm_1"]["response"])
	assert.Equal(t, "eu", loaded.EnvironmentVariables["region"])

	_, err = store.LoadRun(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
