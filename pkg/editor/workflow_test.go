package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flow/pkg/branch"
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/logging"
	"github.com/polisai/polis-flow/pkg/policy"
	"github.com/polisai/polis-flow/pkg/storage"
)

func invalidWorkflow() domain.Workflow {
	return domain.Workflow{
		Nodes: []domain.Node{
			{ID: "s1", Type: domain.NodeTypeStart},
			{ID: "ie", Type: domain.NodeTypeIfElse, Data: domain.NodeData{Config: &domain.IfElseConfig{
				Cases: []domain.IfElseCase{{
					CaseID:          "c1",
					LogicalOperator: domain.LogicalAnd,
					Conditions:      []domain.Condition{{ID: "k1", ComparisonOperator: domain.OpEmpty}},
				}},
			}}},
			{ID: "va", Type: domain.NodeTypeVariableAssigner, Data: domain.NodeData{Config: branch.NewAggregatorConfig()}},
		},
	}
}

func TestValidate_CollectsPerNodeProblems(t *testing.T) {
	ed, _ := newTestEditor(t, invalidWorkflow())

	problems, err := ed.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"ie": {"Case 1, condition 1: variable is required"},
		"va": {"at least one variable is required"},
	}, problems)
}

func TestCanPublish_WithoutGate(t *testing.T) {
	ed, _ := newTestEditor(t, invalidWorkflow())

	dec, err := ed.CanPublish(context.Background())
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, []string{
		"ie: Case 1, condition 1: variable is required",
		"va: at least one variable is required",
	}, dec.Reasons)

	clean, _ := newTestEditor(t, domain.Workflow{Nodes: []domain.Node{{ID: "s1", Type: domain.NodeTypeStart}}})
	dec, err = clean.CanPublish(context.Background())
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestCanPublish_WithPolicyGate(t *testing.T) {
	gate, err := policy.NewPublishGate(context.Background(), policy.PublishOptions{Logger: logging.Discard()})
	require.NoError(t, err)

	ed := New(Config{
		Store:   storage.NewMemoryGraphStore(invalidWorkflow()),
		Publish: gate,
		Logger:  logging.Discard(),
	})

	dec, err := ed.CanPublish(context.Background())
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Len(t, dec.Reasons, 2)
}

func testAgent() LibraryAgent {
	return LibraryAgent{
		ID:           "lib-42",
		Name:         "Summariser",
		Version:      "3",
		InputSchema:  []domain.PortDefinition{{Name: "text", Type: domain.PortTypeString, Required: true}},
		OutputSchema: []domain.PortDefinition{{Name: "summary", Type: domain.PortTypeString}},
		Graph:        &domain.Workflow{},
	}
}

func TestNewImportedWorkflowNode(t *testing.T) {
	node, err := NewImportedWorkflowNode(testAgent(), domain.Position{X: 10, Y: 20}, logging.Discard())
	require.NoError(t, err)

	assert.Equal(t, domain.NodeTypeImportedWorkflow, node.Type)
	assert.Regexp(t, `^imported_lib-42_[0-9a-f]{4}$`, node.ID)
	assert.Equal(t, "Summariser", node.Data.Title)
	require.NotNil(t, node.Data.Ports)
	assert.Equal(t, "summary", node.Data.Ports.Outputs[0].Name)

	cfg := node.Data.Config.(*domain.ImportedWorkflowConfig)
	assert.Equal(t, "lib-42", cfg.SourceVersionID)
	assert.True(t, cfg.ReadOnly)
	assert.False(t, cfg.IsExpanded)
	assert.NotNil(t, cfg.VariableMappings)
	assert.NoError(t, ValidateImportedNode(node))
}

func TestNewImportedWorkflowNode_MissingFields(t *testing.T) {
	cases := map[string]func(*LibraryAgent){
		"missing_input_schema":  func(a *LibraryAgent) { a.InputSchema = nil },
		"missing_output_schema": func(a *LibraryAgent) { a.OutputSchema = nil },
		"missing_graph":         func(a *LibraryAgent) { a.Graph = nil },
	}
	for code, mutate := range cases {
		t.Run(code, func(t *testing.T) {
			agent := testAgent()
			mutate(&agent)

			_, err := NewImportedWorkflowNode(agent, domain.Position{}, logging.Discard())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidNode))

			var derr *domain.DomainError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, code, derr.Code)
		})
	}

	agent := testAgent()
	agent.InputSchema = []domain.PortDefinition{}
	_, err := NewImportedWorkflowNode(agent, domain.Position{}, logging.Discard())
	assert.NoError(t, err, "an empty schema is allowed")
}

func TestValidateImportedNode(t *testing.T) {
	node, err := NewImportedWorkflowNode(testAgent(), domain.Position{}, logging.Discard())
	require.NoError(t, err)

	noPorts := node
	noPorts.Data.Ports = nil
	assert.True(t, errors.Is(ValidateImportedNode(noPorts), domain.ErrInvalidNode))

	noSource := node
	noSource.Data.Config = &domain.ImportedWorkflowConfig{}
	assert.Error(t, ValidateImportedNode(noSource))

	ed, _ := newTestEditor(t, domain.Workflow{Nodes: []domain.Node{noSource}})
	problems, err := ed.Validate(context.Background())
	require.NoError(t, err)
	assert.Len(t, problems[node.ID], 1)
}
