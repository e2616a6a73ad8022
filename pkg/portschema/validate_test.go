package portschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/polis-flow/pkg/domain"
)

func TestValidatePortSchema(t *testing.T) {
	schema := domain.NodePortSchema{
		Inputs: []domain.PortDefinition{
			{Name: "query", Type: domain.PortTypeString},
			{Name: "query", Type: domain.PortTypeString},
		},
		Outputs: []domain.PortDefinition{
			{Name: "", Type: domain.PortTypeAny},
			{Name: "query", Type: "tensor"},
		},
	}

	errs := ValidatePortSchema(schema)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "duplicate input port name: query")
	assert.Contains(t, errs[1], "port name is empty")
	assert.Contains(t, errs[2], `invalid port type: "tensor"`)
}

func TestValidatePortSchema_SameNameAcrossDirections(t *testing.T) {
	schema := domain.NodePortSchema{
		Inputs:  []domain.PortDefinition{{Name: "query", Type: domain.PortTypeString}},
		Outputs: []domain.PortDefinition{{Name: "query", Type: domain.PortTypeString}},
	}
	assert.Empty(t, ValidatePortSchema(schema))
}

func TestValidateConnection(t *testing.T) {
	str := domain.PortDefinition{Name: "a", Type: domain.PortTypeString, DisplayName: "A"}
	num := domain.PortDefinition{Name: "b", Type: domain.PortTypeNumber, DisplayName: "B"}
	anyPort := domain.PortDefinition{Name: "c", Type: domain.PortTypeAny}

	res := ValidateConnection(str, num)
	assert.False(t, res.Valid)
	assert.Equal(t, "type mismatch: A (string) → B (number)", res.Error)

	res = ValidateConnection(str, anyPort)
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Warning)

	res = ValidateConnection(str, str)
	assert.Equal(t, ConnectionResult{Valid: true}, res)
}

func TestValidateRequiredInputs(t *testing.T) {
	llm, ok := Static(domain.NodeTypeLLM)
	require.True(t, ok)

	res := ValidateRequiredInputs(llm.Inputs, map[string]bool{"context": true})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Error, "Question")

	res = ValidateRequiredInputs(llm.Inputs, map[string]bool{"query": true})
	assert.True(t, res.Valid)
}

func TestValidateMultipleConnections(t *testing.T) {
	assert.False(t, ValidateMultipleConnections("query", []string{"query"}, false).Valid)
	assert.True(t, ValidateMultipleConnections("query", []string{"query"}, true).Valid)
	assert.True(t, ValidateMultipleConnections("query", nil, false).Valid)
}

func TestStaticSchemas(t *testing.T) {
	kr, ok := Static(domain.NodeTypeKnowledgeRetrieval)
	require.True(t, ok)
	assert.Equal(t, []string{"query"}, inputNames(kr))
	assert.Equal(t, []string{"context", "documents", "doc_count"}, outputNames(kr))

	end, ok := Static(domain.NodeTypeEnd)
	require.True(t, ok)
	end.Outputs[0].DefaultValue.(map[string]any)["leak"] = true

	fresh, _ := Static(domain.NodeTypeEnd)
	assert.Empty(t, fresh.Outputs[0].DefaultValue)

	for _, kind := range []domain.NodeType{domain.NodeTypeStart, domain.NodeTypeKnowledgeRetrieval, domain.NodeTypeLLM, domain.NodeTypeEnd} {
		schema, _ := Static(kind)
		assert.Empty(t, ValidatePortSchema(schema), kind)
	}

	current := &domain.NodePortSchema{Inputs: []domain.PortDefinition{{Name: "x", Type: domain.PortTypeAny}}}
	ensured, ok := Ensure(domain.NodeTypeLLM, current)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, inputNames(ensured))
}

func TestExtractWorkflowSchema(t *testing.T) {
	wf := domain.Workflow{Nodes: []domain.Node{
		{ID: "s", Type: domain.NodeTypeStart},
		{ID: "l", Type: domain.NodeTypeLLM},
		{ID: "e", Type: domain.NodeTypeEnd},
	}}

	schema := ExtractWorkflowSchema(wf)
	assert.Len(t, schema.InputSchema, 2)
	require.Len(t, schema.OutputSchema, 1)
	assert.Equal(t, "response", schema.OutputSchema[0].Name)

	empty := ExtractWorkflowSchema(domain.Workflow{})
	assert.NotNil(t, empty.InputSchema)
	assert.Empty(t, empty.OutputSchema)
}
