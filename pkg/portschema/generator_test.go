package portschema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/polis-flow/pkg/domain"
)

func outputNames(schema domain.NodePortSchema) []string {
	names := make([]string, len(schema.Outputs))
	for i, p := range schema.Outputs {
		names[i] = p.Name
	}
	return names
}

func inputNames(schema domain.NodePortSchema) []string {
	names := make([]string, len(schema.Inputs))
	for i, p := range schema.Inputs {
		names[i] = p.Name
	}
	return names
}

func TestIfElse_ThreeCases(t *testing.T) {
	schema := IfElse(make([]domain.IfElseCase, 3))

	assert.Empty(t, schema.Inputs)
	assert.NotNil(t, schema.Inputs)
	assert.Equal(t, []string{"if", "elif_1", "elif_2", "else"}, outputNames(schema))
	for _, port := range schema.Outputs {
		assert.Equal(t, domain.PortTypeBoolean, port.Type)
		assert.True(t, port.Required)
	}
	assert.Equal(t, "IF", schema.Outputs[0].DisplayName)
	assert.Equal(t, "ELIF 2", schema.Outputs[2].DisplayName)
	assert.Equal(t, "ELIF 1 branch output (conditions matched)", schema.Outputs[1].Description)
	assert.Equal(t, "ELSE", schema.Outputs[3].DisplayName)
}

func TestIfElse_NoCasesStillHasElse(t *testing.T) {
	schema := IfElse(nil)
	assert.Equal(t, []string{"else"}, outputNames(schema))
}

// **Property 4: if-else outputs are one per case plus else, uniquely named**
func TestIfElse_ShapeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "cases")
		schema := IfElse(make([]domain.IfElseCase, n))

		if len(schema.Outputs) != n+1 {
			t.Fatalf("got %d outputs for %d cases", len(schema.Outputs), n)
		}
		if schema.Outputs[n].Name != ElseHandle {
			t.Fatalf("last output is %q", schema.Outputs[n].Name)
		}
		for i := 1; i < n; i++ {
			if want := fmt.Sprintf("elif_%d", i); schema.Outputs[i].Name != want {
				t.Fatalf("output %d: got %q want %q", i, schema.Outputs[i].Name, want)
			}
		}
		if errs := ValidatePortSchema(schema); len(errs) != 0 {
			t.Fatalf("invalid schema: %v", errs)
		}
	})
}

func TestQuestionClassifier(t *testing.T) {
	classes := []domain.ClassTopic{{ID: "1", Name: "Billing"}, {ID: "class_2", Name: ""}}

	t.Run("without vision", func(t *testing.T) {
		schema := QuestionClassifier(classes, domain.VisionConfig{})
		assert.Equal(t, []string{"query"}, inputNames(schema))
		assert.Equal(t, []string{"class_name", "usage", "class_1_branch", "class_2_branch"}, outputNames(schema))
		assert.Equal(t, "Billing", schema.Outputs[2].DisplayName)
		assert.Equal(t, "Unnamed", schema.Outputs[3].DisplayName)
		assert.Equal(t, domain.PortTypeObject, schema.Outputs[1].Type)
	})

	t.Run("with vision", func(t *testing.T) {
		schema := QuestionClassifier(classes, domain.VisionConfig{Enabled: true})
		assert.Equal(t, []string{"query", "files"}, inputNames(schema))
		files, ok := schema.Input("files")
		require.True(t, ok)
		assert.Equal(t, domain.PortTypeArrayFile, files.Type)
		assert.False(t, files.Required)
	})
}

func TestClassBranchHandle(t *testing.T) {
	assert.Equal(t, "class_1_branch", ClassBranchHandle("1"))
	assert.Equal(t, "class_1_branch", ClassBranchHandle("class_1"))
	assert.Equal(t, "class_abc-123_branch", ClassBranchHandle("abc-123"))
}

func TestVariableAggregator(t *testing.T) {
	t.Run("single mode", func(t *testing.T) {
		schema := VariableAggregator(&domain.AggregatorConfig{OutputType: domain.PortTypeString})
		assert.Empty(t, schema.Inputs)
		require.Len(t, schema.Outputs, 1)
		assert.Equal(t, "output", schema.Outputs[0].Name)
		assert.Equal(t, domain.PortTypeString, schema.Outputs[0].Type)
	})

	t.Run("group mode", func(t *testing.T) {
		schema := VariableAggregator(&domain.AggregatorConfig{
			OutputType: domain.PortTypeAny,
			AdvancedSettings: domain.AggregatorSettings{
				GroupEnabled: true,
				Groups: []domain.VariableGroup{
					{GroupID: "a", GroupName: "Group1", OutputType: domain.PortTypeNumber},
					{GroupID: "b", GroupName: "answers", OutputType: domain.PortTypeString},
				},
			},
		})
		assert.Equal(t, []string{"Group1.output", "answers.output"}, outputNames(schema))
		assert.Equal(t, domain.PortTypeNumber, schema.Outputs[0].Type)
		assert.Equal(t, "answers", schema.Outputs[1].DisplayName)
	})

	t.Run("nil config", func(t *testing.T) {
		schema := VariableAggregator(nil)
		assert.Equal(t, domain.PortTypeAny, schema.Outputs[0].Type)
	})
}

func TestForConfigAndForNode(t *testing.T) {
	schema, ok := ForConfig(&domain.IfElseConfig{Cases: make([]domain.IfElseCase, 2)})
	require.True(t, ok)
	assert.Equal(t, []string{"if", "elif_1", "else"}, outputNames(schema))

	_, ok = ForConfig(&domain.ImportedWorkflowConfig{})
	assert.False(t, ok)

	schema, ok = ForNode(domain.Node{ID: "s1", Type: domain.NodeTypeStart})
	require.True(t, ok)
	assert.Equal(t, []string{"query", "session_id"}, outputNames(schema))

	custom := &domain.NodePortSchema{Outputs: []domain.PortDefinition{{Name: "custom", Type: domain.PortTypeAny}}}
	schema, ok = ForNode(domain.Node{ID: "s1", Type: domain.NodeTypeStart, Data: domain.NodeData{Ports: custom}})
	require.True(t, ok)
	assert.Equal(t, []string{"custom"}, outputNames(schema))

	// Derived kinds ignore stale persisted ports.
	schema, ok = ForNode(domain.Node{
		ID:   "ie",
		Type: domain.NodeTypeIfElse,
		Data: domain.NodeData{Ports: custom, Config: &domain.IfElseConfig{Cases: make([]domain.IfElseCase, 1)}},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"if", "else"}, outputNames(schema))

	schema, ok = ForNode(domain.Node{ID: "va", Type: domain.NodeTypeVariableAssigner})
	require.True(t, ok)
	assert.Equal(t, []string{"output"}, outputNames(schema))

	_, ok = ForNode(domain.Node{ID: "x", Type: domain.NodeTypeAnswer})
	assert.False(t, ok)
}

func TestGeneratorsAreDeterministic(t *testing.T) {
	cfg := &domain.ClassifierConfig{
		Classes: []domain.ClassTopic{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}},
		Vision:  domain.VisionConfig{Enabled: true},
	}
	first, _ := ForConfig(cfg)
	second, _ := ForConfig(cfg.Clone())
	assert.True(t, first.Equal(second))

	h1, err := Fingerprint(first)
	require.NoError(t, err)
	h2, err := Fingerprint(second)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.False(t, Changed(&first, second))
	assert.True(t, Changed(nil, second))
}
