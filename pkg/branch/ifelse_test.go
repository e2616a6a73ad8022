package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

func TestNormalizeIfElse_SeedsOneCase(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	require.Len(t, cfg.Cases, 1)
	assert.Equal(t, domain.LogicalAnd, cfg.Cases[0].LogicalOperator)
	assert.Empty(t, cfg.Cases[0].Conditions)
	assert.NotEmpty(t, cfg.Cases[0].CaseID)

	again := NormalizeIfElse(cfg)
	assert.Equal(t, cfg, again)
}

func TestAddCase_AppendsDefaultCase(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	next := AddCase(cfg)

	require.Len(t, next.Cases, 2)
	assert.Len(t, cfg.Cases, 1, "input must not be modified")
	assert.Equal(t, domain.LogicalAnd, next.Cases[1].LogicalOperator)
	assert.NotEqual(t, next.Cases[0].CaseID, next.Cases[1].CaseID)

	schema := portschema.IfElse(next.Cases)
	assert.Equal(t, []string{"if", "elif_1", "else"}, outputNames(schema))
}

func TestRemoveCase_KeepsLastCase(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	same := RemoveCase(cfg, cfg.Cases[0].CaseID)
	assert.Equal(t, cfg, same)

	two := AddCase(cfg)
	one := RemoveCase(two, two.Cases[0].CaseID)
	require.Len(t, one.Cases, 1)
	assert.Equal(t, two.Cases[1].CaseID, one.Cases[0].CaseID)
	assert.Len(t, two.Cases, 2)
}

func TestConditionLifecycle(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	caseID := cfg.Cases[0].CaseID

	cfg = AddCondition(cfg, caseID)
	require.Len(t, cfg.Cases[0].Conditions, 1)
	cond := cfg.Cases[0].Conditions[0]
	assert.Equal(t, domain.PortTypeString, cond.VarType)
	assert.Equal(t, domain.OpEqual, cond.ComparisonOperator)
	assert.True(t, cond.VariableSelector.IsZero())

	sel := domain.NewValueSelector("start", "query")
	op := domain.OpContains
	value := "refund"
	updated := UpdateCondition(cfg, caseID, cond.ID, ConditionUpdate{
		VariableSelector:   &sel,
		ComparisonOperator: &op,
		Value:              &value,
	})
	got := updated.Cases[0].Conditions[0]
	assert.Equal(t, sel, got.VariableSelector)
	assert.Equal(t, domain.OpContains, got.ComparisonOperator)
	assert.Equal(t, "refund", got.Value)
	assert.Equal(t, domain.PortTypeString, got.VarType)
	assert.Empty(t, cfg.Cases[0].Conditions[0].Value)

	removed := RemoveCondition(updated, caseID, cond.ID)
	assert.Empty(t, removed.Cases[0].Conditions)
	assert.Len(t, updated.Cases[0].Conditions, 1)
}

func TestUpdateCase_ReplacesConditions(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	caseID := cfg.Cases[0].CaseID
	or := domain.LogicalOr

	next := UpdateCase(cfg, caseID, CaseUpdate{
		LogicalOperator: &or,
		Conditions:      []domain.Condition{{ID: "c1", ComparisonOperator: domain.OpEmpty}},
	})
	assert.Equal(t, domain.LogicalOr, next.Cases[0].LogicalOperator)
	require.Len(t, next.Cases[0].Conditions, 1)

	untouched := UpdateCase(cfg, "missing", CaseUpdate{LogicalOperator: &or})
	assert.Equal(t, cfg, untouched)
}

func TestToggleLogicalOperator(t *testing.T) {
	cfg := NormalizeIfElse(nil)
	caseID := cfg.Cases[0].CaseID

	once := ToggleLogicalOperator(cfg, caseID)
	assert.Equal(t, domain.LogicalOr, once.Cases[0].LogicalOperator)
	twice := ToggleLogicalOperator(once, caseID)
	assert.Equal(t, domain.LogicalAnd, twice.Cases[0].LogicalOperator)
}

func TestCaseHandleChanges_ShiftsLaterCases(t *testing.T) {
	before := &domain.IfElseConfig{Cases: []domain.IfElseCase{
		{CaseID: "a"}, {CaseID: "b"}, {CaseID: "c"},
	}}
	after := RemoveCase(before, "a")

	changes := CaseHandleChanges(before, after)
	assert.Equal(t, []string{"if"}, changes.Removed)
	assert.Equal(t, map[string]string{"elif_1": "if", "elif_2": "elif_1"}, changes.Renamed)

	none := CaseHandleChanges(before, AddCase(before))
	assert.True(t, none.Empty())
}

func TestOperatorsFor(t *testing.T) {
	assert.Equal(t, []domain.ComparisonOperator{domain.OpIs, domain.OpIsNot}, OperatorsFor(domain.PortTypeBoolean))
	assert.Contains(t, OperatorsFor(domain.PortTypeNumber), domain.OpGreaterEqual)
	assert.NotContains(t, OperatorsFor(domain.PortTypeString), domain.OpGreater)
	assert.Len(t, OperatorsFor(domain.PortTypeObject), len(AllOperators))

	for _, op := range AllOperators {
		assert.NotEmpty(t, OperatorLabels[op], "label for %s", op)
	}
	assert.False(t, NeedsValue(domain.OpEmpty))
	assert.False(t, NeedsValue(domain.OpNotEmpty))
	assert.True(t, NeedsValue(domain.OpContains))
}

// **Property 1: An if-else node never drops below one case**
func TestProperty_IfElseAlwaysHasCase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := NormalizeIfElse(nil)
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "add") {
				cfg = AddCase(cfg)
				continue
			}
			idx := rapid.IntRange(0, len(cfg.Cases)-1).Draw(t, "idx")
			cfg = RemoveCase(cfg, cfg.Cases[idx].CaseID)
		}

		if len(cfg.Cases) < 1 {
			t.Fatalf("case count dropped to %d", len(cfg.Cases))
		}
		if got := len(portschema.IfElse(cfg.Cases).Outputs); got != len(cfg.Cases)+1 {
			t.Fatalf("expected %d outputs, got %d", len(cfg.Cases)+1, got)
		}
	})
}

func outputNames(schema domain.NodePortSchema) []string {
	names := make([]string, len(schema.Outputs))
	for i, p := range schema.Outputs {
		names[i] = p.Name
	}
	return names
}

func TestValidateIfElse(t *testing.T) {
	assert.Equal(t, []string{"at least one case is required"}, ValidateIfElse(&domain.IfElseConfig{}))

	cfg := &domain.IfElseConfig{Cases: []domain.IfElseCase{{
		CaseID:          "c1",
		LogicalOperator: domain.LogicalAnd,
		Conditions: []domain.Condition{
			{ID: "k1", ComparisonOperator: domain.OpEqual},
			{ID: "k2", VariableSelector: domain.NewValueSelector("s1", "query"), ComparisonOperator: domain.OpEmpty},
		},
	}}}
	assert.Equal(t, []string{
		"Case 1, condition 1: variable is required",
		"Case 1, condition 1: value is required",
	}, ValidateIfElse(cfg))
	assert.Equal(t, ValidateIfElse(cfg), Validate(cfg))
	assert.Nil(t, Validate(&domain.StaticConfig{Type: domain.NodeTypeLLM}))
}
