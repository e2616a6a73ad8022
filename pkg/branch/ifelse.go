// Package branch implements the edit operations of the branching node kinds:
// conditional branch (if-else), AI classifier and variable aggregator.
//
// Every reducer takes the current config and returns a new one; the input is
// never modified. Operations that would break an invariant are no-ops.
package branch

import (
	"github.com/google/uuid"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

func newID() string {
	return uuid.New().String()
}

// CaseUpdate is a partial update of an if-else case. Nil fields are kept.
type CaseUpdate struct {
	LogicalOperator *domain.LogicalOperator
	Conditions      []domain.Condition
}

// ConditionUpdate is a partial update of a condition. Nil fields are kept.
type ConditionUpdate struct {
	VariableSelector   *domain.ValueSelector
	VarType            *domain.PortType
	ComparisonOperator *domain.ComparisonOperator
	Value              *string
}

// DefaultCase returns an empty AND case with a fresh id.
func DefaultCase() domain.IfElseCase {
	return domain.IfElseCase{
		CaseID:          newID(),
		LogicalOperator: domain.LogicalAnd,
		Conditions:      []domain.Condition{},
	}
}

// DefaultCondition returns a blank string equality condition with a fresh id.
func DefaultCondition() domain.Condition {
	return domain.Condition{
		ID:                 newID(),
		VarType:            domain.PortTypeString,
		ComparisonOperator: domain.OpEqual,
	}
}

// NormalizeIfElse guarantees at least one case.
func NormalizeIfElse(cfg *domain.IfElseConfig) *domain.IfElseConfig {
	out := cfg.Clone()
	if len(out.Cases) == 0 {
		out.Cases = []domain.IfElseCase{DefaultCase()}
	}
	return out
}

// AddCase appends a new ELIF case.
func AddCase(cfg *domain.IfElseConfig) *domain.IfElseConfig {
	out := cfg.Clone()
	out.Cases = append(out.Cases, DefaultCase())
	return out
}

// RemoveCase drops the case with caseID unless it is the last one.
func RemoveCase(cfg *domain.IfElseConfig, caseID string) *domain.IfElseConfig {
	out := cfg.Clone()
	if len(out.Cases) <= 1 {
		return out
	}
	kept := out.Cases[:0]
	for _, c := range out.Cases {
		if c.CaseID != caseID {
			kept = append(kept, c)
		}
	}
	out.Cases = kept
	return out
}

// UpdateCase applies a partial update to one case.
func UpdateCase(cfg *domain.IfElseConfig, caseID string, update CaseUpdate) *domain.IfElseConfig {
	return mapCase(cfg, caseID, func(c *domain.IfElseCase) {
		if update.LogicalOperator != nil {
			c.LogicalOperator = *update.LogicalOperator
		}
		if update.Conditions != nil {
			c.Conditions = append([]domain.Condition(nil), update.Conditions...)
		}
	})
}

// AddCondition appends a default condition to one case.
func AddCondition(cfg *domain.IfElseConfig, caseID string) *domain.IfElseConfig {
	return mapCase(cfg, caseID, func(c *domain.IfElseCase) {
		c.Conditions = append(c.Conditions, DefaultCondition())
	})
}

// UpdateCondition applies a partial update to one condition of one case.
func UpdateCondition(cfg *domain.IfElseConfig, caseID, conditionID string, update ConditionUpdate) *domain.IfElseConfig {
	return mapCase(cfg, caseID, func(c *domain.IfElseCase) {
		for i := range c.Conditions {
			if c.Conditions[i].ID != conditionID {
				continue
			}
			cond := &c.Conditions[i]
			if update.VariableSelector != nil {
				cond.VariableSelector = *update.VariableSelector
			}
			if update.VarType != nil {
				cond.VarType = *update.VarType
			}
			if update.ComparisonOperator != nil {
				cond.ComparisonOperator = *update.ComparisonOperator
			}
			if update.Value != nil {
				cond.Value = *update.Value
			}
		}
	})
}

// RemoveCondition drops one condition of one case.
func RemoveCondition(cfg *domain.IfElseConfig, caseID, conditionID string) *domain.IfElseConfig {
	return mapCase(cfg, caseID, func(c *domain.IfElseCase) {
		kept := c.Conditions[:0]
		for _, cond := range c.Conditions {
			if cond.ID != conditionID {
				kept = append(kept, cond)
			}
		}
		c.Conditions = kept
	})
}

// ToggleLogicalOperator flips a case between AND and OR.
func ToggleLogicalOperator(cfg *domain.IfElseConfig, caseID string) *domain.IfElseConfig {
	return mapCase(cfg, caseID, func(c *domain.IfElseCase) {
		if c.LogicalOperator == domain.LogicalAnd {
			c.LogicalOperator = domain.LogicalOr
		} else {
			c.LogicalOperator = domain.LogicalAnd
		}
	})
}

func mapCase(cfg *domain.IfElseConfig, caseID string, fn func(*domain.IfElseCase)) *domain.IfElseConfig {
	out := cfg.Clone()
	for i := range out.Cases {
		if out.Cases[i].CaseID == caseID {
			fn(&out.Cases[i])
		}
	}
	return out
}

// HandleChanges describes how the output handles of a node move between two
// configs: handles that disappear and handles that are renamed.
type HandleChanges struct {
	Removed []string
	Renamed map[string]string
}

// Empty reports whether no edge needs to change.
func (h HandleChanges) Empty() bool {
	return len(h.Removed) == 0 && len(h.Renamed) == 0
}

// CaseHandleChanges compares two if-else configs. Case handles are
// positional, so removing a case shifts the handles of the cases after it.
func CaseHandleChanges(before, after *domain.IfElseConfig) HandleChanges {
	changes := HandleChanges{Renamed: map[string]string{}}
	if before == nil {
		return changes
	}

	newIndex := map[string]int{}
	if after != nil {
		for i, c := range after.Cases {
			newIndex[c.CaseID] = i
		}
	}
	for i, c := range before.Cases {
		j, kept := newIndex[c.CaseID]
		switch {
		case !kept:
			changes.Removed = append(changes.Removed, portschema.CaseHandle(i))
		case i != j:
			changes.Renamed[portschema.CaseHandle(i)] = portschema.CaseHandle(j)
		}
	}
	return changes
}
