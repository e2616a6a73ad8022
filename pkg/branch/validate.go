package branch

import (
	"fmt"

	"github.com/polisai/polis-flow/pkg/domain"
)

// ValidateIfElse lists the problems that block publishing an if-else node.
// Case and condition numbers are 1-based.
func ValidateIfElse(cfg *domain.IfElseConfig) []string {
	if cfg == nil || len(cfg.Cases) == 0 {
		return []string{"at least one case is required"}
	}

	var errs []string
	for i, c := range cfg.Cases {
		for j, cond := range c.Conditions {
			prefix := fmt.Sprintf("Case %d, condition %d", i+1, j+1)
			if !cond.VariableSelector.Valid() {
				errs = append(errs, prefix+": variable is required")
			}
			if cond.ComparisonOperator == "" {
				errs = append(errs, prefix+": operator is required")
			}
			if NeedsValue(cond.ComparisonOperator) && cond.Value == "" {
				errs = append(errs, prefix+": value is required")
			}
		}
	}
	return errs
}

// ValidateClassifier lists the problems that block publishing a classifier.
func ValidateClassifier(cfg *domain.ClassifierConfig) []string {
	if cfg == nil {
		return []string{"classifier config is missing"}
	}

	var errs []string
	if cfg.Model.Provider == "" || cfg.Model.Name == "" {
		errs = append(errs, "a model must be selected")
	}
	if len(cfg.Classes) == 0 {
		errs = append(errs, "at least one class is required")
	}
	for _, c := range cfg.Classes {
		if c.Name == "" {
			errs = append(errs, "every class needs a name")
			break
		}
	}
	return errs
}

// ValidateAggregator lists the problems that block publishing an aggregator.
func ValidateAggregator(cfg *domain.AggregatorConfig) []string {
	if cfg == nil {
		return []string{"aggregator config is missing"}
	}

	if !cfg.AdvancedSettings.GroupEnabled {
		if len(cfg.Variables) == 0 {
			return []string{"at least one variable is required"}
		}
		return nil
	}

	groups := cfg.AdvancedSettings.Groups
	if len(groups) == 0 {
		return []string{"at least one group is required"}
	}

	var errs []string
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if !ValidateGroupName(g.GroupName) {
			errs = append(errs, fmt.Sprintf("invalid group name: %q", g.GroupName))
		}
		if _, dup := seen[g.GroupName]; dup {
			errs = append(errs, fmt.Sprintf("duplicate group name: %s", g.GroupName))
		}
		seen[g.GroupName] = struct{}{}
		if len(g.Variables) == 0 {
			errs = append(errs, fmt.Sprintf("group %s has no variables", g.GroupName))
		}
	}
	return errs
}

// Validate dispatches to the validator of the config kind. Kinds without
// branch rules always pass.
func Validate(cfg domain.NodeConfig) []string {
	switch c := cfg.(type) {
	case *domain.IfElseConfig:
		return ValidateIfElse(c)
	case *domain.ClassifierConfig:
		return ValidateClassifier(c)
	case *domain.AggregatorConfig:
		return ValidateAggregator(c)
	default:
		return nil
	}
}
