package branch

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

var (
	groupNamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,30}$`)
	trailingDigits     = regexp.MustCompile(`(\d+)$`)
	defaultGroupPrefix = "Group"
)

// ValidateGroupName reports whether name is a legal aggregator group name.
func ValidateGroupName(name string) bool {
	return groupNamePattern.MatchString(name)
}

// NewAggregatorConfig returns the config of a freshly placed aggregator.
func NewAggregatorConfig() *domain.AggregatorConfig {
	return &domain.AggregatorConfig{
		OutputType: domain.PortTypeAny,
		Variables:  []domain.ValueSelector{},
		AdvancedSettings: domain.AggregatorSettings{
			Groups: []domain.VariableGroup{},
		},
	}
}

// AddVariable appends sel unless an equal selector is already present. While
// the output type is still any, the type of the first added variable is
// adopted.
func AddVariable(cfg *domain.AggregatorConfig, sel domain.ValueSelector, varType domain.PortType) *domain.AggregatorConfig {
	out := cfg.Clone()
	if containsSelector(out.Variables, sel) {
		return out
	}
	out.Variables = append(out.Variables, sel)
	if out.OutputType == domain.PortTypeAny || out.OutputType == "" {
		out.OutputType = varType
	}
	return out
}

// RemoveVariable drops sel from the single-mode variable list.
func RemoveVariable(cfg *domain.AggregatorConfig, sel domain.ValueSelector) *domain.AggregatorConfig {
	out := cfg.Clone()
	out.Variables = withoutSelector(out.Variables, sel)
	return out
}

// SetOutputType sets the single-mode output type.
func SetOutputType(cfg *domain.AggregatorConfig, t domain.PortType) *domain.AggregatorConfig {
	out := cfg.Clone()
	out.OutputType = t
	return out
}

// ToggleGroupMode switches between single and group mode. Enabling group
// mode without groups seeds Group1 from the single-mode state; disabling it
// copies the first group back.
func ToggleGroupMode(cfg *domain.AggregatorConfig, enabled bool) *domain.AggregatorConfig {
	out := cfg.Clone()
	groups := out.AdvancedSettings.Groups

	switch {
	case enabled && len(groups) == 0:
		out.AdvancedSettings.Groups = []domain.VariableGroup{{
			GroupID:    newID(),
			GroupName:  defaultGroupPrefix + "1",
			OutputType: out.OutputType,
			Variables:  append([]domain.ValueSelector{}, out.Variables...),
		}}
	case !enabled && len(groups) > 0:
		out.OutputType = groups[0].OutputType
		out.Variables = append([]domain.ValueSelector{}, groups[0].Variables...)
	}

	out.AdvancedSettings.GroupEnabled = enabled
	return out
}

// AddGroup appends an empty group named after the highest numeric suffix in
// use, starting at Group2.
func AddGroup(cfg *domain.AggregatorConfig) *domain.AggregatorConfig {
	out := cfg.Clone()

	maxNum := 1
	for _, g := range out.AdvancedSettings.Groups {
		match := trailingDigits.FindStringSubmatch(g.GroupName)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > maxNum {
			maxNum = n
		}
	}

	out.AdvancedSettings.Groups = append(out.AdvancedSettings.Groups, domain.VariableGroup{
		GroupID:    newID(),
		GroupName:  fmt.Sprintf("%s%d", defaultGroupPrefix, maxNum+1),
		OutputType: domain.PortTypeAny,
		Variables:  []domain.ValueSelector{},
	})
	return out
}

// RemoveGroup drops the group with groupID.
func RemoveGroup(cfg *domain.AggregatorConfig, groupID string) *domain.AggregatorConfig {
	out := cfg.Clone()
	kept := out.AdvancedSettings.Groups[:0]
	for _, g := range out.AdvancedSettings.Groups {
		if g.GroupID != groupID {
			kept = append(kept, g)
		}
	}
	out.AdvancedSettings.Groups = kept
	return out
}

// RenameGroup renames a group. Invalid names are rejected with
// domain.ErrInvalidGroupName, names held by another group with
// domain.ErrDuplicateGroupName; either way the config is returned unchanged.
func RenameGroup(cfg *domain.AggregatorConfig, groupID, name string) (*domain.AggregatorConfig, error) {
	if !ValidateGroupName(name) {
		return cfg.Clone(), fmt.Errorf("%w: %q", domain.ErrInvalidGroupName, name)
	}
	if cfg != nil {
		for _, g := range cfg.AdvancedSettings.Groups {
			if g.GroupID != groupID && g.GroupName == name {
				return cfg.Clone(), fmt.Errorf("%w: %q", domain.ErrDuplicateGroupName, name)
			}
		}
	}
	return mapGroup(cfg, groupID, func(g *domain.VariableGroup) {
		g.GroupName = name
	}), nil
}

// AddVariableToGroup is AddVariable for one group.
func AddVariableToGroup(cfg *domain.AggregatorConfig, groupID string, sel domain.ValueSelector, varType domain.PortType) *domain.AggregatorConfig {
	return mapGroup(cfg, groupID, func(g *domain.VariableGroup) {
		if containsSelector(g.Variables, sel) {
			return
		}
		g.Variables = append(g.Variables, sel)
		if g.OutputType == domain.PortTypeAny || g.OutputType == "" {
			g.OutputType = varType
		}
	})
}

// RemoveVariableFromGroup is RemoveVariable for one group.
func RemoveVariableFromGroup(cfg *domain.AggregatorConfig, groupID string, sel domain.ValueSelector) *domain.AggregatorConfig {
	return mapGroup(cfg, groupID, func(g *domain.VariableGroup) {
		g.Variables = withoutSelector(g.Variables, sel)
	})
}

// SetGroupOutputType sets the output type of one group.
func SetGroupOutputType(cfg *domain.AggregatorConfig, groupID string, t domain.PortType) *domain.AggregatorConfig {
	return mapGroup(cfg, groupID, func(g *domain.VariableGroup) {
		g.OutputType = t
	})
}

// GroupHandleChanges compares the group outputs of two configs by group id.
// Leaving group mode removes every group handle; entering it removes the
// single "output" handle.
func GroupHandleChanges(before, after *domain.AggregatorConfig) HandleChanges {
	changes := HandleChanges{Renamed: map[string]string{}}
	if before == nil {
		return changes
	}
	beforeGroups := before.AdvancedSettings.GroupEnabled
	afterGroups := after != nil && after.AdvancedSettings.GroupEnabled

	switch {
	case !beforeGroups && afterGroups:
		changes.Removed = append(changes.Removed, portschema.AggregatorOutput)
		return changes
	case beforeGroups && !afterGroups:
		for _, g := range before.AdvancedSettings.Groups {
			changes.Removed = append(changes.Removed, portschema.GroupOutputHandle(g.GroupName))
		}
		return changes
	case !beforeGroups:
		return changes
	}

	names := map[string]string{}
	for _, g := range after.AdvancedSettings.Groups {
		names[g.GroupID] = g.GroupName
	}
	for _, g := range before.AdvancedSettings.Groups {
		name, kept := names[g.GroupID]
		switch {
		case !kept:
			changes.Removed = append(changes.Removed, portschema.GroupOutputHandle(g.GroupName))
		case name != g.GroupName:
			changes.Renamed[portschema.GroupOutputHandle(g.GroupName)] = portschema.GroupOutputHandle(name)
		}
	}
	return changes
}

func mapGroup(cfg *domain.AggregatorConfig, groupID string, fn func(*domain.VariableGroup)) *domain.AggregatorConfig {
	out := cfg.Clone()
	for i := range out.AdvancedSettings.Groups {
		if out.AdvancedSettings.Groups[i].GroupID == groupID {
			fn(&out.AdvancedSettings.Groups[i])
		}
	}
	return out
}

func containsSelector(list []domain.ValueSelector, sel domain.ValueSelector) bool {
	key := sel.String()
	for _, v := range list {
		if v.String() == key {
			return true
		}
	}
	return false
}

func withoutSelector(list []domain.ValueSelector, sel domain.ValueSelector) []domain.ValueSelector {
	key := sel.String()
	out := make([]domain.ValueSelector, 0, len(list))
	for _, v := range list {
		if v.String() != key {
			out = append(out, v)
		}
	}
	return out
}
