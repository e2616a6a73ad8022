package branch

import (
	"encoding/json"
	"fmt"

	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

// BackendNode is the aggregator payload exchanged with the workflow API.
// Selectors travel as "nodeId.portName" strings.
type BackendNode struct {
	Type             domain.NodeType                   `json:"type"`
	Config           BackendConfig                     `json:"config"`
	Ports            *domain.NodePortSchema            `json:"ports"`
	VariableMappings map[string]domain.VariableMapping `json:"variable_mappings"`
}

// BackendConfig holds either the single-mode or the group-mode fields,
// selected by GroupEnabled.
type BackendConfig struct {
	OutputType   domain.PortType `json:"output_type,omitempty"`
	Variables    []string        `json:"variables,omitempty"`
	GroupEnabled bool            `json:"group_enabled,omitempty"`
	Groups       []BackendGroup  `json:"groups,omitempty"`
}

// BackendGroup is one aggregator group on the wire.
type BackendGroup struct {
	GroupID    string          `json:"groupId"`
	GroupName  string          `json:"group_name"`
	OutputType domain.PortType `json:"output_type"`
	Variables  []string        `json:"variables"`
}

// MarshalJSON emits only the fields of the active mode.
func (c BackendConfig) MarshalJSON() ([]byte, error) {
	if c.GroupEnabled {
		groups := c.Groups
		if groups == nil {
			groups = []BackendGroup{}
		}
		return json.Marshal(struct {
			GroupEnabled bool           `json:"group_enabled"`
			Groups       []BackendGroup `json:"groups"`
		}{true, groups})
	}
	vars := c.Variables
	if vars == nil {
		vars = []string{}
	}
	return json.Marshal(struct {
		OutputType domain.PortType `json:"output_type"`
		Variables  []string        `json:"variables"`
	}{c.OutputType, vars})
}

// ToBackendFormat converts an aggregator config to its API payload. Existing
// ports and variable mappings pass through; missing ports are generated.
func ToBackendFormat(cfg *domain.AggregatorConfig, ports *domain.NodePortSchema) BackendNode {
	cfg = cfg.Clone()

	if ports == nil {
		generated := portschema.VariableAggregator(cfg)
		ports = &generated
	} else {
		cloned := ports.Clone()
		ports = &cloned
	}
	mappings := cfg.VariableMappings
	if mappings == nil {
		mappings = map[string]domain.VariableMapping{}
	}

	node := BackendNode{
		Type:             domain.NodeTypeVariableAssigner,
		Ports:            ports,
		VariableMappings: mappings,
	}

	if !cfg.AdvancedSettings.GroupEnabled {
		node.Config = BackendConfig{
			OutputType: cfg.OutputType,
			Variables:  selectorsToReferences(cfg.Variables),
		}
		return node
	}

	groups := make([]BackendGroup, len(cfg.AdvancedSettings.Groups))
	for i, g := range cfg.AdvancedSettings.Groups {
		groups[i] = BackendGroup{
			GroupID:    g.GroupID,
			GroupName:  g.GroupName,
			OutputType: g.OutputType,
			Variables:  selectorsToReferences(g.Variables),
		}
	}
	node.Config = BackendConfig{GroupEnabled: true, Groups: groups}
	return node
}

// FromBackendFormat converts an API payload back into an aggregator config
// and the ports stored with it. In group mode the single-mode fields reset to
// an empty any-typed output.
func FromBackendFormat(node BackendNode) (*domain.AggregatorConfig, *domain.NodePortSchema, error) {
	var ports *domain.NodePortSchema
	if node.Ports != nil {
		cloned := node.Ports.Clone()
		ports = &cloned
	}

	mappings := make(map[string]domain.VariableMapping, len(node.VariableMappings))
	for k, v := range node.VariableMappings {
		mappings[k] = v
	}

	cfg := &domain.AggregatorConfig{VariableMappings: mappings}

	if !node.Config.GroupEnabled {
		vars, err := referencesToSelectors(node.Config.Variables)
		if err != nil {
			return nil, nil, err
		}
		cfg.OutputType = node.Config.OutputType
		cfg.Variables = vars
		cfg.AdvancedSettings = domain.AggregatorSettings{Groups: []domain.VariableGroup{}}
		return cfg, ports, nil
	}

	groups := make([]domain.VariableGroup, len(node.Config.Groups))
	for i, g := range node.Config.Groups {
		vars, err := referencesToSelectors(g.Variables)
		if err != nil {
			return nil, nil, fmt.Errorf("group %s: %w", g.GroupName, err)
		}
		groups[i] = domain.VariableGroup{
			GroupID:    g.GroupID,
			GroupName:  g.GroupName,
			OutputType: g.OutputType,
			Variables:  vars,
		}
	}
	cfg.OutputType = domain.PortTypeAny
	cfg.Variables = []domain.ValueSelector{}
	cfg.AdvancedSettings = domain.AggregatorSettings{GroupEnabled: true, Groups: groups}
	return cfg, ports, nil
}

func selectorsToReferences(sels []domain.ValueSelector) []string {
	refs := make([]string, len(sels))
	for i, s := range sels {
		refs[i] = s.String()
	}
	return refs
}

func referencesToSelectors(refs []string) ([]domain.ValueSelector, error) {
	sels := make([]domain.ValueSelector, len(refs))
	for i, ref := range refs {
		sel, err := domain.ParseValueSelector(ref)
		if err != nil {
			return nil, err
		}
		sels[i] = sel
	}
	return sels, nil
}
