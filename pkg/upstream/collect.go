package upstream

import (
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/portschema"
)

// Collect returns, for every ancestor of target that exposes at least one
// output compatible with filter, the list of selectable variables. An empty
// filter accepts every type. nodes and edges are only read.
func Collect(target string, nodes []domain.Node, edges []domain.Edge, filter domain.PortType, opts Options) []domain.NodeVariableGroup {
	return NewGraph(nodes, edges, opts).Collect(target, filter)
}

// Collect is the indexed form of the package-level Collect.
func (g *Graph) Collect(target string, filter domain.PortType) []domain.NodeVariableGroup {
	groups := []domain.NodeVariableGroup{}
	for _, node := range g.Ancestors(target) {
		schema, ok := portschema.ForNode(node)
		if !ok {
			continue
		}

		var vars []domain.Variable
		for _, port := range schema.Outputs {
			if !domain.IsTypeCompatible(filter, port.Type) {
				continue
			}
			display := port.DisplayName
			if display == "" {
				display = port.Name
			}
			vars = append(vars, domain.Variable{
				Selector:    domain.NewValueSelector(node.ID, port.Name),
				PortName:    port.Name,
				DisplayName: display,
				Type:        port.Type,
				Description: port.Description,
			})
		}
		if len(vars) == 0 {
			continue
		}

		groups = append(groups, domain.NodeVariableGroup{
			NodeID:    node.ID,
			NodeName:  node.DisplayName(),
			NodeType:  node.Type,
			Variables: vars,
		})
	}
	return groups
}

// Flatten lists the variables of all groups in order.
func Flatten(groups []domain.NodeVariableGroup) []domain.Variable {
	var out []domain.Variable
	for _, g := range groups {
		out = append(out, g.Variables...)
	}
	return out
}

func cloneGroups(in []domain.NodeVariableGroup) []domain.NodeVariableGroup {
	out := make([]domain.NodeVariableGroup, len(in))
	for i, g := range in {
		g.Variables = append([]domain.Variable(nil), g.Variables...)
		out[i] = g
	}
	return out
}
