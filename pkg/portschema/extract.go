package portschema

import "github.com/polisai/polis-flow/pkg/domain"

// WorkflowSchema is the external port surface of a whole workflow, used when
// it is published to the library and later imported as a single node.
type WorkflowSchema struct {
	InputSchema  []domain.PortDefinition `json:"input_schema"`
	OutputSchema []domain.PortDefinition `json:"output_schema"`
}

// ExtractWorkflowSchema takes the inputs from the outputs of the start node
// and the outputs from the inputs of the first end or answer node.
func ExtractWorkflowSchema(wf domain.Workflow) WorkflowSchema {
	out := WorkflowSchema{
		InputSchema:  []domain.PortDefinition{},
		OutputSchema: []domain.PortDefinition{},
	}

	for _, node := range wf.Nodes {
		if node.Type != domain.NodeTypeStart {
			continue
		}
		if schema, ok := ForNode(node); ok {
			out.InputSchema = normalizeExtracted(schema.Outputs)
		}
		break
	}

	for _, node := range wf.Nodes {
		if node.Type != domain.NodeTypeEnd && node.Type != domain.NodeTypeAnswer {
			continue
		}
		if schema, ok := ForNode(node); ok {
			out.OutputSchema = normalizeExtracted(schema.Inputs)
		}
		break
	}

	return out
}

func normalizeExtracted(ports []domain.PortDefinition) []domain.PortDefinition {
	out := make([]domain.PortDefinition, len(ports))
	for i, port := range ports {
		if port.Type == "" {
			port.Type = domain.PortTypeAny
		}
		if port.DisplayName == "" {
			port.DisplayName = port.Name
		}
		out[i] = port
	}
	return out
}
