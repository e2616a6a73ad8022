package portschema

import "github.com/polisai/polis-flow/pkg/domain"

var staticSchemas = map[domain.NodeType]domain.NodePortSchema{
	domain.NodeTypeStart: {
		Inputs: []domain.PortDefinition{},
		Outputs: []domain.PortDefinition{
			{Name: "query", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "User question or message", DisplayName: "User Query"},
			{Name: "session_id", Type: domain.PortTypeString, Required: false, DefaultValue: "", Description: "Session ID", DisplayName: "Session ID"},
		},
	},
	domain.NodeTypeKnowledgeRetrieval: {
		Inputs: []domain.PortDefinition{
			{Name: "query", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "Query text to search for", DisplayName: "Search Query"},
		},
		Outputs: []domain.PortDefinition{
			{Name: "context", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "Retrieved document context", DisplayName: "Context"},
			{Name: "documents", Type: domain.PortTypeArray, Required: false, DefaultValue: []any{}, Description: "Retrieved documents", DisplayName: "Documents"},
			{Name: "doc_count", Type: domain.PortTypeNumber, Required: false, DefaultValue: 0, Description: "Number of retrieved documents", DisplayName: "Document Count"},
		},
	},
	domain.NodeTypeLLM: {
		Inputs: []domain.PortDefinition{
			{Name: "query", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "User question", DisplayName: "Question"},
			{Name: "context", Type: domain.PortTypeString, Required: false, DefaultValue: "", Description: "Context information", DisplayName: "Context"},
			{Name: "system_prompt", Type: domain.PortTypeString, Required: false, DefaultValue: "", Description: "System prompt", DisplayName: "System Prompt"},
		},
		Outputs: []domain.PortDefinition{
			{Name: "response", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "LLM response", DisplayName: "Response"},
			{Name: "tokens", Type: domain.PortTypeNumber, Required: false, DefaultValue: 0, Description: "Tokens used", DisplayName: "Tokens"},
			{Name: "model", Type: domain.PortTypeString, Required: false, DefaultValue: "", Description: "Model name used", DisplayName: "Model"},
		},
	},
	domain.NodeTypeEnd: {
		Inputs: []domain.PortDefinition{
			{Name: "response", Type: domain.PortTypeString, Required: true, DefaultValue: "", Description: "Final response text", DisplayName: "Response"},
		},
		Outputs: []domain.PortDefinition{
			{Name: "final_output", Type: domain.PortTypeObject, Required: true, DefaultValue: map[string]any{}, Description: "Final result object", DisplayName: "Final Output"},
		},
	},
}

// Static returns a fresh copy of the fixed schema of kind.
func Static(kind domain.NodeType) (domain.NodePortSchema, bool) {
	schema, ok := staticSchemas[kind]
	if !ok {
		return domain.NodePortSchema{}, false
	}
	return cloneDeep(schema), true
}

// Ensure returns current when set, otherwise the fixed schema of kind.
func Ensure(kind domain.NodeType, current *domain.NodePortSchema) (domain.NodePortSchema, bool) {
	if current != nil {
		return current.Clone(), true
	}
	return Static(kind)
}

// cloneDeep copies a schema including composite default values so callers
// cannot reach the shared templates.
func cloneDeep(schema domain.NodePortSchema) domain.NodePortSchema {
	out := schema.Clone()
	for i := range out.Inputs {
		out.Inputs[i].DefaultValue = cloneDefault(out.Inputs[i].DefaultValue)
	}
	for i := range out.Outputs {
		out.Outputs[i].DefaultValue = cloneDefault(out.Outputs[i].DefaultValue)
	}
	return out
}

func cloneDefault(v any) any {
	switch typed := v.(type) {
	case []any:
		return append([]any{}, typed...)
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = val
		}
		return out
	default:
		return v
	}
}
