package domain

// NodeOutputs maps port name to the value a node produced on it in the current run.
type NodeOutputs map[string]any

// VariablePoolState is a point-in-time view of all values known to a run.
type VariablePoolState struct {
	NodeOutputs           map[string]NodeOutputs `json:"nodeOutputs"`
	EnvironmentVariables  map[string]any         `json:"environmentVariables"`
	ConversationVariables map[string]any         `json:"conversationVariables"`
}

// NodeContext is what a node sees of its own outputs.
type NodeContext struct {
	Outputs    NodeOutputs `json:"outputs"`
	HasOutputs bool        `json:"hasOutputs"`
}

// Variable is one selectable upstream output offered to a node being configured.
type Variable struct {
	Selector    ValueSelector `json:"value_selector"`
	PortName    string        `json:"port_name"`
	DisplayName string        `json:"display_name"`
	Type        PortType      `json:"type"`
	Description string        `json:"description,omitempty"`
}

// NodeVariableGroup bundles the selectable outputs of one ancestor node.
type NodeVariableGroup struct {
	NodeID    string     `json:"node_id"`
	NodeName  string     `json:"node_name"`
	NodeType  NodeType   `json:"node_type"`
	Variables []Variable `json:"variables"`
}
