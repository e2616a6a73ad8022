package domain

import (
	"encoding/json"
	"fmt"
)

// NodeType identifies the kind of a workflow node.
type NodeType string

// Node kinds known to the editor.
const (
	NodeTypeStart              NodeType = "start"
	NodeTypeEnd                NodeType = "end"
	NodeTypeAnswer             NodeType = "answer"
	NodeTypeLLM                NodeType = "llm"
	NodeTypeKnowledgeRetrieval NodeType = "knowledge-retrieval"
	NodeTypeIfElse             NodeType = "if-else"
	NodeTypeQuestionClassifier NodeType = "question-classifier"
	NodeTypeVariableAssigner   NodeType = "variable-assigner"
	NodeTypeImportedWorkflow   NodeType = "imported-workflow"
)

// Position is the canvas location of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData carries everything the editor persists for a node besides
// topology. On the wire the kind-specific config fields sit directly inside
// "data" next to title, desc and ports.
type NodeData struct {
	Title       string
	Description string
	Ports       *NodePortSchema
	Config      NodeConfig
}

// Node is a vertex of the workflow graph.
type Node struct {
	ID       string   `json:"id"`
	Type     NodeType `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// DisplayName is the title when set and the node type otherwise.
func (n Node) DisplayName() string {
	if n.Data.Title != "" {
		return n.Data.Title
	}
	return string(n.Type)
}

// Edge connects an output handle of Source to an input handle of Target.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Workflow is a full graph document.
type Workflow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FindNode returns the node with the given id.
func (w Workflow) FindNode(id string) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

type nodeDataHeader struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"desc,omitempty"`
	Ports       *NodePortSchema `json:"ports,omitempty"`
}

var reservedDataKeys = []string{"title", "desc", "ports", "type"}

// UnmarshalJSON decodes data into the NodeConfig matching the node type.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw nodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var header nodeDataHeader
	if len(raw.Data) > 0 && string(raw.Data) != "null" {
		if err := json.Unmarshal(raw.Data, &header); err != nil {
			return fmt.Errorf("node %q: %w", raw.ID, err)
		}
	}

	cfg, err := DecodeNodeConfig(raw.Type, raw.Data)
	if err != nil {
		return fmt.Errorf("node %q: %w", raw.ID, err)
	}

	*n = Node{
		ID:       raw.ID,
		Type:     raw.Type,
		Position: raw.Position,
		Data: NodeData{
			Title:       header.Title,
			Description: header.Description,
			Ports:       header.Ports,
			Config:      cfg,
		},
	}
	return nil
}

// MarshalJSON flattens the config fields into the data object.
func (d NodeData) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if d.Config != nil {
		cfgData, err := json.Marshal(d.Config)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(cfgData, &out); err != nil {
			return nil, fmt.Errorf("%w: config of kind %s is not an object", ErrConfigInvalid, d.Config.Kind())
		}
		if out == nil {
			out = map[string]any{}
		}
	}
	if d.Title != "" {
		out["title"] = d.Title
	}
	if d.Description != "" {
		out["desc"] = d.Description
	}
	if d.Ports != nil {
		out["ports"] = d.Ports
	}
	return json.Marshal(out)
}

// DecodeNodeConfig decodes the config fields of a raw data object for the
// given node kind. Unknown kinds decode into a StaticConfig holding every
// field that is not part of the common header.
func DecodeNodeConfig(kind NodeType, raw json.RawMessage) (NodeConfig, error) {
	empty := len(raw) == 0 || string(raw) == "null"

	var cfg NodeConfig
	switch kind {
	case NodeTypeIfElse:
		cfg = &IfElseConfig{}
	case NodeTypeQuestionClassifier:
		cfg = &ClassifierConfig{}
	case NodeTypeVariableAssigner:
		cfg = &AggregatorConfig{OutputType: PortTypeAny}
	case NodeTypeImportedWorkflow:
		cfg = &ImportedWorkflowConfig{}
	default:
		static := &StaticConfig{Type: kind}
		if !empty {
			if err := json.Unmarshal(raw, &static.Data); err != nil {
				return nil, fmt.Errorf("%w: decode %s config: %v", ErrConfigInvalid, kind, err)
			}
			for _, key := range reservedDataKeys {
				delete(static.Data, key)
			}
			if len(static.Data) == 0 {
				static.Data = nil
			}
		}
		return static, nil
	}

	if empty {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: decode %s config: %v", ErrConfigInvalid, kind, err)
	}
	return cfg, nil
}

// MarshalJSON encodes the free-form data of a static node as its config object.
func (c *StaticConfig) MarshalJSON() ([]byte, error) {
	if c == nil || len(c.Data) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Data)
}
