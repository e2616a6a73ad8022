package editor

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/polisai/polis-flow/pkg/domain"
)

// LibraryAgent is a published workflow as returned by the library service.
// A nil schema or graph means the field was absent from the response; an
// empty schema is allowed.
type LibraryAgent struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"library_name"`
	Description  string                  `json:"library_description,omitempty"`
	Version      string                  `json:"version,omitempty"`
	InputSchema  []domain.PortDefinition `json:"input_schema"`
	OutputSchema []domain.PortDefinition `json:"output_schema"`
	Graph        *domain.Workflow        `json:"graph"`
}

// NewImportedWorkflowNode turns a library agent into a collapsed, read-only
// node placed at position. Ports are copied from the agent's schemas.
func NewImportedWorkflowNode(agent LibraryAgent, position domain.Position, logger *slog.Logger) (domain.Node, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if agent.InputSchema == nil {
		return domain.Node{}, domain.NewNodeError(domain.ErrInvalidNode, "missing_input_schema", agent.ID,
			fmt.Sprintf("library agent %s has no input_schema", agent.ID))
	}
	if len(agent.InputSchema) == 0 {
		logger.Warn("Library agent has an empty input schema", "agent_id", agent.ID)
	}
	if agent.OutputSchema == nil {
		return domain.Node{}, domain.NewNodeError(domain.ErrInvalidNode, "missing_output_schema", agent.ID,
			fmt.Sprintf("library agent %s has no output_schema", agent.ID))
	}
	if len(agent.OutputSchema) == 0 {
		logger.Warn("Library agent has an empty output schema", "agent_id", agent.ID)
	}
	if agent.Graph == nil {
		return domain.Node{}, domain.NewNodeError(domain.ErrInvalidNode, "missing_graph", agent.ID,
			fmt.Sprintf("library agent %s has no graph", agent.ID))
	}

	ports := domain.NodePortSchema{
		Inputs:  append([]domain.PortDefinition{}, agent.InputSchema...),
		Outputs: append([]domain.PortDefinition{}, agent.OutputSchema...),
	}
	graph := *agent.Graph

	return domain.Node{
		ID:       fmt.Sprintf("imported_%s_%s", agent.ID, uuid.New().String()[:4]),
		Type:     domain.NodeTypeImportedWorkflow,
		Position: position,
		Data: domain.NodeData{
			Title:       agent.Name,
			Description: agent.Description,
			Ports:       &ports,
			Config: &domain.ImportedWorkflowConfig{
				SourceVersionID:  agent.ID,
				TemplateName:     agent.Name,
				TemplateVersion:  agent.Version,
				InternalGraph:    &graph,
				VariableMappings: map[string]domain.VariableMapping{},
				ReadOnly:         true,
			},
		},
	}, nil
}

// ValidateImportedNode reports the first field that would stop the backend
// from executing an imported workflow node.
func ValidateImportedNode(node domain.Node) error {
	cfg, _ := node.Data.Config.(*domain.ImportedWorkflowConfig)
	if cfg == nil || cfg.SourceVersionID == "" {
		return domain.NewNodeError(domain.ErrInvalidNode, "missing_source_version", node.ID,
			fmt.Sprintf("imported workflow node %s has no source_version_id", node.ID))
	}
	if node.Data.Ports == nil {
		return domain.NewNodeError(domain.ErrInvalidNode, "missing_ports", node.ID,
			fmt.Sprintf("imported workflow node %s has no port definitions", node.ID))
	}
	if cfg.InternalGraph == nil {
		return domain.NewNodeError(domain.ErrInvalidNode, "missing_internal_graph", node.ID,
			fmt.Sprintf("imported workflow node %s has no internal_graph", node.ID))
	}
	return nil
}
