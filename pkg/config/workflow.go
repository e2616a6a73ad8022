package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/polisai/polis-flow/pkg/domain"
)

// LoadWorkflow reads a workflow document from a YAML or JSON file.
func LoadWorkflow(path string) (domain.Workflow, error) {
	//nolint:gosec // Workflow path is controlled by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}
	wf, err := ParseWorkflow(data)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("workflow file %s: %w", path, err)
	}
	return wf, nil
}

// ParseWorkflow decodes a workflow document. JSON is accepted as a subset of
// YAML; both are normalised through JSON so node data decodes by kind.
func ParseWorkflow(data []byte) (domain.Workflow, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to parse workflow: %w", err)
	}
	if doc == nil {
		return domain.Workflow{}, errors.New("empty workflow document")
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to normalise workflow: %w", err)
	}

	var wf domain.Workflow
	if err := json.Unmarshal(normalized, &wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to decode workflow: %w", err)
	}
	if err := checkWorkflow(wf); err != nil {
		return domain.Workflow{}, err
	}
	return wf, nil
}

// SaveWorkflow writes wf as indented JSON.
func SaveWorkflow(path string, wf domain.Workflow) error {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write workflow file %s: %w", path, err)
	}
	return nil
}

func checkWorkflow(wf domain.Workflow) error {
	ids := make(map[string]bool, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", domain.ErrInvalidNode)
		}
		if ids[n.ID] {
			return fmt.Errorf("%w: duplicate node id %s", domain.ErrInvalidNode, n.ID)
		}
		ids[n.ID] = true
	}

	edgeIDs := make(map[string]bool, len(wf.Edges))
	for _, e := range wf.Edges {
		if edgeIDs[e.ID] {
			return fmt.Errorf("duplicate edge id %s", e.ID)
		}
		edgeIDs[e.ID] = true
		if !ids[e.Source] || !ids[e.Target] {
			return fmt.Errorf("%w: edge %s references an unknown node", domain.ErrNodeNotFound, e.ID)
		}
	}
	return nil
}
