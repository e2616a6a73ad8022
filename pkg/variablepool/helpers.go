package variablepool

import (
	"encoding/json"
	"fmt"

	"github.com/polisai/polis-flow/pkg/domain"
)

// Stats summarises the contents of a pool.
type Stats struct {
	TotalNodes                 int `json:"totalNodes"`
	TotalOutputs               int `json:"totalOutputs"`
	EnvironmentVariablesCount  int `json:"environmentVariablesCount"`
	ConversationVariablesCount int `json:"conversationVariablesCount"`
}

// SetAllNodeOutputs writes every entry of outputs for nodeID.
func (p *Pool) SetAllNodeOutputs(nodeID string, outputs map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.nodeOutputs[nodeID]
	if !ok {
		existing = make(domain.NodeOutputs, len(outputs))
		p.nodeOutputs[nodeID] = existing
	}
	for port, value := range outputs {
		existing[port] = value
	}
}

// Initialize prepares the pool for a new run: node outputs are cleared and the
// non-nil variable maps replace the current ones.
func (p *Pool) Initialize(environment, conversation map[string]any) {
	p.ClearAllOutputs()
	if environment != nil {
		p.SetEnvironmentVariables(environment)
	}
	if conversation != nil {
		p.SetConversationVariables(conversation)
	}
}

// Reset empties node outputs and both variable maps.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodeOutputs = make(map[string]domain.NodeOutputs)
	p.environment = make(map[string]any)
	p.conversation = make(map[string]any)
}

// ExportJSON renders a snapshot as indented JSON.
func (p *Pool) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(p.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export variable pool: %w", err)
	}
	return data, nil
}

// Stats counts nodes, outputs and variables.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := Stats{
		TotalNodes:                 len(p.nodeOutputs),
		EnvironmentVariablesCount:  len(p.environment),
		ConversationVariablesCount: len(p.conversation),
	}
	for _, outputs := range p.nodeOutputs {
		stats.TotalOutputs += len(outputs)
	}
	return stats
}

// HasAllRequiredOutputs reports whether nodeID has written every listed port.
func (p *Pool) HasAllRequiredOutputs(nodeID string, ports []string) bool {
	for _, port := range ports {
		if !p.HasNodeOutput(nodeID, port) {
			return false
		}
	}
	return true
}

// IsValidNodeOutput reports whether (nodeID, port) holds a non-nil value.
func (p *Pool) IsValidNodeOutput(nodeID, port string) bool {
	value, ok := p.GetNodeOutput(nodeID, port)
	return ok && value != nil
}

// CopyNodeOutputs copies every output of source onto target.
func (p *Pool) CopyNodeOutputs(source, target string) {
	p.SetAllNodeOutputs(target, p.GetAllNodeOutputs(source))
}
