// Package variablepool holds the run-scoped values produced by workflow nodes
// and resolves cross-node variable references against them.
//
// A Pool is an explicit state container: the caller creates one per execution
// context and passes it to whoever writes or reads node outputs. It never
// blocks on a missing value; absence is reported through the boolean result.
package variablepool

import (
	"log/slog"
	"sync"

	"github.com/polisai/polis-flow/pkg/domain"
)

// Config configures a Pool.
type Config struct {
	// Logger receives diagnostics for malformed variable paths. Defaults to slog.Default().
	Logger *slog.Logger
}

// Pool stores node outputs plus environment and conversation variables.
type Pool struct {
	mu           sync.RWMutex
	nodeOutputs  map[string]domain.NodeOutputs
	environment  map[string]any
	conversation map[string]any
	logger       *slog.Logger
}

// New creates an empty pool.
func New(cfg Config) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		nodeOutputs:  make(map[string]domain.NodeOutputs),
		environment:  make(map[string]any),
		conversation: make(map[string]any),
		logger:       logger,
	}
}

// SetNodeOutput stores value under (nodeID, port), overwriting any previous value.
// The pool does not check the value against the node's port schema.
func (p *Pool) SetNodeOutput(nodeID, port string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	outputs, ok := p.nodeOutputs[nodeID]
	if !ok {
		outputs = make(domain.NodeOutputs)
		p.nodeOutputs[nodeID] = outputs
	}
	outputs[port] = value
}

// GetNodeOutput returns the value stored under (nodeID, port).
func (p *Pool) GetNodeOutput(nodeID, port string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	outputs, ok := p.nodeOutputs[nodeID]
	if !ok {
		return nil, false
	}
	value, ok := outputs[port]
	return value, ok
}

// HasNodeOutput reports whether (nodeID, port) has been written in this run.
func (p *Pool) HasNodeOutput(nodeID, port string) bool {
	_, ok := p.GetNodeOutput(nodeID, port)
	return ok
}

// GetAllNodeOutputs returns a copy of every output of nodeID. The map is empty,
// never nil, when the node has produced nothing.
func (p *Pool) GetAllNodeOutputs(nodeID string) domain.NodeOutputs {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneOutputs(p.nodeOutputs[nodeID])
}

// ResolveValueSelector looks up the value addressed by sel.
func (p *Pool) ResolveValueSelector(sel domain.ValueSelector) (any, bool) {
	return p.GetNodeOutput(sel.NodeID, sel.Port)
}

// ResolveVariablePath resolves "nodeId.portName". A malformed path is logged
// and reported as absent.
func (p *Pool) ResolveVariablePath(path string) (any, bool) {
	sel, err := domain.ParseValueSelector(path)
	if err != nil {
		p.logger.Warn("Malformed variable path", "path", path, "error", err)
		return nil, false
	}
	return p.ResolveValueSelector(sel)
}

// ClearAllOutputs drops every node output. Environment and conversation
// variables are kept.
func (p *Pool) ClearAllOutputs() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodeOutputs = make(map[string]domain.NodeOutputs)
}

// ClearNodeOutputs drops the outputs of a single node.
func (p *Pool) ClearNodeOutputs(nodeID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.nodeOutputs, nodeID)
}

// SetEnvironmentVariable sets a single environment variable.
func (p *Pool) SetEnvironmentVariable(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.environment[key] = value
}

// GetEnvironmentVariable returns a single environment variable.
func (p *Pool) GetEnvironmentVariable(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.environment[key]
	return value, ok
}

// SetEnvironmentVariables replaces all environment variables.
func (p *Pool) SetEnvironmentVariables(vars map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.environment = cloneAnyMap(vars)
}

// SetConversationVariable sets a single conversation variable.
func (p *Pool) SetConversationVariable(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversation[key] = value
}

// GetConversationVariable returns a single conversation variable.
func (p *Pool) GetConversationVariable(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	value, ok := p.conversation[key]
	return value, ok
}

// SetConversationVariables replaces all conversation variables.
func (p *Pool) SetConversationVariables(vars map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversation = cloneAnyMap(vars)
}

// Snapshot returns a copy of the pool state. Mutating the snapshot does not
// affect the pool and vice versa.
func (p *Pool) Snapshot() domain.VariablePoolState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	outputs := make(map[string]domain.NodeOutputs, len(p.nodeOutputs))
	for nodeID, values := range p.nodeOutputs {
		outputs[nodeID] = cloneOutputs(values)
	}
	return domain.VariablePoolState{
		NodeOutputs:           outputs,
		EnvironmentVariables:  cloneAnyMap(p.environment),
		ConversationVariables: cloneAnyMap(p.conversation),
	}
}

// NodeContext returns the outputs of nodeID together with whether it has any.
func (p *Pool) NodeContext(nodeID string) domain.NodeContext {
	outputs := p.GetAllNodeOutputs(nodeID)
	return domain.NodeContext{
		Outputs:    outputs,
		HasOutputs: len(outputs) > 0,
	}
}

func cloneOutputs(in domain.NodeOutputs) domain.NodeOutputs {
	out := make(domain.NodeOutputs, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
