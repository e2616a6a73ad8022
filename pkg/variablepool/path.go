package variablepool

import (
	"errors"
	"fmt"

	"github.com/polisai/polis-flow/pkg/domain"
)

// ErrNotAncestor is returned by a GuardedResolver for selectors that point at
// a node which is not upstream of the consumer.
var ErrNotAncestor = errors.New("selector does not reference an upstream node")

// BuildVariablePath joins a node id and port name into "nodeId.portName".
func BuildVariablePath(nodeID, port string) string {
	return nodeID + domain.PathSeparator + port
}

// ParseVariablePath splits a path into its selector. ok is false for anything
// other than two non-empty segments.
func ParseVariablePath(path string) (domain.ValueSelector, bool) {
	sel, err := domain.ParseValueSelector(path)
	return sel, err == nil
}

// IsValidVariablePath reports whether path is well formed.
func IsValidVariablePath(path string) bool {
	_, ok := ParseVariablePath(path)
	return ok
}

// ExtractNodeID returns the node segment of a well formed path.
func ExtractNodeID(path string) (string, bool) {
	sel, ok := ParseVariablePath(path)
	return sel.NodeID, ok
}

// ExtractPortName returns the port segment of a well formed path.
func ExtractPortName(path string) (string, bool) {
	sel, ok := ParseVariablePath(path)
	return sel.Port, ok
}

// VariableExists reports whether path is well formed and has a value in p.
func (p *Pool) VariableExists(path string) bool {
	sel, ok := ParseVariablePath(path)
	if !ok {
		return false
	}
	return p.HasNodeOutput(sel.NodeID, sel.Port)
}

// ResolveMultiple resolves each selector in order. Missing values are nil.
func (p *Pool) ResolveMultiple(selectors []domain.ValueSelector) []any {
	out := make([]any, len(selectors))
	for i, sel := range selectors {
		out[i], _ = p.ResolveValueSelector(sel)
	}
	return out
}

// Lineage answers ancestry questions about the workflow graph.
type Lineage interface {
	IsAncestor(nodeID, candidate string) bool
}

// GuardedResolver resolves selectors on behalf of a consuming node and refuses
// those that do not point upstream of it.
type GuardedResolver struct {
	pool    *Pool
	lineage Lineage
}

// NewGuardedResolver binds a pool to the graph lineage used for checks.
func NewGuardedResolver(pool *Pool, lineage Lineage) *GuardedResolver {
	return &GuardedResolver{pool: pool, lineage: lineage}
}

// Resolve returns the value of sel as seen by consumer. A missing value is
// (nil, false, nil); a non-upstream selector is an ErrNotAncestor error.
func (g *GuardedResolver) Resolve(consumer string, sel domain.ValueSelector) (any, bool, error) {
	if !sel.Valid() {
		return nil, false, fmt.Errorf("%w: %q", domain.ErrInvalidSelector, sel.String())
	}
	if !g.lineage.IsAncestor(consumer, sel.NodeID) {
		return nil, false, fmt.Errorf("%w: %s is not upstream of %s", ErrNotAncestor, sel.NodeID, consumer)
	}
	value, ok := g.pool.ResolveValueSelector(sel)
	return value, ok, nil
}
