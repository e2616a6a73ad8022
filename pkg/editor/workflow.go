package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/polisai/polis-flow/pkg/branch"
	"github.com/polisai/polis-flow/pkg/domain"
	"github.com/polisai/polis-flow/pkg/policy"
	"github.com/polisai/polis-flow/pkg/portschema"
	"github.com/polisai/polis-flow/pkg/telemetry"
	"github.com/polisai/polis-flow/pkg/upstream"
	"github.com/polisai/polis-flow/pkg/variablepool"
)

// PublishGate decides whether a workflow with the given per-node problems
// may be published. *policy.PublishGate satisfies it.
type PublishGate interface {
	Check(ctx context.Context, problems map[string][]string) policy.Decision
}

var _ PublishGate = (*policy.PublishGate)(nil)

// Validate checks every node and returns the problems keyed by node id.
// Nodes without problems are omitted.
func (e *Editor) Validate(ctx context.Context) (map[string][]string, error) {
	nodes, err := e.store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	problems := make(map[string][]string)
	for _, node := range nodes {
		var list []string
		if cfg := node.Data.Config; cfg != nil {
			list = append(list, branch.Validate(cfg)...)
		}
		if node.Type == domain.NodeTypeImportedWorkflow {
			if err := ValidateImportedNode(node); err != nil {
				list = append(list, err.Error())
			}
		}
		if node.Data.Ports != nil {
			list = append(list, portschema.ValidatePortSchema(*node.Data.Ports)...)
		}
		if len(list) > 0 {
			problems[node.ID] = list
		}
	}
	return problems, nil
}

// CanPublish validates the workflow and asks the publish gate for a verdict.
// Without a gate the workflow is publishable exactly when it has no problems.
func (e *Editor) CanPublish(ctx context.Context) (policy.Decision, error) {
	problems, err := e.Validate(ctx)
	if err != nil {
		return policy.Decision{}, err
	}
	if e.publish == nil {
		reasons := policy.FlattenProblems(problems)
		return policy.Decision{Allowed: len(reasons) == 0, Reasons: reasons, Outputs: map[string]any{}}, nil
	}

	decision := e.publish.Check(ctx, problems)
	if !decision.Allowed {
		e.logger.Info("Workflow publish blocked", "reasons", decision.Reasons)
	}
	return decision, nil
}

// StartRun clears the node outputs of the previous run. Environment and
// conversation variables survive.
func (e *Editor) StartRun(ctx context.Context) {
	e.pool.ClearAllOutputs()
	telemetry.RecordPoolClear(ctx, "run")
}

// FinishRun archives a snapshot of the pool and returns the run id.
func (e *Editor) FinishRun(ctx context.Context) (string, error) {
	if e.runs == nil {
		return "", errors.New("editor: no run store configured")
	}
	runID, err := e.runs.SaveRun(ctx, e.pool.Snapshot())
	if err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}
	e.logger.Info("Run archived", "run_id", runID)
	return runID, nil
}

// Resolve returns the value of sel as seen by consumer. Selectors that do not
// point at an ancestor of consumer are refused with variablepool.ErrNotAncestor.
func (e *Editor) Resolve(ctx context.Context, consumer string, sel domain.ValueSelector) (any, bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "editor.resolve")
	defer span.End()

	nodes, edges, err := e.graph(ctx)
	if err != nil {
		return nil, false, err
	}

	resolver := variablepool.NewGuardedResolver(e.pool, upstream.NewGraph(nodes, edges, e.upstream))
	value, ok, err := resolver.Resolve(consumer, sel)
	switch {
	case errors.Is(err, domain.ErrInvalidSelector):
		telemetry.RecordResolution(ctx, telemetry.ResolutionMalformed)
	case errors.Is(err, variablepool.ErrNotAncestor):
		telemetry.RecordResolution(ctx, telemetry.ResolutionDenied)
	case ok:
		telemetry.RecordResolution(ctx, telemetry.ResolutionHit)
	default:
		telemetry.RecordResolution(ctx, telemetry.ResolutionMiss)
	}
	return value, ok, err
}

// ResolvePath is Resolve for a dotted "nodeId.port" path.
func (e *Editor) ResolvePath(ctx context.Context, consumer, path string) (any, bool, error) {
	sel, err := domain.ParseValueSelector(path)
	if err != nil {
		e.logger.Warn("Malformed variable path", "consumer", consumer, "path", path, "error", err)
		telemetry.RecordResolution(ctx, telemetry.ResolutionMalformed)
		return nil, false, err
	}
	return e.Resolve(ctx, consumer, sel)
}
