package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// DefaultPublishEntrypoint is the decision path of the publish module.
const DefaultPublishEntrypoint = "flow/publish/decision"

// DefaultPublishModule allows publishing only when no node reports a problem.
const DefaultPublishModule = `package flow.publish

import rego.v1

default allow := false

allow if count(problems) == 0

problems contains msg if {
	some node_id, errs in input.errors
	some err in errs
	msg := sprintf("%s: %s", [node_id, err])
}

decision := {"allow": allow, "reasons": problems}
`

// PublishOptions configure a PublishGate.
type PublishOptions struct {
	Modules    map[string]string
	Entrypoint string
	Mode       Mode
	Logger     *slog.Logger
}

// PublishGate decides whether a workflow may be published.
type PublishGate struct {
	engine Evaluator
	mode   Mode
	logger *slog.Logger
}

// NewPublishGate compiles the publish policy.
func NewPublishGate(ctx context.Context, opts PublishOptions) (*PublishGate, error) {
	modules := opts.Modules
	if len(modules) == 0 {
		modules = map[string]string{"publish.rego": DefaultPublishModule}
	}
	entry := opts.Entrypoint
	if entry == "" {
		entry = DefaultPublishEntrypoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := opts.Mode
	if !mode.IsValid() {
		mode = DefaultMode(DomainPublish)
	}

	engine, err := NewEngine(ctx, EngineOptions{Entrypoint: entry, Modules: modules, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("publish policy: %w", err)
	}
	return &PublishGate{engine: engine, mode: mode, logger: logger}, nil
}

// Check evaluates the gate against the validation problems of each node,
// keyed by node id. Evaluation errors are resolved by the gate's posture.
func (g *PublishGate) Check(ctx context.Context, problems map[string][]string) Decision {
	errs := make(map[string]any, len(problems))
	for nodeID, list := range problems {
		items := make([]any, len(list))
		for i, p := range list {
			items[i] = p
		}
		errs[nodeID] = items
	}

	decision, err := g.engine.Evaluate(ctx, Input{Payload: map[string]any{"errors": errs}})
	if err == nil {
		return decision
	}

	g.logger.Warn("Publish policy evaluation failed", "posture", g.mode, "error", err)
	if g.mode == ModeFailOpen {
		reasons := FlattenProblems(problems)
		return Decision{Allowed: len(reasons) == 0, Reasons: reasons, Outputs: map[string]any{}}
	}
	return Decision{
		Allowed: false,
		Reasons: []string{fmt.Sprintf("publish policy evaluation failed: %v", err)},
		Outputs: map[string]any{},
	}
}

// FlattenProblems renders per-node problems as sorted "node: problem" lines.
func FlattenProblems(problems map[string][]string) []string {
	var out []string
	for nodeID, list := range problems {
		for _, p := range list {
			out = append(out, nodeID+": "+p)
		}
	}
	sort.Strings(out)
	return out
}
