package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polisai/polis-flow/pkg/branch"
	"github.com/polisai/polis-flow/pkg/domain"
)

// DefaultVisionEntrypoint is the decision path of the vision module.
const DefaultVisionEntrypoint = "flow/vision/supports"

// DefaultVisionModule treats every model whose name contains "vision", in any
// letter case, as vision capable.
const DefaultVisionModule = `package flow.vision

import rego.v1

default supports := false

supports if {
	indexof(lower(input.model.name), "vision") >= 0
}
`

// VisionOptions configure a VisionDetector.
type VisionOptions struct {
	// Modules replaces the built-in module when set.
	Modules    map[string]string
	Entrypoint string
	Mode       Mode
	// Fallback answers when evaluation fails under ModeFailOpen.
	Fallback branch.VisionDetector
	Logger   *slog.Logger
}

// VisionDetector answers the vision question with a Rego policy.
type VisionDetector struct {
	engine   Evaluator
	mode     Mode
	fallback branch.VisionDetector
	logger   *slog.Logger
}

var _ branch.VisionDetector = (*VisionDetector)(nil)

// NewVisionDetector compiles the vision policy.
func NewVisionDetector(ctx context.Context, opts VisionOptions) (*VisionDetector, error) {
	modules := opts.Modules
	if len(modules) == 0 {
		modules = map[string]string{"vision.rego": DefaultVisionModule}
	}
	entry := opts.Entrypoint
	if entry == "" {
		entry = DefaultVisionEntrypoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine, err := NewEngine(ctx, EngineOptions{Entrypoint: entry, Modules: modules, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("vision policy: %w", err)
	}
	return newVisionDetector(engine, opts.Mode, opts.Fallback, logger), nil
}

func newVisionDetector(engine Evaluator, mode Mode, fallback branch.VisionDetector, logger *slog.Logger) *VisionDetector {
	if !mode.IsValid() {
		mode = DefaultMode(DomainVision)
	}
	if fallback == nil {
		fallback = branch.NameContainsVision
	}
	return &VisionDetector{engine: engine, mode: mode, fallback: fallback, logger: logger}
}

// SupportsVision implements branch.VisionDetector.
func (d *VisionDetector) SupportsVision(ctx context.Context, model domain.ModelConfig) bool {
	ok, err := d.Evaluate(ctx, model)
	if err == nil {
		return ok
	}

	d.logger.Warn("Vision policy evaluation failed", "model", model.Name, "posture", d.mode, "error", err)
	if d.mode == ModeFailOpen {
		return d.fallback.SupportsVision(ctx, model)
	}
	return false
}

// Evaluate runs the policy for model.
func (d *VisionDetector) Evaluate(ctx context.Context, model domain.ModelConfig) (bool, error) {
	params := make(map[string]any, len(model.CompletionParams))
	for k, v := range model.CompletionParams {
		params[k] = v
	}
	decision, err := d.engine.Evaluate(ctx, Input{Payload: map[string]any{
		"model": map[string]any{
			"provider":          model.Provider,
			"name":              model.Name,
			"mode":              model.Mode,
			"completion_params": params,
		},
	}})
	if err != nil {
		return false, err
	}
	return decision.Allowed, nil
}
