package policy

import "context"

// Decision captures the result of one evaluation.
type Decision struct {
	Allowed bool
	Reasons []string
	Outputs map[string]any
}

// Input provides the document a policy is evaluated against.
type Input struct {
	Entrypoint   string
	Payload      map[string]any
	DisableCache bool
}

// Evaluator evaluates a policy decision for a given input.
type Evaluator interface {
	Evaluate(ctx context.Context, input Input) (Decision, error)
}
