// Package policy evaluates editor decisions with embedded Open Policy Agent
// (OPA) Rego modules.
//
// Two decisions are policy driven: whether a selected model accepts image
// input (which switches on a classifier's files port) and whether a workflow
// may be published given the validation problems of its nodes. Both ship
// with a built-in module reproducing the default behaviour; operators replace
// them by pointing the configuration at their own Rego files.
//
// Evaluation failures never block editing. Each decision domain carries a
// failure posture that says whether an error resolves to the fallback answer
// (fail-open) or to the restrictive answer (fail-closed).
package policy
