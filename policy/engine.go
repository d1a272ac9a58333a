// Package policy decides what happens with a completed risk analysis.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values produced by the escalation policy.
const (
	DecisionEscalate = "escalate"
	DecisionNone     = "none"
)

// Engine is the OPA escalation policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.risk_policy.decision"),
		rego.Module("risk_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the escalation policy over one analysis result.
// Input keys: risk_found (bool), risk_level (string).
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionNone, nil
	}

	if decision, ok := results[0].Expressions[0].Value.(string); ok {
		return decision, nil
	}
	return DecisionNone, nil
}

// DefaultPolicy escalates any analysis that found a high or critical risk.
const DefaultPolicy = `
package risk_policy

default decision = "none"

decision = "escalate" {
	input.risk_found == true
	input.risk_level == "high"
}

decision = "escalate" {
	input.risk_found == true
	input.risk_level == "critical"
}
`
