// SPDX-License-Identifier: Apache-2.0

// Package condition syntax-checks the condition expressions declared on
// workflow steps. Conditions are not evaluated anywhere; the engine keeps
// the field for forward compatibility and only reports expressions that
// could never compile.
package condition

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Checker validates condition expressions as CEL against the variables a
// future evaluator would expose.
type Checker struct {
	env *cel.Env
}

// NewChecker creates a checker whose environment declares the context's
// target and the per-module result map.
func NewChecker() (*Checker, error) {
	env, err := cel.NewEnv(
		cel.Variable("target", cel.StringType),
		cel.Variable("results", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating CEL environment: %w", err)
	}
	return &Checker{env: env}, nil
}

// CheckSyntax parses and type-checks an expression without evaluating it.
func (c *Checker) CheckSyntax(expression string) error {
	ast, issues := c.env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("error parsing expression: %w", issues.Err())
	}

	if _, issues = c.env.Check(ast); issues != nil && issues.Err() != nil {
		return fmt.Errorf("error type-checking expression: %w", issues.Err())
	}

	return nil
}
