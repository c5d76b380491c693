// SPDX-License-Identifier: Apache-2.0

// Package engine sequences workflow steps: it resolves back-references,
// validates and executes modules through the registry, bounds steps by their
// declared timeout, and applies per-step error policy.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/0xbv1/secv/internal/core/format"
	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/module"
	"github.com/0xbv1/secv/internal/core/registry"
	"github.com/0xbv1/secv/internal/core/secverr"
	"github.com/0xbv1/secv/internal/engine/condition"
	"github.com/0xbv1/secv/internal/engine/resolver"
)

// Options tunes a workflow engine.
type Options struct {
	// Verbose enables per-step progress output.
	Verbose bool

	// DefaultStepTimeout bounds steps that do not declare their own
	// timeout_seconds. Zero leaves such steps unbounded.
	DefaultStepTimeout time.Duration
}

// Engine runs workflows against a module registry. One engine may serve
// concurrent runs; each run owns its execution context exclusively.
type Engine struct {
	registry *registry.Registry
	opts     Options

	checkerOnce sync.Once
	checker     *condition.Checker
	checkerErr  error
}

// New creates an engine over the given registry.
func New(reg *registry.Registry, opts Options) *Engine {
	return &Engine{
		registry: reg,
		opts:     opts,
	}
}

// LoadWorkflow reads a workflow definition from a YAML or JSON file, the
// serialization selected by extension. Step conditions are syntax-checked
// here; a bad expression is a warning, not a load failure, because
// conditions are declared-only.
func (e *Engine) LoadWorkflow(path string) (*models.WorkflowDefinition, error) {
	var wf models.WorkflowDefinition
	if err := format.ParseFile(path, &wf); err != nil {
		return nil, fmt.Errorf("error loading workflow %s: %w", path, err)
	}

	if wf.Name == "" {
		return nil, fmt.Errorf("workflow %s has no name", path)
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", wf.Name)
	}
	for i, step := range wf.Steps {
		if step.Module == "" {
			return nil, fmt.Errorf("workflow %q: step %d has no module", wf.Name, i+1)
		}
	}

	e.checkConditions(&wf)

	return &wf, nil
}

// checkConditions reports step conditions that could never compile.
func (e *Engine) checkConditions(wf *models.WorkflowDefinition) {
	hasConditions := false
	for _, step := range wf.Steps {
		if step.Condition != "" {
			hasConditions = true
			break
		}
	}
	if !hasConditions {
		return
	}

	e.checkerOnce.Do(func() {
		e.checker, e.checkerErr = condition.NewChecker()
	})
	if e.checkerErr != nil {
		fmt.Printf("Warning: condition checking unavailable: %v\n", e.checkerErr)
		return
	}

	for i, step := range wf.Steps {
		if step.Condition == "" {
			continue
		}
		if err := e.checker.CheckSyntax(step.Condition); err != nil {
			fmt.Printf("Warning: step %d (%s) condition %q: %v (conditions are declared but not evaluated)\n",
				i+1, step.Name, step.Condition, err)
		}
	}
}

// Run executes a workflow against a target. The final mapping holds the last
// stored result per distinct module invoked; a module invoked twice keeps
// only its later result. The run aborts on a stop-policy step failure, an
// unresolved back-reference, or a registry lookup miss.
func (e *Engine) Run(ctx context.Context, wf *models.WorkflowDefinition, target string) (map[string]models.ModuleResult, error) {
	ec := models.NewExecutionContext(target)
	for k, v := range wf.GlobalSettings {
		ec.Parameters[k] = v
	}

	if e.opts.Verbose {
		fmt.Printf("Executing workflow: %s (%d steps)\n", wf.Name, len(wf.Steps))
	}

	for i, step := range wf.Steps {
		stepNum := i + 1
		if e.opts.Verbose {
			fmt.Printf("--- Step %d/%d: %s (module %s) ---\n", stepNum, len(wf.Steps), step.Name, step.Module)
		}

		mod, ok := e.registry.Get(step.Module)
		if !ok {
			return nil, &secverr.WorkflowError{
				StepIndex: stepNum,
				StepName:  step.Name,
				Reason:    "module lookup failed",
				Err:       &secverr.ModuleNotFoundError{Name: step.Module},
			}
		}

		resolved, err := resolver.Resolve(step.Inputs, ec)
		if err != nil {
			return nil, &secverr.WorkflowError{
				StepIndex: stepNum,
				StepName:  step.Name,
				Reason:    "unresolved back-reference",
				Err:       err,
			}
		}
		for k, v := range resolved {
			ec.Parameters[k] = v
		}
		module.ApplyDefaults(mod.Metadata(), ec.Parameters)

		result := e.runStep(ctx, step, mod, ec)

		if result.Success {
			ec.Results[step.Module] = result
			if e.opts.Verbose {
				fmt.Printf("Step %d completed in %dms\n", stepNum, result.ExecutionTimeMS)
			}
			continue
		}

		switch step.OnError.Kind {
		case models.ErrorActionStop:
			return nil, &secverr.WorkflowError{
				StepIndex: stepNum,
				StepName:  step.Name,
				Reason:    failureReason(result),
			}
		default:
			// Continue, and retry once its attempts are spent: the failed
			// result is stored anyway so downstream back-references can
			// still observe it.
			ec.Results[step.Module] = result
			if e.opts.Verbose {
				fmt.Printf("Step %d failed but continuing: %s\n", stepNum, failureReason(result))
			}
		}
	}

	return ec.Results, nil
}

// runStep validates and executes one step, re-attempting under a retry
// policy. Validation failures follow the same error policy as execution
// failures.
func (e *Engine) runStep(ctx context.Context, step models.WorkflowStep, mod module.Module, ec *models.ExecutionContext) models.ModuleResult {
	attempts := 1
	if step.OnError.Kind == models.ErrorActionRetry && step.OnError.MaxAttempts > 1 {
		attempts = step.OnError.MaxAttempts
	}

	var result models.ModuleResult
	for attempt := 1; attempt <= attempts; attempt++ {
		result = e.executeOnce(ctx, step, mod, ec)
		if result.Success {
			break
		}
		if attempt < attempts && e.opts.Verbose {
			fmt.Printf("Attempt %d/%d failed, retrying: %s\n", attempt, attempts, failureReason(result))
		}
	}

	if err := mod.Cleanup(); err != nil {
		fmt.Printf("Warning: cleanup for module %s failed: %v\n", step.Module, err)
	}

	return result
}

// executeOnce performs a single validate-then-execute attempt against a
// context snapshot, bounded by the step's timeout when one applies.
func (e *Engine) executeOnce(ctx context.Context, step models.WorkflowStep, mod module.Module, ec *models.ExecutionContext) models.ModuleResult {
	start := time.Now()

	if err := mod.ValidateInputs(ec.Parameters); err != nil {
		return failedResult(start, err.Error())
	}

	snapshot := ec.Clone()

	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = e.opts.DefaultStepTimeout
	}
	if timeout <= 0 {
		result, err := mod.Execute(ctx, snapshot)
		if err != nil {
			return failedResult(start, err.Error())
		}
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result models.ModuleResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := mod.Execute(stepCtx, snapshot)
		done <- outcome{result, err}
	}()

	// The deadline races the module's own completion. When the deadline
	// wins we stop waiting; the losing goroutine is abandoned, not killed.
	select {
	case o := <-done:
		if o.err != nil {
			return failedResult(start, o.err.Error())
		}
		return o.result
	case <-stepCtx.Done():
		// Outer cancellation also trips stepCtx; report it as a
		// cancellation, not a step timeout.
		if err := ctx.Err(); err != nil {
			return failedResult(start, (&secverr.ExecutionError{
				Module: step.Module,
				Reason: fmt.Sprintf("module execution cancelled: %v", err),
			}).Error())
		}
		return failedResult(start, secverr.NewTimeout(step.Module).Error())
	}
}

func failedResult(start time.Time, msg string) models.ModuleResult {
	return models.ModuleResult{
		Success:         false,
		Data:            map[string]interface{}{},
		Errors:          []string{msg},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}

func failureReason(result models.ModuleResult) string {
	if len(result.Errors) == 0 {
		return "module reported failure"
	}
	return strings.Join(result.Errors, "; ")
}
