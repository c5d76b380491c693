// SPDX-License-Identifier: Apache-2.0

// Package secverr defines the failure taxonomy shared by the registry, the
// workflow engine, and every module. Modules must map their failures onto
// these types; nothing is signalled outside them.
package secverr

import "fmt"

// ModuleNotFoundError reports a registry lookup miss by exact name.
type ModuleNotFoundError struct {
	Name string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module not found: %s", e.Name)
}

// DependencyMissingError reports the first unmet runtime dependency of a
// module, typically an external binary absent from the search path.
type DependencyMissingError struct {
	Module     string
	Dependency string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("module %s: dependency missing: %s", e.Module, e.Dependency)
}

// ValidationError reports a required input that is absent or a present input
// that failed its declared validation pattern.
type ValidationError struct {
	Module string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("module %s: validation failed for input %q: %s", e.Module, e.Field, e.Reason)
}

// ExecutionError reports that a module's own work failed, including a step
// deadline being exceeded.
type ExecutionError struct {
	Module   string
	Reason   string
	TimedOut bool
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("module %s: execution failed: %s", e.Module, e.Reason)
}

// NewTimeout builds the ExecutionError used when a step's deadline wins the
// race against the module's own completion.
func NewTimeout(module string) *ExecutionError {
	return &ExecutionError{Module: module, Reason: "module execution timed out", TimedOut: true}
}

// WorkflowError reports an engine-level abort: a stop-policy step failure,
// an unresolved back-reference, or a lookup miss mid-run. StepIndex is
// one-based to match the step numbering shown to operators.
type WorkflowError struct {
	StepIndex int
	StepName  string
	Reason    string
	Err       error
}

func (e *WorkflowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow aborted at step %d (%s): %s: %v", e.StepIndex, e.StepName, e.Reason, e.Err)
	}
	return fmt.Sprintf("workflow aborted at step %d (%s): %s", e.StepIndex, e.StepName, e.Reason)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// DefinitionError reports a module definition file that could not be read,
// parsed, or validated during discovery. Discovery is best-effort, so these
// are reported and skipped rather than escalated.
type DefinitionError struct {
	Path string
	Err  error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid module definition %s: %v", e.Path, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }
