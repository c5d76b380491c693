// SPDX-License-Identifier: Apache-2.0

// Package models holds the shared data structures passed between the
// registry, the workflow engine, and concrete modules.
package models

// ModuleDescriptor is the declarative metadata attached to every module.
// It is immutable once constructed and owned by its module instance; the
// registry keys modules by Name, which must be unique.
type ModuleDescriptor struct {
	Name         string                `json:"name" yaml:"name"`
	Version      string                `json:"version" yaml:"version"`
	Category     string                `json:"category" yaml:"category"`
	Description  string                `json:"description" yaml:"description"`
	Author       string                `json:"author" yaml:"author"`
	Dependencies []string              `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Inputs       map[string]InputSpec  `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      map[string]OutputSpec `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Capabilities []string              `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	RiskLevel    RiskLevel             `json:"risk_level" yaml:"risk_level"`
}

// InputSpec describes one declared input of a module.
type InputSpec struct {
	Description     string  `json:"description" yaml:"description"`
	InputType       string  `json:"input_type" yaml:"input_type"`
	Required        bool    `json:"required" yaml:"required"`
	DefaultValue    *string `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	ValidationRegex string  `json:"validation_regex,omitempty" yaml:"validation_regex,omitempty"`
}

// OutputSpec describes one declared output of a module. The format field
// documents the serialization of the value found in the result payload.
type OutputSpec struct {
	Description string `json:"description" yaml:"description"`
	OutputType  string `json:"output_type" yaml:"output_type"`
	Format      string `json:"format" yaml:"format"`
}

// ModuleResult is the outcome of a single module execution. It is created
// once per execution call and never mutated afterwards.
type ModuleResult struct {
	Success         bool                   `json:"success"`
	Data            map[string]interface{} `json:"data"`
	Errors          []string               `json:"errors,omitempty"`
	Warnings        []string               `json:"warnings,omitempty"`
	ExecutionTimeMS int64                  `json:"execution_time_ms"`
	Artifacts       []string               `json:"artifacts,omitempty"`
}

// ExecutionContext carries the state for one top-level invocation: a single
// module execution or an entire workflow run. Results are keyed by module
// name, so re-invoking a module within one run overwrites its earlier entry.
type ExecutionContext struct {
	Target     string                  `json:"target"`
	Parameters map[string]interface{}  `json:"parameters"`
	Results    map[string]ModuleResult `json:"results"`
	Metadata   map[string]string       `json:"metadata"`
}

// NewExecutionContext creates a fresh context for the given target.
func NewExecutionContext(target string) *ExecutionContext {
	return &ExecutionContext{
		Target:     target,
		Parameters: make(map[string]interface{}),
		Results:    make(map[string]ModuleResult),
		Metadata:   make(map[string]string),
	}
}

// Clone returns a snapshot of the context. Modules receive the snapshot, so
// they cannot mutate the caller's view except through their returned result,
// which the engine folds back in.
func (c *ExecutionContext) Clone() ExecutionContext {
	clone := ExecutionContext{
		Target:     c.Target,
		Parameters: make(map[string]interface{}, len(c.Parameters)),
		Results:    make(map[string]ModuleResult, len(c.Results)),
		Metadata:   make(map[string]string, len(c.Metadata)),
	}
	for k, v := range c.Parameters {
		clone.Parameters[k] = v
	}
	for k, v := range c.Results {
		clone.Results[k] = v
	}
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
