// SPDX-License-Identifier: Apache-2.0

package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorkflowDefinition describes an ordered sequence of module invocations
// sharing one execution context. Step order is execution order.
type WorkflowDefinition struct {
	Name           string                 `json:"name" yaml:"name"`
	Description    string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Version        string                 `json:"version,omitempty" yaml:"version,omitempty"`
	Author         string                 `json:"author,omitempty" yaml:"author,omitempty"`
	Steps          []WorkflowStep         `json:"steps" yaml:"steps"`
	GlobalSettings map[string]interface{} `json:"global_settings,omitempty" yaml:"global_settings,omitempty"`
}

// WorkflowStep is one entry in a workflow. Inputs may be literal values or
// back-reference expressions of the form ${path}; Condition is declared but
// not evaluated (only syntax-checked at load time).
type WorkflowStep struct {
	Name           string                 `json:"name" yaml:"name"`
	Module         string                 `json:"module" yaml:"module"`
	Inputs         map[string]interface{} `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Condition      string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	OnError        ErrorAction            `json:"on_error,omitempty" yaml:"on_error,omitempty"`
	TimeoutSeconds int                    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
}

// ErrorActionKind enumerates the step failure policies.
type ErrorActionKind int

const (
	// ErrorActionStop aborts the run. Zero value, so an omitted on_error
	// field fails safe.
	ErrorActionStop ErrorActionKind = iota
	ErrorActionContinue
	ErrorActionRetry
)

// DefaultRetryAttempts is used when a retry policy does not state a count.
const DefaultRetryAttempts = 3

// ErrorAction is a step's declared failure policy. Accepted serialized forms,
// identical in YAML and JSON: the scalars "stop", "continue", "retry", or the
// mapping {"retry": <max_attempts>}.
type ErrorAction struct {
	Kind        ErrorActionKind
	MaxAttempts int
}

func (a ErrorAction) String() string {
	switch a.Kind {
	case ErrorActionContinue:
		return "continue"
	case ErrorActionRetry:
		return fmt.Sprintf("retry(%d)", a.MaxAttempts)
	default:
		return "stop"
	}
}

func (a *ErrorAction) fromScalar(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop":
		*a = ErrorAction{Kind: ErrorActionStop}
	case "continue":
		*a = ErrorAction{Kind: ErrorActionContinue}
	case "retry":
		*a = ErrorAction{Kind: ErrorActionRetry, MaxAttempts: DefaultRetryAttempts}
	default:
		return fmt.Errorf("unknown error action: %q", s)
	}
	return nil
}

func (a *ErrorAction) fromAttempts(attempts int) error {
	if attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", attempts)
	}
	*a = ErrorAction{Kind: ErrorActionRetry, MaxAttempts: attempts}
	return nil
}

// UnmarshalYAML decodes the scalar and mapping forms described above.
func (a *ErrorAction) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		return a.fromScalar(s)
	case yaml.MappingNode:
		var m map[string]int
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("invalid error action mapping: %w", err)
		}
		attempts, ok := m["retry"]
		if !ok || len(m) != 1 {
			return fmt.Errorf("error action mapping must have a single 'retry' key")
		}
		return a.fromAttempts(attempts)
	default:
		return fmt.Errorf("invalid error action")
	}
}

// MarshalYAML emits the scalar form, or the mapping form for retry policies.
func (a ErrorAction) MarshalYAML() (interface{}, error) {
	if a.Kind == ErrorActionRetry {
		return map[string]int{"retry": a.MaxAttempts}, nil
	}
	return a.String(), nil
}

// UnmarshalJSON decodes the scalar and mapping forms described above.
func (a *ErrorAction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return a.fromScalar(s)
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("invalid error action: %s", string(data))
	}
	attempts, ok := m["retry"]
	if !ok || len(m) != 1 {
		return fmt.Errorf("error action object must have a single 'retry' key")
	}
	return a.fromAttempts(attempts)
}

// MarshalJSON emits the scalar form, or the mapping form for retry policies.
func (a ErrorAction) MarshalJSON() ([]byte, error) {
	if a.Kind == ErrorActionRetry {
		return json.Marshal(map[string]int{"retry": a.MaxAttempts})
	}
	return json.Marshal(a.String())
}
