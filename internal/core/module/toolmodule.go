// SPDX-License-Identifier: Apache-2.0

package module

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/0xbv1/secv/internal/core/cmdexec"
	"github.com/0xbv1/secv/internal/core/models"
)

// ExecutionSpec is the optional execution section of a module definition.
// Args may contain {{.param}} placeholders expanded from the merged
// parameters plus {{.target}}.
type ExecutionSpec struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Parse   string   `json:"parse,omitempty" yaml:"parse,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// Definition is the on-disk form of a discovered module: a descriptor plus
// an optional execution section.
type Definition struct {
	models.ModuleDescriptor `yaml:",inline"`
	Execution               *ExecutionSpec `json:"execution,omitempty" yaml:"execution,omitempty"`
}

// ToolModule is the generic module constructed from a definition file. With
// an execution section it wraps an external tool; without one it returns a
// synthetic result, which keeps descriptor-only definitions loadable.
type ToolModule struct {
	Base
	execution *ExecutionSpec
	verbose   bool
}

// NewToolModule builds a module from a parsed definition.
func NewToolModule(def Definition) *ToolModule {
	return &ToolModule{
		Base:      Base{Descriptor: def.ModuleDescriptor},
		execution: def.Execution,
	}
}

// SetVerbose tees wrapped tool output to the terminal.
func (m *ToolModule) SetVerbose(verbose bool) { m.verbose = verbose }

// Execute runs the wrapped tool, or reports a synthetic success for
// descriptor-only definitions. Tool failures come back as a failed result,
// not an error, so workflow error policy can observe them.
func (m *ToolModule) Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	start := time.Now()

	if m.execution == nil || m.execution.Command == "" {
		return models.ModuleResult{
			Success: true,
			Data: map[string]interface{}{
				"module":  m.Descriptor.Name,
				"target":  ec.Target,
				"message": fmt.Sprintf("%s has no execution section; nothing to run", m.Descriptor.Name),
			},
			ExecutionTimeMS: time.Since(start).Milliseconds(),
		}, nil
	}

	args, err := m.expandArgs(ec)
	if err != nil {
		return failedResult(start, fmt.Sprintf("error expanding arguments: %v", err)), nil
	}

	runner := cmdexec.New(m.execution.Command, args...).WithVerbose(m.verbose)
	res, runErr := runner.Run(ctx)
	if runErr != nil {
		msg := fmt.Sprintf("command failed: %v", runErr)
		if res != nil && len(res.Stderr) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(string(res.Stderr)))
		}
		return failedResult(start, msg), nil
	}

	data, warnings := m.parseOutput(res.Stdout)
	data["exit_status"] = res.ExitStatus

	return models.ModuleResult{
		Success:         true,
		Data:            data,
		Warnings:        warnings,
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}, nil
}

// expandArgs renders each declared argument template against the merged
// parameters. The target is always available as {{.target}}.
func (m *ToolModule) expandArgs(ec models.ExecutionContext) ([]string, error) {
	vars := make(map[string]interface{}, len(ec.Parameters)+1)
	for k, v := range ec.Parameters {
		vars[k] = v
	}
	if _, ok := vars["target"]; !ok {
		vars["target"] = ec.Target
	}

	expanded := make([]string, 0, len(m.execution.Args))
	for _, arg := range m.execution.Args {
		tmpl, err := template.New("arg").Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("error parsing argument %q: %w", arg, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, vars); err != nil {
			return nil, fmt.Errorf("error expanding argument %q: %w", arg, err)
		}
		expanded = append(expanded, buf.String())
	}
	return expanded, nil
}

// parseOutput interprets the tool's stdout according to the declared parse
// mode. Parse problems degrade to warnings with the raw output preserved.
func (m *ToolModule) parseOutput(stdout []byte) (map[string]interface{}, []string) {
	raw := strings.TrimSpace(string(stdout))

	switch m.execution.Parse {
	case "json":
		var value interface{}
		if err := json.Unmarshal(stdout, &value); err != nil {
			return map[string]interface{}{"raw_output": raw},
				[]string{fmt.Sprintf("output is not valid JSON: %v", err)}
		}
		if obj, ok := value.(map[string]interface{}); ok {
			return obj, nil
		}
		return map[string]interface{}{"output": value}, nil

	case "text":
		if m.execution.Pattern == "" {
			return map[string]interface{}{"output": raw}, nil
		}
		re, err := regexp.Compile(m.execution.Pattern)
		if err != nil {
			return map[string]interface{}{"raw_output": raw},
				[]string{fmt.Sprintf("invalid output pattern: %v", err)}
		}
		matches := re.FindStringSubmatch(raw)
		switch {
		case len(matches) > 1:
			return map[string]interface{}{"match": matches[1], "raw_output": raw}, nil
		case len(matches) == 1:
			return map[string]interface{}{"match": matches[0], "raw_output": raw}, nil
		default:
			return map[string]interface{}{"raw_output": raw},
				[]string{fmt.Sprintf("no matches for pattern %q", m.execution.Pattern)}
		}

	default:
		return map[string]interface{}{"output": raw}, nil
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
