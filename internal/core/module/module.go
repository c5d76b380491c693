// SPDX-License-Identifier: Apache-2.0

// Package module defines the contract every SecV module implements and the
// generic definition-backed module the registry constructs during discovery.
package module

import (
	"context"
	"fmt"
	"regexp"

	"github.com/0xbv1/secv/internal/core/cmdexec"
	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/secverr"
)

// Module is the capability interface of a SecV module. Execute is the only
// operation permitted to perform externally observable side effects; all
// failures map onto the secverr taxonomy. Instances are shared read-mostly
// between concurrent runs and must be safe for concurrent invocation.
type Module interface {
	// Metadata returns the module's descriptor. Pure.
	Metadata() models.ModuleDescriptor

	// ValidateDependencies checks that every declared dependency is
	// resolvable in the runtime environment. May probe subprocess paths;
	// must not mutate shared state.
	ValidateDependencies(ctx context.Context) error

	// ValidateInputs checks the given parameters against the declared input
	// specs. It reads only the passed-in mapping, never the execution
	// context itself.
	ValidateInputs(params map[string]interface{}) error

	// Execute performs the module's work against a context snapshot and
	// returns its result. Implementations should report tool-level failures
	// through a failed result rather than an error.
	Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error)

	// Cleanup tears down anything left behind by Execute. Failures are
	// reported by callers, never fatal.
	Cleanup() error

	// HealthCheck reports liveness. The default delegates to
	// ValidateDependencies.
	HealthCheck(ctx context.Context) (bool, error)
}

// Base supplies default behavior for the optional parts of the contract so
// concrete modules override only what they need.
type Base struct {
	Descriptor models.ModuleDescriptor
}

// Metadata returns the descriptor the module was constructed with.
func (b *Base) Metadata() models.ModuleDescriptor {
	return b.Descriptor
}

// ValidateDependencies probes the search path for every declared dependency
// and fails on the first miss.
func (b *Base) ValidateDependencies(ctx context.Context) error {
	for _, dep := range b.Descriptor.Dependencies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cmdexec.LookPath(dep); err != nil {
			return &secverr.DependencyMissingError{Module: b.Descriptor.Name, Dependency: dep}
		}
	}
	return nil
}

// ValidateInputs enforces required presence, then the declared validation
// pattern on string values. It does not apply defaults; see ApplyDefaults.
func (b *Base) ValidateInputs(params map[string]interface{}) error {
	for name, spec := range b.Descriptor.Inputs {
		value, present := params[name]
		if !present {
			if spec.Required {
				return &secverr.ValidationError{
					Module: b.Descriptor.Name,
					Field:  name,
					Reason: "required input is missing",
				}
			}
			continue
		}

		if spec.ValidationRegex == "" {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		re, err := regexp.Compile(spec.ValidationRegex)
		if err != nil {
			return &secverr.ValidationError{
				Module: b.Descriptor.Name,
				Field:  name,
				Reason: fmt.Sprintf("invalid validation pattern: %v", err),
			}
		}
		if !re.MatchString(str) {
			return &secverr.ValidationError{
				Module: b.Descriptor.Name,
				Field:  name,
				Reason: fmt.Sprintf("value %q does not match pattern %q", str, spec.ValidationRegex),
			}
		}
	}
	return nil
}

// Cleanup is a no-op by default.
func (b *Base) Cleanup() error { return nil }

// HealthCheck delegates to the default dependency probe.
func (b *Base) HealthCheck(ctx context.Context) (bool, error) {
	if err := b.ValidateDependencies(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyDefaults fills params in place with the declared default of every
// absent input that has one. Callers run this before ValidateInputs so a
// defaulted required input passes validation.
func ApplyDefaults(desc models.ModuleDescriptor, params map[string]interface{}) {
	for name, spec := range desc.Inputs {
		if spec.DefaultValue == nil {
			continue
		}
		if _, present := params[name]; !present {
			params[name] = *spec.DefaultValue
		}
	}
}

// StringParam reads a string parameter, falling back to the given default
// when the key is absent or not a string.
func StringParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
