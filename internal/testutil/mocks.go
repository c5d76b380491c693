// SPDX-License-Identifier: Apache-2.0

// Package testutil provides module doubles shared by engine and registry
// tests.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/0xbv1/secv/internal/core/models"
)

// MockModule is a testify mock of the module contract. Methods without an
// expectation fall back to permissive defaults, so tests only stub what they
// assert on.
type MockModule struct {
	mock.Mock
	Descriptor models.ModuleDescriptor
}

func (m *MockModule) Metadata() models.ModuleDescriptor {
	if m.hasExpectation("Metadata") {
		args := m.Called()
		return args.Get(0).(models.ModuleDescriptor)
	}
	return m.Descriptor
}

func (m *MockModule) ValidateDependencies(ctx context.Context) error {
	if m.hasExpectation("ValidateDependencies") {
		args := m.Called(ctx)
		return args.Error(0)
	}
	return nil
}

func (m *MockModule) ValidateInputs(params map[string]interface{}) error {
	if m.hasExpectation("ValidateInputs") {
		args := m.Called(params)
		return args.Error(0)
	}
	return nil
}

func (m *MockModule) Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	if m.hasExpectation("Execute") {
		args := m.Called(ctx, ec)
		return args.Get(0).(models.ModuleResult), args.Error(1)
	}
	return models.ModuleResult{Success: true, Data: map[string]interface{}{}}, nil
}

func (m *MockModule) Cleanup() error {
	if m.hasExpectation("Cleanup") {
		args := m.Called()
		return args.Error(0)
	}
	return nil
}

func (m *MockModule) HealthCheck(ctx context.Context) (bool, error) {
	if m.hasExpectation("HealthCheck") {
		args := m.Called(ctx)
		return args.Bool(0), args.Error(1)
	}
	return true, nil
}

func (m *MockModule) hasExpectation(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// StubModule implements the contract with plain functions, for tests that
// need behavior rather than call assertions. Nil functions use the same
// permissive defaults as MockModule.
type StubModule struct {
	Descriptor  models.ModuleDescriptor
	ExecuteFunc func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error)
	CleanupFunc func() error
}

func (s *StubModule) Metadata() models.ModuleDescriptor { return s.Descriptor }

func (s *StubModule) ValidateDependencies(ctx context.Context) error { return nil }

func (s *StubModule) ValidateInputs(params map[string]interface{}) error { return nil }

func (s *StubModule) Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	if s.ExecuteFunc != nil {
		return s.ExecuteFunc(ctx, ec)
	}
	return models.ModuleResult{Success: true, Data: map[string]interface{}{}}, nil
}

func (s *StubModule) Cleanup() error {
	if s.CleanupFunc != nil {
		return s.CleanupFunc()
	}
	return nil
}

func (s *StubModule) HealthCheck(ctx context.Context) (bool, error) { return true, nil }
