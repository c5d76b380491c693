// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xbv1/secv/internal/core/models"
	"github.com/0xbv1/secv/internal/core/module"
	"github.com/0xbv1/secv/internal/core/registry"
	"github.com/0xbv1/secv/internal/core/secverr"
	"github.com/0xbv1/secv/internal/modules/netscan"
	"github.com/0xbv1/secv/internal/testutil"
)

// validatingStub keeps the real descriptor-driven input validation of Base
// while substituting the execution.
type validatingStub struct {
	module.Base
	executeFunc func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error)
}

func (s *validatingStub) Execute(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	return s.executeFunc(ctx, ec)
}

func newStub(name string, execute func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error)) *testutil.StubModule {
	return &testutil.StubModule{
		Descriptor:  models.ModuleDescriptor{Name: name, Version: "1.0.0", Category: "test"},
		ExecuteFunc: execute,
	}
}

func succeedWith(data map[string]interface{}) func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	return func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
		if data == nil {
			data = map[string]interface{}{}
		}
		return models.ModuleResult{Success: true, Data: data}, nil
	}
}

func failWith(msg string) func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
	return func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
		return models.ModuleResult{Success: false, Errors: []string{msg}}, nil
	}
}

func buildRegistry(t *testing.T, mods ...*testutil.StubModule) *registry.Registry {
	t.Helper()
	reg := registry.New(false)
	for _, m := range mods {
		require.NoError(t, reg.Register(m))
	}
	return reg
}

func TestRunStopPolicyAbortsRun(t *testing.T) {
	var secondRan atomic.Bool

	reg := buildRegistry(t,
		newStub("first", failWith("boom")),
		newStub("second", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			secondRan.Store(true)
			return models.ModuleResult{Success: true}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "stop-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "first", OnError: models.ErrorAction{Kind: models.ErrorActionStop}},
			{Name: "b", Module: "second"},
		},
	}

	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.Error(t, err)

	var werr *secverr.WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 1, werr.StepIndex)
	assert.Equal(t, "a", werr.StepName)
	assert.Contains(t, werr.Reason, "boom")
	assert.False(t, secondRan.Load(), "step after a stop failure must not run")
}

func TestRunContinuePolicyKeepsGoing(t *testing.T) {
	reg := buildRegistry(t,
		newStub("flaky", failWith("down")),
		newStub("steady", succeedWith(map[string]interface{}{"done": true})),
	)

	wf := &models.WorkflowDefinition{
		Name: "continue-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "flaky", OnError: models.ErrorAction{Kind: models.ErrorActionContinue}},
			{Name: "b", Module: "steady"},
		},
	}

	results, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)

	require.Contains(t, results, "flaky")
	assert.False(t, results["flaky"].Success)
	assert.Contains(t, results["flaky"].Errors, "down")

	require.Contains(t, results, "steady")
	assert.True(t, results["steady"].Success)
}

func TestRunRetrySucceedsOnLaterAttempt(t *testing.T) {
	var calls atomic.Int32
	reg := buildRegistry(t,
		newStub("eventually", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			if calls.Add(1) < 3 {
				return models.ModuleResult{Success: false, Errors: []string{"not yet"}}, nil
			}
			return models.ModuleResult{Success: true}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "retry-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "eventually", OnError: models.ErrorAction{Kind: models.ErrorActionRetry, MaxAttempts: 3}},
		},
	}

	results, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, results["eventually"].Success)
}

func TestRunRetryExhaustedContinues(t *testing.T) {
	var calls atomic.Int32
	reg := buildRegistry(t,
		newStub("hopeless", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			calls.Add(1)
			return models.ModuleResult{Success: false, Errors: []string{"never"}}, nil
		}),
		newStub("after", succeedWith(nil)),
	)

	wf := &models.WorkflowDefinition{
		Name: "retry-exhausted",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "hopeless", OnError: models.ErrorAction{Kind: models.ErrorActionRetry, MaxAttempts: 2}},
			{Name: "b", Module: "after"},
		},
	}

	results, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, results["hopeless"].Success)
	assert.True(t, results["after"].Success)
}

func TestRunStepTimeout(t *testing.T) {
	reg := buildRegistry(t,
		newStub("slow", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			select {
			case <-time.After(3 * time.Second):
				return models.ModuleResult{Success: true}, nil
			case <-ctx.Done():
				return models.ModuleResult{Success: false}, ctx.Err()
			}
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "timeout-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "slow", TimeoutSeconds: 1, OnError: models.ErrorAction{Kind: models.ErrorActionStop}},
		},
	}

	start := time.Now()
	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	elapsed := time.Since(start)

	require.Error(t, err)
	var werr *secverr.WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Contains(t, werr.Reason, "timed out")
	assert.Less(t, elapsed, 2500*time.Millisecond, "engine must stop waiting at the deadline")
}

func TestRunBackReferenceChaining(t *testing.T) {
	var observed interface{}
	reg := buildRegistry(t,
		newStub("scan", succeedWith(map[string]interface{}{"open_ports": []int{22, 80}})),
		newStub("report", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			observed = ec.Parameters["ports"]
			return models.ModuleResult{Success: true}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "chain-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "scan"},
			{Name: "b", Module: "report", Inputs: map[string]interface{}{
				"ports": "${results.scan.open_ports}",
				"host":  "${target}",
			}},
		},
	}

	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []int{22, 80}, observed)
}

func TestRunUnresolvedReferenceAborts(t *testing.T) {
	reg := buildRegistry(t, newStub("report", succeedWith(nil)))

	wf := &models.WorkflowDefinition{
		Name: "bad-ref",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "report", Inputs: map[string]interface{}{
				"ports": "${results.never_ran.open_ports}",
			}},
		},
	}

	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.Error(t, err)

	var werr *secverr.WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "unresolved back-reference", werr.Reason)
}

func TestRunUnknownModuleAborts(t *testing.T) {
	reg := buildRegistry(t)

	wf := &models.WorkflowDefinition{
		Name: "missing-module",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "ghost"},
		},
	}

	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.Error(t, err)

	var nferr *secverr.ModuleNotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "ghost", nferr.Name)
}

func TestRunGlobalSettingsSeedParameters(t *testing.T) {
	var observed interface{}
	reg := buildRegistry(t,
		newStub("probe", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			observed = ec.Parameters["rate_limit"]
			return models.ModuleResult{Success: true}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name:           "globals-test",
		GlobalSettings: map[string]interface{}{"rate_limit": 10},
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "probe"},
		},
	}

	_, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 10, observed)
}

func TestRunReinvokedModuleOverwritesResult(t *testing.T) {
	var calls atomic.Int32
	reg := buildRegistry(t,
		newStub("counter", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			return models.ModuleResult{
				Success: true,
				Data:    map[string]interface{}{"call": calls.Add(1)},
			}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "overwrite-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "counter"},
			{Name: "b", Module: "counter"},
		},
	}

	results, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(2), results["counter"].Data["call"])
}

func TestRunCleanupErrorIsNotFatal(t *testing.T) {
	mod := newStub("messy", succeedWith(nil))
	mod.CleanupFunc = func() error { return assert.AnError }
	reg := buildRegistry(t, mod)

	wf := &models.WorkflowDefinition{
		Name: "cleanup-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "messy"},
		},
	}

	results, err := New(reg, Options{}).Run(context.Background(), wf, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, results["messy"].Success)
}

func TestLoadWorkflowYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	yamlDoc := `name: recon
steps:
  - name: scan
    module: network_scanner
    inputs:
      ports: "1-1024"
    on_error:
      retry: 2
    timeout_seconds: 60
`
	jsonDoc := `{
  "name": "recon",
  "steps": [
    {
      "name": "scan",
      "module": "network_scanner",
      "inputs": {"ports": "1-1024"},
      "on_error": {"retry": 2},
      "timeout_seconds": 60
    }
  ]
}`

	yamlPath := filepath.Join(dir, "recon.yaml")
	jsonPath := filepath.Join(dir, "recon.json")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o644))
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDoc), 0o644))

	eng := New(registry.New(false), Options{})

	fromYAML, err := eng.LoadWorkflow(yamlPath)
	require.NoError(t, err)
	fromJSON, err := eng.LoadWorkflow(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromJSON, "equivalent YAML and JSON must load identically")
	require.Len(t, fromYAML.Steps, 1)
	assert.Equal(t, models.ErrorActionRetry, fromYAML.Steps[0].OnError.Kind)
	assert.Equal(t, 2, fromYAML.Steps[0].OnError.MaxAttempts)
	assert.Equal(t, 60, fromYAML.Steps[0].TimeoutSeconds)
}

func TestRunShippedReconWorkflow(t *testing.T) {
	eng := New(registry.New(false), Options{})

	fromYAML, err := eng.LoadWorkflow("../../examples/workflows/recon.yaml")
	require.NoError(t, err)
	fromJSON, err := eng.LoadWorkflow("../../examples/workflows/recon.json")
	require.NoError(t, err)
	assert.Equal(t, fromYAML, fromJSON, "the two shipped serializations must stay equivalent")

	scanner := &validatingStub{
		Base: module.Base{Descriptor: netscan.New(false).Metadata()},
		executeFunc: func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			assert.Equal(t, "10.0.0.9", ec.Parameters["target"], "the scan step must receive the run target")
			assert.Equal(t, "1-1024", ec.Parameters["ports"], "global_settings must seed the port range")
			return models.ModuleResult{
				Success: true,
				Data:    map[string]interface{}{"open_ports": []int{22, 80}},
			}, nil
		},
	}

	var bannerTarget, bannerPorts interface{}
	banner := newStub("banner_grabber", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
		bannerTarget = ec.Parameters["target"]
		bannerPorts = ec.Parameters["ports"]
		return models.ModuleResult{Success: true}, nil
	})

	reg := registry.New(false)
	require.NoError(t, reg.Register(scanner))
	require.NoError(t, reg.Register(banner))

	results, err := New(reg, Options{}).Run(context.Background(), fromYAML, "10.0.0.9")
	require.NoError(t, err)

	require.Contains(t, results, "network_scanner")
	assert.True(t, results["network_scanner"].Success)
	require.Contains(t, results, "banner_grabber")
	assert.True(t, results["banner_grabber"].Success)

	assert.Equal(t, "10.0.0.9", bannerTarget)
	assert.Equal(t, []int{22, 80}, bannerPorts, "open_ports must chain into the second step")
}

func TestRunCancellationIsNotReportedAsTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	reg := buildRegistry(t,
		newStub("stuck", func(ctx context.Context, ec models.ExecutionContext) (models.ModuleResult, error) {
			<-block
			return models.ModuleResult{Success: true}, nil
		}),
	)

	wf := &models.WorkflowDefinition{
		Name: "cancel-test",
		Steps: []models.WorkflowStep{
			{Name: "a", Module: "stuck", TimeoutSeconds: 30, OnError: models.ErrorAction{Kind: models.ErrorActionStop}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := New(reg, Options{}).Run(ctx, wf, "10.0.0.1")
	require.Error(t, err)

	var werr *secverr.WorkflowError
	require.ErrorAs(t, err, &werr)
	assert.Contains(t, werr.Reason, "cancelled")
	assert.NotContains(t, werr.Reason, "timed out")
}

func TestLoadWorkflowRejectsEmpty(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: hollow\nsteps: []\n"), 0o644))

	_, err := New(registry.New(false), Options{}).LoadWorkflow(path)
	assert.Error(t, err)
}
