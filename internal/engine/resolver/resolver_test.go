// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xbv1/secv/internal/core/models"
)

func contextWithScanResult() *models.ExecutionContext {
	ec := models.NewExecutionContext("10.0.0.5")
	ec.Results["scan"] = models.ModuleResult{
		Success: true,
		Data: map[string]interface{}{
			"open_ports": []int{22, 80},
			"total":      2,
		},
	}
	return ec
}

func TestResolveTarget(t *testing.T) {
	ec := contextWithScanResult()
	resolved, err := Resolve(map[string]interface{}{"host": "${target}"}, ec)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", resolved["host"])
}

func TestResolveResultField(t *testing.T) {
	ec := contextWithScanResult()
	resolved, err := Resolve(map[string]interface{}{"ports": "${results.scan.open_ports}"}, ec)
	require.NoError(t, err)
	assert.Equal(t, []int{22, 80}, resolved["ports"])
}

func TestResolveLiteralPassesThrough(t *testing.T) {
	ec := contextWithScanResult()
	inputs := map[string]interface{}{
		"mode":  "aggressive",
		"count": 3,
		"flag":  true,
	}
	resolved, err := Resolve(inputs, ec)
	require.NoError(t, err)
	assert.Equal(t, inputs, resolved)
}

func TestResolveEmbeddedReferenceIsLiteral(t *testing.T) {
	// Only exact ${...} strings are references; substrings stay verbatim.
	ec := contextWithScanResult()
	resolved, err := Resolve(map[string]interface{}{"note": "scan of ${target} done"}, ec)
	require.NoError(t, err)
	assert.Equal(t, "scan of ${target} done", resolved["note"])
}

func TestResolveMissingModule(t *testing.T) {
	ec := contextWithScanResult()
	_, err := Resolve(map[string]interface{}{"x": "${results.absent.field}"}, ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestResolveMissingField(t *testing.T) {
	ec := contextWithScanResult()
	_, err := Resolve(map[string]interface{}{"x": "${results.scan.closed_ports}"}, ec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed_ports")
}

func TestResolveInvalidPath(t *testing.T) {
	ec := contextWithScanResult()
	for _, path := range []string{"${bogus}", "${results.scan}", "${results.scan.data.deep}", "${}"} {
		_, err := Resolve(map[string]interface{}{"x": path}, ec)
		assert.Error(t, err, "path %s should not resolve", path)
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	ec := contextWithScanResult()
	inputs := map[string]interface{}{"host": "${target}"}

	_, err := Resolve(inputs, ec)
	require.NoError(t, err)
	assert.Equal(t, "${target}", inputs["host"])
}
