package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidSpecs(t *testing.T) {
	out, err := execute(t, "validate", testSpecs)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 interface(s) valid")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", testSpecs)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"Math", "KVStore"}, resp.Data.Interfaces)
}

func TestValidateInvalidSpecs(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", filepath.Join("testdata", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err), "validation failures exit 1")

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string           `json:"code"`
			Details ValidationResult `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E203", resp.Error.Code)
	assert.False(t, resp.Error.Details.Valid)

	var codes []string
	for _, e := range resp.Error.Details.Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"E203", "E208"}, codes)
}

func TestValidateCollectsAcrossInterfaces(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"a.yaml": "name: A\nversions: [\"1.0.0\", \"2.0.0\"]\noperations:\n  - name: f\n    versions: [\"<2.0.0\"]\n",
		"b.yaml": "name: B\nversions: []\noperations: []\n",
	})

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E211: A")
	assert.Contains(t, out, "E202: B")
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(t, "validate", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestValidateReportsDiagnostics(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"a.yaml": "name: A\nversions: [\"1.0.0\"]\noperations:\n  - name: f\n    versions: [\">=2.0.0\"]\n",
	})

	out, err := execute(t, "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 interface(s) valid")
	assert.Contains(t, out, "warning [W201]")
}
