package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JayJeyaruban/arrpc/internal/ir"
)

func TestCompileValidSpecs(t *testing.T) {
	out, err := execute(t, "compile", testSpecs)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 interface(s)")
	assert.Contains(t, out, "Math 2.0.0 (versions 1.0.0, 2.0.0)")
	assert.Contains(t, out, "operations: Add, Mul")
	assert.Contains(t, out, "KVStore 1.1.0")
	assert.Contains(t, out, "operations: Put, Get")
}

func TestCompileValidSpecsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "compile", testSpecs)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Interfaces, 2)

	math := resp.Data.Interfaces[0]
	assert.Equal(t, "Math", math.Name)
	assert.Equal(t, "2.0.0", math.Latest)
	assert.Equal(t, []string{"Add", "Mul"}, math.Operations)
	assert.Equal(t, 1, math.Migrations)
	assert.Len(t, math.Fingerprint, 64)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"math.yaml": mathYAML})
	output := filepath.Join(t.TempDir(), "compiled.json")

	out, err := execute(t, "compile", dir, "--output", output)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote canonical artifacts to "+output)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var compiled ir.Compiled
	require.NoError(t, json.Unmarshal(data, &compiled))
	assert.Equal(t, "Math", compiled.Interface.Name)
	assert.Len(t, compiled.Shapes, 2)

	// The written file is canonical: re-encoding it yields the same bytes.
	again, err := ir.MarshalCanonical(&compiled)
	require.NoError(t, err)
	assert.Equal(t, string(again)+"\n", string(data))
}

func TestCompileMultipleToFileIsArray(t *testing.T) {
	output := filepath.Join(t.TempDir(), "compiled.json")
	_, err := execute(t, "compile", testSpecs, "-o", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var compiled []ir.Compiled
	require.NoError(t, json.Unmarshal(data, &compiled))
	require.Len(t, compiled, 2)
	assert.Equal(t, "Math", compiled[0].Interface.Name)
	assert.Equal(t, "KVStore", compiled[1].Interface.Name)
}

func TestCompileBuildErrors(t *testing.T) {
	out, err := execute(t, "compile", filepath.Join("testdata", "invalid"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "E203: Broken: versions[1]")
	assert.Contains(t, out, "E208: Broken")
}

func TestCompileLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		dir   func(t *testing.T) string
		code  string
		match string
	}{
		{
			name:  "missing directory",
			dir:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") },
			code:  ErrCodeNotFound,
			match: "specs directory not found",
		},
		{
			name:  "no description files",
			dir:   func(t *testing.T) string { return writeSpecs(t, map[string]string{"README.md": "# none"}) },
			code:  ErrCodeNoFiles,
			match: "no CUE or YAML files",
		},
		{
			name: "unparsable description",
			dir: func(t *testing.T) string {
				return writeSpecs(t, map[string]string{"x.yaml": "name: X\nversion: [\"1.0.0\"]\n"})
			},
			code:  ErrCodeInvalidDesc,
			match: "x.yaml",
		},
		{
			name: "duplicate interface",
			dir: func(t *testing.T) string {
				return writeSpecs(t, map[string]string{"a.yaml": mathYAML, "b.yaml": mathYAML})
			},
			code:  ErrCodeDuplicate,
			match: "interface Math declared in both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "compile", tt.dir(t))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Contains(t, out, tt.match)
		})
	}
}

func TestCompileStrictDiagnostics(t *testing.T) {
	dir := writeSpecs(t, map[string]string{"dead.yaml": mathYAML + `
  - name: div
    versions: [">=9.0.0"]
    params:
      - {name: a, type: int}
    returns: int
`})

	out, err := execute(t, "compile", dir)
	require.NoError(t, err, "dead code is only a warning")
	assert.Contains(t, out, "warning [W201]")

	out, err = execute(t, "compile", dir, "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Strict compilation failed")
	assert.Contains(t, out, "W201: Math: operations[2]")
}

const mathYAML = `name: Math
versions: ["1.0.0", "2.0.0"]
operations:
  - name: add
    params:
      - {name: a, type: int}
      - {name: b, type: int}
    returns: int
  - name: mul
    versions: [">=2.0.0"]
    params:
      - {name: a, type: int}
      - {name: b, type: int}
      - {name: round, type: bool}
    returns: int
`
