package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/persistsql/internal/compiler"
)

var misuseDir = filepath.Join("testdata", "misuse")

func TestCheck_Valid(t *testing.T) {
	out, err := execute(t, "--format", "text", "check", storeDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 3 of 4 query pipeline(s) accepted, 0 skipped")
}

func TestCheck_ValidJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "check", storeDir)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 4, resp.Data.Pipelines)
	assert.Equal(t, 3, resp.Data.Accepted)
	assert.Empty(t, resp.Data.Diagnostics)
}

func TestCheck_Misuse(t *testing.T) {
	out, err := execute(t, "--format", "text", "check", misuseDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "main.bal:3:")
	assert.Contains(t, out, "ERROR ["+compiler.CodeTargetTypeOnly+"]")
	assert.Contains(t, out, "✗ 1 error(s), 1 of 2 query pipeline(s) accepted")
}

func TestCheck_MisuseJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "check", misuseDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string      `json:"status"`
		Data   CheckResult `json:"data"`
		Error  *CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.CodeTargetTypeOnly, resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Diagnostics, 1)
	assert.Equal(t, 3, resp.Data.Diagnostics[0].Location.Line)
}

func TestCheck_NonExistentDirectory(t *testing.T) {
	out, err := execute(t, "--format", "text", "check", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, out, "Error [E005]")
}

func TestCheck_EmptyDirectory(t *testing.T) {
	_, err := execute(t, "--format", "text", "check", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

func TestCheck_MultipleLoadErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("project: {"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte("project: ]"), 0o644))

	out, err := execute(t, "--format", "text", "check", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Loading failed with 2 error(s)")
	assert.Contains(t, err.Error(), "loading failed with 2 error(s)")
}

func TestCheck_FormatFromConfig(t *testing.T) {
	dir := t.TempDir()
	copyTree(t, storeDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persistsql.yaml"), []byte("output: json\n"), 0o644))

	out, err := execute(t, "check", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestCheck_BadConfig(t *testing.T) {
	dir := t.TempDir()
	copyTree(t, storeDir, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "persistsql.yaml"), []byte("colour: red\n"), 0o644))

	out, err := execute(t, "--format", "text", "check", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "loading configuration")
}

// copyTree copies the regular files under src to dst.
func copyTree(t *testing.T, src, dst string) {
	t.Helper()
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	require.NoError(t, err)
}
