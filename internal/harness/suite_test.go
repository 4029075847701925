package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("testdata", "scenarios")

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios(scenariosDir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(scenariosDir, "abandoned.yaml"),
		filepath.Join(scenariosDir, "misuse.yaml"),
		filepath.Join(scenariosDir, "store_pushdown.yaml"),
	}, files)

	files, err = FindScenarios(scenariosDir, "store_*")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(scenariosDir, "store_pushdown.yaml")}, files)
}

func TestFindScenarios_Nested(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0755))
	for _, name := range []string{"top.yml", "a/b/deep.yaml", "a/notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte("name: x\n"), 0644))
	}

	files, err := FindScenarios(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a", "b", "deep.yaml"),
		filepath.Join(dir, "top.yml"),
	}, files)
}

func TestFindScenarios_Errors(t *testing.T) {
	_, err := FindScenarios("testdata/nowhere", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario directory not found")

	_, err = FindScenarios(filepath.Join(scenariosDir, "misuse.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, err = FindScenarios(scenariosDir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestRunSuite(t *testing.T) {
	result, err := RunSuite(scenariosDir, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Scenarios, 3)
	assert.Equal(t, "abandoned", result.Scenarios[0].Name)
	for _, sr := range result.Scenarios {
		assert.True(t, sr.Pass, "%s: %v", sr.Name, sr.Errors)
	}
}

func TestRunSuite_Failures(t *testing.T) {
	dir := t.TempDir()
	store, err := filepath.Abs(manifests("store"))
	require.NoError(t, err)

	failing := "name: failing\ndescription: d\nmanifests: " + store + "\n" +
		"assertions: [{type: event_count, event: rewrite, count: 9}]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "failing.yaml"), []byte(failing), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [\n"), 0644))

	result, err := RunSuite(dir, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 0, result.Passed)
	assert.Equal(t, 2, result.Failed)

	broken := result.Scenarios[0]
	assert.Equal(t, "broken", broken.Name)
	assert.Contains(t, broken.Errors[0], "failed to load scenario")

	failed := result.Scenarios[1]
	assert.Equal(t, "failing", failed.Name)
	require.Len(t, failed.Errors, 1)
	assert.Contains(t, failed.Errors[0], "9 rewrite event(s)")
}
