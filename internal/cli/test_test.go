package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

// writeScenario writes a scenario for the car fixture into a fresh
// scenarios directory and returns that directory.
func writeScenario(t *testing.T, name, body string) string {
	t.Helper()
	fixture, err := filepath.Abs(carScript)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "name: " + name + "\ndescription: car\nfixture: " + fixture + "\n" + body
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644))
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := run(t, NewTestCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := run(t, NewTestCommand(&RootOptions{Format: "json"}), t.TempDir())
	require.NoError(t, err)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ car\n")
	assert.Contains(t, out, "✓ mistakes\n")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilterJSON(t *testing.T) {
	out, err := run(t, NewTestCommand(&RootOptions{Format: "json"}), "--filter", "mistakes*", harnessScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.True(t, strings.HasPrefix(s.Name, "mistakes"), s.Name)
		assert.Equal(t, "E103", s.Codes[0])
	}
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := writeScenario(t, "wrong", "expect:\n  valid: true\n  statements: 9\n")

	out, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandGoldenUpdateAndCompare(t *testing.T) {
	dir := writeScenario(t, "golden_car", "expect:\n  valid: true\ngolden: true\n")
	goldenDir := filepath.Join(t.TempDir(), "golden")
	opts := &RootOptions{Format: "text", GoldenDir: goldenDir}

	// Missing golden file fails.
	_, err := run(t, NewTestCommand(opts), dir)
	require.Error(t, err)

	out, err := run(t, NewTestCommand(opts), "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ golden_car (golden updated)")
	assert.Equal(t, readFile(t, carScript), readFile(t, filepath.Join(goldenDir, "golden_car.golden")))

	_, err = run(t, NewTestCommand(opts), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "golden_car.golden"), []byte("stale\n"), 0o644))
	out, err = run(t, NewTestCommand(opts), dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandDefaultGoldenDir(t *testing.T) {
	dir := writeScenario(t, "beside", "expect:\n  valid: true\ngolden: true\n")

	_, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), "--update", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(filepath.Dir(dir), "golden", "beside.golden"))
}

func TestTestHelpText(t *testing.T) {
	out, err := run(t, NewTestCommand(&RootOptions{Format: "text"}), "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "scenarios")
	assert.Contains(t, out, "--update")
	assert.Contains(t, out, "--filter")
	assert.Contains(t, out, "scenarios-dir")
}

func TestFindScenarioFiles(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test1.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "test2.yml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "ignore.txt"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindScenarioFilesWithFilter(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "car-valid.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "car-cue.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "dimension.yaml"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "car-*")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	for _, f := range files {
		assert.True(t, strings.HasPrefix(filepath.Base(f), "car-"), f)
	}
}

func TestFindScenarioFilesSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.yaml"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.yaml"), []byte(""), 0o644))

	files, err := findScenarioFiles(tmpDir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
