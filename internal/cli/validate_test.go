package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/clafer/internal/script"
)

const (
	validDir     = "testdata/valid"
	carScript    = "testdata/valid/car.js"
	carCUE       = "testdata/valid/car.cue"
	mistakesFile = "testdata/invalid/mistakes.js"
)

// run executes cmd with args and returns what it wrote to stdout.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// copyFixture copies a testdata fixture into a temp dir and returns its path.
func copyFixture(t *testing.T, src string) string {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(t.TempDir(), filepath.Base(src))
	require.NoError(t, os.WriteFile(dst, data, 0o644))
	return dst
}

func TestValidateValidFixtures(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), validDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All fixtures valid (2 file(s))")
}

func TestValidateValidFixturesJSON(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "json"}), carScript, carCUE)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 2)
	assert.Equal(t, "car", resp.Data.Files[0].Fixture)
	assert.Equal(t, "car", resp.Data.Files[1].Fixture)
}

func TestValidateNonExistentPath(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "path not found")
}

func TestValidateEmptyDirectory(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no fixture files found")
}

func TestValidateReportsEveryError(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), mistakesFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 4 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, mistakesFile)
	assert.Contains(t, out, "line 2: E103")
	assert.Contains(t, out, "line 3: E101")
}

func TestValidateReportsEveryErrorJSON(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "json"}), mistakesFile)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E103", resp.Error.Code)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Files, 1)

	var codes []string
	for _, e := range resp.Data.Files[0].Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{"E103", "E101", "E102", "E102"}, codes)
}

func TestValidateFailFast(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text", LoadMode: "failfast"}), mistakesFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Contains(t, out, "E103")
	assert.NotContains(t, out, "E101")
}

func TestValidateMixedInputs(t *testing.T) {
	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), carScript, mistakesFile)
	require.Error(t, err)
	assert.NotContains(t, out, carScript, "valid files are not listed")
	assert.Contains(t, out, mistakesFile)
}

func TestValidateSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.js")
	require.NoError(t, os.WriteFile(path, []byte("c0_Car = Clafer(\"c0_Car\"\n"), 0o644))

	out, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeParseFailed)
}

func TestValidateMissingArgs(t *testing.T) {
	_, err := run(t, NewValidateCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestCollectFixtureFiles(t *testing.T) {
	files, err := CollectFixtureFiles([]string{validDir, mistakesFile})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(validDir, "car.cue"),
		filepath.Join(validDir, "car.js"),
		mistakesFile,
	}, files)
}

func TestLoadFixture(t *testing.T) {
	loaded := LoadFixture(carScript, script.LoadModeCollectAll)
	require.True(t, loaded.Valid())
	assert.Equal(t, "car", loaded.Fixture.Name)

	missing := LoadFixture("testdata/valid/nope.js", script.LoadModeCollectAll)
	assert.False(t, missing.Valid())
	require.Len(t, missing.Errors, 1)
	assert.Equal(t, ErrCodeNotFound, missing.Errors[0].Code)
}
