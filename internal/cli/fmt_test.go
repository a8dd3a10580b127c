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

// loose is car.js with extra spacing the formatter removes.
func loose(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(carScript)
	require.NoError(t, err)
	src := strings.Replace(string(data), "scope({c0_Car:4, c0_Person:4, c0_owner:4});",
		"scope({ c0_Car: 4, c0_Person: 4, c0_owner: 4 });", 1)
	require.NotEqual(t, string(data), src)

	path := filepath.Join(t.TempDir(), "car.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestFmtPrintsCanonicalScript(t *testing.T) {
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), loose(t))
	require.NoError(t, err)
	assert.Equal(t, readFile(t, carScript), out)
}

func TestFmtPrintsCUEAsScript(t *testing.T) {
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), carCUE)
	require.NoError(t, err)
	assert.Equal(t, readFile(t, carScript), out)
}

func TestFmtMultipleFilesAreLabelled(t *testing.T) {
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), carScript, carCUE)
	require.NoError(t, err)
	assert.Contains(t, out, "// "+carScript+"\n")
	assert.Contains(t, out, "// "+carCUE+"\n")
}

func TestFmtCheck(t *testing.T) {
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "--check", carScript)
	require.NoError(t, err)
	assert.Empty(t, out)

	path := loose(t)
	out, err = run(t, NewFmtCommand(&RootOptions{Format: "text"}), "--check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, path+"\n", out)
	assert.NotEqual(t, readFile(t, carScript), readFile(t, path), "--check leaves files alone")
}

func TestFmtWrite(t *testing.T) {
	path := loose(t)
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "-w", path)
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
	assert.Equal(t, readFile(t, carScript), readFile(t, path))

	out, err = run(t, NewFmtCommand(&RootOptions{Format: "text"}), "-w", path)
	require.NoError(t, err)
	assert.Empty(t, out, "formatted files are not rewritten")
}

// commented is car.js with a line comment and a block comment.
func commented(t *testing.T) string {
	t.Helper()
	src := "// fleet model\n" + strings.Replace(readFile(t, carScript),
		"defaultScope(1);", "defaultScope(1); /* solver default */", 1)
	path := filepath.Join(t.TempDir(), "commented.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestFmtWriteKeepsCommentedScripts(t *testing.T) {
	path := commented(t)
	other := loose(t)
	before := readFile(t, path)

	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "-w", other, path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
	assert.Contains(t, out, path)
	assert.Equal(t, before, readFile(t, path))
	assert.NotEqual(t, readFile(t, carScript), readFile(t, other), "no file in the batch is rewritten")
}

func TestFmtCheckReportsCommentedScripts(t *testing.T) {
	path := commented(t)
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "--check", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, path+"\n", out)
}

func TestFmtWriteRejectsCUE(t *testing.T) {
	_, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "--write", carCUE)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFmtWriteAndCheckConflict(t *testing.T) {
	_, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "--write", "--check", carScript)
	require.Error(t, err)
}

func TestFmtInvalidFixture(t *testing.T) {
	path := copyFixture(t, mistakesFile)
	before := readFile(t, path)

	out, err := run(t, NewFmtCommand(&RootOptions{Format: "text"}), "-w", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Validation failed")
	assert.Equal(t, before, readFile(t, path))
}

func TestFmtJSON(t *testing.T) {
	out, err := run(t, NewFmtCommand(&RootOptions{Format: "json"}), loose(t))
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   []FormattedFile `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Changed)
	assert.Equal(t, readFile(t, carScript), resp.Data[0].Source)
}
