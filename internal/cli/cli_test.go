package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/app_registry/internal/app/domain/application"
)

const seedDoc = `[
  {"appName": "appOne", "appData": {"appPath": "/appSix", "appOwner": "Osman", "isValid": true}},
  {"appName": "appTwo", "appData": {"appPath": "/appTwo", "appOwner": "Emirates", "isValid": false}},
  {"appName": "appThree", "appData": {"appPath": "/appThree", "appOwner": "osmanx", "isValid": true}}
]
`

func writeDoc(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apps.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, dataFile string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "file")
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--data-file", dataFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeApps(t *testing.T, out string) []application.Application {
	t.Helper()
	var apps []application.Application
	require.NoError(t, json.Unmarshal([]byte(out), &apps))
	return apps
}

func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"config", "storage", "data-file", "format", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	for _, sub := range []string{"list", "get", "search", "update", "delete", "validate", "seed"} {
		found, _, err := cmd.Find([]string{sub})
		require.NoError(t, err)
		assert.Equal(t, sub, found.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := run(t, writeDoc(t, seedDoc), "--format", "xml", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListPrintsIndentedJSON(t *testing.T) {
	out, _, err := run(t, writeDoc(t, seedDoc), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  {\n    \"appName\": \"appOne\"")

	apps := decodeApps(t, out)
	require.Len(t, apps, 3)
	assert.Equal(t, "appOne", apps[0].AppName)
	assert.Equal(t, "appThree", apps[2].AppName)
}

func TestListText(t *testing.T) {
	out, _, err := run(t, writeDoc(t, seedDoc), "--format", "text", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "appTwo")
	assert.Contains(t, out, "Emirates")
}

func TestGet(t *testing.T) {
	path := writeDoc(t, seedDoc)

	out, _, err := run(t, path, "get", "appTwo")
	require.NoError(t, err)
	var app application.Application
	require.NoError(t, json.Unmarshal([]byte(out), &app))
	assert.Equal(t, "/appTwo", app.AppData.AppPath)

	_, _, err = run(t, path, "get", "apptwo")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSearch(t *testing.T) {
	path := writeDoc(t, seedDoc)

	out, _, err := run(t, path, "search", "--owner", "OSMAN", "--valid", "true")
	require.NoError(t, err)
	apps := decodeApps(t, out)
	require.Len(t, apps, 2)
	assert.Equal(t, "appOne", apps[0].AppName)
	assert.Equal(t, "appThree", apps[1].AppName)

	out, _, err = run(t, path, "search", "--valid", "false")
	require.NoError(t, err)
	apps = decodeApps(t, out)
	require.Len(t, apps, 1)
	assert.Equal(t, "appTwo", apps[0].AppName)

	out, _, err = run(t, path, "search", "--name", "nothing")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestUpdatePersists(t *testing.T) {
	path := writeDoc(t, seedDoc)

	_, _, err := run(t, path, "update", "appTwo", "--valid", "true")
	require.NoError(t, err)

	out, _, err := run(t, path, "get", "appTwo")
	require.NoError(t, err)
	var app application.Application
	require.NoError(t, json.Unmarshal([]byte(out), &app))
	assert.True(t, app.AppData.IsValid)
	assert.Equal(t, "Emirates", app.AppData.AppOwner)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	path := writeDoc(t, seedDoc)

	_, _, err := run(t, path, "update", "appTwo")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = run(t, path, "update", "appTwo", "--valid", "maybe")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = run(t, path, "update", "ghost", "--owner", "x")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestDelete(t *testing.T) {
	path := writeDoc(t, seedDoc)

	_, _, err := run(t, path, "delete", "appOne")
	require.NoError(t, err)

	_, _, err = run(t, path, "delete", "appOne")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, _, err := run(t, path, "list")
	require.NoError(t, err)
	assert.Len(t, decodeApps(t, out), 2)
}

func TestValidate(t *testing.T) {
	out, _, err := run(t, writeDoc(t, seedDoc), "validate")
	require.NoError(t, err)
	var report ValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Findings)

	bad := `[
  {"appName": "a", "appData": {"appPath": "/a", "appOwner": "o", "isValid": true}},
  {"appName": "a", "appData": {"appPath": "/b", "appOwner": "o", "isValid": true}}
]`
	out, _, err = run(t, writeDoc(t, bad), "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, 1, report.Findings[0].Index)
}

func TestValidateMissingDocument(t *testing.T) {
	_, _, err := run(t, filepath.Join(t.TempDir(), "missing.json"), "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeed(t *testing.T) {
	source := writeDoc(t, seedDoc)
	target := filepath.Join(t.TempDir(), "apps.json")

	out, _, err := run(t, target, "--format", "text", "seed", source)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 applications")

	out, _, err = run(t, target, "list")
	require.NoError(t, err)
	assert.Len(t, decodeApps(t, out), 3)

	_, _, err = run(t, target, "seed", source)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, _, err = run(t, target, "seed", "--force", source)
	assert.NoError(t, err)
}

func TestSeedRejectsInvalidDocument(t *testing.T) {
	source := writeDoc(t, `[{"appName": "a", "appData": {"appPath": "/a", "isValid": "yes"}}]`)
	target := filepath.Join(t.TempDir(), "apps.json")

	out, _, err := run(t, target, "seed", source)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"valid": false`)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestSeedForceReplacesCorruptDocument(t *testing.T) {
	source := writeDoc(t, seedDoc)
	target := writeDoc(t, `[{"appName": "a"`)

	_, _, err := run(t, target, "seed", source)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = run(t, target, "seed", "--force", source)
	require.NoError(t, err)

	out, _, err := run(t, target, "list")
	require.NoError(t, err)
	assert.Len(t, decodeApps(t, out), 3)
}

func TestSeedRejectsNullDocument(t *testing.T) {
	source := writeDoc(t, "null\n")
	target := filepath.Join(t.TempDir(), "apps.json")

	out, _, err := run(t, target, "seed", source)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"valid": false`)
}

func TestValidateNullDocument(t *testing.T) {
	out, _, err := run(t, writeDoc(t, "null"), "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	var report ValidationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, -1, report.Findings[0].Index)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	wrapped := WrapExitError(ExitCommandError, "open", assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, "open: "+assert.AnError.Error(), wrapped.Error())
}
