package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: smoke_report
description: one report appends and both chains verify
setup:
  - op: project.add
    args:
      project_id: bridge-a12
      name: Bridge A12
      actor_id: admin-1
flow:
  - op: progress.report
    args:
      project_id: bridge-a12
      report_date: "2024-05-30"
      reported_percent: "25"
      reported_by: engineer-7
assertions:
  - type: chain_valid
    scope: progress/bridge-a12
  - type: chain_valid
    scope: audit/global
`

const failingScenario = `name: wrong_count
description: expects rows that were never written
flow:
  - op: audit.log
    args:
      actor_id: ops-1
      action: USER_LOGIN
      entity_type: user
      entity_id: ops-1
assertions:
  - type: record_count
    table: audit_logs
    count: 5
`

// writeScenarios drops the given named scenarios into a fresh dir.
func writeScenarios(t *testing.T, scenarios map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range scenarios {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestConformance_AllPass(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"smoke.yaml": passingScenario})

	out := mustRunCLI(t, "conformance", dir)
	assert.Contains(t, out, "✓ smoke_report")
	assert.Contains(t, out, "Passed: 1  Failed: 0  Total: 1")
}

func TestConformance_FailureExitsOne(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"smoke.yaml": passingScenario,
		"wrong.yaml": failingScenario,
	})

	out, err := runCLI(t, "conformance", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ smoke_report")
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "record_count")
	assert.Contains(t, out, "Passed: 1  Failed: 1  Total: 2")
}

func TestConformance_JSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"smoke.yaml": passingScenario})

	out := mustRunCLI(t, "--output", "json", "conformance", dir)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	suite, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data should be a suite summary")
	assert.Equal(t, float64(1), suite["total"])
	assert.Equal(t, float64(1), suite["passed"])
	assert.Equal(t, float64(0), suite["failed"])
}

func TestConformance_JSONFailure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"wrong.yaml": failingScenario})

	out, err := runCLI(t, "--output", "json", "conformance", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFORMANCE", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "1 of 1 scenario(s) failed")
}

func TestConformance_MissingDir(t *testing.T) {
	_, err := runCLI(t, "conformance", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario directory")
}

func TestConformance_EmptyDir(t *testing.T) {
	_, err := runCLI(t, "conformance", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no scenario files")
}
