package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendsAuditRecord(t *testing.T) {
	db := testDB(t)

	out := mustRunCLI(t, "--db", db, "log",
		"--action", "APPROVE_BUDGET",
		"--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--detail-json", `{"amount":125000.50,"currency":"EUR"}`,
		"--actor", "admin-1")
	assert.Contains(t, out, "Audit record appended")
	assert.Contains(t, out, "APPROVE_BUDGET")
	assert.Contains(t, out, "seq 1")

	out = mustRunCLI(t, "--db", db, "verify", "--audit")
	assert.Contains(t, out, "Chain valid")
	assert.Contains(t, out, "Records checked: 1")
}

func TestLog_ChainsRecords(t *testing.T) {
	db := testDB(t)

	mustRunCLI(t, "--db", db, "log",
		"--action", "APPROVE_BUDGET", "--entity-type", "project",
		"--entity-id", "bridge-a12", "--actor", "admin-1")
	out := mustRunCLI(t, "--db", db, "log",
		"--action", "SUSPEND_USER", "--entity-type", "user",
		"--entity-id", "u-204", "--actor", "admin-1")
	assert.Contains(t, out, "seq 2")
}

func TestLog_JSONOutput(t *testing.T) {
	db := testDB(t)

	out := mustRunCLI(t, "--db", db, "--output", "json", "log",
		"--action", "APPROVE_BUDGET", "--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--detail-json", `{"amount":125000.50}`,
		"--actor", "admin-1")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	rec, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "APPROVE_BUDGET", rec["action"])
	assert.Equal(t, "", rec["prev_hash"])
	assert.Len(t, rec["record_hash"], 64)

	detail, ok := rec["detail"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 125000.5, detail["amount"])
}

func TestLog_MalformedDetailJSON(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "log",
		"--action", "APPROVE_BUDGET", "--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--detail-json", `{broken`,
		"--actor", "admin-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --detail-json")
}

func TestLog_NullDetailValueRejected(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "log",
		"--action", "APPROVE_BUDGET", "--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--detail-json", `{"note":null}`,
		"--actor", "admin-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --detail-json")
}

func TestLog_DetailMustBeObject(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "log",
		"--action", "APPROVE_BUDGET", "--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--detail-json", `["not","an","object"]`,
		"--actor", "admin-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --detail-json")
}

func TestLog_EmptyActionRejected(t *testing.T) {
	db := testDB(t)

	// Setting the flag to an empty string satisfies cobra but not the
	// ledger, which rejects it as a domain error.
	out, err := runCLI(t, "--db", db, "log",
		"--action", "",
		"--entity-type", "project",
		"--entity-id", "bridge-a12",
		"--actor", "admin-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION]")
}
