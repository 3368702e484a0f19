package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command against the given args and returns
// captured stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

// testDB returns a database path inside a per-test temp dir.
func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// mustRunCLI executes a command that is expected to succeed.
func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "command %v failed, output: %s", args, out)
	return out
}

// tamperRow mutates the database behind the CLI's back. The sqlite3
// driver is registered by the store package.
func tamperRow(t *testing.T, dbPath, query string, args ...any) {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	res, err := db.Exec(query, args...)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "tamper should hit exactly one row")
}

func TestProjectAddAndList(t *testing.T) {
	db := testDB(t)

	out := mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")
	assert.Contains(t, out, "Project registered")
	assert.Contains(t, out, "bridge-a12")

	out = mustRunCLI(t, "--db", db, "project", "list")
	assert.Contains(t, out, "bridge-a12")
	assert.Contains(t, out, "North Bridge")
}

func TestProjectList_Empty(t *testing.T) {
	db := testDB(t)

	out := mustRunCLI(t, "--db", db, "project", "list")
	assert.Contains(t, out, "No projects registered")
}

func TestProjectList_JSON(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")

	out := mustRunCLI(t, "--db", db, "--output", "json", "project", "list")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	projects, ok := resp.Data.([]interface{})
	require.True(t, ok, "data should be a project array")
	require.Len(t, projects, 1)
}

func TestProjectAdd_Duplicate(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")

	out, err := runCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "Again", "--actor", "admin-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION]")
}

func TestProjectAdd_MissingNameFlag(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "project", "add", "bridge-a12", "--actor", "admin-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReportAndHistory(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")

	out := mustRunCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "35.5", "--actor", "engineer-7")
	assert.Contains(t, out, "Progress recorded")
	assert.Contains(t, out, "35.5")
	assert.Contains(t, out, "seq 1")

	mustRunCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-16", "--percent", "36", "--remarks", "east span poured", "--actor", "engineer-7")

	out = mustRunCLI(t, "--db", db, "history", "bridge-a12")
	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "2024-01-15")
	assert.Contains(t, out, "35.5%")
	assert.Contains(t, out, "36.0%")
	assert.Contains(t, out, "hash ok")
	assert.NotContains(t, out, "INVALID")
}

func TestReport_DuplicateDate(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")
	mustRunCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "35.5", "--actor", "engineer-7")

	out, err := runCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "40", "--actor", "engineer-7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [DUPLICATE_RECORD]")
}

func TestReport_UnknownProject(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, "--db", db, "report", "ghost",
		"--date", "2024-01-15", "--percent", "10", "--actor", "engineer-7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [SCOPE_NOT_FOUND]")
}

func TestReport_BadDate(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "01/15/2024", "--percent", "10", "--actor", "engineer-7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --date")
}

func TestReport_BadPercent(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "thirty", "--actor", "engineer-7")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --percent")
}

func TestReport_OutOfRangePercent(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")

	// Parses fine, rejected by the ledger.
	out, err := runCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "100.5", "--actor", "engineer-7")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION]")
}

func TestReport_JSONOutput(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")

	out := mustRunCLI(t, "--db", db, "--output", "json", "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "35.5", "--actor", "engineer-7")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	rec, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "bridge-a12", rec["project_id"])
	assert.Equal(t, 35.5, rec["reported_percent"])
	assert.Equal(t, "", rec["prev_hash"])
	assert.Len(t, rec["record_hash"], 64)
}

func TestHistory_UnknownProject(t *testing.T) {
	db := testDB(t)

	out, err := runCLI(t, "--db", db, "history", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [SCOPE_NOT_FOUND]")
}

func TestHistory_FlagsTamperedRecord(t *testing.T) {
	db := testDB(t)
	mustRunCLI(t, "--db", db, "project", "add", "bridge-a12",
		"--name", "North Bridge", "--actor", "admin-1")
	mustRunCLI(t, "--db", db, "report", "bridge-a12",
		"--date", "2024-01-15", "--percent", "35.5", "--actor", "engineer-7")

	tamperRow(t, db, `UPDATE progress_logs SET reported_percent = 9999 WHERE seq = 1`)

	out := mustRunCLI(t, "--db", db, "history", "bridge-a12")
	assert.Contains(t, out, "hash INVALID")
	assert.Contains(t, out, "no longer match")
}
