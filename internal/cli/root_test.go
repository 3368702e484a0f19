package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sitechain", cmd.Use)
	assert.Contains(t, cmd.Long, "hash-chained")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "project", "report", "log", "history", "verify", "export", "purge"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	outputFlag := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "text", outputFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestReportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	reportCmd, _, err := cmd.Find([]string{"report"})
	require.NoError(t, err)

	for _, name := range []string{"date", "percent", "remarks", "actor"} {
		flag := reportCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag %s should exist", name)
	}
}

func TestLogCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	logCmd, _, err := cmd.Find([]string{"log"})
	require.NoError(t, err)

	detailFlag := logCmd.Flags().Lookup("detail-json")
	require.NotNil(t, detailFlag)
	assert.Equal(t, "{}", detailFlag.DefValue)
}

func TestVerifyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	verifyCmd, _, err := cmd.Find([]string{"verify"})
	require.NoError(t, err)

	auditFlag := verifyCmd.Flags().Lookup("audit")
	require.NotNil(t, auditFlag)
	assert.Equal(t, "false", auditFlag.DefValue)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	formatFlag := exportCmd.Flags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "json", formatFlag.DefValue)

	outFlag := exportCmd.Flags().Lookup("out")
	require.NotNil(t, outFlag)
	assert.Equal(t, "", outFlag.DefValue)
}

func TestPurgeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	purgeCmd, _, err := cmd.Find([]string{"purge"})
	require.NoError(t, err)

	keepFlag := purgeCmd.Flags().Lookup("keep-days")
	require.NotNil(t, keepFlag)
	assert.Equal(t, "-1", keepFlag.DefValue)

	dryRunFlag := purgeCmd.Flags().Lookup("dry-run")
	require.NotNil(t, dryRunFlag)
	assert.Equal(t, "false", dryRunFlag.DefValue)
}

func TestProjectSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	addCmd, _, err := cmd.Find([]string{"project", "add"})
	require.NoError(t, err)
	assert.Equal(t, "add", addCmd.Name())
	require.NotNil(t, addCmd.Flags().Lookup("name"))
	require.NotNil(t, addCmd.Flags().Lookup("actor"))

	listCmd, _, err := cmd.Find([]string{"project", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", listCmd.Name())
}

func TestCommandHelp(t *testing.T) {
	cmd := NewRootCommand()

	// Verify help text contains key elements
	assert.Contains(t, cmd.Short, "ledger")
	assert.Contains(t, cmd.Long, "audit")
}

func TestOutputValidation(t *testing.T) {
	// Test valid outputs
	assert.True(t, isValidOutput("text"))
	assert.True(t, isValidOutput("json"))

	// Test invalid outputs
	assert.False(t, isValidOutput("xml"))
	assert.False(t, isValidOutput(""))
	assert.False(t, isValidOutput("TEXT"))
}

func TestOutputValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--output", "invalid", "project", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output")
}
