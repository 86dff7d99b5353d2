package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default so commands can be executed
// repeatedly in one test binary
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			_ = slice.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the root command with args and an empty config file
// location, returning everything written to stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	t.Setenv("REPAIRCOORD_CONFIG", "")
	chdirForTest(t, t.TempDir())

	if !containsFlag(args, "--config") {
		args = append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...)
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func containsFlag(args []string, flag string) bool {
	for _, arg := range args {
		if arg == flag {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRootCommandStructure(t *testing.T) {
	assert.Equal(t, "repaircoord", rootCmd.Use)
	assert.True(t, rootCmd.SilenceUsage)

	for _, name := range []string{"config", "debug", "json", "log-level", "log-file"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing persistent flag %s", name)
	}

	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range []string{"analyze", "intervene", "event", "resolve", "status", "config", "version"} {
		assert.True(t, registered[name], "missing command %s", name)
	}
}

func TestInitConfigFallsBackOnInvalidFile(t *testing.T) {
	path := writeFile(t, "config.yaml", "version: \"1.0\"\nui:\n  theme: neon\n")

	_, err := executeCommand(t, "--config", path, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")

	// The logger and defaults are still usable
	require.NotNil(t, appConfig)
	assert.Equal(t, "dark", appConfig.UI.Theme)
}

func TestInitConfigFlagOverrides(t *testing.T) {
	_, err := executeCommand(t, "--debug", "version")
	require.NoError(t, err)
	assert.Equal(t, "debug", appConfig.Logging.Level)

	_, err = executeCommand(t, "--log-level", "warn", "version")
	require.NoError(t, err)
	assert.Equal(t, "warn", appConfig.Logging.Level)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "repaircoord version dev\n", out)

	out, err = executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)

	out, err = executeCommand(t, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Go version:")
	assert.Contains(t, out, "OS/Arch:")
}
