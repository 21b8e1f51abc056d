package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
initial_throttle_ms = 10
max_throttle_ms = 40

[[rules]]
id = "teh"
pattern = '\bteh\b'
annotation = "Possible typo."
suggestions = ["the"]
auto_fix = true
category = { id = "spelling", name = "Spelling", colour = "#d32f2f" }

[[rules]]
id = "very"
pattern = '\bvery\b'
annotation = "Consider a stronger word."
category = { id = "wordiness", name = "Wordiness" }
`

// workspace creates files in a temporary directory and makes it the working
// directory for the test.
func workspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	t.Chdir(dir)
	return dir
}

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "redline", cmd.Use)
	assert.Contains(t, cmd.Long, "regex and Lua rules")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"check", "categories", "watch"}

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

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestCheckCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	checkCmd, _, err := cmd.Find([]string{"check"})
	require.NoError(t, err)

	fixFlag := checkCmd.Flags().Lookup("fix")
	require.NotNil(t, fixFlag)
	assert.Equal(t, "false", fixFlag.DefValue)

	require.NotNil(t, checkCmd.Flags().Lookup("categories"))
}

func TestInvalidFormat(t *testing.T) {
	workspace(t, map[string]string{"redline.toml": testConfig})

	_, err := execute(t, "--format", "xml", "categories")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExplicitConfigMustExist(t *testing.T) {
	workspace(t, nil)

	_, err := execute(t, "--config", "missing.toml", "categories")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerboseLogsToStderr(t *testing.T) {
	workspace(t, map[string]string{
		"redline.toml": testConfig,
		"doc.txt":      "all good\n",
	})

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"-v", "check", "doc.txt"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "no matches\n", out.String())
	assert.Contains(t, errOut.String(), "level=DEBUG")
}
