package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/populate/internal/testutil"
)

// runCLI executes the root command with args and returns stdout, stderr and
// the command error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeFile writes data to name under dir and returns the path.
func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// cueSpecs returns a directory holding the fixture catalog in CUE.
func cueSpecs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "catalog.cue", testutil.CatalogCUE())
	return dir
}

// yamlSpecs returns a directory holding the fixture catalog in YAML.
func yamlSpecs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yaml", testutil.CatalogYAML())
	return dir
}

// customersFile returns the path of the fixture Customer documents.
func customersFile(t *testing.T) string {
	t.Helper()
	return writeFile(t, t.TempDir(), "customers.json", testutil.CustomersJSON())
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "populate", cmd.Use)
	assert.Contains(t, cmd.Long, "query plans")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "explain", "query", "load", "test"}

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
}

func TestPlanCommandFlags(t *testing.T) {
	for _, name := range []string{"explain", "query"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			source := sub.Flags().Lookup("source")
			require.NotNil(t, source)
			assert.Equal(t, "s", source.Shorthand)

			depth := sub.Flags().Lookup("search-depth")
			require.NotNil(t, depth)
			assert.Equal(t, "1", depth.DefValue)

			entries := sub.Flags().Lookup("cache-max-entries")
			require.NotNil(t, entries)
			assert.Equal(t, "1024", entries.DefValue)

			ttl := sub.Flags().Lookup("cache-ttl")
			require.NotNil(t, ttl)
			assert.Equal(t, "168h0m0s", ttl.DefValue)
		})
	}
}

func TestLoadCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	loadCmd, _, err := cmd.Find([]string{"load"})
	require.NoError(t, err)

	dbFlag := loadCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db is required, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)
	assert.NotNil(t, loadCmd.Flags().Lookup("replace"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, "--format", "xml", "validate", cueSpecs(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVerboseLogsToStderr(t *testing.T) {
	stdout, stderr, err := runCLI(t, "--verbose", "explain", cueSpecs(t),
		"-s", "Customer", "-d", "CustomerView", "-q", "filter[nope][$eq]=1")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Plan Customer -> CustomerView")
	assert.Contains(t, stderr, "nope")
	assert.NotContains(t, stdout, "nope")
}
