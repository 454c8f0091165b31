package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContextDiff/internal/config"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/client"
)

// execute runs the full command tree with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// runWith executes a single command with a prepared CLIContext, bypassing
// the root command's initialization.
func runWith(t *testing.T, cmd *cobra.Command, cliCtx *CLIContext, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.WithValue(context.Background(), cliContextKey{}, cliCtx))
	return out.String(), err
}

func testCLIContext(t *testing.T, format string) *CLIContext {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return &CLIContext{
		Config:       cfg,
		Logger:       logging.NewNopLogger(),
		OutputFormat: format,
		NoColor:      true,
	}
}

func remoteCLIContext(t *testing.T, format string, handler http.HandlerFunc) *CLIContext {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := client.NewClient(server.URL, client.WithRetryMax(0))
	require.NoError(t, err)

	cliCtx := testCLIContext(t, format)
	cliCtx.Client = c
	return cliCtx
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "contextdiff", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compare", "cache", "history", "migrate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	tests := []struct {
		name     string
		defValue string
	}{
		{"config", ""},
		{"log-level", "warn"},
		{"output", "text"},
		{"verbose", "false"},
		{"no-color", "false"},
		{"timeout", "2m0s"},
		{"server", ""},
		{"api-secret", ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			f := pf.Lookup(tc.name)
			require.NotNil(t, f)
			assert.Equal(t, tc.defValue, f.DefValue)
		})
	}
	assert.Equal(t, "c", pf.Lookup("config").Shorthand)
	assert.Equal(t, "o", pf.Lookup("output").Shorthand)
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	_, _, err := execute(t, "version", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output must be one of")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestRootCommand_ClientOnlyWithServer(t *testing.T) {
	var captured *CLIContext
	root := NewRootCommand()
	root.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			captured, err = GetCLIContext(cmd)
			return err
		},
	})

	root.SetArgs([]string{"probe", "-o", "JSON"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NotNil(t, captured)
	assert.Nil(t, captured.Client)
	assert.Equal(t, "json", captured.OutputFormat)

	root.SetArgs([]string{"probe", "--server", "http://localhost:8000/", "--api-secret", "x"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NotNil(t, captured.Client)
	assert.Equal(t, "http://localhost:8000", captured.Client.BaseURL())

	root.SetArgs([]string{"probe", "--server", "localhost:8000"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestVersionCmd_Output(t *testing.T) {
	oldVersion, oldCommit := Version, GitCommit
	Version, GitCommit = "1.4.2", ""
	t.Cleanup(func() { Version, GitCommit = oldVersion, oldCommit })

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "contextdiff 1.4.2")
	assert.Contains(t, out, "commit:     unknown")

	out, _, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.4.2", info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestPrintResult_FallsBackToJSON(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.WithValue(context.Background(), cliContextKey{}, testCLIContext(t, "table")))

	require.NoError(t, PrintResult(cmd, map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, out.String())
}

func TestFormatTable(t *testing.T) {
	assert.Empty(t, FormatTable(nil, nil))

	out := FormatTable([]string{"Name", "Value"}, [][]string{{"alpha", "1"}, {"beta", "22"}})
	assert.Contains(t, strings.ToUpper(out), "NAME")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "22")
}

func TestPrintError(t *testing.T) {
	cmd := &cobra.Command{}
	var errOut bytes.Buffer
	cmd.SetErr(&errOut)

	PrintError(cmd, nil)
	assert.Empty(t, errOut.String())

	PrintError(cmd, assert.AnError)
	assert.Contains(t, errOut.String(), "Error:")
	assert.Contains(t, errOut.String(), assert.AnError.Error())
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "日本語...", truncateString("日本語のテキストです", 6))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

//Personal.AI order the ending
