// Package cli implements the contextdiff command line tool.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContextDiff/internal/config"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/client"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
	ServerAddr   string
	APISecret    string
}

// CLIContext carries initialized dependencies through the command tree.
// Client is nil unless --server was given.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Client       *client.Client
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

// remote returns the API client or an error naming the missing flag.
func (c *CLIContext) remote(command string) (*client.Client, error) {
	if c.Client == nil {
		return nil, errors.InvalidParam(command + " needs a running server; pass --server")
	}
	return c.Client, nil
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "contextdiff",
		Short: "ContextDiff CLI: semantic comparison of an original text and its AI rewrite",
		Long: "ContextDiff asks a language model which meaning-level changes a rewrite\n" +
			"introduced, anchors every reported change to exact character offsets in\n" +
			"both texts, and scores the overall risk.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: CONTEXTDIFF_* environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json, table)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "global operation timeout")
	pf.StringVar(&opts.ServerAddr, "server", "", "API server address; without it compare runs in-process")
	pf.StringVar(&opts.APISecret, "api-secret", "", "shared API secret sent as "+client.HeaderAPISecret)

	cmd.AddCommand(
		NewCompareCmd(),
		NewCacheCmd(),
		NewHistoryCmd(),
		NewMigrateCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// persistentPreRun initializes config, logger, and client, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "text", "json", "table":
	default:
		return errors.InvalidParam("output must be one of text, json, table").WithDetail(fmt.Sprintf("got %q", opts.OutputFormat))
	}

	cfg, err := config.LoadOptional(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	apiClient, err := initClient(cfg, opts)
	if err != nil {
		return fmt.Errorf("client initialization failed: %w", err)
	}

	if opts.NoColor {
		color.NoColor = true
	}

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Client:       apiClient,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		NoColor:      opts.NoColor,
		Timeout:      opts.Timeout,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))

	return nil
}

// initLogger creates a logger configured for CLI usage (output to stderr).
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := strings.ToLower(opts.LogLevel)
	if opts.Verbose {
		level = logging.LevelDebug
	}

	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// initClient creates an API client when a server address was given. The
// secret falls back to auth.api_secret from the loaded configuration.
func initClient(cfg *config.Config, opts *RootOptions) (*client.Client, error) {
	if opts.ServerAddr == "" {
		return nil, nil
	}
	secret := opts.APISecret
	if secret == "" {
		secret = cfg.Auth.APISecret
	}
	return client.NewClient(opts.ServerAddr,
		client.WithAPISecret(secret),
		client.WithTimeout(opts.Timeout),
		client.WithUserAgent("contextdiff-cli/"+Version),
	)
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}

	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}

	return cliCtx, nil
}

// withTimeout bounds ctx by the global --timeout.
func (c *CLIContext) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}

	return nil
}

// PrintResult outputs data in the format specified by CLIContext. Values
// that know how to render themselves as text or a table do so; everything
// else is printed as JSON.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "json"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	switch format {
	case "table":
		if tp, ok := data.(tableProvider); ok {
			return printTable(cmd, tp)
		}
	case "text":
		if tp, ok := data.(textProvider); ok {
			_, err := fmt.Fprint(cmd.OutOrStdout(), tp.Text())
			return err
		}
	}
	return printJSON(cmd, data)
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

type textProvider interface {
	Text() string
}

// printJSON outputs data as indented JSON to stdout.
func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printTable(cmd *cobra.Command, tp tableProvider) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
	return err
}

// FormatTable renders headers and rows with tablewriter.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.Header(headers)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return buf.String()
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", color.RedString("Error:"), err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("OK:"), msg)
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

//Personal.AI order the ending
