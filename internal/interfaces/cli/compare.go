package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/cache"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/internal/intelligence/oracle"
	"github.com/turtacn/ContextDiff/pkg/client"
	"github.com/turtacn/ContextDiff/pkg/errors"
	"github.com/turtacn/ContextDiff/pkg/textnorm"
)

// CompareOptions holds the compare flags.
type CompareOptions struct {
	OriginalPath  string
	GeneratedPath string
	Sensitivity   string
	Premium       bool
	FailOnUnsafe  bool
}

// EngineFactory builds the in-process engine used when no server is given.
type EngineFactory func(ctx context.Context, cliCtx *CLIContext) (appDiff.Service, error)

// NewCompareCmd creates the compare command backed by the default engine.
func NewCompareCmd() *cobra.Command {
	return newCompareCmd(NewLocalEngine)
}

func newCompareCmd(factory EngineFactory) *cobra.Command {
	opts := &CompareOptions{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare an original text with its rewrite",
		Long: "Reports every meaning-level change between the two files with exact\n" +
			"character offsets. Pass - as one of the paths to read it from stdin.",
		Example: "  contextdiff compare --original brief.txt --generated rewrite.txt\n" +
			"  contextdiff compare --original a.txt --generated b.txt --sensitivity high -o table\n" +
			"  contextdiff compare --original a.txt --generated b.txt --server http://localhost:8000",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			report, err := runCompare(cmd.Context(), cliCtx, opts, factory, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, report); err != nil {
				return err
			}
			if opts.FailOnUnsafe && !report.Result.Summary.IsSafe {
				return fmt.Errorf("rewrite flagged as unsafe (risk score %d)", report.Result.Summary.RiskScore)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.OriginalPath, "original", "", "path to the original text (required)")
	f.StringVar(&opts.GeneratedPath, "generated", "", "path to the generated text (required)")
	f.StringVar(&opts.Sensitivity, "sensitivity", "medium", "judgement strictness (low, medium, high)")
	f.BoolVar(&opts.Premium, "premium", false, "use the premium model")
	f.BoolVar(&opts.FailOnUnsafe, "fail-on-unsafe", false, "exit non-zero when the rewrite is judged unsafe")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("generated")

	return cmd
}

// CompareReport is what compare prints.
type CompareReport struct {
	ID          string                 `json:"id,omitempty"`
	Cached      bool                   `json:"cached"`
	CacheSource string                 `json:"cache_source,omitempty"`
	Chunked     bool                   `json:"chunked"`
	DurationMs  int64                  `json:"duration_ms"`
	Result      *domainDiff.DiffResult `json:"result"`
}

func runCompare(ctx context.Context, cliCtx *CLIContext, opts *CompareOptions, factory EngineFactory, stdin io.Reader) (*CompareReport, error) {
	if opts.OriginalPath == "-" && opts.GeneratedPath == "-" {
		return nil, errors.InvalidParam("only one of --original and --generated can read stdin")
	}
	original, err := readInput(opts.OriginalPath, stdin)
	if err != nil {
		return nil, err
	}
	generated, err := readInput(opts.GeneratedPath, stdin)
	if err != nil {
		return nil, err
	}
	sensitivity, err := domainDiff.ParseSensitivity(opts.Sensitivity)
	if err != nil {
		return nil, err
	}

	ctx, cancel := cliCtx.withTimeout(ctx)
	defer cancel()

	if cliCtx.Client != nil {
		return compareRemote(ctx, cliCtx.Client, original, generated, sensitivity, opts.Premium)
	}

	engine, err := factory(ctx, cliCtx)
	if err != nil {
		return nil, err
	}
	out, err := engine.Compare(ctx, domainDiff.ComparisonRequest{
		OriginalText:  textnorm.Sanitize(original),
		GeneratedText: textnorm.Sanitize(generated),
		Sensitivity:   sensitivity,
		UsePremium:    opts.Premium,
	})
	if err != nil {
		return nil, err
	}
	cliCtx.Logger.Debug("comparison finished",
		logging.String("path", out.Path),
		logging.Float64("similarity", out.Similarity),
		logging.Duration("duration", out.Duration))

	return &CompareReport{
		ID:          out.ID,
		Cached:      out.Cached,
		CacheSource: string(out.CacheSource),
		Chunked:     out.Chunked,
		DurationMs:  out.Duration.Milliseconds(),
		Result:      out.Result,
	}, nil
}

func compareRemote(ctx context.Context, c *client.Client, original, generated string, s domainDiff.Sensitivity, premium bool) (*CompareReport, error) {
	resp, err := c.Compare(ctx, client.CompareRequest{
		OriginalText:  original,
		GeneratedText: generated,
		Sensitivity:   client.Sensitivity(s),
		UsePremium:    premium,
	})
	if err != nil {
		return nil, err
	}

	// The SDK mirrors the wire format, so the verdict converts losslessly.
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	var result domainDiff.DiffResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode server verdict")
	}

	return &CompareReport{
		ID:          resp.ComparisonID,
		Cached:      resp.Cached,
		CacheSource: resp.CacheSource,
		Chunked:     resp.Chunked,
		DurationMs:  resp.ProcessingTime.Milliseconds(),
		Result:      &result,
	}, nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", errors.InvalidParam("cannot read input").WithDetail(err.Error())
	}
	return string(data), nil
}

// NewLocalEngine builds an engine from the loaded configuration with an
// in-memory verdict cache. History sinks are not attached; the server owns
// the audit trail.
func NewLocalEngine(ctx context.Context, cliCtx *CLIContext) (appDiff.Service, error) {
	cfg := cliCtx.Config
	provider, err := oracle.NewProvider(ctx, oracle.ProviderConfig{
		Provider: cfg.Oracle.Provider,
		APIKey:   cfg.Oracle.APIKey,
		BaseURL:  cfg.Oracle.BaseURL,
	}, cliCtx.Logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeOracleNotConfigured, "failed to create oracle")
	}
	analyzer := oracle.Retrying(provider, cfg.Oracle.Retry, oracle.WithRetryLogger(cliCtx.Logger))

	verdicts := cache.NewTiered(cache.NewFingerprintCache(cfg.Cache.TTL, cfg.Cache.MaxSize), nil, cliCtx.Logger)
	return appDiff.NewService(cfg.Engine, analyzer, verdicts, appDiff.WithLogger(cliCtx.Logger)), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Rendering
// ─────────────────────────────────────────────────────────────────────────────

// TableHeaders implements tableProvider.
func (r *CompareReport) TableHeaders() []string {
	return []string{"#", "Severity", "Type", "Original", "Generated", "Description"}
}

// TableRows implements tableProvider.
func (r *CompareReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Result.Changes))
	for i, c := range r.Result.Changes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			colorizeSeverity(c.Severity),
			string(c.Type),
			truncateString(formatSpan(c.OriginalSpan), 40),
			truncateString(formatSpan(c.GeneratedSpan), 40),
			truncateString(c.Description, 60),
		})
	}
	return rows
}

// Text implements textProvider.
func (r *CompareReport) Text() string {
	var sb strings.Builder
	s := r.Result.Summary

	verdict := color.GreenString("SAFE")
	if !s.IsSafe {
		verdict = color.RedString("UNSAFE")
	}
	fmt.Fprintf(&sb, "%s  risk %d/100  level %s  changes %d\n", verdict, s.RiskScore, colorizeLevel(s.SemanticChangeLevel), len(r.Result.Changes))

	var meta []string
	if r.ID != "" {
		meta = append(meta, "id "+r.ID)
	}
	if r.Cached {
		src := r.CacheSource
		if src == "" {
			src = "cache"
		}
		meta = append(meta, "cached ("+src+")")
	}
	if r.Chunked {
		meta = append(meta, "chunked")
	}
	meta = append(meta, (time.Duration(r.DurationMs) * time.Millisecond).String())
	fmt.Fprintf(&sb, "%s\n", color.HiBlackString(strings.Join(meta, "  ")))

	for i, c := range r.Result.Changes {
		fmt.Fprintf(&sb, "\n%d. [%s] %s: %s\n", i+1, colorizeSeverity(c.Severity), c.Type, c.Description)
		if c.OriginalSpan.Text != "" {
			fmt.Fprintf(&sb, "   %s %s\n", color.RedString("-"), formatSpan(c.OriginalSpan))
		}
		if c.GeneratedSpan.Text != "" {
			fmt.Fprintf(&sb, "   %s %s\n", color.GreenString("+"), formatSpan(c.GeneratedSpan))
		}
		if c.Reasoning != "" {
			fmt.Fprintf(&sb, "   %s\n", c.Reasoning)
		}
	}
	return sb.String()
}

func formatSpan(s domainDiff.TextSpan) string {
	if s.Text == "" {
		return ""
	}
	if s.HasOffsets() {
		return fmt.Sprintf("%q @%d-%d", s.Text, *s.Start, *s.End)
	}
	return fmt.Sprintf("%q", s.Text)
}

func colorizeSeverity(s domainDiff.Severity) string {
	label := strings.ToUpper(string(s))
	switch s {
	case domainDiff.SeverityCritical:
		return color.RedString(label)
	case domainDiff.SeverityWarning:
		return color.YellowString(label)
	case domainDiff.SeverityInfo:
		return color.CyanString(label)
	default:
		return label
	}
}

func colorizeLevel(l domainDiff.ChangeLevel) string {
	switch l {
	case domainDiff.LevelCritical, domainDiff.LevelFatal:
		return color.RedString(string(l))
	case domainDiff.LevelModerate:
		return color.YellowString(string(l))
	default:
		return string(l)
	}
}

//Personal.AI order the ending
