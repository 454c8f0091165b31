package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContextDiff/pkg/client"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// NewHistoryCmd groups the comparison history commands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded comparisons on the server",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryGetCmd(), newHistoryReportCmd())
	return cmd
}

type historyListOptions struct {
	Since  string
	Until  string
	Unsafe bool
	Limit  int
	Offset int
}

func (o historyListOptions) filter() (client.HistoryFilter, error) {
	f := client.HistoryFilter{UnsafeOnly: o.Unsafe, Limit: o.Limit, Offset: o.Offset}
	var err error
	if f.Since, err = parseTimeFlag("since", o.Since); err != nil {
		return f, err
	}
	if f.Until, err = parseTimeFlag("until", o.Until); err != nil {
		return f, err
	}
	if o.Limit < 0 || o.Offset < 0 {
		return f, errors.InvalidParam("limit and offset must be >= 0")
	}
	return f, nil
}

// parseTimeFlag accepts RFC3339 timestamps, plain dates and durations
// counted back from now ("24h").
func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return time.Now().Add(-d), nil
	}
	return time.Time{}, errors.InvalidParam("--" + name + " must be RFC3339, YYYY-MM-DD or a duration").WithDetail(value)
}

func newHistoryListCmd() *cobra.Command {
	opts := historyListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent comparisons, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.remote("history list")
			if err != nil {
				return err
			}
			filter, err := opts.filter()
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			page, err := c.ListComparisons(ctx, filter)
			if err != nil {
				return err
			}
			return PrintResult(cmd, historyPageView{page})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Since, "since", "", "only comparisons at or after this time")
	f.StringVar(&opts.Until, "until", "", "only comparisons before this time")
	f.BoolVar(&opts.Unsafe, "unsafe", false, "only comparisons judged unsafe")
	f.IntVar(&opts.Limit, "limit", 20, "page size")
	f.IntVar(&opts.Offset, "offset", 0, "records to skip")
	return cmd
}

func newHistoryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one recorded comparison with its verdict",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.remote("history get")
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			rec, err := c.GetComparison(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func newHistoryReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report ID",
		Short: "Print a download link for the archived report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.remote("history report")
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			url, err := c.ReportURL(ctx, args[0])
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd, map[string]string{"id": args[0], "url": url})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
}

type historyPageView struct {
	*client.ComparisonPage
}

func (v historyPageView) TableHeaders() []string {
	return []string{"ID", "Created", "Safe", "Risk", "Level", "Changes", "Model", "Cached"}
}

func (v historyPageView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for _, r := range v.Items {
		safe := color.GreenString("yes")
		if !r.IsSafe {
			safe = color.RedString("no")
		}
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			safe,
			strconv.Itoa(r.RiskScore),
			r.Level,
			strconv.Itoa(r.ChangeCount),
			r.Model,
			strconv.FormatBool(r.Cached),
		})
	}
	return rows
}

func (v historyPageView) Text() string {
	if len(v.Items) == 0 {
		return "no comparisons recorded\n"
	}
	var sb strings.Builder
	for _, r := range v.Items {
		mark := color.GreenString("SAFE  ")
		if !r.IsSafe {
			mark = color.RedString("UNSAFE")
		}
		fmt.Fprintf(&sb, "%s %s  %s  risk %3d  %-8s  %d changes\n",
			mark, r.CreatedAt.Local().Format(time.RFC3339), r.ID, r.RiskScore, r.Level, r.ChangeCount)
	}
	fmt.Fprintf(&sb, "%d shown (offset %d)\n", len(v.Items), v.Offset)
	return sb.String()
}

//Personal.AI order the ending
