package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContextDiff/pkg/client"
)

// NewCacheCmd groups the verdict cache administration commands. They talk
// to a running server; the in-process engine's cache dies with the command.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the server's verdict cache",
	}
	cmd.AddCommand(newCacheStatsCmd(), newCacheClearCmd())
	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show verdict cache counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.remote("cache stats")
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			stats, err := c.CacheStats(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, cacheStatsView{stats})
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached verdict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			c, err := cliCtx.remote("cache clear")
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.withTimeout(cmd.Context())
			defer cancel()

			cleared, err := c.ClearCache(ctx)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd, map[string]int64{"cleared": cleared})
			}
			PrintSuccess(cmd, fmt.Sprintf("cleared %d cached verdicts", cleared))
			return nil
		},
	}
}

type cacheStatsView struct {
	*client.CacheStats
}

func (v cacheStatsView) TableHeaders() []string {
	return []string{"Metric", "Value"}
}

func (v cacheStatsView) TableRows() [][]string {
	s := v.CacheStats
	return [][]string{
		{"size", fmt.Sprintf("%d / %d", s.Size, s.MaxSize)},
		{"hits", strconv.FormatInt(s.Hits, 10)},
		{"misses", strconv.FormatInt(s.Misses, 10)},
		{"hit rate", fmt.Sprintf("%.1f%%", s.HitRate*100)},
		{"evictions", strconv.FormatInt(s.Evictions, 10)},
		{"ttl", fmt.Sprintf("%ds", s.TTLSeconds)},
		{"shared tier", strconv.FormatBool(s.SharedEnabled)},
		{"shared hits", strconv.FormatInt(s.SharedHits, 10)},
		{"shared errors", strconv.FormatInt(s.SharedErrors, 10)},
	}
}

func (v cacheStatsView) Text() string {
	return FormatTable(v.TableHeaders(), v.TableRows())
}
