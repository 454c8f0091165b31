package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo holds version information injected at build time.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Text implements textProvider.
func (b BuildInfo) Text() string {
	return fmt.Sprintf("contextdiff %s\n  commit:     %s\n  built:      %s\n  go:         %s\n  platform:   %s\n",
		b.Version, b.Commit, b.BuildDate, b.GoVersion, b.Platform)
}

// CurrentBuildInfo returns the values injected via ldflags.
func CurrentBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   orUnknown(Version),
		Commit:    orUnknown(GitCommit),
		BuildDate: orUnknown(BuildDate),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, CurrentBuildInfo())
		},
	}
}

//Personal.AI order the ending
