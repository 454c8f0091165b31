// Command contextdiff compares an original text with its rewrite from the
// terminal, either in-process or against a running API server.
package main

import (
	"os"

	"github.com/turtacn/ContextDiff/internal/interfaces/cli"
)

// Injected via -ldflags.
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

func init() {
	cli.Version = version
	cli.GitCommit = gitCommit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
