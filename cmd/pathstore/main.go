package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pathstore",
		Short: "Reactive path-addressable state container",
		Long: `Pathstore holds a nested state tree that callers read and write by
dotted path; only listeners whose observed path overlaps a written path
are notified.

The CLI runs the live inspector over a store loaded from a state file:

  • JSON view of the whole tree or any field
  • Field writes and resets over HTTP
  • RFC 7386 merge patches
  • WebSocket change streams with expression filters
  • Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}
