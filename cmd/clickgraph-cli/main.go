package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cliVerbose bool
	// cliLog is this binary's own diagnostic logger, separate from the
	// server's internal/logging package: a short-lived operator CLI has
	// no rotation or structured-component story to carry, just a
	// --verbose switch, so it reaches straight for logrus the way the
	// teacher's own CLI entrypoint did.
	cliLog = logrus.New()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "clickgraph-cli",
	Short:   "Operator conveniences for ClickGraph: validate schemas, compile queries, probe Bolt",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cliVerbose {
			cliLog.SetLevel(logrus.DebugLevel)
		} else {
			cliLog.SetLevel(logrus.WarnLevel)
		}
	},
}

func init() {
	rootCmd.SetVersionTemplate(`clickgraph-cli {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)
	rootCmd.PersistentFlags().BoolVarP(&cliVerbose, "verbose", "v", false, "log each step's diagnostic detail to stderr")
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(boltCmd)
}
