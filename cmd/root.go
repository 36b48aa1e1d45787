// Package cmd defines and implements the CLI commands for the webshepherd
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webshepherd",
		Short: "A WCAG 2.1 accessibility scan service.",
		Long: `webshepherd fetches public web pages, evaluates them against a set of
WCAG 2.1 Level A and AA checks, and exposes the results through a REST API.
Scans run asynchronously; clients poll for results by scan ID.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./webshepherd.yaml)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
