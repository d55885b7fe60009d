package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "emlfs",
		Short:         "Browse .eml and .msg files as read-only folders",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Logging level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.String("scheme", "", "URI scheme of the synthetic namespace (overrides EMLFS_SCHEME)")
	flags.Bool("sanitize", false, "Sanitize body HTML before rendering the index (overrides EMLFS_SANITIZE_HTML)")

	rootCmd.AddCommand(
		newServeCmd(a),
		newLsCmd(a),
		newStatCmd(a),
		newCatCmd(a),
		newHTMLCmd(a),
	)
	return rootCmd
}
