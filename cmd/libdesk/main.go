package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "libdesk",
		Short:         "Library management dashboard",
		Long:          "libdesk is a terminal dashboard and CLI for a library-management backend.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/libdesk/config.yaml)")

	root.AddCommand(
		&cobra.Command{
			Use:   "dashboard",
			Short: "Open the interactive dashboard (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDashboard(cmd, configFile)
			},
		},
		newLoginCmd(&configFile),
		newRegisterCmd(&configFile),
		newLogoutCmd(&configFile),
		newBooksCmd(&configFile),
		newMembersCmd(&configFile),
		newLoansCmd(&configFile),
		newSummaryCmd(&configFile),
		newMyCmd(&configFile),
		newWatchCmd(&configFile),
	)
	return root
}
