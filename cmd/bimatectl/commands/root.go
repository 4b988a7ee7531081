// Package commands implements the bimatectl subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	rootCmdUse   = "bimatectl"
	rootCmdShort = "Offline tooling for BI Mate"
	rootCmdLong  = `bimatectl renders the artifacts the bot delivers (charts, dashboards,
weekly and monthly reports) straight to files, prints the sales summary and
inspects the artifact archive. It reads the same config.toml and BIMATE_*
environment as the server.`
	verboseFlag  = "verbose"
	verboseShort = "v"
	verboseUsage = "log at debug level to stderr"
)

// NewRootCommand assembles the command tree.
func NewRootCommand(version string) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           rootCmdUse,
		Short:         rootCmdShort,
		Long:          rootCmdLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, verboseFlag, verboseShort, false, verboseUsage)

	root.AddCommand(
		NewChartCommand(&verbose),
		NewChartsCommand(),
		NewDashboardCommand(&verbose),
		NewReportCommand(&verbose),
		NewSummaryCommand(&verbose),
		NewArchiveCommand(&verbose),
		newVersionCommand(version),
	)

	return root
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bimatectl %s\n", version)
		},
	}
}
