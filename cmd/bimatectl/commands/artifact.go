package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const (
	outputFlag      = "output"
	outputShort     = "o"
	outputUsage     = "directory the files are written to"
	fromFlag        = "from"
	fromUsage       = "first day of the period, YYYY-MM-DD"
	toFlag          = "to"
	toUsage         = "last day of the period, YYYY-MM-DD"
	defaultOutput   = "."
	chartCmdUse     = "chart <query>"
	chartCmdShort   = "Render one chart as PNG"
	chartsCmdUse    = "charts"
	chartsCmdShort  = "List the available chart queries"
	dashCmdUse      = "dashboard"
	dashCmdShort    = "Render the PDF dashboard"
	reportCmdUse    = "report <weekly|monthly>"
	reportCmdShort  = "Build the weekly or monthly Word report"
	chartArgCount   = 1
	reportArgCount  = 1
	writtenPrefix   = "Written"
)

// periodFlags is the shared --from/--to pair
type periodFlags struct {
	from, to string
}

func (p *periodFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.from, fromFlag, "", fromUsage)
	cmd.Flags().StringVar(&p.to, toFlag, "", toUsage)
}

func (p *periodFlags) resolve(fallback period.Range) (period.Range, error) {
	return parseRange(p.from, p.to, fallback)
}

// NewChartCommand creates the chart subcommand.
func NewChartCommand(verbose *bool) *cobra.Command {
	var (
		flags  periodFlags
		output string
	)

	cmd := &cobra.Command{
		Use:       chartCmdUse,
		Short:     chartCmdShort,
		Args:      cobra.MatchAll(cobra.ExactArgs(chartArgCount), validChart),
		ValidArgs: chartNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := flags.resolve(lastWeek(time.Now()))
			if err != nil {
				return err
			}
			return produce(cmd, *verbose, output, report.ArtifactRequest{
				Kind:    report.KindChart,
				Subtype: report.QueryName(args[0]),
				Period:  r,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, outputFlag, outputShort, defaultOutput, outputUsage)

	return cmd
}

// NewChartsCommand lists the chart catalogue.
func NewChartsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   chartsCmdUse,
		Short: chartsCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeCharts(cmd.OutOrStdout())
			return nil
		},
	}
}

// NewDashboardCommand creates the dashboard subcommand.
func NewDashboardCommand(verbose *bool) *cobra.Command {
	var (
		flags  periodFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   dashCmdUse,
		Short: dashCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := flags.resolve(lastWeek(time.Now()))
			if err != nil {
				return err
			}
			return produce(cmd, *verbose, output, report.ArtifactRequest{Kind: report.KindDashboard, Period: r})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, outputFlag, outputShort, defaultOutput, outputUsage)

	return cmd
}

// NewReportCommand creates the report subcommand.
func NewReportCommand(verbose *bool) *cobra.Command {
	var (
		flags  periodFlags
		output string
	)

	cmd := &cobra.Command{
		Use:       reportCmdUse,
		Short:     reportCmdShort,
		Args:      cobra.MatchAll(cobra.ExactArgs(reportArgCount), cobra.OnlyValidArgs),
		ValidArgs: []string{string(report.Weekly), string(report.Monthly)},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, fallback := report.KindWeeklyReport, lastWeek(time.Now())
			if report.Cadence(args[0]) == report.Monthly {
				kind, fallback = report.KindMonthlyReport, lastMonth(time.Now())
			}
			r, err := flags.resolve(fallback)
			if err != nil {
				return err
			}
			return produce(cmd, *verbose, output, report.ArtifactRequest{Kind: kind, Period: r})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&output, outputFlag, outputShort, defaultOutput, outputUsage)

	return cmd
}

func produce(cmd *cobra.Command, verbose bool, output string, req report.ArtifactRequest) error {
	rt, err := newRuntime(verbose)
	if err != nil {
		return err
	}
	defer rt.Close()

	producer, err := rt.producer()
	if err != nil {
		return err
	}

	artifact, err := producer.Produce(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("produce %s for %s: %w", req.Kind, req.Period, err)
	}

	paths, err := writeArtifact(output, artifact)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", writtenPrefix, p)
	}
	return err
}

func validChart(_ *cobra.Command, args []string) error {
	if _, ok := report.LookupChart(report.QueryName(args[0])); !ok {
		return fmt.Errorf("unknown chart %q, see 'bimatectl charts'", args[0])
	}
	return nil
}

func chartNames() []string {
	specs := report.Charts()
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, string(s.Query))
	}
	return names
}

func writeCharts(w io.Writer) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Query", "Kind", "Title"})
	for _, s := range report.Charts() {
		tbl.AppendRow(table.Row{s.Query, s.Kind, s.Title})
	}
	tbl.Render()
}
