package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	summaryCmdUse     = "summary"
	summaryCmdShort   = "Print the sales dashboard headline and category margins"
	categoryFlag      = "category"
	categoryUsage     = "restrict store and category figures to one category"
	summaryWarnPrefix = "warning:"
)

// NewSummaryCommand creates the summary subcommand.
func NewSummaryCommand(verbose *bool) *cobra.Command {
	var (
		flags    periodFlags
		category string
	)

	cmd := &cobra.Command{
		Use:   summaryCmdUse,
		Short: summaryCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := report.SalesQuery{PeriodType: report.PeriodCustom, Category: category}
			if flags.from != "" || flags.to != "" {
				r, err := flags.resolve(lastWeek(time.Now()))
				if err != nil {
					return err
				}
				q.Start, q.End = r.Start, r.End
			}

			rt, err := newRuntime(*verbose)
			if err != nil {
				return err
			}
			defer rt.Close()

			svc, err := rt.overview()
			if err != nil {
				return err
			}

			ov := svc.Overview(cmd.Context(), q)
			for _, w := range ov.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), summaryWarnPrefix, w)
			}
			writeSummary(cmd.OutOrStdout(), ov)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&category, categoryFlag, "", categoryUsage)

	return cmd
}

// writeSummary prints the profitability headline followed by the category margin table.
func writeSummary(w io.Writer, ov *report.SalesOverview) {
	fmt.Fprintf(w, "Период: %s\n", ov.Period.Human())
	if ov.Category != "" {
		fmt.Fprintf(w, "Категория: %s\n", ov.Category)
	}

	s := ov.Summary
	head := table.NewWriter()
	head.SetOutputMirror(w)
	head.SetStyle(table.StyleLight)
	head.AppendHeader(table.Row{"Показатель", "Значение"})
	head.AppendRows([]table.Row{
		{"Выручка", document.Money(s.Revenue)},
		{"Заказы", document.Count(s.Orders)},
		{"Себестоимость", document.Money(s.CostOfGoods)},
		{"Зарплаты", document.Money(s.Salaries)},
		{"Аренда", document.Money(s.Rent)},
		{"НДС", document.Money(s.VAT)},
		{"Налог на прибыль", document.Money(s.ProfitTax)},
		{"Всего расходов", document.Money(s.TotalExpenses)},
		{"ARPU", document.Money(ov.ARPU.Value)},
	})
	head.AppendFooter(table.Row{"Чистая прибыль", document.Money(s.NetProfit)})
	head.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight}})
	head.Render()

	if len(ov.CategoryStats) == 0 {
		return
	}

	cats := table.NewWriter()
	cats.SetOutputMirror(w)
	cats.SetStyle(table.StyleLight)
	cats.AppendHeader(table.Row{"Категория", "Выручка", "Себестоимость", "Валовая прибыль", "Маржа", "Заказы"})
	revenue, profit := decimal.Zero, decimal.Zero
	var orders int64
	for _, c := range ov.CategoryStats {
		cats.AppendRow(table.Row{
			c.Category,
			document.Money(c.Revenue),
			document.Money(c.CostPrice),
			document.Money(c.GrossProfit),
			document.Percent(c.MarginPercent),
			document.Count(c.Orders),
		})
		revenue = revenue.Add(c.Revenue)
		profit = profit.Add(c.GrossProfit)
		orders += c.Orders
	}
	cats.AppendFooter(table.Row{report.TotalChannel, document.Money(revenue), "", document.Money(profit), "", document.Count(orders)})
	cats.Render()
}
