package report

import (
	"context"
	"fmt"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"github.com/bimate/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// DashboardPanels are the chart panels of the printable dashboard, in page order.
var DashboardPanels = []report.QueryName{
	report.SalesDynamics,
	report.OrderDynamics,
	report.CityRevenue,
	report.CategorySales,
	report.TopGoods,
	report.PaymentMethods,
	report.GenderStats,
}

// DashboardService produces the multi-panel PDF dashboard
type DashboardService struct {
	gateway report.Gateway
	printer printing.PDFRenderer
	opts    charting.Options
	layout  func(*charting.Dashboard, charting.Options) ([]byte, error)
	logger  *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(gateway report.Gateway, printer printing.PDFRenderer, opts charting.Options, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{gateway: gateway, printer: printer, opts: opts, layout: charting.DashboardHTML, logger: logger}
}

// Collect loads the headline and every panel. Each part is independent: a failed
// query leaves its panel empty so the page shows the placeholder.
func (s *DashboardService) Collect(ctx context.Context, r period.Range) *charting.Dashboard {
	log := contextLogger(ctx, s.logger).With(zap.String("period", r.String()))
	d := &charting.Dashboard{Period: r}

	totals, err := s.gateway.Totals(logger.WithQuery(ctx, "totals"), r)
	if err != nil {
		log.Warn("dashboard headline unavailable", zap.Error(err))
		d.Headline = headline(nil)
	} else {
		d.Headline = headline(&totals)
	}

	for _, name := range DashboardPanels {
		spec, _ := report.LookupChart(name)
		series, err := s.gateway.RunSeries(logger.WithQuery(ctx, string(name)), name, r, report.Filter{})
		if err != nil {
			log.Warn("dashboard panel unavailable", zap.String("query", string(name)), zap.Error(err))
			series = nil
		}
		d.Panels = append(d.Panels, charting.Panel{Spec: spec, Series: series})
	}
	return d
}

// Produce collects the dashboard and prints it to PDF. Only layout and printing can fail.
func (s *DashboardService) Produce(ctx context.Context, r period.Range) (*report.Artifact, error) {
	d := s.Collect(ctx, r)

	html, err := s.layout(d, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard layout: %w", shared.ErrRenderFailed, err)
	}

	res, err := s.printer.Render(ctx, &printing.RenderRequest{
		HTML:         string(html),
		Orientation:  printing.Portrait,
		Margins:      printing.DefaultMargins(),
		Title:        d.Title(),
		WaitSelector: charting.ReadySelector,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dashboard: %w", shared.ErrRenderFailed, err)
	}

	contextLogger(ctx, s.logger).Info("dashboard printed",
		zap.String("period", r.String()),
		zap.Int("pages", res.PageCount),
		zap.Duration("render_duration", res.RenderDuration))

	return &report.Artifact{
		Kind:        report.KindDashboard,
		Filename:    DashboardFilename(r),
		ContentType: report.ContentTypePDF,
		Caption:     d.Title(),
		Data:        res.PDFData,
	}, nil
}

// DashboardFilename is "Дашборд_{year}.pdf".
func DashboardFilename(r period.Range) string {
	return fmt.Sprintf("Дашборд_%d.pdf", r.Start.Year())
}

// headline formats revenue, order count and average check; nil totals yield placeholders.
func headline(t *report.Totals) []charting.Metric {
	names := []string{"Общая выручка", "Количество заказов", "Средний чек"}
	if t == nil {
		out := make([]charting.Metric, len(names))
		for i, n := range names {
			out[i] = charting.Metric{Name: n, Value: charting.NoDataPlaceholder}
		}
		return out
	}
	return []charting.Metric{
		{Name: names[0], Value: document.Money(t.Revenue)},
		{Name: names[1], Value: document.Count(t.Orders)},
		{Name: names[2], Value: document.Money(t.AverageCheck())},
	}
}
