package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// TopProductsLimit is the size of the product ranking in narrative reports
const TopProductsLimit = 5

// NarrativeConfig is the static content of narrative reports
type NarrativeConfig struct {
	CompanyLines []string
	Responsible  string
	// ExportXLSX attaches the report tables as a spreadsheet.
	ExportXLSX bool
}

// NarrativeService produces weekly and monthly Word reports
type NarrativeService struct {
	gateway report.Gateway
	builder document.Builder
	config  NarrativeConfig
	now     func() time.Time
	logger  *zap.Logger
}

// NewNarrativeService creates a new NarrativeService
func NewNarrativeService(gateway report.Gateway, builder document.Builder, cfg NarrativeConfig, logger *zap.Logger) *NarrativeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NarrativeService{gateway: gateway, builder: builder, config: cfg, now: time.Now, logger: logger}
}

// Collect fetches every dataset of the report. Data fetch is fail-soft as a whole:
// any gateway failure yields report.ZeroReportData instead of a partial mix.
func (s *NarrativeService) Collect(ctx context.Context, cadence report.Cadence, r period.Range) *report.ReportData {
	data, err := s.fetch(ctx, cadence, r)
	if err != nil {
		contextLogger(ctx, s.logger).Warn("report data unavailable, using zero values",
			zap.String("cadence", string(cadence)),
			zap.String("period", r.String()),
			zap.Error(err))
		return report.ZeroReportData(cadence, r)
	}
	return data
}

func (s *NarrativeService) fetch(ctx context.Context, cadence report.Cadence, r period.Range) (*report.ReportData, error) {
	prev := period.Previous(r, cadence.Offset())
	q := func(name string) context.Context { return logger.WithQuery(ctx, name) }

	current, err := s.gateway.Totals(q("totals"), r)
	if err != nil {
		return nil, err
	}
	previous, err := s.gateway.Totals(q("previous_totals"), prev)
	if err != nil {
		return nil, err
	}
	newCustomers, err := s.gateway.NewCustomers(q("new_customers"), r)
	if err != nil {
		return nil, err
	}
	top, err := s.gateway.TopProducts(q("top_products"), r, TopProductsLimit)
	if err != nil {
		return nil, err
	}
	channels, err := s.gateway.Channels(q("channels"), r)
	if err != nil {
		return nil, err
	}

	var rows []report.PeriodRow
	if cadence == report.Monthly {
		rows = report.MonthlyRows(r, current, previous)
	} else {
		days, err := s.gateway.DailyTotals(q("daily_totals"), r)
		if err != nil {
			return nil, err
		}
		prevDays, err := s.gateway.DailyTotals(q("previous_daily_totals"), prev)
		if err != nil {
			return nil, err
		}
		rows = report.DailyRows(r, days, prevDays)
	}

	shipped, err := s.gateway.ShippedOrders(q("shipped_orders"), r)
	if err != nil {
		return nil, err
	}
	regions, err := s.gateway.DeliveryRegions(q("delivery_regions"), r)
	if err != nil {
		return nil, err
	}
	if regions == "" {
		regions = report.DefaultDeliveryRegions
	}

	return &report.ReportData{
		Cadence:         cadence,
		Period:          r,
		Totals:          current,
		PreviousTotals:  previous,
		Dynamics:        report.CountDelta(current.Orders, previous.Orders),
		NewCustomers:    newCustomers,
		TopProducts:     top,
		Channels:        report.WithTotalChannel(channels, current),
		Rows:            rows,
		ShippedOrders:   shipped,
		DeliveryTime:    report.DeliveryTimePlaceholder,
		DeliveryRegions: regions,
	}, nil
}

// Produce collects the report data and renders the Word document. Rendering is
// fail-hard; the optional spreadsheet companion is skipped when it fails.
func (s *NarrativeService) Produce(ctx context.Context, cadence report.Cadence, r period.Range) (*report.Artifact, error) {
	data := s.Collect(ctx, cadence, r)
	return s.Render(ctx, data)
}

// Render lays out already collected data.
func (s *NarrativeService) Render(ctx context.Context, data *report.ReportData) (*report.Artifact, error) {
	doc := document.NarrativeReport(data, document.NarrativeMeta{
		CompanyLines: s.config.CompanyLines,
		Responsible:  s.config.Responsible,
		Issued:       s.now(),
	})
	body, err := s.builder.Build(doc)
	if err != nil {
		if !errors.Is(err, shared.ErrRenderFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrRenderFailed, err)
		}
		return nil, err
	}

	kind := report.KindWeeklyReport
	if data.Cadence == report.Monthly {
		kind = report.KindMonthlyReport
	}
	artifact := &report.Artifact{
		Kind:        kind,
		Filename:    NarrativeFilename(data.Cadence, data.Period),
		ContentType: report.ContentTypeDOCX,
		Caption:     NarrativeCaption(data.Cadence, data.Period),
		Data:        body,
	}

	if s.config.ExportXLSX {
		xlsx, err := document.ReportWorkbook(data)
		if err != nil {
			contextLogger(ctx, s.logger).Warn("report spreadsheet skipped", zap.Error(err))
		} else {
			artifact.Attachments = append(artifact.Attachments, &report.Artifact{
				Kind:        kind,
				Filename:    replaceExt(artifact.Filename, ".xlsx"),
				ContentType: report.ContentTypeXLSX,
				Data:        xlsx,
			})
		}
	}
	return artifact, nil
}

// weekNumber returns the 1-based number of the week starting at r.Start within its
// month, or 0 when r does not start on a selectable week.
func weekNumber(r period.Range) int {
	for _, w := range period.WeeksOfMonth(r.Start.Year(), r.Start.Month()) {
		if w.Range.Start.Equal(r.Start) {
			return w.Index + 1
		}
	}
	return 0
}

// NarrativeFilename names the Word file, e.g. "Еженедельный_отчет за_1_неделю_Февраль_2024.docx"
// or "Ежемесячный_отчет_2024-03.docx".
func NarrativeFilename(cadence report.Cadence, r period.Range) string {
	if cadence == report.Monthly {
		return fmt.Sprintf("Ежемесячный_отчет_%s.docx", r.Start.Format("2006-01"))
	}
	if n := weekNumber(r); n > 0 {
		return fmt.Sprintf("Еженедельный_отчет за_%d_неделю_%s_%d.docx", n, period.MonthName(r.Start.Month()), r.Start.Year())
	}
	return fmt.Sprintf("Еженедельный_отчет_%s_%s.docx", r.Start.Format(period.DateLayout), r.End.Format(period.DateLayout))
}

// NarrativeCaption is the message sent along with the document.
func NarrativeCaption(cadence report.Cadence, r period.Range) string {
	if cadence == report.Monthly {
		return fmt.Sprintf("Ежемесячный отчет за %s %d", period.MonthName(r.Start.Month()), r.Start.Year())
	}
	if n := weekNumber(r); n > 0 {
		return fmt.Sprintf("Еженедельный отчет за %d-ю неделю %s %d", n, period.MonthName(r.Start.Month()), r.Start.Year())
	}
	return "Еженедельный отчет за " + r.Human()
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
