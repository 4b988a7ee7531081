package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	app "github.com/bimate/backend/internal/application/report"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/charting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	february     = period.Range{Start: period.Date(2024, time.February, 1), End: period.Date(2024, time.February, 29)}
	firstFebWeek = period.Range{Start: period.Date(2024, time.February, 5), End: period.Date(2024, time.February, 11)}
	march        = period.Range{Start: period.Date(2024, time.March, 1), End: period.Date(2024, time.March, 31)}
)

func dbDown(query string, r period.Range) error {
	return report.NewDataUnavailable(query, r, report.ConnectionFailed, errors.New("connection refused"))
}

// =============================================================================
// Chart
// =============================================================================

func TestChartService_Produce(t *testing.T) {
	gw := new(MockGateway)
	series := &report.Series{Name: report.SalesDynamics, Points: []report.Point{
		{Date: february.Start, Value: decimal.NewFromInt(1500)},
	}}
	gw.On("RunSeries", mock.Anything, report.SalesDynamics, february, report.Filter{}).Return(series, nil)
	renderer := &fakeChartRenderer{}

	artifact, err := app.NewChartService(gw, renderer, nil).Produce(context.Background(), report.SalesDynamics, february)

	require.NoError(t, err)
	assert.Equal(t, report.KindChart, artifact.Kind)
	assert.Equal(t, "sales_dynamics_2024.png", artifact.Filename)
	assert.True(t, artifact.IsPhoto())
	assert.Equal(t, []byte("PNG:sales_dynamics"), artifact.Data)
	assert.Contains(t, artifact.Caption, "01.02.2024 - 29.02.2024")
	gw.AssertExpectations(t)
}

func TestChartService_NoData(t *testing.T) {
	gw := new(MockGateway)
	r := period.Range{Start: period.Date(2024, time.January, 1), End: period.Date(2024, time.January, 31)}
	gw.On("RunSeries", mock.Anything, report.PaymentMethods, r, report.Filter{}).
		Return(&report.Series{Name: report.PaymentMethods, Points: []report.Point{}}, nil)
	renderer := &fakeChartRenderer{}

	_, err := app.NewChartService(gw, renderer, nil).Produce(context.Background(), report.PaymentMethods, r)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNoData))
	assert.Equal(t, "Нет данных для графика 'payment_methods' за период 2024-01-01 - 2024-01-31.", err.Error())
	assert.Zero(t, renderer.calls, "nothing is rendered for an empty series")
}

func TestChartService_Failures(t *testing.T) {
	t.Run("unknown chart", func(t *testing.T) {
		_, err := app.NewChartService(new(MockGateway), &fakeChartRenderer{}, nil).
			Produce(context.Background(), "nope", february)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("gateway failure", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("RunSeries", mock.Anything, report.TopGoods, february, report.Filter{}).
			Return(nil, dbDown("top_goods", february))
		_, err := app.NewChartService(gw, &fakeChartRenderer{}, nil).Produce(context.Background(), report.TopGoods, february)
		assert.True(t, errors.Is(err, shared.ErrDataUnavailable))
	})

	t.Run("render failure", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("RunSeries", mock.Anything, report.TopGoods, february, report.Filter{}).
			Return(&report.Series{Points: []report.Point{{Label: "Чай", Value: decimal.NewFromInt(3)}}}, nil)
		renderer := &fakeChartRenderer{err: shared.ErrRenderFailed}
		_, err := app.NewChartService(gw, renderer, nil).Produce(context.Background(), report.TopGoods, february)
		assert.True(t, errors.Is(err, shared.ErrRenderFailed))
	})
}

// =============================================================================
// Dashboard
// =============================================================================

func TestDashboardService_PanelsAreFailSoft(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, february).Return(report.Totals{}, dbDown("totals", february))
	for _, name := range app.DashboardPanels {
		if name == report.SalesDynamics {
			gw.On("RunSeries", mock.Anything, name, february, report.Filter{}).Return(&report.Series{
				Name:   name,
				Points: []report.Point{{Date: february.Start, Value: decimal.NewFromInt(1000)}},
			}, nil)
			continue
		}
		gw.On("RunSeries", mock.Anything, name, february, report.Filter{}).Return(nil, dbDown(string(name), february))
	}
	printer := &fakePrinter{}
	svc := app.NewDashboardService(gw, printer, charting.DefaultOptions(), nil)

	artifact, err := svc.Produce(context.Background(), february)

	require.NoError(t, err)
	assert.Equal(t, report.KindDashboard, artifact.Kind)
	assert.Equal(t, "Дашборд_2024.pdf", artifact.Filename)
	assert.Equal(t, report.ContentTypePDF, artifact.ContentType)
	require.NotNil(t, printer.last)
	assert.Equal(t, charting.ReadySelector, printer.last.WaitSelector)
	assert.Contains(t, printer.last.HTML, charting.NoDataPlaceholder)
	assert.Equal(t, "Дашборд (2024-02-01 - 2024-02-29)", printer.last.Title)
	gw.AssertNumberOfCalls(t, "RunSeries", len(app.DashboardPanels))
}

func TestDashboardService_Headline(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, february).Return(report.Totals{Revenue: decimal.NewFromInt(0), Orders: 0}, nil)
	gw.On("RunSeries", mock.Anything, mock.Anything, february, report.Filter{}).Return(&report.Series{Points: []report.Point{}}, nil)

	d := app.NewDashboardService(gw, &fakePrinter{}, charting.DefaultOptions(), nil).Collect(context.Background(), february)

	require.Len(t, d.Headline, 3)
	require.Len(t, d.Panels, 7)
	// zero orders give a zero average check rather than a division error
	assert.True(t, strings.HasPrefix(d.Headline[2].Value, "0"))
	assert.Equal(t, "0", d.Headline[1].Value)
}

func TestDashboardService_PrintFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, february).Return(report.Totals{}, nil)
	gw.On("RunSeries", mock.Anything, mock.Anything, february, report.Filter{}).Return(&report.Series{}, nil)

	_, err := app.NewDashboardService(gw, &fakePrinter{err: errors.New("chrome crashed")}, charting.DefaultOptions(), nil).
		Produce(context.Background(), february)
	assert.True(t, errors.Is(err, shared.ErrRenderFailed))
}

func TestDashboardService_LayoutFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, february).Return(report.Totals{}, nil)
	gw.On("RunSeries", mock.Anything, mock.Anything, february, report.Filter{}).Return(&report.Series{}, nil)
	printer := &fakePrinter{}

	svc := app.NewDashboardService(gw, printer, charting.DefaultOptions(), nil)
	svc.SetLayout(func(*charting.Dashboard, charting.Options) ([]byte, error) {
		return nil, errors.New("template: dashboard.html: unexpected EOF")
	})
	_, err := svc.Produce(context.Background(), february)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrRenderFailed))
	assert.ErrorContains(t, err, "unexpected EOF")
	assert.Nil(t, printer.last, "nothing is printed without a page")
}

// =============================================================================
// Narrative
// =============================================================================

func weeklyGateway() *MockGateway {
	prev := period.Previous(firstFebWeek, period.WeeklyOffset)
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, firstFebWeek).Return(report.Totals{Revenue: decimal.NewFromInt(70000), Orders: 14}, nil)
	gw.On("Totals", mock.Anything, prev).Return(report.Totals{Revenue: decimal.NewFromInt(50000), Orders: 10}, nil)
	gw.On("NewCustomers", mock.Anything, firstFebWeek).Return(int64(3), nil)
	gw.On("TopProducts", mock.Anything, firstFebWeek, app.TopProductsLimit).Return([]report.ProductSales{
		{Name: "Кофе в зернах", Quantity: decimal.NewFromInt(12), Revenue: decimal.NewFromInt(18000)},
	}, nil)
	gw.On("Channels", mock.Anything, firstFebWeek).Return([]report.ChannelRow{
		{Channel: "Сайт", Orders: 9, Revenue: decimal.NewFromInt(45000)},
		{Channel: "Магазин", Orders: 5, Revenue: decimal.NewFromInt(25000)},
	}, nil)
	gw.On("DailyTotals", mock.Anything, firstFebWeek).Return([]report.DailyTotal{
		{Date: period.Date(2024, time.February, 6), Revenue: decimal.NewFromInt(10000), Orders: 2},
	}, nil)
	gw.On("DailyTotals", mock.Anything, prev).Return([]report.DailyTotal{
		{Date: period.Date(2024, time.January, 30), Revenue: decimal.NewFromInt(5000), Orders: 1},
	}, nil)
	gw.On("ShippedOrders", mock.Anything, firstFebWeek).Return(int64(6), nil)
	gw.On("DeliveryRegions", mock.Anything, firstFebWeek).Return("", nil)
	return gw
}

func TestNarrativeService_CollectWeekly(t *testing.T) {
	gw := weeklyGateway()
	svc := app.NewNarrativeService(gw, &captureBuilder{}, app.NarrativeConfig{}, nil)

	data := svc.Collect(context.Background(), report.Weekly, firstFebWeek)

	assert.False(t, data.Degraded)
	assert.Equal(t, "40", data.Dynamics.Percent.String())
	require.Len(t, data.Channels, 3)
	assert.Equal(t, report.TotalChannel, data.Channels[2].Channel)
	assert.Equal(t, int64(14), data.Channels[2].Orders)
	// one row per day of the range, zero filled
	require.Len(t, data.Rows, firstFebWeek.Days())
	assert.True(t, data.Rows[0].Revenue.IsZero())
	assert.Equal(t, int64(2), data.Rows[1].Orders)
	assert.Equal(t, "100", data.Rows[1].Change.String())
	assert.Equal(t, report.DefaultDeliveryRegions, data.DeliveryRegions)
	assert.Equal(t, report.DeliveryTimePlaceholder, data.DeliveryTime)
	gw.AssertExpectations(t)
}

func TestNarrativeService_MonthlyWithFailingPreviousPeriod(t *testing.T) {
	prev := period.Previous(march, period.MonthlyOffset)
	gw := new(MockGateway)
	gw.On("Totals", mock.Anything, march).Return(report.Totals{Revenue: decimal.NewFromInt(100), Orders: 1}, nil)
	gw.On("Totals", mock.Anything, prev).Return(report.Totals{}, dbDown("previous_totals", prev))
	builder := &captureBuilder{}
	svc := app.NewNarrativeService(gw, builder, app.NarrativeConfig{Responsible: "И. Петров"}, nil)

	data := svc.Collect(context.Background(), report.Monthly, march)
	assert.True(t, data.Degraded)
	assert.True(t, data.Totals.Revenue.IsZero(), "partial data is discarded")
	assert.Len(t, data.Rows, 2)

	artifact, err := svc.Produce(context.Background(), report.Monthly, march)
	require.NoError(t, err)
	assert.Equal(t, report.KindMonthlyReport, artifact.Kind)
	assert.Equal(t, "Ежемесячный_отчет_2024-03.docx", artifact.Filename)
	assert.Equal(t, "Ежемесячный отчет за Март 2024", artifact.Caption)
	assert.Equal(t, report.ContentTypeDOCX, artifact.ContentType)
	assert.Contains(t, builder.text(), "И. Петров")
	assert.Empty(t, artifact.Attachments)
}

func TestNarrativeService_RenderFailure(t *testing.T) {
	gw := weeklyGateway()
	svc := app.NewNarrativeService(gw, &captureBuilder{err: errors.New("zip: disk full")}, app.NarrativeConfig{}, nil)

	_, err := svc.Produce(context.Background(), report.Weekly, firstFebWeek)
	assert.True(t, errors.Is(err, shared.ErrRenderFailed))
}

func TestNarrativeService_SpreadsheetCompanion(t *testing.T) {
	gw := weeklyGateway()
	svc := app.NewNarrativeService(gw, &captureBuilder{}, app.NarrativeConfig{ExportXLSX: true}, nil)

	artifact, err := svc.Produce(context.Background(), report.Weekly, firstFebWeek)

	require.NoError(t, err)
	assert.Equal(t, "Еженедельный_отчет за_1_неделю_Февраль_2024.docx", artifact.Filename)
	assert.Equal(t, "Еженедельный отчет за 1-ю неделю Февраль 2024", artifact.Caption)
	require.Len(t, artifact.Attachments, 1)
	assert.Equal(t, "Еженедельный_отчет за_1_неделю_Февраль_2024.xlsx", artifact.Attachments[0].Filename)
	assert.Equal(t, report.ContentTypeXLSX, artifact.Attachments[0].ContentType)
	assert.NotEmpty(t, artifact.Attachments[0].Data)
}

func TestNarrativeFilename_CrossMonthWeek(t *testing.T) {
	// a digest week that starts on a padded row has no in-month week number
	r := period.Range{Start: period.Date(2024, time.January, 29), End: period.Date(2024, time.February, 4)}
	assert.Equal(t, "Еженедельный_отчет за_5_неделю_Январь_2024.docx", app.NarrativeFilename(report.Weekly, r))

	r = period.Range{Start: period.Date(2024, time.February, 1), End: period.Date(2024, time.February, 4)}
	assert.Equal(t, "Еженедельный_отчет_2024-02-01_2024-02-04.docx", app.NarrativeFilename(report.Weekly, r))
	assert.Equal(t, "Еженедельный отчет за 01.02.2024 - 04.02.2024", app.NarrativeCaption(report.Weekly, r))
}

// =============================================================================
// Producer
// =============================================================================

func newProducer(gw *MockGateway, opts ...app.ProducerOption) *app.Producer {
	return app.NewProducer(
		app.NewChartService(gw, &fakeChartRenderer{}, nil),
		app.NewDashboardService(gw, &fakePrinter{}, charting.DefaultOptions(), nil),
		app.NewNarrativeService(gw, &captureBuilder{}, app.NarrativeConfig{}, nil),
		nil,
		opts...,
	)
}

func TestProducer_Dispatch(t *testing.T) {
	gw := weeklyGateway()
	gw.On("RunSeries", mock.Anything, report.GenderStats, february, report.Filter{}).
		Return(&report.Series{Points: []report.Point{{Label: "Ж", Value: decimal.NewFromInt(4)}}}, nil)
	rec := &recorder{}
	archive := &memoryArchive{}
	p := newProducer(gw, app.WithRecorder(rec), app.WithArchive(archive))

	chart, err := p.Produce(context.Background(), report.ArtifactRequest{Kind: report.KindChart, Subtype: report.GenderStats, Period: february, Caption: "Пол"})
	require.NoError(t, err)
	assert.Equal(t, "Пол", chart.Caption)

	weekly, err := p.Produce(context.Background(), report.ArtifactRequest{Kind: report.KindWeeklyReport, Period: firstFebWeek, Filename: "digest.docx"})
	require.NoError(t, err)
	assert.Equal(t, "digest.docx", weekly.Filename)

	assert.Equal(t, []string{"chart", "weekly_report"}, rec.kinds)
	assert.Equal(t, []string{"gender_stats_2024.png", "digest.docx"}, archive.stored)
}

func TestProducer_ArchiveFailureDoesNotFailDelivery(t *testing.T) {
	gw := new(MockGateway)
	gw.On("RunSeries", mock.Anything, report.TopBrands, february, report.Filter{}).
		Return(&report.Series{Points: []report.Point{{Label: "Бренд", Value: decimal.NewFromInt(4)}}}, nil)
	rec := &recorder{}
	p := newProducer(gw, app.WithRecorder(rec), app.WithArchive(&memoryArchive{fail: true}))

	artifact, err := p.Produce(context.Background(), report.ArtifactRequest{Kind: report.KindChart, Subtype: report.TopBrands, Period: february})

	require.NoError(t, err)
	assert.NotNil(t, artifact)
	assert.Equal(t, 1, rec.archiveFailures)
}

func TestProducer_Errors(t *testing.T) {
	rec := &recorder{}
	p := newProducer(new(MockGateway), app.WithRecorder(rec))

	_, err := p.Produce(context.Background(), report.ArtifactRequest{Kind: "poster", Period: february})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	require.Len(t, rec.errs, 1)
	assert.Error(t, rec.errs[0])
}

// =============================================================================
// Sales overview
// =============================================================================

type stubOverviewRepo struct {
	failing map[string]bool
}

func (s stubOverviewRepo) err(name string) error {
	if s.failing[name] {
		return dbDown(name, period.Range{})
	}
	return nil
}

func (s stubOverviewRepo) Categories(ctx context.Context) ([]string, error) {
	return []string{"Кофе", "Чай"}, s.err("categories")
}

func (s stubOverviewRepo) CostBase(ctx context.Context, r period.Range) (report.CostBase, error) {
	return report.CostBase{Revenue: decimal.NewFromInt(5000000), Orders: 100}, s.err("cost_base")
}

func (s stubOverviewRepo) GrossProfitByDay(ctx context.Context, r period.Range) ([]report.DailyProfit, error) {
	return []report.DailyProfit{}, s.err("gross_profit")
}

func (s stubOverviewRepo) OrdersByDay(ctx context.Context, r period.Range) ([]report.DailyValue, error) {
	return []report.DailyValue{}, s.err("orders_by_day")
}

func (s stubOverviewRepo) AvgOrderByDay(ctx context.Context, r period.Range) ([]report.DailyValue, error) {
	return []report.DailyValue{}, s.err("avg_order")
}

func (s stubOverviewRepo) RevenueByStore(ctx context.Context, r period.Range, category string) ([]report.LabeledValue, error) {
	return []report.LabeledValue{{Label: "Сайт", Value: decimal.NewFromInt(10)}}, s.err("revenue_by_store")
}

func (s stubOverviewRepo) OrdersByStore(ctx context.Context, r period.Range, category string) ([]report.LabeledValue, error) {
	return []report.LabeledValue{}, s.err("orders_by_store")
}

func (s stubOverviewRepo) TopBrands(ctx context.Context, r period.Range, limit int) ([]report.LabeledValue, error) {
	return []report.LabeledValue{}, s.err("top_brands")
}

func (s stubOverviewRepo) TopCategories(ctx context.Context, r period.Range, limit int) ([]report.LabeledValue, error) {
	return []report.LabeledValue{}, s.err("top_categories")
}

func (s stubOverviewRepo) SalesByManager(ctx context.Context, r period.Range) ([]report.LabeledValue, error) {
	if s.failing["sales_by_manager"] {
		return nil, s.err("sales_by_manager")
	}
	return []report.LabeledValue{{Label: "Иванов", Value: decimal.NewFromInt(7)}}, nil
}

func (s stubOverviewRepo) ARPU(ctx context.Context, r period.Range) (report.ARPU, error) {
	return report.NewARPU(decimal.NewFromInt(100), 4), s.err("arpu")
}

func (s stubOverviewRepo) CategoryStats(ctx context.Context, r period.Range, category string) ([]report.CategoryStat, error) {
	return []report.CategoryStat{}, s.err("category_stats")
}

func TestSalesOverviewService_Overview(t *testing.T) {
	svc := app.NewSalesOverviewService(stubOverviewRepo{failing: map[string]bool{"sales_by_manager": true}}, 365, time.UTC, nil)

	o := svc.Overview(context.Background(), report.SalesQuery{PeriodType: report.PeriodMonth, Year: 2024, Month: 2, Category: "Кофе"})

	assert.Equal(t, february, o.Period)
	assert.Equal(t, "Кофе", o.Category)
	assert.Equal(t, []string{"Кофе", "Чай"}, o.Categories)
	assert.Nil(t, o.SalesByManager)
	require.Len(t, o.Warnings, 1)
	assert.Contains(t, o.Warnings[0], "менеджеры")
	assert.Equal(t, "25", o.ARPU.Value.String())
	assert.Equal(t, int64(100), o.Summary.Orders)
}

func TestSalesOverviewService_InvalidCustomRange(t *testing.T) {
	svc := app.NewSalesOverviewService(stubOverviewRepo{}, 365, time.UTC, nil)

	o := svc.Overview(context.Background(), report.SalesQuery{
		PeriodType: report.PeriodCustom,
		Start:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		End:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, o.Warnings, 1)
	assert.Equal(t, "начальная дата не может быть позже конечной", o.Warnings[0])
	assert.Equal(t, report.DefaultLookbackDays+1, o.Period.Days())
}
