// Package report assembles chart, dashboard and narrative report artifacts from
// aggregate sales data.
package report

import (
	"context"
	"fmt"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ChartRenderer draws a series to PNG
type ChartRenderer interface {
	Chart(ctx context.Context, spec report.ChartSpec, series *report.Series) ([]byte, error)
}

// ChartService produces single chart photos
type ChartService struct {
	gateway  report.Gateway
	renderer ChartRenderer
	logger   *zap.Logger
}

// NewChartService creates a new ChartService
func NewChartService(gateway report.Gateway, renderer ChartRenderer, logger *zap.Logger) *ChartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartService{gateway: gateway, renderer: renderer, logger: logger}
}

// Produce runs one chart query and renders it. An empty result is reported as
// *report.NoDataError and nothing is rendered.
func (s *ChartService) Produce(ctx context.Context, name report.QueryName, r period.Range) (*report.Artifact, error) {
	spec, ok := report.LookupChart(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown chart %q", shared.ErrInvalidInput, name)
	}

	series, err := s.gateway.RunSeries(logger.WithQuery(ctx, string(name)), name, r, report.Filter{})
	if err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, &report.NoDataError{Query: name, Period: r}
	}

	png, err := s.renderer.Chart(ctx, spec, series)
	if err != nil {
		return nil, err
	}

	contextLogger(ctx, s.logger).Debug("chart rendered",
		zap.String("query", string(name)),
		zap.String("period", r.String()),
		zap.Int("points", len(series.Points)),
		zap.Int("bytes", len(png)))

	return &report.Artifact{
		Kind:        report.KindChart,
		Filename:    ChartFilename(name, r),
		ContentType: report.ContentTypePNG,
		Caption:     ChartCaption(spec, r),
		Data:        png,
	}, nil
}

// ChartFilename is "{query}_{year}.png", the year taken from the range start.
func ChartFilename(name report.QueryName, r period.Range) string {
	return fmt.Sprintf("%s_%d.png", name, r.Start.Year())
}

// ChartCaption is the chart title followed by the printed period.
func ChartCaption(spec report.ChartSpec, r period.Range) string {
	return fmt.Sprintf("%s\n%s", spec.Title, r.Human())
}

// contextLogger prefers the request-scoped logger carried by ctx.
func contextLogger(ctx context.Context, fallback *zap.Logger) *logger.ContextLogger {
	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		return logger.L(ctx)
	}
	return logger.WithLogger(ctx, fallback)
}
