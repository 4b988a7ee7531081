package charting

import (
	"context"
	"errors"
	"fmt"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// Renderer draws one chart to PNG
type Renderer struct {
	shooter printing.Screenshotter
	opts    Options
	logger  *zap.Logger
}

// NewRenderer creates a chart renderer on top of a headless browser
func NewRenderer(shooter printing.Screenshotter, opts Options, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.normalized()
	if opts.ChartID == "" {
		opts.ChartID = "chart"
	}
	opts.Animation = false
	return &Renderer{shooter: shooter, opts: opts, logger: logger}
}

// Chart renders the series as its ChartSpec describes and returns PNG bytes.
// Failures match shared.ErrRenderFailed.
func (r *Renderer) Chart(ctx context.Context, spec report.ChartSpec, series *report.Series) ([]byte, error) {
	chart, err := Build(spec, series, r.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRenderFailed, err)
	}
	html, err := Page(chart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRenderFailed, err)
	}

	png, err := r.shooter.Screenshot(ctx, &printing.ScreenshotRequest{
		HTML:     string(html),
		Selector: "#" + r.opts.ChartID,
		Width:    r.opts.Width + 40,
		Height:   r.opts.Height + 40,
	})
	if err != nil {
		r.logger.Warn("chart screenshot failed", zap.String("query", string(spec.Query)), zap.Error(err))
		if errors.Is(err, shared.ErrRenderFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrRenderFailed, err)
	}
	return png, nil
}
