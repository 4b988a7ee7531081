package charting

import (
	"bytes"
	"fmt"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"
	"github.com/shopspring/decimal"
)

// Chart is a built go-echarts chart
type Chart = render.Renderer

// Build creates the chart for a series according to its ChartSpec. Every chart kind
// draws the same series; only the presentation differs.
func Build(spec report.ChartSpec, series *report.Series, o Options) (Chart, error) {
	if series == nil {
		return nil, fmt.Errorf("chart %s: series is nil", spec.Query)
	}
	o = o.normalized()
	var subtitle string
	if !series.Period.Start.IsZero() {
		subtitle = series.Period.Human()
	}

	switch spec.Kind {
	case report.LineChart:
		return buildLine(spec, series, o, subtitle), nil
	case report.BarChart:
		return buildBar(spec, series, o, subtitle), nil
	case report.PieChart:
		return buildPie(spec, series, o, subtitle), nil
	}
	return nil, fmt.Errorf("chart %s: unknown kind %q", spec.Query, spec.Kind)
}

func buildLine(spec report.ChartSpec, series *report.Series, o Options, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(spec.Title)),
		charts.WithAnimation(o.Animation),
		charts.WithTitleOpts(title(spec, subtitle)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(xAxis(spec.XName, len(series.Points) > 12)),
		charts.WithYAxisOpts(yAxis(spec.YName)),
		charts.WithGridOpts(grid()),
	)
	line.SetXAxis(series.Labels())

	values := chartValues(series, spec)
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	line.AddSeries(spec.Title, data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: report.AccentColor}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: report.AccentColor, Width: 2}),
		charts.WithAreaStyleOpts(opts.AreaStyle{Color: report.AccentColor, Opacity: opts.Float(report.AreaOpacity)}),
	)
	return line
}

func buildBar(spec report.ChartSpec, series *report.Series, o Options, subtitle string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(spec.Title)),
		charts.WithAnimation(o.Animation),
		charts.WithTitleOpts(title(spec, subtitle)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(xAxis(spec.XName, true)),
		charts.WithYAxisOpts(yAxis(spec.YName)),
		charts.WithGridOpts(grid()),
	)
	bar.SetXAxis(series.Labels())

	values := chartValues(series, spec)
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}
	bar.AddSeries(spec.Title, data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: report.AccentColor}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", FontSize: labelFontSize}),
	)
	return bar
}

func buildPie(spec report.ChartSpec, series *report.Series, o Options, subtitle string) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(spec.Title)),
		charts.WithAnimation(o.Animation),
		charts.WithTitleOpts(title(spec, subtitle)),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "2%"}),
	)

	data := make([]opts.PieData, len(series.Points))
	for i, p := range series.Points {
		data[i] = opts.PieData{
			Name:      series.Labels()[i],
			Value:     p.Value.InexactFloat64(),
			ItemStyle: &opts.ItemStyle{Color: report.PieColor(i)},
		}
	}
	pie.AddSeries(spec.Title, data,
		charts.WithPieChartOpts(opts.PieChart{Radius: "60%", Center: []string{"50%", "55%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// chartValues scales values to thousands with one decimal, or rounds them for
// integer labels.
func chartValues(series *report.Series, spec report.ChartSpec) []float64 {
	out := make([]float64, len(series.Points))
	thousand := decimal.NewFromInt(1000)
	for i, p := range series.Points {
		v := p.Value
		switch {
		case spec.Thousands:
			v = v.Div(thousand).Round(1)
		case spec.IntegerLabels:
			v = v.Round(0)
		default:
			v = v.Round(2)
		}
		out[i] = v.InexactFloat64()
	}
	return out
}

// Page renders the chart as a standalone HTML document
func Page(c Chart) (html []byte, err error) {
	defer func() {
		// go-echarts panics on template errors
		if r := recover(); r != nil {
			err = fmt.Errorf("render chart page: %v", r)
		}
	}()
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return nil, fmt.Errorf("render chart page: %w", err)
	}
	return buf.Bytes(), nil
}

// Snippet renders the chart as an embeddable element and script
func Snippet(c Chart) (snippet render.ChartSnippet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render chart snippet: %v", r)
		}
	}()
	return c.RenderSnippet(), nil
}
