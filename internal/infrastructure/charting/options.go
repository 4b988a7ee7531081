// Package charting builds go-echarts charts from report series and renders
// them to PNG through a headless browser.
package charting

import (
	"fmt"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Canvas defaults sized for a Telegram photo
const (
	DefaultWidth  = 1000
	DefaultHeight = 600
	labelFontSize = 11
	labelRotate   = 45
)

// DefaultAssetsHost is where go-echarts loads echarts.min.js from by default
const DefaultAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Options controls the canvas of built charts
type Options struct {
	Width  int
	Height int
	// AssetsHost serves echarts.min.js; empty keeps the go-echarts CDN
	AssetsHost string
	// ChartID fixes the DOM id so the renderer can select the canvas
	ChartID string
	// Animation is disabled for screenshots and enabled on web pages
	Animation bool
}

// DefaultOptions returns the options used for chat photos.
func DefaultOptions() Options {
	return Options{Width: DefaultWidth, Height: DefaultHeight, ChartID: "chart"}
}

func (o Options) normalized() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

func (o Options) init(title string) opts.Initialization {
	init := opts.Initialization{
		Width:           fmt.Sprintf("%dpx", o.Width),
		Height:          fmt.Sprintf("%dpx", o.Height),
		BackgroundColor: "#ffffff",
		ChartID:         o.ChartID,
		PageTitle:       title,
	}
	if o.AssetsHost != "" {
		init.AssetsHost = o.AssetsHost
	}
	return init
}

func title(spec report.ChartSpec, subtitle string) opts.Title {
	return opts.Title{
		Title:    spec.Title,
		Subtitle: subtitle,
		Left:     "center",
	}
}

func xAxis(name string, rotate bool) opts.XAxis {
	axis := opts.XAxis{
		Name:         name,
		NameLocation: "middle",
		NameGap:      40,
		AxisLabel:    &opts.AxisLabel{Interval: "0", FontSize: labelFontSize},
	}
	if rotate {
		axis.AxisLabel.Rotate = labelRotate
		axis.NameGap = 90
	}
	return axis
}

func yAxis(name string) opts.YAxis {
	return opts.YAxis{
		Name:      name,
		SplitLine: &opts.SplitLine{Show: opts.Bool(true)},
	}
}

func grid() opts.Grid {
	return opts.Grid{
		Top:          "15%",
		Bottom:       "12%",
		Left:         "6%",
		Right:        "4%",
		ContainLabel: opts.Bool(true),
	}
}
