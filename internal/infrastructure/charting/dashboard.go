package charting

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/go-echarts/go-echarts/v2/render"
)

// NoDataPlaceholder replaces a panel whose data could not be loaded
const NoDataPlaceholder = "Нет данных"

// ReadySelector is present once every dashboard script has run
const ReadySelector = "#dashboard-ready"

const (
	panelWidth  = 470
	panelHeight = 300
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	templates     *template.Template
	templatesOnce sync.Once
	errTemplates  error
)

func getTemplates() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error
		templates, parseErr = template.New("").ParseFS(templateFS, "templates/*.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing templates: %w", parseErr)
		}
	})
	return templates, errTemplates
}

// Metric is one headline figure
type Metric struct {
	Name  string
	Value string
}

// Panel is one dashboard chart. A nil or empty Series renders the placeholder.
type Panel struct {
	Spec   report.ChartSpec
	Series *report.Series
}

// Dashboard is the content of the printable dashboard page
type Dashboard struct {
	Period   period.Range
	Headline []Metric
	Panels   []Panel
}

// Title returns the page heading, e.g. "Дашборд (2024-01-01 - 2024-01-31)".
func (d *Dashboard) Title() string {
	return fmt.Sprintf("Дашборд (%s)", d.Period)
}

type panelView struct {
	Title   string
	Empty   bool
	Element template.HTML
	Script  template.HTML
}

type dashboardView struct {
	Title       string
	AssetsHost  string
	Accent      template.CSS
	PanelHeight int
	Placeholder string
	Headline    []Metric
	Panels      []panelView
}

// DashboardHTML renders the printable dashboard page.
func DashboardHTML(d *Dashboard, o Options) ([]byte, error) {
	tmpl, err := getTemplates()
	if err != nil {
		return nil, err
	}

	host := o.AssetsHost
	if host == "" {
		host = DefaultAssetsHost
	}

	view := dashboardView{
		Title:       d.Title(),
		AssetsHost:  host,
		Accent:      template.CSS(report.AccentColor),
		PanelHeight: panelHeight,
		Placeholder: NoDataPlaceholder,
		Headline:    d.Headline,
		Panels:      renderPanels(d.Panels, o, panelSize{"panel", panelWidth, panelHeight}),
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "dashboard.html", view); err != nil {
		return nil, fmt.Errorf("executing dashboard template: %w", err)
	}
	return buf.Bytes(), nil
}

type panelSize struct {
	idPrefix string
	width    int
	height   int
}

// renderPanels builds the snippet of every panel. A panel that cannot be built
// is shown as the placeholder instead of failing the page.
func renderPanels(panels []Panel, o Options, size panelSize) []panelView {
	out := make([]panelView, 0, len(panels))
	for i, p := range panels {
		pv := panelView{Title: p.Spec.Title, Empty: true}
		if !p.Series.Empty() {
			if snippet, err := panelSnippet(p, i, o, size); err == nil {
				pv.Empty = false
				pv.Element = template.HTML(snippet.Element)
				pv.Script = template.HTML(snippet.Script)
			}
		}
		out = append(out, pv)
	}
	return out
}

func panelSnippet(p Panel, i int, o Options, size panelSize) (render.ChartSnippet, error) {
	chart, err := Build(p.Spec, p.Series, Options{
		Width:      size.width,
		Height:     size.height,
		AssetsHost: o.AssetsHost,
		ChartID:    fmt.Sprintf("%s_%d", size.idPrefix, i+1),
		Animation:  o.Animation,
	})
	if err != nil {
		return render.ChartSnippet{}, err
	}
	return Snippet(chart)
}
