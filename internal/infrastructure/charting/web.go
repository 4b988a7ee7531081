package charting

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/bimate/backend/internal/domain/catalog"
	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/infrastructure/document"
	"github.com/shopspring/decimal"
)

const (
	webPanelWidth  = 580
	webPanelHeight = 360
)

// Panel specs of the web dashboards. They are drawn by Build like the chat charts.
var (
	grossProfitSpec = report.ChartSpec{Query: "gross_profit", Kind: report.LineChart, Title: "Валовая прибыль по дням", XName: "Дата", YName: "Прибыль, тыс. ₽", Thousands: true}
	ordersByDaySpec = report.ChartSpec{Query: "orders_by_day", Kind: report.LineChart, Title: "Заказы по дням", XName: "Дата", YName: "Заказы"}
	avgOrderSpec    = report.ChartSpec{Query: "avg_order_by_day", Kind: report.LineChart, Title: "Средний чек по дням", XName: "Дата", YName: "Средний чек, ₽"}
	storeRevenue    = report.ChartSpec{Query: "revenue_by_store", Kind: report.BarChart, Title: "Выручка по магазинам", XName: "Магазин", YName: "Выручка, тыс. ₽", Thousands: true}
	storeOrders     = report.ChartSpec{Query: "orders_by_store", Kind: report.BarChart, Title: "Заказы по магазинам", XName: "Магазин", YName: "Заказы", IntegerLabels: true}
	brandRevenue    = report.ChartSpec{Query: "top_brands", Kind: report.BarChart, Title: "Топ брендов по выручке", XName: "Бренд", YName: "Выручка, тыс. ₽", Thousands: true}
	categoryRevenue = report.ChartSpec{Query: "top_categories", Kind: report.BarChart, Title: "Топ категорий по выручке", XName: "Категория", YName: "Выручка, тыс. ₽", Thousands: true}
	managerSales    = report.ChartSpec{Query: "sales_by_manager", Kind: report.BarChart, Title: "Продажи по менеджерам", XName: "Менеджер", YName: "Выручка, тыс. ₽", Thousands: true}

	popularitySpec  = report.ChartSpec{Query: "popularity", Kind: report.BarChart, Title: "Популярность по неделям", XName: "Неделя", YName: "Продано, шт.", IntegerLabels: true}
	goodSalesSpec   = report.ChartSpec{Query: "good_sales", Kind: report.LineChart, Title: "Динамика продаж", XName: "Дата", YName: "Выручка, ₽"}
	genderSpec      = report.ChartSpec{Query: "gender", Kind: report.PieChart, Title: "Пол покупателей"}
	seasonalitySpec = report.ChartSpec{Query: "seasonality", Kind: report.PieChart, Title: "Праздничная сезонность"}
	ratingSpec      = report.ChartSpec{Query: "ratings", Kind: report.BarChart, Title: "Распределение оценок", XName: "Оценка", YName: "Отзывы", IntegerLabels: true}
)

// Option is one entry of a select control
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SalesPage is the content of the /sales page
type SalesPage struct {
	Overview *report.SalesOverview
	Query    report.SalesQuery
	// Token is carried into the form and the export link
	Token string
	// Years offered by the year selector
	Years []int
}

type categoryRow struct {
	Category, Revenue, CostPrice, GrossProfit, Margin, Orders, Items string
}

type salesView struct {
	Title       string
	AssetsHost  string
	Accent      template.CSS
	PanelHeight int
	Placeholder string
	Token       string
	Period      string
	StartDate   string
	EndDate     string
	PeriodTypes []Option
	Years       []Option
	Months      []Option
	Quarters    []Option
	Categories  []Option
	ExportQuery template.URL
	Summary     []Metric
	Warnings    []string
	Panels      []panelView
	CategoryRow []categoryRow
}

// SalesPageHTML renders the interactive sales dashboard.
func SalesPageHTML(p *SalesPage, o Options) ([]byte, error) {
	ov := p.Overview
	view := salesView{
		Title:       "Анализ продаж",
		AssetsHost:  assetsHost(o),
		Accent:      template.CSS(report.AccentColor),
		PanelHeight: webPanelHeight,
		Placeholder: NoDataPlaceholder,
		Token:       p.Token,
		Period:      ov.Period.Human(),
		StartDate:   ov.Period.Start.Format(period.DateLayout),
		EndDate:     ov.Period.End.Format(period.DateLayout),
		PeriodTypes: periodTypeOptions(p.Query.PeriodType),
		Years:       intOptions(p.Years, p.Query.Year, strconv.Itoa),
		Months:      intOptions([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, p.Query.Month, func(m int) string { return period.MonthName(time.Month(m)) }),
		Quarters:    intOptions([]int{1, 2, 3, 4}, p.Query.Quarter, func(q int) string { return fmt.Sprintf("%d квартал", q) }),
		Categories:  categoryOptions(ov.Categories, p.Query.Category),
		ExportQuery: exportQuery(p),
		Summary:     summaryMetrics(ov),
		Warnings:    ov.Warnings,
	}

	panels := []Panel{
		{Spec: grossProfitSpec, Series: grossProfitSeries(ov)},
		{Spec: ordersByDaySpec, Series: dailySeries(ordersByDaySpec.Query, ov.Period, ov.OrdersByDay)},
		{Spec: avgOrderSpec, Series: dailySeries(avgOrderSpec.Query, ov.Period, ov.AvgOrderByDay)},
		{Spec: storeRevenue, Series: labeledSeries(storeRevenue.Query, ov.Period, ov.RevenueByStore)},
		{Spec: storeOrders, Series: labeledSeries(storeOrders.Query, ov.Period, ov.OrdersByStore)},
		{Spec: brandRevenue, Series: labeledSeries(brandRevenue.Query, ov.Period, ov.TopBrands)},
		{Spec: categoryRevenue, Series: labeledSeries(categoryRevenue.Query, ov.Period, ov.TopCategories)},
		{Spec: managerSales, Series: labeledSeries(managerSales.Query, ov.Period, ov.SalesByManager)},
	}
	o.Animation = true
	view.Panels = renderPanels(panels, o, panelSize{"sales", webPanelWidth, webPanelHeight})

	for _, c := range ov.CategoryStats {
		view.CategoryRow = append(view.CategoryRow, categoryRow{
			Category:    c.Category,
			Revenue:     document.Money(c.Revenue),
			CostPrice:   document.Money(c.CostPrice),
			GrossProfit: document.Money(c.GrossProfit),
			Margin:      document.Percent(c.MarginPercent),
			Orders:      document.Count(c.Orders),
			Items:       document.Fixed(c.ItemsSold),
		})
	}
	return execute("sales.html", view)
}

// ProductPage is the content of the /products page
type ProductPage struct {
	// Analysis is nil until a product is selected
	Analysis   *catalog.ProductAnalysis
	Countries  []string
	Categories []string
	Token      string
	// Error is shown instead of the product sections
	Error string
}

type stockRow struct {
	Address, Store, Quantity string
}

type supplierRow struct {
	Supplier, Contact, Phone, SuppliedAt, Price string
}

type productView struct {
	Title       string
	AssetsHost  string
	Accent      template.CSS
	PanelHeight int
	Placeholder string
	Token       string
	Countries   []Option
	Categories  []Option
	Error       string
	Selected    bool
	Info        []Metric
	Rating      string
	Panels      []panelView
	Stock       []stockRow
	Suppliers   []supplierRow
}

// ProductPageHTML renders the product search and, when a product is selected,
// its analysis.
func ProductPageHTML(p *ProductPage, o Options) ([]byte, error) {
	view := productView{
		Title:       "Анализ товара",
		AssetsHost:  assetsHost(o),
		Accent:      template.CSS(report.AccentColor),
		PanelHeight: webPanelHeight,
		Placeholder: NoDataPlaceholder,
		Token:       p.Token,
		Countries:   categoryOptions(p.Countries, ""),
		Categories:  categoryOptions(p.Categories, ""),
		Error:       p.Error,
	}

	if a := p.Analysis; a != nil && a.Info != nil {
		view.Selected = true
		view.Title = a.Info.Name
		view.Info = productInfo(a.Info)
		view.Rating = ratingText(a.Ratings)

		panels := []Panel{
			{Spec: popularitySpec, Series: popularitySeries(a.Popularity)},
			{Spec: goodSalesSpec, Series: goodSalesSeries(a)},
			{Spec: genderSpec, Series: shareSeries(genderSpec.Query, a.Gender)},
			{Spec: seasonalitySpec, Series: shareSeries(seasonalitySpec.Query, a.Seasonality)},
			{Spec: ratingSpec, Series: ratingSeries(a.Ratings)},
		}
		o.Animation = true
		view.Panels = renderPanels(panels, o, panelSize{"product", webPanelWidth, webPanelHeight})

		for _, s := range a.Availability {
			view.Stock = append(view.Stock, stockRow{
				Address:  fmt.Sprintf("%s, %s %s", s.City, s.Street, s.Building),
				Store:    s.Store,
				Quantity: document.Count(s.Quantity),
			})
		}
		for _, s := range a.Suppliers {
			row := supplierRow{
				Supplier: s.Supplier,
				Contact:  s.ContactPerson,
				Phone:    s.Phone,
				Price:    document.Money(s.Price),
			}
			if s.SuppliedAt != nil {
				row.SuppliedAt = s.SuppliedAt.Format("02.01.2006")
			}
			view.Suppliers = append(view.Suppliers, row)
		}
	}
	return execute("products.html", view)
}

func execute(name string, view any) ([]byte, error) {
	tmpl, err := getTemplates()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, view); err != nil {
		return nil, fmt.Errorf("executing %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func assetsHost(o Options) string {
	if o.AssetsHost == "" {
		return DefaultAssetsHost
	}
	return o.AssetsHost
}

func periodTypeOptions(selected report.PeriodType) []Option {
	if selected == "" {
		selected = report.PeriodCustom
	}
	types := []struct {
		t     report.PeriodType
		label string
	}{
		{report.PeriodCustom, "Произвольный период"},
		{report.PeriodMonth, "Месяц"},
		{report.PeriodQuarter, "Квартал"},
		{report.PeriodYear, "Год"},
	}
	out := make([]Option, len(types))
	for i, t := range types {
		out[i] = Option{Value: string(t.t), Label: t.label, Selected: t.t == selected}
	}
	return out
}

func intOptions(values []int, selected int, label func(int) string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: strconv.Itoa(v), Label: label(v), Selected: v == selected}
	}
	return out
}

func categoryOptions(values []string, selected string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v, Selected: v == selected}
	}
	return out
}

func exportQuery(p *SalesPage) template.URL {
	q := url.Values{}
	q.Set("start_date", p.Overview.Period.Start.Format(period.DateLayout))
	q.Set("end_date", p.Overview.Period.End.Format(period.DateLayout))
	if p.Query.Category != "" {
		q.Set("category", p.Query.Category)
	}
	if p.Token != "" {
		q.Set("token", p.Token)
	}
	return template.URL(q.Encode())
}

func summaryMetrics(ov *report.SalesOverview) []Metric {
	s := ov.Summary
	return []Metric{
		{Name: "Выручка", Value: document.Money(s.Revenue)},
		{Name: "Заказы", Value: document.Count(s.Orders)},
		{Name: "Себестоимость", Value: document.Money(s.CostOfGoods)},
		{Name: "Зарплаты", Value: document.Money(s.Salaries)},
		{Name: "Аренда", Value: document.Money(s.Rent)},
		{Name: "Маркетинг", Value: document.Money(s.Marketing)},
		{Name: "Логистика", Value: document.Money(s.Logistics)},
		{Name: "Коммунальные услуги", Value: document.Money(s.Utilities)},
		{Name: "Мобильная связь", Value: document.Money(s.Mobile)},
		{Name: "Амортизация", Value: document.Money(s.Depreciation)},
		{Name: "НДС", Value: document.Money(s.VAT)},
		{Name: "Налог на прибыль", Value: document.Money(s.ProfitTax)},
		{Name: "Всего расходов", Value: document.Money(s.TotalExpenses)},
		{Name: "Чистая прибыль", Value: document.Money(s.NetProfit)},
		{Name: "ARPU", Value: document.Money(ov.ARPU.Value)},
	}
}

func productInfo(info *catalog.ProductInfo) []Metric {
	return []Metric{
		{Name: "Артикул", Value: strconv.FormatInt(info.ID, 10)},
		{Name: "Бренд", Value: info.Brand},
		{Name: "Тип", Value: info.Type},
		{Name: "Категория", Value: info.Category},
		{Name: "Страна", Value: info.Country},
		{Name: "Цена", Value: document.Money(info.Price)},
		{Name: "Скидка", Value: document.Percent(info.Discount)},
		{Name: "Цена со скидкой", Value: document.Money(info.DiscountedPrice)},
		{Name: "Срок хранения", Value: info.StorageLife},
	}
}

func ratingText(r catalog.RatingSummary) string {
	if r.Average == nil {
		return "Нет оценок"
	}
	return fmt.Sprintf("%s из 5 (%s отзывов)", r.Average.StringFixed(2), document.Count(r.Count))
}

func grossProfitSeries(ov *report.SalesOverview) *report.Series {
	s := &report.Series{Name: grossProfitSpec.Query, Period: ov.Period}
	for _, d := range ov.GrossProfit {
		s.Points = append(s.Points, report.Point{Date: d.Date, Value: d.GrossProfit, Secondary: d.Revenue})
	}
	return s
}

func dailySeries(name report.QueryName, r period.Range, values []report.DailyValue) *report.Series {
	s := &report.Series{Name: name, Period: r}
	for _, d := range values {
		s.Points = append(s.Points, report.Point{Date: d.Date, Value: d.Value})
	}
	return s
}

func labeledSeries(name report.QueryName, r period.Range, values []report.LabeledValue) *report.Series {
	s := &report.Series{Name: name, Period: r}
	for _, v := range values {
		s.Points = append(s.Points, report.Point{Label: v.Label, Value: v.Value})
	}
	return s
}

func popularitySeries(weeks []catalog.WeeklyPopularity) *report.Series {
	s := &report.Series{Name: popularitySpec.Query}
	for _, w := range weeks {
		s.Points = append(s.Points, report.Point{Date: w.WeekStart, Value: w.Quantity, Secondary: decimal.NewFromInt(w.Orders)})
	}
	return s
}

func goodSalesSeries(a *catalog.ProductAnalysis) *report.Series {
	s := &report.Series{Name: goodSalesSpec.Query, Period: a.SalesPeriod}
	for _, d := range a.Sales {
		s.Points = append(s.Points, report.Point{Date: d.Date, Value: d.Revenue, Secondary: d.Quantity})
	}
	return s
}

func shareSeries(name report.QueryName, shares []catalog.Share) *report.Series {
	s := &report.Series{Name: name}
	for _, sh := range shares {
		s.Points = append(s.Points, report.Point{Label: sh.Label, Value: decimal.NewFromInt(sh.Count)})
	}
	return s
}

func ratingSeries(r catalog.RatingSummary) *report.Series {
	s := &report.Series{Name: ratingSpec.Query}
	for _, b := range r.Distribution {
		s.Points = append(s.Points, report.Point{Label: fmt.Sprintf("%d ★", b.Rating), Value: decimal.NewFromInt(b.Count)})
	}
	return s
}
