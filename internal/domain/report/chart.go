package report

// QueryName identifies one fixed chart aggregation of the sales database.
type QueryName string

const (
	SalesDynamics  QueryName = "sales_dynamics"
	CategorySales  QueryName = "category_sales"
	CityRevenue    QueryName = "city_revenue"
	PaymentMethods QueryName = "payment_methods"
	GenderStats    QueryName = "gender_stats"
	TopGoods       QueryName = "top_goods"
	OrderDynamics  QueryName = "order_dynamics"
	TopBrands      QueryName = "top_brend"
)

// ChartKind selects the chart shape a series is drawn with
type ChartKind string

const (
	LineChart ChartKind = "line"
	BarChart  ChartKind = "bar"
	PieChart  ChartKind = "pie"
)

// Chart colors shared by every renderer.
const (
	AccentColor = "#e95150"
	AreaOpacity = 0.15
)

// PiePalette holds the three named slice colors; extra slices reuse them cyclically.
var PiePalette = []string{"#953269", "#e95150", "#f5936e"}

// ChartSpec is the fixed presentation contract of one chart query.
type ChartSpec struct {
	Query  QueryName
	Kind   ChartKind
	Title  string
	Button string
	XName  string
	YName  string
	// Thousands divides values by 1000 before drawing.
	Thousands bool
	// IntegerLabels prints bar labels without decimals.
	IntegerLabels bool
}

var chartSpecs = []ChartSpec{
	{Query: SalesDynamics, Kind: LineChart, Title: "Динамика выручки", Button: "Динамика выручки", XName: "Дата", YName: "Выручка, тыс. ₽", Thousands: true},
	{Query: CategorySales, Kind: BarChart, Title: "Выручка по категориям", Button: "Категории товаров", XName: "Категория", YName: "Выручка, тыс. ₽", Thousands: true},
	{Query: CityRevenue, Kind: BarChart, Title: "Выручка по городам", Button: "Выручка по городам", XName: "Город", YName: "Выручка, тыс. ₽", Thousands: true},
	{Query: PaymentMethods, Kind: PieChart, Title: "Методы оплаты", Button: "Методы оплаты"},
	{Query: GenderStats, Kind: PieChart, Title: "Распределение по полу", Button: "Пол покупателей"},
	{Query: TopGoods, Kind: BarChart, Title: "Топ-10 товаров", Button: "Топ-10 товаров", XName: "Товар", YName: "Количество проданных единиц", IntegerLabels: true},
	{Query: OrderDynamics, Kind: LineChart, Title: "Динамика заказов", Button: "Динамика заказов", XName: "Дата", YName: "Количество заказов"},
	{Query: TopBrands, Kind: BarChart, Title: "Топ-15 брендов", Button: "Топ-15 брендов", XName: "Бренд", YName: "Количество проданных единиц", IntegerLabels: true},
}

// Charts returns the chart catalogue in menu order.
func Charts() []ChartSpec {
	out := make([]ChartSpec, len(chartSpecs))
	copy(out, chartSpecs)
	return out
}

// LookupChart finds the chart spec for a query name.
func LookupChart(name QueryName) (ChartSpec, bool) {
	for _, s := range chartSpecs {
		if s.Query == name {
			return s, true
		}
	}
	return ChartSpec{}, false
}

// PieColor returns the palette color for the i-th slice.
func PieColor(i int) string {
	return PiePalette[i%len(PiePalette)]
}
