package document

import (
	"fmt"

	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// workbook accumulates sheets of one export
type workbook struct {
	f           *excelize.File
	headerStyle int
	moneyStyle  int
	sheets      int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	// two decimals with grouping
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &workbook{f: f, headerStyle: headerStyle, moneyStyle: moneyStyle}, nil
}

// sheet writes a header row and data rows. moneyCols are zero-based columns
// formatted as amounts.
func (w *workbook) sheet(name string, headers []string, rows [][]any, moneyCols ...int) error {
	if w.sheets == 0 {
		if err := w.f.SetSheetName(defaultSheet, name); err != nil {
			return err
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return err
	}
	w.sheets++

	head := make([]any, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &head); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := w.f.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	for _, col := range moneyCols {
		if len(rows) == 0 {
			break
		}
		top, _ := excelize.CoordinatesToCellName(col+1, 2)
		bottom, _ := excelize.CoordinatesToCellName(col+1, len(rows)+1)
		if err := w.f.SetCellStyle(name, top, bottom, w.moneyStyle); err != nil {
			return err
		}
	}

	first, _ := excelize.ColumnNumberToName(1)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	return w.f.SetColWidth(name, first, lastCol, 22)
}

func (w *workbook) bytes() ([]byte, error) {
	defer w.f.Close()
	buf, err := w.f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// ReportWorkbook exports the tables of a narrative report
func ReportWorkbook(data *report.ReportData) ([]byte, error) {
	w, err := newWorkbook()
	if err != nil {
		return nil, xlsxFailed(err)
	}

	best := data.BestProduct()
	summary := [][]any{
		{"Отчетный период", data.Period.Human()},
		{"Общая выручка", money(data.Totals.Revenue)},
		{"Количество продаж", data.Totals.Orders},
		{"Средний чек", money(data.AverageCheck())},
		{"Динамика продаж, %", money(data.Dynamics.Percent)},
		{"Новые покупатели", data.NewCustomers},
		{"Лучший товар", best.Name},
		{"Заказы с доставкой", data.ShippedOrders},
		{"Регионы доставки", data.DeliveryRegions},
	}
	channels := make([][]any, 0, len(data.Channels))
	for _, c := range data.Channels {
		channels = append(channels, []any{c.Channel, c.Orders, money(c.Revenue)})
	}
	rows := make([][]any, 0, len(data.Rows))
	for _, r := range data.Rows {
		rows = append(rows, []any{r.Label, money(r.Revenue), r.Orders, money(r.AverageCheck), money(r.Change)})
	}

	steps := []func() error{
		func() error { return w.sheet("Сводка", []string{"Показатель", "Значение"}, summary) },
		func() error {
			return w.sheet("Каналы", []string{"Канал продаж", "Количество продаж", "Выручка (₽)"}, channels, 2)
		},
		func() error {
			return w.sheet("Динамика", []string{"Дата", "Выручка (₽)", "Количество продаж", "Средний чек (₽)", "Изменение (%)"}, rows, 1, 3)
		},
	}
	return w.finish(steps)
}

// SalesOverviewWorkbook exports the sales dashboard summary and rankings
func SalesOverviewWorkbook(o *report.SalesOverview) ([]byte, error) {
	w, err := newWorkbook()
	if err != nil {
		return nil, xlsxFailed(err)
	}

	s := o.Summary
	summary := [][]any{
		{"Период", o.Period.Human()},
		{"Выручка", money(s.Revenue)},
		{"Себестоимость", money(s.CostOfGoods)},
		{"Зарплаты", money(s.Salaries)},
		{"Аренда", money(s.Rent)},
		{"Маркетинг", money(s.Marketing)},
		{"Логистика", money(s.Logistics)},
		{"Коммунальные услуги", money(s.Utilities)},
		{"Мобильная связь", money(s.Mobile)},
		{"Амортизация", money(s.Depreciation)},
		{"НДС", money(s.VAT)},
		{"Налог на прибыль", money(s.ProfitTax)},
		{"Всего расходов", money(s.TotalExpenses)},
		{"Чистая прибыль", money(s.NetProfit)},
		{"Заказы", s.Orders},
		{"ARPU", money(o.ARPU.Value)},
	}

	stats := make([][]any, 0, len(o.CategoryStats))
	for _, c := range o.CategoryStats {
		stats = append(stats, []any{c.Category, money(c.Revenue), money(c.CostPrice), money(c.GrossProfit), money(c.MarginPercent), c.Orders, c.ItemsSold.InexactFloat64()})
	}

	steps := []func() error{
		func() error { return w.sheet("Сводка", []string{"Показатель", "Значение"}, summary) },
		func() error { return w.sheet("Магазины", []string{"Магазин", "Выручка (₽)"}, labeledRows(o.RevenueByStore), 1) },
		func() error { return w.sheet("Менеджеры", []string{"Менеджер", "Выручка (₽)"}, labeledRows(o.SalesByManager), 1) },
		func() error { return w.sheet("Бренды", []string{"Бренд", "Продано, шт."}, labeledRows(o.TopBrands)) },
		func() error {
			return w.sheet("Категории", []string{"Категория", "Выручка (₽)", "Себестоимость (₽)", "Валовая прибыль (₽)", "Маржа (%)", "Заказы", "Продано, шт."}, stats, 1, 2, 3)
		},
	}
	return w.finish(steps)
}

func (w *workbook) finish(steps []func() error) ([]byte, error) {
	for _, step := range steps {
		if err := step(); err != nil {
			_ = w.f.Close()
			return nil, xlsxFailed(err)
		}
	}
	w.f.SetActiveSheet(0)
	data, err := w.bytes()
	if err != nil {
		return nil, xlsxFailed(err)
	}
	return data, nil
}

func labeledRows(values []report.LabeledValue) [][]any {
	rows := make([][]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, []any{v.Label, money(v.Value)})
	}
	return rows
}

func xlsxFailed(err error) error {
	return fmt.Errorf("%w: xlsx: %v", shared.ErrRenderFailed, err)
}
