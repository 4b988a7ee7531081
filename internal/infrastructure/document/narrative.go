package document

import (
	"strings"
	"time"

	"github.com/bimate/backend/internal/domain/report"
)

const bullet = "• "

// Signature block captions
var signatureCaptions = []string{"Материально ответственное лицо", "Аналитик продаж", "", "подпись", "", "расшифровка подписи"}

// NarrativeMeta is the static part of a narrative report
type NarrativeMeta struct {
	CompanyLines []string
	Responsible  string
	Issued       time.Time
}

// NarrativeReport lays out a weekly or monthly sales report: header, headline
// metrics, top product, channels, temporal breakdown, delivery, date stamp and
// signature block.
func NarrativeReport(data *report.ReportData, meta NarrativeMeta) *Document {
	weekly := data.Cadence != report.Monthly
	title := "ЕЖЕМЕСЯЧНЫЙ ОТЧЕТ ПО ПРОДАЖАМ"
	if weekly {
		title = "ЕЖЕНЕДЕЛЬНЫЙ ОТЧЕТ ПО ПРОДАЖАМ"
	}

	doc := &Document{Title: title, FontName: "Times New Roman", FontSize: 12, Created: meta.Issued}
	doc.Add(
		Table{
			Rows:   [][]Cell{{{Text: "BI Mate", Bold: true, Size: 16}, {Text: strings.Join(meta.CompanyLines, "\n"), Size: 10, Align: AlignRight}}},
			Widths: []int{2880, 7042},
		},
		Paragraph{},
		Paragraph{Text: title, Bold: true, Size: 14, Align: AlignCenter},
		Paragraph{Text: "Отчетный период: " + data.Period.Human(), Align: AlignCenter},
		Paragraph{},
	)

	doc.Add(Paragraph{Text: "1. Общие показатели", Style: StyleHeading1})
	doc.Add(bullets(
		"Общая выручка: "+Fixed(data.Totals.Revenue)+" ₽",
		"Количество продаж: "+Count(data.Totals.Orders),
		"Средний чек: "+Fixed(data.AverageCheck())+" ₽",
		"Динамика продаж: "+Percent(data.Dynamics.Percent),
		"Количество новых покупателей: "+Count(data.NewCustomers),
	)...)

	best := data.BestProduct()
	doc.Add(Paragraph{Text: "2. Анализ продаж", Style: StyleHeading2})
	doc.Add(bullets(
		"Лучший продаваемый товар/услуга: "+best.Name,
		"Количество проданных единиц: "+best.Quantity.String(),
		"Выручка от данного товара/услуги: "+Fixed(best.Revenue)+" ₽",
	)...)

	doc.Add(Paragraph{Text: "3. Анализ каналов продаж", Style: StyleHeading2})
	doc.Add(channelsTable(data.Channels))

	if weekly {
		doc.Add(Paragraph{Text: "4. Динамика продаж за неделю", Style: StyleHeading2})
		doc.Add(periodTable(data, "Изменение vs. прошлой недели (%)", true))
	} else {
		doc.Add(Paragraph{Text: "4. Динамика продаж за месяц", Style: StyleHeading2})
		doc.Add(periodTable(data, "Изменение vs. прошлый месяц (%)", false))
	}

	doc.Add(Paragraph{Text: "5. Доставка", Style: StyleHeading2})
	doc.Add(bullets(
		"Количество заказов с доставкой: "+Count(data.ShippedOrders),
		"Среднее время доставки: "+data.DeliveryTime,
		"Основные регионы доставки: "+data.DeliveryRegions,
	)...)

	issued := meta.Issued
	if issued.IsZero() {
		issued = time.Now()
	}
	signature := make([]Cell, len(signatureCaptions))
	for i, c := range signatureCaptions {
		signature[i] = Cell{Text: c}
	}
	signature[len(signature)-1].Text = meta.Responsible

	doc.Add(
		Paragraph{},
		Paragraph{Text: "Дата составления отчета: " + issued.Format("02.01.2006")},
		Table{Rows: [][]Cell{signature}, Grid: true},
	)
	return doc
}

func bullets(items ...string) []Block {
	out := make([]Block, len(items))
	for i, item := range items {
		out[i] = Paragraph{Text: bullet + item, Style: StyleListBullet}
	}
	return out
}

func header(captions ...string) []Cell {
	row := make([]Cell, len(captions))
	for i, c := range captions {
		row[i] = Cell{Text: c, Bold: true, Align: AlignCenter}
	}
	return row
}

func centered(values ...string) []Cell {
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = Cell{Text: v, Align: AlignCenter}
	}
	return row
}

func channelsTable(rows []report.ChannelRow) Table {
	t := Table{Grid: true, Widths: []int{3922, 3000, 3000}}
	t.Rows = append(t.Rows, header("Канал продаж", "Количество продаж", "Выручка (₽)"))
	for _, r := range rows {
		t.Rows = append(t.Rows, centered(r.Channel, Count(r.Orders), Fixed(r.Revenue)))
	}
	return t
}

func periodTable(data *report.ReportData, changeCaption string, withTotal bool) Table {
	t := Table{Grid: true, Widths: []int{2300, 1800, 1800, 1800, 2222}}
	t.Rows = append(t.Rows, header("Дата", "Выручка (₽)", "Количество продаж", "Средний чек (₽)", changeCaption))
	for _, r := range data.Rows {
		t.Rows = append(t.Rows, centered(r.Label, Fixed(r.Revenue), Count(r.Orders), Fixed(r.AverageCheck), Fixed(r.Change)))
	}
	if withTotal {
		total := centered("Итого", Fixed(data.Totals.Revenue), Count(data.Totals.Orders), Fixed(data.AverageCheck()), Fixed(data.Dynamics.Percent))
		for i := range total {
			total[i].Bold = true
		}
		t.Rows = append(t.Rows, total)
	}
	return t
}
