package navigation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
)

// Button is one inline keyboard button
type Button struct {
	Text string
	Data string
}

// Menu is an inline keyboard
type Menu struct {
	Rows [][]Button
}

func (m *Menu) row(buttons ...Button) {
	m.Rows = append(m.Rows, buttons)
}

// YearPageSize is the number of year buttons shown at once
const YearPageSize = 3

var backButton = Button{Text: "⬅️ Назад", Data: ev(EventBack, "")}

var granularityButtons = []Button{
	{Text: "Год", Data: ev(EventGranularity, period.Year)},
	{Text: "Полгода", Data: ev(EventGranularity, period.HalfYear)},
	{Text: "Кварталы", Data: ev(EventGranularity, period.Quarter)},
	{Text: "Месяц", Data: ev(EventGranularity, period.Month)},
	{Text: "Недели", Data: ev(EventGranularity, period.Week)},
}

// Render builds the text and keyboard of the session's current state.
func Render(s *Session) (string, Menu) {
	var m Menu
	sel := s.Selection

	switch s.State {
	case GraphTypeMenu:
		for _, c := range report.Charts() {
			m.row(Button{Text: c.Button, Data: ev(EventChart, c.Query)})
		}
		m.row(Button{Text: "Дашборд (PDF)", Data: ev(EventChart, SubtypeDashboard)})
		m.row(backButton)
		return "Выберите тип графика:", m

	case ReportTypeMenu:
		m.row(Button{Text: "Еженедельный отчет", Data: ev(EventReport, SubtypeWeekly)})
		m.row(Button{Text: "Ежемесячный отчет", Data: ev(EventReport, SubtypeMonthly)})
		m.row(backButton)
		return "Выберите тип отчета:", m

	case GranularityMenu:
		m.row(granularityButtons[0], granularityButtons[1])
		m.row(granularityButtons[2], granularityButtons[3])
		m.row(granularityButtons[4])
		m.row(backButton)
		return "Выберите период:", m

	case YearPicker, MonthYearPicker, WeekYearPicker:
		years := make([]Button, 0, YearPageSize)
		for y := sel.Year - YearPageSize + 1; y <= sel.Year; y++ {
			years = append(years, Button{Text: strconv.Itoa(y), Data: ev(EventYear, y)})
		}
		m.row(years...)
		m.row(arrows()...)
		m.row(backButton)
		return "Выберите год:", m

	case HalfyearPicker:
		m.row(
			Button{Text: "1 полугодие", Data: ev(EventHalf, 1)},
			Button{Text: "2 полугодие", Data: ev(EventHalf, 2)},
		)
		m.row(arrows()...)
		m.row(backButton)
		return fmt.Sprintf("Выберите полугодие %d года:", sel.Year), m

	case QuarterPicker:
		for _, pair := range [][2]int{{1, 2}, {3, 4}} {
			m.row(
				Button{Text: fmt.Sprintf("%d квартал", pair[0]), Data: ev(EventQuarter, pair[0])},
				Button{Text: fmt.Sprintf("%d квартал", pair[1]), Data: ev(EventQuarter, pair[1])},
			)
		}
		m.row(arrows()...)
		m.row(backButton)
		return fmt.Sprintf("Выберите квартал %d года:", sel.Year), m

	case MonthPicker, WeekMonthPicker:
		for first := 1; first <= 12; first += 4 {
			row := make([]Button, 0, 4)
			for mo := first; mo < first+4; mo++ {
				row = append(row, Button{Text: period.MonthShort(time.Month(mo)), Data: ev(EventMonth, mo)})
			}
			m.row(row...)
		}
		m.row(backButton)
		return fmt.Sprintf("Выберите месяц %d года:", sel.Year), m

	case WeekPicker:
		for _, w := range period.WeeksOfMonth(sel.Year, time.Month(sel.Month)) {
			m.row(Button{Text: w.Label(), Data: ev(EventWeek, w.Index)})
		}
		m.row(backButton)
		return fmt.Sprintf("Выберите неделю (%s %d):", period.MonthName(time.Month(sel.Month)), sel.Year), m
	}

	return "Главное меню", m
}

func arrows() []Button {
	return []Button{
		{Text: "◀️", Data: ev(EventPrev, "")},
		{Text: "▶️", Data: ev(EventNext, "")},
	}
}
