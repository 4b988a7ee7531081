package period

import (
	"fmt"
	"time"
)

// WeekSpan is one selectable week of a month.
type WeekSpan struct {
	Index int
	Range Range
}

// Label is the button caption, e.g. "Неделя 1 (05.02 - 11.02)".
func (w WeekSpan) Label() string {
	return fmt.Sprintf("Неделя %d (%s - %s)", w.Index+1, w.Range.Start.Format("02.01"), w.Range.End.Format("02.01"))
}

// WeeksOfMonth partitions the month into Monday-first calendar rows. A row whose
// Monday falls in the previous month is skipped entirely; a row whose Sunday falls
// in the next month ends on the month's last day.
func WeeksOfMonth(year int, month time.Month) []WeekSpan {
	first := Date(year, month, 1)
	offset := (int(first.Weekday()) + 6) % 7
	last := DaysIn(year, month)
	rows := (offset + last + 6) / 7

	weeks := make([]WeekSpan, 0, rows)
	for row := 0; row < rows; row++ {
		monday := row*7 - offset + 1
		if monday < 1 {
			continue
		}
		sunday := monday + 6
		if sunday > last {
			sunday = last
		}
		weeks = append(weeks, WeekSpan{
			Index: len(weeks),
			Range: Range{Start: Date(year, month, monday), End: Date(year, month, sunday)},
		})
	}
	return weeks
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var monthShort = [...]string{
	"Янв", "Фев", "Мар", "Апр", "Май", "Июн",
	"Июл", "Авг", "Сен", "Окт", "Ноя", "Дек",
}

// MonthName returns the Russian month name in the nominative case.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// MonthShort returns the three-letter picker caption.
func MonthShort(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthShort[m-1]
}
