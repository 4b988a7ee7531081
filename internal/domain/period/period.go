// Package period maps navigation selections (year, half-year, quarter, month, week)
// to concrete inclusive date ranges.
package period

import (
	"fmt"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
)

// Granularity is the unit of time a chart or report is requested for
type Granularity string

const (
	Year     Granularity = "year"
	HalfYear Granularity = "halfyear"
	Quarter  Granularity = "quarter"
	Month    Granularity = "month"
	Week     Granularity = "week"
)

// Valid year bounds accepted by the resolver
const (
	MinYear = 1970
	MaxYear = 2100
)

// Offsets used for previous-period comparisons
const (
	WeeklyOffset  = 7
	MonthlyOffset = 30
)

// DateLayout is the layout used when a range is printed in messages.
const DateLayout = "2006-01-02"

// Range is an inclusive date range. Start and End carry no time-of-day component.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange builds a range from two calendar dates, normalizing both to midnight UTC.
func NewRange(start, end time.Time) Range {
	return Range{Start: Date(start.Year(), start.Month(), start.Day()), End: Date(end.Year(), end.Month(), end.Day())}
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// String renders the range as "YYYY-MM-DD - YYYY-MM-DD".
func (r Range) String() string {
	return r.Start.Format(DateLayout) + " - " + r.End.Format(DateLayout)
}

// Human renders the range as "dd.mm.yyyy - dd.mm.yyyy".
func (r Range) Human() string {
	return r.Start.Format("02.01.2006") + " - " + r.End.Format("02.01.2006")
}

// Days returns the number of calendar days in the range, both ends included.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// EachDay returns every date of the range in ascending order.
func (r Range) EachDay() []time.Time {
	days := make([]time.Time, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Request identifies one period in the navigation tree.
// Month is required for Month and Week. Index is the half (1-2), quarter (1-4)
// or zero-based week index depending on Granularity.
type Request struct {
	Granularity Granularity
	Year        int
	Month       int
	Index       int
}

// Resolve maps a request to its inclusive date range. Out-of-range anchors are
// rejected with shared.ErrInvalidPeriod and never clamped.
func Resolve(req Request) (Range, error) {
	if req.Year < MinYear || req.Year > MaxYear {
		return Range{}, invalid("year %d outside %d-%d", req.Year, MinYear, MaxYear)
	}

	switch req.Granularity {
	case Year:
		return Range{Start: Date(req.Year, time.January, 1), End: Date(req.Year, time.December, 31)}, nil

	case HalfYear:
		switch req.Index {
		case 1:
			return Range{Start: Date(req.Year, time.January, 1), End: Date(req.Year, time.June, 30)}, nil
		case 2:
			return Range{Start: Date(req.Year, time.July, 1), End: Date(req.Year, time.December, 31)}, nil
		}
		return Range{}, invalid("half-year %d outside 1-2", req.Index)

	case Quarter:
		if req.Index < 1 || req.Index > 4 {
			return Range{}, invalid("quarter %d outside 1-4", req.Index)
		}
		first := time.Month((req.Index-1)*3 + 1)
		last := first + 2
		return Range{Start: Date(req.Year, first, 1), End: Date(req.Year, last, DaysIn(req.Year, last))}, nil

	case Month:
		if err := checkMonth(req.Month); err != nil {
			return Range{}, err
		}
		m := time.Month(req.Month)
		return Range{Start: Date(req.Year, m, 1), End: Date(req.Year, m, DaysIn(req.Year, m))}, nil

	case Week:
		if err := checkMonth(req.Month); err != nil {
			return Range{}, err
		}
		weeks := WeeksOfMonth(req.Year, time.Month(req.Month))
		if req.Index < 0 || req.Index >= len(weeks) {
			return Range{}, invalid("week %d outside 0-%d", req.Index, len(weeks)-1)
		}
		return weeks[req.Index].Range, nil
	}

	return Range{}, invalid("unknown granularity %q", req.Granularity)
}

// Previous returns the range of equal length shifted back by the given number of days.
func Previous(r Range, days int) Range {
	return Range{Start: r.Start.AddDate(0, 0, -days), End: r.End.AddDate(0, 0, -days)}
}

// ClipToToday moves a future end date back to today. A range that starts after
// today is returned unchanged.
func ClipToToday(r Range, today time.Time) Range {
	t := Date(today.Year(), today.Month(), today.Day())
	if r.End.After(t) && !r.Start.After(t) {
		r.End = t
	}
	return r
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

func checkMonth(month int) error {
	if month < 1 || month > 12 {
		return invalid("month %d outside 1-12", month)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrInvalidPeriod, fmt.Sprintf(format, args...))
}
