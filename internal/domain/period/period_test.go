package period

import (
	"errors"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Year(t *testing.T) {
	for _, y := range []int{1970, 2023, 2024, 2100} {
		r, err := Resolve(Request{Granularity: Year, Year: y})
		require.NoError(t, err)
		assert.Equal(t, Date(y, time.January, 1), r.Start)
		assert.Equal(t, Date(y, time.December, 31), r.End)
	}
}

func TestResolve_HalfYear(t *testing.T) {
	h1, err := Resolve(Request{Granularity: HalfYear, Year: 2024, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 - 2024-06-30", h1.String())

	h2, err := Resolve(Request{Granularity: HalfYear, Year: 2024, Index: 2})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01 - 2024-12-31", h2.String())
}

func TestResolve_QuartersPartitionYear(t *testing.T) {
	for _, y := range []int{2023, 2024} {
		var prevEnd time.Time
		total := 0
		for q := 1; q <= 4; q++ {
			r, err := Resolve(Request{Granularity: Quarter, Year: y, Index: q})
			require.NoError(t, err)
			if q == 1 {
				assert.Equal(t, Date(y, time.January, 1), r.Start)
			} else {
				assert.Equal(t, prevEnd.AddDate(0, 0, 1), r.Start, "quarter %d must follow the previous one", q)
			}
			prevEnd = r.End
			total += r.Days()
		}
		assert.Equal(t, Date(y, time.December, 31), prevEnd)
		yearRange, _ := Resolve(Request{Granularity: Year, Year: y})
		assert.Equal(t, yearRange.Days(), total)
	}
}

func TestResolve_Month(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{2024, 2, "2024-02-01 - 2024-02-29"},
		{2023, 2, "2023-02-01 - 2023-02-28"},
		{2024, 4, "2024-04-01 - 2024-04-30"},
		{2024, 12, "2024-12-01 - 2024-12-31"},
	}
	for _, tt := range tests {
		r, err := Resolve(Request{Granularity: Month, Year: tt.year, Month: tt.month})
		require.NoError(t, err)
		assert.Equal(t, tt.want, r.String())
	}
}

func TestResolve_InvalidAnchors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"month zero", Request{Granularity: Month, Year: 2024, Month: 0}},
		{"month thirteen", Request{Granularity: Month, Year: 2024, Month: 13}},
		{"week month out of range", Request{Granularity: Week, Year: 2024, Month: 14}},
		{"year too small", Request{Granularity: Year, Year: 1899}},
		{"year too large", Request{Granularity: Year, Year: 3000}},
		{"quarter five", Request{Granularity: Quarter, Year: 2024, Index: 5}},
		{"half three", Request{Granularity: HalfYear, Year: 2024, Index: 3}},
		{"week index past end", Request{Granularity: Week, Year: 2024, Month: 2, Index: 4}},
		{"negative week", Request{Granularity: Week, Year: 2024, Month: 2, Index: -1}},
		{"unknown granularity", Request{Granularity: "decade", Year: 2024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidPeriod))
		})
	}
}

func TestWeeksOfMonth_February2024(t *testing.T) {
	weeks := WeeksOfMonth(2024, time.February)
	require.Len(t, weeks, 4)

	assert.Equal(t, "2024-02-05 - 2024-02-11", weeks[0].Range.String())
	assert.Equal(t, "2024-02-12 - 2024-02-18", weeks[1].Range.String())
	assert.Equal(t, "2024-02-19 - 2024-02-25", weeks[2].Range.String())
	assert.Equal(t, "2024-02-26 - 2024-02-29", weeks[3].Range.String())

	r, err := Resolve(Request{Granularity: Week, Year: 2024, Month: 2, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, weeks[0].Range, r)
	assert.Equal(t, "Неделя 1 (05.02 - 11.02)", weeks[0].Label())
}

func TestWeeksOfMonth_MonthStartingOnMonday(t *testing.T) {
	// April 2024 starts on a Monday.
	weeks := WeeksOfMonth(2024, time.April)
	require.Len(t, weeks, 5)
	assert.Equal(t, 1, weeks[0].Range.Start.Day())
	assert.Equal(t, 7, weeks[0].Range.End.Day())
	assert.Equal(t, "2024-04-29 - 2024-04-30", weeks[4].Range.String())
}

func TestWeeksOfMonth_Properties(t *testing.T) {
	for year := 2020; year <= 2026; year++ {
		for m := time.January; m <= time.December; m++ {
			weeks := WeeksOfMonth(year, m)
			require.NotEmpty(t, weeks)
			last := DaysIn(year, m)

			for i, w := range weeks {
				assert.Equal(t, i, w.Index)
				assert.Equal(t, time.Monday, w.Range.Start.Weekday(), "%d-%02d week %d", year, m, i)
				assert.GreaterOrEqual(t, w.Range.Start.Day(), 1)
				assert.LessOrEqual(t, w.Range.End.Day(), last)
				assert.False(t, w.Range.Start.After(w.Range.End))
				if i > 0 {
					assert.Equal(t, weeks[i-1].Range.End.AddDate(0, 0, 1), w.Range.Start, "weeks must be contiguous")
				}
			}

			// Only the final week may be truncated.
			tail := weeks[len(weeks)-1]
			assert.Equal(t, last, tail.Range.End.Day())
			for _, w := range weeks[:len(weeks)-1] {
				assert.Equal(t, 7, w.Range.Days())
			}
			// Days before the first Monday are the only uncovered ones.
			assert.LessOrEqual(t, weeks[0].Range.Start.Day(), 7)
		}
	}
}

func TestPrevious(t *testing.T) {
	r := Range{Start: Date(2024, time.March, 4), End: Date(2024, time.March, 10)}

	wk := Previous(r, WeeklyOffset)
	assert.Equal(t, "2024-02-26 - 2024-03-03", wk.String())

	m := Range{Start: Date(2024, time.March, 1), End: Date(2024, time.March, 31)}
	mo := Previous(m, MonthlyOffset)
	assert.Equal(t, "2024-01-31 - 2024-03-01", mo.String())
	assert.Equal(t, m.Days(), mo.Days())
}

func TestClipToToday(t *testing.T) {
	today := time.Date(2024, time.May, 15, 13, 45, 0, 0, time.UTC)

	r := Range{Start: Date(2024, time.May, 1), End: Date(2024, time.May, 31)}
	assert.Equal(t, "2024-05-01 - 2024-05-15", ClipToToday(r, today).String())

	past := Range{Start: Date(2024, time.April, 1), End: Date(2024, time.April, 30)}
	assert.Equal(t, past, ClipToToday(past, today))

	future := Range{Start: Date(2024, time.June, 1), End: Date(2024, time.June, 30)}
	assert.Equal(t, future, ClipToToday(future, today))
}

func TestRange_EachDay(t *testing.T) {
	r := Range{Start: Date(2024, time.February, 26), End: Date(2024, time.March, 3)}
	days := r.EachDay()
	require.Len(t, days, r.Days())
	assert.Equal(t, 7, len(days))
	assert.Equal(t, Date(2024, time.February, 29), days[3])
}

func TestMonthNames(t *testing.T) {
	assert.Equal(t, "Февраль", MonthName(time.February))
	assert.Equal(t, "Дек", MonthShort(time.December))
	assert.Equal(t, "", MonthName(0))
}
