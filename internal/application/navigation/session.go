// Package navigation drives the per-user menu flow that leads from the main menu
// to a produced chart, dashboard or report.
package navigation

import (
	"time"

	"github.com/bimate/backend/internal/domain/period"
)

// State is one screen of the navigation flow
type State string

const (
	MainMenu        State = "main_menu"
	GraphTypeMenu   State = "graph_type"
	ReportTypeMenu  State = "report_type"
	GranularityMenu State = "granularity"
	YearPicker      State = "year"
	HalfyearPicker  State = "halfyear"
	QuarterPicker   State = "quarter"
	MonthYearPicker State = "month_year"
	MonthPicker     State = "month"
	WeekYearPicker  State = "week_year"
	WeekMonthPicker State = "week_month"
	WeekPicker      State = "week"
	Produced        State = "produced"
)

// Flow is the branch chosen in the main menu
type Flow string

const (
	FlowGraph  Flow = "graph"
	FlowReport Flow = "report"
)

// Report subtypes of the report flow and the dashboard entry of the graph flow
const (
	SubtypeWeekly    = "weekly"
	SubtypeMonthly   = "monthly"
	SubtypeDashboard = "dashboard"
)

// Selection holds every choice made so far. Zero values mean "not chosen yet".
type Selection struct {
	Granularity period.Granularity `json:"granularity,omitempty"`
	Year        int                `json:"year"`
	Month       int                `json:"month,omitempty"`
	Half        int                `json:"half,omitempty"`
	Quarter     int                `json:"quarter,omitempty"`
	Week        int                `json:"week,omitempty"`
}

// Session is the navigation state of one user. There is at most one per user.
type Session struct {
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	Flow      Flow      `json:"flow"`
	Subtype   string    `json:"subtype,omitempty"`
	State     State     `json:"state"`
	Selection Selection `json:"selection"`
	History   []State   `json:"history"`
	MessageID int       `json:"message_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts a flow at its type menu.
func NewSession(userID, chatID int64, flow Flow, year int) *Session {
	state := GraphTypeMenu
	if flow == FlowReport {
		state = ReportTypeMenu
	}
	return &Session{
		UserID:    userID,
		ChatID:    chatID,
		Flow:      flow,
		State:     state,
		Selection: Selection{Year: year},
		History:   []State{},
	}
}

// push records the current state and moves to next.
func (s *Session) push(next State) {
	s.History = append(s.History, s.State)
	s.State = next
}

// pop returns to the previous state. It reports false when the history is empty.
func (s *Session) pop() bool {
	if len(s.History) == 0 {
		return false
	}
	s.State = s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	return true
}

// Request maps the selection to a period request.
func (s *Session) Request() period.Request {
	sel := s.Selection
	req := period.Request{Granularity: sel.Granularity, Year: sel.Year, Month: sel.Month}
	switch sel.Granularity {
	case period.HalfYear:
		req.Index = sel.Half
	case period.Quarter:
		req.Index = sel.Quarter
	case period.Week:
		req.Index = sel.Week
	}
	return req
}
