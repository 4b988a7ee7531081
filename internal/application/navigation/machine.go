package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/bimate/backend/internal/domain/report"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/bimate/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// User-facing texts
const (
	GeneratingText  = "Идет генерация..."
	SessionLostText = "Состояние утеряно. Начните заново."
	MainMenuText    = "Главное меню"
	failurePrefix   = "Произошла ошибка при создании отчета: "
)

// Notifier delivers menus, texts and artifacts to a chat
type Notifier interface {
	SendMenu(ctx context.Context, chatID int64, text string, menu Menu) (int, error)
	EditMenu(ctx context.Context, chatID int64, msgID int, text string, menu Menu) error
	Delete(ctx context.Context, chatID int64, msgID int) error
	SendText(ctx context.Context, chatID int64, text string) error
	SendArtifact(ctx context.Context, chatID int64, artifact *report.Artifact) error
}

// Producer builds the artifact a finished flow asks for
type Producer interface {
	Produce(ctx context.Context, req report.ArtifactRequest) (*report.Artifact, error)
}

// action is what the machine does after a transition
type action int

const (
	actionRender action = iota
	actionProduce
	actionExit
)

type transitionKey struct {
	state State
	kind  EventKind
}

// transition mutates the session for one event
type transition func(s *Session, e Event) (action, error)

var transitions = map[transitionKey]transition{
	{GraphTypeMenu, EventChart}:         chooseChart,
	{ReportTypeMenu, EventReport}:       chooseReport,
	{GranularityMenu, EventGranularity}: chooseGranularity,
	{YearPicker, EventYear}:             chooseYear,
	{MonthYearPicker, EventYear}:        chooseYear,
	{WeekYearPicker, EventYear}:         chooseYear,
	{HalfyearPicker, EventHalf}:         chooseHalf,
	{QuarterPicker, EventQuarter}:       chooseQuarter,
	{MonthPicker, EventMonth}:           chooseMonth,
	{WeekMonthPicker, EventMonth}:       chooseMonth,
	{WeekPicker, EventWeek}:             chooseWeek,
}

// yearStates carry year arrows
var yearStates = []State{YearPicker, HalfyearPicker, QuarterPicker, MonthYearPicker, WeekYearPicker}

func init() {
	for _, st := range yearStates {
		transitions[transitionKey{st, EventPrev}] = shiftYear(-1)
		transitions[transitionKey{st, EventNext}] = shiftYear(1)
	}
	for _, st := range []State{
		GraphTypeMenu, ReportTypeMenu, GranularityMenu, YearPicker, HalfyearPicker, QuarterPicker,
		MonthYearPicker, MonthPicker, WeekYearPicker, WeekMonthPicker, WeekPicker,
	} {
		transitions[transitionKey{st, EventBack}] = back
	}
}

// Machine is the navigation state machine. Events of one user are serialized.
type Machine struct {
	store    SessionStore
	notifier Notifier
	producer Producer
	locks    *KeyedMutex
	now      func() time.Time
	logger   *zap.Logger
}

// MachineOption configures a Machine
type MachineOption func(*Machine)

// WithClock overrides the clock used for the default year and date clipping.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a new Machine
func NewMachine(store SessionStore, notifier Notifier, producer Producer, logger *zap.Logger, opts ...MachineOption) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Machine{
		store:    store,
		notifier: notifier,
		producer: producer,
		locks:    NewKeyedMutex(),
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a flow, replacing any session the user already has.
func (m *Machine) Start(ctx context.Context, userID, chatID int64, flow Flow) error {
	unlock := m.locks.Lock(userID)
	defer unlock()

	if old, err := m.store.Get(ctx, userID); err == nil && old.MessageID != 0 {
		m.deleteMessage(ctx, old.ChatID, old.MessageID)
	}

	s := NewSession(userID, chatID, flow, m.now().Year())
	text, menu := Render(s)
	msgID, err := m.notifier.SendMenu(ctx, chatID, text, menu)
	if err != nil {
		return fmt.Errorf("send menu: %w", err)
	}
	s.MessageID = msgID
	return m.save(ctx, s)
}

// Handle applies one callback to the user's session.
func (m *Machine) Handle(ctx context.Context, userID, chatID int64, data string) error {
	e, err := ParseEvent(data)
	if err != nil {
		return err
	}

	unlock := m.locks.Lock(userID)
	defer unlock()

	s, err := m.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			m.log(ctx).Warn("session store unavailable", zap.Error(err))
		}
		if sendErr := m.notifier.SendText(ctx, chatID, SessionLostText); sendErr != nil {
			m.log(ctx).Warn("session lost notice failed", zap.Error(sendErr))
		}
		return shared.ErrSessionLost
	}

	t, ok := transitions[transitionKey{s.State, e.Kind}]
	if !ok {
		m.log(ctx).Debug("event ignored in state",
			zap.String("state", string(s.State)), zap.String("event", e.Encode()))
		return fmt.Errorf("%w: event %s not expected in state %s", shared.ErrInvalidInput, e.Kind, s.State)
	}
	act, err := t(s, e)
	if err != nil {
		return err
	}

	switch act {
	case actionExit:
		m.deleteMessage(ctx, s.ChatID, s.MessageID)
		if err := m.store.Delete(ctx, userID); err != nil {
			m.log(ctx).Warn("session delete failed", zap.Error(err))
		}
		return m.notifier.SendText(ctx, s.ChatID, MainMenuText)
	case actionProduce:
		return m.produce(ctx, s)
	}

	text, menu := Render(s)
	if err := m.notifier.EditMenu(ctx, s.ChatID, s.MessageID, text, menu); err != nil {
		return fmt.Errorf("edit menu: %w", err)
	}
	return m.save(ctx, s)
}

// produce runs the terminal step. The session is destroyed on every path and the
// progress notice is always removed.
func (m *Machine) produce(ctx context.Context, s *Session) error {
	s.State = Produced
	defer func() {
		if err := m.store.Delete(ctx, s.UserID); err != nil {
			m.log(ctx).Warn("session delete failed", zap.Error(err))
		}
	}()

	m.deleteMessage(ctx, s.ChatID, s.MessageID)

	req, err := m.request(s)
	if err != nil {
		return m.fail(ctx, s.ChatID, err)
	}

	noticeID, err := m.notifier.SendMenu(ctx, s.ChatID, GeneratingText, Menu{})
	if err != nil {
		m.log(ctx).Warn("progress notice failed", zap.Error(err))
	}
	if noticeID != 0 {
		defer m.deleteMessage(ctx, s.ChatID, noticeID)
	}

	artifact, err := m.producer.Produce(ctx, req)
	if err != nil {
		return m.fail(ctx, s.ChatID, err)
	}
	if err := m.notifier.SendArtifact(ctx, s.ChatID, artifact); err != nil {
		return m.fail(ctx, s.ChatID, fmt.Errorf("%w: deliver %s: %w", shared.ErrRenderFailed, artifact.Filename, err))
	}
	return nil
}

// request maps the finished session to an artifact request
func (m *Machine) request(s *Session) (report.ArtifactRequest, error) {
	r, err := period.Resolve(s.Request())
	if err != nil {
		return report.ArtifactRequest{}, err
	}
	r = period.ClipToToday(r, m.now())

	req := report.ArtifactRequest{Period: r}
	switch {
	case s.Flow == FlowReport && s.Subtype == SubtypeMonthly:
		req.Kind = report.KindMonthlyReport
	case s.Flow == FlowReport:
		req.Kind = report.KindWeeklyReport
	case s.Subtype == SubtypeDashboard:
		req.Kind = report.KindDashboard
	default:
		req.Kind = report.KindChart
		req.Subtype = report.QueryName(s.Subtype)
	}
	return req, nil
}

func (m *Machine) fail(ctx context.Context, chatID int64, err error) error {
	var noData *report.NoDataError
	if errors.As(err, &noData) {
		m.log(ctx).Info("no data for request", zap.String("query", string(noData.Query)), zap.String("period", noData.Period.String()))
	} else {
		m.log(ctx).Error("artifact production failed", zap.Error(err))
	}
	if sendErr := m.notifier.SendText(ctx, chatID, UserMessage(err)); sendErr != nil {
		m.log(ctx).Warn("failure notice failed", zap.Error(sendErr))
	}
	return err
}

// UserMessage translates a production error into the text shown in chat.
func UserMessage(err error) string {
	var noData *report.NoDataError
	switch {
	case errors.As(err, &noData):
		return noData.Error()
	case errors.Is(err, shared.ErrInvalidPeriod):
		return failurePrefix + "некорректный период."
	case errors.Is(err, shared.ErrDataUnavailable):
		return failurePrefix + "база данных недоступна."
	case errors.Is(err, shared.ErrRenderFailed):
		return failurePrefix + "не удалось сформировать файл."
	}
	return failurePrefix + "внутренняя ошибка."
}

func (m *Machine) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Machine) deleteMessage(ctx context.Context, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if err := m.notifier.Delete(ctx, chatID, msgID); err != nil {
		m.log(ctx).Debug("message delete failed", zap.Int("message_id", msgID), zap.Error(err))
	}
}

func (m *Machine) log(ctx context.Context) *logger.ContextLogger {
	if _, ok := ctx.Value(logger.LoggerKey).(*zap.Logger); ok {
		return logger.L(ctx)
	}
	return logger.WithLogger(ctx, m.logger)
}

// =============================================================================
// Transitions
// =============================================================================

func chooseChart(s *Session, e Event) (action, error) {
	if _, ok := report.LookupChart(report.QueryName(e.Value)); !ok && e.Value != SubtypeDashboard {
		return 0, fmt.Errorf("%w: unknown chart %q", shared.ErrInvalidInput, e.Value)
	}
	s.Subtype = e.Value
	s.push(GranularityMenu)
	return actionRender, nil
}

func chooseReport(s *Session, e Event) (action, error) {
	switch e.Value {
	case SubtypeWeekly:
		s.Selection.Granularity = period.Week
		s.Subtype = e.Value
		s.push(WeekYearPicker)
	case SubtypeMonthly:
		s.Selection.Granularity = period.Month
		s.Subtype = e.Value
		s.push(MonthYearPicker)
	default:
		return 0, fmt.Errorf("%w: unknown report %q", shared.ErrInvalidInput, e.Value)
	}
	return actionRender, nil
}

var granularityPickers = map[period.Granularity]State{
	period.Year:     YearPicker,
	period.HalfYear: HalfyearPicker,
	period.Quarter:  QuarterPicker,
	period.Month:    MonthYearPicker,
	period.Week:     WeekYearPicker,
}

func chooseGranularity(s *Session, e Event) (action, error) {
	g := period.Granularity(e.Value)
	next, ok := granularityPickers[g]
	if !ok {
		return 0, fmt.Errorf("%w: unknown granularity %q", shared.ErrInvalidInput, e.Value)
	}
	s.Selection.Granularity = g
	s.push(next)
	return actionRender, nil
}

func chooseYear(s *Session, e Event) (action, error) {
	year, err := e.Int()
	if err != nil {
		return 0, err
	}
	s.Selection.Year = year
	switch s.State {
	case MonthYearPicker:
		s.push(MonthPicker)
	case WeekYearPicker:
		s.push(WeekMonthPicker)
	default:
		return actionProduce, nil
	}
	return actionRender, nil
}

func chooseHalf(s *Session, e Event) (action, error) {
	half, err := e.Int()
	if err != nil {
		return 0, err
	}
	s.Selection.Half = half
	return actionProduce, nil
}

func chooseQuarter(s *Session, e Event) (action, error) {
	q, err := e.Int()
	if err != nil {
		return 0, err
	}
	s.Selection.Quarter = q
	return actionProduce, nil
}

func chooseMonth(s *Session, e Event) (action, error) {
	month, err := e.Int()
	if err != nil {
		return 0, err
	}
	s.Selection.Month = month
	if s.State == WeekMonthPicker {
		if month < 1 || month > 12 {
			return 0, fmt.Errorf("%w: month %d outside 1-12", shared.ErrInvalidPeriod, month)
		}
		s.push(WeekPicker)
		return actionRender, nil
	}
	return actionProduce, nil
}

func chooseWeek(s *Session, e Event) (action, error) {
	week, err := e.Int()
	if err != nil {
		return 0, err
	}
	s.Selection.Week = week
	return actionProduce, nil
}

// shiftYear moves the year anchor without touching history
func shiftYear(delta int) transition {
	return func(s *Session, e Event) (action, error) {
		y := s.Selection.Year + delta
		if y >= period.MinYear && y <= period.MaxYear {
			s.Selection.Year = y
		}
		return actionRender, nil
	}
}

func back(s *Session, e Event) (action, error) {
	if !s.pop() {
		return actionExit, nil
	}
	return actionRender, nil
}
