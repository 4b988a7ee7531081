package navigation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bimate/backend/internal/domain/shared"
)

// EventKind tags a callback button
type EventKind string

const (
	EventChart       EventKind = "c"
	EventReport      EventKind = "r"
	EventGranularity EventKind = "g"
	EventYear        EventKind = "y"
	EventHalf        EventKind = "h"
	EventQuarter     EventKind = "q"
	EventMonth       EventKind = "m"
	EventWeek        EventKind = "w"
	EventPrev        EventKind = "p"
	EventNext        EventKind = "n"
	EventBack        EventKind = "b"
)

var knownKinds = map[EventKind]bool{
	EventChart: true, EventReport: true, EventGranularity: true, EventYear: true,
	EventHalf: true, EventQuarter: true, EventMonth: true, EventWeek: true,
	EventPrev: true, EventNext: true, EventBack: true,
}

// Event is one decoded button press
type Event struct {
	Kind  EventKind
	Value string
}

// Encode renders the compact "kind:value" callback data. Telegram limits it to 64 bytes.
func (e Event) Encode() string {
	return string(e.Kind) + ":" + e.Value
}

// Int returns the value as an integer.
func (e Event) Int() (int, error) {
	n, err := strconv.Atoi(e.Value)
	if err != nil {
		return 0, fmt.Errorf("%w: event %s carries non-numeric value %q", shared.ErrInvalidInput, e.Kind, e.Value)
	}
	return n, nil
}

// ParseEvent decodes callback data produced by Encode.
func ParseEvent(data string) (Event, error) {
	kind, value, ok := strings.Cut(data, ":")
	if !ok || !knownKinds[EventKind(kind)] {
		return Event{}, fmt.Errorf("%w: unknown callback data %q", shared.ErrInvalidInput, data)
	}
	return Event{Kind: EventKind(kind), Value: value}, nil
}

func ev(kind EventKind, value any) string {
	return Event{Kind: kind, Value: fmt.Sprint(value)}.Encode()
}
