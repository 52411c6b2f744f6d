package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Clock is a time of day expressed as the offset from midnight.
type Clock time.Duration

// NewClock builds a Clock from hour, minute and second components
func NewClock(hour, minute, second int) Clock {
	return Clock(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ClockOf returns the time of day of t in t's own location
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute(), t.Second()) + Clock(time.Duration(t.Nanosecond()))
}

// ParseClock parses "HH:MM" or "HH:MM:SS"
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		fields[i] = v
	}
	h, m, sec := fields[0], fields[1], fields[2]
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return NewClock(h, m, sec), nil
}

// MustParseClock is ParseClock for literals known to be valid.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// On anchors the clock to the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c))
}

func (c Clock) String() string {
	d := time.Duration(c)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// span returns the length from c to end, wrapping past midnight when end <= c.
func (c Clock) span(end Clock) time.Duration {
	d := time.Duration(end - c)
	if d <= 0 {
		d += day
	}
	return d
}

// offsetFrom returns how far c lies after origin, walking forward through midnight.
func (c Clock) offsetFrom(origin Clock) time.Duration {
	d := time.Duration(c - origin)
	if d < 0 {
		d += day
	}
	return d
}

// SlotKind tells a working sub-window apart from a break that carries a budget.
// The zero value is a working window.
type SlotKind struct {
	label    string
	allotted int
}

// Working is the kind of a sub-window with no break budget.
func Working() SlotKind { return SlotKind{} }

// Break is a named break with an allotted budget in minutes.
func Break(label string, allottedMinutes int) SlotKind {
	return SlotKind{label: label, allotted: allottedMinutes}
}

// IsBreak reports whether the slot is a named break rather than working time.
func (k SlotKind) IsBreak() bool { return k.label != "" }

// Label is the break name, empty for a working window.
func (k SlotKind) Label() string { return k.label }

// AllottedMinutes is the break budget; working windows have none.
func (k SlotKind) AllottedMinutes() int { return k.allotted }

// String renders working windows with the "-" marker used in schedule files.
func (k SlotKind) String() string {
	if !k.IsBreak() {
		return WorkingMarker
	}
	return k.label
}

// WorkingMarker is how schedule files spell a working sub-window.
const WorkingMarker = "-"

// ShiftWindow is the outer boundary of a shift. End may be before Start when
// the shift runs through midnight.
type ShiftWindow struct {
	Label string
	Start Clock
	End   Clock
}

// Wraps reports whether the window crosses midnight.
func (w ShiftWindow) Wraps() bool { return w.End < w.Start }

// Contains reports whether the time of day c falls inside [Start, End).
func (w ShiftWindow) Contains(c Clock) bool {
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return c >= w.Start && c < w.End
	}
	return c >= w.Start || c < w.End
}

// BreakSlot is one sub-window of a shift.
type BreakSlot struct {
	Shift string
	Start Clock
	End   Clock
	Kind  SlotKind
}

// Schedule is the immutable shift/break table handed to the resolver and the
// classifier. Slot order is significant.
type Schedule struct {
	Shifts []ShiftWindow
	Slots  []BreakSlot
}

// Window returns the shift window with the given label.
func (s *Schedule) Window(label string) (ShiftWindow, bool) {
	for _, w := range s.Shifts {
		if w.Label == label {
			return w, true
		}
	}
	return ShiftWindow{}, false
}

// SlotsFor returns the slots of a shift in table order.
func (s *Schedule) SlotsFor(label string) []BreakSlot {
	var out []BreakSlot
	for _, slot := range s.Slots {
		if slot.Shift == label {
			out = append(out, slot)
		}
	}
	return out
}
