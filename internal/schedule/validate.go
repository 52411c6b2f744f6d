package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ConfigError collects every problem found in a schedule. It is returned
// before any event is processed.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid schedule: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid schedule (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ConfigError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Validate checks that the shift windows cover the day exactly once and that
// every slot belongs to a reachable shift without overlapping its siblings.
func Validate(s *Schedule) error {
	cerr := &ConfigError{}
	if s == nil || len(s.Shifts) == 0 {
		cerr.add("no shifts defined")
		return cerr
	}

	reachable := make(map[string]ShiftWindow, len(s.Shifts))
	for _, w := range s.Shifts {
		switch {
		case w.Label == "":
			cerr.add("shift with empty label")
		case w.Start == w.End:
			cerr.add("shift %q has a zero-length window", w.Label)
		default:
			if _, dup := reachable[w.Label]; dup {
				cerr.add("duplicate shift label %q", w.Label)
				continue
			}
			reachable[w.Label] = w
		}
		if w.Start < 0 || time.Duration(w.Start) >= day || w.End < 0 || time.Duration(w.End) >= day {
			cerr.add("shift %q window outside the day", w.Label)
		}
	}
	checkCoverage(s.Shifts, cerr)

	bySlot := make(map[string][]BreakSlot)
	for i, slot := range s.Slots {
		w, ok := reachable[slot.Shift]
		if !ok {
			cerr.add("slot %d (%s-%s) belongs to unreachable shift %q", i, slot.Start, slot.End, slot.Shift)
			continue
		}
		if slot.Start == slot.End {
			cerr.add("slot %d of %q has zero length", i, slot.Shift)
			continue
		}
		if !slotWithin(w, slot) {
			cerr.add("slot %d (%s-%s) lies outside shift %q (%s-%s)", i, slot.Start, slot.End, slot.Shift, w.Start, w.End)
			continue
		}
		if slot.Kind.AllottedMinutes() < 0 {
			cerr.add("slot %d of %q has negative allotted minutes %d", i, slot.Shift, slot.Kind.AllottedMinutes())
		}
		for _, other := range bySlot[slot.Shift] {
			if slotsOverlap(w, slot, other) {
				cerr.add("slots %s-%s and %s-%s of %q overlap", other.Start, other.End, slot.Start, slot.End, slot.Shift)
			}
		}
		bySlot[slot.Shift] = append(bySlot[slot.Shift], slot)
	}

	if len(cerr.Problems) > 0 {
		return cerr
	}
	return nil
}

// checkCoverage requires every instant of the day to fall in exactly one window.
// The day is cut at every window boundary and each piece is checked at its midpoint.
func checkCoverage(shifts []ShiftWindow, cerr *ConfigError) {
	cuts := []time.Duration{0, day}
	for _, w := range shifts {
		cuts = append(cuts, time.Duration(w.Start), time.Duration(w.End))
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	for i := 0; i+1 < len(cuts); i++ {
		if cuts[i] == cuts[i+1] {
			continue
		}
		mid := Clock((cuts[i] + cuts[i+1]) / 2)
		var owners []string
		for _, w := range shifts {
			if w.Contains(mid) {
				owners = append(owners, w.Label)
			}
		}
		switch len(owners) {
		case 0:
			cerr.add("no shift covers %s-%s", Clock(cuts[i]), Clock(cuts[i+1]))
		case 1:
		default:
			cerr.add("shifts %s overlap at %s-%s", strings.Join(owners, ", "), Clock(cuts[i]), Clock(cuts[i+1]))
		}
	}
}

// slotWithin reports whether slot fits inside w, measured from w.Start.
func slotWithin(w ShiftWindow, slot BreakSlot) bool {
	return slot.Start.offsetFrom(w.Start)+slot.Start.span(slot.End) <= w.Start.span(w.End)
}

// slotsOverlap compares two slots as offsets from their shift's start so a
// shift that runs through midnight keeps its slots in chronological order.
func slotsOverlap(w ShiftWindow, a, b BreakSlot) bool {
	aStart := a.Start.offsetFrom(w.Start)
	aEnd := aStart + a.Start.span(a.End)
	bStart := b.Start.offsetFrom(w.Start)
	bEnd := bStart + b.Start.span(b.End)
	return aStart < bEnd && bStart < aEnd
}
