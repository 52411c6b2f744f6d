package schedule

import "time"

// Resolver maps an OUT timestamp to the shift whose window contains its time
// of day. The schedule must have passed Validate for the mapping to be total.
type Resolver struct {
	shifts []ShiftWindow
}

// NewResolver creates a resolver over the schedule's shift windows
func NewResolver(s *Schedule) *Resolver {
	shifts := make([]ShiftWindow, len(s.Shifts))
	copy(shifts, s.Shifts)
	return &Resolver{shifts: shifts}
}

// Resolve returns the shift label for t, or "" when no window contains it.
func (r *Resolver) Resolve(t time.Time) string {
	w, ok := r.Window(t)
	if !ok {
		return ""
	}
	return w.Label
}

// Window returns the shift window containing t.
func (r *Resolver) Window(t time.Time) (ShiftWindow, bool) {
	c := ClockOf(t)
	for _, w := range r.shifts {
		if w.Contains(c) {
			return w, true
		}
	}
	return ShiftWindow{}, false
}
