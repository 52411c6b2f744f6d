package losstime

import (
	"fmt"
	"sort"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// DefaultMaxDuration is the longest absence kept for loss-time accounting.
const DefaultMaxDuration = 210 * time.Minute

// Selection picks which candidate IN closes an OUT.
type Selection string

const (
	// SelectNearest takes the candidate with the smallest time delta.
	SelectNearest Selection = "nearest"
	// SelectEarliest takes the first candidate met while scanning forward.
	SelectEarliest Selection = "earliest"
)

// PairPolicy configures the event pairer.
type PairPolicy struct {
	// MaxDuration discards longer intervals. In duration-cap-only mode it also
	// bounds which INs are candidates.
	MaxDuration time.Duration
	// SameDay restricts candidates to INs on the OUT's calendar day. When false
	// only MaxDuration limits the match.
	SameDay   bool
	Selection Selection
}

// DefaultPairPolicy returns same-day, nearest-delta matching with a 210 minute cap.
func DefaultPairPolicy() PairPolicy {
	return PairPolicy{
		MaxDuration: DefaultMaxDuration,
		SameDay:     true,
		Selection:   SelectNearest,
	}
}

func (p PairPolicy) validate() []string {
	var problems []string
	if p.MaxDuration <= 0 {
		problems = append(problems, fmt.Sprintf("max duration must be positive, got %s", p.MaxDuration))
	}
	switch p.Selection {
	case SelectNearest, SelectEarliest:
	default:
		problems = append(problems, fmt.Sprintf("unknown pair selection %q", p.Selection))
	}
	return problems
}

// AnomalyCounts tallies the events and intervals dropped as data anomalies.
type AnomalyCounts struct {
	UnmatchedOut    int `json:"unmatchedOut"`
	UnmatchedIn     int `json:"unmatchedIn"`
	NonPositive     int `json:"nonPositive"`
	OverMaxDuration int `json:"overMaxDuration"`
}

// Add accumulates other into a.
func (a *AnomalyCounts) Add(other AnomalyCounts) {
	a.UnmatchedOut += other.UnmatchedOut
	a.UnmatchedIn += other.UnmatchedIn
	a.NonPositive += other.NonPositive
	a.OverMaxDuration += other.OverMaxDuration
}

// Total returns the number of dropped OUT events and intervals.
func (a AnomalyCounts) Total() int {
	return a.UnmatchedOut + a.NonPositive + a.OverMaxDuration
}

// Pairer turns one person's events into non-overlapping OUT->IN intervals.
type Pairer struct {
	policy PairPolicy
}

// NewPairer creates a pairer with the given policy
func NewPairer(policy PairPolicy) *Pairer {
	return &Pairer{policy: policy}
}

// Pair matches the events of a single person. The input is not modified and
// may be in any order; events are sorted by (timestamp, seq) first.
func (p *Pairer) Pair(events []models.Event) ([]models.Interval, AnomalyCounts) {
	var counts AnomalyCounts
	if len(events) == 0 {
		return nil, counts
	}

	sorted := SortEvents(events)
	consumed := make([]bool, len(sorted))
	var intervals []models.Interval

	for i, out := range sorted {
		if consumed[i] || out.Direction != models.DirectionOut {
			continue
		}

		match := p.selectIn(sorted, consumed, i)
		if match < 0 {
			counts.UnmatchedOut++
			continue
		}
		consumed[i] = true
		consumed[match] = true

		in := sorted[match]
		duration := in.Timestamp.Sub(out.Timestamp)
		switch {
		case duration <= 0:
			counts.NonPositive++
			continue
		case duration > p.policy.MaxDuration:
			counts.OverMaxDuration++
			continue
		}

		name := out.PersonName
		if name == "" {
			name = in.PersonName
		}
		intervals = append(intervals, models.Interval{
			PersonID:        out.PersonID,
			PersonName:      name,
			Date:            out.Timestamp.Format(models.DateLayout),
			OutTime:         out.Timestamp,
			InTime:          in.Timestamp,
			DurationMinutes: duration.Minutes(),
		})
	}

	for i, ev := range sorted {
		if ev.Direction == models.DirectionIn && !consumed[i] {
			counts.UnmatchedIn++
		}
	}
	return intervals, counts
}

// selectIn returns the index of the IN that closes sorted[outIdx], or -1.
func (p *Pairer) selectIn(sorted []models.Event, consumed []bool, outIdx int) int {
	out := sorted[outIdx]
	outDay := dateOf(out.Timestamp, out.Timestamp.Location())

	best := -1
	var bestDelta time.Duration
	for j := outIdx + 1; j < len(sorted); j++ {
		in := sorted[j]
		delta := in.Timestamp.Sub(out.Timestamp)

		// sorted ascending: once past the window nothing later qualifies
		if p.policy.SameDay {
			if dateOf(in.Timestamp, out.Timestamp.Location()) != outDay {
				break
			}
		} else if delta > p.policy.MaxDuration {
			break
		}

		if consumed[j] || in.Direction != models.DirectionIn || delta <= 0 {
			continue
		}
		if best < 0 || delta < bestDelta {
			best, bestDelta = j, delta
		}
		if p.policy.Selection == SelectEarliest {
			break
		}
	}
	return best
}

// SortEvents returns a copy of events ordered by timestamp, then stream order.
func SortEvents(events []models.Event) []models.Event {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

func dateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(models.DateLayout)
}
