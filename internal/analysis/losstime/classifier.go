package losstime

import (
	"fmt"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
)

// Category values produced by the classifier and the disruption detector.
const (
	CategoryWork       = "Work"
	CategoryUndetected = "Undetected"
	CategoryDisrupted  = "Invalid — Disrupted"
)

// CategoryMode decides which overlapping break names the interval.
type CategoryMode string

const (
	// CategoryLast reports the last overlapping break in slot table order.
	CategoryLast CategoryMode = "last"
	// CategoryLargest reports the break with the largest overlap; ties go to
	// the later slot.
	CategoryLargest CategoryMode = "largest"
)

// ClassifierOptions configures the interval classifier.
type ClassifierOptions struct {
	CategoryMode CategoryMode
	// StrictCoverage reports CategoryUndetected when no slot of the resolved
	// shift overlaps the interval at all.
	StrictCoverage bool
}

func (o ClassifierOptions) validate() []string {
	switch o.CategoryMode {
	case CategoryLast, CategoryLargest:
		return nil
	default:
		return []string{fmt.Sprintf("unknown category mode %q", o.CategoryMode)}
	}
}

// Classifier assigns a break category and loss time to intervals.
type Classifier struct {
	schedule *schedule.Schedule
	resolver *schedule.Resolver
	opts     ClassifierOptions
}

// NewClassifier creates a classifier over a validated schedule
func NewClassifier(s *schedule.Schedule, opts ClassifierOptions) *Classifier {
	if opts.CategoryMode == "" {
		opts.CategoryMode = CategoryLast
	}
	return &Classifier{
		schedule: s,
		resolver: schedule.NewResolver(s),
		opts:     opts,
	}
}

// Classify computes shift, category and loss minutes for iv.
//
// Break budget accumulates over every overlapping break slot, each capped at
// its allotted minutes, while a single category names the interval.
func (c *Classifier) Classify(iv models.Interval) models.ClassifiedInterval {
	out := models.ClassifiedInterval{Interval: iv, Category: CategoryWork}

	window, ok := c.resolver.Window(iv.OutTime)
	if !ok {
		out.LossMinutes = clampLoss(iv.DurationMinutes, 0)
		if c.opts.StrictCoverage {
			out.Category = CategoryUndetected
		}
		return out
	}
	out.Shift = window.Label

	var consumed, bestOverlap float64
	covered := false
	for _, slot := range c.schedule.SlotsFor(window.Label) {
		start, end := slotWindow(iv.OutTime, window, slot)
		overlap := overlapMinutes(iv.OutTime, iv.InTime, start, end)
		if overlap <= 0 {
			continue
		}
		covered = true
		if !slot.Kind.IsBreak() {
			continue
		}

		consumed += minFloat(overlap, float64(slot.Kind.AllottedMinutes()))
		switch c.opts.CategoryMode {
		case CategoryLargest:
			if overlap >= bestOverlap {
				bestOverlap = overlap
				out.Category = slot.Kind.Label()
			}
		default:
			out.Category = slot.Kind.Label()
		}
	}

	if !covered && c.opts.StrictCoverage {
		out.Category = CategoryUndetected
	}
	out.LossMinutes = clampLoss(iv.DurationMinutes, consumed)
	return out
}

// slotWindow anchors a slot to absolute time around the OUT event. For a shift
// that runs through midnight, slots on the other side of midnight from the OUT
// move to the adjacent day. A slot whose end is not after its start ends on
// the following day.
func slotWindow(outTime time.Time, w schedule.ShiftWindow, slot schedule.BreakSlot) (time.Time, time.Time) {
	base := outTime
	if w.Wraps() {
		outAfterMidnight := schedule.ClockOf(outTime) < w.Start
		slotAfterMidnight := slot.Start < w.Start
		switch {
		case slotAfterMidnight && !outAfterMidnight:
			base = base.AddDate(0, 0, 1)
		case !slotAfterMidnight && outAfterMidnight:
			base = base.AddDate(0, 0, -1)
		}
	}
	start := slot.Start.On(base)
	end := slot.End.On(base)
	if slot.End <= slot.Start {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func overlapMinutes(start1, end1, start2, end2 time.Time) float64 {
	latestStart := start1
	if start2.After(latestStart) {
		latestStart = start2
	}
	earliestEnd := end1
	if end2.Before(earliestEnd) {
		earliestEnd = end2
	}
	overlap := earliestEnd.Sub(latestStart).Minutes()
	if overlap < 0 {
		return 0
	}
	return overlap
}

func clampLoss(duration, consumed float64) float64 {
	loss := duration - consumed
	if loss < 0 {
		return 0
	}
	return loss
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
