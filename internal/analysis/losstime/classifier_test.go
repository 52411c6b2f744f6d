package losstime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
)

func interval(out, in time.Time) models.Interval {
	return models.Interval{
		PersonID:        "p1",
		Date:            out.Format(models.DateLayout),
		OutTime:         out,
		InTime:          in,
		DurationMinutes: in.Sub(out).Minutes(),
	}
}

func TestClassifyNoOverlapWithBreak(t *testing.T) {
	c := schedule.MustParseClock
	s := &schedule.Schedule{
		Shifts: []schedule.ShiftWindow{
			{Label: "Shift 1", Start: c("06:00"), End: c("14:00")},
			{Label: "Shift 2", Start: c("14:00"), End: c("06:00")},
		},
		Slots: []schedule.BreakSlot{
			{Shift: "Shift 1", Start: c("09:30"), End: c("11:00"), Kind: schedule.Break("Tea Break", 20)},
		},
	}
	require.NoError(t, schedule.Validate(s))

	got := NewClassifier(s, ClassifierOptions{}).Classify(interval(at(0, 9, 0), at(0, 9, 25)))
	assert.Equal(t, "Shift 1", got.Shift)
	assert.Equal(t, CategoryWork, got.Category)
	assert.InDelta(t, 25.0, got.LossMinutes, 1e-9)
}

func TestClassifyDefaultSchedule(t *testing.T) {
	tests := []struct {
		name     string
		out, in  time.Time
		mode     CategoryMode
		shift    string
		category string
		loss     float64
	}{
		{"lunch boundary", at(0, 10, 50), at(0, 11, 10), CategoryLast, "Shift 1", "Lunch", 10},
		{"inside working window", at(0, 7, 0), at(0, 7, 30), CategoryLast, "Shift 1", CategoryWork, 30},
		{"break within budget", at(0, 11, 15), at(0, 11, 45), CategoryLast, "Shift 1", "Lunch", 0},
		{"break over budget", at(0, 11, 0), at(0, 12, 0), CategoryLast, "Shift 1", "Lunch", 15},
		{"two breaks last wins", at(0, 9, 40), at(0, 11, 10), CategoryLast, "Shift 1", "Lunch", 60},
		{"two breaks largest wins", at(0, 9, 40), at(0, 11, 10), CategoryLargest, "Shift 1", "Tea Break", 60},
		{"largest tie goes to later slot", at(0, 10, 0), at(0, 11, 30), CategoryLargest, "Shift 1", "Lunch", 40},
		{"afternoon tea", at(0, 16, 10), at(0, 16, 40), CategoryLast, "Shift 2", "Tea Break", 10},
		{"night meal after midnight", at(1, 0, 10), at(1, 0, 50), CategoryLast, "Shift 3", "Meal", 10},
		{"night meal from before midnight", at(0, 23, 50), at(1, 0, 20), CategoryLast, "Shift 3", "Meal", 10},
		{"morning prayer", at(0, 5, 0), at(0, 5, 40), CategoryLast, "Shift 3", "Morning Prayer", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(schedule.Default(), ClassifierOptions{CategoryMode: tt.mode})
			got := c.Classify(interval(tt.out, tt.in))
			assert.Equal(t, tt.shift, got.Shift)
			assert.Equal(t, tt.category, got.Category)
			assert.InDelta(t, tt.loss, got.LossMinutes, 1e-9)
			assert.False(t, got.Disrupted)
		})
	}
}

func TestClassifySlotCrossingMidnight(t *testing.T) {
	c := schedule.MustParseClock
	s := &schedule.Schedule{
		Shifts: []schedule.ShiftWindow{
			{Label: "Day", Start: c("06:00"), End: c("18:00")},
			{Label: "Night", Start: c("18:00"), End: c("06:00")},
		},
		Slots: []schedule.BreakSlot{
			{Shift: "Night", Start: c("23:30"), End: c("00:30"), Kind: schedule.Break("Meal", 30)},
		},
	}
	require.NoError(t, schedule.Validate(s))
	cl := NewClassifier(s, ClassifierOptions{})

	after := cl.Classify(interval(at(1, 0, 10), at(1, 0, 40)))
	assert.Equal(t, "Meal", after.Category)
	assert.InDelta(t, 10.0, after.LossMinutes, 1e-9)

	before := cl.Classify(interval(at(0, 23, 20), at(0, 23, 50)))
	assert.Equal(t, "Meal", before.Category)
	assert.InDelta(t, 10.0, before.LossMinutes, 1e-9)
}

func TestClassifyStrictCoverage(t *testing.T) {
	iv := interval(at(0, 22, 5), at(0, 22, 20))

	lenient := NewClassifier(schedule.Default(), ClassifierOptions{}).Classify(iv)
	assert.Equal(t, CategoryWork, lenient.Category)
	assert.InDelta(t, 15.0, lenient.LossMinutes, 1e-9)

	strict := NewClassifier(schedule.Default(), ClassifierOptions{StrictCoverage: true}).Classify(iv)
	assert.Equal(t, CategoryUndetected, strict.Category)
	assert.InDelta(t, 15.0, strict.LossMinutes, 1e-9)

	covered := NewClassifier(schedule.Default(), ClassifierOptions{StrictCoverage: true}).
		Classify(interval(at(0, 7, 0), at(0, 7, 30)))
	assert.Equal(t, CategoryWork, covered.Category)
}

func TestClassifyLossBounds(t *testing.T) {
	cl := NewClassifier(schedule.Default(), ClassifierOptions{})
	for m := 0; m < 24*60; m += 7 {
		out := testDay.Add(time.Duration(m) * time.Minute)
		for _, d := range []int{1, 13, 45, 90, 210} {
			got := cl.Classify(interval(out, out.Add(time.Duration(d)*time.Minute)))
			assert.GreaterOrEqual(t, got.LossMinutes, 0.0)
			assert.LessOrEqual(t, got.LossMinutes, got.DurationMinutes)
			assert.NotEmpty(t, got.Shift)
		}
	}
}
