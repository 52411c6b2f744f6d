package losstime

import (
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

var testDay = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

// at returns testDay shifted by dayOffset days at hh:mm.
func at(dayOffset, hh, mm int) time.Time {
	return testDay.AddDate(0, 0, dayOffset).Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

type eventBuilder struct {
	seq    int64
	events []models.Event
}

func (b *eventBuilder) add(person string, dir models.Direction, ts time.Time, location string) *eventBuilder {
	b.seq++
	b.events = append(b.events, models.Event{
		PersonID:  person,
		Timestamp: ts,
		Direction: dir,
		Location:  location,
		Seq:       b.seq,
	})
	return b
}

func (b *eventBuilder) out(person string, ts time.Time) *eventBuilder {
	return b.add(person, models.DirectionOut, ts, "gate")
}

func (b *eventBuilder) in(person string, ts time.Time) *eventBuilder {
	return b.add(person, models.DirectionIn, ts, "gate")
}
