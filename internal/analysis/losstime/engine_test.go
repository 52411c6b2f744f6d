package losstime

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
)

func newTestEngine(t *testing.T, mutate func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.SensitiveTags = []string{"office", "lobby"}
	if mutate != nil {
		mutate(&opts)
	}
	e, err := NewEngine(schedule.Default(), opts)
	require.NoError(t, err)
	return e
}

func TestEngineScenarios(t *testing.T) {
	b := &eventBuilder{}
	// lunch boundary crossing
	b.out("alice", at(0, 10, 50)).in("alice", at(0, 11, 10))
	// same interval with a sensitive tap inside
	b.out("bob", at(0, 10, 50)).
		add("bob", models.DirectionIn, at(0, 11, 2), "office").
		in("bob", at(0, 11, 10))
	// OUT with no same-day IN
	b.out("carol", at(0, 8, 0))

	res := newTestEngine(t, nil).Run(b.events, b.events)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 3, res.Persons)
	assert.Equal(t, 1, res.Anomalies.UnmatchedOut)

	alice := res.Records[0]
	assert.Equal(t, "alice", alice.PersonID)
	assert.Equal(t, "Lunch", alice.Category)
	assert.InDelta(t, 20.0, alice.DurationMinutes, 1e-9)
	assert.InDelta(t, 10.0, alice.LossMinutes, 1e-9)
	assert.False(t, alice.Disrupted)

	// bob's office tap is itself an IN: it closes the interval nearest to the
	// OUT, so the pairing is 10:50-11:02 and the 11:10 IN is left over.
	bob := res.Records[1]
	assert.Equal(t, "bob", bob.PersonID)
	assert.Equal(t, at(0, 11, 2), bob.InTime)
	assert.False(t, bob.Disrupted)
	assert.Equal(t, 1, res.Anomalies.UnmatchedIn)
}

func TestEngineDisruptionFromSecondaryStream(t *testing.T) {
	gate := &eventBuilder{}
	gate.out("bob", at(0, 10, 50)).in("bob", at(0, 11, 10))

	lobby := &eventBuilder{}
	lobby.add("bob", models.DirectionIn, at(0, 11, 2), "office")

	res := newTestEngine(t, nil).Run(gate.events, lobby.events)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.True(t, rec.Disrupted)
	assert.Equal(t, CategoryDisrupted, rec.Category)
	assert.InDelta(t, 10.0, rec.LossMinutes, 1e-9)

	noCheck := newTestEngine(t, nil).Run(gate.events, nil)
	assert.Equal(t, "Lunch", noCheck.Records[0].Category)
}

func TestEngineRejectsBadConfiguration(t *testing.T) {
	bad := schedule.Default()
	bad.Slots = append(bad.Slots, schedule.BreakSlot{Shift: "Shift 9", Start: schedule.MustParseClock("01:00"), End: schedule.MustParseClock("02:00")})

	_, err := NewEngine(bad, DefaultOptions())
	var cerr *schedule.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "Shift 9")

	opts := DefaultOptions()
	opts.Pair.MaxDuration = 0
	opts.Pair.Selection = "random"
	opts.Classifier.CategoryMode = "first"
	_, err = NewEngine(schedule.Default(), opts)
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Problems, 3)
}

func randomEvents(seed int64, persons, perPerson int) []models.Event {
	rng := rand.New(rand.NewSource(seed))
	b := &eventBuilder{}
	locations := []string{"gate", "gate", "gate", "office"}
	for p := 0; p < persons; p++ {
		id := string(rune('A'+p%26)) + string(rune('a'+p/26))
		for i := 0; i < perPerson; i++ {
			dir := models.DirectionIn
			if rng.Intn(2) == 0 {
				dir = models.DirectionOut
			}
			ts := testDay.Add(time.Duration(rng.Intn(3*24*60)) * time.Minute)
			b.add(id, dir, ts, locations[rng.Intn(len(locations))])
		}
	}
	return b.events
}

func TestEngineProperties(t *testing.T) {
	events := randomEvents(1, 30, 60)
	res := newTestEngine(t, nil).Run(events, events)
	require.NotEmpty(t, res.Records)

	for i, rec := range res.Records {
		assert.True(t, rec.InTime.After(rec.OutTime))
		assert.Greater(t, rec.DurationMinutes, 0.0)
		assert.LessOrEqual(t, rec.DurationMinutes, DefaultMaxDuration.Minutes())
		assert.GreaterOrEqual(t, rec.LossMinutes, 0.0)
		assert.LessOrEqual(t, rec.LossMinutes, rec.DurationMinutes)
		if rec.Disrupted {
			assert.Equal(t, CategoryDisrupted, rec.Category)
		}
		if i > 0 {
			prev := res.Records[i-1]
			ordered := prev.PersonID < rec.PersonID ||
				(prev.PersonID == rec.PersonID && !rec.OutTime.Before(prev.OutTime))
			assert.True(t, ordered, "records out of order at %d", i)
		}
	}
}

func TestEngineIdempotentAndShuffleStable(t *testing.T) {
	events := randomEvents(2, 20, 40)
	e := newTestEngine(t, nil)

	first, err := json.Marshal(e.Run(events, events))
	require.NoError(t, err)
	second, err := json.Marshal(e.Run(events, events))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	shuffled := append([]models.Event(nil), events...)
	rand.New(rand.NewSource(3)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	third, err := json.Marshal(e.Run(shuffled, shuffled))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(third))
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	events := randomEvents(4, 50, 30)
	seq := newTestEngine(t, nil).Run(events, events)
	par := newTestEngine(t, func(o *Options) { o.Workers = 8 }).Run(events, events)
	assert.Equal(t, seq, par)
}

func TestEngineEmptyInput(t *testing.T) {
	res := newTestEngine(t, nil).Run(nil, nil)
	assert.Empty(t, res.Records)
	assert.Zero(t, res.Persons)
}
