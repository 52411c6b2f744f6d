package losstime

import (
	"sort"
	"strings"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// DisruptionDetector invalidates intervals during which the person was seen
// at a sensitive location.
type DisruptionDetector struct {
	tags map[string]struct{}
}

// NewDisruptionDetector creates a detector for the given location tags.
// Tags compare case-insensitively.
func NewDisruptionDetector(tags []string) *DisruptionDetector {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = normalizeTag(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return &DisruptionDetector{tags: set}
}

// Enabled reports whether any sensitive tag is configured.
func (d *DisruptionDetector) Enabled() bool { return len(d.tags) > 0 }

// IsSensitive reports whether location is one of the sensitive tags.
func (d *DisruptionDetector) IsSensitive(location string) bool {
	_, ok := d.tags[normalizeTag(location)]
	return ok
}

// SensitiveIndex holds each person's sensitive taps in ascending order.
type SensitiveIndex map[string][]time.Time

// Index keeps only sensitive-tagged events and groups them by person.
func (d *DisruptionDetector) Index(events []models.Event) SensitiveIndex {
	idx := make(SensitiveIndex)
	if !d.Enabled() {
		return idx
	}
	for _, ev := range events {
		if d.IsSensitive(ev.Location) {
			idx[ev.PersonID] = append(idx[ev.PersonID], ev.Timestamp)
		}
	}
	for _, taps := range idx {
		sort.Slice(taps, func(i, j int) bool { return taps[i].Before(taps[j]) })
	}
	return idx
}

// Disrupted reports whether personID has a sensitive tap strictly inside (out, in).
func (idx SensitiveIndex) Disrupted(personID string, out, in time.Time) bool {
	taps := idx[personID]
	i := sort.Search(len(taps), func(i int) bool { return taps[i].After(out) })
	return i < len(taps) && taps[i].Before(in)
}

// Apply flags rec when it is disrupted. The category is replaced and the
// loss time is kept for audit.
func (d *DisruptionDetector) Apply(rec models.ClassifiedInterval, idx SensitiveIndex) models.ClassifiedInterval {
	if idx.Disrupted(rec.PersonID, rec.OutTime, rec.InTime) {
		rec.Disrupted = true
		rec.Category = CategoryDisrupted
	}
	return rec
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
