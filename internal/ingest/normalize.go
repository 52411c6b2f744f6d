// Package ingest turns raw badge exports and live reader messages into events.
package ingest

import (
	"strings"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

var directionAliases = map[string]models.Direction{
	"IN":     models.DirectionIn,
	"ENTRY":  models.DirectionIn,
	"ENTER":  models.DirectionIn,
	"MASUK":  models.DirectionIn,
	"OUT":    models.DirectionOut,
	"EXIT":   models.DirectionOut,
	"LEAVE":  models.DirectionOut,
	"KELUAR": models.DirectionOut,
}

// NormalizeDirection maps the spellings badge readers use onto IN or OUT.
func NormalizeDirection(raw string) (models.Direction, bool) {
	d, ok := directionAliases[strings.ToUpper(strings.TrimSpace(raw))]
	return d, ok
}

// Exclusions filters out people that must never appear in the analysis,
// matched case-insensitively on ID or name.
type Exclusions struct {
	set map[string]struct{}
}

// NewExclusions builds an exclusion list from person IDs or names
func NewExclusions(entries []string) *Exclusions {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e = normalizeKey(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return &Exclusions{set: set}
}

// Excluded reports whether the person identified by id or name is excluded.
func (x *Exclusions) Excluded(id, name string) bool {
	if x == nil || len(x.set) == 0 {
		return false
	}
	if _, ok := x.set[normalizeKey(id)]; ok {
		return true
	}
	_, ok := x.set[normalizeKey(name)]
	return ok && name != ""
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
