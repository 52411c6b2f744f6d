package schedule

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk (YAML) and wire (JSON) form of a schedule.
type File struct {
	Shifts []ShiftEntry `yaml:"shifts" json:"shifts"`
}

// ShiftEntry is one shift with its slots in table order.
type ShiftEntry struct {
	Label string      `yaml:"label" json:"label"`
	Start string      `yaml:"start" json:"start"`
	End   string      `yaml:"end" json:"end"`
	Slots []SlotEntry `yaml:"slots" json:"slots"`
}

// SlotEntry is one slot. Kind "-" (or empty) marks a working window.
type SlotEntry struct {
	Start           string `yaml:"start" json:"start"`
	End             string `yaml:"end" json:"end"`
	Kind            string `yaml:"kind" json:"kind"`
	AllottedMinutes int    `yaml:"allotted_minutes,omitempty" json:"allottedMinutes,omitempty"`
}

// Load reads a schedule YAML file and validates it.
func Load(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return Parse(data)
}

// Parse decodes schedule YAML and validates it. Malformed times are reported
// as a ConfigError alongside any structural problems.
func Parse(data []byte) (*Schedule, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}
	s, err := f.Schedule()
	if err != nil {
		return nil, err
	}
	if err := Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Schedule converts the document into a Schedule without validating its shape.
func (f File) Schedule() (*Schedule, error) {
	cerr := &ConfigError{}
	clock := func(where, v string) Clock {
		c, err := ParseClock(v)
		if err != nil {
			cerr.add("%s: %v", where, err)
		}
		return c
	}

	s := &Schedule{}
	for _, sh := range f.Shifts {
		s.Shifts = append(s.Shifts, ShiftWindow{
			Label: sh.Label,
			Start: clock(sh.Label+" start", sh.Start),
			End:   clock(sh.Label+" end", sh.End),
		})
		for i, sl := range sh.Slots {
			where := fmt.Sprintf("%s slot %d", sh.Label, i)
			kind := Working()
			if k := strings.TrimSpace(sl.Kind); k != "" && k != WorkingMarker {
				kind = Break(k, sl.AllottedMinutes)
			} else if sl.AllottedMinutes != 0 {
				cerr.add("%s: working slot cannot carry allotted minutes", where)
			}
			s.Slots = append(s.Slots, BreakSlot{
				Shift: sh.Label,
				Start: clock(where+" start", sl.Start),
				End:   clock(where+" end", sl.End),
				Kind:  kind,
			})
		}
	}
	if len(cerr.Problems) > 0 {
		return nil, cerr
	}
	return s, nil
}

// ToFile renders the schedule back into its document form. Slots are grouped
// under their shift, keeping table order within each shift.
func (s *Schedule) ToFile() File {
	var f File
	for _, w := range s.Shifts {
		entry := ShiftEntry{Label: w.Label, Start: w.Start.String(), End: w.End.String()}
		for _, slot := range s.SlotsFor(w.Label) {
			entry.Slots = append(entry.Slots, SlotEntry{
				Start:           slot.Start.String(),
				End:             slot.End.String(),
				Kind:            slot.Kind.String(),
				AllottedMinutes: slot.Kind.AllottedMinutes(),
			})
		}
		f.Shifts = append(f.Shifts, entry)
	}
	return f
}
