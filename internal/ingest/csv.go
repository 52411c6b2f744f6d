package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// Skip reasons recorded in ImportReport.SkipReason
const (
	SkipMissingPerson = "missing_person"
	SkipBadTimestamp  = "bad_timestamp"
	SkipBadDirection  = "bad_direction"
	SkipShortRow      = "short_row"
)

var columnAliases = map[string][]string{
	"person":    {"person_id", "personid", "badge", "badge_id", "employee_id", "emp_id", "nik"},
	"name":      {"name", "person_name", "employee_name", "nama"},
	"timestamp": {"timestamp", "datetime", "date_time"},
	"date":      {"date", "tanggal"},
	"time":      {"time", "jam"},
	"direction": {"direction", "status", "type", "event"},
	"location":  {"location", "door", "reader", "gate", "device"},
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
}

// Reader decodes badge exports with a header row, either as CSV or as the
// first sheet of an xlsx workbook.
type Reader struct {
	Location *time.Location
	Exclude  *Exclusions
}

// NewReader creates a reader that parses local timestamps in loc
func NewReader(loc *time.Location, exclude *Exclusions) *Reader {
	if loc == nil {
		loc = time.Local
	}
	return &Reader{Location: loc, Exclude: exclude}
}

type columnIndex map[string]int

func (ci columnIndex) value(record []string, field string) string {
	i, ok := ci[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func mapHeader(header []string) (columnIndex, error) {
	ci := make(columnIndex)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		h = strings.ReplaceAll(h, " ", "_")
		for field, aliases := range columnAliases {
			if _, seen := ci[field]; seen {
				continue
			}
			for _, a := range aliases {
				if h == a {
					ci[field] = i
					break
				}
			}
		}
	}

	var missing []string
	if _, ok := ci["person"]; !ok {
		missing = append(missing, "person id")
	}
	if _, ok := ci["direction"]; !ok {
		missing = append(missing, "direction")
	}
	_, hasTS := ci["timestamp"]
	_, hasDate := ci["date"]
	_, hasTime := ci["time"]
	if !hasTS && !hasTime && !hasDate {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing columns: %s", strings.Join(missing, ", "))
	}
	return ci, nil
}

// Read decodes every row of a CSV export. Events get consecutive sequence
// numbers from startSeq in row order and carry batchID. Malformed rows are
// skipped and counted.
func (rd *Reader) Read(r io.Reader, startSeq int64, batchID string) ([]models.Event, models.ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		report := models.ImportReport{BatchID: batchID, SkipReason: map[string]int{}}
		if errors.Is(err, io.EOF) {
			return nil, report, errors.New("csv file is empty")
		}
		return nil, report, fmt.Errorf("failed to read csv header: %w", err)
	}

	line := 1
	return rd.decode(header, func() ([]string, error) {
		record, err := reader.Read()
		line++
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read csv row %d: %w", line, err)
		}
		return record, err
	}, startSeq, batchID)
}

// decode maps header and turns the records returned by next into events until
// next reports io.EOF.
func (rd *Reader) decode(header []string, next func() ([]string, error), startSeq int64, batchID string) ([]models.Event, models.ImportReport, error) {
	report := models.ImportReport{BatchID: batchID, SkipReason: map[string]int{}}

	ci, err := mapHeader(header)
	if err != nil {
		return nil, report, err
	}

	var events []models.Event
	seq := startSeq
	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, err
		}
		report.Rows++

		ev, reason := rd.parseRow(ci, record)
		if reason != "" {
			report.Skipped++
			report.SkipReason[reason]++
			continue
		}
		if rd.Exclude.Excluded(ev.PersonID, ev.PersonName) {
			report.Excluded++
			continue
		}
		ev.Seq = seq
		ev.BatchID = batchID
		seq++
		events = append(events, ev)
	}

	report.Imported = len(events)
	return events, report, nil
}

func (rd *Reader) parseRow(ci columnIndex, record []string) (models.Event, string) {
	if len(record) == 0 || (len(record) == 1 && strings.TrimSpace(record[0]) == "") {
		return models.Event{}, SkipShortRow
	}

	person := ci.value(record, "person")
	if person == "" {
		return models.Event{}, SkipMissingPerson
	}

	ts, err := rd.parseTimestamp(ci, record)
	if err != nil {
		return models.Event{}, SkipBadTimestamp
	}

	dir, ok := NormalizeDirection(ci.value(record, "direction"))
	if !ok {
		return models.Event{}, SkipBadDirection
	}

	return models.Event{
		PersonID:   person,
		PersonName: ci.value(record, "name"),
		Timestamp:  ts,
		Direction:  dir,
		Location:   ci.value(record, "location"),
	}, ""
}

func (rd *Reader) parseTimestamp(ci columnIndex, record []string) (time.Time, error) {
	raw := ci.value(record, "timestamp")
	if raw == "" {
		date, clock := ci.value(record, "date"), ci.value(record, "time")
		switch {
		case date != "" && clock != "":
			raw = date + " " + clock
		case clock != "":
			raw = clock
		default:
			raw = date
		}
	}
	return ParseTimestamp(raw, rd.Location)
}

// ParseTimestamp accepts the layouts found in badge exports. Values without a
// zone are interpreted in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
