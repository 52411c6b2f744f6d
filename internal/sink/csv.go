package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// CSVHeader is the column order of exported intervals
var CSVHeader = []string{
	"person_id", "person_name", "date", "out", "in", "duration_minutes",
	"shift", "category", "loss_minutes", "disrupted",
}

const csvTimeLayout = "2006-01-02 15:04:05"

// CSVSink writes intervals as CSV rows. The header is written once, before
// the first record.
type CSVSink struct {
	w           *csv.Writer
	closer      io.Closer
	wroteHeader bool
}

// NewCSVSink writes to w. If w is also an io.Closer it is closed by Close.
func NewCSVSink(w io.Writer) *CSVSink {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// Write appends records and flushes
func (s *CSVSink) Write(_ context.Context, records []models.ClassifiedInterval) error {
	if !s.wroteHeader {
		if err := s.w.Write(CSVHeader); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		s.wroteHeader = true
	}
	for _, rec := range records {
		if err := s.w.Write(CSVRow(rec)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the underlying writer when it is closable
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// CSVRow renders one record in CSVHeader order
func CSVRow(rec models.ClassifiedInterval) []string {
	return []string{
		rec.PersonID,
		rec.PersonName,
		rec.Date,
		rec.OutTime.Format(csvTimeLayout),
		rec.InTime.Format(csvTimeLayout),
		formatMinutes(rec.DurationMinutes),
		rec.Shift,
		rec.Category,
		formatMinutes(rec.LossMinutes),
		strconv.FormatBool(rec.Disrupted),
	}
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(m, 'f', 2, 64)
}
