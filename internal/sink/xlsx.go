package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// XLSXSheet is the name of the sheet holding exported intervals
const XLSXSheet = "Loss Time Analysis"

// XLSXSink streams intervals into a single-sheet workbook. Rows follow
// CSVHeader. The workbook is written to w by Close.
type XLSXSink struct {
	w      io.Writer
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// NewXLSXSink prepares a workbook with its header row. If w is also an
// io.Closer it is closed by Close.
func NewXLSXSink(w io.Writer) (*XLSXSink, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), XLSXSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(XLSXSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}
	if err := stream.SetColWidth(1, len(CSVHeader), 20); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	header := make([]interface{}, len(CSVHeader))
	for i, h := range CSVHeader {
		header[i] = h
	}
	if err := stream.SetRow("A1", header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write xlsx header: %w", err)
	}
	return &XLSXSink{w: w, file: f, stream: stream, row: 1}, nil
}

// Write appends one row per record
func (s *XLSXSink) Write(_ context.Context, records []models.ClassifiedInterval) error {
	for _, rec := range records {
		s.row++
		cell, err := excelize.CoordinatesToCellName(1, s.row)
		if err != nil {
			return err
		}
		if err := s.stream.SetRow(cell, XLSXRow(rec)); err != nil {
			return fmt.Errorf("failed to write xlsx row: %w", err)
		}
	}
	return nil
}

// Close finishes the sheet and writes the workbook
func (s *XLSXSink) Close() error {
	defer s.file.Close()
	if err := s.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush xlsx sheet: %w", err)
	}
	if err := s.file.Write(s.w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// XLSXRow renders one record in CSVHeader order. Minutes stay numeric so the
// sheet can be summed.
func XLSXRow(rec models.ClassifiedInterval) []interface{} {
	return []interface{}{
		rec.PersonID,
		rec.PersonName,
		rec.Date,
		rec.OutTime.Format(csvTimeLayout),
		rec.InTime.Format(csvTimeLayout),
		rec.DurationMinutes,
		rec.Shift,
		rec.Category,
		rec.LossMinutes,
		rec.Disrupted,
	}
}
