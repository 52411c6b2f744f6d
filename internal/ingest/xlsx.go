package ingest

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// layouts that Excel serial dates are rendered to before timestamp parsing
var serialLayouts = map[string]string{
	"timestamp": "2006-01-02 15:04:05",
	"date":      "2006-01-02",
	"time":      "15:04:05",
}

// ReadAs decodes r as a workbook when name has an .xlsx extension and as CSV
// otherwise.
func (rd *Reader) ReadAs(name string, r io.Reader, startSeq int64, batchID string) ([]models.Event, models.ImportReport, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return rd.ReadXLSX(r, startSeq, batchID)
	}
	return rd.Read(r, startSeq, batchID)
}

// ReadXLSX decodes the first sheet of an xlsx workbook the way Read decodes a
// CSV export. Date and time cells stored as Excel serial numbers carry no zone
// and are read as wall clock time in the reader's location.
func (rd *Reader) ReadXLSX(r io.Reader, startSeq int64, batchID string) ([]models.Event, models.ImportReport, error) {
	report := models.ImportReport{BatchID: batchID, SkipReason: map[string]int{}}

	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, report, fmt.Errorf("failed to open xlsx workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, report, errors.New("xlsx workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, report, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, report, fmt.Errorf("xlsx sheet %q is empty", sheets[0])
	}

	var date1904 bool
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	header := rows[0]
	ci, _ := mapHeader(header)
	next := 1
	return rd.decode(header, func() ([]string, error) {
		for next < len(rows) {
			record := rows[next]
			next++
			if len(record) == 0 {
				continue
			}
			return serialsToText(ci, record, date1904), nil
		}
		return nil, io.EOF
	}, startSeq, batchID)
}

func serialsToText(ci columnIndex, record []string, date1904 bool) []string {
	for field, layout := range serialLayouts {
		i, ok := ci[field]
		if !ok || i >= len(record) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			continue
		}
		record[i] = t.Format(layout)
	}
	return record
}
