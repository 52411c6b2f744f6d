package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
)

// IntervalService handles queries and export of classified intervals
type IntervalService struct {
	repo *repository.IntervalRepository
}

// NewIntervalService creates a new interval service
func NewIntervalService(repo *repository.IntervalRepository) *IntervalService {
	return &IntervalService{repo: repo}
}

// List retrieves intervals with pagination
func (s *IntervalService) List(filter models.IntervalFilter) (*models.IntervalsResponse, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}

	records, total, err := s.repo.List(filter)
	if err != nil {
		return nil, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}

	if records == nil {
		records = []models.ClassifiedInterval{}
	}
	return &models.IntervalsResponse{
		Data:       records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// Export formats
const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

// Export writes every matching interval to w as CSV or as an xlsx workbook
func (s *IntervalService) Export(ctx context.Context, filter models.IntervalFilter, format string, w io.Writer) (int, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return 0, err
	}
	if format != ExportCSV && format != ExportXLSX {
		return 0, fmt.Errorf("%w: unknown export format %q", ErrInvalidInput, format)
	}

	records, err := s.repo.All(ctx, filter)
	if err != nil {
		return 0, err
	}

	var out sink.Sink
	if format == ExportXLSX {
		if out, err = sink.NewXLSXSink(w); err != nil {
			return 0, err
		}
	} else {
		out = sink.NewCSVSink(w)
	}
	writeErr := out.Write(ctx, records)
	closeErr := out.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return 0, fmt.Errorf("failed to export intervals: %w", err)
	}
	return len(records), nil
}
