package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/ingest"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
)

// EventService handles badge event import and listing
type EventService struct {
	repo   *repository.EventRepository
	reader *ingest.Reader
	logger *slog.Logger
}

// NewEventService creates a new event service
func NewEventService(repo *repository.EventRepository, reader *ingest.Reader, logger *slog.Logger) *EventService {
	return &EventService{
		repo:   repo,
		reader: reader,
		logger: logger.With("component", "event_service"),
	}
}

// Import reads a badge export and stores its events as one batch. Files named
// *.xlsx are read as workbooks, anything else as CSV. Events already stored by
// an earlier import are counted as duplicates.
func (s *EventService) Import(ctx context.Context, name string, r io.Reader) (*models.ImportReport, error) {
	batchID := uuid.NewString()
	events, report, err := s.reader.ReadAs(name, r, 1, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	inserted, err := s.repo.InsertBatch(ctx, events)
	if err != nil {
		return nil, err
	}
	report.Duplicates = len(events) - inserted
	report.Imported = inserted

	s.logger.Info("events imported",
		"batch_id", batchID,
		"file", name,
		"rows", report.Rows,
		"imported", report.Imported,
		"duplicates", report.Duplicates,
		"excluded", report.Excluded,
		"skipped", report.Skipped,
	)
	return &report, nil
}

// List retrieves events with pagination
func (s *EventService) List(filter models.EventFilter) (*models.EventsResponse, error) {
	events, total, err := s.repo.List(filter)
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

	if events == nil {
		events = []models.Event{}
	}
	return &models.EventsResponse{
		Data:       events,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

func totalPages(total int64, pageSize int) int {
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
