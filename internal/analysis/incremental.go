package analysis

import (
	"context"
	"fmt"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
)

// EventSource pages through stored events
type EventSource interface {
	Count(ctx context.Context, tr repository.TimeRange) (int, error)
	Page(ctx context.Context, tr repository.TimeRange, afterID int64, limit int) ([]models.Event, error)
}

// ProgressRecorder persists task progress
type ProgressRecorder interface {
	UpdateProgress(id int64, processed, total int) error
}

// BatchLoader reads the events of a range in batches, recording progress as it goes
type BatchLoader struct {
	Events    EventSource
	Progress  ProgressRecorder
	BatchSize int // Number of events to read in each batch
}

// NewBatchLoader creates a new batch loader
func NewBatchLoader(events EventSource, progress ProgressRecorder, batchSize int) *BatchLoader {
	if batchSize <= 0 {
		batchSize = 5000 // Default batch size
	}
	return &BatchLoader{
		Events:    events,
		Progress:  progress,
		BatchSize: batchSize,
	}
}

// Load returns every event inside tr. Progress is reported against taskID
// after each batch; a nil Progress disables reporting.
func (l *BatchLoader) Load(ctx context.Context, taskID int64, tr repository.TimeRange) ([]models.Event, error) {
	total, err := l.Events.Count(ctx, tr)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, nil
	}

	events := make([]models.Event, 0, total)
	var afterID int64
	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch, err := l.Events.Page(ctx, tr, afterID, l.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch batch after id %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}
		events = append(events, batch...)
		afterID = batch[len(batch)-1].ID

		if l.Progress != nil {
			processed := len(events)
			if processed > total {
				// events arriving during the load
				total = processed
			}
			if err := l.Progress.UpdateProgress(taskID, processed, total); err != nil {
				return nil, fmt.Errorf("failed to update progress: %w", err)
			}
		}
		if len(batch) < l.BatchSize {
			break
		}
	}

	return events, nil
}
