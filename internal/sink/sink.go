// Package sink publishes classified intervals outside the database.
package sink

import (
	"context"
	"errors"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// Sink receives the records of one analysis run
type Sink interface {
	Write(ctx context.Context, records []models.ClassifiedInterval) error
	Close() error
}

// Multi fans records out to every sink, continuing past failures.
type Multi []Sink

// Write writes to all sinks and joins their errors
func (m Multi) Write(ctx context.Context, records []models.ClassifiedInterval) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all sinks and joins their errors
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
