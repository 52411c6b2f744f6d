package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/cache"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/stats"
)

// StatsService handles business logic for loss-time reports
type StatsService struct {
	statsRepo *repository.StatsRepository
	cache     *cache.ReportCache
}

// NewStatsService creates a new stats service. reportCache may be nil.
func NewStatsService(statsRepo *repository.StatsRepository, reportCache *cache.ReportCache) *StatsService {
	return &StatsService{
		statsRepo: statsRepo,
		cache:     reportCache,
	}
}

// GetSummary retrieves headline loss figures with median and p90
func (s *StatsService) GetSummary(ctx context.Context, filter models.StatsFilter) (*models.LossSummary, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	filter.Limit = 0

	var cached models.LossSummary
	if s.cache.Get(ctx, "summary", filter, &cached) {
		return &cached, nil
	}

	summary, err := s.statsRepo.GetSummary(filter)
	if err != nil {
		return nil, err
	}
	values, err := s.statsRepo.GetLossValues(filter)
	if err != nil {
		return nil, err
	}
	summary.MedianLoss = stats.Median(values)
	summary.P90Loss = stats.Percentile(values, 90)
	summary.OutlierCount = stats.CountAbove(values)

	s.cache.Set(ctx, "summary", filter, summary)
	return summary, nil
}

// GetTopPersons ranks persons by accumulated loss
func (s *StatsService) GetTopPersons(ctx context.Context, filter models.StatsFilter) ([]models.PersonLoss, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	var cached []models.PersonLoss
	if s.cache.Get(ctx, "top_persons", filter, &cached) {
		return cached, nil
	}
	result, err := s.statsRepo.GetTopPersons(filter)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []models.PersonLoss{}
	}
	s.cache.Set(ctx, "top_persons", filter, result)
	return result, nil
}

// GetCategoryLoss sums loss time per category
func (s *StatsService) GetCategoryLoss(ctx context.Context, filter models.StatsFilter) ([]models.CategoryLoss, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	filter.Limit = 0

	var cached []models.CategoryLoss
	if s.cache.Get(ctx, "categories", filter, &cached) {
		return cached, nil
	}
	result, err := s.statsRepo.GetCategoryLoss(filter)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []models.CategoryLoss{}
	}
	s.cache.Set(ctx, "categories", filter, result)
	return result, nil
}

// GetHourlyDistribution counts intervals by OUT hour
func (s *StatsService) GetHourlyDistribution(ctx context.Context, filter models.StatsFilter) ([]models.HourBucket, error) {
	if err := validateDates(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	filter.Limit = 0

	var cached []models.HourBucket
	if s.cache.Get(ctx, "hourly", filter, &cached) {
		return cached, nil
	}
	result, err := s.statsRepo.GetHourlyDistribution(filter)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, "hourly", filter, result)
	return result, nil
}

// validateDates checks optional YYYY-MM-DD bounds
func validateDates(startDate, endDate string) error {
	for _, d := range []string{startDate, endDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, d)
		}
	}
	if startDate != "" && endDate != "" && endDate < startDate {
		return fmt.Errorf("%w: start date must be before end date", ErrInvalidInput)
	}
	return nil
}
