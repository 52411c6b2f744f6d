package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// StatsRepository handles aggregate queries over classified intervals
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func statsWhere(filter models.StatsFilter) (string, []interface{}) {
	conditions, args := dateConditions(filter.StartDate, filter.EndDate)
	if filter.PersonID != "" {
		conditions = append(conditions, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// GetSummary retrieves headline loss figures. Median and p90 are left for the caller.
func (r *StatsRepository) GetSummary(filter models.StatsFilter) (*models.LossSummary, error) {
	where, args := statsWhere(filter)
	query := `SELECT COUNT(*), COUNT(DISTINCT person_id), MIN(date), MAX(date),
		COALESCE(SUM(loss_minutes), 0), COALESCE(AVG(loss_minutes), 0),
		COALESCE(MIN(loss_minutes), 0), COALESCE(MAX(loss_minutes), 0),
		COALESCE(SUM(disrupted), 0)
		FROM loss_intervals` + where

	summary := &models.LossSummary{}
	var firstDate, lastDate sql.NullString
	err := r.db.QueryRow(query, args...).Scan(
		&summary.TotalRecords, &summary.TotalPersons, &firstDate, &lastDate,
		&summary.TotalLossMinutes, &summary.AvgLossMinutes,
		&summary.MinLossMinutes, &summary.MaxLossMinutes, &summary.DisruptedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get loss summary: %w", err)
	}
	summary.FirstDate = firstDate.String
	summary.LastDate = lastDate.String
	summary.TotalLossHours = summary.TotalLossMinutes / 60
	return summary, nil
}

// GetLossValues returns every loss value matching filter in ascending order
func (r *StatsRepository) GetLossValues(filter models.StatsFilter) ([]float64, error) {
	where, args := statsWhere(filter)
	rows, err := r.db.Query("SELECT loss_minutes FROM loss_intervals"+where+" ORDER BY loss_minutes", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query loss values: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan loss value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetTopPersons ranks persons by total loss time
func (r *StatsRepository) GetTopPersons(filter models.StatsFilter) ([]models.PersonLoss, error) {
	where, args := statsWhere(filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT person_id, MAX(person_name), COUNT(*), SUM(loss_minutes)
		FROM loss_intervals` + where + `
		GROUP BY person_id
		ORDER BY SUM(loss_minutes) DESC, person_id
		LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top persons: %w", err)
	}
	defer rows.Close()

	var result []models.PersonLoss
	for rows.Next() {
		var p models.PersonLoss
		if err := rows.Scan(&p.PersonID, &p.PersonName, &p.Intervals, &p.LossMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan person loss: %w", err)
		}
		p.LossHours = p.LossMinutes / 60
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetCategoryLoss sums loss time per category, largest first
func (r *StatsRepository) GetCategoryLoss(filter models.StatsFilter) ([]models.CategoryLoss, error) {
	where, args := statsWhere(filter)
	query := `SELECT category, COUNT(*), SUM(loss_minutes)
		FROM loss_intervals` + where + `
		GROUP BY category
		ORDER BY SUM(loss_minutes) DESC, category`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category loss: %w", err)
	}
	defer rows.Close()

	var result []models.CategoryLoss
	for rows.Next() {
		var c models.CategoryLoss
		if err := rows.Scan(&c.Category, &c.Intervals, &c.LossMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan category loss: %w", err)
		}
		c.LossHours = c.LossMinutes / 60
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetHourlyDistribution counts intervals by OUT hour. All 24 hours are returned.
func (r *StatsRepository) GetHourlyDistribution(filter models.StatsFilter) ([]models.HourBucket, error) {
	where, args := statsWhere(filter)
	query := `SELECT out_hour, COUNT(*), SUM(loss_minutes)
		FROM loss_intervals` + where + `
		GROUP BY out_hour
		ORDER BY out_hour`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly distribution: %w", err)
	}
	defer rows.Close()

	buckets := make([]models.HourBucket, 24)
	for h := range buckets {
		buckets[h].Hour = h
	}
	for rows.Next() {
		var hour int
		var count int64
		var loss float64
		if err := rows.Scan(&hour, &count, &loss); err != nil {
			return nil, fmt.Errorf("failed to scan hourly bucket: %w", err)
		}
		if hour < 0 || hour > 23 {
			continue
		}
		buckets[hour].Count = count
		buckets[hour].LossMinutes = loss
	}
	return buckets, rows.Err()
}
