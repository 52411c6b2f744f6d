package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// IntervalRepository handles database operations for classified intervals
type IntervalRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewIntervalRepository creates a new interval repository
func NewIntervalRepository(db *sql.DB, loc *time.Location) *IntervalRepository {
	if loc == nil {
		loc = time.Local
	}
	return &IntervalRepository{db: db, loc: loc}
}

const intervalColumns = `id, person_id, person_name, date, out_ts, in_ts, duration_minutes,
	shift, category, loss_minutes, disrupted, run_id`

// dateConditions restricts the interval date to [startDate, endDate]; empty bounds are open.
func dateConditions(startDate, endDate string) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if startDate != "" {
		conditions = append(conditions, "date >= ?")
		args = append(args, startDate)
	}
	if endDate != "" {
		conditions = append(conditions, "date <= ?")
		args = append(args, endDate)
	}
	return conditions, args
}

func intervalWhere(filter models.IntervalFilter) (string, []interface{}) {
	conditions, args := dateConditions(filter.StartDate, filter.EndDate)
	if filter.PersonID != "" {
		conditions = append(conditions, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if filter.Shift != "" {
		conditions = append(conditions, "shift = ?")
		args = append(args, filter.Shift)
	}
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Disrupted != nil {
		conditions = append(conditions, "disrupted = ?")
		args = append(args, boolToInt(*filter.Disrupted))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ReplaceRange deletes the intervals dated inside [startDate, endDate] and
// stores records in their place, atomically.
func (r *IntervalRepository) ReplaceRange(ctx context.Context, startDate, endDate string, records []models.ClassifiedInterval) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	conditions, args := dateConditions(startDate, endDate)
	del := "DELETE FROM loss_intervals"
	if len(conditions) > 0 {
		del += " WHERE " + strings.Join(conditions, " AND ")
	}
	res, err := tx.ExecContext(ctx, del, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear intervals: %w", err)
	}
	removed, _ := res.RowsAffected()

	if len(records) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO loss_intervals
			(person_id, person_name, date, out_ts, in_ts, out_hour, duration_minutes,
			 shift, category, loss_minutes, disrupted, run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("failed to prepare interval insert: %w", err)
		}
		defer stmt.Close()

		for _, rec := range records {
			_, err := stmt.ExecContext(ctx,
				rec.PersonID, rec.PersonName, rec.Date,
				rec.OutTime.Unix(), rec.InTime.Unix(), rec.OutTime.In(r.loc).Hour(),
				rec.DurationMinutes, rec.Shift, rec.Category, rec.LossMinutes,
				boolToInt(rec.Disrupted), rec.RunID,
			)
			if err != nil {
				return 0, fmt.Errorf("failed to insert interval for %s: %w", rec.PersonID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit intervals: %w", err)
	}
	return removed, nil
}

// List retrieves classified intervals with filtering and pagination
func (r *IntervalRepository) List(filter models.IntervalFilter) ([]models.ClassifiedInterval, int64, error) {
	where, args := intervalWhere(filter)

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM loss_intervals"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count intervals: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + intervalColumns + " FROM loss_intervals" + where +
		" ORDER BY date DESC, person_id, out_ts LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query intervals: %w", err)
	}
	defer rows.Close()

	records, err := r.scanIntervals(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// All retrieves every interval matching filter ordered by person, then OUT time.
// Pagination fields are ignored.
func (r *IntervalRepository) All(ctx context.Context, filter models.IntervalFilter) ([]models.ClassifiedInterval, error) {
	where, args := intervalWhere(filter)
	rows, err := r.db.QueryContext(ctx, "SELECT "+intervalColumns+" FROM loss_intervals"+where+" ORDER BY person_id, out_ts", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query intervals: %w", err)
	}
	defer rows.Close()

	return r.scanIntervals(rows)
}

// LatestDate returns the most recent interval date, or "" when none are stored
func (r *IntervalRepository) LatestDate(ctx context.Context) (string, error) {
	var date sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(date) FROM loss_intervals").Scan(&date); err != nil {
		return "", fmt.Errorf("failed to get latest interval date: %w", err)
	}
	return date.String, nil
}

func (r *IntervalRepository) scanIntervals(rows *sql.Rows) ([]models.ClassifiedInterval, error) {
	var records []models.ClassifiedInterval
	for rows.Next() {
		var rec models.ClassifiedInterval
		var outTS, inTS int64
		var disrupted int
		err := rows.Scan(
			&rec.ID, &rec.PersonID, &rec.PersonName, &rec.Date, &outTS, &inTS,
			&rec.DurationMinutes, &rec.Shift, &rec.Category, &rec.LossMinutes,
			&disrupted, &rec.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		rec.OutTime = time.Unix(outTS, 0).In(r.loc)
		rec.InTime = time.Unix(inTS, 0).In(r.loc)
		rec.Disrupted = disrupted != 0
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate intervals: %w", err)
	}
	return records, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
