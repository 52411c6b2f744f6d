package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
)

// TimeRange bounds event timestamps as [From, To). A zero bound is open.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (tr TimeRange) conditions() ([]string, []interface{}) {
	var conditions []string
	var args []interface{}
	if !tr.From.IsZero() {
		conditions = append(conditions, "ts >= ?")
		args = append(args, tr.From.Unix())
	}
	if !tr.To.IsZero() {
		conditions = append(conditions, "ts < ?")
		args = append(args, tr.To.Unix())
	}
	return conditions, args
}

// EventRepository handles database operations for badge events
type EventRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewEventRepository creates a new event repository. Timestamps are read back
// in loc, which decides calendar days during pairing.
func NewEventRepository(db *sql.DB, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{db: db, loc: loc}
}

const eventColumns = `id, person_id, person_name, ts, direction, location, seq, batch_id`

// InsertBatch stores events in one transaction and returns the number inserted.
// Stream positions are allocated inside the transaction, continuing after the
// last stored event in slice order, and written back to the inserted events.
// An event whose person, timestamp, direction and location are already stored
// is skipped and keeps its Seq.
func (r *EventRepository) InsertBatch(ctx context.Context, events []models.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM access_events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to get last sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO access_events
		(person_id, person_name, ts, direction, location, seq, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare event insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range events {
		ev := &events[i]
		result, err := stmt.ExecContext(ctx,
			ev.PersonID, ev.PersonName, ev.Timestamp.Unix(), string(ev.Direction),
			ev.Location, seq+1, ev.BatchID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert event for %s: %w", ev.PersonID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			continue
		}
		seq++
		ev.Seq = seq
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return inserted, nil
}

// List retrieves events with filtering and pagination
func (r *EventRepository) List(filter models.EventFilter) ([]models.Event, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.PersonID != "" {
		conditions = append(conditions, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if filter.Direction != "" {
		conditions = append(conditions, "direction = ?")
		args = append(args, strings.ToUpper(filter.Direction))
	}
	if filter.Location != "" {
		conditions = append(conditions, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "ts >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "ts <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM access_events"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	query := "SELECT " + eventColumns + " FROM access_events" + where +
		" ORDER BY ts DESC, seq DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events, err := r.scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Count returns the number of events inside tr
func (r *EventRepository) Count(ctx context.Context, tr TimeRange) (int, error) {
	conditions, args := tr.conditions()
	query := "SELECT COUNT(*) FROM access_events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Page returns up to limit events inside tr with id greater than afterID, in id order
func (r *EventRepository) Page(ctx context.Context, tr TimeRange, afterID int64, limit int) ([]models.Event, error) {
	conditions, args := tr.conditions()
	conditions = append(conditions, "id > ?")
	args = append(args, afterID, limit)

	query := "SELECT " + eventColumns + " FROM access_events WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY id LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event page: %w", err)
	}
	defer rows.Close()

	return r.scanEvents(rows)
}

func (r *EventRepository) scanEvents(rows *sql.Rows) ([]models.Event, error) {
	var events []models.Event
	for rows.Next() {
		var ev models.Event
		var ts int64
		var direction string
		err := rows.Scan(&ev.ID, &ev.PersonID, &ev.PersonName, &ts, &direction, &ev.Location, &ev.Seq, &ev.BatchID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Timestamp = time.Unix(ts, 0).In(r.loc)
		ev.Direction = models.Direction(direction)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 1000 {
		pageSize = 1000
	}
	return page, pageSize
}
