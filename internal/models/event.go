package models

import "time"

// Direction is the badge reader's direction for an access event
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Event is one badge tap. Seq is the position in the original stream and
// breaks timestamp ties.
type Event struct {
	ID         int64     `json:"id,omitempty" db:"id"`
	PersonID   string    `json:"personId" db:"person_id"`
	PersonName string    `json:"personName,omitempty" db:"person_name"`
	Timestamp  time.Time `json:"timestamp" db:"ts"`
	Direction  Direction `json:"direction" db:"direction"`
	Location   string    `json:"location,omitempty" db:"location"`
	Seq        int64     `json:"seq" db:"seq"`
	BatchID    string    `json:"batchId,omitempty" db:"batch_id"`
}

// EventsResponse represents a paginated response of events
type EventsResponse struct {
	Data       []Event `json:"data"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	TotalPages int     `json:"totalPages"`
}

// ImportReport summarizes one ingestion batch
type ImportReport struct {
	BatchID    string         `json:"batchId"`
	Rows       int            `json:"rows"`
	Imported   int            `json:"imported"`
	Duplicates int            `json:"duplicates"`
	Excluded   int            `json:"excluded"`
	Skipped    int            `json:"skipped"`
	SkipReason map[string]int `json:"skipReason,omitempty"`
}
