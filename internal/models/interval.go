package models

import "time"

// DateLayout is the calendar-date format used for Interval.Date
const DateLayout = "2006-01-02"

// Interval is a paired OUT->IN absence for one person on one day
type Interval struct {
	PersonID        string    `json:"personId" db:"person_id"`
	PersonName      string    `json:"personName,omitempty" db:"person_name"`
	Date            string    `json:"date" db:"date"`
	OutTime         time.Time `json:"outTime" db:"out_ts"`
	InTime          time.Time `json:"inTime" db:"in_ts"`
	DurationMinutes float64   `json:"durationMinutes" db:"duration_minutes"`
}

// ClassifiedInterval is an Interval enriched with its shift, break category
// and loss time
type ClassifiedInterval struct {
	Interval
	ID          int64   `json:"id,omitempty" db:"id"`
	Shift       string  `json:"shift" db:"shift"`
	Category    string  `json:"category" db:"category"`
	LossMinutes float64 `json:"lossMinutes" db:"loss_minutes"`
	Disrupted   bool    `json:"disrupted" db:"disrupted"`
	RunID       string  `json:"runId,omitempty" db:"run_id"`
}

// IntervalsResponse represents a paginated response of classified intervals
type IntervalsResponse struct {
	Data       []ClassifiedInterval `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalPages int                  `json:"totalPages"`
}
