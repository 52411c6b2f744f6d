package models

// EventFilter represents filter parameters for querying events
type EventFilter struct {
	PersonID  string `form:"personId"`
	Direction string `form:"direction"` // IN, OUT
	Location  string `form:"location"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// IntervalFilter represents filter parameters for querying classified intervals
type IntervalFilter struct {
	PersonID  string `form:"personId"`
	Shift     string `form:"shift"`
	Category  string `form:"category"`
	StartDate string `form:"startDate"` // YYYY-MM-DD, inclusive
	EndDate   string `form:"endDate"`   // YYYY-MM-DD, inclusive
	Disrupted *bool  `form:"disrupted"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// StatsFilter represents filter parameters for loss-time statistics
type StatsFilter struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	PersonID  string `form:"personId"`
	Category  string `form:"category"`
	Limit     int    `form:"limit"`
}
