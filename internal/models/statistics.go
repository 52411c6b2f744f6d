package models

// LossSummary holds headline figures over classified intervals
type LossSummary struct {
	TotalRecords     int64   `json:"totalRecords"`
	TotalPersons     int64   `json:"totalPersons"`
	FirstDate        string  `json:"firstDate,omitempty"`
	LastDate         string  `json:"lastDate,omitempty"`
	TotalLossMinutes float64 `json:"totalLossMinutes"`
	TotalLossHours   float64 `json:"totalLossHours"`
	AvgLossMinutes   float64 `json:"avgLossMinutes"`
	MinLossMinutes   float64 `json:"minLossMinutes"`
	MaxLossMinutes   float64 `json:"maxLossMinutes"`
	MedianLoss       float64 `json:"medianLossMinutes"`
	P90Loss          float64 `json:"p90LossMinutes"`
	DisruptedCount   int64   `json:"disruptedCount"`
	OutlierCount     int     `json:"outlierCount"` // loss above the upper IQR fence
}

// PersonLoss ranks a person by accumulated loss time
type PersonLoss struct {
	PersonID    string  `json:"personId"`
	PersonName  string  `json:"personName,omitempty"`
	Intervals   int64   `json:"intervals"`
	LossMinutes float64 `json:"lossMinutes"`
	LossHours   float64 `json:"lossHours"`
}

// CategoryLoss is the loss time attributed to one category
type CategoryLoss struct {
	Category    string  `json:"category"`
	Intervals   int64   `json:"intervals"`
	LossMinutes float64 `json:"lossMinutes"`
	LossHours   float64 `json:"lossHours"`
}

// HourBucket counts intervals by the hour of their OUT event
type HourBucket struct {
	Hour        int     `json:"hour"`
	Count       int64   `json:"count"`
	LossMinutes float64 `json:"lossMinutes"`
}
