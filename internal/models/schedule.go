package models

// Slot is one posting opportunity of the day: a configured hour with a
// randomly drawn minute. Posted flips to true exactly once, after the
// upload for that slot succeeded, and is never reset within the day.
type Slot struct {
	Hour   int  `json:"hour"`
	Minute int  `json:"minute"`
	Posted bool `json:"posted"`
}

// DailySchedule is the persisted posting plan for a single calendar day.
// It is superseded wholesale at day rollover, never migrated.
type DailySchedule struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}
