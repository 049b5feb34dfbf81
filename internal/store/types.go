package store

import (
	"time"

	"casework-backend/internal/model"
)

// MergeInput carries a reviewed merge. Merged holds the full field set of
// the surviving case; its ID is forced to KeptCaseID.
type MergeInput struct {
	KeptCaseID    string
	RemovedCaseID string
	Merged        model.Case
	ActingUserID  string
	LocationID    string
	MergedAt      time.Time
}

// CheckInInput opens a stay on an Available bed.
type CheckInInput struct {
	CaseID            string
	BedID             int64
	CheckInDate       time.Time
	ScheduledCheckout *time.Time
	Notes             string
	UserID            string
	LocationID        string
}

// EditCheckInInput corrects an active check-in. A zero BedID or empty CaseID
// keeps the current value.
type EditCheckInInput struct {
	CheckInID         string
	CaseID            string
	BedID             int64
	CheckInDate       time.Time
	ScheduledCheckout *time.Time
	Notes             string
	UserID            string
}

// CheckOutInput closes an active check-in.
type CheckOutInput struct {
	CheckInID    string
	CheckOutDate time.Time
	Notes        string
	UserID       string
}

// SiteSummary is a site with its bed counts. Archived beds are not counted.
type SiteSummary struct {
	model.Site
	BedsAvailable int64 `json:"bedsAvailable"`
	BedsTotal     int64 `json:"bedsTotal"`
}
