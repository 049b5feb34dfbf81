package api

import (
	"encoding/json"

	"casework-backend/internal/merge"
)

// CheckInRequest is the body of POST /api/beds/check-in. The denormalized
// case and bed names are accepted for compatibility; the stored values win.
type CheckInRequest struct {
	CaseID                string `json:"caseId"`
	CaseName              string `json:"caseName,omitempty"`
	BedID                 int64  `json:"bedId"`
	BedName               string `json:"bedName,omitempty"`
	Room                  string `json:"room,omitempty"`
	BedTypeID             int64  `json:"bedTypeId,omitempty"`
	BedTypeName           string `json:"bedTypeName,omitempty"`
	CheckInDate           string `json:"checkInDate"`
	ScheduledCheckoutDate string `json:"scheduledCheckoutDate,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// EditCheckInRequest is the body of POST /api/beds/check-in/edit.
type EditCheckInRequest struct {
	CheckInRequest
	CheckInID string `json:"checkInId"`
}

// CheckOutRequest is the body of POST /api/beds/check-out.
type CheckOutRequest struct {
	CheckInID     string `json:"checkInId"`
	CheckOutDate  string `json:"checkOutDate"`
	CheckOutNotes string `json:"checkOutNotes,omitempty"`
}

// StatusRequest is the body of POST /api/beds/:bed_id/status.
type StatusRequest struct {
	Status string `json:"status"`
}

// MergeRequest is the body of POST /api/cases/merge. Either MergedFields
// carries the fully assembled record, or Selections names a side per diff
// key and the server assembles the record with the kept case on the left.
type MergeRequest struct {
	KeptCaseID       string                `json:"keptCaseId"`
	RemovedCaseID    string                `json:"removedCaseId"`
	MergedFields     map[string]any        `json:"mergedFields,omitempty"`
	Selections       map[string]merge.Side `json:"selections,omitempty"`
	ActingUserID     string                `json:"actingUserId,omitempty"`
	ActiveLocationID string                `json:"activeLocationId,omitempty"`
}

// MergePreview is the response of GET /api/cases/merge/preview.
type MergePreview struct {
	KeptCaseID    string                `json:"keptCaseId"`
	RemovedCaseID string                `json:"removedCaseId"`
	HasConflicts  bool                  `json:"hasConflicts"`
	Diffs         []merge.FieldDiff     `json:"diffs"`
	Selections    map[string]merge.Side `json:"selections"`
}

// BedRequest is the body of POST /api/sites/:site_id/beds. A label such as
// "Room 12-B" may replace the room and bed name.
type BedRequest struct {
	BedName     string `json:"bedName,omitempty"`
	Room        string `json:"room,omitempty"`
	Label       string `json:"label,omitempty"`
	BedTypeID   int64  `json:"bedTypeId,omitempty"`
	BedTypeName string `json:"bedTypeName,omitempty"`
	Status      string `json:"status,omitempty"`
}

// SiteRequest is the body of POST /api/sites.
type SiteRequest struct {
	Name       string `json:"name"`
	LocationID string `json:"locationId,omitempty"`
}

// ActivityRequest is the body of POST /api/cases/:case_id/activities.
type ActivityRequest struct {
	Type   string          `json:"type"`
	Detail json.RawMessage `json:"detail"`
}
