package model

import (
	"time"
)

// BedCheckIn is the active stay on a bed (hot table). A bed has at most one.
type BedCheckIn struct {
	ID                string     `gorm:"primaryKey;size:36" json:"checkInId"`
	BedID             int64      `gorm:"uniqueIndex;not null" json:"bedId"`
	SiteID            int64      `gorm:"index;not null" json:"siteId"`
	CaseID            string     `gorm:"size:64;index;not null" json:"caseId"`
	CaseName          string     `gorm:"size:256;not null" json:"caseName"`
	BedName           string     `gorm:"size:64;not null" json:"bedName"`
	Room              string     `gorm:"size:64" json:"room"`
	BedTypeID         int64      `json:"bedTypeId"`
	BedTypeName       string     `gorm:"size:64" json:"bedTypeName"`
	CheckInDate       time.Time  `gorm:"not null" json:"checkInDate"`
	ScheduledCheckout *time.Time `json:"scheduledCheckoutDate,omitempty"`
	Notes             string     `gorm:"size:2048" json:"notes,omitempty"`
	CheckedInBy       string     `gorm:"size:64;not null" json:"checkedInBy"`
	LocationID        string     `gorm:"size:64" json:"locationId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// BedStay is a completed check-in/check-out period (cold table).
type BedStay struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CheckInID     string    `gorm:"size:36;uniqueIndex;not null" json:"checkInId"`
	BedID         int64     `gorm:"index;not null" json:"bedId"`
	SiteID        int64     `gorm:"index;not null" json:"siteId"`
	CaseID        string    `gorm:"size:64;index;not null" json:"caseId"`
	CaseName      string    `gorm:"size:256;not null" json:"caseName"`
	CheckInDate   time.Time `gorm:"not null" json:"checkInDate"`
	CheckOutDate  time.Time `gorm:"not null;index" json:"checkOutDate"`
	CheckInNotes  string    `gorm:"size:2048" json:"notes,omitempty"`
	CheckOutNotes string    `gorm:"size:2048" json:"checkOutNotes,omitempty"`
	CheckedInBy   string    `gorm:"size:64" json:"checkedInBy"`
	CheckedOutBy  string    `gorm:"size:64" json:"checkedOutBy"`
	CreatedAt     time.Time `json:"createdAt"`
}
