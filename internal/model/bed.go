package model

import (
	"time"

	"casework-backend/internal/beds"
)

// Bed is a single bed at a site.
type Bed struct {
	ID          int64       `gorm:"primaryKey" json:"bedId"`
	SiteID      int64       `gorm:"index;not null" json:"siteId"`
	Name        string      `gorm:"size:64;not null" json:"bedName"`
	Room        string      `gorm:"size:64" json:"room"`
	BedTypeID   int64       `json:"bedTypeId"`
	BedTypeName string      `gorm:"size:64" json:"bedTypeName"`
	Status      beds.Status `gorm:"size:16;not null;index" json:"status"`
	IsArchived  bool        `gorm:"not null;default:false" json:"isArchived"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	// Associations
	Site          Site        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ActiveCheckIn *BedCheckIn `gorm:"foreignKey:BedID" json:"checkIn,omitempty"`
}

// View returns the state-machine view of the bed.
func (b Bed) View() beds.View {
	return beds.View{ID: b.ID, Status: b.Status, IsArchived: b.IsArchived}
}
