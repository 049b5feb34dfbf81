package model

import "time"

// Site is a shelter location that owns beds.
type Site struct {
	ID         int64     `gorm:"primaryKey" json:"siteId"`
	Name       string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	LocationID string    `gorm:"size:64;index" json:"locationId,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`

	// Associations
	Beds []Bed `gorm:"foreignKey:SiteID" json:"-"`
}
