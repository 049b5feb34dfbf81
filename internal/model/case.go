package model

import (
	"strings"
	"time"
)

// PhoneNumber is one contact number on a case.
type PhoneNumber struct {
	Number      string `json:"number"`
	Description string `json:"description,omitempty"`
}

// IncomeSource is one reported income stream.
type IncomeSource struct {
	Source    string  `json:"source"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency,omitempty"`
}

// Expense is one recurring household expense.
type Expense struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Frequency string  `json:"frequency,omitempty"`
}

// Benefit is a public benefit the client receives or applied for.
type Benefit struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Address is a postal address.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// MergeProvenance records which cases produced a merged case.
type MergeProvenance struct {
	KeptCaseID    string    `json:"keptCaseId"`
	RemovedCaseID string    `json:"removedCaseId"`
	MergedAt      time.Time `json:"mergedAt"`
}

// Case is a client record.
type Case struct {
	ID             string           `gorm:"primaryKey;size:64" json:"caseId"`
	FirstName      string           `gorm:"size:128" json:"firstName,omitempty"`
	MiddleName     string           `gorm:"size:128" json:"middleName,omitempty"`
	LastName       string           `gorm:"size:128;index" json:"lastName,omitempty"`
	Suffix         string           `gorm:"size:16" json:"suffix,omitempty"`
	SSN            string           `gorm:"column:ssn;size:16" json:"ssn,omitempty"`
	DateOfBirth    string           `gorm:"size:10" json:"dateOfBirth,omitempty"`
	Gender         string           `gorm:"size:32" json:"gender,omitempty"`
	Email          string           `gorm:"size:256" json:"email,omitempty"`
	VeteranStatus  *bool            `json:"veteranStatus,omitempty"`
	PhoneNumbers   []PhoneNumber    `gorm:"serializer:json" json:"phoneNumbers,omitempty"`
	IncomeSources  []IncomeSource   `gorm:"serializer:json" json:"incomeSources,omitempty"`
	Expenses       []Expense        `gorm:"serializer:json" json:"expenses,omitempty"`
	Benefits       []Benefit        `gorm:"serializer:json" json:"benefits,omitempty"`
	StreetAddress  *Address         `gorm:"serializer:json" json:"streetAddress,omitempty"`
	MailingAddress *Address         `gorm:"serializer:json" json:"mailingAddress,omitempty"`
	MergedFrom     *MergeProvenance `gorm:"serializer:json" json:"mergedFrom,omitempty"`
	MergedIntoID   string           `gorm:"size:64;index" json:"mergedIntoId,omitempty"`
	RetiredAt      *time.Time       `json:"retiredAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// DisplayName is the name shown on bed rows and check-in records.
func (c Case) DisplayName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.FirstName, c.MiddleName, c.LastName, c.Suffix} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "Case " + c.ID
	}
	return strings.Join(parts, " ")
}

// Retired reports whether the case was merged away.
func (c Case) Retired() bool {
	return c.RetiredAt != nil
}

// CaseMergeLog is the audit trail of merges.
type CaseMergeLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	KeptCaseID    string    `gorm:"size:64;index;not null" json:"keptCaseId"`
	RemovedCaseID string    `gorm:"size:64;index;not null" json:"removedCaseId"`
	ActingUserID  string    `gorm:"size:64;not null" json:"actingUserId"`
	LocationID    string    `gorm:"size:64" json:"activeLocationId,omitempty"`
	MergedAt      time.Time `gorm:"not null" json:"mergedAt"`
}
