package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ActivityType discriminates the entries on a case's activity timeline.
type ActivityType string

const (
	ActivityAssistance ActivityType = "assistance"
	ActivityReferral   ActivityType = "referral"
	ActivityNote       ActivityType = "note"
	ActivityDocument   ActivityType = "document"
	ActivityAlert      ActivityType = "alert"
)

var ErrUnknownActivity = errors.New("unknown activity type")

// ActivityDetail is implemented by exactly one struct per ActivityType.
type ActivityDetail interface {
	Type() ActivityType
	validate() error
}

// Assistance is money or goods provided to the client.
type Assistance struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount,omitempty"`
	Provider string  `json:"provider,omitempty"`
}

// Referral sends the client to another agency.
type Referral struct {
	Agency string `json:"agency"`
	Reason string `json:"reason,omitempty"`
	Status string `json:"status,omitempty"`
}

// Note is free-form case narrative.
type Note struct {
	Body string `json:"body"`
}

// Document points at a stored file.
type Document struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Alert flags something staff must see when opening the case.
type Alert struct {
	Message   string     `json:"message"`
	Severity  string     `json:"severity,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func (Assistance) Type() ActivityType { return ActivityAssistance }
func (Referral) Type() ActivityType   { return ActivityReferral }
func (Note) Type() ActivityType       { return ActivityNote }
func (Document) Type() ActivityType   { return ActivityDocument }
func (Alert) Type() ActivityType      { return ActivityAlert }

func (a Assistance) validate() error { return required("category", a.Category) }
func (r Referral) validate() error   { return required("agency", r.Agency) }
func (n Note) validate() error       { return required("body", n.Body) }
func (a Alert) validate() error      { return required("message", a.Message) }

func (d Document) validate() error {
	if err := required("title", d.Title); err != nil {
		return err
	}
	return required("url", d.URL)
}

func required(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Activity is one timeline entry, stored with its type tag and JSON detail.
type Activity struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	CaseID    string       `gorm:"size:64;index;not null" json:"caseId"`
	Type      ActivityType `gorm:"size:16;not null" json:"type"`
	Detail    []byte       `gorm:"not null" json:"-"`
	CreatedBy string       `gorm:"size:64;not null" json:"createdBy"`
	CreatedAt time.Time    `json:"createdAt"`
}

// DecodeActivityDetail decodes raw into the variant named by t.
func DecodeActivityDetail(t ActivityType, raw []byte) (ActivityDetail, error) {
	var d ActivityDetail
	switch t {
	case ActivityAssistance:
		d = &Assistance{}
	case ActivityReferral:
		d = &Referral{}
	case ActivityNote:
		d = &Note{}
	case ActivityDocument:
		d = &Document{}
	case ActivityAlert:
		d = &Alert{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivity, t)
	}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, fmt.Errorf("decode %s activity: %w", t, err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s activity: %w", t, err)
	}
	return d, nil
}

// NewActivity encodes d into a storable activity.
func NewActivity(caseID string, d ActivityDetail, createdBy string) (Activity, error) {
	if err := d.validate(); err != nil {
		return Activity{}, fmt.Errorf("invalid %s activity: %w", d.Type(), err)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return Activity{}, fmt.Errorf("encode %s activity: %w", d.Type(), err)
	}
	return Activity{CaseID: caseID, Type: d.Type(), Detail: raw, CreatedBy: createdBy}, nil
}

// Decode returns the typed detail of the activity.
func (a Activity) Decode() (ActivityDetail, error) {
	return DecodeActivityDetail(a.Type, a.Detail)
}

// MarshalJSON flattens the detail into a "detail" field.
func (a Activity) MarshalJSON() ([]byte, error) {
	type plain Activity
	return json.Marshal(struct {
		plain
		Detail json.RawMessage `json:"detail"`
	}{plain: plain(a), Detail: json.RawMessage(a.Detail)})
}
