package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"casework-backend/internal/beds"
	"casework-backend/internal/model"
	"casework-backend/internal/validate"
)

// ErrNotOffered is returned when a bed row does not offer the requested action.
var ErrNotOffered = errors.New("action is not offered for this bed")

// Row is one line of the bed table.
type Row struct {
	Bed      model.Bed      `json:"bed"`
	Actions  []beds.Action  `json:"actions"`
	Schedule *beds.Schedule `json:"schedule,omitempty"`
}

// ScheduleLabel renders the checkout annotation, or "" when none is scheduled.
func (r Row) ScheduleLabel() string {
	if r.Schedule == nil {
		return ""
	}
	return r.Schedule.Label()
}

// BedTracker mirrors the bed table of one site. It never edits its copy
// locally: every successful mutation is followed by a refetch.
type BedTracker struct {
	client *Client
	siteID int64
	loc    *time.Location
	now    func() time.Time

	mu   sync.RWMutex
	beds []model.Bed
}

// NewBedTracker creates a tracker for a site. loc decides calendar days for
// the checkout annotations.
func (c *Client) NewBedTracker(siteID int64, loc *time.Location) *BedTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &BedTracker{client: c, siteID: siteID, loc: loc, now: time.Now}
}

// Refresh refetches the site's beds.
func (t *BedTracker) Refresh(ctx context.Context) error {
	list, err := t.client.ListBeds(ctx, t.siteID)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.beds = list
	t.mu.Unlock()
	return nil
}

// Rows returns the visible beds with their offered actions.
func (t *BedTracker) Rows() []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	visible := beds.Visible(t.beds, model.Bed.View)
	rows := make([]Row, 0, len(visible))
	now := t.now()
	for _, b := range visible {
		row := Row{Bed: b, Actions: beds.Actions(b.View())}
		if ci := b.ActiveCheckIn; b.Status == beds.Occupied && ci != nil && ci.ScheduledCheckout != nil {
			s := beds.ClassifyCheckout(now, *ci.ScheduledCheckout, t.loc)
			row.Schedule = &s
		}
		rows = append(rows, row)
	}
	return rows
}

func (t *BedTracker) bed(id int64) (model.Bed, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.beds {
		if b.ID == id {
			return b, true
		}
	}
	return model.Bed{}, false
}

// offered checks the row action against the last fetched state. Beds the
// tracker has not seen are left to the backend to judge.
func (t *BedTracker) offered(bedID int64, a beds.Action) error {
	b, known := t.bed(bedID)
	if known && !beds.Offers(b.View(), a) {
		return fmt.Errorf("bed %s: %w: %s", b.Name, ErrNotOffered, a)
	}
	return nil
}

// holding returns the tracked bed whose active check-in is checkInID.
func (t *BedTracker) holding(checkInID string) (model.Bed, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.beds {
		if b.ActiveCheckIn != nil && b.ActiveCheckIn.ID == checkInID {
			return b, true
		}
	}
	return model.Bed{}, false
}

// offeredFor checks an action on an active check-in against the row of the
// bed holding it. A check-in on no tracked bed is left to the backend.
func (t *BedTracker) offeredFor(checkInID string, a beds.Action) (model.Bed, error) {
	b, known := t.holding(checkInID)
	if known && !beds.Offers(b.View(), a) {
		return b, fmt.Errorf("bed %s: %w: %s", b.Name, ErrNotOffered, a)
	}
	return b, nil
}

// refetch runs after a successful mutation.
func (t *BedTracker) refetch(ctx context.Context) error {
	if err := t.Refresh(ctx); err != nil {
		return fmt.Errorf("change saved but refreshing beds failed: %w", err)
	}
	return nil
}

// CheckIn validates req, checks the bed in and refetches.
func (t *BedTracker) CheckIn(ctx context.Context, req CheckInRequest) (model.BedCheckIn, error) {
	if err := validate.CheckIn.Validate(req); err != nil {
		return model.BedCheckIn{}, err
	}
	if err := t.offered(req.BedID, beds.CheckIn); err != nil {
		return model.BedCheckIn{}, err
	}
	ci, err := t.client.CheckIn(ctx, req)
	if err != nil {
		return model.BedCheckIn{}, err
	}
	return ci, t.refetch(ctx)
}

// EditOptions lists the beds an active check-in on currentBedID may move to.
func (t *BedTracker) EditOptions(currentBedID int64) []model.Bed {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return beds.EditOptions(t.beds, model.Bed.View, currentBedID)
}

// EditCheckIn validates req, applies the correction and refetches.
func (t *BedTracker) EditCheckIn(ctx context.Context, req EditCheckInRequest) (model.BedCheckIn, error) {
	if err := validate.EditCheckIn.Validate(req); err != nil {
		return model.BedCheckIn{}, err
	}
	current, err := t.offeredFor(req.CheckInID, beds.EditCheckIn)
	if err != nil {
		return model.BedCheckIn{}, err
	}
	if current.ID != 0 && req.BedID != current.ID {
		if err := t.offered(req.BedID, beds.CheckIn); err != nil {
			return model.BedCheckIn{}, err
		}
	}
	ci, err := t.client.EditCheckIn(ctx, req)
	if err != nil {
		return model.BedCheckIn{}, err
	}
	return ci, t.refetch(ctx)
}

// CheckOut validates req, closes the stay and refetches.
func (t *BedTracker) CheckOut(ctx context.Context, req CheckOutRequest) (model.BedStay, error) {
	if err := validate.CheckOut.Validate(req); err != nil {
		return model.BedStay{}, err
	}
	if _, err := t.offeredFor(req.CheckInID, beds.CheckOut); err != nil {
		return model.BedStay{}, err
	}
	stay, err := t.client.CheckOut(ctx, req)
	if err != nil {
		return model.BedStay{}, err
	}
	return stay, t.refetch(ctx)
}

// Archive hides a bed and refetches.
func (t *BedTracker) Archive(ctx context.Context, bedID int64) (model.Bed, error) {
	b, err := t.client.ArchiveBed(ctx, bedID)
	if err != nil {
		return model.Bed{}, err
	}
	return b, t.refetch(ctx)
}
