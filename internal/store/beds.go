package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"casework-backend/internal/beds"
	"casework-backend/internal/model"
	"casework-backend/internal/parse"
)

func (s *gormStore) CreateSite(ctx context.Context, site *model.Site) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Site{}).Where("name = ?", site.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrSiteExists, site.Name)
		}
		if err := tx.Create(site).Error; err != nil {
			return fmt.Errorf("failed to create site %q: %w", site.Name, err)
		}
		return nil
	})
}

// ListSites returns every site with its bed counts, aggregated in one query.
func (s *gormStore) ListSites(ctx context.Context) ([]SiteSummary, error) {
	db := s.db.WithContext(ctx)

	var sites []model.Site
	if err := db.Order("name").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sites: %w", err)
	}

	type aggRow struct {
		SiteID    int64
		Total     int64
		Available int64
	}
	var aggs []aggRow
	if err := db.
		Model(&model.Bed{}).
		Select("site_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS available", string(beds.Available)).
		Where("is_archived = ?", false).
		Group("site_id").
		Scan(&aggs).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate beds: %w", err)
	}

	aggMap := make(map[int64]aggRow, len(aggs))
	for _, a := range aggs {
		aggMap[a.SiteID] = a
	}

	out := make([]SiteSummary, 0, len(sites))
	for _, site := range sites {
		a := aggMap[site.ID]
		out = append(out, SiteSummary{Site: site, BedsAvailable: a.Available, BedsTotal: a.Total})
	}
	return out, nil
}

func findSite(tx *gorm.DB, id int64) (model.Site, error) {
	var site model.Site
	if err := tx.First(&site, id).Error; err != nil {
		return model.Site{}, fmt.Errorf("site %d: %w", id, notFound(err, ErrSiteNotFound))
	}
	return site, nil
}

// CreateBed adds a bed to an existing site. New beds start Available unless
// created Unavailable.
func (s *gormStore) CreateBed(ctx context.Context, b *model.Bed) error {
	switch b.Status {
	case "":
		b.Status = beds.Available
	case beds.Available, beds.Unavailable:
	default:
		return fmt.Errorf("%w: a new bed cannot be %s", beds.ErrInvalidTransition, b.Status)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findSite(tx, b.SiteID); err != nil {
			return err
		}
		b.ActiveCheckIn = nil
		if err := tx.Omit("Site", "ActiveCheckIn").Create(b).Error; err != nil {
			return fmt.Errorf("failed to create bed %q: %w", b.Name, err)
		}
		return nil
	})
}

func (s *gormStore) GetBed(ctx context.Context, id int64) (model.Bed, error) {
	return findBed(s.db.WithContext(ctx).Preload("ActiveCheckIn"), id)
}

func findBed(tx *gorm.DB, id int64) (model.Bed, error) {
	var b model.Bed
	if err := tx.First(&b, id).Error; err != nil {
		return model.Bed{}, fmt.Errorf("bed %d: %w", id, notFound(err, ErrBedNotFound))
	}
	return b, nil
}

// ListBeds returns the visible beds of a site with their active check-ins.
func (s *gormStore) ListBeds(ctx context.Context, siteID int64) ([]model.Bed, error) {
	db := s.db.WithContext(ctx)
	if _, err := findSite(db, siteID); err != nil {
		return nil, err
	}
	var all []model.Bed
	if err := db.Preload("ActiveCheckIn").
		Where("site_id = ? AND is_archived = ?", siteID, false).
		Order("room, name, id").
		Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve beds of site %d: %w", siteID, err)
	}
	return beds.Visible(all, model.Bed.View), nil
}

// AvailableBeds lists the beds a check-in may use: non-archived Available
// beds, plus currentBedID when it is set and not archived.
func (s *gormStore) AvailableBeds(ctx context.Context, siteID, currentBedID int64) ([]model.Bed, error) {
	all, err := s.ListBeds(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return beds.EditOptions(all, model.Bed.View, currentBedID), nil
}

// SetBedStatus toggles a bed between Available and Unavailable.
func (s *gormStore) SetBedStatus(ctx context.Context, bedID int64, status beds.Status) (model.Bed, error) {
	var action beds.Action
	switch status {
	case beds.Available:
		action = beds.MarkOpen
	case beds.Unavailable:
		action = beds.MarkClosed
	default:
		return model.Bed{}, fmt.Errorf("%w: status cannot be set to %q directly", beds.ErrInvalidTransition, status)
	}

	var out model.Bed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := findBed(tx, bedID)
		if err != nil {
			return err
		}
		if b.IsArchived {
			return fmt.Errorf("%w: bed %d is archived", beds.ErrInvalidTransition, bedID)
		}
		next, err := beds.Transition(b.Status, action)
		if err != nil {
			return err
		}
		res := tx.Model(&model.Bed{}).
			Where("id = ? AND status = ?", bedID, b.Status).
			Update("status", next)
		if res.Error != nil {
			return fmt.Errorf("failed to update bed %d: %w", bedID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: bed %d changed concurrently", beds.ErrInvalidTransition, bedID)
		}
		out, err = findBed(tx.Preload("ActiveCheckIn"), bedID)
		return err
	})
	return out, err
}

// ArchiveBed hides a bed from every listing. Archiving is allowed from any
// state and is idempotent.
func (s *gormStore) ArchiveBed(ctx context.Context, bedID int64) (model.Bed, error) {
	var out model.Bed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := findBed(tx, bedID)
		if err != nil {
			return err
		}
		if _, err := beds.Transition(b.Status, beds.Archive); err != nil {
			return err
		}
		if !b.IsArchived {
			if err := tx.Model(&model.Bed{}).Where("id = ?", bedID).Update("is_archived", true).Error; err != nil {
				return fmt.Errorf("failed to archive bed %d: %w", bedID, err)
			}
		}
		out, err = findBed(tx, bedID)
		return err
	})
	return out, err
}

func (s *gormStore) BedHistory(ctx context.Context, bedID int64) ([]model.BedStay, error) {
	db := s.db.WithContext(ctx)
	if _, err := findBed(db, bedID); err != nil {
		return nil, err
	}
	var stays []model.BedStay
	if err := db.Where("bed_id = ?", bedID).Order("check_out_date DESC, id DESC").Find(&stays).Error; err != nil {
		return nil, fmt.Errorf("failed to load history of bed %d: %w", bedID, err)
	}
	return stays, nil
}

// occupy moves a bed from Available to Occupied. The conditional update
// makes a concurrent check-in on the same bed fail with ErrBedUnavailable.
func occupy(tx *gorm.DB, bedID int64) (model.Bed, error) {
	b, err := findBed(tx, bedID)
	if err != nil {
		return b, err
	}
	if b.IsArchived {
		return b, fmt.Errorf("%w: bed %s is archived", ErrBedUnavailable, b.Name)
	}
	next, err := beds.Transition(b.Status, beds.CheckIn)
	if err != nil {
		return b, fmt.Errorf("%w: bed %s is %s", ErrBedUnavailable, b.Name, b.Status)
	}
	res := tx.Model(&model.Bed{}).
		Where("id = ? AND status = ? AND is_archived = ?", bedID, beds.Available, false).
		Update("status", next)
	if res.Error != nil {
		return b, fmt.Errorf("failed to occupy bed %d: %w", bedID, res.Error)
	}
	if res.RowsAffected == 0 {
		return b, fmt.Errorf("%w: bed %s was taken", ErrBedUnavailable, b.Name)
	}
	b.Status = next
	return b, nil
}

// release returns a bed to Available after its check-in closed or moved.
func release(tx *gorm.DB, bedID int64) error {
	next, _ := beds.Transition(beds.Occupied, beds.CheckOut)
	err := tx.Model(&model.Bed{}).
		Where("id = ? AND status = ?", bedID, beds.Occupied).
		Update("status", next).Error
	if err != nil {
		return fmt.Errorf("failed to release bed %d: %w", bedID, err)
	}
	return nil
}

func placeOnBed(ci *model.BedCheckIn, b model.Bed) {
	ci.BedID = b.ID
	ci.SiteID = b.SiteID
	ci.BedName = b.Name
	ci.Room = b.Room
	ci.BedTypeID = b.BedTypeID
	ci.BedTypeName = b.BedTypeName
}

func checkDates(checkIn time.Time, scheduled *time.Time) error {
	if scheduled != nil && parse.Day(*scheduled, nil).Before(parse.Day(checkIn, nil)) {
		return fmt.Errorf("%w: scheduled checkout %s", ErrInvalidDates, scheduled.Format("2006-01-02"))
	}
	return nil
}

// CheckIn opens a stay for a case on an Available bed.
func (s *gormStore) CheckIn(ctx context.Context, in CheckInInput) (model.BedCheckIn, error) {
	if err := checkDates(in.CheckInDate, in.ScheduledCheckout); err != nil {
		return model.BedCheckIn{}, err
	}
	var ci model.BedCheckIn
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findActiveCase(tx, in.CaseID)
		if err != nil {
			return err
		}
		var held int64
		if err := tx.Model(&model.BedCheckIn{}).Where("case_id = ?", c.ID).Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return fmt.Errorf("%w: %s", ErrCaseCheckedIn, c.DisplayName())
		}

		b, err := occupy(tx, in.BedID)
		if err != nil {
			return err
		}

		ci = model.BedCheckIn{
			ID:                uuid.NewString(),
			CaseID:            c.ID,
			CaseName:          c.DisplayName(),
			CheckInDate:       in.CheckInDate,
			ScheduledCheckout: in.ScheduledCheckout,
			Notes:             in.Notes,
			CheckedInBy:       in.UserID,
			LocationID:        in.LocationID,
		}
		placeOnBed(&ci, b)
		if err := tx.Create(&ci).Error; err != nil {
			return fmt.Errorf("failed to create check-in on bed %d: %w", b.ID, err)
		}
		return nil
	})
	if err != nil {
		return model.BedCheckIn{}, err
	}
	return ci, nil
}

func findCheckIn(tx *gorm.DB, id string) (model.BedCheckIn, error) {
	var ci model.BedCheckIn
	if err := tx.First(&ci, "id = ?", id).Error; err != nil {
		return model.BedCheckIn{}, fmt.Errorf("check-in %s: %w", id, notFound(err, ErrCheckInNotFound))
	}
	return ci, nil
}

// EditCheckIn corrects the metadata of an active check-in. Moving to another
// bed occupies the new bed and frees the old one.
func (s *gormStore) EditCheckIn(ctx context.Context, in EditCheckInInput) (model.BedCheckIn, error) {
	if err := checkDates(in.CheckInDate, in.ScheduledCheckout); err != nil {
		return model.BedCheckIn{}, err
	}
	var ci model.BedCheckIn
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		ci, err = findCheckIn(tx, in.CheckInID)
		if err != nil {
			return err
		}

		if in.CaseID != "" && in.CaseID != ci.CaseID {
			c, err := findActiveCase(tx, in.CaseID)
			if err != nil {
				return err
			}
			var held int64
			if err := tx.Model(&model.BedCheckIn{}).Where("case_id = ?", c.ID).Count(&held).Error; err != nil {
				return err
			}
			if held > 0 {
				return fmt.Errorf("%w: %s", ErrCaseCheckedIn, c.DisplayName())
			}
			ci.CaseID = c.ID
			ci.CaseName = c.DisplayName()
		}

		if in.BedID != 0 && in.BedID != ci.BedID {
			b, err := occupy(tx, in.BedID)
			if err != nil {
				return err
			}
			if err := release(tx, ci.BedID); err != nil {
				return err
			}
			placeOnBed(&ci, b)
		}

		if !in.CheckInDate.IsZero() {
			ci.CheckInDate = in.CheckInDate
		}
		ci.ScheduledCheckout = in.ScheduledCheckout
		ci.Notes = in.Notes
		if err := tx.Save(&ci).Error; err != nil {
			return fmt.Errorf("failed to update check-in %s: %w", ci.ID, err)
		}
		return nil
	})
	if err != nil {
		return model.BedCheckIn{}, err
	}
	return ci, nil
}

// CheckOut closes an active check-in: the stay is archived, the hot row is
// deleted and the bed becomes Available.
func (s *gormStore) CheckOut(ctx context.Context, in CheckOutInput) (model.BedStay, error) {
	var stay model.BedStay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ci, err := findCheckIn(tx, in.CheckInID)
		if err != nil {
			return err
		}
		if parse.Day(in.CheckOutDate, nil).Before(parse.Day(ci.CheckInDate, nil)) {
			return fmt.Errorf("%w: checked in %s", ErrInvalidDates, ci.CheckInDate.Format("2006-01-02"))
		}

		stay, err = archiveStay(tx, ci, in)
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.BedCheckIn{}, "id = ?", ci.ID).Error; err != nil {
			return fmt.Errorf("failed to delete check-in %s: %w", ci.ID, err)
		}
		return release(tx, ci.BedID)
	})
	if err != nil {
		return model.BedStay{}, err
	}
	return stay, nil
}

// archiveStay copies a closed check-in into the stay history.
func archiveStay(tx *gorm.DB, ci model.BedCheckIn, in CheckOutInput) (model.BedStay, error) {
	stay := model.BedStay{
		CheckInID:     ci.ID,
		BedID:         ci.BedID,
		SiteID:        ci.SiteID,
		CaseID:        ci.CaseID,
		CaseName:      ci.CaseName,
		CheckInDate:   ci.CheckInDate,
		CheckOutDate:  in.CheckOutDate,
		CheckInNotes:  ci.Notes,
		CheckOutNotes: in.Notes,
		CheckedInBy:   ci.CheckedInBy,
		CheckedOutBy:  in.UserID,
	}
	if err := tx.Create(&stay).Error; err != nil {
		return model.BedStay{}, fmt.Errorf("failed to archive check-in %s: %w", ci.ID, err)
	}
	return stay, nil
}

// DueCheckouts lists active check-ins that carry a scheduled checkout date.
func (s *gormStore) DueCheckouts(ctx context.Context) ([]model.BedCheckIn, error) {
	var out []model.BedCheckIn
	err := s.db.WithContext(ctx).
		Where("scheduled_checkout IS NOT NULL").
		Order("scheduled_checkout, id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled checkouts: %w", err)
	}
	return out, nil
}
