package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"casework-backend/internal/beds"
	"casework-backend/internal/merge"
	"casework-backend/internal/model"
)

var (
	ErrCaseNotFound         = errors.New("case not found")
	ErrCaseRetired          = errors.New("case was merged into another case")
	ErrSameCase             = merge.ErrSameCase
	ErrCaseCheckedIn        = errors.New("case is already checked in to a bed")
	ErrSiteNotFound         = errors.New("site not found")
	ErrSiteExists           = errors.New("a site with this name already exists")
	ErrBedNotFound          = errors.New("bed not found")
	ErrBedUnavailable       = errors.New("bed is no longer available")
	ErrCheckInNotFound      = errors.New("check-in not found")
	ErrInvalidDates         = errors.New("checkout date cannot precede check-in date")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// Store defines the interface for all database operations.
type Store interface {
	CreateCase(ctx context.Context, c *model.Case) error
	GetCase(ctx context.Context, id string) (model.Case, error)
	ListCases(ctx context.Context) ([]model.Case, error)
	MergeCases(ctx context.Context, in MergeInput) (model.Case, error)
	MergeHistory(ctx context.Context, caseID string) ([]model.CaseMergeLog, error)

	AddActivity(ctx context.Context, a *model.Activity) error
	ListActivities(ctx context.Context, caseID string) ([]model.Activity, error)

	CreateSite(ctx context.Context, s *model.Site) error
	ListSites(ctx context.Context) ([]SiteSummary, error)
	CreateBed(ctx context.Context, b *model.Bed) error
	GetBed(ctx context.Context, id int64) (model.Bed, error)
	ListBeds(ctx context.Context, siteID int64) ([]model.Bed, error)
	AvailableBeds(ctx context.Context, siteID, currentBedID int64) ([]model.Bed, error)
	SetBedStatus(ctx context.Context, bedID int64, status beds.Status) (model.Bed, error)
	ArchiveBed(ctx context.Context, bedID int64) (model.Bed, error)
	BedHistory(ctx context.Context, bedID int64) ([]model.BedStay, error)

	CheckIn(ctx context.Context, in CheckInInput) (model.BedCheckIn, error)
	EditCheckIn(ctx context.Context, in EditCheckInInput) (model.BedCheckIn, error)
	CheckOut(ctx context.Context, in CheckOutInput) (model.BedStay, error)
	DueCheckouts(ctx context.Context) ([]model.BedCheckIn, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription, siteIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SiteSubscriptions(ctx context.Context, siteID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// notFound maps gorm's missing-row error onto the store's sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
