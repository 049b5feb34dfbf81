package client

import (
	"context"
	"errors"
	"go/build"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"casework-backend/config"
	"casework-backend/internal/api"
	"casework-backend/internal/beds"
	"casework-backend/internal/db"
	"casework-backend/internal/identity"
	"casework-backend/internal/merge"
	"casework-backend/internal/model"
	"casework-backend/internal/store"
	"casework-backend/internal/validate"
)

type backend struct {
	store store.Store
	site  model.Site
	beds  []model.Bed
	cfg   config.BackendConfig
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	s := store.NewGormStore(gormDB)
	srv := httptest.NewServer(api.NewRouter(s, api.Options{Logger: zap.NewNop(), RateLimit: 1000, RateBurst: 1000}))
	t.Cleanup(srv.Close)

	b := &backend{store: s, cfg: config.BackendConfig{BaseURL: srv.URL, TimeoutSeconds: 5}}
	ctx := context.Background()
	b.site = model.Site{Name: "Harbor House"}
	require.NoError(t, s.CreateSite(ctx, &b.site))
	for _, name := range []string{"A", "B"} {
		bed := model.Bed{SiteID: b.site.ID, Name: name, Room: "12"}
		require.NoError(t, s.CreateBed(ctx, &bed))
		b.beds = append(b.beds, bed)
	}
	for _, c := range []model.Case{
		{ID: "100", FirstName: "Maria", LastName: "Lopez", PhoneNumbers: []model.PhoneNumber{{Number: "555-1111", Description: "Home"}}},
		{ID: "200", FirstName: "Maria", LastName: "Lopes", Email: "maria@example.org", PhoneNumbers: []model.PhoneNumber{{Number: "555-2222", Description: "Work"}}},
		{ID: "300", FirstName: "Sam", LastName: "Okafor", Email: "not-an-email"},
	} {
		c := c
		require.NoError(t, s.CreateCase(ctx, &c))
	}
	return b
}

func (b *backend) client(userID string) *Client {
	return New(b.cfg, Session{UserID: userID, LocationID: "loc-1"}, zap.NewNop())
}

func TestMergeSession_Submit(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	s, err := b.client("u1").NewMergeSession(ctx, "100")
	require.NoError(t, err)

	_, err = s.Submit(ctx)
	assert.ErrorIs(t, err, merge.ErrMissingCase)
	assert.ErrorIs(t, s.Load(ctx, "100"), merge.ErrSameCase)

	require.NoError(t, s.Load(ctx, "200"))
	assert.True(t, s.HasConflicts())
	assert.Equal(t, "100", s.KeptID())

	require.NoError(t, s.Switch())
	assert.Equal(t, "200", s.KeptID())
	assert.Equal(t, "100", s.RemovedID())
	require.NoError(t, s.SelectPath("lastName", merge.Left))

	kase, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "200", kase.ID)
	assert.Equal(t, "Lopez", kase.LastName)
	assert.Equal(t, "maria@example.org", kase.Email)
	assert.Len(t, kase.PhoneNumbers, 2)

	removed, err := b.store.GetCase(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "200", removed.MergedIntoID)

	logs, err := b.client("u1").MergeHistory(ctx, "200")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "loc-1", logs[0].LocationID)
}

func TestMergeSession_FailuresLeaveStateAlone(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	anon, err := b.client("").NewMergeSession(ctx, "100")
	require.NoError(t, err)
	require.NoError(t, anon.Load(ctx, "200"))
	_, err = anon.Submit(ctx)
	assert.ErrorIs(t, err, ErrNoUser)

	// Case 300 carries an invalid email, so the default merge is rejected locally.
	s, err := b.client("u1").NewMergeSession(ctx, "300")
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, "200"))
	_, err = s.Submit(ctx)
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "email")
	other, err := b.store.GetCase(ctx, "200")
	require.NoError(t, err)
	assert.False(t, other.Retired())

	// The backend refuses once the other case was merged elsewhere.
	s, err = b.client("u1").NewMergeSession(ctx, "100")
	require.NoError(t, err)
	require.NoError(t, s.Load(ctx, "200"))
	key := merge.SanitizeKey("lastName")
	require.NoError(t, s.Select(key, merge.Right))
	_, err = b.store.MergeCases(ctx, store.MergeInput{KeptCaseID: "300", RemovedCaseID: "200", Merged: model.Case{FirstName: "Sam"}, ActingUserID: "u2"})
	require.NoError(t, err)

	_, err = s.Submit(ctx)
	assert.True(t, IsStatus(err, http.StatusConflict), "got %v", err)
	assert.True(t, s.Loaded())
	side, ok := s.Selection(key)
	require.True(t, ok)
	assert.Equal(t, merge.Right, side)
}

func TestBedTracker(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	tr := b.client("u1").NewBedTracker(b.site.ID, time.UTC)
	tr.now = func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, tr.Refresh(ctx))
	rows := tr.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []beds.Action{beds.CheckIn}, rows[0].Actions)

	bedA := b.beds[0]
	_, err := tr.CheckIn(ctx, CheckInRequest{BedID: bedA.ID, CheckInDate: "2024-03-01"})
	var verrs validate.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "caseId")

	ci, err := tr.CheckIn(ctx, CheckInRequest{CaseID: "100", BedID: bedA.ID, CheckInDate: "2024-03-01", ScheduledCheckoutDate: "2024-03-04"})
	require.NoError(t, err)

	rows = tr.Rows()
	assert.Equal(t, beds.Occupied, rows[0].Bed.Status)
	assert.Equal(t, []beds.Action{beds.CheckOut, beds.EditCheckIn}, rows[0].Actions)
	assert.Equal(t, "Overdue by 1 day", rows[0].ScheduleLabel())
	assert.Empty(t, rows[1].ScheduleLabel())

	_, err = tr.CheckIn(ctx, CheckInRequest{CaseID: "200", BedID: bedA.ID, CheckInDate: "2024-03-01"})
	assert.ErrorIs(t, err, ErrNotOffered)

	assert.Len(t, tr.EditOptions(bedA.ID), 2)

	_, err = tr.CheckOut(ctx, CheckOutRequest{CheckInID: ci.ID, CheckOutDate: "2024-02-01"})
	assert.True(t, IsStatus(err, http.StatusBadRequest), "got %v", err)
	assert.Equal(t, beds.Occupied, tr.Rows()[0].Bed.Status)

	stay, err := tr.CheckOut(ctx, CheckOutRequest{CheckInID: ci.ID, CheckOutDate: "2024-03-05"})
	require.NoError(t, err)
	assert.Equal(t, ci.ID, stay.CheckInID)
	assert.Equal(t, beds.Available, tr.Rows()[0].Bed.Status)

	_, err = tr.Archive(ctx, bedA.ID)
	require.NoError(t, err)
	rows = tr.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, b.beds[1].ID, rows[0].Bed.ID)
}

func TestBedTracker_CheckInActionsFollowTheRow(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	tr := b.client("u1").NewBedTracker(b.site.ID, time.UTC)
	require.NoError(t, tr.Refresh(ctx))

	bedA, bedB := b.beds[0], b.beds[1]
	first, err := tr.CheckIn(ctx, CheckInRequest{CaseID: "100", BedID: bedA.ID, CheckInDate: "2024-03-01"})
	require.NoError(t, err)
	_, err = tr.CheckIn(ctx, CheckInRequest{CaseID: "200", BedID: bedB.ID, CheckInDate: "2024-03-01"})
	require.NoError(t, err)

	// Bed B is occupied, so it is not a place to move the first stay to.
	_, err = tr.EditCheckIn(ctx, EditCheckInRequest{
		CheckInRequest: CheckInRequest{CaseID: "100", BedID: bedB.ID, CheckInDate: "2024-03-01"},
		CheckInID:      first.ID,
	})
	assert.ErrorIs(t, err, ErrNotOffered)

	// A row that no longer reads Occupied offers neither checkout nor edit.
	tr.mu.Lock()
	for i := range tr.beds {
		if tr.beds[i].ID == bedA.ID {
			tr.beds[i].Status = beds.Unavailable
		}
	}
	tr.mu.Unlock()

	_, err = tr.CheckOut(ctx, CheckOutRequest{CheckInID: first.ID, CheckOutDate: "2024-03-05"})
	assert.ErrorIs(t, err, ErrNotOffered)
	_, err = tr.EditCheckIn(ctx, EditCheckInRequest{
		CheckInRequest: CheckInRequest{CaseID: "100", BedID: bedA.ID, CheckInDate: "2024-03-02"},
		CheckInID:      first.ID,
	})
	assert.ErrorIs(t, err, ErrNotOffered)

	stored, err := b.store.GetBed(ctx, bedA.ID)
	require.NoError(t, err)
	assert.Equal(t, beds.Occupied, stored.Status)
	require.NotNil(t, stored.ActiveCheckIn)
	assert.Equal(t, "2024-03-01", stored.ActiveCheckIn.CheckInDate.Format("2006-01-02"))
}

func TestClient_SendsIdentityHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(config.BackendConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, Session{UserID: "u7", LocationID: "loc-3"}, nil)
	_, err := c.ListSites(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u7", got.Get(identity.HeaderUserID))
	assert.Equal(t, "loc-3", got.Get(identity.HeaderLocationID))
}

func TestClient_DoesNotImportServerPackages(t *testing.T) {
	pkg, err := build.ImportDir(".", 0)
	require.NoError(t, err)
	for _, imp := range pkg.Imports {
		assert.NotEqual(t, "casework-backend/internal/mw", imp)
		assert.NotEqual(t, "casework-backend/internal/api", imp)
		assert.False(t, strings.HasPrefix(imp, "github.com/gin-gonic/"), imp)
	}
}

func TestClient_NoUserNoRequest(t *testing.T) {
	b := newBackend(t)
	_, err := b.client("").ArchiveBed(context.Background(), b.beds[0].ID)
	assert.True(t, errors.Is(err, ErrNoUser))

	bed, err := b.store.GetBed(context.Background(), b.beds[0].ID)
	require.NoError(t, err)
	assert.False(t, bed.IsArchived)
}

func TestClient_Unreachable(t *testing.T) {
	c := New(config.BackendConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1}, Session{UserID: "u1"}, nil)
	_, err := c.ListSites(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
