package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"casework-backend/config"
	"casework-backend/internal/api"
	"casework-backend/internal/db"
	"casework-backend/internal/model"
	"casework-backend/internal/store"
)

func startBackend(t *testing.T) (store.Store, string) {
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
	return s, srv.URL
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", url, "--user", "u1", "--config", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCasesMerge(t *testing.T) {
	s, url := startBackend(t)
	ctx := context.Background()
	for _, c := range []model.Case{
		{ID: "100", FirstName: "Maria", LastName: "Lopez", PhoneNumbers: []model.PhoneNumber{{Number: "555-1111", Description: "Home"}}},
		{ID: "200", FirstName: "Maria", LastName: "Lopes", PhoneNumbers: []model.PhoneNumber{{Number: "555-2222", Description: "Work"}}},
		{ID: "400", FirstName: "Lee"},
		{ID: "500", FirstName: "Lee"},
	} {
		c := c
		require.NoError(t, s.CreateCase(ctx, &c))
	}

	out, err := run(t, url, "cases", "merge-preview", "400", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "no conflicting fields")

	out, err = run(t, url, "cases", "merge-preview", "100", "200")
	require.NoError(t, err)
	assert.NotContains(t, out, "no conflicting fields")
	assert.Contains(t, out, "lastName *")

	_, err = run(t, url, "cases", "merge", "100", "200", "--pick", "lastName=up")
	assert.Error(t, err)
	_, err = run(t, url, "cases", "merge", "100", "200", "--pick", "nickname=left")
	assert.Error(t, err)

	out, err = run(t, url, "cases", "merge", "100", "200", "--pick", "lastName=right")
	require.NoError(t, err)
	assert.Contains(t, out, "merged 200 into 100 (Maria Lopes)")

	out, err = run(t, url, "cases", "show", "200")
	require.NoError(t, err)
	assert.Contains(t, out, "merged into 100")
}

func TestBedsCommands(t *testing.T) {
	s, url := startBackend(t)
	ctx := context.Background()
	site := model.Site{Name: "Harbor House"}
	require.NoError(t, s.CreateSite(ctx, &site))
	bed := model.Bed{SiteID: site.ID, Name: "A", Room: "12"}
	require.NoError(t, s.CreateBed(ctx, &bed))
	require.NoError(t, s.CreateCase(ctx, &model.Case{ID: "100", FirstName: "Maria", LastName: "Lopez"}))
	siteID := strconv.FormatInt(site.ID, 10)
	bedID := strconv.FormatInt(bed.ID, 10)

	out, err := run(t, url, "beds", "list", siteID)
	require.NoError(t, err)
	assert.Contains(t, out, "check-in")

	_, err = run(t, url, "beds", "check-in", siteID, "--bed", bedID, "--date", "2024-03-01")
	assert.ErrorContains(t, err, "caseId")

	out, err = run(t, url, "beds", "check-in", siteID, "--bed", bedID, "--case", "100", "--date", "2024-03-01")
	require.NoError(t, err)
	assert.Contains(t, out, "checked Maria Lopez into bed A")
	assert.Contains(t, out, "check-out,edit-check-in")

	b, err := s.GetBed(ctx, bed.ID)
	require.NoError(t, err)
	require.NotNil(t, b.ActiveCheckIn)

	out, err = run(t, url, "beds", "check-out", siteID, "--check-in", b.ActiveCheckIn.ID, "--date", "2024-03-04")
	require.NoError(t, err)
	assert.Contains(t, out, "checked out Maria Lopez")

	out, err = run(t, url, "beds", "archive", siteID, bedID)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("archived bed %s", bed.Name))
	assert.Contains(t, out, "no beds")

	_, err = run(t, url, "beds", "list", "abc")
	assert.Error(t, err)
}
