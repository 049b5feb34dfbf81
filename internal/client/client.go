// Package client talks to the casework REST API on behalf of a staff member
// and coordinates the merge review and bed table flows on top of it.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"casework-backend/config"
	"casework-backend/internal/identity"
	"casework-backend/internal/logging"
	"casework-backend/internal/merge"
	"casework-backend/internal/model"
)

// ErrNoUser is returned before any mutation when the session has no acting user.
var ErrNoUser = errors.New("an acting user is required")

// Session is the identity every request is made under.
type Session struct {
	UserID     string
	LocationID string
}

// Result is the body the backend returns for mutations and failures.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status int
	Result Result
}

func (e *APIError) Error() string {
	if e.Result.Message != "" {
		return e.Result.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client is a thin wrapper over the REST API.
type Client struct {
	http    *resty.Client
	session Session
	log     *zap.Logger
}

// New builds a client. Requests are never retried: a failed mutation is
// reported to the caller, who decides whether to try again.
func New(cfg config.BackendConfig, session Session, log *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.HTTPProxy != "" {
		httpClient.SetProxy(cfg.HTTPProxy)
	}
	return &Client{
		http:    httpClient,
		session: session,
		log:     logging.OrNop(log).Named("client"),
	}
}

// Session returns the identity requests are made under.
func (c *Client) Session() Session {
	return c.session
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var failure Result
	req := c.http.R().
		SetContext(ctx).
		SetError(&failure).
		SetHeader(identity.HeaderUserID, c.session.UserID).
		SetHeader(identity.HeaderLocationID, c.session.LocationID)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Error("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		c.log.Debug("backend rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", failure.Message))
		return &APIError{Status: resp.StatusCode(), Result: failure}
	}
	return nil
}

// mutate requires an acting user before sending anything.
func (c *Client) mutate(ctx context.Context, method, path string, body, out any) error {
	if c.session.UserID == "" {
		return ErrNoUser
	}
	return c.do(ctx, method, path, body, out)
}

// ListCases returns every active case.
func (c *Client) ListCases(ctx context.Context) ([]model.Case, error) {
	var cases []model.Case
	err := c.do(ctx, http.MethodGet, "/api/cases", nil, &cases)
	return cases, err
}

// GetCase returns one case, retired or not.
func (c *Client) GetCase(ctx context.Context, id string) (model.Case, error) {
	var kase model.Case
	err := c.do(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(id), nil, &kase)
	return kase, err
}

// Preview is the server-side diff of two cases.
type Preview struct {
	KeptCaseID    string                `json:"keptCaseId"`
	RemovedCaseID string                `json:"removedCaseId"`
	HasConflicts  bool                  `json:"hasConflicts"`
	Diffs         []merge.FieldDiff     `json:"diffs"`
	Selections    map[string]merge.Side `json:"selections"`
}

// MergePreview asks the backend to diff two cases with keepID on the left.
func (c *Client) MergePreview(ctx context.Context, keepID, mergeID string) (Preview, error) {
	var p Preview
	err := c.do(ctx, http.MethodGet, "/api/cases/merge/preview?"+url.Values{"keep": {keepID}, "merge": {mergeID}}.Encode(), nil, &p)
	return p, err
}

// MergeRequest is the body of a merge submission.
type MergeRequest struct {
	KeptCaseID       string       `json:"keptCaseId"`
	RemovedCaseID    string       `json:"removedCaseId"`
	MergedFields     merge.Record `json:"mergedFields"`
	ActingUserID     string       `json:"actingUserId,omitempty"`
	ActiveLocationID string       `json:"activeLocationId,omitempty"`
}

// MergeCases submits an assembled merge.
func (c *Client) MergeCases(ctx context.Context, req MergeRequest) (model.Case, error) {
	var out struct {
		Result
		Case model.Case `json:"case"`
	}
	err := c.mutate(ctx, http.MethodPost, "/api/cases/merge", req, &out)
	return out.Case, err
}

// MergeHistory lists the merges a case took part in.
func (c *Client) MergeHistory(ctx context.Context, caseID string) ([]model.CaseMergeLog, error) {
	var logs []model.CaseMergeLog
	err := c.do(ctx, http.MethodGet, "/api/cases/"+url.PathEscape(caseID)+"/merges", nil, &logs)
	return logs, err
}

// SiteSummary is a site with its bed counts.
type SiteSummary struct {
	model.Site
	BedsAvailable int64 `json:"bedsAvailable"`
	BedsTotal     int64 `json:"bedsTotal"`
}

// ListSites returns every site with its bed counts.
func (c *Client) ListSites(ctx context.Context) ([]SiteSummary, error) {
	var sites []SiteSummary
	err := c.do(ctx, http.MethodGet, "/api/sites", nil, &sites)
	return sites, err
}

func sitePath(siteID int64) string {
	return "/api/sites/" + strconv.FormatInt(siteID, 10)
}

func bedPath(bedID int64) string {
	return "/api/beds/" + strconv.FormatInt(bedID, 10)
}

// ListBeds returns the visible beds of a site.
func (c *Client) ListBeds(ctx context.Context, siteID int64) ([]model.Bed, error) {
	var list []model.Bed
	err := c.do(ctx, http.MethodGet, sitePath(siteID)+"/beds", nil, &list)
	return list, err
}

// AvailableBeds returns the beds a check-in may move to; currentBedID is
// kept among them when non-zero.
func (c *Client) AvailableBeds(ctx context.Context, siteID, currentBedID int64) ([]model.Bed, error) {
	path := sitePath(siteID) + "/beds/available"
	if currentBedID != 0 {
		path += "?current_bed_id=" + strconv.FormatInt(currentBedID, 10)
	}
	var list []model.Bed
	err := c.do(ctx, http.MethodGet, path, nil, &list)
	return list, err
}

// BedHistory returns the completed stays of a bed.
func (c *Client) BedHistory(ctx context.Context, bedID int64) ([]model.BedStay, error) {
	var stays []model.BedStay
	err := c.do(ctx, http.MethodGet, bedPath(bedID)+"/stays", nil, &stays)
	return stays, err
}

// CheckInRequest opens a stay.
type CheckInRequest struct {
	CaseID                string `json:"caseId"`
	BedID                 int64  `json:"bedId"`
	CheckInDate           string `json:"checkInDate"`
	ScheduledCheckoutDate string `json:"scheduledCheckoutDate,omitempty"`
	Notes                 string `json:"notes,omitempty"`
}

// EditCheckInRequest corrects an active stay.
type EditCheckInRequest struct {
	CheckInRequest
	CheckInID string `json:"checkInId"`
}

// CheckOutRequest closes an active stay.
type CheckOutRequest struct {
	CheckInID     string `json:"checkInId"`
	CheckOutDate  string `json:"checkOutDate"`
	CheckOutNotes string `json:"checkOutNotes,omitempty"`
}

// CheckIn opens a stay on an available bed.
func (c *Client) CheckIn(ctx context.Context, req CheckInRequest) (model.BedCheckIn, error) {
	var out struct {
		Result
		CheckIn model.BedCheckIn `json:"checkIn"`
	}
	err := c.mutate(ctx, http.MethodPost, "/api/beds/check-in", req, &out)
	return out.CheckIn, err
}

// EditCheckIn corrects an active stay.
func (c *Client) EditCheckIn(ctx context.Context, req EditCheckInRequest) (model.BedCheckIn, error) {
	var out struct {
		Result
		CheckIn model.BedCheckIn `json:"checkIn"`
	}
	err := c.mutate(ctx, http.MethodPost, "/api/beds/check-in/edit", req, &out)
	return out.CheckIn, err
}

// CheckOut closes an active stay and frees its bed.
func (c *Client) CheckOut(ctx context.Context, req CheckOutRequest) (model.BedStay, error) {
	var out struct {
		Result
		Stay model.BedStay `json:"stay"`
	}
	err := c.mutate(ctx, http.MethodPost, "/api/beds/check-out", req, &out)
	return out.Stay, err
}

// ArchiveBed hides a bed from the table.
func (c *Client) ArchiveBed(ctx context.Context, bedID int64) (model.Bed, error) {
	var out struct {
		Result
		Bed model.Bed `json:"bed"`
	}
	err := c.mutate(ctx, http.MethodPost, bedPath(bedID)+"/archive", nil, &out)
	return out.Bed, err
}
