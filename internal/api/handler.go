package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"casework-backend/internal/beds"
	"casework-backend/internal/logging"
	"casework-backend/internal/merge"
	"casework-backend/internal/metrics"
	"casework-backend/internal/model"
	"casework-backend/internal/notification"
	"casework-backend/internal/store"
	"casework-backend/internal/validate"
)

// Notifier queues push notifications without blocking the request.
type Notifier interface {
	Notify(ev notification.Event)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, opts Options) *Handler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		store:    s,
		webpush:  opts.WebPush,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		log:      logging.OrNop(opts.Logger).Named("api"),
		loc:      loc,
		now:      time.Now,
	}
}

// Result is the body of every mutation response and of every failure.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ok(c *gin.Context, status int, message string, data gin.H) {
	body := gin.H{"success": true, "message": message}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Result{Success: false, Message: message})
}

// writeError maps store and domain errors onto HTTP statuses. Expected
// failures carry their message; anything else is logged and hidden.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verrs validate.Errors
	switch {
	case errors.As(err, &verrs):
		c.AbortWithStatusJSON(http.StatusBadRequest, Result{Success: false, Message: verrs.Error(), Errors: verrs})
	case errors.Is(err, store.ErrCaseNotFound),
		errors.Is(err, store.ErrBedNotFound),
		errors.Is(err, store.ErrSiteNotFound),
		errors.Is(err, store.ErrCheckInNotFound),
		errors.Is(err, store.ErrSubscriptionNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrBedUnavailable),
		errors.Is(err, store.ErrCaseRetired),
		errors.Is(err, store.ErrCaseCheckedIn),
		errors.Is(err, store.ErrSiteExists),
		errors.Is(err, beds.ErrInvalidTransition):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrSameCase),
		errors.Is(err, store.ErrInvalidDates),
		errors.Is(err, merge.ErrUnknownField),
		errors.Is(err, merge.ErrMissingCase),
		errors.Is(err, model.ErrUnknownActivity):
		fail(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

// bind reads a JSON object, checks it against table, then decodes it into out.
func bind(c *gin.Context, table validate.Table, out any) error {
	var draft map[string]any
	if err := c.ShouldBindBodyWith(&draft, binding.JSON); err != nil || draft == nil {
		return validate.Errors{"body": "request body must be a JSON object"}
	}
	if errs := table.Check(draft); errs != nil {
		return errs
	}
	if err := c.ShouldBindBodyWith(out, binding.JSON); err != nil {
		return validate.Errors{"body": "request body has fields of the wrong type"}
	}
	return nil
}

func (h *Handler) countBed(action beds.Action, err error) {
	if h.metrics != nil {
		h.metrics.BedTransitions.WithLabelValues(string(action), metrics.Outcome(err)).Inc()
	}
}

func (h *Handler) notify(ev notification.Event) {
	if h.notifier != nil {
		h.notifier.Notify(ev)
	}
}
