// Package reminder periodically scans active check-ins for scheduled
// checkouts that are due or overdue and pushes a reminder to the site.
package reminder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"casework-backend/config"
	"casework-backend/internal/beds"
	"casework-backend/internal/logging"
	"casework-backend/internal/metrics"
	"casework-backend/internal/model"
	"casework-backend/internal/notification"
)

// CheckIns lists the active check-ins carrying a scheduled checkout.
type CheckIns interface {
	DueCheckouts(ctx context.Context) ([]model.BedCheckIn, error)
}

// Dispatcher queues a notification event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev notification.Event) error
}

// Service orchestrates the reminder scans.
type Service struct {
	cfg        config.ReminderConfig
	loc        *time.Location
	checkIns   CheckIns
	dispatcher Dispatcher
	log        *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time

	// sent maps a check-in to the calendar day it was last reminded on.
	sent map[string]string
}

// NewService creates a reminder service. m may be nil.
func NewService(cfg config.ReminderConfig, loc *time.Location, checkIns CheckIns, dispatcher Dispatcher, log *zap.Logger, m *metrics.Metrics) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cfg:        cfg,
		loc:        loc,
		checkIns:   checkIns,
		dispatcher: dispatcher,
		log:        logging.OrNop(log).Named("reminder"),
		metrics:    m,
		now:        time.Now,
		sent:       make(map[string]string),
	}
}

// Run scans once immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("reminders are disabled, not starting")
		return
	}
	s.log.Info("starting reminder service", zap.Duration("interval", s.cfg.Interval))

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder service shutting down")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunOnce performs a single scan and returns the number of reminders queued.
// Each check-in is reminded at most once per calendar day.
func (s *Service) RunOnce(ctx context.Context) int {
	now := s.now()
	today := now.In(s.loc).Format("2006-01-02")

	due, err := s.checkIns.DueCheckouts(ctx)
	if err != nil {
		s.log.Error("loading scheduled checkouts failed", zap.Error(err))
		return 0
	}

	active := make(map[string]bool, len(due))
	dispatched := 0
	for _, ci := range due {
		active[ci.ID] = true
		if ci.ScheduledCheckout == nil {
			continue
		}
		schedule := beds.ClassifyCheckout(now, *ci.ScheduledCheckout, s.loc)
		if !schedule.NeedsAttention() || s.sent[ci.ID] == today {
			continue
		}
		if err := s.dispatcher.Dispatch(ctx, Event(ci, schedule)); err != nil {
			s.log.Warn("dispatching reminder failed", zap.String("check_in_id", ci.ID), zap.Error(err))
			break
		}
		s.sent[ci.ID] = today
		dispatched++
		if s.metrics != nil {
			s.metrics.RemindersIssued.Inc()
		}
	}

	// Forget closed check-ins.
	for id := range s.sent {
		if !active[id] {
			delete(s.sent, id)
		}
	}

	if dispatched > 0 {
		s.log.Info("checkout reminders dispatched", zap.Int("count", dispatched))
	}
	return dispatched
}

// Event builds the push notification for a check-in's checkout schedule.
func Event(ci model.BedCheckIn, schedule beds.Schedule) notification.Event {
	bed := ci.BedName
	if ci.Room != "" {
		bed = ci.Room + "-" + ci.BedName
	}
	return notification.Event{
		Kind:   notification.CheckoutDue,
		SiteID: ci.SiteID,
		BedID:  ci.BedID,
		Title:  "Scheduled checkout",
		Body:   fmt.Sprintf("%s in bed %s: %s", ci.CaseName, bed, schedule.Label()),
	}
}
