package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"casework-backend/internal/logging"
	"casework-backend/internal/metrics"
	"casework-backend/internal/model"
)

// EventKind names what happened to a bed.
type EventKind string

const (
	BedAvailable EventKind = "bed-available"
	CheckoutDue  EventKind = "checkout-due"
)

// Event is one push notification fanned out to a site's subscribers.
type Event struct {
	Kind   EventKind `json:"kind"`
	SiteID int64     `json:"siteId"`
	BedID  int64     `json:"bedId"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the part of the store the workers need.
type Subscriptions interface {
	SiteSubscriptions(ctx context.Context, siteID int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool. m may be nil.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, log *zap.Logger, m *metrics.Metrics) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logging.OrNop(log).Named("notification"),
		metrics: m,
	}
}

// Start launches the worker goroutines; they stop when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With(zap.Int("worker", id))
	log.Debug("worker started")
	for {
		select {
		case ev := <-wp.jobs:
			wp.sendForSite(ctx, ev)
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		}
	}
}

// Dispatch queues an event, waiting for room until ctx is done.
func (wp *WorkerPool) Dispatch(ctx context.Context, ev Event) error {
	select {
	case wp.jobs <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify queues an event without blocking; the event is dropped when the
// queue is full.
func (wp *WorkerPool) Notify(ev Event) {
	select {
	case wp.jobs <- ev:
	default:
		wp.log.Warn("notification queue full, dropping event",
			zap.String("kind", string(ev.Kind)), zap.Int64("bed_id", ev.BedID))
	}
}

func (wp *WorkerPool) sendForSite(ctx context.Context, ev Event) {
	log := wp.log.With(zap.String("kind", string(ev.Kind)), zap.Int64("site_id", ev.SiteID), zap.Int64("bed_id", ev.BedID))

	subscriptions, err := wp.subs.SiteSubscriptions(ctx, ev.SiteID)
	if err != nil {
		log.Error("fetching subscriptions failed", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("encoding payload failed", zap.Error(err))
		return
	}

	log.Info("sending notifications", zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.send(ctx, log, ev.Kind, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, log *zap.Logger, kind EventKind, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	wp.count(kind, err)
	if err != nil {
		log.Warn("sending notification failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Error("deleting expired subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

func (wp *WorkerPool) count(kind EventKind, err error) {
	if wp.metrics != nil {
		wp.metrics.Notifications.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()
	}
}
