package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"casework-backend/internal/model"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

type fakeSubscriptions struct {
	mu      sync.Mutex
	bySite  map[int64][]model.PushSubscription
	err     error
	deleted []string
}

func (f *fakeSubscriptions) SiteSubscriptions(_ context.Context, siteID int64) ([]model.PushSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bySite[siteID], f.err
}

func (f *fakeSubscriptions) DeleteSubscription(_ context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func (f *fakeSubscriptions) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, &fakeSubscriptions{}, &webpush.Options{}, zap.NewNop(), nil)

	require.NoError(t, wp.Dispatch(context.Background(), Event{Kind: BedAvailable, BedID: 123}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(123), job.BedID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	full := NewWorkerPool(1, &fakeSubscriptions{}, nil, nil, nil)
	for i := 0; i < cap(full.jobs); i++ {
		full.Notify(Event{BedID: int64(i)})
	}
	full.Notify(Event{BedID: 999})
	assert.Len(t, full.jobs, cap(full.jobs))
	assert.ErrorIs(t, full.Dispatch(ctx, Event{}), context.Canceled)
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	defer goleak.VerifyNone(t)

	subs := &fakeSubscriptions{bySite: map[int64][]model.PushSubscription{
		7: {
			{Endpoint: "https://example.com/push", P256DH: "p256dh", Auth: "auth"},
			{Endpoint: "https://example.com/expired", P256DH: "p256dh", Auth: "auth"},
		},
	}}
	wp := NewWorkerPool(2, subs, &webpush.Options{}, zap.NewNop(), nil)

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var payloads []Event
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			var ev Event
			require.NoError(t, json.Unmarshal(payload, &ev))
			mu.Lock()
			payloads = append(payloads, ev)
			mu.Unlock()
			if sub.Endpoint == "https://example.com/expired" {
				return response(http.StatusGone), nil
			}
			return response(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	wp.Start(ctx)

	require.NoError(t, wp.Dispatch(ctx, Event{Kind: BedAvailable, SiteID: 7, BedID: 3, Title: "Bed available", Body: "Bed 12-A is available"}))
	// A site nobody follows sends nothing.
	require.NoError(t, wp.Dispatch(ctx, Event{Kind: BedAvailable, SiteID: 8, BedID: 4}))
	wg.Wait()

	cancel()
	wp.Wait()

	require.Len(t, payloads, 2)
	for _, ev := range payloads {
		assert.Equal(t, BedAvailable, ev.Kind)
		assert.Equal(t, "Bed 12-A is available", ev.Body)
	}
	assert.Equal(t, []string{"https://example.com/expired"}, subs.Deleted())
}

func TestWorkerPool_SubscriptionLookupFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	subs := &fakeSubscriptions{err: errors.New("db down")}
	wp := NewWorkerPool(1, subs, &webpush.Options{}, zap.NewNop(), nil)
	sent := false
	wp.sender = &mockSender{
		SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
			sent = true
			return response(http.StatusCreated), nil
		},
	}

	wp.sendForSite(context.Background(), Event{Kind: CheckoutDue, SiteID: 1})
	assert.False(t, sent)
}
