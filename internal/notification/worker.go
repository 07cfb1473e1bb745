package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/store"
)

var log = logrus.WithField("component", "notification")

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

// Publisher forwards alerts to a message broker.
type Publisher interface {
	Publish(a model.Alert) error
}

// SubscriptionSource is the part of store.Store the pool reads.
type SubscriptionSource interface {
	SubscriptionsFor(ctx context.Context, location string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

var _ SubscriptionSource = (store.Store)(nil)

// WorkerPool delivers alerts to push subscribers and the broker off the
// dashboard loop.
type WorkerPool struct {
	size      int
	jobs      chan model.Alert
	subs      SubscriptionSource
	webpush   *webpush.Options
	sender    NotificationSender
	publisher Publisher
}

// NewWorkerPool creates a new worker pool. webpushOptions may be nil to
// disable browser delivery, publisher may be nil to disable the broker.
func NewWorkerPool(size int, subs SubscriptionSource, webpushOptions *webpush.Options, publisher Publisher) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:      size,
		jobs:      make(chan model.Alert, size*16),
		subs:      subs,
		webpush:   webpushOptions,
		sender:    &WebPushSender{},
		publisher: publisher,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debugf("worker %d started", id)
	for {
		select {
		case a := <-wp.jobs:
			wp.deliver(ctx, a)
		case <-ctx.Done():
			log.Debugf("worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for delivery. It never blocks: when the queue is
// full the alert is dropped from delivery (it is still shown on the board).
func (wp *WorkerPool) Dispatch(a model.Alert) {
	select {
	case wp.jobs <- a:
	default:
		log.WithField("alert", a.ID).Warn("delivery queue full; dropping alert")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Alert {
	return wp.jobs
}

func (wp *WorkerPool) deliver(ctx context.Context, a model.Alert) {
	if wp.publisher != nil {
		if err := wp.publisher.Publish(a); err != nil {
			log.WithError(err).WithField("alert", a.ID).Warn("failed to publish alert")
		}
	}

	if wp.webpush == nil || wp.subs == nil {
		return
	}

	subscriptions, err := wp.subs.SubscriptionsFor(ctx, a.Location)
	if err != nil {
		log.WithError(err).Error("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(a)
	if err != nil {
		log.WithError(err).Error("failed to marshal alert")
		return
	}

	log.WithFields(logrus.Fields{"alert": a.ID, "subscribers": len(subscriptions)}).Debug("sending push notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.WithError(err).WithField("endpoint", sub.Endpoint).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.WithField("endpoint", sub.Endpoint).Info("subscription expired; deleting")
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
