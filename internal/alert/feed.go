package alert

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
)

// DefaultDisplay is how long an alert stays visible.
const DefaultDisplay = 10 * time.Second

// Notifier receives every alert pushed to the feed.
type Notifier interface {
	Dispatch(a model.Alert)
}

// Feed is the alert surface. Entries expire on their own, independent of
// state changes.
type Feed struct {
	items    *cache.Cache
	ttl      time.Duration
	notifier Notifier
	now      func() time.Time
}

// NewFeed creates a feed whose alerts live for ttl.
func NewFeed(ttl time.Duration, notifier Notifier) *Feed {
	if ttl <= 0 {
		ttl = DefaultDisplay
	}
	return &Feed{
		items:    cache.New(ttl, ttl),
		ttl:      ttl,
		notifier: notifier,
		now:      time.Now,
	}
}

// Push stamps and stores an alert and hands it to the notifier.
func (f *Feed) Push(a model.Alert) model.Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = f.now().UTC()
	}
	f.items.Set(a.ID, a, f.ttl)
	log.WithFields(logrus.Fields{
		"severity": a.Severity.String(),
		"machine":  a.MachineID,
	}).Info(a.Message)
	if f.notifier != nil {
		f.notifier.Dispatch(a)
	}
	return a
}

// Raise is shorthand for transport and reachability alerts.
func (f *Feed) Raise(sev model.Severity, message string) model.Alert {
	return f.Push(model.Alert{Message: message, Severity: sev})
}

// Active returns the unexpired alerts, oldest first.
func (f *Feed) Active() []model.Alert {
	items := f.items.Items()
	alerts := make([]model.Alert, 0, len(items))
	for _, it := range items {
		alerts = append(alerts, it.Object.(model.Alert))
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
	return alerts
}

// Clear drops every alert.
func (f *Feed) Clear() {
	f.items.Flush()
}
