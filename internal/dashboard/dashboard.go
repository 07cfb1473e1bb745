// Package dashboard runs the client's event loop. Every mutation of the
// dashboard state happens on the loop goroutine: transport messages, poll
// results, action results and UI requests are posted to it as events and
// handled one at a time.
package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/alert"
	"machine-dashboard-client/internal/countdown"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/parse"
	"machine-dashboard-client/internal/render"
	"machine-dashboard-client/internal/state"
)

var log = logrus.WithField("component", "dashboard")

// ErrStopped is returned when the event loop is no longer running.
var ErrStopped = errors.New("dashboard stopped")

// Backend is the REST surface the dashboard calls. *transport.Client
// satisfies it.
type Backend interface {
	Dashboard(ctx context.Context) (parse.Snapshot, error)
	ProductionLogs(ctx context.Context, limit int) ([]model.ProductionLog, error)
	WorkOrders(ctx context.Context) ([]model.WorkOrder, error)
	MachineAction(ctx context.Context, action, location string, id model.MachineID, requestID string) (*model.Machine, error)
	Rename(ctx context.Context, location string, id model.MachineID, newName, requestID string) error
}

type Options struct {
	ProductionLogLimit int
	// PendingTTL bounds how long an action's request id is remembered
	// while waiting for its echo on the push channel.
	PendingTTL time.Duration
	// TickInterval is the countdown step.
	TickInterval time.Duration
}

type Dashboard struct {
	backend Backend
	opts    Options

	events  chan func()
	stopped chan struct{}

	state      *state.State
	renderer   *render.Renderer
	countdowns *countdown.Manager
	engine     *alert.Engine
	feed       *alert.Feed
	pending    *cache.Cache

	session  model.Session
	filters  render.Filters
	view     render.View
	rendered bool

	pushOpen atomic.Bool
	fallback func()
}

func New(backend Backend, feed *alert.Feed, opts Options) *Dashboard {
	if opts.ProductionLogLimit <= 0 {
		opts.ProductionLogLimit = 20
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 30 * time.Second
	}
	return &Dashboard{
		backend:    backend,
		opts:       opts,
		events:     make(chan func(), 64),
		stopped:    make(chan struct{}),
		state:      state.New(),
		renderer:   render.NewRenderer(),
		countdowns: countdown.NewManager(opts.TickInterval),
		engine:     alert.NewEngine(),
		feed:       feed,
		pending:    cache.New(opts.PendingTTL, 2*opts.PendingTTL),
	}
}

// SetFallback registers a function called when the push channel closes,
// typically a poller's Trigger. Call it before Run.
func (d *Dashboard) SetFallback(fn func()) {
	d.fallback = fn
}

// Run handles events until ctx is cancelled, then stops every countdown.
func (d *Dashboard) Run(ctx context.Context) {
	log.Info("dashboard loop started")
	defer close(d.stopped)
	for {
		select {
		case ev := <-d.events:
			ev()
		case <-ctx.Done():
			d.countdowns.StopAll()
			log.Info("dashboard loop stopped")
			return
		}
	}
}

// post queues fn on the loop without waiting for it.
func (d *Dashboard) post(fn func()) {
	select {
	case d.events <- fn:
	case <-d.stopped:
	}
}

// do runs fn on the loop and waits for it to finish.
func (d *Dashboard) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case d.events <- func() { fn(); close(done) }:
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PushOpen reports whether the push channel is currently open.
func (d *Dashboard) PushOpen() bool {
	return d.pushOpen.Load()
}

// Alerts returns the alerts currently on display.
func (d *Dashboard) Alerts() []model.Alert {
	return d.feed.Active()
}

// AlertsFor returns the active alerts within the session's location scope.
// Alerts not tied to a location, like transport and reachability alerts,
// are visible to every session.
func (d *Dashboard) AlertsFor(sess model.Session) []model.Alert {
	active := d.feed.Active()
	visible := active[:0]
	for _, a := range active {
		if a.Location == "" || render.CanSeeLocation(sess, a.Location) {
			visible = append(visible, a)
		}
	}
	return visible
}

// ApplySnapshot posts a full snapshot received from a poll.
func (d *Dashboard) ApplySnapshot(snap parse.Snapshot) {
	d.post(func() {
		d.applySnapshot(snap.Locations)
		if snap.WorkOrders != nil {
			d.state.SetWorkOrders(snap.WorkOrders)
		}
	})
}

// PollFailed surfaces a reachability error. The poller retries on its own.
func (d *Dashboard) PollFailed(err error) {
	d.post(func() {
		d.feed.Raise(model.SeverityError, "Cannot reach backend, retrying: "+err.Error())
	})
}

// applySnapshot replaces the tree, re-renders the board with reseeded
// countdowns and raises alerts for band transitions.
func (d *Dashboard) applySnapshot(locations []model.Location) {
	removed := d.state.ReplaceSnapshot(locations)
	for _, id := range removed {
		d.countdowns.Stop(id)
	}
	d.rerender(true)
	for _, a := range d.engine.Derive(d.state.Locations()) {
		d.feed.Push(a)
	}
}

// rerender rebuilds the board. With reseed every countdown restarts from
// the state's remaining time; without it only cards new to the board are
// seeded and running countdowns keep their value.
func (d *Dashboard) rerender(reseed bool) {
	if d.session.Identity == "" {
		return
	}
	res := d.renderer.Render(d.state.Locations(), d.filters, d.session)
	for _, id := range res.Removed {
		d.countdowns.Stop(id)
	}
	for _, card := range res.Shown {
		if !reseed && card.Updates() > 1 && d.countdowns.Running(card.ID) {
			continue
		}
		d.seed(card)
	}
	d.view = res.View
	d.rendered = true
}

func (d *Dashboard) seed(card *render.Card) {
	job := card.Content().Job
	if job == nil {
		d.countdowns.Stop(card.ID)
		return
	}
	d.countdowns.Start(card.ID, job.RemainingSeconds, card)
}

// renderOne re-renders a single machine's card after a patch.
func (d *Dashboard) renderOne(location string, m model.Machine) {
	if d.session.Identity == "" {
		return
	}
	if card, ok := d.renderer.RenderMachine(location, m, d.session); ok {
		d.seed(card)
	}
}

func (d *Dashboard) applyNewJob(ev model.NewJobEvent) {
	placement, err := d.state.ApplyNewJob(ev)
	if err != nil {
		if errors.Is(err, state.ErrMachineNotFound) {
			log.WithField("machine", ev.MachineID).Warn("new job for unknown machine dropped")
			return
		}
		log.WithError(err).Error("failed to apply new job")
		return
	}

	m, location, _ := d.state.Machine(ev.MachineID)
	log.WithFields(logrus.Fields{
		"machine":    ev.MachineID,
		"work_order": ev.WorkOrder,
		"placement":  placement.String(),
	}).Info("new job applied")

	d.renderOne(location, m)
	for _, a := range d.engine.Observe(location, m) {
		d.feed.Push(a)
	}
	d.feed.Push(model.Alert{
		Message:   "New job " + ev.WorkOrder + " assigned to " + m.Label(),
		Severity:  model.SeverityInfo,
		MachineID: m.ID,
		Location:  location,
	})
}
