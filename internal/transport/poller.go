package transport

import (
	"context"
	"time"

	"machine-dashboard-client/internal/parse"
)

// SnapshotFetcher is satisfied by *Client.
type SnapshotFetcher interface {
	Dashboard(ctx context.Context) (parse.Snapshot, error)
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	// Interval between successful fetches. Zero stops the poller after
	// the first success.
	Interval time.Duration
	// RetryDelay after a failed fetch.
	RetryDelay time.Duration
	// Skip, when set and true, turns a scheduled periodic fetch into a
	// no-op. Retries after failure are never skipped.
	Skip       func() bool
	OnSnapshot func(parse.Snapshot)
	OnError    func(error)
}

// Poller fetches the dashboard snapshot on a timer.
type Poller struct {
	fetcher SnapshotFetcher
	opts    PollerOptions
	wake    chan struct{}
}

func NewPoller(fetcher SnapshotFetcher, opts PollerOptions) *Poller {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &Poller{
		fetcher: fetcher,
		opts:    opts,
		wake:    make(chan struct{}, 1),
	}
}

// Once performs a single fetch and reports the outcome to the callbacks.
func (p *Poller) Once(ctx context.Context) error {
	snap, err := p.fetcher.Dashboard(ctx)
	if err != nil {
		log.WithError(err).Warn("dashboard fetch failed")
		if p.opts.OnError != nil {
			p.opts.OnError(err)
		}
		return err
	}
	if p.opts.OnSnapshot != nil {
		p.opts.OnSnapshot(snap)
	}
	return nil
}

// Trigger asks a running poller to fetch immediately.
func (p *Poller) Trigger() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run fetches once, then keeps fetching until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	log.Info("starting poller")

	err := p.Once(ctx)
	delay := p.next(err)
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		retrying := err != nil
		select {
		case <-ctx.Done():
			log.Info("poller shutting down")
			return
		case <-p.wake:
			timer.Stop()
		case <-timer.C:
			if !retrying && p.opts.Skip != nil && p.opts.Skip() {
				timer.Reset(delay)
				continue
			}
		}

		err = p.Once(ctx)
		delay = p.next(err)
		if delay <= 0 {
			return
		}
		timer.Reset(delay)
	}
}

func (p *Poller) next(err error) time.Duration {
	if err != nil {
		return p.opts.RetryDelay
	}
	return p.opts.Interval
}
