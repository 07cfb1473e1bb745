package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/parse"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fails int
}

func (f *fakeFetcher) Dashboard(ctx context.Context) (parse.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return parse.Snapshot{}, errors.New("backend unreachable")
	}
	return parse.Snapshot{Locations: []model.Location{{Name: "Plant A"}}}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_RetriesUntilSuccess(t *testing.T) {
	fetcher := &fakeFetcher{fails: 2}
	var errs, snaps atomic.Int32

	p := NewPoller(fetcher, PollerOptions{
		RetryDelay: 5 * time.Millisecond,
		OnSnapshot: func(parse.Snapshot) { snaps.Add(1) },
		OnError:    func(error) { errs.Add(1) },
	})

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after first success")
	}
	assert.Equal(t, int32(2), errs.Load())
	assert.Equal(t, int32(1), snaps.Load())
	assert.Equal(t, 3, fetcher.Calls())
}

func TestPoller_SkipPeriodic(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := NewPoller(fetcher, PollerOptions{
		Interval:   5 * time.Millisecond,
		RetryDelay: 5 * time.Millisecond,
		Skip:       func() bool { return true },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	assert.Equal(t, 1, fetcher.Calls())
}

func TestPoller_Trigger(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := NewPoller(fetcher, PollerOptions{
		Interval:   time.Hour,
		RetryDelay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool { return fetcher.Calls() == 1 }, time.Second, time.Millisecond)
	p.Trigger()
	assert.Eventually(t, func() bool { return fetcher.Calls() == 2 }, time.Second, time.Millisecond)
}

func TestPoller_Once(t *testing.T) {
	fetcher := &fakeFetcher{fails: 1}
	var got error
	p := NewPoller(fetcher, PollerOptions{OnError: func(err error) { got = err }})

	err := p.Once(context.Background())
	assert.Error(t, err)
	assert.Equal(t, err, got)
	assert.NoError(t, p.Once(context.Background()))
}
