// Package countdown keeps one live remaining-time ticker per machine.
// Tickers are presentation only: they never write back into dashboard state.
package countdown

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
)

var log = logrus.WithField("component", "countdown")

// Display is the element a countdown drives. SetRemaining returns false
// once the element is gone, which ends the countdown.
type Display interface {
	SetRemaining(seconds float64) bool
}

type timer struct {
	stop chan struct{}
	once sync.Once
}

func (t *timer) cancel() {
	t.once.Do(func() { close(t.stop) })
}

// Manager owns every running countdown, keyed by machine id.
type Manager struct {
	mu       sync.Mutex
	timers   map[model.MachineID]*timer
	interval time.Duration
}

// NewManager creates a manager that ticks every interval (one second in
// production).
func NewManager(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Second
	}
	return &Manager{
		timers:   make(map[model.MachineID]*timer),
		interval: interval,
	}
}

// Start cancels any countdown for id, shows initialSeconds on d and then
// decrements once per tick. When the counter would go negative the
// countdown ends and the last value stays on screen.
func (m *Manager) Start(id model.MachineID, initialSeconds float64, d Display) {
	t := &timer{stop: make(chan struct{})}

	m.mu.Lock()
	if old, ok := m.timers[id]; ok {
		old.cancel()
	}
	m.timers[id] = t
	alive := d.SetRemaining(initialSeconds)
	m.mu.Unlock()

	if !alive {
		m.release(id, t)
		return
	}
	go m.run(id, t, initialSeconds, d)
}

func (m *Manager) run(id model.MachineID, t *timer, remaining float64, d Display) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.release(id, t)

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining--
			if remaining < 0 {
				return
			}
			if !m.tick(id, t, remaining, d) {
				return
			}
		}
	}
}

// tick writes under the manager lock so a superseded timer can never touch
// the display after its replacement has started.
func (m *Manager) tick(id model.MachineID, t *timer, remaining float64, d Display) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timers[id] != t {
		return false
	}
	if !d.SetRemaining(remaining) {
		log.WithField("machine_id", id).Debug("display gone, countdown cancelled")
		return false
	}
	return true
}

func (m *Manager) release(id model.MachineID, t *timer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.cancel()
	if m.timers[id] == t {
		delete(m.timers, id)
	}
}

// Stop cancels the countdown for id, if any.
func (m *Manager) Stop(id model.MachineID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[id]; ok {
		t.cancel()
		delete(m.timers, id)
	}
}

// StopAll cancels every countdown (view teardown, logout).
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.timers {
		t.cancel()
		delete(m.timers, id)
	}
}

// Running reports whether id has a live countdown.
func (m *Manager) Running(id model.MachineID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.timers[id]
	return ok
}

// Active returns the number of live countdowns.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
