package alert

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-dashboard-client/internal/model"
)

func board(progress float64) []model.Location {
	return []model.Location{{
		Name: "Plant 1",
		Machines: []model.Machine{
			{ID: "1", Name: "Extruder", DisplayName: "Extruder", Status: model.StatusRunning, Job: &model.Job{WorkOrder: "WO-1", ProgressPercent: progress}},
			{ID: "2", Name: "Idle one", Status: model.StatusIdle},
		},
	}}
}

func TestBandFor(t *testing.T) {
	assert.Equal(t, BandNone, BandFor(74.99))
	assert.Equal(t, BandWarning, BandFor(75))
	assert.Equal(t, BandWarning, BandFor(89.9))
	assert.Equal(t, BandCritical, BandFor(90))
	assert.Equal(t, BandCritical, BandFor(99.99))
	assert.Equal(t, BandComplete, BandFor(100))
	assert.Equal(t, BandComplete, BandFor(250))
}

func TestEngine_SingleBandAlert(t *testing.T) {
	e := NewEngine()
	alerts := e.Derive(board(82))
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityWarn, alerts[0].Severity)
	assert.Equal(t, "Extruder Warning 82.0%", alerts[0].Message)
	assert.Equal(t, model.MachineID("1"), alerts[0].MachineID)
	assert.Equal(t, "Plant 1", alerts[0].Location)
}

func TestEngine_OnlyOnTransition(t *testing.T) {
	e := NewEngine()

	require.Len(t, e.Derive(board(95)), 1)
	assert.Empty(t, e.Derive(board(95)), "same band must not re-alert")
	assert.Empty(t, e.Derive(board(97)))

	done := e.Derive(board(100))
	require.Len(t, done, 1)
	assert.Equal(t, model.SeveritySuccess, done[0].Severity)
	assert.Equal(t, "Machine Extruder COMPLETED", done[0].Message)

	// A new job starting from zero resets the history.
	assert.Empty(t, e.Derive(board(10)))
	again := e.Derive(board(91))
	require.Len(t, again, 1)
	assert.Equal(t, model.SeverityError, again[0].Severity)
	assert.Equal(t, "Extruder CRITICAL 91.0%", again[0].Message)
}

func TestEngine_JobLossClearsHistory(t *testing.T) {
	e := NewEngine()
	require.Len(t, e.Derive(board(80)), 1)

	noJob := board(0)
	noJob[0].Machines[0].Job = nil
	assert.Empty(t, e.Derive(noJob))

	assert.Len(t, e.Derive(board(80)), 1)
}

func TestEngine_Observe(t *testing.T) {
	e := NewEngine()
	e.Derive(board(80))

	m := board(92)[0].Machines[0]
	alerts := e.Observe("Plant 1", m)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityError, alerts[0].Severity)
	assert.Empty(t, e.Observe("Plant 1", m))
}

func TestEngine_Acknowledge(t *testing.T) {
	e := NewEngine()
	require.Len(t, e.Derive(board(82)), 1)

	assert.False(t, e.Acknowledge("1", 1), "warning already raised locally")
	assert.True(t, e.Acknowledge("1", 2))
	assert.Empty(t, e.Derive(board(93)), "critical already broadcast")
	assert.True(t, e.Acknowledge("1", 0))
	assert.True(t, e.Acknowledge("9", 7))
}

func TestFromBackend(t *testing.T) {
	a := FromBackend(model.BackendAlert{Message: "done", MachineID: "3", Level: 3}, "Plant 2")
	assert.Equal(t, model.SeveritySuccess, a.Severity)
	assert.Equal(t, "Plant 2", a.Location)
	assert.Equal(t, model.SeverityInfo, FromBackend(model.BackendAlert{Level: 7}, "").Severity)
}

type captureNotifier struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (c *captureNotifier) Dispatch(a model.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
}

func TestFeed_ExpiresAndNotifies(t *testing.T) {
	n := &captureNotifier{}
	f := NewFeed(50*time.Millisecond, n)

	first := f.Raise(model.SeverityWarn, "push channel closed")
	second := f.Push(model.Alert{Message: "Extruder Warning 80.0%", Severity: model.SeverityWarn, CreatedAt: first.CreatedAt.Add(time.Millisecond)})
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	active := f.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID, "oldest first")

	assert.Eventually(t, func() bool { return len(f.Active()) == 0 }, time.Second, 10*time.Millisecond)

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Len(t, n.alerts, 2)
}
