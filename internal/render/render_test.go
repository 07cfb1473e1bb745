package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-dashboard-client/internal/model"
)

func TestFormatTime(t *testing.T) {
	testCases := []struct {
		seconds  float64
		expected string
	}{
		{-1, "0:00"},
		{-3600, "0:00"},
		{0, "0:00"},
		{5, "0:05"},
		{59.9, "0:59"},
		{60, "1:00"},
		{125, "2:05"},
		{3599, "59:59"},
		{3600, "60:00"},
		{7325.4, "122:05"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, FormatTime(tc.seconds), "seconds=%v", tc.seconds)
	}
}

func TestProgressColor(t *testing.T) {
	assert.Equal(t, ColorNormal, ProgressColor(0))
	assert.Equal(t, ColorNormal, ProgressColor(74.9))
	assert.Equal(t, ColorWarning, ProgressColor(75))
	assert.Equal(t, ColorWarning, ProgressColor(89.99))
	assert.Equal(t, ColorCritical, ProgressColor(90))
	assert.Equal(t, ColorCritical, ProgressColor(130))
}

func cardNames(res Result) []string {
	var names []string
	for _, c := range res.Shown {
		names = append(names, c.Content().Name)
	}
	return names
}

func filterFixture() []model.Location {
	return []model.Location{{
		Name: "Plant 1",
		Machines: []model.Machine{
			{ID: "1", Name: "A1", DisplayName: "A1", Status: model.StatusRunning},
			{ID: "2", Name: "B2", DisplayName: "B2", Status: model.StatusIdle},
		},
	}}
}

func TestRender_FilterComposition(t *testing.T) {
	admin := model.Session{Identity: "boss", Role: model.RoleAdmin, LocationScope: model.AllLocations}

	r := NewRenderer()
	res := r.Render(filterFixture(), Filters{Status: "running"}, admin)
	assert.Equal(t, []string{"A1"}, cardNames(res))

	r = NewRenderer()
	res = r.Render(filterFixture(), Filters{Status: "all", Search: "b"}, admin)
	assert.Equal(t, []string{"B2"}, cardNames(res))

	r = NewRenderer()
	res = r.Render(filterFixture(), Filters{Location: "Plant 9"}, admin)
	assert.Empty(t, res.Shown)
	assert.Empty(t, res.View.Locations)
}

func TestRender_SearchMatchesWorkOrder(t *testing.T) {
	locs := filterFixture()
	locs[0].Machines[1].Job = &model.Job{WorkOrder: "MFG-WO-2025-0042"}

	res := NewRenderer().Render(locs, Filters{Search: "wo-2025"}, model.Session{})
	assert.Equal(t, []string{"B2"}, cardNames(res))
}

func TestRender_CardIdentityIsStable(t *testing.T) {
	r := NewRenderer()
	sess := model.Session{Role: model.RoleOperator, LocationScope: model.AllLocations}

	first := r.Render(filterFixture(), Filters{}, sess)
	require.Len(t, first.Shown, 2)
	a1 := first.Shown[0]

	locs := filterFixture()
	locs[0].Machines[0].Status = model.StatusPaused
	second := r.Render(locs, Filters{}, sess)
	require.Len(t, second.Shown, 2)
	assert.Same(t, a1, second.Shown[0], "existing card must be reused")
	assert.Equal(t, "paused", a1.Content().Status)
	assert.Equal(t, 2, a1.Updates())
	assert.Empty(t, second.Removed)

	third := r.Render(locs, Filters{Status: "idle"}, sess)
	assert.Equal(t, []model.MachineID{"1"}, third.Removed)
	assert.True(t, a1.Detached())
	assert.False(t, a1.SetRemaining(10), "removed card rejects countdown updates")
}

func TestRender_RoleGatesControls(t *testing.T) {
	testCases := []struct {
		name     string
		sess     model.Session
		expected Controls
	}{
		{"Operator", model.Session{Role: model.RoleOperator, LocationScope: "all"}, Controls{Start: true, Pause: true, Stop: true}},
		{"Admin", model.Session{Role: model.RoleAdmin, LocationScope: "all"}, Controls{Rename: true}},
		{"No role", model.Session{}, Controls{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewRenderer().Render(filterFixture(), Filters{}, tc.sess)
			require.NotEmpty(t, res.Shown)
			assert.Equal(t, tc.expected, res.Shown[0].Content().Controls)
		})
	}
}

func TestRender_LocationScope(t *testing.T) {
	locs := append(filterFixture(), model.Location{
		Name:     "Plant 2",
		Machines: []model.Machine{{ID: "9", Name: "C9", Status: model.StatusRunning}},
	})
	sess := model.Session{Role: model.RoleOperator, LocationScope: "Plant 2"}

	res := NewRenderer().Render(locs, Filters{}, sess)
	require.Len(t, res.View.Locations, 1)
	assert.Equal(t, "Plant 2", res.View.Locations[0].Name)
	assert.Equal(t, []string{"C9"}, cardNames(res))
}

func TestRender_JobView(t *testing.T) {
	locs := filterFixture()
	locs[0].Machines[0].Job = &model.Job{WorkOrder: "WO-1", ProgressPercent: 104.36, TotalQty: 10, CompletedQty: 11, RemainingTimeSeconds: 0}
	locs[0].Machines[1].Job = &model.Job{WorkOrder: "WO-2", ProgressPercent: 82}

	res := NewRenderer().Render(locs, Filters{}, model.Session{})
	require.Len(t, res.Shown, 2)

	over := res.Shown[0].Content().Job
	require.NotNil(t, over)
	assert.Equal(t, "100.0", over.Progress)
	assert.Equal(t, 100.0, over.ProgressWidth)
	assert.Equal(t, ColorCritical, over.ProgressColor)

	warn := res.Shown[1].Content().Job
	assert.Equal(t, "82.0", warn.Progress)
	assert.Equal(t, ColorWarning, warn.ProgressColor)
}

func TestRenderMachine_ScopedUpdate(t *testing.T) {
	r := NewRenderer()
	sess := model.Session{Role: model.RoleAdmin, LocationScope: "all"}
	res := r.Render(filterFixture(), Filters{}, sess)
	b2 := res.Shown[1]

	m := filterFixture()[0].Machines[1]
	m.DisplayName = "Spare line"
	card, ok := r.RenderMachine("Plant 1", m, sess)
	require.True(t, ok)
	assert.Same(t, b2, card)
	assert.Equal(t, "Spare line", card.Content().Name)
	assert.Equal(t, 1, res.Shown[0].Updates(), "other cards untouched")

	_, ok = r.RenderMachine("Plant 1", model.Machine{ID: "404"}, sess)
	assert.False(t, ok)
}

func TestWriteHTML(t *testing.T) {
	locs := filterFixture()
	locs[0].Machines[0].Job = &model.Job{WorkOrder: "WO-<1>", ProgressPercent: 50, RemainingTimeSeconds: 125}
	sess := model.Session{Identity: "op", Role: model.RoleOperator, LocationScope: "all"}

	res := NewRenderer().Render(locs, Filters{}, sess)
	res.Shown[0].SetRemaining(125)

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, res.View))
	out := buf.String()
	assert.Contains(t, out, `data-machine-id="1"`)
	assert.Contains(t, out, "WO-&lt;1&gt;")
	assert.Contains(t, out, "2:05")
	assert.Contains(t, out, "No Job")
	assert.Contains(t, out, `value="start"`)
	assert.NotContains(t, out, `value="rename"`)
}
