package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-dashboard-client/config"
	"machine-dashboard-client/internal/alert"
	"machine-dashboard-client/internal/dashboard"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/mw"
	"machine-dashboard-client/internal/parse"
	"machine-dashboard-client/internal/session"
	"machine-dashboard-client/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubBackend struct{}

func (stubBackend) Dashboard(ctx context.Context) (parse.Snapshot, error) {
	return parse.Snapshot{}, nil
}

func (stubBackend) ProductionLogs(ctx context.Context, limit int) ([]model.ProductionLog, error) {
	return []model.ProductionLog{{MachineID: "1", WorkOrder: "WO-1", ProducedQty: 10, Timestamp: "2024-05-01T08:00:00"}}, nil
}

func (stubBackend) WorkOrders(ctx context.Context) ([]model.WorkOrder, error) {
	return []model.WorkOrder{{WorkOrder: "WO-1", ItemName: "Pipe", Qty: 100, Status: "In Process"}}, nil
}

func (stubBackend) MachineAction(ctx context.Context, action, location string, id model.MachineID, requestID string) (*model.Machine, error) {
	return nil, nil
}

func (stubBackend) Rename(ctx context.Context, location string, id model.MachineID, newName, requestID string) error {
	return nil
}

type testEnv struct {
	router *gin.Engine
	dash   *dashboard.Dashboard
	store  store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gormDB.AutoMigrate(&model.KeyValue{}, &model.PushSubscription{}))
	st := store.NewGormStore(gormDB)

	sessions := session.NewManager([]config.UserConfig{
		{Identity: "op1", Password: "pw", Role: "operator", Location: "Plant A"},
		{Identity: "boss", Password: "pw", Role: "admin", Location: "all"},
		{Identity: "op2", Password: "pw", Role: "operator", Location: "Plant B"},
	}, st)

	dash := dashboard.New(stubBackend{}, alert.NewFeed(time.Minute, nil), dashboard.Options{TickInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go dash.Run(ctx)
	t.Cleanup(func() {
		cancel()
		sqlDB.Close()
	})

	dash.ApplySnapshot(parse.Snapshot{Locations: []model.Location{
		{Name: "Plant A", Machines: []model.Machine{
			{ID: "1", Name: "Extruder", Status: model.StatusRunning, Job: &model.Job{WorkOrder: "WO-1", ProgressPercent: 50, RemainingTimeSeconds: 300}},
		}},
		{Name: "Plant B", Machines: []model.Machine{
			{ID: "2", Name: "Press", Status: model.StatusIdle},
		}},
	}})

	h := NewHandler(dash, sessions, st, &webpush.Options{VAPIDPublicKey: "pub"})
	return &testEnv{
		router: NewRouter(h, config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTL: time.Minute}),
		dash:   dash,
		store:  st,
	}
}

func (e *testEnv) do(method, path, identity string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if identity != "" {
		req.AddCookie(&http.Cookie{Name: mw.SessionCookie, Value: identity})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, identity string) {
	t.Helper()
	w := e.do(http.MethodPost, "/api/session", "", gin.H{"identity": identity, "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/session", "", gin.H{"identity": "op1", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/session", "", gin.H{"identity": "op1", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"identity":"op1","role":"operator","location":"Plant A"}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), mw.SessionCookie+"=op1")
}

func TestBoard_RequiresSession(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/board", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBoard_ScopedToLocation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op1")

	w := env.do(http.MethodGet, "/api/board", "op1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Loaded bool `json:"loaded"`
		Board  struct {
			Locations []struct {
				Name     string           `json:"name"`
				Machines []map[string]any `json:"machines"`
			} `json:"locations"`
		} `json:"board"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Loaded)
	require.Len(t, resp.Board.Locations, 1)
	assert.Equal(t, "Plant A", resp.Board.Locations[0].Name)
	assert.Equal(t, "5:00", resp.Board.Locations[0].Machines[0]["remaining"])
}

func TestMachineAction(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op1")

	w := env.do(http.MethodPost, "/api/machines/pause", "op1", gin.H{"location": "Plant A", "machine_id": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"paused"`)

	w = env.do(http.MethodPost, "/api/machines/explode", "op1", gin.H{"location": "Plant A", "machine_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/machines/start", "op1", gin.H{"location": "Plant B", "machine_id": 2})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPost, "/api/machines/rename", "op1", gin.H{"location": "Plant A", "machine_id": 1, "new_name": "Line A"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRename(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "boss")

	w := env.do(http.MethodPost, "/api/machines/rename", "boss", gin.H{"location": "Plant A", "machine_id": "1", "new_name": "Line A"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"name":"Line A"`)
}

func TestWorkOrders_AdminOnly(t *testing.T) {
	env := newTestEnv(t)

	env.login(t, "op1")
	w := env.do(http.MethodGet, "/api/work_orders", "op1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.login(t, "boss")
	w = env.do(http.MethodGet, "/api/work_orders", "boss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "WO-1")

	w = env.do(http.MethodGet, "/api/work_orders", "boss", nil)
	assert.Equal(t, "HIT", w.Header().Get(mw.CacheStatusHeader))
}

func TestProductionLogs(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op1")

	w := env.do(http.MethodGet, "/api/production_logs", "op1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"work_order":"WO-1"`)
}

func TestSession_RestoreAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op1")
	require.NoError(t, env.dash.Logout(context.Background()))

	// The dashboard forgot the session but the store still has it.
	w := env.do(http.MethodGet, "/api/session", "op1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"identity":"op1"`)

	w = env.do(http.MethodDelete, "/api/session", "op1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/session", "op1", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAlerts(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "boss")
	env.dash.OnClose(nil)

	w := env.do(http.MethodGet, "/api/alerts", "boss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"severity":"warn"`)
}

func TestAlerts_ScopedToLocation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op2")
	env.dash.OnMessage(model.PushMessage{HasLocations: true, Locations: []model.Location{
		{Name: "Plant A", Machines: []model.Machine{
			{ID: "1", Name: "Extruder", Status: model.StatusRunning, Job: &model.Job{WorkOrder: "WO-1", ProgressPercent: 82, RemainingTimeSeconds: 60}},
		}},
		{Name: "Plant B", Machines: []model.Machine{
			{ID: "2", Name: "Press", Status: model.StatusIdle},
		}},
	}})
	env.dash.OnClose(nil)

	w := env.do(http.MethodGet, "/api/alerts", "op2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "Extruder Warning")
	assert.Contains(t, w.Body.String(), "Live updates disconnected")

	env.login(t, "boss")
	w = env.do(http.MethodGet, "/api/alerts", "boss", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Extruder Warning 82.0%")
	assert.Contains(t, w.Body.String(), "Live updates disconnected")
}

func TestUI_LoginAndBoard(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/ui/session"`)

	form := url.Values{"identity": {"op1"}, "password": {"pw"}}
	req, _ := http.NewRequest(http.MethodPost, "/ui/session", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = env.do(http.MethodGet, "/", "op1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Extruder")
	assert.NotContains(t, w.Body.String(), "Press")
}

func TestUI_MachineForm(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "op1")

	form := url.Values{"location": {"Plant A"}, "machine_id": {"1"}, "action": {"stop"}}
	req, _ := http.NewRequest(http.MethodPost, "/ui/machines", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: mw.SessionCookie, Value: "op1"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	m, _, ok, err := env.dash.Machine(context.Background(), "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.StatusStopped, m.Status)
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/subscriptions", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	env.login(t, "op1")
	w = env.do(http.MethodPut, "/api/subscriptions", "op1", gin.H{"endpoint": "https://push.example/abc", "p256dh": "k", "auth": "a"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "op1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"endpoint":"https://push.example/abc","location":"Plant A"}`, w.Body.String())

	w = env.do(http.MethodDelete, "/api/subscriptions", "op1", gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint=https://push.example/abc", "op1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/vapid_public_key", "", nil)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())
}
