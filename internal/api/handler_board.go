package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"machine-dashboard-client/internal/dashboard"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/mw"
	"machine-dashboard-client/internal/render"
	"machine-dashboard-client/internal/state"
	"machine-dashboard-client/internal/transport"
)

type boardResponse struct {
	Loaded   bool        `json:"loaded"`
	PushOpen bool        `json:"push_open"`
	Board    render.View `json:"board"`
}

// GetBoard handles GET /api/board?location=&status=&q=.
func (h *Handler) GetBoard(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}

	var f render.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, loaded, err := h.dash.Board(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, boardResponse{Loaded: loaded, PushOpen: h.dash.PushOpen(), Board: view})
}

// GetAlerts handles GET /api/alerts.
func (h *Handler) GetAlerts(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": h.dash.AlertsFor(sess)})
}

type machineActionRequest struct {
	Location  string          `json:"location" form:"location"`
	MachineID model.MachineID `json:"machine_id" form:"machine_id" binding:"required"`
	NewName   string          `json:"new_name" form:"new_name"`
}

func (h *Handler) runAction(ctx context.Context, action string, req machineActionRequest) (model.Machine, error) {
	if action == state.ActionRename {
		return h.dash.Rename(ctx, req.Location, req.MachineID, req.NewName)
	}
	return h.dash.Dispatch(ctx, action, req.Location, req.MachineID)
}

func actionStatus(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrUnknownAction), errors.Is(err, dashboard.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, state.ErrMachineNotFound):
		return http.StatusNotFound
	case errors.Is(err, transport.ErrActionRejected):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// PostMachineAction handles POST /api/machines/:action.
func (h *Handler) PostMachineAction(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}

	var req machineActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.runAction(c.Request.Context(), c.Param("action"), req)
	if err != nil {
		c.JSON(actionStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "machine": m, "name": m.Label()})
}

// GetWorkOrders handles GET /api/work_orders. Admins only.
func (h *Handler) GetWorkOrders(c *gin.Context) {
	sess, ok := h.requireSession(c)
	if !ok {
		return
	}
	if sess.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	orders, err := h.dash.WorkOrders(c.Request.Context())
	if err != nil {
		if len(orders) == 0 {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.Header(mw.CacheBypassHeader, "stale")
		c.JSON(http.StatusOK, gin.H{"work_orders": orders, "stale": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"work_orders": orders, "stale": false})
}

// GetProductionLogs handles GET /api/production_logs.
func (h *Handler) GetProductionLogs(c *gin.Context) {
	if _, ok := h.requireSession(c); !ok {
		return
	}

	logs, err := h.dash.ProductionLogs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
