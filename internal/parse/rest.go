package parse

import (
	"encoding/json"
	"fmt"

	"machine-dashboard-client/internal/model"
)

// Snapshot is the body of GET /dashboard.
type Snapshot struct {
	Locations  []model.Location  `json:"locations"`
	WorkOrders []model.WorkOrder `json:"work_orders,omitempty"`
}

// ActionResult is the body returned by the machine action endpoints.
type ActionResult struct {
	OK      bool           `json:"ok"`
	Machine *model.Machine `json:"machine,omitempty"`
}

// Dashboard decodes a full snapshot.
func Dashboard(body []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return snap, fmt.Errorf("failed to unmarshal dashboard: %w", err)
	}
	return snap, nil
}

// ProductionLogs decodes the log list and keeps at most limit entries.
func ProductionLogs(body []byte, limit int) ([]model.ProductionLog, error) {
	var resp struct {
		Logs []model.ProductionLog `json:"logs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal production logs: %w", err)
	}
	if limit > 0 && len(resp.Logs) > limit {
		resp.Logs = resp.Logs[:limit]
	}
	return resp.Logs, nil
}

// WorkOrders decodes the ERP work order list.
func WorkOrders(body []byte) ([]model.WorkOrder, error) {
	var resp struct {
		WorkOrders []model.WorkOrder `json:"work_orders"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work orders: %w", err)
	}
	return resp.WorkOrders, nil
}

// Action decodes an action endpoint response.
func Action(body []byte) (ActionResult, error) {
	var res ActionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("failed to unmarshal action result: %w", err)
	}
	return res, nil
}
