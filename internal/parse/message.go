package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"machine-dashboard-client/internal/model"
)

// ErrEmptyPayload is returned for blank frames.
var ErrEmptyPayload = errors.New("empty payload")

type envelope struct {
	Locations  json.RawMessage `json:"locations"`
	WorkOrders json.RawMessage `json:"work_orders"`
	NewJob     json.RawMessage `json:"new_job"`
	Alert      json.RawMessage `json:"alert"`
	RequestID  string          `json:"request_id"`
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Message decodes one push-channel frame. A frame may carry a full
// snapshot, a new-job event, a backend alert, or any mix of them.
func Message(raw []byte) (model.PushMessage, error) {
	var msg model.PushMessage
	if len(bytes.TrimSpace(raw)) == 0 {
		return msg, ErrEmptyPayload
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return msg, fmt.Errorf("failed to decode push message: %w", err)
	}
	msg.RequestID = env.RequestID

	if present(env.Locations) {
		if err := json.Unmarshal(env.Locations, &msg.Locations); err != nil {
			return msg, fmt.Errorf("failed to decode locations: %w", err)
		}
		msg.HasLocations = true
	}

	if present(env.WorkOrders) {
		if err := json.Unmarshal(env.WorkOrders, &msg.WorkOrders); err != nil {
			return msg, fmt.Errorf("failed to decode work_orders: %w", err)
		}
		msg.HasWorkOrders = true
	}

	if present(env.NewJob) {
		var ev model.NewJobEvent
		if err := json.Unmarshal(env.NewJob, &ev); err != nil {
			return msg, fmt.Errorf("failed to decode new_job: %w", err)
		}
		if ev.MachineID == "" {
			return msg, errors.New("new_job without machine_id")
		}
		msg.NewJob = &ev
	}

	// The backend's alert loop sends {"alert": "...", "machine_id": .., "level": ..}
	// at the top level of the frame.
	if present(env.Alert) {
		var a model.BackendAlert
		if err := json.Unmarshal(raw, &a); err != nil {
			return msg, fmt.Errorf("failed to decode alert: %w", err)
		}
		msg.Alert = &a
	}

	return msg, nil
}
