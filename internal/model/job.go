package model

import (
	"encoding/json"
	"strings"
)

// Text decodes a JSON string or number into its textual form. Pipe sizes
// arrive as either depending on how the work order was entered.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*t = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*t = Text(str)
		return nil
	}
	*t = Text(s)
	return nil
}

// Job is the work currently running on a machine. RemainingTimeSeconds is
// authoritative only when the snapshot or patch carrying it arrives.
type Job struct {
	WorkOrder            string   `json:"work_order"`
	Size                 Text     `json:"size"`
	CompletedQty         float64  `json:"completed_qty"`
	TotalQty             float64  `json:"total_qty"`
	RemainingQty         *float64 `json:"remaining_qty,omitempty"`
	RemainingTimeSeconds float64  `json:"remaining_time"`
	ProgressPercent      float64  `json:"progress_percent"`
	ERPStatus            string   `json:"erp_status,omitempty"`
	ERPComments          string   `json:"erp_comments,omitempty"`
}

// QueuedJob waits for the running job on its machine to finish.
type QueuedJob struct {
	MachineID            MachineID `json:"machine_id,omitempty"`
	WorkOrder            string    `json:"work_order"`
	Size                 Text      `json:"pipe_size"`
	CompletedQty         float64   `json:"produced_qty"`
	TotalQty             float64   `json:"total_qty"`
	RemainingTimeSeconds float64   `json:"remaining_time"`
}

// NewJobEvent is pushed when a work order is assigned to a machine.
type NewJobEvent struct {
	MachineID   MachineID `json:"machine_id"`
	WorkOrder   string    `json:"work_order"`
	Qty         float64   `json:"qty"`
	PipeSize    Text      `json:"pipe_size"`
	ETASeconds  float64   `json:"eta"`
	MachineName string    `json:"machine_name"`
}

// WorkOrder is an ERP work order as listed for admins. Push snapshots use
// "id" where the REST view uses "work_order".
type WorkOrder struct {
	WorkOrder   string  `json:"work_order,omitempty"`
	ID          string  `json:"id,omitempty"`
	ItemName    string  `json:"item_name,omitempty"`
	Qty         float64 `json:"qty"`
	ProducedQty float64 `json:"produced_qty,omitempty"`
	Status      string  `json:"status"`
	MachineName string  `json:"machine_name,omitempty"`
	Location    string  `json:"location,omitempty"`
	PipeSize    Text    `json:"pipe_size,omitempty"`
	ETA         Text    `json:"eta,omitempty"`
}

// Name returns whichever identifier the source populated.
func (w WorkOrder) Name() string {
	if w.WorkOrder != "" {
		return w.WorkOrder
	}
	return w.ID
}
