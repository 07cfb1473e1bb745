package model

import (
	"fmt"
	"strconv"
	"time"
)

// ProductionLog is one meter-counter increment recorded by the backend.
type ProductionLog struct {
	MachineID   MachineID `json:"machine_id"`
	WorkOrder   string    `json:"work_order,omitempty"`
	PipeSize    Text      `json:"pipe_size,omitempty"`
	ProducedQty float64   `json:"produced_qty"`
	Timestamp   string    `json:"timestamp"`
}

var logTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Time parses Timestamp. RFC3339, naive ISO and unix seconds are accepted.
func (p ProductionLog) Time() (time.Time, error) {
	for _, layout := range logTimeLayouts {
		if t, err := time.Parse(layout, p.Timestamp); err == nil {
			return t, nil
		}
	}
	if sec, err := strconv.ParseInt(p.Timestamp, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", p.Timestamp)
}
