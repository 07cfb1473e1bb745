package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MachineID identifies a physical machine for its whole life. The backend
// sends it either as a JSON number or a string; both decode to the same ID.
type MachineID string

// UnmarshalJSON accepts numeric and string ids.
func (id *MachineID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("machine id: %w", err)
		}
		*id = MachineID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("machine id: %w", err)
	}
	*id = MachineID(n.String())
	return nil
}

// MarshalJSON writes integer ids back as numbers, which is what the action
// endpoints expect. Ids that would not survive the round trip, like "007",
// stay strings.
func (id MachineID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// MachineStatus is the backend-reported run state of a machine.
type MachineStatus string

const (
	StatusIdle      MachineStatus = "idle"
	StatusFree      MachineStatus = "free"
	StatusRunning   MachineStatus = "running"
	StatusPaused    MachineStatus = "paused"
	StatusStopped   MachineStatus = "stopped"
	StatusCompleted MachineStatus = "completed"
)

// Machine is one card on the board.
type Machine struct {
	ID      MachineID     `json:"id"`
	Name    string        `json:"name"`
	Status  MachineStatus `json:"status"`
	Job     *Job          `json:"job,omitempty"`
	NextJob *QueuedJob    `json:"next_job,omitempty"`

	// DisplayName is the client-side rename overlay, else Name.
	// It is never sent by the backend.
	DisplayName string `json:"-"`
}

// Label returns the name to show for the machine.
func (m Machine) Label() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.Name
}

// Location groups the machines of one site.
type Location struct {
	Name     string    `json:"name"`
	Machines []Machine `json:"machines"`
}
