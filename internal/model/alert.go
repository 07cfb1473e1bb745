package model

import (
	"fmt"
	"time"
)

// Severity orders how an alert is presented.
type Severity int

const (
	SeverityInfo    Severity = 0
	SeverityWarn    Severity = 1
	SeverityError   Severity = 2
	SeveritySuccess Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	}
	return "unknown"
}

// MarshalText writes the severity name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the names written by MarshalText.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "warn", "warning":
		*s = SeverityWarn
	case "error":
		*s = SeverityError
	case "success":
		*s = SeveritySuccess
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Alert is a transient notification. It is never persisted.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	MachineID MachineID `json:"machine_id,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
