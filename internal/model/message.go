package model

// BackendAlert is the alert object broadcast by the backend's own progress
// loop, when it sends one.
type BackendAlert struct {
	Message   string    `json:"alert"`
	MachineID MachineID `json:"machine_id"`
	Level     int       `json:"level"`
}

// PushMessage is one decoded message from the push channel. Any subset of
// its parts may be present.
type PushMessage struct {
	Locations     []Location
	HasLocations  bool
	WorkOrders    []WorkOrder
	HasWorkOrders bool
	NewJob        *NewJobEvent
	Alert         *BackendAlert
	RequestID     string
}

// Empty reports whether the message carried nothing this client handles.
func (m PushMessage) Empty() bool {
	return !m.HasLocations && !m.HasWorkOrders && m.NewJob == nil && m.Alert == nil
}
